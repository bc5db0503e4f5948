package translate

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"

	"github.com/minios-linux/livetrans/langmeta"
)

// ---------------------------------------------------------------------------
// Model output
// ---------------------------------------------------------------------------

// ParseModelOutput extracts a translation from raw provider text. JSON is
// tried first, whole and then as the slice between the first '{' and the
// last '}'; a JSON object with a non-empty "translated" wins. Otherwise
// code fences are stripped and the plain text is used.
func ParseModelOutput(raw, original string) Output {
	if obj := tryParseJSON(raw); obj != nil {
		translated, _ := obj["translated"].(string)
		translated = strings.TrimSpace(translated)

		detected := langmeta.Unknown
		if s, ok := obj["detected_language"].(string); ok && strings.TrimSpace(s) != "" {
			detected = strings.TrimSpace(s)
		}
		if translated != "" {
			return Output{
				Translated:       translated,
				DetectedLanguage: detected,
				ShouldTranslate:  truthy(obj["should_translate"]),
			}
		}
	}

	plain := stripFences(raw)
	out := Output{
		Translated:       plain,
		DetectedLanguage: langmeta.Unknown,
		ShouldTranslate:  plain != original,
	}
	if plain == "" {
		out.Translated = original
	}
	return out
}

func tryParseJSON(raw string) map[string]any {
	candidate := strings.TrimSpace(raw)

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil && obj != nil {
		return obj
	}

	first := strings.Index(candidate, "{")
	last := strings.LastIndex(candidate, "}")
	if first < 0 || last <= first {
		return nil
	}
	obj = nil
	if err := json.Unmarshal([]byte(candidate[first:last+1]), &obj); err != nil {
		return nil
	}
	return obj
}

var (
	openingFence = regexp.MustCompile("(?i)^```(?:json)?")
	closingFence = regexp.MustCompile("```$")
)

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = openingFence.ReplaceAllString(s, "")
	s = closingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// truthy coerces a JSON value to a boolean the way a loosely typed model
// answer is meant: "false" and "0" are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s != "" && s != "false" && s != "0"
	default:
		return true
	}
}

// ---------------------------------------------------------------------------
// Text helpers
// ---------------------------------------------------------------------------

// NormalizeText collapses every whitespace run to one space and trims.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Cap cuts s to at most n runes.
func Cap(s string, n int) string {
	if n < 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

var bareURL = regexp.MustCompile(`(?i)^(https?://|www\.)\S+$`)

// IsUntranslatable reports whether text is a chat command, a bare URL, or
// has no letter or digit at all.
func IsUntranslatable(text string) bool {
	if strings.HasPrefix(text, "/") {
		return true
	}
	if bareURL.MatchString(text) {
		return true
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return false
		}
	}
	return strings.TrimSpace(text) != ""
}
