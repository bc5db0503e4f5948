// Package langmeta provides language metadata (native and English names,
// emoji flags) and tag comparisons used by prompts, the free translate
// adapter and the CLI.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Unknown is the detected-language value used when a provider reports none.
const Unknown = "unknown"

// Meta describes language display metadata.
type Meta struct {
	Tag     string
	Name    string
	English string
	Flag    string
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 && len(parts[1]) == 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Parse returns the BCP 47 tag for lang, accepting pt_BR style codes.
func Parse(lang string) (language.Tag, bool) {
	c := canonicalize(lang)
	if c == "" || strings.EqualFold(c, Unknown) {
		return language.Und, false
	}
	tag, err := language.Parse(c)
	if err != nil || tag == language.Und {
		return language.Und, false
	}
	return tag, true
}

// Resolve returns best-effort language metadata for lang. Unknown codes are
// passed through as their own name with no flag.
func Resolve(lang string) Meta {
	tag, ok := Parse(lang)
	if !ok {
		return Meta{Tag: lang, Name: lang, English: lang}
	}
	m := Meta{
		Tag:     tag.String(),
		Name:    display.Self.Name(tag),
		English: display.English.Tags().Name(tag),
		Flag:    flag(tag),
	}
	if m.Name == "" {
		m.Name = m.English
	}
	if m.English == "" {
		m.English = lang
		if m.Name == "" {
			m.Name = lang
		}
	}
	return m
}

// EnglishName returns the English display name of lang, or lang itself.
func EnglishName(lang string) string {
	return Resolve(lang).English
}

// SameLanguage reports whether a and b name the same base language, so
// "zh-CN" and "zh-TW" match while "en" and "zh-TW" do not. Unparseable
// codes never match.
func SameLanguage(a, b string) bool {
	ta, ok := Parse(a)
	if !ok {
		return false
	}
	tb, ok := Parse(b)
	if !ok {
		return false
	}
	ba, ca := ta.Base()
	bb, cb := tb.Base()
	if ca == language.No || cb == language.No {
		return false
	}
	return ba == bb
}

// flag builds the regional-indicator emoji for the tag's region.
func flag(tag language.Tag) string {
	region, conf := tag.Region()
	if conf == language.No {
		return ""
	}
	code := region.String()
	if len(code) != 2 || code[0] < 'A' || code[0] > 'Z' || code[1] < 'A' || code[1] > 'Z' {
		return ""
	}
	return string([]rune{
		rune(code[0]) - 'A' + 0x1F1E6,
		rune(code[1]) - 'A' + 0x1F1E6,
	})
}
