package translate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minios-linux/livetrans/langmeta"
	"github.com/minios-linux/livetrans/settings"
)

// targetPlaceholder is replaced with the target language name in system
// prompts.
const targetPlaceholder = "{{targetLang}}"

const promptRules = `Rules:
1) If the message is already in {{targetLang}}, should_translate must be false.
2) Keep the tone, slang, memes, proper nouns and emoji; transliterate names when needed.
3) Do not translate word for word; the result must read like a real chat message.
4) Output JSON only, exactly {"translated":"...","detected_language":"...","should_translate":true/false}
5) Do not output anything outside the JSON object.`

// NaturalSystemPrompt asks for the casual register chat viewers use.
const NaturalSystemPrompt = `You are a live interpreter for a streaming chat room.
Task: translate messages that are not in {{targetLang}} into natural {{targetLang}}.
Write the way viewers actually type in chat; avoid stiff written phrasing.
` + promptRules

// FaithfulSystemPrompt stays closer to the source wording.
const FaithfulSystemPrompt = `You are a live interpreter for a streaming chat room.
Task: translate messages that are not in {{targetLang}} into natural {{targetLang}}.
Stay close to the original meaning, but still avoid literal word-for-word output.
` + promptRules

// PromptsConfig is the on-disk shape of prompts.json.
type PromptsConfig struct {
	Prompts map[string]string `json:"prompts"`
}

// Prompts holds the system prompt per translation style.
type Prompts struct {
	Natural  string
	Faithful string
}

// DefaultPrompts returns the built-in prompts.
func DefaultPrompts() Prompts {
	return Prompts{Natural: NaturalSystemPrompt, Faithful: FaithfulSystemPrompt}
}

// LoadPrompts reads prompt overrides from path. A missing file yields the
// built-in prompts; keys left out or empty keep their built-in value.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	data, err := os.ReadFile(path)
	if err != nil {
		// File not found is not an error - we'll use embedded defaults
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var config PromptsConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return p, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	if s := strings.TrimSpace(config.Prompts[string(settings.StyleNatural)]); s != "" {
		p.Natural = s
	}
	if s := strings.TrimSpace(config.Prompts[string(settings.StyleFaithful)]); s != "" {
		p.Faithful = s
	}
	return p, nil
}

// WriteDefaultPrompts writes the built-in prompts to path as a formatted
// JSON file the user can edit.
func WriteDefaultPrompts(path string) error {
	config := PromptsConfig{Prompts: map[string]string{
		string(settings.StyleNatural):  NaturalSystemPrompt,
		string(settings.StyleFaithful): FaithfulSystemPrompt,
	}}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling default prompts: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating prompts directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing default prompts file: %w", err)
	}
	return nil
}

// System returns the system prompt for style with the target language
// filled in.
func (p Prompts) System(style settings.Style, target string) string {
	prompt := p.Natural
	if style == settings.StyleFaithful {
		prompt = p.Faithful
	}
	if prompt == "" {
		prompt = NaturalSystemPrompt
	}
	return strings.ReplaceAll(prompt, targetPlaceholder, targetLabel(target))
}

func targetLabel(target string) string {
	name := langmeta.EnglishName(target)
	if name == "" || name == target {
		return target
	}
	return fmt.Sprintf("%s (%s)", name, target)
}

// UserPrompt builds the user turn: the message, preceded by recent chat
// lines when there are any.
func UserPrompt(text string, context []string) string {
	if len(context) == 0 {
		return "Translate this message:\n" + text
	}
	var b strings.Builder
	b.WriteString("Recent chat context (for tone only):\n")
	for _, line := range context {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\nTranslate this message:\n")
	b.WriteString(text)
	return b.String()
}
