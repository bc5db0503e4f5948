package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/minios-linux/livetrans/i18n"
	"github.com/minios-linux/livetrans/langmeta"
	"github.com/minios-linux/livetrans/provider"
	"github.com/minios-linux/livetrans/settings"
)

const (
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 220
	openRouterTitle    = "Live Chat Translator"
)

// ---------------------------------------------------------------------------
// Free translate (GET, no key)
// ---------------------------------------------------------------------------

func (c *Client) freeTranslateURL(d provider.Descriptor, text string) string {
	base := d.DefaultEndpoint
	if base == "" {
		base = provider.FreeTranslateEndpoint
	}
	return base + "?client=gtx&sl=auto&tl=" + url.QueryEscape(c.target) +
		"&dt=t&q=" + url.QueryEscape(text)
}

func (c *Client) callFreeTranslate(ctx context.Context, d provider.Descriptor, text string) (Output, error) {
	status, body, err := c.exchange(ctx, d, http.MethodGet, c.freeTranslateURL(d, text), nil, nil)
	if err != nil {
		return Output{}, err
	}
	if status < 200 || status > 299 {
		return Output{}, freeStatusError(d.Label, status)
	}
	return parseFreeTranslate(body, text, c.target, d.Label)
}

// parseFreeTranslate reads the positional array the web-translate endpoint
// answers with: [[["segment","source"],...], null, "detected", ...].
func parseFreeTranslate(body []byte, original, target, label string) (Output, error) {
	var payload []any
	if err := json.Unmarshal(body, &payload); err != nil {
		return Output{}, newError(ErrEmptyResponse, label,
			i18n.T("Translation service returned a malformed response"), err)
	}

	var parts []string
	if len(payload) > 0 {
		if segments, ok := payload[0].([]any); ok {
			for _, seg := range segments {
				if arr, ok := seg.([]any); ok && len(arr) > 0 {
					if s, ok := arr[0].(string); ok {
						parts = append(parts, s)
					}
				}
			}
		}
	}

	detected := langmeta.Unknown
	if len(payload) > 2 {
		if s, ok := payload[2].(string); ok && strings.TrimSpace(s) != "" {
			detected = strings.TrimSpace(s)
		}
	}

	translated := NormalizeText(strings.Join(parts, ""))
	should := translated != "" &&
		translated != NormalizeText(original) &&
		!langmeta.SameLanguage(detected, target)
	if translated == "" {
		translated = original
	}
	return Output{Translated: translated, DetectedLanguage: detected, ShouldTranslate: should}, nil
}

// ---------------------------------------------------------------------------
// Chat completion (OpenAI-style)
// ---------------------------------------------------------------------------

func buildChatCompletionRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
		Stream:      false,
	}
	return json.Marshal(req)
}

func (c *Client) callChatCompletion(ctx context.Context, d provider.Descriptor, req Request) (Output, error) {
	endpoint := settings.EffectiveEndpoint(req.Settings, d)
	model := settings.EffectiveModel(req.Settings, d)
	if endpoint == "" {
		return Output{}, newError(ErrValidation, d.Label, i18n.T("%s API URL is not set", d.Label), nil)
	}
	if model == "" {
		return Output{}, newError(ErrValidation, d.Label, i18n.T("%s model is not set", d.Label), nil)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if key := strings.TrimSpace(req.Settings.APIKey); key != "" {
		headers["Authorization"] = "Bearer " + key
	}
	if d.ID == provider.OpenRouter {
		headers["X-Title"] = openRouterTitle
	}

	body, err := buildChatCompletionRequest(model,
		c.prompts.System(req.Settings.Style, c.target),
		UserPrompt(req.Text, req.Context),
		req.Settings.Temperature)
	if err != nil {
		return Output{}, err
	}

	content, err := c.post(ctx, d, endpoint, headers, body, extractChatCompletion)
	if err != nil {
		return Output{}, err
	}
	return ParseModelOutput(content, req.Text), nil
}

func extractChatCompletion(body []byte) string {
	var resp struct {
		Choices []struct {
			Message struct {
				Content json.RawMessage `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Choices) == 0 {
		return ""
	}
	raw := resp.Choices[0].Message.Content

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil {
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			texts = append(texts, p.Text)
		}
		return strings.TrimSpace(strings.Join(texts, "\n"))
	}
	return ""
}

// ---------------------------------------------------------------------------
// Multi-turn JSON (Gemini generateContent)
// ---------------------------------------------------------------------------

func buildMultiTurnRequest(systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature      float64 `json:"temperature"`
		ResponseMimeType string  `json:"responseMimeType"`
	}
	req := struct {
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
		Contents          []content `json:"contents"`
		GenerationConfig  genConfig `json:"generationConfig"`
	}{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
		GenerationConfig: genConfig{Temperature: temperature, ResponseMimeType: "application/json"},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}
	return json.Marshal(req)
}

// multiTurnEndpoint puts the model into the path unless endpoint already
// names a :generateContent method, then appends the key as a query param.
func multiTurnEndpoint(endpoint, model, key string) string {
	base := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if base == "" || model == "" {
		return ""
	}
	if !strings.Contains(base, ":generateContent") {
		base += "/models/" + url.PathEscape(model) + ":generateContent"
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "key=" + url.QueryEscape(key)
}

func (c *Client) callMultiTurnJSON(ctx context.Context, d provider.Descriptor, req Request) (Output, error) {
	model := settings.EffectiveModel(req.Settings, d)
	key := strings.TrimSpace(req.Settings.APIKey)
	endpoint := multiTurnEndpoint(settings.EffectiveEndpoint(req.Settings, d), model, key)
	if endpoint == "" {
		if model == "" {
			return Output{}, newError(ErrValidation, d.Label, i18n.T("%s model is not set", d.Label), nil)
		}
		return Output{}, newError(ErrValidation, d.Label, i18n.T("%s API URL is not set", d.Label), nil)
	}
	if key == "" {
		return Output{}, newError(ErrValidation, d.Label, i18n.T("%s API key is not set", d.Label), nil)
	}

	body, err := buildMultiTurnRequest(
		c.prompts.System(req.Settings.Style, c.target),
		UserPrompt(req.Text, req.Context),
		req.Settings.Temperature)
	if err != nil {
		return Output{}, err
	}

	headers := map[string]string{"Content-Type": "application/json"}
	content, err := c.post(ctx, d, endpoint, headers, body, extractMultiTurn)
	if err != nil {
		return Output{}, err
	}
	return ParseModelOutput(content, req.Text), nil
}

func extractMultiTurn(body []byte) string {
	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		texts := make([]string, 0, len(cand.Content.Parts))
		for _, p := range cand.Content.Parts {
			texts = append(texts, p.Text)
		}
		if text := strings.TrimSpace(strings.Join(texts, "\n")); text != "" {
			return text
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Message API (Anthropic)
// ---------------------------------------------------------------------------

func buildMessageAPIRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float64 `json:"temperature"`
		System      string  `json:"system,omitempty"`
		Messages    []msg   `json:"messages"`
	}{
		Model:       model,
		MaxTokens:   anthropicMaxTokens,
		Temperature: temperature,
		System:      systemPrompt,
		Messages: []msg{
			{Role: "user", Content: userPrompt},
		},
	}
	return json.Marshal(req)
}

func (c *Client) callMessageAPI(ctx context.Context, d provider.Descriptor, req Request) (Output, error) {
	endpoint := settings.EffectiveEndpoint(req.Settings, d)
	model := settings.EffectiveModel(req.Settings, d)
	key := strings.TrimSpace(req.Settings.APIKey)
	if endpoint == "" {
		return Output{}, newError(ErrValidation, d.Label, i18n.T("%s API URL is not set", d.Label), nil)
	}
	if model == "" {
		return Output{}, newError(ErrValidation, d.Label, i18n.T("%s model is not set", d.Label), nil)
	}
	if key == "" {
		return Output{}, newError(ErrValidation, d.Label, i18n.T("%s API key is not set", d.Label), nil)
	}

	body, err := buildMessageAPIRequest(model,
		c.prompts.System(req.Settings.Style, c.target),
		UserPrompt(req.Text, req.Context),
		req.Settings.Temperature)
	if err != nil {
		return Output{}, err
	}

	headers := map[string]string{
		"Content-Type":      "application/json",
		"x-api-key":         key,
		"anthropic-version": anthropicVersion,
	}
	content, err := c.post(ctx, d, endpoint, headers, body, extractMessageAPI)
	if err != nil {
		return Output{}, err
	}
	return ParseModelOutput(content, req.Text), nil
}

func extractMessageAPI(body []byte) string {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	var texts []string
	for _, block := range resp.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}

// ---------------------------------------------------------------------------
// Shared POST + error detail
// ---------------------------------------------------------------------------

func (c *Client) post(ctx context.Context, d provider.Descriptor, endpoint string, headers map[string]string, body []byte, extract func([]byte) string) (string, error) {
	status, respBody, err := c.exchange(ctx, d, http.MethodPost, endpoint, headers, body)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", providerStatusError(d.Label, status, respBody)
	}
	content := extract(respBody)
	if content == "" {
		return "", newError(ErrEmptyResponse, d.Label, i18n.T("%s returned no usable translation", d.Label), nil)
	}
	return content, nil
}

// errorDetail returns the first string found at error.message,
// error.details or message in a JSON error body.
func errorDetail(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	for _, path := range [][]string{{"error", "message"}, {"error", "details"}, {"message"}} {
		if s := nestedString(obj, path); s != "" {
			return s
		}
	}
	return ""
}

func nestedString(obj map[string]any, path []string) string {
	var cur any = obj
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		if cur, ok = m[key]; !ok {
			return ""
		}
	}
	s, _ := cur.(string)
	return s
}
