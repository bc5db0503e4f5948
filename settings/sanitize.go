package settings

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/minios-linux/livetrans/provider"
)

// Style selects the translation register requested from generative providers.
type Style string

const (
	StyleNatural  Style = "natural"
	StyleFaithful Style = "faithful"
)

// legacyNaturalStyle is the value older releases stored for StyleNatural.
const legacyNaturalStyle = "natural_taiwan"

const (
	DefaultTemperature = 0.2
	DefaultMinChars    = 2
	MinMinChars        = 1
	MaxMinChars        = 20

	maxAPIKeyLen   = 512
	maxEndpointLen = 2048
	maxModelLen    = 128
	maxProviderLen = 64
)

// Settings is the sanitized, typed configuration handed to every request.
// Values are immutable once published through Live.
type Settings struct {
	Enabled     bool    `json:"enabled"`
	Provider    string  `json:"provider"`
	APIKey      string  `json:"-"`
	EndpointURL string  `json:"apiUrl"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Style       Style   `json:"translationStyle"`
	MinChars    int     `json:"minChars"`
}

// PublicSettings is what leaves the process: everything except the key.
type PublicSettings struct {
	Settings
	HasAPIKey bool `json:"hasApiKey"`
}

// Public strips the secret.
func (s Settings) Public() PublicSettings {
	return PublicSettings{Settings: s, HasAPIKey: s.APIKey != ""}
}

// Defaults returns the settings used before anything is stored.
func Defaults() Settings {
	return Settings{
		Enabled:     true,
		Provider:    provider.GoogleFree,
		Temperature: DefaultTemperature,
		Style:       StyleNatural,
		MinChars:    DefaultMinChars,
	}
}

// Raw is the loosely typed shape settings arrive in from storage or from a
// caller. Every field is optional; a nil field means "not set".
type Raw struct {
	Enabled          any `json:"enabled,omitempty"`
	Provider         any `json:"provider,omitempty"`
	APIKey           any `json:"apiKey,omitempty"`
	APIURL           any `json:"apiUrl,omitempty"`
	Model            any `json:"model,omitempty"`
	Temperature      any `json:"temperature,omitempty"`
	TranslationStyle any `json:"translationStyle,omitempty"`
	MinChars         any `json:"minChars,omitempty"`
}

// Overlay returns r with every field set in over replacing r's.
func (r Raw) Overlay(over Raw) Raw {
	if over.Enabled != nil {
		r.Enabled = over.Enabled
	}
	if over.Provider != nil {
		r.Provider = over.Provider
	}
	if over.APIKey != nil {
		r.APIKey = over.APIKey
	}
	if over.APIURL != nil {
		r.APIURL = over.APIURL
	}
	if over.Model != nil {
		r.Model = over.Model
	}
	if over.Temperature != nil {
		r.Temperature = over.Temperature
	}
	if over.TranslationStyle != nil {
		r.TranslationStyle = over.TranslationStyle
	}
	if over.MinChars != nil {
		r.MinChars = over.MinChars
	}
	return r
}

// Sanitize validates and clamps every field of raw independently and applies
// provider defaults. It never fails: out-of-domain input falls back to the
// default for that field.
func Sanitize(raw Raw) Settings {
	s := Defaults()

	if b, ok := raw.Enabled.(bool); ok {
		s.Enabled = b
	}

	s.Provider = provider.Normalize(capString(raw.Provider, maxProviderLen))
	desc := provider.Lookup(s.Provider)

	s.APIKey = capString(raw.APIKey, maxAPIKeyLen)
	s.EndpointURL = capString(raw.APIURL, maxEndpointLen)
	s.Model = capString(raw.Model, maxModelLen)
	s.Style = normalizeStyle(capString(raw.TranslationStyle, 32))

	if f, ok := toFloat(raw.Temperature); ok {
		s.Temperature = math.Min(1, math.Max(0, f))
	}
	if f, ok := toFloat(raw.MinChars); ok && f == math.Trunc(f) {
		s.MinChars = int(math.Min(MaxMinChars, math.Max(MinMinChars, f)))
	}

	if desc.Mode == provider.ModeFreeTranslate {
		s.APIKey = ""
		s.EndpointURL = ""
		s.Model = ""
		s.Temperature = DefaultTemperature
		return s
	}

	if s.EndpointURL == "" || !desc.Rule.Allows(s.EndpointURL) {
		s.EndpointURL = desc.DefaultEndpoint
	}
	if s.Model == "" {
		s.Model = desc.DefaultModel
	}
	return s
}

// EffectiveEndpoint returns the endpoint a request for s goes to.
func EffectiveEndpoint(s Settings, d provider.Descriptor) string {
	if d.Mode == provider.ModeFreeTranslate || s.EndpointURL == "" {
		return d.DefaultEndpoint
	}
	return s.EndpointURL
}

// EffectiveModel returns the model a request for s asks for.
func EffectiveModel(s Settings, d provider.Descriptor) string {
	if d.Mode == provider.ModeFreeTranslate {
		return ""
	}
	if s.Model == "" {
		return d.DefaultModel
	}
	return s.Model
}

func normalizeStyle(v string) Style {
	switch strings.ToLower(v) {
	case string(StyleFaithful):
		return StyleFaithful
	case string(StyleNatural), legacyNaturalStyle:
		return StyleNatural
	default:
		return StyleNatural
	}
}

// capString trims v (when it is a string) and cuts it to max runes.
func capString(v any, max int) string {
	str, ok := v.(string)
	if !ok {
		return ""
	}
	str = strings.TrimSpace(str)
	if utf8.RuneCountInString(str) > max {
		str = strings.TrimSpace(string([]rune(str)[:max]))
	}
	return str
}

// toFloat accepts the number shapes JSON decoding and Go callers produce.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
