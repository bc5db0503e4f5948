// Package provider holds the static table of translation providers the
// broker can talk to: their wire protocol, whether they need an API key,
// their default endpoint and model, and the endpoint allow-list that keeps
// a configured API key from being sent anywhere but the vendor's own host.
//
// The table is built once and never mutated; every lookup falls back to the
// free web-translate provider for ids it does not know.
package provider

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	GoogleFree = "google_free"
	OpenAI     = "openai"
	OpenRouter = "openrouter"
	Groq       = "groq"
	DeepSeek   = "deepseek"
	Gemini     = "gemini"
	Anthropic  = "anthropic"
	Ollama     = "ollama"
)

// FreeTranslateEndpoint is the public web-translate endpoint used by the
// free provider and as the fallback for keyed providers without a key.
const FreeTranslateEndpoint = "https://translate.googleapis.com/translate_a/single"

// ---------------------------------------------------------------------------
// Protocol modes
// ---------------------------------------------------------------------------

// Mode is the wire-format family a provider speaks.
type Mode int

const (
	ModeFreeTranslate  Mode = iota // GET web-translate endpoint, no key
	ModeChatCompletion             // OpenAI-style chat/completions
	ModeMultiTurnJSON              // Gemini generateContent
	ModeMessageAPI                 // Anthropic messages
)

func (m Mode) String() string {
	switch m {
	case ModeFreeTranslate:
		return "free_translate"
	case ModeChatCompletion:
		return "chat_completion"
	case ModeMultiTurnJSON:
		return "multi_turn_json"
	case ModeMessageAPI:
		return "message_api"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ---------------------------------------------------------------------------
// Endpoint allow-list
// ---------------------------------------------------------------------------

// ErrEndpointPolicy is returned when an endpoint URL fails a provider's
// allow-list. No request is ever made to such an endpoint.
var ErrEndpointPolicy = errors.New("endpoint not allowed")

// EndpointRule restricts the scheme and exact host of a provider endpoint.
type EndpointRule struct {
	Schemes []string
	Hosts   []string
}

// Validate parses raw and checks it against the rule. The host is compared
// without its port and case-insensitively; URLs carrying user-info are
// always rejected.
func (r *EndpointRule) Validate(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEndpointPolicy, err)
	}
	if r == nil {
		return u, nil
	}
	if u.User != nil {
		return nil, fmt.Errorf("%w: credentials in URL", ErrEndpointPolicy)
	}
	scheme := strings.ToLower(u.Scheme)
	if !contains(r.Schemes, scheme) {
		return nil, fmt.Errorf("%w: scheme %q", ErrEndpointPolicy, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || !contains(r.Hosts, host) {
		return nil, fmt.Errorf("%w: host %q", ErrEndpointPolicy, u.Hostname())
	}
	return u, nil
}

// Allows reports whether raw passes the rule.
func (r *EndpointRule) Allows(raw string) bool {
	_, err := r.Validate(raw)
	return err == nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Descriptors
// ---------------------------------------------------------------------------

// Descriptor is the immutable description of one provider.
type Descriptor struct {
	// ID is the provider identifier stored in settings.
	ID string
	// Label is the display name.
	Label string
	// Mode selects the protocol adapter.
	Mode Mode
	// RequiresAPIKey is true for vendors that reject anonymous calls.
	RequiresAPIKey bool
	// DefaultEndpoint is used when settings carry no (valid) endpoint.
	DefaultEndpoint string
	// DefaultModel is used when settings carry no model.
	DefaultModel string
	// Rule is the endpoint allow-list.
	Rule *EndpointRule
}

func httpsOnly(host string) *EndpointRule {
	return &EndpointRule{Schemes: []string{"https"}, Hosts: []string{host}}
}

// order keeps All() stable for display.
var order = []string{GoogleFree, OpenAI, OpenRouter, Groq, DeepSeek, Gemini, Anthropic, Ollama}

var registry = map[string]Descriptor{
	GoogleFree: {
		ID:              GoogleFree,
		Label:           "Free web translate",
		Mode:            ModeFreeTranslate,
		DefaultEndpoint: FreeTranslateEndpoint,
		Rule:            httpsOnly("translate.googleapis.com"),
	},
	OpenAI: {
		ID:              OpenAI,
		Label:           "OpenAI",
		Mode:            ModeChatCompletion,
		RequiresAPIKey:  true,
		DefaultEndpoint: "https://api.openai.com/v1/chat/completions",
		DefaultModel:    "gpt-4.1-mini",
		Rule:            httpsOnly("api.openai.com"),
	},
	OpenRouter: {
		ID:              OpenRouter,
		Label:           "OpenRouter",
		Mode:            ModeChatCompletion,
		RequiresAPIKey:  true,
		DefaultEndpoint: "https://openrouter.ai/api/v1/chat/completions",
		DefaultModel:    "openai/gpt-4o-mini",
		Rule:            httpsOnly("openrouter.ai"),
	},
	Groq: {
		ID:              Groq,
		Label:           "Groq",
		Mode:            ModeChatCompletion,
		RequiresAPIKey:  true,
		DefaultEndpoint: "https://api.groq.com/openai/v1/chat/completions",
		DefaultModel:    "llama-3.1-8b-instant",
		Rule:            httpsOnly("api.groq.com"),
	},
	DeepSeek: {
		ID:              DeepSeek,
		Label:           "DeepSeek",
		Mode:            ModeChatCompletion,
		RequiresAPIKey:  true,
		DefaultEndpoint: "https://api.deepseek.com/chat/completions",
		DefaultModel:    "deepseek-chat",
		Rule:            httpsOnly("api.deepseek.com"),
	},
	Gemini: {
		ID:              Gemini,
		Label:           "Google Gemini",
		Mode:            ModeMultiTurnJSON,
		RequiresAPIKey:  true,
		DefaultEndpoint: "https://generativelanguage.googleapis.com/v1beta",
		DefaultModel:    "gemini-2.0-flash",
		Rule:            httpsOnly("generativelanguage.googleapis.com"),
	},
	Anthropic: {
		ID:              Anthropic,
		Label:           "Anthropic Claude",
		Mode:            ModeMessageAPI,
		RequiresAPIKey:  true,
		DefaultEndpoint: "https://api.anthropic.com/v1/messages",
		DefaultModel:    "claude-3-5-haiku-latest",
		Rule:            httpsOnly("api.anthropic.com"),
	},
	Ollama: {
		ID:              Ollama,
		Label:           "Ollama (local)",
		Mode:            ModeChatCompletion,
		DefaultEndpoint: "http://127.0.0.1:11434/v1/chat/completions",
		DefaultModel:    "qwen2.5:7b",
		Rule: &EndpointRule{
			Schemes: []string{"http", "https"},
			Hosts:   []string{"127.0.0.1", "localhost"},
		},
	},
}

// Normalize returns the canonical form of id, or GoogleFree when the id is
// not in the table.
func Normalize(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if _, ok := registry[id]; ok {
		return id
	}
	return GoogleFree
}

// Lookup returns the descriptor for id, falling back to the free provider.
func Lookup(id string) Descriptor {
	return registry[Normalize(id)]
}

// Free returns the free web-translate descriptor.
func Free() Descriptor {
	return registry[GoogleFree]
}

// Known reports whether id names a provider in the table.
func Known(id string) bool {
	_, ok := registry[strings.ToLower(strings.TrimSpace(id))]
	return ok
}

// All returns every descriptor in display order.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(order))
	for _, id := range order {
		out = append(out, registry[id])
	}
	return out
}
