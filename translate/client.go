// Package translate sends one chat line to a translation provider and turns
// the answer into a common result shape. It holds one adapter per provider
// protocol mode, the system and user prompts for generative providers, and
// the parser that digs a translation out of free-form model output.
package translate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/minios-linux/livetrans/i18n"
	"github.com/minios-linux/livetrans/metrics"
	"github.com/minios-linux/livetrans/provider"
	"github.com/minios-linux/livetrans/settings"
)

const (
	// DefaultTimeout bounds a single provider call.
	DefaultTimeout = 15 * time.Second
	// DefaultTargetLanguage is the language chat lines are translated into.
	DefaultTargetLanguage = "zh-TW"

	maxResponseBytes = 1 << 20
	maxRedirects     = 3
	userAgent        = "livetrans/1.0"
)

// Request is one translation call.
type Request struct {
	Text     string
	Context  []string
	Settings settings.Settings
	Provider provider.Descriptor
}

// Output is the common result of every protocol mode.
type Output struct {
	Translated       string
	DetectedLanguage string
	ShouldTranslate  bool
}

// Options configures a Client. Zero fields take defaults.
type Options struct {
	Timeout        time.Duration
	TargetLanguage string
	Prompts        *Prompts
	// Proxy overrides HTTP(S)_PROXY from the environment.
	Proxy string
	// Transport replaces the network transport, mainly for tests.
	Transport http.RoundTripper
	Logger    log.Interface
}

// Client performs provider calls. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	timeout time.Duration
	target  string
	prompts Prompts
	logger  log.Interface
}

// NewClient builds a client from opts.
func NewClient(opts Options) *Client {
	c := &Client{
		timeout: opts.Timeout,
		target:  strings.TrimSpace(opts.TargetLanguage),
		logger:  opts.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.target == "" {
		c.target = DefaultTargetLanguage
	}
	if c.logger == nil {
		c.logger = log.Log
	}
	if opts.Prompts != nil {
		c.prompts = *opts.Prompts
	} else {
		c.prompts = DefaultPrompts()
	}
	c.http = makeHTTPClient(opts.Proxy, opts.Transport)
	return c
}

// TargetLanguage returns the language tag translations are produced in.
func (c *Client) TargetLanguage() string { return c.target }

// Effective returns the descriptor a request with s is actually served by:
// a keyed provider without a key falls back to the free provider.
func Effective(s settings.Settings) (d provider.Descriptor, fellBack bool) {
	d = provider.Lookup(s.Provider)
	if d.RequiresAPIKey && strings.TrimSpace(s.APIKey) == "" {
		return provider.Free(), true
	}
	return d, false
}

// Call translates req.Text with req.Provider. A keyed provider without a
// key is served by the free provider.
func (c *Client) Call(ctx context.Context, req Request) (Output, error) {
	d := req.Provider
	if d.RequiresAPIKey && strings.TrimSpace(req.Settings.APIKey) == "" {
		d = provider.Free()
	}

	start := time.Now()
	out, err := c.dispatch(ctx, d, req)
	outcome := "ok"
	if err != nil {
		outcome = errorOutcome(err)
	}
	metrics.ProviderCallsTotal.WithLabelValues(d.ID, outcome).Inc()
	metrics.ProviderDurationSeconds.WithLabelValues(d.ID).Observe(time.Since(start).Seconds())
	return out, err
}

func (c *Client) dispatch(ctx context.Context, d provider.Descriptor, req Request) (Output, error) {
	switch d.Mode {
	case provider.ModeFreeTranslate:
		return c.callFreeTranslate(ctx, d, req.Text)
	case provider.ModeChatCompletion:
		return c.callChatCompletion(ctx, d, req)
	case provider.ModeMultiTurnJSON:
		return c.callMultiTurnJSON(ctx, d, req)
	case provider.ModeMessageAPI:
		return c.callMessageAPI(ctx, d, req)
	default:
		return Output{}, newError(ErrValidation, d.Label,
			fmt.Sprintf("%s: unsupported protocol mode %s", d.Label, d.Mode), nil)
	}
}

// ---------------------------------------------------------------------------
// HTTP client
// ---------------------------------------------------------------------------

type ruleKey struct{}

func makeHTTPClient(proxyURL string, rt http.RoundTripper) *http.Client {
	if rt == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()

		// Support both the proxy option and HTTP_PROXY/HTTPS_PROXY env vars
		if proxyURL != "" {
			parsed, err := url.Parse(proxyURL)
			if err == nil {
				transport.Proxy = http.ProxyURL(parsed)
			}
		} else {
			transport.Proxy = http.ProxyFromEnvironment
		}
		rt = transport
	}

	return &http.Client{
		Transport: rt,
		// No Jar: provider calls never carry cookies.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			req.Header.Del("Referer")
			rule, _ := req.Context().Value(ruleKey{}).(*provider.EndpointRule)
			if _, err := rule.Validate(req.URL.String()); err != nil {
				return err
			}
			return nil
		},
	}
}

// exchange validates endpoint against d's allow-list, sends the request and
// returns the status and (size-limited) body. The endpoint is checked before
// anything touches the network.
func (c *Client) exchange(ctx context.Context, d provider.Descriptor, method, endpoint string, headers map[string]string, body []byte) (int, []byte, error) {
	u, err := d.Rule.Validate(endpoint)
	if err != nil {
		return 0, nil, newError(provider.ErrEndpointPolicy, d.Label,
			i18n.T("%s endpoint is not allowed", d.Label), err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, ruleKey{}, d.Rule)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("User-Agent", userAgent)

	c.logger.WithFields(log.Fields{
		"provider": d.ID,
		"mode":     d.Mode.String(),
		"method":   method,
		"endpoint": redact(u),
	}).Debug("provider request")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, provider.ErrEndpointPolicy) {
			return 0, nil, newError(provider.ErrEndpointPolicy, d.Label,
				i18n.T("%s endpoint is not allowed", d.Label), err)
		}
		return 0, nil, transportError(d.Label, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, transportError(d.Label, err)
	}
	return resp.StatusCode, data, nil
}

// redact drops the query (which may carry a key) from u for logging.
func redact(u *url.URL) string {
	return u.Scheme + "://" + u.Host + u.Path
}

func errorOutcome(err error) string {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("http_%d", se.Status)
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, provider.ErrEndpointPolicy):
		return "endpoint_policy"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrEmptyResponse):
		return "empty"
	default:
		return "error"
	}
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
