// Package config loads the livetrans.yaml service configuration.
//
// Values are resolved in this order, later wins: built-in defaults, the
// YAML file, LIVETRANS_* environment variables (optionally seeded from a
// .env file), then command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/livetrans/langmeta"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Config is the top-level livetrans.yaml structure.
type Config struct {
	// Listen is the host:port the HTTP server binds to.
	Listen string `yaml:"listen"`
	// TargetLanguage is the language chat lines are translated into.
	TargetLanguage string `yaml:"target_language"`
	// ExtensionIDs are browser extension ids allowed to send messages.
	ExtensionIDs []string `yaml:"extension_ids,omitempty"`
	// AllowedOrigins are extra web origins (chat sites) allowed to send messages.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
	// DataDir holds the settings and prompts files (default: XDG data dir).
	DataDir string `yaml:"data_dir,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// RequestTimeout bounds every provider call, e.g. "15s".
	RequestTimeout string `yaml:"request_timeout"`
	// Proxy is an optional HTTP proxy URL for provider calls.
	Proxy string `yaml:"proxy,omitempty"`

	RateLimit RateLimit `yaml:"rate_limit"`

	// Metrics exposes /metrics when true.
	Metrics bool `yaml:"metrics"`
}

// RateLimit is the per-origin token bucket.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

const (
	DefaultListen         = "127.0.0.1:8787"
	DefaultTargetLanguage = "zh-TW"
	DefaultOrigin         = "https://www.twitch.tv"
	DefaultLogLevel       = "info"
	DefaultTimeout        = "15s"
	DefaultRPS            = 30
	DefaultBurst          = 60
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Listen:         DefaultListen,
		TargetLanguage: DefaultTargetLanguage,
		AllowedOrigins: []string{DefaultOrigin},
		LogLevel:       DefaultLogLevel,
		RequestTimeout: DefaultTimeout,
		RateLimit:      RateLimit{RPS: DefaultRPS, Burst: DefaultBurst},
		Metrics:        true,
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileName is the default config file name.
const FileName = "livetrans.yaml"

// Load reads path on top of the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return nil, err
	}
	return cfg, nil
}

// Write saves cfg as YAML, creating parent directories.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate normalizes list entries and rejects unusable values.
func (c *Config) Validate() error {
	var errs []error

	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		errs = append(errs, fmt.Errorf("listen %q: %w", c.Listen, err))
	}
	if _, ok := langmeta.Parse(c.TargetLanguage); !ok {
		errs = append(errs, fmt.Errorf("target_language %q is not a language tag", c.TargetLanguage))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level %q: %w", c.LogLevel, err))
	}
	if d, err := time.ParseDuration(c.RequestTimeout); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout %q must be a positive duration", c.RequestTimeout))
	}
	if c.RateLimit.RPS < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.rps must not be negative"))
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, fmt.Errorf("rate_limit.burst must be at least 1"))
	}
	if c.Proxy != "" {
		if u, err := url.Parse(c.Proxy); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("proxy %q is not a URL", c.Proxy))
		}
	}

	c.ExtensionIDs = cleanList(c.ExtensionIDs)
	for _, id := range c.ExtensionIDs {
		if !isExtensionID(id) {
			errs = append(errs, fmt.Errorf("extension id %q is invalid", id))
		}
	}

	c.AllowedOrigins = cleanList(c.AllowedOrigins)
	for i, o := range c.AllowedOrigins {
		norm, err := normalizeOrigin(o)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.AllowedOrigins[i] = norm
	}

	if len(c.ExtensionIDs) == 0 && len(c.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("no extension_ids or allowed_origins configured, every message would be rejected"))
	}
	return errors.Join(errs...)
}

// Timeout returns RequestTimeout parsed. Call after Validate.
func (c *Config) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// Level returns LogLevel parsed. Call after Validate.
func (c *Config) Level() log.Level {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return l
}

func cleanList(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// isExtensionID accepts the lowercase a-p ids Chromium generates as well as
// the UUID or email-style ids Firefox uses.
func isExtensionID(id string) bool {
	if len(id) > 128 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == '@', r == '{', r == '}':
		default:
			return false
		}
	}
	return true
}

// normalizeOrigin reduces o to scheme://host[:port]. Anything beyond a
// bare origin is rejected.
func normalizeOrigin(o string) (string, error) {
	u, err := url.Parse(strings.TrimRight(o, "/"))
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return "", fmt.Errorf("allowed origin %q must look like https://host", o)
	}
	if u.User != nil || u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("allowed origin %q must be a bare origin without path or query", o)
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), nil
}
