package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/apex/log"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func noEnv(string) (string, bool) { return "", false }

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Listen != DefaultListen || cfg.TargetLanguage != DefaultTargetLanguage {
		t.Fatalf("Load() = %+v, want defaults", cfg)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{DefaultOrigin}) {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.Timeout() != 15*time.Second || cfg.Level() != log.InfoLevel || !cfg.Metrics {
		t.Fatalf("unexpected defaults: timeout=%v level=%v metrics=%v", cfg.Timeout(), cfg.Level(), cfg.Metrics)
	}
	if cfg.RateLimit != (RateLimit{RPS: DefaultRPS, Burst: DefaultBurst}) {
		t.Fatalf("RateLimit = %+v", cfg.RateLimit)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen: 0.0.0.0:9000
target_language: ja
extension_ids: [abcdefghijklmnopabcdefghijklmnop, " "]
allowed_origins:
  - https://www.YouTube.com/
log_level: debug
request_timeout: 5s
rate_limit:
  rps: 2
  burst: 4
metrics: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" || cfg.TargetLanguage != "ja" {
		t.Fatalf("Load() = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.ExtensionIDs, []string{"abcdefghijklmnopabcdefghijklmnop"}) {
		t.Fatalf("ExtensionIDs = %v", cfg.ExtensionIDs)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"https://www.youtube.com"}) {
		t.Fatalf("AllowedOrigins = %v (file list must replace the default)", cfg.AllowedOrigins)
	}
	if cfg.Level() != log.DebugLevel || cfg.Timeout() != 5*time.Second || cfg.Metrics {
		t.Fatalf("level=%v timeout=%v metrics=%v", cfg.Level(), cfg.Timeout(), cfg.Metrics)
	}
	if cfg.RateLimit != (RateLimit{RPS: 2, Burst: 4}) {
		t.Fatalf("RateLimit = %+v", cfg.RateLimit)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":      "listen: [",
		"bad listen":    "listen: nowhere",
		"bad level":     "log_level: loud",
		"bad timeout":   "request_timeout: soon",
		"zero timeout":  "request_timeout: 0s",
		"bad language":  "target_language: '!!'",
		"origin path":   "allowed_origins: [https://www.twitch.tv/some_channel]",
		"origin scheme": "allowed_origins: [ftp://example.com]",
		"bad id":        "extension_ids: ['abc def']",
		"no senders":    "allowed_origins: []",
		"negative rps":  "rate_limit: {rps: -1, burst: 1}",
		"bad proxy":     "proxy: not a url",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Fatalf("Load(%q) should fail", content)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"LIVETRANS_LISTEN":           "127.0.0.1:1234",
		"LIVETRANS_EXTENSION_IDS":    "one, two ,",
		"LIVETRANS_ALLOWED_ORIGINS":  "",
		"LIVETRANS_LOG_LEVEL":        "WARN",
		"LIVETRANS_RATE_LIMIT_RPS":   "0.5",
		"LIVETRANS_RATE_LIMIT_BURST": "3",
		"LIVETRANS_METRICS":          "false",
	}
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("ApplyEnv() error: %v", err)
	}
	if cfg.Listen != "127.0.0.1:1234" || cfg.LogLevel != "warn" || cfg.Metrics {
		t.Fatalf("ApplyEnv() = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.ExtensionIDs, []string{"one", "two"}) {
		t.Fatalf("ExtensionIDs = %v", cfg.ExtensionIDs)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("an empty variable should clear AllowedOrigins, got %v", cfg.AllowedOrigins)
	}
	if cfg.RateLimit != (RateLimit{RPS: 0.5, Burst: 3}) {
		t.Fatalf("RateLimit = %+v", cfg.RateLimit)
	}

	bad := Default()
	if err := bad.ApplyEnv(func(k string) (string, bool) {
		if k == "LIVETRANS_RATE_LIMIT_BURST" {
			return "many", true
		}
		return "", false
	}); err == nil || !strings.Contains(err.Error(), "RATE_LIMIT_BURST") {
		t.Fatalf("ApplyEnv() error = %v, want burst parse error", err)
	}

	untouched := Default()
	if err := untouched.ApplyEnv(noEnv); err != nil || !reflect.DeepEqual(untouched, Default()) {
		t.Fatalf("ApplyEnv(no env) changed config: %+v, %v", untouched, err)
	}
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := writeConfig(t, "listen: 127.0.0.1:9000\n")
	t.Setenv("LIVETRANS_LISTEN", "127.0.0.1:9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Listen != "127.0.0.1:9100" {
		t.Fatalf("Listen = %q, want env value", cfg.Listen)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("LIVETRANS_TARGET_LANGUAGE=ko\nLIVETRANS_LOG_LEVEL=error\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	// Already-set variables win over the file.
	t.Setenv("LIVETRANS_LOG_LEVEL", "debug")
	t.Setenv("LIVETRANS_TARGET_LANGUAGE", "")
	os.Unsetenv("LIVETRANS_TARGET_LANGUAGE")

	got, err := LoadEnvFile(envPath)
	if err != nil || got != envPath {
		t.Fatalf("LoadEnvFile() = %q, %v", got, err)
	}
	if v := os.Getenv("LIVETRANS_TARGET_LANGUAGE"); v != "ko" {
		t.Fatalf("LIVETRANS_TARGET_LANGUAGE = %q, want ko", v)
	}
	if v := os.Getenv("LIVETRANS_LOG_LEVEL"); v != "debug" {
		t.Fatalf("LIVETRANS_LOG_LEVEL = %q, want existing value kept", v)
	}

	if _, err := LoadEnvFile(filepath.Join(dir, "missing.env")); err == nil {
		t.Fatal("LoadEnvFile() should fail for an explicit missing file")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	want := Default()
	want.ExtensionIDs = []string{"abcdefghijklmnopabcdefghijklmnop"}
	if err := want.Write(path); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Load(Write(cfg)) = %+v, want %+v", got, want)
	}
}
