package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LIVETRANS_"

// LoadEnvFile loads a .env file into the process environment without
// overriding variables that are already set. With an empty path it looks
// for .env in the working directory and its parents. It returns the file it
// loaded, or "" when none was found.
func LoadEnvFile(path string) (string, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return "", fmt.Errorf("loading %s: %w", path, err)
		}
		return path, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", nil
	}
	for dir := wd; ; dir = filepath.Dir(dir) {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return "", fmt.Errorf("loading %s: %w", envPath, err)
			}
			return envPath, nil
		}
		if parent := filepath.Dir(dir); parent == dir {
			return "", nil
		}
	}
}

// ApplyEnv overrides fields from LIVETRANS_* variables looked up with
// lookup (os.LookupEnv in production). List values are comma separated.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok
	}

	if v, ok := get("LISTEN"); ok && v != "" {
		c.Listen = v
	}
	if v, ok := get("TARGET_LANGUAGE"); ok && v != "" {
		c.TargetLanguage = v
	}
	if v, ok := get("EXTENSION_IDS"); ok {
		c.ExtensionIDs = splitList(v)
	}
	if v, ok := get("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := get("DATA_DIR"); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := get("LOG_LEVEL"); ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := get("REQUEST_TIMEOUT"); ok && v != "" {
		c.RequestTimeout = v
	}
	if v, ok := get("PROXY"); ok {
		c.Proxy = v
	}

	var errs []error
	if v, ok := get("RATE_LIMIT_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRATE_LIMIT_RPS: %w", EnvPrefix, err))
		} else {
			c.RateLimit.RPS = f
		}
	}
	if v, ok := get("RATE_LIMIT_BURST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRATE_LIMIT_BURST: %w", EnvPrefix, err))
		} else {
			c.RateLimit.Burst = n
		}
	}
	if v, ok := get("METRICS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMETRICS: %w", EnvPrefix, err))
		} else {
			c.Metrics = b
		}
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
