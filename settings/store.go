// Package settings provides the broker's configuration record, its
// sanitizer, and the on-disk store the options UI writes to.
//
// Settings are stored in the XDG data directory:
//
//	$XDG_DATA_HOME/livetrans/  (default: ~/.local/share/livetrans/)
//
// Files stored:
//   - sync.json     public settings (enabled, provider, apiUrl, model,
//     temperature, translationStyle, minChars)
//   - local.json    the API key, never synced (mode 0600)
//   - prompts.json  optional system prompt overrides
//
// Older releases kept apiKey in sync.json. Migrate moves it into
// local.json once and deletes it from sync.json.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dataDirName   = "livetrans"
	syncFileName  = "sync.json"
	localFileName = "local.json"
	promptsName   = "prompts.json"
)

// ---------------------------------------------------------------------------
// Paths
// ---------------------------------------------------------------------------

// DefaultDir returns the XDG data directory for livetrans.
// Respects $XDG_DATA_HOME (falls back to ~/.local/share).
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

// Store reads and writes the two settings partitions under Dir.
type Store struct {
	Dir string
}

// NewStore returns a store rooted at dir. An empty dir means DefaultDir().
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return &Store{Dir: dir}, nil
}

// SyncPath is the public partition file.
func (s *Store) SyncPath() string { return filepath.Join(s.Dir, syncFileName) }

// LocalPath is the secret partition file.
func (s *Store) LocalPath() string { return filepath.Join(s.Dir, localFileName) }

// PromptsPath is the optional prompts override file.
func (s *Store) PromptsPath() string { return filepath.Join(s.Dir, promptsName) }

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

type localFile struct {
	APIKey string `json:"apiKey"`
}

// readRaw decodes a partition file. A missing file yields an empty Raw.
func readRaw(path string) (Raw, error) {
	var raw Raw
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return raw, nil
		}
		return raw, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return raw, fmt.Errorf("parsing %s: %w", path, err)
	}
	return raw, nil
}

// LoadRaw merges the public partition and then the secret partition.
// The secret partition only ever contributes apiKey.
func (s *Store) LoadRaw() (Raw, error) {
	pub, err := readRaw(s.SyncPath())
	if err != nil {
		return Raw{}, err
	}
	pub.APIKey = nil

	local, err := readRaw(s.LocalPath())
	if err != nil {
		return Raw{}, err
	}
	return pub.Overlay(Raw{APIKey: local.APIKey}), nil
}

// Load returns the sanitized merge of both partitions.
func (s *Store) Load() (Settings, error) {
	raw, err := s.LoadRaw()
	if err != nil {
		return Defaults(), err
	}
	return Sanitize(raw), nil
}

func writeJSON(path string, v any, perm os.FileMode) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, perm)
}

// SavePublic writes the public fields of st to the sync partition.
func (s *Store) SavePublic(st Settings) error {
	return writeJSON(s.SyncPath(), st, 0644)
}

// SaveAPIKey stores key in the secret partition.
func (s *Store) SaveAPIKey(key string) error {
	return writeJSON(s.LocalPath(), localFile{APIKey: key}, 0600)
}

// ClearAPIKey empties the secret partition.
func (s *Store) ClearAPIKey() error {
	return s.SaveAPIKey("")
}

// ---------------------------------------------------------------------------
// Legacy migration
// ---------------------------------------------------------------------------

// Migrate moves an apiKey left in the public partition by older releases
// into the secret partition. A key already present in the secret partition
// wins. Returns true when sync.json was rewritten.
func (s *Store) Migrate() (bool, error) {
	data, err := os.ReadFile(s.SyncPath())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", s.SyncPath(), err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return false, fmt.Errorf("parsing %s: %w", s.SyncPath(), err)
	}
	legacy, found := fields["apiKey"]
	if !found {
		return false, nil
	}

	local, err := readRaw(s.LocalPath())
	if err != nil {
		return false, err
	}
	if current := capString(local.APIKey, maxAPIKeyLen); current == "" {
		if key := capString(legacy, maxAPIKeyLen); key != "" {
			if err := s.SaveAPIKey(key); err != nil {
				return false, err
			}
		}
	}

	delete(fields, "apiKey")
	if err := writeJSON(s.SyncPath(), fields, 0644); err != nil {
		return false, err
	}
	return true, nil
}

// Bootstrap runs the legacy migration, loads both partitions and writes the
// sanitized public fields back so the options UI sees normalized values.
func (s *Store) Bootstrap() (Settings, error) {
	if _, err := s.Migrate(); err != nil {
		return Defaults(), err
	}
	st, err := s.Load()
	if err != nil {
		return st, err
	}
	if err := s.SavePublic(st); err != nil {
		return st, err
	}
	return st, nil
}

// ---------------------------------------------------------------------------
// Display helpers
// ---------------------------------------------------------------------------

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
