// Package cache keeps finished translations keyed by everything that
// determines their output, so identical chat lines are translated once.
package cache

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/minios-linux/livetrans/provider"
	"github.com/minios-linux/livetrans/settings"
)

// DefaultSize is the number of entries kept before the least recently used
// one is evicted.
const DefaultSize = 600

const keySep = "::"

// Entry is a cached translation outcome. Entries are replaced, never merged.
type Entry struct {
	Skip             bool   `json:"skip"`
	Translated       string `json:"translated,omitempty"`
	DetectedLanguage string `json:"detectedLanguage,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// Cache is a bounded, strictly least-recently-used map. Both Get hits and
// Put count as a use. It is safe for concurrent use.
type Cache struct {
	lru *lru.Cache[string, Entry]
}

// New returns a cache holding at most size entries. A size below one means
// DefaultSize.
func New(size int) *Cache {
	if size < 1 {
		size = DefaultSize
	}
	c, err := lru.New[string, Entry](size)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &Cache{lru: c}
}

// Get returns the entry for key and marks it most recently used.
func (c *Cache) Get(key string) (Entry, bool) {
	return c.lru.Get(key)
}

// Put stores e under key, evicting the least recently used entry when the
// cache is full. It reports whether an eviction happened.
func (c *Cache) Put(key string, e Entry) bool {
	return c.lru.Add(key, e)
}

// Contains reports whether key is present without touching its recency.
func (c *Cache) Contains(key string) bool {
	return c.lru.Contains(key)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Key builds the cache key for text translated with s through d. The free
// provider ignores endpoint, model and style, so its key omits them. The API
// key never enters the key.
func Key(d provider.Descriptor, s settings.Settings, text string) string {
	if d.Mode == provider.ModeFreeTranslate {
		return strings.Join([]string{d.ID, text}, keySep)
	}
	return strings.Join([]string{
		d.ID,
		settings.EffectiveEndpoint(s, d),
		settings.EffectiveModel(s, d),
		string(s.Style),
		text,
	}, keySep)
}
