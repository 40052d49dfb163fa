package memory

import (
	"sync"

	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// KeyedConfig is a config store that can enumerate its keys.
type KeyedConfig interface {
	driven.ConfigStore
	Keys() []string
}

// ConfigStore keeps settings in memory only. Ephemeral runs use it so that
// settings changes never reach the config file.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
	origin string
}

// NewConfigStore creates an empty in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{values: make(map[string]any)}
}

// CopyConfigStore seeds an in-memory store with every value in src.
// Later writes to either store are not seen by the other.
func CopyConfigStore(src KeyedConfig) *ConfigStore {
	s := NewConfigStore()
	s.origin = src.Path()
	for _, k := range src.Keys() {
		if v, ok := src.Get(k); ok {
			s.values[k] = v
		}
	}
	return s
}

// Get returns the raw value stored at key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *ConfigStore) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// GetInt truncates float values, which TOML decoding may produce.
func (s *ConfigStore) GetInt(key string) int {
	v, _ := s.Get(key)
	n, _ := number(v)
	return int(n)
}

func (s *ConfigStore) GetFloat(key string) float64 {
	v, _ := s.Get(key)
	n, _ := number(v)
	return n
}

func (s *ConfigStore) GetBool(key string) bool {
	v, _ := s.Get(key)
	b, _ := v.(bool)
	return b
}

// GetStringSlice accepts []string and the []any form decoders return,
// skipping non-string items.
func (s *ConfigStore) GetStringSlice(key string) []string {
	v, _ := s.Get(key)
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, it := range items {
			if str, ok := it.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Save is a no-op.
func (s *ConfigStore) Save() error { return nil }

// Load is a no-op.
func (s *ConfigStore) Load() error { return nil }

// Path names the seeding file, or ":memory:" for an empty store.
func (s *ConfigStore) Path() string {
	if s.origin == "" {
		return ":memory:"
	}
	return s.origin + " (in memory)"
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
