// Package settings holds the user's extension settings and the key-value
// store they persist in.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/text/language"
)

// Store keys.
const (
	KeyExtensionActive = "extension_active"
	KeyAutoPause       = "auto_pause"
	KeyTargetLanguage  = "target_language"
)

// DefaultTargetLanguage is used when nothing valid is stored.
const DefaultTargetLanguage = "es"

// Keys lists every recognised key.
func Keys() []string {
	return []string{KeyExtensionActive, KeyAutoPause, KeyTargetLanguage}
}

// Settings is a snapshot of the persisted values.
type Settings struct {
	ExtensionActive  bool   `json:"extension_active"`
	AutoPauseEnabled bool   `json:"auto_pause"`
	TargetLanguage   string `json:"target_language"`
}

// Defaults returns the settings for a fresh install.
func Defaults() Settings {
	return Settings{
		ExtensionActive:  true,
		AutoPauseEnabled: true,
		TargetLanguage:   DefaultTargetLanguage,
	}
}

// Values encodes s for a Store.
func (s Settings) Values() map[string]string {
	return map[string]string{
		KeyExtensionActive: strconv.FormatBool(s.ExtensionActive),
		KeyAutoPause:       strconv.FormatBool(s.AutoPauseEnabled),
		KeyTargetLanguage:  s.TargetLanguage,
	}
}

// Store is an asynchronous key-value store. Missing keys are absent from
// the returned map.
type Store interface {
	Get(ctx context.Context, keys []string) (map[string]string, error)
	Set(ctx context.Context, values map[string]string) error
}

// Load reads every key from store, filling defaults for missing or
// malformed values.
func Load(ctx context.Context, store Store) (Settings, error) {
	values, err := store.Get(ctx, Keys())
	if err != nil {
		return Defaults(), fmt.Errorf("load settings: %w", err)
	}
	return Decode(values), nil
}

// Decode builds Settings from raw store values.
func Decode(values map[string]string) Settings {
	s := Defaults()
	if v, err := strconv.ParseBool(values[KeyExtensionActive]); err == nil {
		s.ExtensionActive = v
	}
	if v, err := strconv.ParseBool(values[KeyAutoPause]); err == nil {
		s.AutoPauseEnabled = v
	}
	if tag, err := NormalizeLanguage(values[KeyTargetLanguage]); err == nil {
		s.TargetLanguage = tag
	}
	return s
}

// NormalizeLanguage validates a BCP 47 tag and returns its canonical form.
func NormalizeLanguage(tag string) (string, error) {
	if tag == "" {
		return "", fmt.Errorf("empty language tag")
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("invalid language tag %q: %w", tag, err)
	}
	return t.String(), nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates a store seeded with initial.
func NewMemoryStore(initial map[string]string) *MemoryStore {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

func (m *MemoryStore) Get(ctx context.Context, keys []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemoryStore) Set(ctx context.Context, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range values {
		m.values[k] = v
	}
	return nil
}
