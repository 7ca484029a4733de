// Package cache keeps finished translations in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	// TranslationTTL defines how long translations remain cached.
	TranslationTTL = 24 * time.Hour

	// TranslationKeyPrefix identifies translation entries in Redis.
	TranslationKeyPrefix = "translation:"
)

// Entry is a cached translation.
type Entry struct {
	Text             string   `json:"text"`
	DetectedLanguage string   `json:"detected_language"`
	Pronunciation    string   `json:"pronunciation,omitempty"`
	Definitions      []string `json:"definitions,omitempty"`
	Engine           string   `json:"engine"`
}

// TranslationCache stores translations keyed by engine, languages and text.
type TranslationCache struct {
	client rueidis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTranslationCache wraps client. A zero ttl uses TranslationTTL.
func NewTranslationCache(client rueidis.Client, ttl time.Duration, logger *zap.Logger) *TranslationCache {
	if ttl <= 0 {
		ttl = TranslationTTL
	}
	return &TranslationCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("translation_cache"),
	}
}

// Key derives the Redis key for a translation.
func Key(engine, source, target, text string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{engine, source, target, text}, "\x00")))
	return TranslationKeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached entry and true, or false when nothing is cached.
func (c *TranslationCache) Get(ctx context.Context, key string) (*Entry, bool, error) {
	raw, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, false, nil
		}
		c.logger.Warn("Failed to get translation from Redis", zap.String("key", key), zap.Error(err))
		return nil, false, fmt.Errorf("get translation %s: %w", key, err)
	}

	var entry Entry
	if err := sonic.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("Invalid translation in Redis", zap.String("key", key), zap.Error(err))
		return nil, false, fmt.Errorf("decode translation %s: %w", key, err)
	}
	return &entry, true, nil
}

// Set stores entry under key for the cache's TTL.
func (c *TranslationCache) Set(ctx context.Context, key string, entry *Entry) error {
	raw, err := sonic.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode translation: %w", err)
	}

	err = c.client.Do(ctx, c.client.B().Set().Key(key).Value(rueidis.BinaryString(raw)).Ex(c.ttl).Build()).Error()
	if err != nil {
		c.logger.Warn("Failed to set translation in Redis", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("set translation %s: %w", key, err)
	}

	c.logger.Debug("Stored translation in cache", zap.String("key", key), zap.String("engine", entry.Engine))
	return nil
}

// Connect opens a rueidis client for addr.
func Connect(addr, password string, db int) (rueidis.Client, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{addr},
		Password:     password,
		SelectDB:     db,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return client, nil
}
