// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"time"
)

// Config selects and sizes the cache backend.
type Config struct {
	// RedisURL enables the Redis backend when set.
	RedisURL   string
	Prefix     string
	DefaultTTL time.Duration
	MaxSize    int
}

// Backend names reported by New.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// New returns a Redis cache when RedisURL is set and reachable. Otherwise it
// returns an in-memory cache; a Redis failure is logged, not returned.
func New(cfg Config, logger *slog.Logger) (Cache, string) {
	if cfg.RedisURL != "" {
		rc, err := NewRedisCache(RedisCacheOptions{
			URL:        cfg.RedisURL,
			Prefix:     cfg.Prefix,
			DefaultTTL: cfg.DefaultTTL,
		})
		if err == nil {
			logger.Info("cache backend ready", "backend", BackendRedis, "prefix", cfg.Prefix)
			return rc, BackendRedis
		}
		logger.Warn("redis cache unavailable, falling back to memory", "error", err)
	}

	mc := NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: time.Minute,
	})
	logger.Info("cache backend ready", "backend", BackendMemory, "max_size", cfg.MaxSize)
	return mc, BackendMemory
}
