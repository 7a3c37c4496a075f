// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"time"
)

// GetOrSet returns the JSON value stored under key, or computes it with fn
// and stores it. Cache errors never fail the call; only fn's error does.
func GetOrSet[T any](ctx context.Context, c Cache, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if data, err := c.Get(ctx, key); err == nil {
		var value T
		if json.Unmarshal(data, &value) == nil {
			return value, nil
		}
	}

	value, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if data, err := json.Marshal(value); err == nil {
		_ = c.Set(ctx, key, data, ttl)
	}
	return value, nil
}
