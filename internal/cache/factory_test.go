// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/petrpacas/spiritevents-sub000/internal/testutil"
)

func TestNew_MemoryByDefault(t *testing.T) {
	c, backend := New(Config{DefaultTTL: time.Minute, MaxSize: 10}, testutil.TestLogger())
	defer func() { _ = c.Close() }()

	if backend != BackendMemory {
		t.Errorf("backend = %q, want %q", backend, BackendMemory)
	}
	if _, ok := c.(*MemoryCache); !ok {
		t.Errorf("cache type = %T", c)
	}
}

func TestNew_FallsBackWhenRedisUnavailable(t *testing.T) {
	c, backend := New(Config{RedisURL: "bogus://nowhere", DefaultTTL: time.Minute}, testutil.TestLogger())
	defer func() { _ = c.Close() }()

	if backend != BackendMemory {
		t.Errorf("backend = %q, want %q", backend, BackendMemory)
	}
}

func TestGetOrSet(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	type facet struct {
		Name  string
		Count int
	}
	calls := 0
	load := func(context.Context) ([]facet, error) {
		calls++
		return []facet{{Name: "Yoga", Count: 3}}, nil
	}

	for range 3 {
		got, err := GetOrSet(ctx, c, "facets", 0, load)
		if err != nil {
			t.Fatalf("GetOrSet: %v", err)
		}
		if len(got) != 1 || got[0].Name != "Yoga" || got[0].Count != 3 {
			t.Fatalf("GetOrSet = %+v", got)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
}

func TestGetOrSet_LoaderError(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := GetOrSet(ctx, c, "k", 0, func(context.Context) (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("failed load was cached: %v", err)
	}
}

func TestGetOrSet_WorksAfterClose(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{})
	_ = c.Close()

	got, err := GetOrSet(context.Background(), c, "k", 0, func(context.Context) (string, error) { return "fresh", nil })
	if err != nil || got != "fresh" {
		t.Fatalf("GetOrSet = %q, %v", got, err)
	}
}
