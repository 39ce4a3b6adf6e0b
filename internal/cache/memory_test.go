// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, 0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, want %q", got, "v")
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache(time.Minute, 0)
	defer func() { _ = c.Close() }()

	_, err := c.Get(context.Background(), "absent")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get on absent key = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, 0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get on expired key = %v, want ErrCacheMiss", err)
	}
	has, err := c.Has(ctx, "k")
	if err != nil || has {
		t.Errorf("Has on expired key = (%v, %v), want (false, nil)", has, err)
	}
}

func TestMemoryCacheDeleteByPrefix(t *testing.T) {
	c := NewMemoryCache(time.Minute, 0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "article:compiled:1:1", []byte("a"), 0)
	_ = c.Set(ctx, "article:compiled:2:1", []byte("b"), 0)
	_ = c.Set(ctx, "other:1", []byte("c"), 0)

	if err := c.DeleteByPrefix(ctx, "article:"); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}

	if _, err := c.Get(ctx, "article:compiled:1:1"); !errors.Is(err, ErrCacheMiss) {
		t.Error("prefixed key survived DeleteByPrefix")
	}
	if _, err := c.Get(ctx, "other:1"); err != nil {
		t.Error("unrelated key removed by DeleteByPrefix")
	}
}

func TestMemoryCacheClosed(t *testing.T) {
	c := NewMemoryCache(time.Minute, 0)
	_ = c.Close()

	if err := c.Set(context.Background(), "k", nil, 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Set after Close = %v, want ErrCacheClosed", err)
	}
	if _, err := c.Get(context.Background(), "k"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get after Close = %v, want ErrCacheClosed", err)
	}
}
