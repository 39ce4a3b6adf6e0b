// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render compiles article content pages to sanitized HTML and
// manages the compiled render cache.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/picms/article/internal/cache"
	"github.com/picms/article/internal/model"
	"github.com/picms/article/internal/store"
)

// ModuleScope is the cache key prefix for everything this module
// caches. Flushing the scope invalidates all compiled pages at once,
// because composed pages may span articles.
const ModuleScope = "article:"

// Compiler renders article pages to HTML and keeps the compiled store
// and the hot cache in sync.
type Compiler struct {
	compiled *store.CompiledStore
	cache    cache.Cacher
	md       goldmark.Markdown
	policy   *bluemonday.Policy
	logger   *slog.Logger
}

// NewCompiler creates a compiler over the compiled store and cache.
func NewCompiler(compiled *store.CompiledStore, c cache.Cacher, logger *slog.Logger) *Compiler {
	return &Compiler{
		compiled: compiled,
		cache:    c,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
		logger: logger,
	}
}

func cacheKey(article int64, page int) string {
	return fmt.Sprintf("%scompiled:%d:%d", ModuleScope, article, page)
}

// Render converts one page body to sanitized HTML without touching any
// store.
func (c *Compiler) Render(body string) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return c.policy.Sanitize(buf.String()), nil
}

// CompileArticle renders all pages of an article into the compiled
// store and warms the cache.
func (c *Compiler) CompileArticle(ctx context.Context, a *model.Article) error {
	for _, p := range a.Content {
		html, err := c.Render(p.Body)
		if err != nil {
			return fmt.Errorf("compiling article %d page %d: %w", a.ID, p.Page, err)
		}
		if err := c.compiled.Put(ctx, a.ID, p.Page, html); err != nil {
			return err
		}
		if err := c.cache.Set(ctx, cacheKey(a.ID, p.Page), []byte(html), 0); err != nil {
			c.logger.Warn("caching compiled page failed",
				"category", model.EventCategoryCache, "article", a.ID, "page", p.Page, "error", err)
		}
	}
	return nil
}

// CompiledPage returns the rendered HTML for one article page,
// preferring the cache and falling back to the compiled store.
// Returns store.ErrNoRow if the page was never compiled.
func (c *Compiler) CompiledPage(ctx context.Context, article int64, page int) (string, error) {
	if data, err := c.cache.Get(ctx, cacheKey(article, page)); err == nil {
		return string(data), nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn("compiled cache read failed",
			"category", model.EventCategoryCache, "article", article, "error", err)
	}

	html, err := c.compiled.Get(ctx, article, page)
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, cacheKey(article, page), []byte(html), 0); err != nil {
		c.logger.Warn("compiled cache refill failed",
			"category", model.EventCategoryCache, "article", article, "error", err)
	}
	return html, nil
}

// FlushModule invalidates the whole module cache scope.
func (c *Compiler) FlushModule(ctx context.Context) error {
	if err := c.cache.DeleteByPrefix(ctx, ModuleScope); err != nil {
		return fmt.Errorf("flushing module cache: %w", err)
	}
	return nil
}
