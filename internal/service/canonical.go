// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/picms/article/internal/model"
	"github.com/picms/article/internal/store"
	"github.com/picms/article/internal/util"
)

// OutcomeKind classifies the result of canonicalizing a detail request.
type OutcomeKind int

// Canonicalization outcomes.
const (
	OutcomeNotFound OutcomeKind = iota
	OutcomeForbidden
	OutcomeRedirect
	OutcomeRendered
)

// DetailRequest identifies the article page being requested. ID 0
// means "resolve by slug".
type DetailRequest struct {
	ID     int64
	Slug   string
	Page   int
	Remain string
}

// PageView is one content page prepared for rendering: its canonical
// URL and resolved display title.
type PageView struct {
	Page  int
	Title string
	Body  string
	URL   string
}

// ArticleView is the rendered outcome of a canonical detail request.
type ArticleView struct {
	Article *model.Article
	Pages   []PageView
	// ShowTitle is true if any page produced a non-blank title.
	ShowTitle bool
	Page      int
	// ViewURL jumps the reader to the start (remainder reset).
	ViewURL string
	// RemainURL pins the remainder to the current page.
	RemainURL string
}

// Outcome is the decision for a detail request: exactly one of the
// four kinds, with the redirect target or view filled in accordingly.
type Outcome struct {
	Kind           OutcomeKind
	RedirectURL    string
	RedirectStatus int
	View           *ArticleView
}

// Canonicalizer decides canonical identity for article detail
// requests: slug mismatches redirect, future publish times read as
// missing, inactive articles are forbidden.
type Canonicalizer struct {
	articles *store.ArticleStore
	slugs    SlugResolver
}

// NewCanonicalizer creates a canonicalizer. slugs resolves slug-only
// requests; the article store itself is the usual implementation.
func NewCanonicalizer(articles *store.ArticleStore, slugs SlugResolver) *Canonicalizer {
	return &Canonicalizer{articles: articles, slugs: slugs}
}

// Canonicalize resolves a detail request to its outcome. Collaborator
// failures are returned as errors; NotFound and Forbidden are
// outcomes, not errors.
func (c *Canonicalizer) Canonicalize(ctx context.Context, req DetailRequest) (Outcome, error) {
	if req.Page < 1 {
		req.Page = 1
	}

	id := req.ID
	if id == 0 {
		// Slug-only request: resolve through the external lookup. An
		// explicit id skips this entirely.
		if !util.IsValidSlug(req.Slug) {
			return Outcome{Kind: OutcomeNotFound}, nil
		}
		var err error
		id, err = c.slugs.SlugToID(ctx, req.Slug)
		if errors.Is(err, store.ErrNoRow) {
			return Outcome{Kind: OutcomeNotFound}, nil
		}
		if err != nil {
			return Outcome{}, fmt.Errorf("resolving slug: %w", err)
		}
	}

	a, err := c.articles.Find(ctx, id)
	if errors.Is(err, store.ErrNoRow) {
		return Outcome{Kind: OutcomeNotFound}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	// Scheduled articles stay invisible until their publish time,
	// regardless of the active flag.
	if !a.Visible(time.Now()) {
		return Outcome{Kind: OutcomeNotFound}, nil
	}
	if !a.Active {
		return Outcome{Kind: OutcomeForbidden}, nil
	}

	// Slug mismatch: the stored slug wins. Redirecting permanently
	// preserves links indexed under an old slug.
	if req.Slug != a.Slug {
		return Outcome{
			Kind:           OutcomeRedirect,
			RedirectURL:    DetailURL(a.TimePublish, a.ID, a.Slug, req.Page, req.Remain),
			RedirectStatus: http.StatusMovedPermanently,
		}, nil
	}

	view := &ArticleView{
		Article:   a,
		Page:      req.Page,
		ViewURL:   DetailURL(a.TimePublish, a.ID, a.Slug, 0, "0"),
		RemainURL: DetailURL(a.TimePublish, a.ID, a.Slug, 0, strconv.Itoa(req.Page)),
	}

	for _, p := range a.Content {
		pv := PageView{
			Page:  p.Page,
			Title: resolveTitle(p.Title),
			Body:  p.Body,
			URL:   DetailURL(a.TimePublish, a.ID, a.Slug, p.Page, ""),
		}
		if pv.Title != "" {
			view.ShowTitle = true
		}
		view.Pages = append(view.Pages, pv)
	}

	return Outcome{Kind: OutcomeRendered, View: view}, nil
}

// resolveTitle blanks a page title that is empty or reduces to nothing
// after stripping non-breaking-space markers.
func resolveTitle(title string) string {
	stripped := strings.ReplaceAll(title, "&nbsp;", "")
	stripped = strings.ReplaceAll(stripped, "\u00a0", "")
	if strings.TrimSpace(stripped) == "" {
		return ""
	}
	return title
}
