// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/picms/article/internal/model"
	"github.com/picms/article/internal/rule"
	"github.com/picms/article/internal/store"
)

// Activation filter values accepted by listing requests.
const (
	FilterActive   = "active"
	FilterDeactive = "deactive"
)

// ListFilters narrows a published-article listing. Zero values mean
// "no constraint" for every field.
type ListFilters struct {
	Category int64
	Cluster  int64
	Keyword  string
	// UID restricts the listing to one creator ("my articles").
	UID int64
	// Filter is "", FilterActive or FilterDeactive.
	Filter string
}

// ListPage is one page of a permission-scoped listing with the total
// row count for pagination.
type ListPage struct {
	Articles []model.Article
	Total    int64
	Page     int
	Limit    int
}

// PageCount returns the number of pages the total spans.
func (p *ListPage) PageCount() int {
	if p.Limit <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Limit) - 1) / int64(p.Limit))
}

// ListService builds and runs permission-scoped listings over
// published articles. Every listing is bounded by the acting user's
// rule map; there is no unscoped path.
type ListService struct {
	articles   *store.ArticleStore
	categories CategoryTree
	rules      rule.Resolver
	tags       TagIndex
	logger     *slog.Logger
}

// NewListService creates the listing service. tags may be nil when no
// tag index is deployed; tag-type fuzzy search then returns empty
// results.
func NewListService(articles *store.ArticleStore, categories CategoryTree, rules rule.Resolver, tags TagIndex, logger *slog.Logger) *ListService {
	return &ListService{
		articles:   articles,
		categories: categories,
		rules:      rules,
		tags:       tags,
		logger:     logger,
	}
}

// BuildQuery translates listing filters into a row filter under the
// acting user's permission scope. The returned order is the fixed
// listing order. An empty rule map, or a requested category outside
// the permitted set, is ErrForbidden.
func (s *ListService) BuildQuery(ctx context.Context, f ListFilters, rules rule.Rules) (*store.Where, string, error) {
	permitted := rules.Categories()
	if len(permitted) == 0 {
		return nil, "", ErrForbidden
	}

	where := store.NewWhere().Eq("status", model.StatusPublished)

	switch {
	case f.Category > 1:
		// A concrete category request covers its whole subtree, then
		// shrinks to what the rule map permits.
		if !rules.HasCategory(f.Category) {
			return nil, "", ErrForbidden
		}
		subtree, err := s.categories.DescendantIDs(ctx, f.Category)
		if err != nil {
			return nil, "", fmt.Errorf("expanding category %d: %w", f.Category, err)
		}
		where.In("category", intersect(subtree, permitted))
	case f.Category == 1:
		// Category 1 is the root: scope is the full permitted set.
		where.In("category", permitted)
	default:
		where.In("category", permitted)
	}

	if f.Cluster > 0 {
		where.Eq("cluster", f.Cluster)
	}
	if f.Keyword != "" {
		where.Like("subject", f.Keyword)
	}
	if f.UID > 0 {
		where.Eq("uid", f.UID)
	}

	// The activation filter narrows last, after the permission scope
	// has bounded the result set.
	switch f.Filter {
	case FilterActive:
		where.Eq("active", true)
	case FilterDeactive:
		where.Eq("active", false)
	case "":
	default:
		return nil, "", fmt.Errorf("%w: unknown filter %q", ErrValidation, f.Filter)
	}

	return where, "time_publish DESC", nil
}

// Published returns one page of the published listing for the acting
// user. page is 1-based; limit <= 0 falls back to 20.
func (s *ListService) Published(ctx context.Context, f ListFilters, uid int64, page, limit int) (*ListPage, error) {
	rules, err := s.rules.Resolve(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("resolving rules: %w", err)
	}

	where, order, err := s.BuildQuery(ctx, f, rules)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	articles, err := s.articles.Select(ctx, where, order, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	total, err := s.articles.Count(ctx, where)
	if err != nil {
		return nil, err
	}

	return &ListPage{Articles: articles, Total: total, Page: page, Limit: limit}, nil
}

// intersect returns the members of a that also appear in b, preserving
// a's order.
func intersect(a, b []int64) []int64 {
	in := make(map[int64]bool, len(b))
	for _, id := range b {
		in[id] = true
	}
	out := make([]int64, 0, len(a))
	for _, id := range a {
		if in[id] {
			out = append(out, id)
		}
	}
	return out
}
