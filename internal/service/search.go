// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/picms/article/internal/model"
	"github.com/picms/article/internal/store"
)

// Fuzzy search types.
const (
	SearchTypeTitle = "title"
	SearchTypeTag   = "tag"
)

// maxSearchLimit caps the page size a search client may request.
const maxSearchLimit = 100

// SearchHit is one fuzzy-search result row.
type SearchHit struct {
	ID      int64  `json:"id"`
	Subject string `json:"subject"`
	Slug    string `json:"slug"`
	Time    string `json:"time"`
	URL     string `json:"url"`
}

// Paginator describes the page window of a search result.
type Paginator struct {
	CurrentPage int    `json:"currentPage"`
	PageCount   int    `json:"pageCount"`
	Keyword     string `json:"keyword"`
	Type        string `json:"type"`
	Limit       int    `json:"limit"`
	TotalCount  int64  `json:"totalCount"`
}

// SearchResult is the fuzzy-search response envelope.
type SearchResult struct {
	Status    bool        `json:"status"`
	Message   string      `json:"message"`
	Data      []SearchHit `json:"data"`
	Paginator Paginator   `json:"paginator"`
}

// FuzzySearch finds published articles by subject substring or by tag,
// for pickers and autocomplete. exclude drops one article id from the
// results, typically the article being edited. The page size is capped
// at 100.
func (s *ListService) FuzzySearch(ctx context.Context, keyword, searchType string, page, limit int, exclude int64) (*SearchResult, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	if searchType == "" {
		searchType = SearchTypeTitle
	}

	result := &SearchResult{
		Status:  true,
		Message: "ok",
		Data:    []SearchHit{},
		Paginator: Paginator{
			CurrentPage: page,
			Keyword:     keyword,
			Type:        searchType,
			Limit:       limit,
		},
	}

	var (
		articles []model.Article
		total    int64
		err      error
	)
	switch searchType {
	case SearchTypeTag:
		articles, total, err = s.searchByTag(ctx, keyword, page, limit)
	case SearchTypeTitle:
		articles, total, err = s.searchByTitle(ctx, keyword, page, limit)
	default:
		return nil, fmt.Errorf("%w: unknown search type %q", ErrValidation, searchType)
	}
	if err != nil {
		return nil, err
	}

	for _, a := range articles {
		if a.ID == exclude {
			continue
		}
		result.Data = append(result.Data, SearchHit{
			ID:      a.ID,
			Subject: a.Subject,
			Slug:    a.Slug,
			Time:    time.Unix(a.TimePublish, 0).UTC().Format("2006-01-02"),
			URL:     DetailURL(a.TimePublish, a.ID, a.Slug, 0, ""),
		})
	}

	result.Paginator.TotalCount = total
	result.Paginator.PageCount = int((total + int64(limit) - 1) / int64(limit))
	return result, nil
}

func (s *ListService) searchByTitle(ctx context.Context, keyword string, page, limit int) ([]model.Article, int64, error) {
	where := store.NewWhere().Eq("status", model.StatusPublished).Eq("active", true)
	if keyword != "" {
		where.Like("subject", keyword)
	}

	articles, err := s.articles.Select(ctx, where, "time_publish DESC", limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.articles.Count(ctx, where)
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// searchByTag consults the external tag index for matching article
// ids, then loads the rows. Without a tag index the result is empty
// rather than an error.
func (s *ListService) searchByTag(ctx context.Context, keyword string, page, limit int) ([]model.Article, int64, error) {
	if s.tags == nil {
		return nil, 0, nil
	}

	total, err := s.tags.Count(ctx, keyword, "article")
	if err != nil {
		return nil, 0, fmt.Errorf("counting tagged articles: %w", err)
	}
	ids, err := s.tags.List(ctx, keyword, "article", limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("listing tagged articles: %w", err)
	}
	if len(ids) == 0 {
		return nil, total, nil
	}

	where := store.NewWhere().In("id", ids).Eq("status", model.StatusPublished).Eq("active", true)
	articles, err := s.articles.Select(ctx, where, "time_publish DESC", 0, 0)
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}
