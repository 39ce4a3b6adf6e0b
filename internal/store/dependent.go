// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/picms/article/internal/model"
)

// StatsStore is the row store for aggregated article visit counters.
type StatsStore struct {
	db *sql.DB
}

// NewStatsStore creates a stats store backed by db.
func NewStatsStore(db *sql.DB) *StatsStore {
	return &StatsStore{db: db}
}

// AddVisit bumps the visit counter for an article, creating the row on
// first visit.
func (s *StatsStore) AddVisit(ctx context.Context, article int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO article_stats (article, visits, time_updated) VALUES (?, 1, ?)
		 ON CONFLICT (article) DO UPDATE SET visits = visits + 1, time_updated = excluded.time_updated`,
		article, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("adding visit for article %d: %w", article, err)
	}
	return nil
}

// Get returns the stats row for an article; a missing row reads as
// zero visits.
func (s *StatsStore) Get(ctx context.Context, article int64) (model.Stats, error) {
	st := model.Stats{Article: article}
	err := s.db.QueryRowContext(ctx,
		"SELECT visits, time_updated FROM article_stats WHERE article = ?", article).
		Scan(&st.Visits, &st.TimeUpdated)
	if err != nil && err != sql.ErrNoRows {
		return st, fmt.Errorf("reading stats for article %d: %w", article, err)
	}
	return st, nil
}

// DeleteByArticles removes stats rows for the given article ids.
func (s *StatsStore) DeleteByArticles(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	clause, args := NewWhere().In("article", ids).Clause()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM article_stats "+clause, args...); err != nil {
		return fmt.Errorf("deleting stats rows: %w", err)
	}
	return nil
}

// CompiledStore is the row store for compiled (rendered) page content.
type CompiledStore struct {
	db *sql.DB
}

// NewCompiledStore creates a compiled-content store backed by db.
func NewCompiledStore(db *sql.DB) *CompiledStore {
	return &CompiledStore{db: db}
}

// Put stores the rendered HTML for one article page, replacing any
// previous compilation.
func (s *CompiledStore) Put(ctx context.Context, article int64, page int, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO article_compiled (article, page, content, compiled_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (article, page) DO UPDATE SET content = excluded.content, compiled_at = excluded.compiled_at`,
		article, page, content, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("storing compiled page %d/%d: %w", article, page, err)
	}
	return nil
}

// Get returns the rendered HTML for one article page, or ErrNoRow.
func (s *CompiledStore) Get(ctx context.Context, article int64, page int) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		"SELECT content FROM article_compiled WHERE article = ? AND page = ?", article, page).
		Scan(&content)
	if err == sql.ErrNoRows {
		return "", ErrNoRow
	}
	if err != nil {
		return "", fmt.Errorf("reading compiled page %d/%d: %w", article, page, err)
	}
	return content, nil
}

// DeleteByArticles removes compiled rows for the given article ids.
func (s *CompiledStore) DeleteByArticles(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	clause, args := NewWhere().In("article", ids).Clause()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM article_compiled "+clause, args...); err != nil {
		return fmt.Errorf("deleting compiled rows: %w", err)
	}
	return nil
}

// PurgeOrphans removes compiled rows whose owning article no longer
// exists and returns the number removed. Run from the maintenance
// scheduler as a defensive sweep.
func (s *CompiledStore) PurgeOrphans(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM article_compiled WHERE article NOT IN (SELECT id FROM article)")
	if err != nil {
		return 0, fmt.Errorf("purging orphaned compiled rows: %w", err)
	}
	return res.RowsAffected()
}

// VisitStore is the row store for the per-view visit log.
type VisitStore struct {
	db *sql.DB
}

// NewVisitStore creates a visit store backed by db.
func NewVisitStore(db *sql.DB) *VisitStore {
	return &VisitStore{db: db}
}

// Insert records a single visit.
func (s *VisitStore) Insert(ctx context.Context, v *model.Visit) error {
	if v.Time == 0 {
		v.Time = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO article_visit (article, time, ip, browser, os) VALUES (?, ?, ?, ?, ?)",
		v.Article, v.Time, v.IP, v.Browser, v.OS)
	if err != nil {
		return fmt.Errorf("recording visit for article %d: %w", v.Article, err)
	}
	return nil
}

// CountByArticle returns the number of logged visits for an article.
func (s *VisitStore) CountByArticle(ctx context.Context, article int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM article_visit WHERE article = ?", article).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting visits for article %d: %w", article, err)
	}
	return n, nil
}

// PruneBefore removes visit rows older than cutoff and returns the
// number removed. The aggregated counters in article_stats are
// unaffected.
func (s *VisitStore) PruneBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM article_visit WHERE time < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning visit rows: %w", err)
	}
	return res.RowsAffected()
}

// DeleteByArticles removes visit rows for the given article ids.
func (s *VisitStore) DeleteByArticles(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	clause, args := NewWhere().In("article", ids).Clause()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM article_visit "+clause, args...); err != nil {
		return fmt.Errorf("deleting visit rows: %w", err)
	}
	return nil
}
