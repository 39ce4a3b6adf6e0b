// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/picms/article/internal/model"
	"github.com/picms/article/internal/util"
)

// ErrNoRow is returned by Find-style lookups when no row matches.
var ErrNoRow = errors.New("store: no matching row")

const articleColumns = "id, subject, slug, category, cluster, status, active, time_publish, time_update, uid, image, markup"

// ArticleStore is the row store for article and article_content.
type ArticleStore struct {
	db *sql.DB
}

// NewArticleStore creates an article store backed by db.
func NewArticleStore(db *sql.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

func scanArticle(row interface{ Scan(...any) error }) (*model.Article, error) {
	var a model.Article
	err := row.Scan(&a.ID, &a.Subject, &a.Slug, &a.Category, &a.Cluster, &a.Status,
		&a.Active, &a.TimePublish, &a.TimeUpdate, &a.UID, &a.Image, &a.Markup)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Find loads a single article by id, including its content pages.
func (s *ArticleStore) Find(ctx context.Context, id int64) (*model.Article, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+articleColumns+" FROM article WHERE id = ?", id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRow
	}
	if err != nil {
		return nil, fmt.Errorf("finding article %d: %w", id, err)
	}

	a.Content, err = s.contentPages(ctx, id)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// contentPages loads the ordered content pages for an article.
func (s *ArticleStore) contentPages(ctx context.Context, article int64) ([]model.ContentPage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT page, title, body FROM article_content WHERE article = ? ORDER BY page", article)
	if err != nil {
		return nil, fmt.Errorf("loading content for article %d: %w", article, err)
	}
	defer func() { _ = rows.Close() }()

	var pages []model.ContentPage
	for rows.Next() {
		var p model.ContentPage
		if err := rows.Scan(&p.Page, &p.Title, &p.Body); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// Select returns article rows matching the filter, without content
// pages, ordered and paginated. limit <= 0 means no limit.
func (s *ArticleStore) Select(ctx context.Context, where *Where, order string, limit, offset int) ([]model.Article, error) {
	clause, args := where.Clause()
	query := "SELECT " + articleColumns + " FROM article " + clause
	if order != "" {
		query += " ORDER BY " + order
	}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting articles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// Count returns the number of article rows matching the filter.
func (s *ArticleStore) Count(ctx context.Context, where *Where) (int64, error) {
	clause, args := where.Clause()
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM article "+clause, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting articles: %w", err)
	}
	return n, nil
}

// Save inserts the article (id zero) or updates it (id set) together
// with its content pages, and returns the article id.
func (s *ArticleStore) Save(ctx context.Context, a *model.Article) (int64, error) {
	if a.Status == model.StatusPublished {
		if err := model.ValidateContent(a.Content); err != nil {
			return 0, fmt.Errorf("article not publishable: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if a.TimeUpdate == 0 {
		a.TimeUpdate = time.Now().Unix()
	}
	if a.Slug == "" {
		a.Slug = util.Slugify(a.Subject)
	}

	if a.ID == 0 {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO article (subject, slug, category, cluster, status, active, time_publish, time_update, uid, image, markup)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.Subject, a.Slug, a.Category, a.Cluster, a.Status, a.Active,
			a.TimePublish, a.TimeUpdate, a.UID, a.Image, a.Markup)
		if err != nil {
			return 0, fmt.Errorf("inserting article: %w", err)
		}
		a.ID, err = res.LastInsertId()
		if err != nil {
			return 0, err
		}
	} else {
		_, err := tx.ExecContext(ctx,
			`UPDATE article SET subject = ?, slug = ?, category = ?, cluster = ?, status = ?, active = ?,
			 time_publish = ?, time_update = ?, uid = ?, image = ?, markup = ? WHERE id = ?`,
			a.Subject, a.Slug, a.Category, a.Cluster, a.Status, a.Active,
			a.TimePublish, a.TimeUpdate, a.UID, a.Image, a.Markup, a.ID)
		if err != nil {
			return 0, fmt.Errorf("updating article %d: %w", a.ID, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM article_content WHERE article = ?", a.ID); err != nil {
			return 0, fmt.Errorf("replacing content for article %d: %w", a.ID, err)
		}
	}

	for _, p := range a.Content {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO article_content (article, page, title, body) VALUES (?, ?, ?, ?)",
			a.ID, p.Page, p.Title, p.Body)
		if err != nil {
			return 0, fmt.Errorf("saving content page %d: %w", p.Page, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing article save: %w", err)
	}
	return a.ID, nil
}

// DeleteByIDs removes the article rows and their content pages.
func (s *ArticleStore) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	contentClause, contentArgs := NewWhere().In("article", ids).Clause()
	if _, err := tx.ExecContext(ctx, "DELETE FROM article_content "+contentClause, contentArgs...); err != nil {
		return fmt.Errorf("deleting article content: %w", err)
	}

	clause, args := NewWhere().In("id", ids).Clause()
	if _, err := tx.ExecContext(ctx, "DELETE FROM article "+clause, args...); err != nil {
		return fmt.Errorf("deleting articles: %w", err)
	}

	return tx.Commit()
}

// SlugToID resolves a slug to an article id. Returns ErrNoRow when the
// slug is unknown.
func (s *ArticleStore) SlugToID(ctx context.Context, slug string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM article WHERE slug = ?", slug).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoRow
	}
	if err != nil {
		return 0, fmt.Errorf("resolving slug %q: %w", slug, err)
	}
	return id, nil
}

// SubjectExists reports whether another article already uses the
// subject. excludeID skips the article being edited, 0 skips nothing.
func (s *ArticleStore) SubjectExists(ctx context.Context, subject string, excludeID int64) (bool, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM article WHERE subject = ? AND id != ?", subject, excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking subject %q: %w", subject, err)
	}
	return n > 0, nil
}

// IDs returns all article ids; used by maintenance sweeps.
func (s *ArticleStore) IDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM article")
	if err != nil {
		return nil, fmt.Errorf("listing article ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
