// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/picms/article/internal/model"
)

// DraftStore is the row store for draft records.
type DraftStore struct {
	db *sql.DB
}

// NewDraftStore creates a draft store backed by db.
func NewDraftStore(db *sql.DB) *DraftStore {
	return &DraftStore{db: db}
}

const draftColumns = "id, article, subject, slug, category, cluster, status, uid, image, markup, time_publish, time_update, content, detail"

func scanDraft(row interface{ Scan(...any) error }) (*model.Draft, error) {
	var d model.Draft
	var content, detail string
	err := row.Scan(&d.ID, &d.Article, &d.Subject, &d.Slug, &d.Category, &d.Cluster,
		&d.Status, &d.UID, &d.Image, &d.Markup, &d.TimePublish, &d.TimeUpdate, &content, &detail)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(content), &d.Content); err != nil {
		return nil, fmt.Errorf("decoding draft %d content: %w", d.ID, err)
	}
	if err := json.Unmarshal([]byte(detail), &d.Detail); err != nil {
		return nil, fmt.Errorf("decoding draft %d detail: %w", d.ID, err)
	}
	return &d, nil
}

// Find loads a draft by id.
func (s *DraftStore) Find(ctx context.Context, id int64) (*model.Draft, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+draftColumns+" FROM draft WHERE id = ?", id)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRow
	}
	if err != nil {
		return nil, fmt.Errorf("finding draft %d: %w", id, err)
	}
	return d, nil
}

// FindByArticle returns the live draft pointing at the given published
// article id, or ErrNoRow if none exists.
func (s *DraftStore) FindByArticle(ctx context.Context, articleID int64) (*model.Draft, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+draftColumns+" FROM draft WHERE article = ?", articleID)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRow
	}
	if err != nil {
		return nil, fmt.Errorf("finding draft for article %d: %w", articleID, err)
	}
	return d, nil
}

// Save inserts a new draft record and returns its id.
func (s *DraftStore) Save(ctx context.Context, d *model.Draft) (int64, error) {
	content, err := json.Marshal(d.Content)
	if err != nil {
		return 0, fmt.Errorf("encoding draft content: %w", err)
	}
	if d.Detail == nil {
		d.Detail = map[string]string{}
	}
	detail, err := json.Marshal(d.Detail)
	if err != nil {
		return 0, fmt.Errorf("encoding draft detail: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO draft (article, subject, slug, category, cluster, status, uid, image, markup, time_publish, time_update, content, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Article, d.Subject, d.Slug, d.Category, d.Cluster, d.Status, d.UID,
		d.Image, d.Markup, d.TimePublish, d.TimeUpdate, string(content), string(detail))
	if err != nil {
		return 0, fmt.Errorf("saving draft: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	d.ID = id
	return id, nil
}

// Delete removes a draft by id.
func (s *DraftStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM draft WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting draft %d: %w", id, err)
	}
	return nil
}

// CountByArticle returns the number of drafts pointing at an article.
func (s *DraftStore) CountByArticle(ctx context.Context, articleID int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM draft WHERE article = ?", articleID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting drafts for article %d: %w", articleID, err)
	}
	return n, nil
}
