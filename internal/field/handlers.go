// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package field

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// SEOHandler is the reference custom field handler. It stores flat
// key/value SEO metadata (meta title, description, keywords) per
// article in the article_field_seo table.
type SEOHandler struct {
	db *sql.DB
}

// NewSEOHandler creates the SEO custom field handler.
func NewSEOHandler(db *sql.DB) *SEOHandler {
	return &SEOHandler{db: db}
}

// Encode implements Handler. Keys are prefixed with "seo_" so merged
// draft payloads stay collision-free across handlers.
func (h *SEOHandler) Encode(ctx context.Context, articleID int64) (map[string]string, error) {
	rows, err := h.db.QueryContext(ctx,
		"SELECT name, value FROM article_field_seo WHERE article = ?", articleID)
	if err != nil {
		return nil, fmt.Errorf("reading seo fields: %w", err)
	}
	defer func() { _ = rows.Close() }()

	values := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		values["seo_"+name] = value
	}
	return values, rows.Err()
}

// Delete implements Handler.
func (h *SEOHandler) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args := inArticles("DELETE FROM article_field_seo WHERE article IN", ids)
	if _, err := h.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting seo fields: %w", err)
	}
	return nil
}

// Set stores one SEO key/value for an article; used by edit flows and
// tests.
func (h *SEOHandler) Set(ctx context.Context, articleID int64, name, value string) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO article_field_seo (article, name, value) VALUES (?, ?, ?)
		 ON CONFLICT (article, name) DO UPDATE SET value = excluded.value`,
		articleID, name, value)
	if err != nil {
		return fmt.Errorf("setting seo field %q: %w", name, err)
	}
	return nil
}

// RelatedHandler is the reference compound field handler. It stores an
// ordered list of related article ids per article.
type RelatedHandler struct {
	db *sql.DB
}

// NewRelatedHandler creates the related-articles compound field handler.
func NewRelatedHandler(db *sql.DB) *RelatedHandler {
	return &RelatedHandler{db: db}
}

// Encode implements Handler. The id list is encoded as a single
// comma-joined value under the "related" key.
func (h *RelatedHandler) Encode(ctx context.Context, articleID int64) (map[string]string, error) {
	rows, err := h.db.QueryContext(ctx,
		"SELECT related FROM article_field_related WHERE article = ? ORDER BY ord", articleID)
	if err != nil {
		return nil, fmt.Errorf("reading related articles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return map[string]string{"related": strings.Join(ids, ",")}, nil
}

// Delete implements Handler.
func (h *RelatedHandler) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args := inArticles("DELETE FROM article_field_related WHERE article IN", ids)
	if _, err := h.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting related articles: %w", err)
	}
	return nil
}

// Add appends a related article id for an article.
func (h *RelatedHandler) Add(ctx context.Context, articleID, relatedID int64, ord int) error {
	_, err := h.db.ExecContext(ctx,
		"INSERT INTO article_field_related (article, related, ord) VALUES (?, ?, ?)",
		articleID, relatedID, ord)
	if err != nil {
		return fmt.Errorf("adding related article %d: %w", relatedID, err)
	}
	return nil
}

// Count returns the number of rows the handler holds for an article.
func (h *RelatedHandler) Count(ctx context.Context, articleID int64) (int64, error) {
	var n int64
	err := h.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM article_field_related WHERE article = ?", articleID).Scan(&n)
	return n, err
}

func inArticles(prefix string, ids []int64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return prefix + " (" + strings.Join(placeholders, ", ") + ")", args
}
