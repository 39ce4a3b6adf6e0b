// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CategoryStore resolves descendant sets in the category tree. It is
// the default implementation of the category-tree collaborator used by
// listing tree-expansion.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore creates a category store backed by db.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// DescendantIDs returns the ids of the category and all of its
// descendants, root first.
func (s *CategoryStore) DescendantIDs(ctx context.Context, id int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE descendants(id) AS (
			SELECT id FROM category WHERE id = ?
			UNION ALL
			SELECT c.id FROM category c JOIN descendants d ON c.parent = d.id
		)
		SELECT id FROM descendants`, id)
	if err != nil {
		return nil, fmt.Errorf("expanding category %d: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var cid int64
		if err := rows.Scan(&cid); err != nil {
			return nil, err
		}
		ids = append(ids, cid)
	}
	return ids, rows.Err()
}

// Insert adds a category row; used by seeding and tests.
func (s *CategoryStore) Insert(ctx context.Context, id, parent int64, name, slug string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO category (id, parent, name, slug) VALUES (?, ?, ?, ?)", id, parent, name, slug)
	if err != nil {
		return fmt.Errorf("inserting category %d: %w", id, err)
	}
	return nil
}
