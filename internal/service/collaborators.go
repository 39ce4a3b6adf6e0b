// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import "context"

// SlugResolver resolves an article slug to its id when the caller
// supplies no explicit id. store.ArticleStore is the default
// implementation.
type SlugResolver interface {
	SlugToID(ctx context.Context, slug string) (int64, error)
}

// CategoryTree expands a category to its descendant ids for listing
// tree-expansion. store.CategoryStore is the default implementation.
type CategoryTree interface {
	DescendantIDs(ctx context.Context, id int64) ([]int64, error)
}

// FileStore removes media files. Removing a missing path is not an
// error.
type FileStore interface {
	Remove(path string) error
}

// TagIndex is the external tag-indexing service consulted by tag-type
// fuzzy search.
type TagIndex interface {
	Count(ctx context.Context, keyword, scope string) (int64, error)
	List(ctx context.Context, keyword, scope string, limit, offset int) ([]int64, error)
}
