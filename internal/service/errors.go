// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the article lifecycle operations:
// canonicalization, draft creation, cascading deletion and
// permission-scoped listing.
package service

import "errors"

// Operation errors. Permission and lifecycle checks run eagerly, so
// these are returned before any mutation begins.
var (
	// ErrNotFound is returned for a missing id or slug, or an article
	// whose publish time is still in the future.
	ErrNotFound = errors.New("article not found")

	// ErrForbidden is returned when the rule map denies the action or
	// the article is inactive.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned for an invalid lifecycle transition,
	// such as drafting an article that is not published.
	ErrConflict = errors.New("lifecycle conflict")

	// ErrValidation is returned for a malformed content page sequence.
	ErrValidation = errors.New("validation failed")
)
