// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the article domain types: articles, drafts,
// content pages, lifecycle statuses and the dependent record rows.
package model

import (
	"fmt"
	"time"
)

// Article lifecycle statuses. An article instance moves through
// draft -> pending -> rejected/published; the integer values are
// stored in the database and must not be reordered.
const (
	StatusDraft     = 1
	StatusPending   = 2
	StatusRejected  = 3
	StatusPublished = 4
)

// statusSlugs maps each lifecycle status to the slug used when building
// permission resource keys (e.g. "published-delete"). Adding a new
// status requires adding its slug here; permission checks for an
// unknown status fail closed.
var statusSlugs = map[int]string{
	StatusDraft:     "draft",
	StatusPending:   "pending",
	StatusRejected:  "rejected",
	StatusPublished: "published",
}

// StatusSlug returns the permission slug for a lifecycle status, or ""
// if the status is unknown.
func StatusSlug(status int) string {
	return statusSlugs[status]
}

// ValidStatus reports whether status is a known lifecycle status.
func ValidStatus(status int) bool {
	_, ok := statusSlugs[status]
	return ok
}

// Article represents a published (or publishable) article row together
// with its ordered content pages.
type Article struct {
	ID          int64
	Subject     string
	Slug        string
	Category    int64
	Cluster     int64
	Status      int
	Active      bool
	TimePublish int64 // epoch seconds; future values mean scheduled
	TimeUpdate  int64
	UID         int64
	Image       string // feature image path, empty if none
	Markup      string
	Content     []ContentPage
}

// ContentPage is a single page of article content. Pages are contiguous
// integers starting at 1.
type ContentPage struct {
	Page  int
	Title string
	Body  string
}

// IsPublished returns true if the article has published status.
func (a *Article) IsPublished() bool {
	return a.Status == StatusPublished
}

// Visible reports whether the article is publicly visible at time now:
// the publish time must not be in the future.
func (a *Article) Visible(now time.Time) bool {
	return a.TimePublish <= now.Unix()
}

// ValidateContent checks the content page sequence: pages must be
// contiguous integers starting at 1, and an article with zero pages is
// invalid for publication.
func ValidateContent(pages []ContentPage) error {
	if len(pages) == 0 {
		return fmt.Errorf("article has no content pages")
	}
	for i, p := range pages {
		if p.Page != i+1 {
			return fmt.Errorf("content page %d has index %d, want %d", i, p.Page, i+1)
		}
	}
	return nil
}
