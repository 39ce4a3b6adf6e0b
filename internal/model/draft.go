// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Draft is a working copy of an article prior to or during edit.
// Article points at the original published article id when the draft
// originates from an edit of a published item, 0 for a brand-new
// submission. A published article has at most one live draft pointing
// at it; creating a second one replaces the first.
type Draft struct {
	ID          int64
	Article     int64
	Subject     string
	Slug        string
	Category    int64
	Cluster     int64
	Status      int
	UID         int64
	Image       string
	Markup      string
	TimePublish int64
	TimeUpdate  int64
	Content     []ContentPage
	// Detail carries the encoded compound and custom field values
	// snapshotted from the original article.
	Detail map[string]string
}

// FromArticle snapshots a published article into a draft record. The
// draft gets its own identity (ID is left zero), points back at the
// article, and starts in draft status.
func (d *Draft) FromArticle(a *Article) {
	d.Article = a.ID
	d.Subject = a.Subject
	d.Slug = a.Slug
	d.Category = a.Category
	d.Cluster = a.Cluster
	d.Status = StatusDraft
	d.UID = a.UID
	d.Image = a.Image
	d.Markup = a.Markup
	d.TimePublish = a.TimePublish
	d.TimeUpdate = a.TimeUpdate
	d.Content = make([]ContentPage, len(a.Content))
	copy(d.Content, a.Content)
}
