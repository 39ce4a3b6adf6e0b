// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/picms/article/internal/field"
	"github.com/picms/article/internal/model"
	"github.com/picms/article/internal/rule"
	"github.com/picms/article/internal/store"
)

// DraftService owns the single lifecycle transition this module
// performs: published -> draft copy. The article itself is never
// modified; edits happen on the draft.
type DraftService struct {
	articles *store.ArticleStore
	drafts   *store.DraftStore
	fields   *field.Registry
	rules    rule.Resolver
	logger   *slog.Logger
}

// NewDraftService creates the draft workflow service.
func NewDraftService(articles *store.ArticleStore, drafts *store.DraftStore, fields *field.Registry, rules rule.Resolver, logger *slog.Logger) *DraftService {
	return &DraftService{
		articles: articles,
		drafts:   drafts,
		fields:   fields,
		rules:    rules,
		logger:   logger,
	}
}

// CreateFromPublished snapshots a published article and its extension
// fields into a new draft record and returns the draft id. At most one
// draft points at an article: an existing one is replaced, never
// duplicated.
func (s *DraftService) CreateFromPublished(ctx context.Context, articleID, uid int64) (int64, error) {
	a, err := s.articles.Find(ctx, articleID)
	if errors.Is(err, store.ErrNoRow) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	rules, err := s.rules.Resolve(ctx, uid)
	if err != nil {
		return 0, fmt.Errorf("resolving rules: %w", err)
	}
	if !rules.Allows(a.Category, a.Status, rule.ActionEdit) {
		return 0, ErrForbidden
	}

	// Replace, never duplicate: drop any live draft for this article
	// before anything else. An article demoted after a draft was taken
	// sheds that stale draft even when the attempt below is rejected.
	if prior, err := s.drafts.FindByArticle(ctx, articleID); err == nil {
		if err := s.drafts.Delete(ctx, prior.ID); err != nil {
			return 0, err
		}
	} else if !errors.Is(err, store.ErrNoRow) {
		return 0, err
	}

	// Only a published article may spawn an edit-draft through this
	// path.
	if a.Status != model.StatusPublished {
		return 0, ErrConflict
	}

	var d model.Draft
	d.FromArticle(a)

	// Extension data travels with the draft. A handler failure aborts
	// the whole operation; a draft with missing extension data must
	// never be persisted.
	d.Detail, err = s.fields.EncodeAll(ctx, articleID)
	if err != nil {
		return 0, err
	}

	draftID, err := s.drafts.Save(ctx, &d)
	if err != nil {
		return 0, err
	}

	s.logger.Info("draft created from published article",
		"category", model.EventCategoryDraft, "article", articleID, "draft", draftID, "uid", uid)
	return draftID, nil
}
