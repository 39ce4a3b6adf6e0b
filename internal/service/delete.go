// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/picms/article/internal/field"
	"github.com/picms/article/internal/imaging"
	"github.com/picms/article/internal/model"
	"github.com/picms/article/internal/render"
	"github.com/picms/article/internal/rule"
	"github.com/picms/article/internal/store"
)

// Deletion step names as reported in a DeletionReport.
const (
	StepImage    = "image"
	StepStats    = "stats"
	StepCompiled = "compiled"
	StepFields   = "fields"
	StepVisits   = "visits"
	StepArticles = "articles"
	StepCache    = "cache"
)

// StepFailure records one failed deletion sub-step. The coordinator
// keeps going; the caller surfaces the report.
type StepFailure struct {
	Step   string `json:"step"`
	Detail string `json:"detail"`
}

// DeletionReport summarizes a cascading delete: which ids went
// through, which were skipped by the permission filter, and which
// sub-steps failed along the way.
type DeletionReport struct {
	Deleted  []int64       `json:"deleted"`
	Skipped  []int64       `json:"skipped"`
	Failures []StepFailure `json:"failures,omitempty"`
}

// Partial reports whether any sub-step failed.
func (r *DeletionReport) Partial() bool {
	return len(r.Failures) > 0
}

func (r *DeletionReport) fail(step string, err error) {
	r.Failures = append(r.Failures, StepFailure{Step: step, Detail: err.Error()})
}

// DeleteCoordinator removes articles together with every dependent
// record and file. Steps are independent and best-effort: a failing
// step is recorded but never blocks the remaining steps, because the
// dependent stores share no transaction manager.
type DeleteCoordinator struct {
	articles *store.ArticleStore
	stats    *store.StatsStore
	compiled *store.CompiledStore
	visits   *store.VisitStore
	fields   *field.Registry
	files    FileStore
	compiler *render.Compiler
	rules    rule.Resolver
	logger   *slog.Logger
}

// NewDeleteCoordinator creates the deletion coordinator.
func NewDeleteCoordinator(
	articles *store.ArticleStore,
	stats *store.StatsStore,
	compiled *store.CompiledStore,
	visits *store.VisitStore,
	fields *field.Registry,
	files FileStore,
	compiler *render.Compiler,
	rules rule.Resolver,
	logger *slog.Logger,
) *DeleteCoordinator {
	return &DeleteCoordinator{
		articles: articles,
		stats:    stats,
		compiled: compiled,
		visits:   visits,
		fields:   fields,
		files:    files,
		compiler: compiler,
		rules:    rules,
		logger:   logger,
	}
}

// DeleteArticles removes the articles the acting user is authorized to
// delete and all their dependent data. Unauthorized ids are silently
// skipped, matching bulk-delete semantics where a partial selection is
// not an error. bypassAuth skips the permission filter entirely
// (administrative callers).
func (c *DeleteCoordinator) DeleteArticles(ctx context.Context, ids []int64, uid int64, bypassAuth bool) (*DeletionReport, error) {
	report := &DeletionReport{}
	if len(ids) == 0 {
		return report, nil
	}

	rows, err := c.articles.Select(ctx, store.NewWhere().In("id", ids), "", 0, 0)
	if err != nil {
		return nil, err
	}

	var rules rule.Rules
	if !bypassAuth {
		rules, err = c.rules.Resolve(ctx, uid)
		if err != nil {
			return nil, fmt.Errorf("resolving rules: %w", err)
		}
	}

	// Authorization filter: each row needs {lifecycle-slug}-delete for
	// its own category. Requested ids with no row at all are skipped
	// too.
	found := make(map[int64]bool, len(rows))
	var authorized []model.Article
	for _, a := range rows {
		found[a.ID] = true
		if bypassAuth || rules.Allows(a.Category, a.Status, rule.ActionDelete) {
			authorized = append(authorized, a)
			report.Deleted = append(report.Deleted, a.ID)
		} else {
			report.Skipped = append(report.Skipped, a.ID)
		}
	}
	for _, id := range ids {
		if !found[id] {
			report.Skipped = append(report.Skipped, id)
		}
	}
	if len(authorized) == 0 {
		return report, nil
	}

	authorizedIDs := make([]int64, len(authorized))
	for i, a := range authorized {
		authorizedIDs[i] = a.ID
	}

	// Step 1: feature images and their thumbnails. Missing files are
	// fine; anything else is reported.
	for _, a := range authorized {
		if a.Image == "" {
			continue
		}
		if err := c.files.Remove(a.Image); err != nil {
			report.fail(StepImage, fmt.Errorf("article %d image: %w", a.ID, err))
		}
		if err := c.files.Remove(imaging.ThumbFromOriginal(a.Image)); err != nil {
			report.fail(StepImage, fmt.Errorf("article %d thumbnail: %w", a.ID, err))
		}
	}

	// Step 2: statistics and compiled render rows.
	if err := c.stats.DeleteByArticles(ctx, authorizedIDs); err != nil {
		report.fail(StepStats, err)
	}
	if err := c.compiled.DeleteByArticles(ctx, authorizedIDs); err != nil {
		report.fail(StepCompiled, err)
	}

	// Step 3: compound and custom field handlers. Each handler runs
	// even if an earlier one failed.
	for _, kind := range []string{field.KindCompound, field.KindCustom} {
		for _, name := range c.fields.Names(kind) {
			h, err := c.fields.Handler(kind, name)
			if err != nil {
				report.fail(StepFields, err)
				continue
			}
			if err := h.Delete(ctx, authorizedIDs); err != nil {
				report.fail(StepFields, fmt.Errorf("%s handler %q: %w", kind, name, err))
			}
		}
	}

	// Step 4: visit log rows.
	if err := c.visits.DeleteByArticles(ctx, authorizedIDs); err != nil {
		report.fail(StepVisits, err)
	}

	// Step 5: the article rows themselves, last. A dangling article
	// with no dependents is recoverable; dangling dependents are not.
	if err := c.articles.DeleteByIDs(ctx, authorizedIDs); err != nil {
		report.fail(StepArticles, err)
	}

	// Step 6: module-wide render cache flush; composed pages may span
	// articles, so per-id invalidation is not enough.
	if err := c.compiler.FlushModule(ctx); err != nil {
		report.fail(StepCache, err)
	}

	if report.Partial() {
		c.logger.Warn("article deletion completed with failures",
			"category", model.EventCategoryDelete, "deleted", report.Deleted,
			"skipped", report.Skipped, "failures", len(report.Failures))
	} else {
		c.logger.Info("articles deleted",
			"category", model.EventCategoryDelete, "deleted", report.Deleted, "skipped", report.Skipped)
	}
	return report, nil
}
