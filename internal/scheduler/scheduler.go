// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance over the article stores.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/picms/article/internal/model"
	"github.com/picms/article/internal/store"
)

// visitRetention is how long raw visit log rows are kept. Aggregated
// counters survive pruning.
const visitRetention = 90 * 24 * time.Hour

// Scheduler handles periodic cleanup: orphaned compiled rows and old
// visit log entries.
type Scheduler struct {
	compiled *store.CompiledStore
	visits   *store.VisitStore
	cron     *cron.Cron
	logger   *slog.Logger
}

// New creates a scheduler instance.
func New(compiled *store.CompiledStore, visits *store.VisitStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		compiled: compiled,
		visits:   visits,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start registers the maintenance jobs and begins the cron loop.
func (s *Scheduler) Start() error {
	// Hourly: drop compiled rows whose article is gone.
	if _, err := s.cron.AddFunc("0 * * * *", func() {
		if err := s.purgeOrphans(); err != nil {
			s.logger.Error("failed to purge orphaned compiled rows",
				"category", model.EventCategorySystem, "error", err)
		}
	}); err != nil {
		return err
	}

	// Daily at 03:30: prune the visit log past retention.
	if _, err := s.cron.AddFunc("30 3 * * *", func() {
		if err := s.pruneVisits(); err != nil {
			s.logger.Error("failed to prune visit log",
				"category", model.EventCategorySystem, "error", err)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) purgeOrphans() error {
	n, err := s.compiled.PurgeOrphans(context.Background())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("purged orphaned compiled rows",
			"category", model.EventCategoryCache, "count", n)
	}
	return nil
}

func (s *Scheduler) pruneVisits() error {
	cutoff := time.Now().Add(-visitRetention).Unix()
	n, err := s.visits.PruneBefore(context.Background(), cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("pruned visit log", "count", n)
	}
	return nil
}
