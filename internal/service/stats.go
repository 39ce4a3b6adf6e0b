// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"log/slog"

	"github.com/mileusna/useragent"

	"github.com/picms/article/internal/model"
	"github.com/picms/article/internal/store"
)

// StatsService records article views: one row in the visit log plus a
// bump of the aggregated counter.
type StatsService struct {
	stats  *store.StatsStore
	visits *store.VisitStore
	logger *slog.Logger
}

// NewStatsService creates the stats service.
func NewStatsService(stats *store.StatsStore, visits *store.VisitStore, logger *slog.Logger) *StatsService {
	return &StatsService{stats: stats, visits: visits, logger: logger}
}

// RecordVisit logs a view of an article. The user agent string is
// parsed into browser and OS; a counter failure after a successful log
// insert is logged but not returned, the view was recorded.
func (s *StatsService) RecordVisit(ctx context.Context, article int64, ip, userAgent string) error {
	ua := useragent.Parse(userAgent)

	v := model.Visit{
		Article: article,
		IP:      ip,
		Browser: ua.Name,
		OS:      ua.OS,
	}
	if err := s.visits.Insert(ctx, &v); err != nil {
		return err
	}

	if err := s.stats.AddVisit(ctx, article); err != nil {
		s.logger.Warn("visit counter update failed",
			"category", model.EventCategoryArticle, "article", article, "error", err)
	}
	return nil
}

// Visits returns the aggregated visit count for an article.
func (s *StatsService) Visits(ctx context.Context, article int64) (int64, error) {
	st, err := s.stats.Get(ctx, article)
	if err != nil {
		return 0, err
	}
	return st.Visits, nil
}
