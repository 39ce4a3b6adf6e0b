// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/picms/article/internal/model"
)

// EventStore is the row store for the system event log.
type EventStore struct {
	db *sql.DB
}

// NewEventStore creates an event store backed by db.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

// Insert appends an event row.
func (s *EventStore) Insert(ctx context.Context, e *model.Event) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO event (level, category, message, user_id, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		e.Level, e.Category, e.Message, e.UserID, e.Metadata, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// Recent returns the newest events up to limit.
func (s *EventStore) Recent(ctx context.Context, limit int) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, level, category, message, user_id, metadata, created_at FROM event ORDER BY id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		var userID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &userID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.UserID = userID
		events = append(events, e)
	}
	return events, rows.Err()
}
