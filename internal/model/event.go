package model

import (
	"database/sql"
	"time"
)

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryArticle = "article"
	EventCategoryDraft   = "draft"
	EventCategoryDelete  = "delete"
	EventCategoryCache   = "cache"
	EventCategorySystem  = "system"
)

// Event represents a system event log entry.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string // JSON string
	CreatedAt time.Time
}

// Visit is a single recorded view of an article.
type Visit struct {
	ID        int64
	Article   int64
	Time      int64
	IP        string
	Browser   string
	OS        string
	CreatedAt time.Time
}

// Stats holds the aggregated visit counter for an article.
type Stats struct {
	Article     int64
	Visits      int64
	TimeUpdated int64
}
