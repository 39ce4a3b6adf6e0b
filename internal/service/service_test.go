// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/picms/article/internal/model"
	"github.com/picms/article/internal/rule"
	"github.com/picms/article/internal/store"
	"github.com/picms/article/internal/testutil"
)

// seedArticle inserts an article and returns its id.
func seedArticle(t *testing.T, db *sql.DB, a model.Article) int64 {
	t.Helper()
	if a.TimePublish == 0 {
		a.TimePublish = time.Now().Add(-time.Hour).Unix()
	}
	if len(a.Content) == 0 {
		a.Content = []model.ContentPage{{Page: 1, Title: "Page one", Body: "Body"}}
	}
	id, err := store.NewArticleStore(db).Save(context.Background(), &a)
	if err != nil {
		t.Fatalf("seeding article: %v", err)
	}
	return id
}

// allowAll grants every action on every listed category for all
// lifecycle statuses.
func allowAll(categories ...int64) rule.Resolver {
	rules := rule.Rules{}
	for _, c := range categories {
		perms := map[string]bool{}
		for _, status := range []int{model.StatusDraft, model.StatusPending, model.StatusRejected, model.StatusPublished} {
			perms[rule.Resource(status, rule.ActionEdit)] = true
			perms[rule.Resource(status, rule.ActionDelete)] = true
		}
		rules[c] = perms
	}
	return rule.StaticResolver{Rules: rules}
}

// denyAll grants nothing.
func denyAll() rule.Resolver {
	return rule.StaticResolver{Rules: rule.Rules{}}
}

func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	return testutil.TestDB(t)
}
