// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picms/article/internal/model"
	"github.com/picms/article/internal/store"
	"github.com/picms/article/internal/testutil"
)

type fakeTagIndex struct {
	ids []int64
}

func (f fakeTagIndex) Count(context.Context, string, string) (int64, error) {
	return int64(len(f.ids)), nil
}

func (f fakeTagIndex) List(_ context.Context, _, _ string, limit, offset int) ([]int64, error) {
	if offset >= len(f.ids) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.ids) {
		end = len(f.ids)
	}
	return f.ids[offset:end], nil
}

func seedCategories(t *testing.T, db *store.CategoryStore) {
	t.Helper()
	ctx := context.Background()
	// 1 is the root; 2 and 3 sit under it, 4 under 3.
	require.NoError(t, db.Insert(ctx, 1, 0, "Root", "root"))
	require.NoError(t, db.Insert(ctx, 2, 1, "News", "news"))
	require.NoError(t, db.Insert(ctx, 3, 1, "Tech", "tech"))
	require.NoError(t, db.Insert(ctx, 4, 3, "Go", "go"))
}

func TestPublishedScopedByRules(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	categories := store.NewCategoryStore(db)
	seedCategories(t, categories)

	seedArticle(t, db, model.Article{
		Subject: "In scope", Slug: "in-scope", Category: 2,
		Status: model.StatusPublished, Active: true,
	})
	seedArticle(t, db, model.Article{
		Subject: "Out of scope", Slug: "out-of-scope", Category: 3,
		Status: model.StatusPublished, Active: true,
	})
	seedArticle(t, db, model.Article{
		Subject: "Not yet published", Slug: "not-yet", Category: 2,
		Status: model.StatusPending, Active: true,
	})

	svc := NewListService(store.NewArticleStore(db), categories, allowAll(2), nil, testutil.TestLoggerSilent())

	page, err := svc.Published(ctx, ListFilters{}, 1, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Articles, 1, "only published rows in permitted categories")
	assert.Equal(t, "In scope", page.Articles[0].Subject)
	assert.EqualValues(t, 1, page.Total)
}

func TestPublishedEmptyRulesForbidden(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	svc := NewListService(store.NewArticleStore(db), store.NewCategoryStore(db), denyAll(), nil, testutil.TestLoggerSilent())

	_, err := svc.Published(context.Background(), ListFilters{}, 1, 1, 20)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPublishedCategorySubtree(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	categories := store.NewCategoryStore(db)
	seedCategories(t, categories)

	seedArticle(t, db, model.Article{
		Subject: "Tech root", Slug: "tech-root", Category: 3,
		Status: model.StatusPublished, Active: true,
	})
	seedArticle(t, db, model.Article{
		Subject: "Go child", Slug: "go-child", Category: 4,
		Status: model.StatusPublished, Active: true,
	})
	seedArticle(t, db, model.Article{
		Subject: "News sibling", Slug: "news-sibling", Category: 2,
		Status: model.StatusPublished, Active: true,
	})

	svc := NewListService(store.NewArticleStore(db), categories, allowAll(2, 3, 4), nil, testutil.TestLoggerSilent())

	// Requesting category 3 covers its subtree (3 and 4) but not 2.
	page, err := svc.Published(ctx, ListFilters{Category: 3}, 1, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	for _, a := range page.Articles {
		assert.NotEqual(t, int64(2), a.Category)
	}

	// Subtree expansion still shrinks to the permitted set.
	scoped := NewListService(store.NewArticleStore(db), categories, allowAll(3), nil, testutil.TestLoggerSilent())
	page, err = scoped.Published(ctx, ListFilters{Category: 3}, 1, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total, "category 4 is in the subtree but not permitted")
}

func TestPublishedCategoryOutsideScope(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	categories := store.NewCategoryStore(db)
	seedCategories(t, categories)

	svc := NewListService(store.NewArticleStore(db), categories, allowAll(2), nil, testutil.TestLoggerSilent())

	_, err := svc.Published(context.Background(), ListFilters{Category: 3}, 1, 1, 20)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPublishedKeywordAndFilter(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	seedArticle(t, db, model.Article{
		Subject: "Go generics deep dive", Slug: "generics", Category: 2,
		Status: model.StatusPublished, Active: true,
	})
	seedArticle(t, db, model.Article{
		Subject: "Go modules, retired", Slug: "modules", Category: 2,
		Status: model.StatusPublished, Active: false,
	})
	seedArticle(t, db, model.Article{
		Subject: "Rust for Gophers", Slug: "rust", Category: 2,
		Status: model.StatusPublished, Active: true,
	})

	svc := NewListService(store.NewArticleStore(db), store.NewCategoryStore(db), allowAll(2), nil, testutil.TestLoggerSilent())

	page, err := svc.Published(ctx, ListFilters{Keyword: "go"}, 1, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total, "keyword match is case-insensitive substring")

	page, err = svc.Published(ctx, ListFilters{Keyword: "go", Filter: FilterActive}, 1, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = svc.Published(ctx, ListFilters{Filter: FilterDeactive}, 1, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, "Go modules, retired", page.Articles[0].Subject)

	_, err = svc.Published(ctx, ListFilters{Filter: "bogus"}, 1, 1, 20)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPublishedMineFilter(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	seedArticle(t, db, model.Article{
		Subject: "Mine", Slug: "mine", Category: 2, UID: 9,
		Status: model.StatusPublished, Active: true,
	})
	seedArticle(t, db, model.Article{
		Subject: "Someone else's", Slug: "someone-elses", Category: 2, UID: 3,
		Status: model.StatusPublished, Active: true,
	})

	svc := NewListService(store.NewArticleStore(db), store.NewCategoryStore(db), allowAll(2), nil, testutil.TestLoggerSilent())

	page, err := svc.Published(ctx, ListFilters{UID: 9}, 9, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, "Mine", page.Articles[0].Subject)
}

func TestPublishedOrderAndPagination(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Now().Add(-24 * time.Hour)
	for i := 0; i < 5; i++ {
		seedArticle(t, db, model.Article{
			Subject: "Entry", Slug: "entry-" + string(rune('a'+i)), Category: 2,
			Status: model.StatusPublished, Active: true,
			TimePublish: base.Add(time.Duration(i) * time.Hour).Unix(),
		})
	}

	svc := NewListService(store.NewArticleStore(db), store.NewCategoryStore(db), allowAll(2), nil, testutil.TestLoggerSilent())

	page, err := svc.Published(ctx, ListFilters{}, 1, 1, 2)
	require.NoError(t, err)
	require.Len(t, page.Articles, 2)
	assert.EqualValues(t, 5, page.Total)
	assert.Equal(t, 3, page.PageCount())
	assert.True(t, page.Articles[0].TimePublish >= page.Articles[1].TimePublish, "newest first")

	last, err := svc.Published(ctx, ListFilters{}, 1, 3, 2)
	require.NoError(t, err)
	assert.Len(t, last.Articles, 1)
}

func TestFuzzySearchTitle(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	idA := seedArticle(t, db, model.Article{
		Subject: "Alpha release notes", Slug: "alpha", Category: 2,
		Status: model.StatusPublished, Active: true,
	})
	seedArticle(t, db, model.Article{
		Subject: "Beta release notes", Slug: "beta", Category: 2,
		Status: model.StatusPublished, Active: true,
	})
	seedArticle(t, db, model.Article{
		Subject: "Alpha draft", Slug: "alpha-draft", Category: 2,
		Status: model.StatusDraft, Active: true,
	})

	svc := NewListService(store.NewArticleStore(db), store.NewCategoryStore(db), allowAll(2), nil, testutil.TestLoggerSilent())

	res, err := svc.FuzzySearch(ctx, "release", SearchTypeTitle, 1, 10, 0)
	require.NoError(t, err)
	assert.True(t, res.Status)
	assert.Len(t, res.Data, 2)
	assert.EqualValues(t, 2, res.Paginator.TotalCount)
	assert.Equal(t, 1, res.Paginator.PageCount)
	assert.Equal(t, "release", res.Paginator.Keyword)
	assert.Equal(t, SearchTypeTitle, res.Paginator.Type)

	// Excluding an id drops that row from the page.
	res, err = svc.FuzzySearch(ctx, "release", SearchTypeTitle, 1, 10, idA)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.NotEqual(t, idA, res.Data[0].ID)
}

func TestFuzzySearchLimitClamp(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	svc := NewListService(store.NewArticleStore(db), store.NewCategoryStore(db), allowAll(2), nil, testutil.TestLoggerSilent())

	res, err := svc.FuzzySearch(context.Background(), "", SearchTypeTitle, 1, 5000, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Paginator.Limit)

	res, err = svc.FuzzySearch(context.Background(), "", "", 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Paginator.CurrentPage)
	assert.Equal(t, 10, res.Paginator.Limit)
	assert.Equal(t, SearchTypeTitle, res.Paginator.Type)
}

func TestFuzzySearchTag(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	id := seedArticle(t, db, model.Article{
		Subject: "Tagged", Slug: "tagged", Category: 2,
		Status: model.StatusPublished, Active: true,
	})

	svc := NewListService(store.NewArticleStore(db), store.NewCategoryStore(db), allowAll(2),
		fakeTagIndex{ids: []int64{id}}, testutil.TestLoggerSilent())

	res, err := svc.FuzzySearch(ctx, "golang", SearchTypeTag, 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, id, res.Data[0].ID)
	assert.EqualValues(t, 1, res.Paginator.TotalCount)

	// No tag index deployed: empty result, not an error.
	bare := NewListService(store.NewArticleStore(db), store.NewCategoryStore(db), allowAll(2), nil, testutil.TestLoggerSilent())
	res, err = bare.FuzzySearch(ctx, "golang", SearchTypeTag, 1, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Data)
}

func TestFuzzySearchUnknownType(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	svc := NewListService(store.NewArticleStore(db), store.NewCategoryStore(db), allowAll(2), nil, testutil.TestLoggerSilent())
	_, err := svc.FuzzySearch(context.Background(), "x", "bogus", 1, 10, 0)
	assert.ErrorIs(t, err, ErrValidation)
}
