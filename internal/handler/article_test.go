// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picms/article/internal/cache"
	"github.com/picms/article/internal/field"
	"github.com/picms/article/internal/imaging"
	"github.com/picms/article/internal/model"
	"github.com/picms/article/internal/render"
	"github.com/picms/article/internal/rule"
	"github.com/picms/article/internal/service"
	"github.com/picms/article/internal/store"
	"github.com/picms/article/internal/testutil"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

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

func newTestRouter(t *testing.T, db *sql.DB, resolver rule.Resolver) chi.Router {
	t.Helper()

	logger := testutil.TestLoggerSilent()
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	t.Cleanup(func() { _ = c.Close() })

	articles := store.NewArticleStore(db)
	registry := field.NewRegistry()
	compiler := render.NewCompiler(store.NewCompiledStore(db), c, logger)

	h := NewArticleHandler(
		service.NewCanonicalizer(articles, articles),
		service.NewListService(articles, store.NewCategoryStore(db), resolver, nil, logger),
		service.NewDraftService(articles, store.NewDraftStore(db), registry, resolver, logger),
		service.NewDeleteCoordinator(articles, store.NewStatsStore(db), store.NewCompiledStore(db),
			store.NewVisitStore(db), registry, imaging.NewDiskStore(t.TempDir()), compiler, resolver, logger),
		service.NewStatsService(store.NewStatsStore(db), store.NewVisitStore(db), logger),
		compiler,
		articles,
		logger,
	)

	r := chi.NewRouter()
	h.Routes(r, 100, 100)
	return r
}

func seedArticle(t *testing.T, db *sql.DB, a model.Article) int64 {
	t.Helper()
	if a.TimePublish == 0 {
		a.TimePublish = time.Now().Add(-time.Hour).Unix()
	}
	if len(a.Content) == 0 {
		a.Content = []model.ContentPage{{Page: 1, Title: "Intro", Body: "**bold** text"}}
	}
	id, err := store.NewArticleStore(db).Save(context.Background(), &a)
	require.NoError(t, err)
	return id
}

func TestDetailEndpoint(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	id := seedArticle(t, db, model.Article{
		Subject: "Hello", Slug: "hello", Category: 2,
		Status: model.StatusPublished, Active: true,
		TimePublish: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC).Unix(),
	})

	r := newTestRouter(t, db, allowAll(2))

	t.Run("canonical request renders", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/article/20260501/1/hello", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Hello", body["subject"])

		pages := body["pages"].([]any)
		require.Len(t, pages, 1)
		html := pages[0].(map[string]any)["html"].(string)
		assert.Contains(t, html, "<strong>bold</strong>")
	})

	t.Run("stale slug redirects permanently", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/article/20260501/1/old-name", nil))

		require.Equal(t, http.StatusMovedPermanently, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "/hello")
	})

	t.Run("slug-only request resolves", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/article/hello", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown article is 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/article/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("detail records a visit", func(t *testing.T) {
		n, err := store.NewVisitStore(db).CountByArticle(context.Background(), id)
		require.NoError(t, err)
		assert.Positive(t, n)
	})
}

func TestDetailInactiveUnavailable(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	seedArticle(t, db, model.Article{
		Subject: "Pulled", Slug: "pulled", Category: 2,
		Status: model.StatusPublished, Active: false,
	})

	r := newTestRouter(t, db, allowAll(2))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/article/pulled", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPublishedEndpoint(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	seedArticle(t, db, model.Article{
		Subject: "Listed", Slug: "listed", Category: 2,
		Status: model.StatusPublished, Active: true,
	})

	r := newTestRouter(t, db, allowAll(2))

	req := httptest.NewRequest(http.MethodGet, "/article/published", nil)
	req.Header.Set("X-User-ID", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["total"])
}

func TestPublishedForbiddenWithoutRules(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	r := newTestRouter(t, db, rule.StaticResolver{Rules: rule.Rules{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/article/published", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateDraftEndpoint(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	id := seedArticle(t, db, model.Article{
		Subject: "Editable", Slug: "editable", Category: 2,
		Status: model.StatusPublished, Active: true,
	})

	r := newTestRouter(t, db, allowAll(2))

	req := httptest.NewRequest(http.MethodPost, "/article/1/draft", nil)
	req.Header.Set("X-User-ID", "7")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	n, err := store.NewDraftStore(db).CountByArticle(context.Background(), id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// A pending article cannot spawn a draft through this path.
	seedArticle(t, db, model.Article{
		Subject: "Pending", Slug: "pending", Category: 2,
		Status: model.StatusPending, Active: true,
	})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/article/2/draft", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	id := seedArticle(t, db, model.Article{
		Subject: "Doomed", Slug: "doomed", Category: 2,
		Status: model.StatusPublished, Active: true,
	})

	r := newTestRouter(t, db, allowAll(2))

	req := httptest.NewRequest(http.MethodPost, "/article/delete", strings.NewReader(`{"ids":[1]}`))
	req.Header.Set("X-User-ID", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body["deleted"], 1)

	_, err := store.NewArticleStore(db).Find(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrNoRow)

	// Empty id list is a client error.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/article/delete", strings.NewReader(`{"ids":[]}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchEndpoint(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	seedArticle(t, db, model.Article{
		Subject: "Release notes", Slug: "release-notes", Category: 2,
		Status: model.StatusPublished, Active: true,
	})

	r := newTestRouter(t, db, allowAll(2))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/article/search?keyword=release", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var res service.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Status)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "Release notes", res.Data[0].Subject)
	assert.EqualValues(t, 1, res.Paginator.TotalCount)
}

func TestExistsAndCountEndpoints(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	seedArticle(t, db, model.Article{
		Subject: "Unique title", Slug: "unique-title", Category: 2,
		Status: model.StatusPublished, Active: true,
	})

	r := newTestRouter(t, db, allowAll(2))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/article/exists?subject=Unique+title", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["exists"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/article/exists?subject=Missing", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["exists"])

	// The count endpoint records a visit for the given article.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/article/count?id=1", nil)
	req.Header.Set("User-Agent", chromeUA)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	n, err := store.NewVisitStore(db).CountByArticle(context.Background(), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	st, err := store.NewStatsStore(db).Get(context.Background(), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.Visits)

	// No id still succeeds without recording anything.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/article/count", nil))
	require.Equal(t, http.StatusOK, w.Code)
	n, err = store.NewVisitStore(db).CountByArticle(context.Background(), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// Missing subject parameter is a client error.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/article/exists", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := testutil.TestLoggerSilent()
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	t.Cleanup(func() { _ = c.Close() })

	articles := store.NewArticleStore(db)
	registry := field.NewRegistry()
	compiler := render.NewCompiler(store.NewCompiledStore(db), c, logger)
	resolver := allowAll(2)
	h := NewArticleHandler(
		service.NewCanonicalizer(articles, articles),
		service.NewListService(articles, store.NewCategoryStore(db), resolver, nil, logger),
		service.NewDraftService(articles, store.NewDraftStore(db), registry, resolver, logger),
		service.NewDeleteCoordinator(articles, store.NewStatsStore(db), store.NewCompiledStore(db),
			store.NewVisitStore(db), registry, imaging.NewDiskStore(t.TempDir()), compiler, resolver, logger),
		service.NewStatsService(store.NewStatsStore(db), store.NewVisitStore(db), logger),
		compiler, articles, logger,
	)

	r := chi.NewRouter()
	h.Routes(r, 1, 2) // burst of 2, then throttled

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/article/count", nil))
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, http.StatusTooManyRequests)
}
