// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler exposes the article module over HTTP as JSON
// endpoints. Identity is external: the acting user id arrives on the
// X-User-ID header and authorization happens in the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/picms/article/internal/render"
	"github.com/picms/article/internal/service"
	"github.com/picms/article/internal/store"
)

// ArticleHandler serves article detail, listing, draft, deletion and
// search endpoints.
type ArticleHandler struct {
	canonical *service.Canonicalizer
	lists     *service.ListService
	drafts    *service.DraftService
	deleter   *service.DeleteCoordinator
	stats     *service.StatsService
	compiler  *render.Compiler
	articles  *store.ArticleStore
	logger    *slog.Logger
}

// NewArticleHandler creates the article HTTP handler.
func NewArticleHandler(
	canonical *service.Canonicalizer,
	lists *service.ListService,
	drafts *service.DraftService,
	deleter *service.DeleteCoordinator,
	stats *service.StatsService,
	compiler *render.Compiler,
	articles *store.ArticleStore,
	logger *slog.Logger,
) *ArticleHandler {
	return &ArticleHandler{
		canonical: canonical,
		lists:     lists,
		drafts:    drafts,
		deleter:   deleter,
		stats:     stats,
		compiler:  compiler,
		articles:  articles,
		logger:    logger,
	}
}

// actingUID reads the acting user id injected by the authenticating
// frontend. Zero means anonymous.
func actingUID(r *http.Request) int64 {
	uid, _ := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	return uid
}

func urlParamInt(r *http.Request, name string) int64 {
	n, _ := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return n
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

// Detail serves the canonical article page. A request under a stale
// slug is answered with a permanent redirect to the canonical address;
// a scheduled or missing article is 404; an inactive one is 503.
func (h *ArticleHandler) Detail(w http.ResponseWriter, r *http.Request) {
	req := service.DetailRequest{
		ID:     urlParamInt(r, "id"),
		Slug:   chi.URLParam(r, "slug"),
		Page:   int(urlParamInt(r, "page")),
		Remain: r.URL.Query().Get("r"),
	}

	out, err := h.canonical.Canonicalize(r.Context(), req)
	if err != nil {
		h.logger.Error("canonicalizing detail request", "error", err, "id", req.ID, "slug", req.Slug)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	switch out.Kind {
	case service.OutcomeNotFound:
		writeJSONError(w, http.StatusNotFound, "Article not found")
	case service.OutcomeForbidden:
		writeJSONError(w, http.StatusServiceUnavailable, "Article unavailable")
	case service.OutcomeRedirect:
		http.Redirect(w, r, out.RedirectURL, out.RedirectStatus)
	case service.OutcomeRendered:
		h.serveView(w, r, out.View)
	}
}

type detailPage struct {
	Page  int    `json:"page"`
	Title string `json:"title,omitempty"`
	HTML  string `json:"html"`
	URL   string `json:"url"`
}

func (h *ArticleHandler) serveView(w http.ResponseWriter, r *http.Request, view *service.ArticleView) {
	a := view.Article

	pages := make([]detailPage, 0, len(view.Pages))
	for _, p := range view.Pages {
		html, err := h.compiler.CompiledPage(r.Context(), a.ID, p.Page)
		if errors.Is(err, store.ErrNoRow) {
			// Not compiled yet: render on the fly. The scheduler and
			// publish path keep the compiled store warm in steady state.
			html, err = h.compiler.Render(p.Body)
		}
		if err != nil {
			h.logger.Error("rendering article page", "error", err, "article", a.ID, "page", p.Page)
			writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		pages = append(pages, detailPage{Page: p.Page, Title: p.Title, HTML: html, URL: p.URL})
	}

	if err := h.stats.RecordVisit(r.Context(), a.ID, clientIP(r), r.UserAgent()); err != nil {
		h.logger.Warn("recording visit failed", "error", err, "article", a.ID)
	}

	writeJSONSuccess(w, map[string]any{
		"id":          a.ID,
		"subject":     a.Subject,
		"slug":        a.Slug,
		"page":        view.Page,
		"showTitle":   view.ShowTitle,
		"viewUrl":     view.ViewURL,
		"remainUrl":   view.RemainURL,
		"pages":       pages,
		"publishTime": a.TimePublish,
	})
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// Published serves one page of the permission-scoped published listing.
func (h *ArticleHandler) Published(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := service.ListFilters{
		Category: int64(queryInt(r, "category")),
		Cluster:  int64(queryInt(r, "cluster")),
		Keyword:  q.Get("keyword"),
		Filter:   q.Get("filter"),
	}
	if q.Get("from") == "my" {
		filters.UID = actingUID(r)
	}

	page, err := h.lists.Published(r.Context(), filters, actingUID(r), queryInt(r, "p"), queryInt(r, "limit"))
	switch {
	case errors.Is(err, service.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "Not allowed")
		return
	case errors.Is(err, service.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("listing published articles", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSONSuccess(w, map[string]any{
		"articles":  page.Articles,
		"total":     page.Total,
		"page":      page.Page,
		"pageCount": page.PageCount(),
	})
}

// CreateDraft snapshots a published article into an edit draft.
func (h *ArticleHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	id := urlParamInt(r, "id")

	draftID, err := h.drafts.CreateFromPublished(r.Context(), id, actingUID(r))
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "Article not found")
		return
	case errors.Is(err, service.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "Not allowed")
		return
	case errors.Is(err, service.ErrConflict):
		writeJSONError(w, http.StatusConflict, "Article is not published")
		return
	case err != nil:
		h.logger.Error("creating draft", "error", err, "article", id)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSONSuccess(w, map[string]any{"draft": draftID})
}

type deleteRequest struct {
	IDs []int64 `json:"ids"`
}

// Delete removes the requested articles and all their dependent data.
// Rows the acting user may not delete are reported as skipped, not as
// an error.
func (h *ArticleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeJSONError(w, http.StatusBadRequest, "No article ids given")
		return
	}

	report, err := h.deleter.DeleteArticles(r.Context(), req.IDs, actingUID(r), false)
	if err != nil {
		h.logger.Error("deleting articles", "error", err, "ids", req.IDs)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSONSuccess(w, map[string]any{
		"deleted":  report.Deleted,
		"skipped":  report.Skipped,
		"failures": report.Failures,
	})
}

// FuzzySearch serves the article picker and autocomplete lookups.
func (h *ArticleHandler) FuzzySearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	exclude, _ := strconv.ParseInt(q.Get("exclude"), 10, 64)

	res, err := h.lists.FuzzySearch(r.Context(), q.Get("keyword"), q.Get("type"),
		queryInt(r, "page"), queryInt(r, "limit"), exclude)
	switch {
	case errors.Is(err, service.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("fuzzy search", "error", err, "keyword", q.Get("keyword"))
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, res)
}

// SubjectExists reports whether another article already uses a subject.
func (h *ArticleHandler) SubjectExists(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")
	if subject == "" {
		writeJSONError(w, http.StatusBadRequest, "No subject given")
		return
	}
	exclude, _ := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)

	exists, err := h.articles.SubjectExists(r.Context(), subject, exclude)
	if err != nil {
		h.logger.Error("checking subject", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSONSuccess(w, map[string]any{"exists": exists})
}

// Count records one view of an article, the AJAX counterpart of the
// implicit counting on detail requests. A missing or unparseable id is
// not an error; the counter is best-effort.
func (h *ArticleHandler) Count(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if id > 0 {
		if err := h.stats.RecordVisit(r.Context(), id, clientIP(r), r.UserAgent()); err != nil {
			h.logger.Error("recording visit", "error", err, "article", id)
			writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
	}
	writeJSONSuccess(w, map[string]any{"message": "success"})
}
