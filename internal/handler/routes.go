// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// RateLimit returns middleware that throttles a route group with a
// shared token bucket. Used on the public search and count endpoints.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeJSONError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Routes mounts all article endpoints on r. searchLimit and
// searchBurst throttle the public JSON lookups.
func (h *ArticleHandler) Routes(r chi.Router, searchLimit float64, searchBurst int) {
	r.Route("/article", func(r chi.Router) {
		r.Get("/published", h.Published)
		r.Post("/delete", h.Delete)
		r.Post("/{id:[0-9]+}/draft", h.CreateDraft)

		// Public JSON lookups, rate limited.
		r.Group(func(r chi.Router) {
			r.Use(RateLimit(searchLimit, searchBurst))
			r.Get("/search", h.FuzzySearch)
			r.Get("/exists", h.SubjectExists)
			r.Get("/count", h.Count)
		})

		// Canonical detail addresses; slug-only form last.
		r.Get("/{date:[0-9]{8}}/{id:[0-9]+}/{slug}/{page:[0-9]+}", h.Detail)
		r.Get("/{date:[0-9]{8}}/{id:[0-9]+}/{slug}", h.Detail)
		r.Get("/{slug}", h.Detail)
	})
}
