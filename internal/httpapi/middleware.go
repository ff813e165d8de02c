// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/quillhq/quill/internal/content"
	"github.com/quillhq/quill/internal/logging"
	"github.com/quillhq/quill/internal/observability"
)

type userKey struct{}

// currentUser returns the user attached by authenticate.
func currentUser(ctx context.Context) *content.User {
	u, _ := ctx.Value(userKey{}).(*content.User)
	return u
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// Any other form yields "".
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticate resolves the bearer token and stores the user in the context.
func (a *api) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.sessions.Resolve(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, r, a.logger, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, user)
		ctx = logging.WithAttrs(ctx, slog.String("user_id", user.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestAttrs tags every log record of the request with its id.
func requestAttrs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithAttrs(r.Context(), slog.String("request_id", middleware.GetReqID(r.Context())))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accessLog logs each request and records its route metrics.
func accessLog(logger *slog.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)

			if metrics != nil {
				metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
				metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
			}
			logger.InfoContext(r.Context(), "request handled",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", status,
				"duration_ms", elapsed.Milliseconds(),
			)
		})
	}
}

// corsHandler allows origins matching any of the glob patterns.
func corsHandler(patterns []string) (func(http.Handler) http.Handler, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, oops.Code("HTTP_INVALID_ORIGIN").With("pattern", p).Wrap(err)
		}
		globs = append(globs, g)
	}

	return cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			for _, g := range globs {
				if g.Match(origin) {
					return true
				}
			}
			return false
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"WWW-Authenticate"},
		AllowCredentials: false,
		MaxAge:           300,
	}), nil
}
