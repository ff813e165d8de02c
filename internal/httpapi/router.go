// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

// Package httpapi exposes the blogging API over HTTP with chi.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/quillhq/quill/internal/auth"
	"github.com/quillhq/quill/internal/cache"
	"github.com/quillhq/quill/internal/content"
	"github.com/quillhq/quill/internal/observability"
)

// Authenticator handles account creation and token issuance.
type Authenticator interface {
	Signup(ctx context.Context, in auth.SignupInput) (*content.User, error)
	Login(ctx context.Context, email, password string) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
}

// SessionResolver maps a bearer token to its user.
type SessionResolver interface {
	Resolve(ctx context.Context, bearer string) (*content.User, error)
}

// ContentService performs reads and coordinated writes of blog content.
type ContentService interface {
	UpdateProfile(ctx context.Context, userID, firstName, lastName string) (*content.User, error)
	DeleteAccount(ctx context.Context, userID string) error

	CreateBlog(ctx context.Context, requesterID, title string) (*content.Blog, error)
	UpdateBlog(ctx context.Context, requesterID, blogID, title string) (*content.Blog, error)
	DeleteBlog(ctx context.Context, requesterID, blogID string) error
	GetBlog(ctx context.Context, id string) (*content.Blog, error)
	BlogIDs(ctx context.Context) ([]string, error)

	CreatePost(ctx context.Context, requesterID, blogID, body string) (*content.Post, error)
	UpdatePost(ctx context.Context, requesterID, postID, body string) (*content.Post, error)
	DeletePost(ctx context.Context, requesterID, postID string) error
	GetPost(ctx context.Context, id string) (*content.Post, error)

	CreateLike(ctx context.Context, requesterID, postID string) (*content.Like, error)
	DeleteLike(ctx context.Context, requesterID, likeID string) error
}

// ResponseCache stores rendered read responses.
type ResponseCache interface {
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, produce cache.Producer) ([]byte, error)
}

// Config wires the router's dependencies.
type Config struct {
	Auth     Authenticator
	Sessions SessionResolver
	Content  ContentService
	// Cache is optional; without it reads are computed on every request.
	Cache    ResponseCache
	CacheTTL time.Duration
	// Metrics is optional.
	Metrics        *observability.Metrics
	Logger         *slog.Logger
	AllowedOrigins []string
}

type api struct {
	auth     Authenticator
	sessions SessionResolver
	content  ContentService
	cache    ResponseCache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewRouter builds the API handler.
func NewRouter(cfg Config) (http.Handler, error) {
	if cfg.Auth == nil || cfg.Sessions == nil || cfg.Content == nil {
		return nil, oops.Code("HTTP_INVALID_CONFIG").Errorf("auth, sessions and content are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	corsMW, err := corsHandler(cfg.AllowedOrigins)
	if err != nil {
		return nil, err
	}
	if _, err := compiledSchemas(); err != nil {
		return nil, err
	}

	a := &api{
		auth:     cfg.Auth,
		sessions: cfg.Sessions,
		content:  cfg.Content,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		logger:   cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestAttrs)
	r.Use(accessLog(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(corsMW)

	r.Post("/signup", a.signup)
	r.Post("/login", a.login)
	r.Post("/refresh", a.refresh)
	r.Get("/", a.listBlogs)
	r.Get("/blogs/{id}", a.getBlog)
	r.Get("/posts/{id}", a.getPost)

	r.Group(func(r chi.Router) {
		r.Use(a.authenticate)

		r.Get("/me", a.me)
		r.Put("/update-me", a.updateMe)
		r.Delete("/delete-me", a.deleteMe)

		r.Post("/create-blog", a.createBlog)
		r.Put("/blogs/{id}", a.updateBlog)
		r.Delete("/blogs/{id}", a.deleteBlog)

		r.Post("/create-post/{blog_id}", a.createPost)
		r.Put("/posts/{id}", a.updatePost)
		r.Delete("/posts/{id}", a.deletePost)

		r.Post("/create-like/{post_id}", a.createLike)
		r.Delete("/likes/{id}", a.deleteLike)
	})

	return r, nil
}
