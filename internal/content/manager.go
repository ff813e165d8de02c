// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package content

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quillhq/quill/internal/docstore"
	"github.com/quillhq/quill/pkg/errutil"
)

const tracerName = "github.com/quillhq/quill/internal/content"

// Manager performs every multi-document write. Each create updates the
// owning side after the child is persisted; each delete updates owners
// before the child is removed. All steps are idempotent, so a client retry
// after a partial failure converges.
type Manager struct {
	store  docstore.Store
	users  *Repository[User, *User]
	blogs  *Repository[Blog, *Blog]
	posts  *Repository[Post, *Post]
	likes  *Repository[Like, *Like]
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) { m.tracer = tracer }
}

// NewManager wires repositories for all four collections over store.
func NewManager(store docstore.Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		users:  NewRepository[User](store, "User"),
		blogs:  NewRepository[Blog](store, "Blog"),
		posts:  NewRepository[Post](store, "Post"),
		likes:  NewRepository[Like](store, "Like"),
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureIndexes registers the domain indexes with the store.
func (m *Manager) EnsureIndexes(ctx context.Context) error {
	return m.store.EnsureIndexes(ctx, Indexes())
}

// begin opens a span for op; the returned func ends it and records the outcome.
func (m *Manager) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := m.tracer.Start(ctx, "content."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, errutil.PublicMessage(err))
		}
		span.End()
		recordOperation(op, err)
	}
}

// skipMissing swallows not-found errors for referents that vanished before
// a cascade reached them.
func (m *Manager) skipMissing(ctx context.Context, op, collection, id string, err error) error {
	if err == nil || !errors.Is(err, errutil.ErrNotFound) {
		return err
	}
	m.logger.WarnContext(ctx, "skipping missing referent",
		"operation", op,
		"collection", collection,
		"id", id,
	)
	MissingReferents.WithLabelValues(collection).Inc()
	return nil
}

func forbidden(entity, id string) error {
	return errutil.Fail("CONTENT_FORBIDDEN", errutil.ErrForbidden, "Someone else's "+entity, "id", id)
}

// GetUser loads a user by id.
func (m *Manager) GetUser(ctx context.Context, id string) (*User, error) {
	return m.users.Get(ctx, id)
}

// GetBlog loads a blog by id.
func (m *Manager) GetBlog(ctx context.Context, id string) (*Blog, error) {
	return m.blogs.Get(ctx, id)
}

// GetPost loads a post by id.
func (m *Manager) GetPost(ctx context.Context, id string) (*Post, error) {
	return m.posts.Get(ctx, id)
}

// GetLike loads a like by id.
func (m *Manager) GetLike(ctx context.Context, id string) (*Like, error) {
	return m.likes.Get(ctx, id)
}

// BlogIDs lists every blog id in store order.
func (m *Manager) BlogIDs(ctx context.Context) ([]string, error) {
	return m.blogs.IDs(ctx)
}
