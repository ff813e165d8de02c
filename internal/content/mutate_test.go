// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package content

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhq/quill/internal/docstore"
	"github.com/quillhq/quill/pkg/errutil"
)

// conflictingStore rejects the first n updates with a version conflict.
type conflictingStore struct {
	docstore.Store
	mu        sync.Mutex
	conflicts int
	saves     int
}

func (s *conflictingStore) Save(ctx context.Context, rec *docstore.Record) error {
	s.mu.Lock()
	s.saves++
	if rec.Version > 0 && s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return oops.Code("DOC_VERSION_CONFLICT").Wrap(docstore.ErrVersionConflict)
	}
	s.mu.Unlock()
	return s.Store.Save(ctx, rec)
}

func seedBlog(t *testing.T, repo *Repository[Blog, *Blog]) *Blog {
	t.Helper()
	blog, err := NewBlog("u1", "Notes")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(context.Background(), blog))
	return blog
}

func TestMutate_RetriesConflicts(t *testing.T) {
	store := &conflictingStore{Store: docstore.NewMemoryStore(), conflicts: 2}
	repo := NewRepository[Blog](store, "Blog")
	blog := seedBlog(t, repo)

	before := testutil.ToFloat64(ConflictRetries)
	got, err := mutate(context.Background(), repo, blog.ID, func(b *Blog) (bool, error) {
		var changed bool
		b.Posts, changed = appendID(b.Posts, "p1")
		return changed, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, got.Posts)
	assert.Equal(t, int64(2), got.Version)
	assert.InDelta(t, 2, testutil.ToFloat64(ConflictRetries)-before, 0)
}

func TestMutate_GivesUpAsConflict(t *testing.T) {
	store := &conflictingStore{Store: docstore.NewMemoryStore(), conflicts: 100}
	repo := NewRepository[Blog](store, "Blog")
	blog := seedBlog(t, repo)

	_, err := mutate(context.Background(), repo, blog.ID, func(b *Blog) (bool, error) {
		b.Title = "Changed"
		return true, nil
	})
	errutil.AssertKind(t, err, errutil.KindConflict)
	errutil.AssertErrorCode(t, err, "CONTENT_UPDATE_CONFLICT")
	// One insert plus five update attempts.
	assert.Equal(t, 1+mutateAttempts, store.saves)
}

func TestMutate_UnchangedSkipsSave(t *testing.T) {
	store := &conflictingStore{Store: docstore.NewMemoryStore()}
	repo := NewRepository[Blog](store, "Blog")
	blog := seedBlog(t, repo)

	got, err := mutate(context.Background(), repo, blog.ID, func(b *Blog) (bool, error) {
		var changed bool
		b.Posts, changed = removeID(b.Posts, "absent")
		return changed, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, 1, store.saves)
}

func TestMutate_MissingDocument(t *testing.T) {
	repo := NewRepository[User](docstore.NewMemoryStore(), "User")
	_, err := mutate(context.Background(), repo, "nope", func(*User) (bool, error) { return true, nil })
	errutil.AssertKind(t, err, errutil.KindNotFound)
	assert.Equal(t, "User not found", errutil.PublicMessage(err))
}

func TestIDListEdits(t *testing.T) {
	ids, changed := appendID(nil, "a")
	assert.True(t, changed)
	ids, changed = appendID(ids, "b")
	assert.True(t, changed)
	ids, changed = appendID(ids, "a")
	assert.False(t, changed)
	assert.Equal(t, []string{"a", "b"}, ids)

	ids, changed = removeID(ids, "a")
	assert.True(t, changed)
	assert.Equal(t, []string{"b"}, ids)
	ids, changed = removeID(ids, "a")
	assert.False(t, changed)
	assert.Equal(t, []string{"b"}, ids)
}

func TestRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository[Post](docstore.NewMemoryStore(), "Post")

	post, err := NewPost("u1", "b1", "  hello world  ")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, post))
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, int64(1), post.Version)
	assert.False(t, post.CreatedAt.IsZero())

	got, err := repo.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Content)
	assert.Equal(t, post.ID, got.ID)
	assert.Equal(t, int64(1), got.Version)

	found, err := repo.FindBy(ctx, "blog", "b1")
	require.NoError(t, err)
	require.Len(t, found, 1)

	exists, err := repo.Exists(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, post.ID))
	exists, err = repo.Exists(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}
