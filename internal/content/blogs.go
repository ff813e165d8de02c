// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package content

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/quillhq/quill/pkg/errutil"
)

// CreateBlog persists a blog owned by requesterID, then links it from the
// author's blogs list.
func (m *Manager) CreateBlog(ctx context.Context, requesterID, title string) (blog *Blog, err error) {
	ctx, done := m.begin(ctx, "create_blog", attribute.String("user_id", requesterID))
	defer func() { done(err) }()

	blog, err = NewBlog(requesterID, title)
	if err != nil {
		return nil, err
	}
	if err := m.blogs.Insert(ctx, blog); err != nil {
		return nil, err
	}

	if _, err := mutate(ctx, m.users, requesterID, func(u *User) (bool, error) {
		var changed bool
		u.Blogs, changed = appendID(u.Blogs, blog.ID)
		return changed, nil
	}); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "blog created", "user_id", requesterID, "blog_id", blog.ID)
	return blog, nil
}

// UpdateBlog changes the title of a blog owned by requesterID.
func (m *Manager) UpdateBlog(ctx context.Context, requesterID, blogID, title string) (blog *Blog, err error) {
	ctx, done := m.begin(ctx, "update_blog", attribute.String("blog_id", blogID))
	defer func() { done(err) }()

	current, err := m.blogs.Get(ctx, blogID)
	if err != nil {
		return nil, err
	}
	if current.Author != requesterID {
		return nil, forbidden("blog", blogID)
	}
	title = strings.TrimSpace(title)
	if err := ValidateTitle(title); err != nil {
		return nil, err
	}

	blog, err = mutate(ctx, m.blogs, blogID, func(b *Blog) (bool, error) {
		if b.Title == title {
			return false, nil
		}
		b.Title = title
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "blog updated", "blog_id", blogID)
	return blog, nil
}

// DeleteBlog removes an empty blog owned by requesterID. Ownership is
// checked before emptiness, and both before any write.
func (m *Manager) DeleteBlog(ctx context.Context, requesterID, blogID string) (err error) {
	ctx, done := m.begin(ctx, "delete_blog", attribute.String("blog_id", blogID))
	defer func() { done(err) }()

	blog, err := m.blogs.Get(ctx, blogID)
	if err != nil {
		return err
	}
	if blog.Author != requesterID {
		return forbidden("blog", blogID)
	}
	if len(blog.Posts) > 0 {
		return errutil.Fail("CONTENT_BLOG_NOT_EMPTY", errutil.ErrConflict, "blog not empty",
			"blog_id", blogID,
			"posts", len(blog.Posts),
		)
	}

	_, err = mutate(ctx, m.users, blog.Author, func(u *User) (bool, error) {
		var changed bool
		u.Blogs, changed = removeID(u.Blogs, blogID)
		return changed, nil
	})
	if err := m.skipMissing(ctx, "delete_blog", CollectionUsers, blog.Author, err); err != nil {
		return err
	}

	if err := m.blogs.Delete(ctx, blogID); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "blog deleted", "blog_id", blogID)
	return nil
}
