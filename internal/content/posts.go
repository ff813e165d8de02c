// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package content

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// CreatePost adds a post to a blog owned by requesterID. The post is stored
// first, then linked from the author's posts and the blog's posts.
func (m *Manager) CreatePost(ctx context.Context, requesterID, blogID, body string) (post *Post, err error) {
	ctx, done := m.begin(ctx, "create_post", attribute.String("blog_id", blogID))
	defer func() { done(err) }()

	post, err = NewPost(requesterID, blogID, body)
	if err != nil {
		return nil, err
	}
	blog, err := m.blogs.Get(ctx, blogID)
	if err != nil {
		return nil, err
	}
	if blog.Author != requesterID {
		return nil, forbidden("blog", blogID)
	}

	if err := m.posts.Insert(ctx, post); err != nil {
		return nil, err
	}
	if _, err := mutate(ctx, m.users, requesterID, func(u *User) (bool, error) {
		var changed bool
		u.Posts, changed = appendID(u.Posts, post.ID)
		return changed, nil
	}); err != nil {
		return nil, err
	}
	if _, err := mutate(ctx, m.blogs, blogID, func(b *Blog) (bool, error) {
		var changed bool
		b.Posts, changed = appendID(b.Posts, post.ID)
		return changed, nil
	}); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "post created", "post_id", post.ID, "blog_id", blogID)
	return post, nil
}

// UpdatePost replaces the content of a post owned by requesterID.
func (m *Manager) UpdatePost(ctx context.Context, requesterID, postID, body string) (post *Post, err error) {
	ctx, done := m.begin(ctx, "update_post", attribute.String("post_id", postID))
	defer func() { done(err) }()

	current, err := m.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if current.Author != requesterID {
		return nil, forbidden("post", postID)
	}
	body = strings.TrimSpace(body)
	if err := ValidateContent(body); err != nil {
		return nil, err
	}

	post, err = mutate(ctx, m.posts, postID, func(p *Post) (bool, error) {
		if p.Content == body {
			return false, nil
		}
		p.Content = body
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "post updated", "post_id", postID)
	return post, nil
}

// DeletePost removes a post owned by requesterID with all of its likes.
//
// Order: for every like, unlink it from the liking user and delete it
// (users in parallel, each user's likes in sequence); unlink the post from
// its author; unlink it from its blog; delete the post. The post's own likes
// list is left as is, so a retry after a partial failure walks the same ids
// and skips the ones already gone.
func (m *Manager) DeletePost(ctx context.Context, requesterID, postID string) (err error) {
	ctx, done := m.begin(ctx, "delete_post", attribute.String("post_id", postID))
	defer func() { done(err) }()

	post, err := m.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	if post.Author != requesterID {
		return forbidden("post", postID)
	}

	if err := m.cascadeLikes(ctx, post); err != nil {
		return err
	}

	_, err = mutate(ctx, m.users, post.Author, func(u *User) (bool, error) {
		var changed bool
		u.Posts, changed = removeID(u.Posts, postID)
		return changed, nil
	})
	if err := m.skipMissing(ctx, "delete_post", CollectionUsers, post.Author, err); err != nil {
		return err
	}

	_, err = mutate(ctx, m.blogs, post.Blog, func(b *Blog) (bool, error) {
		var changed bool
		b.Posts, changed = removeID(b.Posts, postID)
		return changed, nil
	})
	if err := m.skipMissing(ctx, "delete_post", CollectionBlogs, post.Blog, err); err != nil {
		return err
	}

	if err := m.posts.Delete(ctx, postID); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "post deleted", "post_id", postID, "likes", len(post.Likes))
	return nil
}

func (m *Manager) cascadeLikes(ctx context.Context, post *Post) error {
	byUser := make(map[string][]string)
	for _, likeID := range post.Likes {
		like, err := m.likes.Get(ctx, likeID)
		if err != nil {
			if err := m.skipMissing(ctx, "delete_post", CollectionLikes, likeID, err); err != nil {
				return err
			}
			continue
		}
		byUser[like.Author] = append(byUser[like.Author], likeID)
	}

	g, gctx := errgroup.WithContext(ctx)
	for userID, likeIDs := range byUser {
		g.Go(func() error {
			for _, likeID := range likeIDs {
				_, err := mutate(gctx, m.users, userID, func(u *User) (bool, error) {
					var changed bool
					u.Likes, changed = removeID(u.Likes, likeID)
					return changed, nil
				})
				if err := m.skipMissing(gctx, "delete_post", CollectionUsers, userID, err); err != nil {
					return err
				}
				if err := m.likes.Delete(gctx, likeID); err != nil {
					return err
				}
				CascadeLikes.Inc()
			}
			return nil
		})
	}
	return g.Wait()
}
