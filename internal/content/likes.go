// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package content

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// CreateLike records that requesterID likes postID. The like is stored, then
// linked from the user's likes and the post's likes.
func (m *Manager) CreateLike(ctx context.Context, requesterID, postID string) (like *Like, err error) {
	ctx, done := m.begin(ctx, "create_like", attribute.String("post_id", postID))
	defer func() { done(err) }()

	if err := requireExists(ctx, m.posts, postID); err != nil {
		return nil, err
	}
	if err := requireExists(ctx, m.users, requesterID); err != nil {
		return nil, err
	}

	like = &Like{Author: requesterID, Post: postID}
	if err := m.likes.Insert(ctx, like); err != nil {
		return nil, err
	}
	if _, err := mutate(ctx, m.users, requesterID, func(u *User) (bool, error) {
		var changed bool
		u.Likes, changed = appendID(u.Likes, like.ID)
		return changed, nil
	}); err != nil {
		return nil, err
	}
	if _, err := mutate(ctx, m.posts, postID, func(p *Post) (bool, error) {
		var changed bool
		p.Likes, changed = appendID(p.Likes, like.ID)
		return changed, nil
	}); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "like created", "like_id", like.ID, "post_id", postID)
	return like, nil
}

// DeleteLike removes a like owned by requesterID after unlinking it from the
// post and then from the user.
func (m *Manager) DeleteLike(ctx context.Context, requesterID, likeID string) (err error) {
	ctx, done := m.begin(ctx, "delete_like", attribute.String("like_id", likeID))
	defer func() { done(err) }()

	like, err := m.likes.Get(ctx, likeID)
	if err != nil {
		return err
	}
	if like.Author != requesterID {
		return forbidden("like", likeID)
	}

	_, err = mutate(ctx, m.posts, like.Post, func(p *Post) (bool, error) {
		var changed bool
		p.Likes, changed = removeID(p.Likes, likeID)
		return changed, nil
	})
	if err := m.skipMissing(ctx, "delete_like", CollectionPosts, like.Post, err); err != nil {
		return err
	}

	_, err = mutate(ctx, m.users, like.Author, func(u *User) (bool, error) {
		var changed bool
		u.Likes, changed = removeID(u.Likes, likeID)
		return changed, nil
	})
	if err := m.skipMissing(ctx, "delete_like", CollectionUsers, like.Author, err); err != nil {
		return err
	}

	if err := m.likes.Delete(ctx, likeID); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "like deleted", "like_id", likeID)
	return nil
}
