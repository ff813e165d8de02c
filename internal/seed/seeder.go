// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package seed

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/samber/oops"

	"github.com/quillhq/quill/internal/auth"
	"github.com/quillhq/quill/internal/content"
	"github.com/quillhq/quill/pkg/errutil"
)

// Accounts creates users.
type Accounts interface {
	Signup(ctx context.Context, in auth.SignupInput) (*content.User, error)
}

// Content is the subset of the integrity manager the seeder drives.
type Content interface {
	UserByEmail(ctx context.Context, email string) (*content.User, error)
	CreateBlog(ctx context.Context, requesterID, title string) (*content.Blog, error)
	CreatePost(ctx context.Context, requesterID, blogID, body string) (*content.Post, error)
	CreateLike(ctx context.Context, requesterID, postID string) (*content.Like, error)
}

// Result counts what a run created.
type Result struct {
	UsersCreated int
	UsersSkipped int
	Blogs        int
	Posts        int
	Likes        int
}

// Seeder replays fixtures.
type Seeder struct {
	accounts Accounts
	content  Content
	logger   *slog.Logger
}

// NewSeeder creates a Seeder. A nil logger uses slog.Default.
func NewSeeder(accounts Accounts, store Content, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{accounts: accounts, content: store, logger: logger}
}

type pendingLike struct {
	postID string
	liker  string
}

// Run creates every user in fx that does not exist yet, together with that
// user's blogs and posts, and then the likes on those posts. Users whose
// email is already registered are left untouched.
func (s *Seeder) Run(ctx context.Context, fx *Fixture) (Result, error) {
	var (
		res   Result
		ids   = make(map[string]string, len(fx.Users))
		likes []pendingLike
	)

	for _, uf := range fx.Users {
		email := strings.TrimSpace(uf.Email)
		existing, err := s.content.UserByEmail(ctx, email)
		switch {
		case err == nil:
			ids[email] = existing.ID
			res.UsersSkipped++
			s.logger.InfoContext(ctx, "seed user exists, skipping", "email", email)
			continue
		case !errors.Is(err, errutil.ErrNotFound):
			return res, oops.Code("SEED_FAILED").With("email", email).Wrap(err)
		}

		user, err := s.accounts.Signup(ctx, auth.SignupInput{
			FirstName: uf.FirstName,
			LastName:  uf.LastName,
			Email:     email,
			Password:  uf.Password,
		})
		if err != nil {
			return res, oops.Code("SEED_FAILED").With("email", email).Wrap(err)
		}
		ids[email] = user.ID
		res.UsersCreated++

		for _, bf := range uf.Blogs {
			blog, err := s.content.CreateBlog(ctx, user.ID, bf.Title)
			if err != nil {
				return res, oops.Code("SEED_FAILED").With("email", email).With("blog", bf.Title).Wrap(err)
			}
			res.Blogs++

			for _, pf := range bf.Posts {
				post, err := s.content.CreatePost(ctx, user.ID, blog.ID, pf.Content)
				if err != nil {
					return res, oops.Code("SEED_FAILED").With("email", email).With("blog_id", blog.ID).Wrap(err)
				}
				res.Posts++
				for _, liker := range pf.LikedBy {
					likes = append(likes, pendingLike{postID: post.ID, liker: strings.TrimSpace(liker)})
				}
			}
		}
	}

	for _, l := range likes {
		if _, err := s.content.CreateLike(ctx, ids[l.liker], l.postID); err != nil {
			return res, oops.Code("SEED_FAILED").With("liker", l.liker).With("post_id", l.postID).Wrap(err)
		}
		res.Likes++
	}

	s.logger.InfoContext(ctx, "seed complete",
		"users_created", res.UsersCreated,
		"users_skipped", res.UsersSkipped,
		"blogs", res.Blogs,
		"posts", res.Posts,
		"likes", res.Likes,
	)
	return res, nil
}
