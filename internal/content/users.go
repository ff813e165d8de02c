// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package content

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/quillhq/quill/internal/docstore"
	"github.com/quillhq/quill/pkg/errutil"
)

func emailTaken(email string) error {
	return errutil.Fail("CONTENT_EMAIL_TAKEN", errutil.ErrValidation, "user email already exists", "email", email)
}

// UserByEmail returns the first user in store order with the given email.
func (m *Manager) UserByEmail(ctx context.Context, email string) (*User, error) {
	users, err := m.users.FindBy(ctx, "email", email)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, errutil.Fail("CONTENT_USER_NOT_FOUND", errutil.ErrNotFound, "User not found", "email", email)
	}
	return users[0], nil
}

// RegisterUser stores a new user. A taken email is a validation failure.
func (m *Manager) RegisterUser(ctx context.Context, u *User) (err error) {
	ctx, done := m.begin(ctx, "register_user")
	defer func() { done(err) }()

	existing, err := m.users.FindBy(ctx, "email", u.Email)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return emailTaken(u.Email)
	}
	if err := m.users.Insert(ctx, u); err != nil {
		if errors.Is(err, docstore.ErrDuplicate) {
			return emailTaken(u.Email)
		}
		return err
	}
	m.logger.InfoContext(ctx, "user created", "user_id", u.ID)
	return nil
}

// SetPasswordHash replaces the stored digest of a user.
func (m *Manager) SetPasswordHash(ctx context.Context, userID, hash string) error {
	_, err := mutate(ctx, m.users, userID, func(u *User) (bool, error) {
		if u.PasswordHash == hash {
			return false, nil
		}
		u.PasswordHash = hash
		return true, nil
	})
	return err
}

// UpdateProfile changes the user's names.
func (m *Manager) UpdateProfile(ctx context.Context, userID, firstName, lastName string) (user *User, err error) {
	ctx, done := m.begin(ctx, "update_profile", attribute.String("user_id", userID))
	defer func() { done(err) }()

	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if err := ValidateName("first_name", firstName); err != nil {
		return nil, err
	}
	if err := ValidateName("last_name", lastName); err != nil {
		return nil, err
	}

	user, err = mutate(ctx, m.users, userID, func(u *User) (bool, error) {
		if u.FirstName == firstName && u.LastName == lastName {
			return false, nil
		}
		u.FirstName = firstName
		u.LastName = lastName
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "user updated", "user_id", userID)
	return user, nil
}

// DeleteAccount removes a user who no longer owns any blog, post or like.
func (m *Manager) DeleteAccount(ctx context.Context, userID string) (err error) {
	ctx, done := m.begin(ctx, "delete_account", attribute.String("user_id", userID))
	defer func() { done(err) }()

	user, err := m.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.OwnsContent() {
		return errutil.Fail("CONTENT_USER_NOT_EMPTY", errutil.ErrConflict,
			"user still owns blogs, posts or likes",
			"user_id", userID,
			"blogs", len(user.Blogs),
			"posts", len(user.Posts),
			"likes", len(user.Likes),
		)
	}
	if err := m.users.Delete(ctx, userID); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "user deleted", "user_id", userID)
	return nil
}
