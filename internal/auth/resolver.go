// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"

	"github.com/quillhq/quill/internal/content"
	"github.com/quillhq/quill/pkg/errutil"
)

// UserLookup finds users by login email.
type UserLookup interface {
	UserByEmail(ctx context.Context, email string) (*content.User, error)
}

func invalidCredentials() error {
	return errutil.Fail("AUTH_INVALID_TOKEN", errutil.ErrForbidden, "Could not validate credentials")
}

func tokenExpired(subject string) error {
	return errutil.Fail("AUTH_TOKEN_EXPIRED", errutil.ErrUnauthorized, "Token expired", "subject", subject)
}

// Resolver turns a bearer access token into the user it names.
type Resolver struct {
	tokens *TokenAuthority
	users  UserLookup
}

// NewResolver creates a Resolver. Expiry uses the token authority's clock.
func NewResolver(tokens *TokenAuthority, users UserLookup) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve verifies bearer, rejects it once expired and loads its subject.
func (r *Resolver) Resolve(ctx context.Context, bearer string) (user *content.User, err error) {
	defer func() { recordOutcome("resolve", err) }()

	if bearer == "" {
		return nil, invalidCredentials()
	}
	claims, err := r.tokens.VerifyAccess(bearer)
	if err != nil {
		return nil, invalidCredentials()
	}
	if !r.tokens.Now().Before(claims.ExpiresAt) {
		return nil, tokenExpired(claims.Subject)
	}
	return lookupSubject(ctx, r.users, claims.Subject)
}

func lookupSubject(ctx context.Context, users UserLookup, email string) (*content.User, error) {
	user, err := users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errutil.ErrNotFound) {
			return nil, err
		}
		return nil, oops.Code("AUTH_USER_LOOKUP_FAILED").Wrap(err)
	}
	return user, nil
}
