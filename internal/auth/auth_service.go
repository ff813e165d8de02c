// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/quillhq/quill/internal/content"
	"github.com/quillhq/quill/pkg/errutil"
)

// TokenTypeBearer is the token_type reported with issued token pairs.
const TokenTypeBearer = "bearer"

// CredentialStore is the slice of the content manager the service needs.
type CredentialStore interface {
	UserLookup
	RegisterUser(ctx context.Context, u *content.User) error
	SetPasswordHash(ctx context.Context, userID, hash string) error
}

// SignupInput carries the fields of a new account.
type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// TokenPair is the result of a login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Service provides signup, login and token refresh.
type Service struct {
	users  CredentialStore
	hasher PasswordHasher
	tokens *TokenAuthority
	logger *slog.Logger

	// dummyDigest is verified against when the email is unknown so both
	// failure paths cost one hash comparison.
	dummyDigest string
}

// NewAuthService creates a Service. A nil logger uses slog.Default().
func NewAuthService(users CredentialStore, hasher PasswordHasher, tokens *TokenAuthority, logger *slog.Logger) (*Service, error) {
	if users == nil || hasher == nil || tokens == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("users, hasher and tokens are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	dummy, err := hasher.Hash("dummy-" + ulid.Make().String())
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").With("operation", "hash dummy password").Wrap(err)
	}
	return &Service{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		logger:      logger,
		dummyDigest: dummy,
	}, nil
}

// Signup validates in, hashes the password and registers the user.
func (s *Service) Signup(ctx context.Context, in SignupInput) (user *content.User, err error) {
	defer func() { recordOutcome("signup", err) }()

	if err := content.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	user, err = content.NewUser(in.FirstName, in.LastName, in.Email, "")
	if err != nil {
		return nil, err
	}
	user.PasswordHash, err = s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	if err := s.users.RegisterUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the email and password and issues a token pair. Unknown
// emails and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (pair *TokenPair, err error) {
	defer func() { recordOutcome("login", err) }()

	user, lookupErr := s.users.UserByEmail(ctx, email)
	digest := s.dummyDigest
	switch {
	case lookupErr == nil:
		digest = user.PasswordHash
	case !errors.Is(lookupErr, errutil.ErrNotFound):
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	valid := s.hasher.Verify(password, digest)
	if lookupErr != nil || !valid {
		return nil, errutil.Fail("AUTH_INVALID_CREDENTIALS", errutil.ErrInvalidCredentials,
			"Incorrect email or password")
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, password)
	}

	pair, err = s.issuePair(user.Email)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "login succeeded", "user_id", user.ID)
	return pair, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (pair *TokenPair, err error) {
	defer func() { recordOutcome("refresh", err) }()

	if refreshToken == "" {
		return nil, invalidCredentials()
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, invalidCredentials()
	}
	if !s.tokens.Now().Before(claims.ExpiresAt) {
		return nil, tokenExpired(claims.Subject)
	}
	user, err := lookupSubject(ctx, s.users, claims.Subject)
	if err != nil {
		return nil, err
	}
	return s.issuePair(user.Email)
}

func (s *Service) issuePair(email string) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(email)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(email)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: TokenTypeBearer}, nil
}

// upgradeHash rehashes with the current scheme. Failure does not fail login.
func (s *Service) upgradeHash(ctx context.Context, userID, password string) {
	digest, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.SetPasswordHash(ctx, userID, digest)
	}
	if err != nil {
		errutil.LogError(ctx, s.logger.With("user_id", userID), "password rehash failed", err)
		return
	}
	s.logger.InfoContext(ctx, "password hash upgraded", "user_id", userID)
}
