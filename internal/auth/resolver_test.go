// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhq/quill/internal/auth"
	"github.com/quillhq/quill/internal/content"
	"github.com/quillhq/quill/internal/docstore"
	"github.com/quillhq/quill/pkg/errutil"
)

func newTestManager(t *testing.T) *content.Manager {
	t.Helper()
	m := content.NewManager(docstore.NewMemoryStore())
	require.NoError(t, m.EnsureIndexes(context.Background()))
	return m
}

func registerUser(t *testing.T, m *content.Manager, email string) *content.User {
	t.Helper()
	u, err := content.NewUser("Ada", "Lovelace", email, "digest")
	require.NoError(t, err)
	require.NoError(t, m.RegisterUser(context.Background(), u))
	return u
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)
	ada := registerUser(t, manager, "ada@example.com")

	tests := []struct {
		name    string
		token   func(a *auth.TokenAuthority) string
		elapsed time.Duration
		kind    errutil.Kind
		message string
	}{
		{
			name:    "fresh token resolves",
			token:   func(a *auth.TokenAuthority) string { return mustIssue(t, a.IssueAccess, "ada@example.com") },
			elapsed: 0,
		},
		{
			name:    "token just before expiry resolves",
			token:   func(a *auth.TokenAuthority) string { return mustIssue(t, a.IssueAccess, "ada@example.com") },
			elapsed: auth.DefaultAccessTTL - time.Second,
		},
		{
			name:    "token at expiry is rejected",
			token:   func(a *auth.TokenAuthority) string { return mustIssue(t, a.IssueAccess, "ada@example.com") },
			elapsed: auth.DefaultAccessTTL,
			kind:    errutil.KindUnauthorized,
			message: "Token expired",
		},
		{
			name:    "unknown subject",
			token:   func(a *auth.TokenAuthority) string { return mustIssue(t, a.IssueAccess, "ghost@example.com") },
			kind:    errutil.KindNotFound,
			message: "User not found",
		},
		{
			name:    "refresh token is not an access token",
			token:   func(a *auth.TokenAuthority) string { return mustIssue(t, a.IssueRefresh, "ada@example.com") },
			kind:    errutil.KindForbidden,
			message: "Could not validate credentials",
		},
		{
			name:    "garbage",
			token:   func(*auth.TokenAuthority) string { return "garbage" },
			kind:    errutil.KindForbidden,
			message: "Could not validate credentials",
		},
		{
			name:    "empty bearer",
			token:   func(*auth.TokenAuthority) string { return "" },
			kind:    errutil.KindForbidden,
			message: "Could not validate credentials",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			authority := newTestAuthority(t, clock)
			resolver := auth.NewResolver(authority, manager)

			token := tt.token(authority)
			clock.Advance(tt.elapsed)

			user, err := resolver.Resolve(ctx, token)
			if tt.kind == "" {
				require.NoError(t, err)
				assert.Equal(t, ada.ID, user.ID)
				return
			}
			assert.Nil(t, user)
			errutil.AssertKind(t, err, tt.kind)
			assert.Equal(t, tt.message, errutil.PublicMessage(err))
		})
	}
}

type failingLookup struct{}

func (failingLookup) UserByEmail(context.Context, string) (*content.User, error) {
	return nil, errors.New("connection reset")
}

func TestResolve_LookupFailureIsInternal(t *testing.T) {
	authority := newTestAuthority(t, newFakeClock())
	resolver := auth.NewResolver(authority, failingLookup{})

	token := mustIssue(t, authority.IssueAccess, "ada@example.com")
	before := testutil.ToFloat64(auth.Outcomes.WithLabelValues("resolve", "internal"))

	_, err := resolver.Resolve(context.Background(), token)
	errutil.AssertKind(t, err, errutil.KindInternal)
	errutil.AssertErrorCode(t, err, "AUTH_USER_LOOKUP_FAILED")
	assert.InDelta(t, 1, testutil.ToFloat64(auth.Outcomes.WithLabelValues("resolve", "internal"))-before, 0)
}

func mustIssue(t *testing.T, issue func(string, ...time.Duration) (string, error), subject string) string {
	t.Helper()
	token, err := issue(subject)
	require.NoError(t, err)
	return token
}
