// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhq/quill/internal/auth"
	"github.com/quillhq/quill/internal/content"
)

// rehashFailingStore wraps a manager and refuses password updates.
type rehashFailingStore struct {
	*content.Manager
}

func (rehashFailingStore) SetPasswordHash(context.Context, string, string) error {
	return errors.New("store unavailable")
}

func TestLogin_RehashFailureIsLoggedNotReturned(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)
	legacy, err := content.NewUser("Grace", "Hopper", "grace@example.com", legacyDigest(t, "cobol-rules"))
	require.NoError(t, err)
	require.NoError(t, manager.RegisterUser(ctx, legacy))

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	svc, err := auth.NewAuthService(rehashFailingStore{manager}, newTestHasher(t), newTestAuthority(t, newFakeClock()), logger)
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "grace@example.com", "cobol-rules")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	var found bool
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["msg"] != "password rehash failed" {
			continue
		}
		found = true
		assert.Equal(t, "ERROR", entry["level"])
		assert.Equal(t, legacy.ID, entry["user_id"])
	}
	assert.True(t, found, "expected rehash failure to be logged")
	assert.NotContains(t, buf.String(), "cobol-rules")
}
