// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package auth_test

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/quillhq/quill/internal/auth"
	"github.com/quillhq/quill/pkg/errutil"
)

func newTestHasher(t *testing.T) *auth.BcryptHasher {
	t.Helper()
	h, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

// legacyDigest encodes password the way older accounts were stored.
func legacyDigest(t *testing.T, password string) string {
	t.Helper()
	salt := make([]byte, 16)
	_, err := rand.Read(salt)
	require.NoError(t, err)
	key := argon2.IDKey([]byte(password), salt, 1, 8*1024, 2, 32)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, 8*1024, 1, 2,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

func TestNewBcryptHasher_RejectsCost(t *testing.T) {
	_, err := auth.NewBcryptHasher(bcrypt.MaxCost + 1)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_COST")
	_, err = auth.NewBcryptHasher(1)
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	hasher := newTestHasher(t)

	t.Run("produces bcrypt digest", func(t *testing.T) {
		digest, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(digest, "$2a$"))
	})

	t.Run("same password produces different digests", func(t *testing.T) {
		d1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		d2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, d1, d2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
		errutil.AssertKind(t, err, errutil.KindValidation)
	})

	t.Run("rejects input bcrypt would truncate", func(t *testing.T) {
		_, err := hasher.Hash(strings.Repeat("é", 40))
		errutil.AssertErrorCode(t, err, "AUTH_PASSWORD_TOO_LONG")
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := newTestHasher(t)
	digest, err := hasher.Hash("correctpassword")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		digest   string
		want     bool
	}{
		{"correct password", "correctpassword", digest, true},
		{"wrong password", "wrongpassword", digest, false},
		{"legacy argon2id digest", "legacypass", legacyDigest(t, "legacypass"), true},
		{"legacy argon2id wrong password", "nope-nope", legacyDigest(t, "legacypass"), false},
		{"empty digest", "correctpassword", "", false},
		{"garbage digest", "correctpassword", "not-a-digest", false},
		{"truncated bcrypt digest", "correctpassword", digest[:20], false},
		{"argon2id with bad base64", "x", "$argon2id$v=19$m=65536,t=1,p=4$!!!$!!!", false},
		{"argon2id with bad params", "x", "$argon2id$v=19$m=abc$AAAA$AAAA", false},
		{"argon2id with zero threads", "x", "$argon2id$v=19$m=1024,t=1,p=0$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", false},
		{"unknown scheme", "x", "$scrypt$ln=15$abc$def", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasher.Verify(tt.password, tt.digest))
		})
	}
}

func TestNeedsUpgrade(t *testing.T) {
	hasher := newTestHasher(t)
	current, err := hasher.Hash("password123")
	require.NoError(t, err)

	stronger, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost+1)
	require.NoError(t, err)

	assert.False(t, hasher.NeedsUpgrade(current))
	assert.True(t, hasher.NeedsUpgrade(string(stronger)))
	assert.True(t, hasher.NeedsUpgrade(legacyDigest(t, "password123")))
	assert.True(t, hasher.NeedsUpgrade("garbage"))
}
