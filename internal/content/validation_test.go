// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package content_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quillhq/quill/internal/content"
	"github.com/quillhq/quill/pkg/errutil"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name    string
		check   func() error
		wantErr bool
	}{
		{"name ok", func() error { return content.ValidateName("first_name", "Ada") }, false},
		{"name too short", func() error { return content.ValidateName("first_name", "A") }, true},
		{"name too long", func() error { return content.ValidateName("first_name", strings.Repeat("a", 16)) }, true},
		{"name with digits", func() error { return content.ValidateName("last_name", "R2D2") }, true},
		{"email ok", func() error { return content.ValidateEmail("ada@example.com") }, false},
		{"email with display name", func() error { return content.ValidateEmail("Ada <ada@example.com>") }, true},
		{"email garbage", func() error { return content.ValidateEmail("not-an-email") }, true},
		{"password ok with symbols", func() error { return content.ValidatePassword("Secr3t!1") }, false},
		{"password too short", func() error { return content.ValidatePassword("short") }, true},
		{"password too long", func() error { return content.ValidatePassword(strings.Repeat("p", 65)) }, true},
		{"multibyte password at byte limit", func() error { return content.ValidatePassword(strings.Repeat("пароль", 6)) }, false},
		{"multibyte password over byte limit", func() error { return content.ValidatePassword(strings.Repeat("пароль", 7)) }, true},
		{"title ok", func() error { return content.ValidateTitle("Go") }, false},
		{"title too long", func() error { return content.ValidateTitle(strings.Repeat("t", 101)) }, true},
		{"content ok", func() error { return content.ValidateContent("hello") }, false},
		{"content too short", func() error { return content.ValidateContent("hey") }, true},
		{"content counts runes", func() error { return content.ValidateContent("héllo") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			errutil.AssertKind(t, err, errutil.KindValidation)
			errutil.AssertErrorCode(t, err, "CONTENT_VALIDATION_FAILED")
		})
	}
}

func TestNewUser_TrimsAndValidates(t *testing.T) {
	u, err := content.NewUser(" Ada ", "Lovelace", "ada@example.com", "digest")
	assert.NoError(t, err)
	assert.Equal(t, "Ada", u.FirstName)
	assert.NotNil(t, u.Blogs)
	assert.False(t, u.OwnsContent())

	_, err = content.NewUser("Ada", "Lovelace", "nope", "digest")
	errutil.AssertKind(t, err, errutil.KindValidation)
}
