// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package content

import (
	"fmt"
	"net/mail"
	"regexp"
	"unicode/utf8"

	"github.com/quillhq/quill/pkg/errutil"
)

// Field limits shared with the request schemas.
const (
	NameMinLen       = 2
	NameMaxLen       = 15
	PasswordMinLen   = 8
	PasswordMaxLen   = 64
	// PasswordMaxBytes is the bcrypt input limit.
	PasswordMaxBytes = 72
	TitleMinLen      = 2
	TitleMaxLen      = 100
	ContentMinLen    = 5
	ContentMaxLen    = 1000
)

var namePattern = regexp.MustCompile(fmt.Sprintf(`^[A-Za-z]{%d,%d}$`, NameMinLen, NameMaxLen))

func invalid(field, message string) error {
	return errutil.Fail("CONTENT_VALIDATION_FAILED", errutil.ErrValidation, message, "field", field)
}

// ValidateName checks a first or last name: ASCII letters only.
func ValidateName(field, value string) error {
	if !namePattern.MatchString(value) {
		return invalid(field, fmt.Sprintf("%s: invalid name format", field))
	}
	return nil
}

// ValidateEmail checks that value is a bare email address.
func ValidateEmail(value string) error {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return invalid("email", "email: invalid email address")
	}
	return nil
}

// ValidatePassword checks plaintext length only; any characters are allowed.
// The encoded length is bounded too, so multibyte passwords fit bcrypt.
func ValidatePassword(value string) error {
	if n := utf8.RuneCountInString(value); n < PasswordMinLen || n > PasswordMaxLen {
		return invalid("password", fmt.Sprintf("password: must be %d-%d characters", PasswordMinLen, PasswordMaxLen))
	}
	if len(value) > PasswordMaxBytes {
		return invalid("password", fmt.Sprintf("password: must be at most %d bytes when UTF-8 encoded", PasswordMaxBytes))
	}
	return nil
}

// ValidateTitle checks a blog title.
func ValidateTitle(value string) error {
	return checkLength("title", value, TitleMinLen, TitleMaxLen)
}

// ValidateContent checks a post body.
func ValidateContent(value string) error {
	return checkLength("content", value, ContentMinLen, ContentMaxLen)
}

func checkLength(field, value string, lo, hi int) error {
	if n := utf8.RuneCountInString(value); n < lo || n > hi {
		return invalid(field, fmt.Sprintf("%s: must be %d-%d characters", field, lo, hi))
	}
	return nil
}
