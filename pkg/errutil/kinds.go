// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

// Package errutil defines the error taxonomy shared by the auth and content
// layers, plus helpers for logging and asserting oops errors.
package errutil

import (
	"errors"

	"github.com/samber/oops"
)

// Taxonomy sentinels. Domain errors wrap exactly one of these so the HTTP
// boundary can classify them with errors.Is.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrValidation         = errors.New("validation failed")
)

// Kind names a class of the error taxonomy.
type Kind string

// Error kinds.
const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindForbidden          Kind = "forbidden"
	KindUnauthorized       Kind = "unauthorized"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindValidation         Kind = "validation_failure"
	KindInternal           Kind = "internal"
)

// publicMessageKey is the oops context key carrying the client-facing message.
const publicMessageKey = "public_message"

var kindSentinels = []struct {
	kind     Kind
	sentinel error
}{
	{KindInvalidCredentials, ErrInvalidCredentials},
	{KindForbidden, ErrForbidden},
	{KindUnauthorized, ErrUnauthorized},
	{KindNotFound, ErrNotFound},
	{KindConflict, ErrConflict},
	{KindValidation, ErrValidation},
}

// Fail returns an oops error with the given code that wraps sentinel and
// carries message as its client-facing text. kv are extra context pairs.
func Fail(code string, sentinel error, message string, kv ...any) error {
	return oops.Code(code).
		With(publicMessageKey, message).
		With(kv...).
		Wrapf(sentinel, "%s", message)
}

// KindOf classifies err. Errors outside the taxonomy are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, ks := range kindSentinels {
		if errors.Is(err, ks.sentinel) {
			return ks.kind
		}
	}
	return KindInternal
}

// PublicMessage returns the text that may be shown to a client for err.
// Internal errors never leak their details.
func PublicMessage(err error) string {
	kind := KindOf(err)
	if kind == KindInternal || kind == "" {
		return "internal server error"
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if s, ok := oopsErr.Context()[publicMessageKey].(string); ok && s != "" {
			return s
		}
	}
	for _, ks := range kindSentinels {
		if ks.kind == kind {
			return ks.sentinel.Error()
		}
	}
	return "internal server error"
}
