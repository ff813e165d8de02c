// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

// Package auth provides password hashing, signed tokens and the resolution
// of bearer tokens to users.
//
// # Components
//
//   - BcryptHasher - bcrypt digests; argon2id digests still verify and are
//     upgraded on the next successful login
//   - TokenAuthority - HS256 access and refresh tokens, each with its own
//     secret and lifetime
//   - Resolver - bearer token to user, failing with Forbidden on a bad
//     token and Unauthorized on an expired one
//   - Service - signup, login and refresh
//
// Tokens carry only the subject email and an expiry. There is no
// revocation: a token stays valid until it expires.
package auth
