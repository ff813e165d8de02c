// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken marks a token that failed signature or structure checks.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the decoded payload of a verified token.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// TokenConfig configures a TokenAuthority.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// TokenAuthority issues and verifies HS256 tokens in two signing domains.
// Access and refresh tokens share a format and differ only in secret and
// lifetime, so a token from one domain never verifies in the other.
type TokenAuthority struct {
	access  signingDomain
	refresh signingDomain
	now     func() time.Time
	parser  *jwt.Parser
}

type signingDomain struct {
	name   string
	secret []byte
	ttl    time.Duration
}

// NewTokenAuthority validates cfg and builds an authority.
func NewTokenAuthority(cfg TokenConfig) (*TokenAuthority, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, oops.Code("AUTH_MISSING_SECRET").Errorf("access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, oops.Code("AUTH_SHARED_SECRET").Errorf("access and refresh secrets must differ")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 {
		return nil, oops.Code("AUTH_INVALID_TTL").
			With("access_ttl", cfg.AccessTTL).
			With("refresh_ttl", cfg.RefreshTTL).
			Errorf("token lifetimes must be positive")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &TokenAuthority{
		access:  signingDomain{name: "access", secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
		refresh: signingDomain{name: "refresh", secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
		now:     cfg.Clock,
		// Expiry is checked by callers so expired tokens still decode.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Now returns the authority's current time.
func (a *TokenAuthority) Now() time.Time {
	return a.now()
}

// IssueAccess signs an access token for subject. An explicit ttl overrides
// the configured lifetime.
func (a *TokenAuthority) IssueAccess(subject string, ttl ...time.Duration) (string, error) {
	return a.issue(a.access, subject, ttl)
}

// IssueRefresh signs a refresh token for subject.
func (a *TokenAuthority) IssueRefresh(subject string, ttl ...time.Duration) (string, error) {
	return a.issue(a.refresh, subject, ttl)
}

// VerifyAccess decodes an access token without checking expiry.
func (a *TokenAuthority) VerifyAccess(token string) (*Claims, error) {
	return a.verify(a.access, token)
}

// VerifyRefresh decodes a refresh token without checking expiry.
func (a *TokenAuthority) VerifyRefresh(token string) (*Claims, error) {
	return a.verify(a.refresh, token)
}

func (a *TokenAuthority) issue(d signingDomain, subject string, ttl []time.Duration) (string, error) {
	if subject == "" {
		return "", oops.Code("AUTH_EMPTY_SUBJECT").With("domain", d.name).Errorf("token subject is required")
	}
	lifetime := d.ttl
	if len(ttl) > 0 {
		lifetime = ttl[0]
	}

	claims := jwt.MapClaims{
		"sub": subject,
		"exp": a.now().Add(lifetime).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(d.secret)
	if err != nil {
		return "", oops.Code("AUTH_SIGN_FAILED").With("domain", d.name).Wrap(err)
	}
	return signed, nil
}

func (a *TokenAuthority) verify(d signingDomain, token string) (*Claims, error) {
	invalid := oops.Code("AUTH_INVALID_TOKEN").With("domain", d.name)

	claims := jwt.MapClaims{}
	if _, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return d.secret, nil
	}); err != nil {
		return nil, invalid.With("reason", err.Error()).Wrap(ErrInvalidToken)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, invalid.With("reason", "missing sub").Wrap(ErrInvalidToken)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, invalid.With("reason", "missing exp").Wrap(ErrInvalidToken)
	}
	return &Claims{Subject: subject, ExpiresAt: exp.Time}, nil
}
