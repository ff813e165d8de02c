// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

// Package seed loads YAML fixtures of users and their content and replays
// them through the public service operations.
package seed

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/quillhq/quill/pkg/errutil"
)

// SupportedFormats is the fixture format range this build reads.
const SupportedFormats = "^1.0.0"

var formatConstraint = func() *semver.Constraints {
	c, err := semver.NewConstraint(SupportedFormats)
	if err != nil {
		panic(err)
	}
	return c
}()

// Fixture is a seed file.
type Fixture struct {
	Format string        `yaml:"format"`
	Users  []UserFixture `yaml:"users"`
}

// UserFixture describes one account and the blogs it owns.
type UserFixture struct {
	FirstName string        `yaml:"first_name"`
	LastName  string        `yaml:"last_name"`
	Email     string        `yaml:"email"`
	Password  string        `yaml:"password"`
	Blogs     []BlogFixture `yaml:"blogs,omitempty"`
}

// BlogFixture is a blog and its posts.
type BlogFixture struct {
	Title string        `yaml:"title"`
	Posts []PostFixture `yaml:"posts,omitempty"`
}

// PostFixture is a post and the emails of the users who like it.
type PostFixture struct {
	Content string   `yaml:"content"`
	LikedBy []string `yaml:"liked_by,omitempty"`
}

func invalidFixture(message string, kv ...any) error {
	return errutil.Fail("SEED_INVALID_FIXTURE", errutil.ErrValidation, message, kv...)
}

// Parse decodes and validates a fixture. Unknown keys are rejected.
func Parse(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fx Fixture
	if err := dec.Decode(&fx); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, invalidFixture("fixture is empty")
		}
		return nil, invalidFixture("invalid YAML: "+err.Error(), "cause", err.Error())
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// ParseFile reads and parses the fixture at path.
func ParseFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, errutil.Fail("SEED_READ_FAILED", errutil.ErrNotFound, "cannot read fixture", "path", path, "cause", err.Error())
	}
	return Parse(bytes.NewReader(data))
}

// Validate checks the format version and the cross references between users.
func (fx *Fixture) Validate() error {
	if fx.Format == "" {
		return invalidFixture("format is required")
	}
	v, err := semver.StrictNewVersion(fx.Format)
	if err != nil {
		return invalidFixture("format must be a semantic version", "format", fx.Format)
	}
	if !formatConstraint.Check(v) {
		return invalidFixture("unsupported fixture format "+fx.Format, "format", fx.Format, "supported", SupportedFormats)
	}

	emails := make(map[string]bool, len(fx.Users))
	for _, u := range fx.Users {
		email := strings.TrimSpace(u.Email)
		if email == "" {
			return invalidFixture("every user needs an email")
		}
		if emails[email] {
			return invalidFixture("duplicate user "+email, "email", email)
		}
		emails[email] = true
	}
	for _, u := range fx.Users {
		for _, b := range u.Blogs {
			for _, p := range b.Posts {
				for _, liker := range p.LikedBy {
					if !emails[strings.TrimSpace(liker)] {
						return invalidFixture("liked_by references unknown user "+liker, "email", liker)
					}
				}
			}
		}
	}
	return nil
}
