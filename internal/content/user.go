// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package content

import (
	"strings"
)

// User is an account. Email is the login identifier and must be unique.
type User struct {
	Meta
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"password_hash"`
	Blogs        []string `json:"blogs"`
	Posts        []string `json:"posts"`
	Likes        []string `json:"likes"`
}

// Collection implements Document.
func (*User) Collection() string { return CollectionUsers }

// NewUser validates the profile fields and returns an unsaved user.
// passwordHash must already be a digest.
func NewUser(firstName, lastName, email, passwordHash string) (*User, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	email = strings.TrimSpace(email)

	if err := ValidateName("first_name", firstName); err != nil {
		return nil, err
	}
	if err := ValidateName("last_name", lastName); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	return &User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: passwordHash,
		Blogs:        []string{},
		Posts:        []string{},
		Likes:        []string{},
	}, nil
}

// OwnsContent reports whether any blog, post or like still references the user.
func (u *User) OwnsContent() bool {
	return len(u.Blogs) > 0 || len(u.Posts) > 0 || len(u.Likes) > 0
}
