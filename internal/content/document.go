// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

// Package content holds the blogging domain: users, blogs, posts and likes
// stored as independent documents that reference each other through
// denormalized id lists, and the Manager that keeps those lists consistent.
package content

import (
	"time"

	"github.com/quillhq/quill/internal/docstore"
)

// Collection names.
const (
	CollectionUsers = "users"
	CollectionBlogs = "blogs"
	CollectionPosts = "posts"
	CollectionLikes = "likes"
)

// Meta is embedded in every document.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Version is owned by the store and never serialized into the body.
	Version int64 `json:"-"`
}

func (m *Meta) meta() *Meta { return m }

// Document is implemented by the four record types.
type Document interface {
	Collection() string
	meta() *Meta
}

// document constrains a pointer to a record type so Repository can allocate T.
type document[T any] interface {
	*T
	Document
}

// Indexes lists the lookup indexes the domain relies on.
func Indexes() []docstore.IndexDef {
	return []docstore.IndexDef{
		{Collection: CollectionUsers, Field: "email", Unique: true},
		{Collection: CollectionBlogs, Field: "author"},
		{Collection: CollectionPosts, Field: "author"},
		{Collection: CollectionPosts, Field: "blog"},
		{Collection: CollectionLikes, Field: "author"},
		{Collection: CollectionLikes, Field: "post"},
	}
}

// appendID adds id unless already present. It reports whether the list changed.
func appendID(ids []string, id string) ([]string, bool) {
	for _, existing := range ids {
		if existing == id {
			return ids, false
		}
	}
	return append(ids, id), true
}

// removeID drops every occurrence of id. It reports whether the list changed.
func removeID(ids []string, id string) ([]string, bool) {
	out := ids[:0]
	changed := false
	for _, existing := range ids {
		if existing == id {
			changed = true
			continue
		}
		out = append(out, existing)
	}
	return out, changed
}
