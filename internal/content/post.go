// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package content

import "strings"

// Post is a blog entry. The Go name is shorter than the domain's "BlogPost".
type Post struct {
	Meta
	Author  string   `json:"author"`
	Blog    string   `json:"blog"`
	Content string   `json:"content"`
	Likes   []string `json:"likes"`
}

// Collection implements Document.
func (*Post) Collection() string { return CollectionPosts }

// NewPost returns an unsaved post in blog.
func NewPost(author, blog, body string) (*Post, error) {
	body = strings.TrimSpace(body)
	if err := ValidateContent(body); err != nil {
		return nil, err
	}
	return &Post{Author: author, Blog: blog, Content: body, Likes: []string{}}, nil
}
