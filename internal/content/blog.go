// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package content

import "strings"

// Blog groups posts by one author.
type Blog struct {
	Meta
	Author string   `json:"author"`
	Title  string   `json:"title"`
	Posts  []string `json:"posts"`
}

// Collection implements Document.
func (*Blog) Collection() string { return CollectionBlogs }

// NewBlog returns an unsaved blog owned by author.
func NewBlog(author, title string) (*Blog, error) {
	title = strings.TrimSpace(title)
	if err := ValidateTitle(title); err != nil {
		return nil, err
	}
	return &Blog{Author: author, Title: title, Posts: []string{}}, nil
}
