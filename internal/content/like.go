// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package content

// Like records that Author liked Post.
type Like struct {
	Meta
	Author string `json:"author"`
	Post   string `json:"post"`
}

// Collection implements Document.
func (*Like) Collection() string { return CollectionLikes }
