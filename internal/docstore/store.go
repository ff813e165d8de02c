// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

// Package docstore provides a schemaless document store with optimistic
// versioning. Documents are opaque JSON bodies grouped into collections and
// addressed by id; selected top-level string fields can be indexed for lookup.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"time"

	"github.com/samber/oops"
)

// Store errors.
var (
	// ErrNotFound is returned by Get when no document has the given id.
	ErrNotFound = errors.New("document not found")
	// ErrVersionConflict is returned by Save when the stored version no longer
	// matches the record's version.
	ErrVersionConflict = errors.New("document version conflict")
	// ErrDuplicate is returned by Save when an insert collides with an
	// existing id or a unique index.
	ErrDuplicate = errors.New("duplicate document")
)

// Record is a single stored document.
type Record struct {
	Collection string
	ID         string
	// Version is 0 for a record that has never been saved. Save sets it to the
	// stored version on success.
	Version   int64
	Body      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IndexDef declares a lookup index over a top-level string field of a collection.
type IndexDef struct {
	Collection string
	Field      string
	Unique     bool
}

// Name returns the canonical index name.
func (d IndexDef) Name() string {
	if d.Unique {
		return "uq_" + d.Collection + "_" + d.Field
	}
	return "idx_" + d.Collection + "_" + d.Field
}

// Store is the document store contract shared by every backend.
type Store interface {
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (*Record, error)
	// Save inserts the record when Version is 0, otherwise replaces it if the
	// stored version still equals rec.Version. On success rec.Version holds
	// the new stored version.
	Save(ctx context.Context, rec *Record) error
	// Delete removes the document. Deleting an absent document is a no-op.
	Delete(ctx context.Context, collection, id string) error
	// FindByField returns documents whose top-level field equals value,
	// ordered by creation time then id.
	FindByField(ctx context.Context, collection, field, value string) ([]*Record, error)
	// List returns every document in the collection in the same order as FindByField.
	List(ctx context.Context, collection string) ([]*Record, error)
	// EnsureIndexes registers index definitions. Safe to call repeatedly.
	EnsureIndexes(ctx context.Context, defs []IndexDef) error
	Ping(ctx context.Context) error
	Close()
}

var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// Validate reports whether the definition uses safe identifiers.
func (d IndexDef) Validate() error {
	if !identPattern.MatchString(d.Collection) {
		return oops.Code("DOC_INVALID_INDEX").With("collection", d.Collection).Errorf("invalid collection name")
	}
	if !identPattern.MatchString(d.Field) {
		return oops.Code("DOC_INVALID_INDEX").With("field", d.Field).Errorf("invalid field name")
	}
	return nil
}

// FieldValue extracts a top-level string field from a JSON body.
func FieldValue(body []byte, field string) (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", false
	}
	raw, ok := fields[field]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func sortRecords(recs []*Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}

func (r *Record) clone() *Record {
	out := *r
	out.Body = append(json.RawMessage(nil), r.Body...)
	return &out
}
