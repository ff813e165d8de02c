// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package content

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/quillhq/quill/internal/docstore"
	"github.com/quillhq/quill/pkg/errutil"
)

// Repository persists one record type in its collection.
type Repository[T any, PT document[T]] struct {
	store  docstore.Store
	entity string
	now    func() time.Time
}

// NewRepository creates a repository. entity is the display name used in
// not-found messages, e.g. "Blog".
func NewRepository[T any, PT document[T]](store docstore.Store, entity string) *Repository[T, PT] {
	return &Repository[T, PT]{store: store, entity: entity, now: time.Now}
}

func (r *Repository[T, PT]) collection() string {
	var zero T
	return PT(&zero).Collection()
}

func (r *Repository[T, PT]) notFound(id string) error {
	return errutil.Fail(
		"CONTENT_"+strings.ToUpper(r.entity)+"_NOT_FOUND",
		errutil.ErrNotFound,
		r.entity+" not found",
		"id", id,
	)
}

func (r *Repository[T, PT]) decode(rec *docstore.Record) (PT, error) {
	doc := PT(new(T))
	if err := json.Unmarshal(rec.Body, doc); err != nil {
		return nil, oops.Code("CONTENT_DECODE_FAILED").
			With("collection", rec.Collection).
			With("id", rec.ID).
			Wrap(err)
	}
	m := doc.meta()
	m.ID = rec.ID
	m.Version = rec.Version
	return doc, nil
}

func (r *Repository[T, PT]) encode(doc PT) (*docstore.Record, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, oops.Code("CONTENT_ENCODE_FAILED").With("collection", r.collection()).Wrap(err)
	}
	m := doc.meta()
	return &docstore.Record{
		Collection: r.collection(),
		ID:         m.ID,
		Version:    m.Version,
		Body:       body,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}, nil
}

// Get loads a document or returns a not-found error naming the entity.
func (r *Repository[T, PT]) Get(ctx context.Context, id string) (PT, error) {
	rec, err := r.store.Get(ctx, r.collection(), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, r.notFound(id)
	}
	if err != nil {
		return nil, err
	}
	return r.decode(rec)
}

// Exists reports whether id is stored.
func (r *Repository[T, PT]) Exists(ctx context.Context, id string) (bool, error) {
	_, err := r.store.Get(ctx, r.collection(), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// requireExists fails with the repository's not-found error when id is absent.
func requireExists[T any, PT document[T]](ctx context.Context, r *Repository[T, PT], id string) error {
	ok, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return r.notFound(id)
	}
	return nil
}

// Insert assigns an id and timestamps and stores a new document.
func (r *Repository[T, PT]) Insert(ctx context.Context, doc PT) error {
	m := doc.meta()
	if m.ID == "" {
		m.ID = ulid.Make().String()
	}
	now := r.now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.Version = 0

	rec, err := r.encode(doc)
	if err != nil {
		return err
	}
	if err := r.store.Save(ctx, rec); err != nil {
		return err
	}
	m.Version = rec.Version
	return nil
}

// Save replaces an existing document if its version is still current.
func (r *Repository[T, PT]) Save(ctx context.Context, doc PT) error {
	m := doc.meta()
	m.UpdatedAt = r.now().UTC()

	rec, err := r.encode(doc)
	if err != nil {
		return err
	}
	if err := r.store.Save(ctx, rec); err != nil {
		return err
	}
	m.Version = rec.Version
	return nil
}

// Delete removes id; absent documents are ignored.
func (r *Repository[T, PT]) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.collection(), id)
}

// FindBy returns documents whose field equals value, in store order.
func (r *Repository[T, PT]) FindBy(ctx context.Context, field, value string) ([]PT, error) {
	recs, err := r.store.FindByField(ctx, r.collection(), field, value)
	if err != nil {
		return nil, err
	}
	return r.decodeAll(recs)
}

// IDs returns the ids of the whole collection in store order.
func (r *Repository[T, PT]) IDs(ctx context.Context) ([]string, error) {
	recs, err := r.store.List(ctx, r.collection())
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

func (r *Repository[T, PT]) decodeAll(recs []*docstore.Record) ([]PT, error) {
	out := make([]PT, 0, len(recs))
	for _, rec := range recs {
		doc, err := r.decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}
