// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package docstore

import (
	"context"
	"sync"

	"github.com/samber/oops"
)

// MemoryStore is an in-process Store. Records are copied on the way in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[string]map[string]*Record
	indexes map[string][]IndexDef
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:    make(map[string]map[string]*Record),
		indexes: make(map[string][]IndexDef),
	}
}

// Get returns a copy of the stored record.
func (s *MemoryStore) Get(_ context.Context, collection, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.docs[collection][id]
	if !ok {
		return nil, oops.Code("DOC_NOT_FOUND").
			With("collection", collection).
			With("id", id).
			Wrap(ErrNotFound)
	}
	return rec.clone(), nil
}

// Save inserts or version-checks and replaces the record.
func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.docs[rec.Collection]
	if coll == nil {
		coll = make(map[string]*Record)
		s.docs[rec.Collection] = coll
	}

	existing, exists := coll[rec.ID]
	if rec.Version == 0 {
		if exists {
			return oops.Code("DOC_DUPLICATE").
				With("collection", rec.Collection).
				With("id", rec.ID).
				Wrap(ErrDuplicate)
		}
	} else if !exists || existing.Version != rec.Version {
		return oops.Code("DOC_VERSION_CONFLICT").
			With("collection", rec.Collection).
			With("id", rec.ID).
			With("expected_version", rec.Version).
			Wrap(ErrVersionConflict)
	}

	if err := s.checkUnique(rec); err != nil {
		return err
	}

	stored := rec.clone()
	stored.Version = rec.Version + 1
	coll[rec.ID] = stored
	rec.Version = stored.Version
	return nil
}

func (s *MemoryStore) checkUnique(rec *Record) error {
	for _, def := range s.indexes[rec.Collection] {
		if !def.Unique {
			continue
		}
		value, ok := FieldValue(rec.Body, def.Field)
		if !ok {
			continue
		}
		for id, other := range s.docs[rec.Collection] {
			if id == rec.ID {
				continue
			}
			if v, ok := FieldValue(other.Body, def.Field); ok && v == value {
				return oops.Code("DOC_DUPLICATE").
					With("collection", rec.Collection).
					With("index", def.Name()).
					Wrap(ErrDuplicate)
			}
		}
	}
	return nil
}

// Delete removes the record if present.
func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[collection], id)
	return nil
}

// FindByField scans the collection for matching records.
func (s *MemoryStore) FindByField(_ context.Context, collection, field, value string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for _, rec := range s.docs[collection] {
		if v, ok := FieldValue(rec.Body, field); ok && v == value {
			out = append(out, rec.clone())
		}
	}
	sortRecords(out)
	return out, nil
}

// List returns every record in the collection.
func (s *MemoryStore) List(_ context.Context, collection string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.docs[collection]))
	for _, rec := range s.docs[collection] {
		out = append(out, rec.clone())
	}
	sortRecords(out)
	return out, nil
}

// EnsureIndexes records the definitions; only unique ones change behavior.
func (s *MemoryStore) EnsureIndexes(_ context.Context, defs []IndexDef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return err
		}
		if !containsIndex(s.indexes[def.Collection], def) {
			s.indexes[def.Collection] = append(s.indexes[def.Collection], def)
		}
	}
	return nil
}

func containsIndex(defs []IndexDef, def IndexDef) bool {
	for _, d := range defs {
		if d == def {
			return true
		}
	}
	return false
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() {}
