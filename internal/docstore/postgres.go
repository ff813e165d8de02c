// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
)

// poolIface is the subset of pgxpool.Pool used by PostgresStore, so tests
// can substitute pgxmock.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore keeps every document in the JSONB documents table.
type PostgresStore struct {
	pool poolIface
}

// NewPostgresStore connects to the database at dsn.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("DOC_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}
	return &PostgresStore{pool: pool}, nil
}

// newPostgresStoreWithPool is used by tests.
func newPostgresStoreWithPool(pool poolIface) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Get loads one document.
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Record, error) {
	rec := &Record{Collection: collection, ID: id}
	var body []byte
	err := s.pool.QueryRow(ctx, `
		SELECT version, body, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&rec.Version, &body, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("DOC_NOT_FOUND").
			With("collection", collection).
			With("id", id).
			Wrap(ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("DOC_GET_FAILED").
			With("collection", collection).
			With("id", id).
			Wrap(err)
	}
	rec.Body = body
	return rec, nil
}

// Save inserts when rec.Version is 0 and otherwise performs a version-checked update.
func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	if rec.Version == 0 {
		return s.insert(ctx, rec)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET body = $3, version = version + 1, updated_at = $4
		WHERE collection = $1 AND id = $2 AND version = $5
	`, rec.Collection, rec.ID, []byte(rec.Body), rec.UpdatedAt, rec.Version)
	if err != nil {
		return mapWriteError(err, rec, "update document")
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("DOC_VERSION_CONFLICT").
			With("collection", rec.Collection).
			With("id", rec.ID).
			With("expected_version", rec.Version).
			Wrap(ErrVersionConflict)
	}
	rec.Version++
	return nil
}

func (s *PostgresStore) insert(ctx context.Context, rec *Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, version, body, created_at, updated_at)
		VALUES ($1, $2, 1, $3, $4, $5)
	`, rec.Collection, rec.ID, []byte(rec.Body), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return mapWriteError(err, rec, "insert document")
	}
	rec.Version = 1
	return nil
}

func mapWriteError(err error, rec *Record, operation string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return oops.Code("DOC_DUPLICATE").
			With("collection", rec.Collection).
			With("id", rec.ID).
			With("constraint", pgErr.ConstraintName).
			Wrap(ErrDuplicate)
	}
	return oops.Code("DOC_SAVE_FAILED").
		With("operation", operation).
		With("collection", rec.Collection).
		With("id", rec.ID).
		Wrap(err)
}

// Delete removes a document; a missing document is not an error.
func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return oops.Code("DOC_DELETE_FAILED").
			With("collection", collection).
			With("id", id).
			Wrap(err)
	}
	return nil
}

// FindByField matches on body->>field.
func (s *PostgresStore) FindByField(ctx context.Context, collection, field, value string) ([]*Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, version, body, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND body->>$2 = $3
		ORDER BY created_at, id
	`, collection, field, value)
	if err != nil {
		return nil, oops.Code("DOC_QUERY_FAILED").
			With("collection", collection).
			With("field", field).
			Wrap(err)
	}
	return scanRecords(rows, collection)
}

// List returns a whole collection.
func (s *PostgresStore) List(ctx context.Context, collection string) ([]*Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, version, body, created_at, updated_at
		FROM documents
		WHERE collection = $1
		ORDER BY created_at, id
	`, collection)
	if err != nil {
		return nil, oops.Code("DOC_QUERY_FAILED").With("collection", collection).Wrap(err)
	}
	return scanRecords(rows, collection)
}

func scanRecords(rows pgx.Rows, collection string) ([]*Record, error) {
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec := &Record{Collection: collection}
		var body []byte
		if err := rows.Scan(&rec.ID, &rec.Version, &body, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, oops.Code("DOC_QUERY_FAILED").With("operation", "scan document row").Wrap(err)
		}
		rec.Body = body
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("DOC_QUERY_FAILED").With("operation", "iterate documents").Wrap(err)
	}
	return out, nil
}

// EnsureIndexes creates partial expression indexes over body fields.
func (s *PostgresStore) EnsureIndexes(ctx context.Context, defs []IndexDef) error {
	for _, def := range defs {
		stmt, err := indexDDL(def)
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return oops.Code("DOC_INDEX_FAILED").With("index", def.Name()).Wrap(err)
		}
	}
	return nil
}

// indexDDL renders the CREATE INDEX statement. Identifiers are validated
// first because DDL cannot take bind parameters.
func indexDDL(def IndexDef) (string, error) {
	if err := def.Validate(); err != nil {
		return "", err
	}
	unique := ""
	if def.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf(
		"CREATE %sINDEX IF NOT EXISTS %s ON documents ((body->>'%s')) WHERE collection = '%s'",
		unique,
		pgx.Identifier{def.Name()}.Sanitize(),
		def.Field,
		def.Collection,
	), nil
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return oops.Code("DOC_PING_FAILED").Wrap(err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
