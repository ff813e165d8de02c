// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

//go:build integration

package docstore_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/quillhq/quill/internal/docstore"
)

func setupPostgresStore() (*docstore.PostgresStore, func(), error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("quill_test"),
		postgres.WithUsername("quill"),
		postgres.WithPassword("quill"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, err
	}

	migrator, err := docstore.NewMigrator(connStr)
	if err != nil {
		return nil, nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, nil, err
	}
	_ = migrator.Close()

	store, err := docstore.NewPostgresStore(ctx, connStr)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		store.Close()
		_ = container.Terminate(ctx)
	}
	return store, cleanup, nil
}

var _ = Describe("PostgresStore", func() {
	var (
		store   *docstore.PostgresStore
		cleanup func()
		ctx     context.Context
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		store, cleanup, err = setupPostgresStore()
		Expect(err).NotTo(HaveOccurred())
		Expect(store.EnsureIndexes(ctx, []docstore.IndexDef{
			{Collection: "users", Field: "email", Unique: true},
			{Collection: "posts", Field: "blog"},
		})).To(Succeed())
	})

	AfterEach(func() {
		cleanup()
	})

	record := func(collection, id, body string) *docstore.Record {
		now := time.Now().UTC()
		return &docstore.Record{Collection: collection, ID: id, Body: []byte(body), CreatedAt: now, UpdatedAt: now}
	}

	It("round-trips documents with versioning", func() {
		rec := record("blogs", "b1", `{"title":"first"}`)
		Expect(store.Save(ctx, rec)).To(Succeed())
		Expect(rec.Version).To(Equal(int64(1)))

		stale, err := store.Get(ctx, "blogs", "b1")
		Expect(err).NotTo(HaveOccurred())

		rec.Body = []byte(`{"title":"second"}`)
		Expect(store.Save(ctx, rec)).To(Succeed())
		Expect(rec.Version).To(Equal(int64(2)))

		Expect(store.Save(ctx, stale)).To(MatchError(docstore.ErrVersionConflict))

		got, err := store.Get(ctx, "blogs", "b1")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(got.Body)).To(MatchJSON(`{"title":"second"}`))
	})

	It("enforces unique indexes", func() {
		Expect(store.Save(ctx, record("users", "u1", `{"email":"a@x.io"}`))).To(Succeed())
		err := store.Save(ctx, record("users", "u2", `{"email":"a@x.io"}`))
		Expect(err).To(MatchError(docstore.ErrDuplicate))
	})

	It("finds by field in store order", func() {
		Expect(store.Save(ctx, record("posts", "p1", `{"blog":"b1"}`))).To(Succeed())
		Expect(store.Save(ctx, record("posts", "p2", `{"blog":"b2"}`))).To(Succeed())
		Expect(store.Save(ctx, record("posts", "p3", `{"blog":"b1"}`))).To(Succeed())

		recs, err := store.FindByField(ctx, "posts", "blog", "b1")
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(2))
		Expect(recs[0].ID).To(Equal("p1"))
		Expect(recs[1].ID).To(Equal("p3"))
	})

	It("treats deleting a missing document as a no-op", func() {
		Expect(store.Delete(ctx, "likes", "nope")).To(Succeed())
		_, err := store.Get(ctx, "likes", "nope")
		Expect(err).To(MatchError(docstore.ErrNotFound))
	})
})
