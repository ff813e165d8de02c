// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"github.com/quillhq/quill/internal/auth"
	"github.com/quillhq/quill/internal/content"
	"github.com/quillhq/quill/internal/docstore"
	"github.com/quillhq/quill/internal/httpapi"
	"github.com/quillhq/quill/pkg/errutil"
)

var (
	container *postgres.PostgresContainer
	connStr   string
	pool      *pgxpool.Pool
)

var _ = BeforeSuite(func() {
	ctx := context.Background()

	var err error
	container, err = postgres.Run(ctx,
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
	Expect(err).NotTo(HaveOccurred())

	connStr, err = container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := docstore.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	Expect(migrator.Close()).To(Succeed())

	pool, err = pgxpool.New(ctx, connStr)
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if pool != nil {
		pool.Close()
	}
	if container != nil {
		_ = container.Terminate(context.Background())
	}
})

// apiClient drives the API over real HTTP.
type apiClient struct {
	baseURL string
	http    *http.Client
}

type response struct {
	status int
	body   []byte
}

func (r response) object() map[string]any {
	var out map[string]any
	Expect(json.Unmarshal(r.body, &out)).To(Succeed(), string(r.body))
	return out
}

func (c *apiClient) do(method, path, token string, body any) response {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return response{status: resp.StatusCode, body: data}
}

func (c *apiClient) signupAndLogin(first, email string) (id, token string) {
	res := c.do(http.MethodPost, "/signup", "", map[string]string{
		"first_name": first,
		"last_name":  "Tester",
		"email":      email,
		"password":   "correct-horse",
	})
	Expect(res.status).To(Equal(http.StatusOK), string(res.body))
	id = res.object()["id"].(string)

	form := url.Values{"username": {email}, "password": {"correct-horse"}}
	resp, err := c.http.Post(c.baseURL+"/login", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	Expect(resp.StatusCode).To(Equal(http.StatusOK))

	var pair auth.TokenPair
	Expect(json.NewDecoder(resp.Body).Decode(&pair)).To(Succeed())
	return id, pair.AccessToken
}

var _ = Describe("Blogging API on Postgres", func() {
	var (
		ctx     context.Context
		store   *docstore.PostgresStore
		manager *content.Manager
		server  *httptest.Server
		client  *apiClient
	)

	BeforeEach(func() {
		ctx = context.Background()
		_, err := pool.Exec(ctx, "TRUNCATE documents")
		Expect(err).NotTo(HaveOccurred())

		store, err = docstore.NewPostgresStore(ctx, connStr)
		Expect(err).NotTo(HaveOccurred())

		logger := slog.New(slog.NewTextHandler(GinkgoWriter, &slog.HandlerOptions{Level: slog.LevelWarn}))
		manager = content.NewManager(store, content.WithLogger(logger))
		Expect(manager.EnsureIndexes(ctx)).To(Succeed())

		hasher, err := auth.NewBcryptHasher(4)
		Expect(err).NotTo(HaveOccurred())
		tokens, err := auth.NewTokenAuthority(auth.TokenConfig{
			AccessSecret:  "integration-access",
			RefreshSecret: "integration-refresh",
		})
		Expect(err).NotTo(HaveOccurred())
		service, err := auth.NewAuthService(manager, hasher, tokens, logger)
		Expect(err).NotTo(HaveOccurred())

		handler, err := httpapi.NewRouter(httpapi.Config{
			Auth:     service,
			Sessions: auth.NewResolver(tokens, manager),
			Content:  manager,
			Logger:   logger,
		})
		Expect(err).NotTo(HaveOccurred())

		server = httptest.NewServer(handler)
		client = &apiClient{baseURL: server.URL, http: server.Client()}
	})

	AfterEach(func() {
		server.Close()
		store.Close()
	})

	It("keeps every id list consistent through the content lifecycle", func() {
		adaID, ada := client.signupAndLogin("Ada", "ada@example.com")
		graceID, grace := client.signupAndLogin("Grace", "grace@example.com")

		res := client.do(http.MethodGet, "/me", ada, nil)
		Expect(res.status).To(Equal(http.StatusOK))
		Expect(res.object()).NotTo(HaveKey("password_hash"))

		res = client.do(http.MethodPost, "/create-blog", ada, map[string]string{"title": "Engines"})
		Expect(res.status).To(Equal(http.StatusOK))
		blogID := res.object()["id"].(string)

		res = client.do(http.MethodPost, "/create-post/"+blogID, ada, map[string]string{"content": "Notes on the engine"})
		Expect(res.status).To(Equal(http.StatusOK))
		postID := res.object()["id"].(string)

		res = client.do(http.MethodPost, "/create-like/"+postID, grace, nil)
		Expect(res.status).To(Equal(http.StatusOK))
		likeID := res.object()["id"].(string)

		adaUser, err := manager.GetUser(ctx, adaID)
		Expect(err).NotTo(HaveOccurred())
		Expect(adaUser.Blogs).To(Equal([]string{blogID}))
		Expect(adaUser.Posts).To(Equal([]string{postID}))

		post, err := manager.GetPost(ctx, postID)
		Expect(err).NotTo(HaveOccurred())
		Expect(post.Likes).To(Equal([]string{likeID}))

		By("refusing to delete a blog that still has posts")
		res = client.do(http.MethodDelete, "/blogs/"+blogID, ada, nil)
		Expect(res.status).To(Equal(http.StatusConflict))

		By("refusing to let another user delete the blog")
		res = client.do(http.MethodDelete, "/blogs/"+blogID, grace, nil)
		Expect(res.status).To(Equal(http.StatusForbidden))

		By("cascading likes when the post is deleted")
		res = client.do(http.MethodDelete, "/posts/"+postID, ada, nil)
		Expect(res.status).To(Equal(http.StatusOK))

		_, err = manager.GetLike(ctx, likeID)
		Expect(errutil.KindOf(err)).To(Equal(errutil.KindNotFound))

		graceUser, err := manager.GetUser(ctx, graceID)
		Expect(err).NotTo(HaveOccurred())
		Expect(graceUser.Likes).To(BeEmpty())

		blog, err := manager.GetBlog(ctx, blogID)
		Expect(err).NotTo(HaveOccurred())
		Expect(blog.Posts).To(BeEmpty())

		By("deleting the now empty blog and then the account")
		Expect(client.do(http.MethodDelete, "/blogs/"+blogID, ada, nil).status).To(Equal(http.StatusOK))
		Expect(client.do(http.MethodDelete, "/delete-me", ada, nil).status).To(Equal(http.StatusOK))

		_, err = manager.GetUser(ctx, adaID)
		Expect(errutil.KindOf(err)).To(Equal(errutil.KindNotFound))
	})

	It("rejects a second account with the same email", func() {
		client.signupAndLogin("Ada", "ada@example.com")

		res := client.do(http.MethodPost, "/signup", "", map[string]string{
			"first_name": "Other",
			"last_name":  "Person",
			"email":      "ada@example.com",
			"password":   "correct-horse",
		})
		Expect(res.status).To(Equal(http.StatusUnprocessableEntity))
		Expect(res.object()["detail"]).To(Equal("user email already exists"))
	})

	It("never loses a like under concurrent writers", func() {
		_, ada := client.signupAndLogin("Ada", "ada@example.com")
		res := client.do(http.MethodPost, "/create-blog", ada, map[string]string{"title": "Engines"})
		blogID := res.object()["id"].(string)
		res = client.do(http.MethodPost, "/create-post/"+blogID, ada, map[string]string{"content": "Notes on the engine"})
		postID := res.object()["id"].(string)

		const likers = 4
		tokens := make([]string, likers)
		for i := range tokens {
			_, tokens[i] = client.signupAndLogin("Fan", fmt.Sprintf("fan%d@example.com", i))
		}

		statuses := make([]int, likers)
		var g errgroup.Group
		for i, token := range tokens {
			g.Go(func() error {
				statuses[i] = client.do(http.MethodPost, "/create-like/"+postID, token, nil).status
				return nil
			})
		}
		Expect(g.Wait()).To(Succeed())

		succeeded := 0
		for _, status := range statuses {
			Expect(status).To(BeElementOf(http.StatusOK, http.StatusConflict))
			if status == http.StatusOK {
				succeeded++
			}
		}
		Expect(succeeded).To(BeNumerically(">=", 1))

		post, err := manager.GetPost(ctx, postID)
		Expect(err).NotTo(HaveOccurred())
		Expect(post.Likes).To(HaveLen(succeeded))
	})

	It("reports a missing document as not found", func() {
		res := client.do(http.MethodGet, "/posts/does-not-exist", "", nil)
		Expect(res.status).To(Equal(http.StatusNotFound))
		Expect(res.object()["detail"]).To(Equal("Post not found"))

		_, err := store.Get(ctx, content.CollectionPosts, "does-not-exist")
		Expect(errors.Is(err, docstore.ErrNotFound)).To(BeTrue())
	})
})
