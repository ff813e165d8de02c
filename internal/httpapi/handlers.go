// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/oops"

	"github.com/quillhq/quill/internal/auth"
	"github.com/quillhq/quill/internal/content"
)

// UserView is the public representation of a user.
type UserView struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Blogs     []string  `json:"blogs"`
	Posts     []string  `json:"posts"`
	Likes     []string  `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserView(u *content.User) UserView {
	return UserView{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Blogs:     u.Blogs,
		Posts:     u.Posts,
		Likes:     u.Likes,
		CreatedAt: u.CreatedAt,
	}
}

// cached serves the JSON of produce, reusing a rendering stored under key.
func (a *api) cached(w http.ResponseWriter, r *http.Request, key string, produce func(ctx context.Context) (any, error)) {
	render := func(ctx context.Context) ([]byte, error) {
		v, err := produce(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, oops.Code("HTTP_ENCODE_FAILED").With("key", key).Wrap(err)
		}
		return data, nil
	}

	var (
		data []byte
		err  error
	)
	if a.cache != nil {
		data, err = a.cache.GetOrCompute(r.Context(), key, a.cacheTTL, render)
	} else {
		data, err = render(r.Context())
	}
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeRaw(w, http.StatusOK, data)
}

func (a *api) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(r, "signup", &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	user, err := a.auth.Signup(r.Context(), auth.SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

// login accepts an OAuth2 password form or the same fields as JSON.
func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			writeError(w, r, a.logger, invalidBody("", "invalid form body"))
			return
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
		if err := validateInstance("login", map[string]any{"username": req.Username, "password": req.Password}); err != nil {
			writeError(w, r, a.logger, err)
			return
		}
	} else if err := decodeJSON(r, "login", &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	pair, err := a.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (a *api) refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(r, "refresh", &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	pair, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (a *api) me(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	a.cached(w, r, "me:"+user.ID, func(context.Context) (any, error) {
		return newUserView(user), nil
	})
}

func (a *api) updateMe(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := decodeJSON(r, "profile", &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	user, err := a.content.UpdateProfile(r.Context(), currentUser(r.Context()).ID, req.FirstName, req.LastName)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

func (a *api) deleteMe(w http.ResponseWriter, r *http.Request) {
	if err := a.content.DeleteAccount(r.Context(), currentUser(r.Context()).ID); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: "user deleted successfully"})
}

func (a *api) createBlog(w http.ResponseWriter, r *http.Request) {
	var req BlogRequest
	if err := decodeJSON(r, "blog", &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	blog, err := a.content.CreateBlog(r.Context(), currentUser(r.Context()).ID, req.Title)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

func (a *api) listBlogs(w http.ResponseWriter, r *http.Request) {
	a.cached(w, r, "blogs", func(ctx context.Context) (any, error) {
		return a.content.BlogIDs(ctx)
	})
}

func (a *api) getBlog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a.cached(w, r, "blog:"+id, func(ctx context.Context) (any, error) {
		return a.content.GetBlog(ctx, id)
	})
}

func (a *api) updateBlog(w http.ResponseWriter, r *http.Request) {
	var req BlogRequest
	if err := decodeJSON(r, "blog", &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	blog, err := a.content.UpdateBlog(r.Context(), currentUser(r.Context()).ID, chi.URLParam(r, "id"), req.Title)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

func (a *api) deleteBlog(w http.ResponseWriter, r *http.Request) {
	if err := a.content.DeleteBlog(r.Context(), currentUser(r.Context()).ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: "blog deleted successfully"})
}

func (a *api) createPost(w http.ResponseWriter, r *http.Request) {
	var req PostRequest
	if err := decodeJSON(r, "post", &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	post, err := a.content.CreatePost(r.Context(), currentUser(r.Context()).ID, chi.URLParam(r, "blog_id"), req.Content)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (a *api) getPost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a.cached(w, r, "post:"+id, func(ctx context.Context) (any, error) {
		return a.content.GetPost(ctx, id)
	})
}

func (a *api) updatePost(w http.ResponseWriter, r *http.Request) {
	var req PostRequest
	if err := decodeJSON(r, "post", &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	post, err := a.content.UpdatePost(r.Context(), currentUser(r.Context()).ID, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (a *api) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := a.content.DeletePost(r.Context(), currentUser(r.Context()).ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: "post deleted successfully"})
}

func (a *api) createLike(w http.ResponseWriter, r *http.Request) {
	like, err := a.content.CreateLike(r.Context(), currentUser(r.Context()).ID, chi.URLParam(r, "post_id"))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, like)
}

func (a *api) deleteLike(w http.ResponseWriter, r *http.Request) {
	if err := a.content.DeleteLike(r.Context(), currentUser(r.Context()).ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: "like deleted successfully"})
}
