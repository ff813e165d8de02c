// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhq/quill/pkg/errutil"
)

func TestSchemaNames(t *testing.T) {
	assert.Equal(t, []string{"blog", "login", "post", "profile", "refresh", "signup"}, SchemaNames())
}

func TestGenerateSchemas(t *testing.T) {
	schemas, err := GenerateSchemas()
	require.NoError(t, err)
	require.Len(t, schemas, len(requestTypes))

	var signup struct {
		ID         string                    `json:"$id"`
		Required   []string                  `json:"required"`
		Properties map[string]map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(schemas["signup"], &signup))

	assert.Equal(t, "https://quill.dev/schemas/signup.schema.json", signup.ID)
	assert.ElementsMatch(t, []string{"first_name", "last_name", "email", "password"}, signup.Required)
	assert.Equal(t, "email", signup.Properties["email"]["format"])
	assert.EqualValues(t, 8, signup.Properties["password"]["minLength"])
	assert.EqualValues(t, 64, signup.Properties["password"]["maxLength"])
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		field  string
		detail string
	}{
		{name: "empty body", body: "", detail: "request body is required"},
		{name: "not json", body: "{", detail: "request body is not valid JSON"},
		{name: "array", body: "[]", detail: "invalid request body"},
		{name: "short title", body: `{"title":"x"}`, field: "title", detail: "invalid value for title"},
		{name: "missing title", body: `{}`, field: "title", detail: "title is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/create-blog", strings.NewReader(tt.body))
			var dst BlogRequest
			err := decodeJSON(r, "blog", &dst)

			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "HTTP_INVALID_BODY")
			assert.Equal(t, tt.detail, errutil.PublicMessage(err))
		})
	}
}

func TestDecodeJSONAcceptsValidBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/create-blog", strings.NewReader(`{"title":"Engines","extra":true}`))
	var dst BlogRequest
	require.NoError(t, decodeJSON(r, "blog", &dst))
	assert.Equal(t, "Engines", dst.Title)
}

func TestDecodeJSONRejectsOversizedBody(t *testing.T) {
	body := `{"title":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/create-blog", strings.NewReader(body))
	var dst BlogRequest
	err := decodeJSON(r, "blog", &dst)
	require.Error(t, err)
	assert.Equal(t, "request body too large", errutil.PublicMessage(err))
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{errutil.ErrInvalidCredentials, http.StatusBadRequest},
		{errutil.ErrForbidden, http.StatusForbidden},
		{errutil.ErrUnauthorized, http.StatusUnauthorized},
		{errutil.ErrNotFound, http.StatusNotFound},
		{errutil.ErrConflict, http.StatusConflict},
		{errutil.ErrValidation, http.StatusUnprocessableEntity},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, StatusOf(tt.err), tt.err.Error())
	}
}
