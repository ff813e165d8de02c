// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"

	"github.com/quillhq/quill/pkg/errutil"
)

const (
	schemaBaseURL = "https://quill.dev/schemas/"
	maxBodyBytes  = 1 << 20
)

// SignupRequest is the body of POST /signup.
type SignupRequest struct {
	FirstName string `json:"first_name" jsonschema:"minLength=2,pattern=^ *[A-Za-z]+ *$"`
	LastName  string `json:"last_name" jsonschema:"minLength=2,pattern=^ *[A-Za-z]+ *$"`
	Email     string `json:"email" jsonschema:"format=email"`
	Password  string `json:"password" jsonschema:"minLength=8,maxLength=64"`
}

// LoginRequest is the JSON form of POST /login. Username holds the email.
type LoginRequest struct {
	Username string `json:"username" jsonschema:"minLength=1"`
	Password string `json:"password" jsonschema:"minLength=1"`
}

// RefreshRequest is the body of POST /refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" jsonschema:"minLength=1"`
}

// ProfileRequest is the body of PUT /update-me.
type ProfileRequest struct {
	FirstName string `json:"first_name" jsonschema:"minLength=2,pattern=^ *[A-Za-z]+ *$"`
	LastName  string `json:"last_name" jsonschema:"minLength=2,pattern=^ *[A-Za-z]+ *$"`
}

// BlogRequest is the body of blog create and update.
type BlogRequest struct {
	Title string `json:"title" jsonschema:"minLength=2"`
}

// PostRequest is the body of post create and update.
type PostRequest struct {
	Content string `json:"content" jsonschema:"minLength=5"`
}

// requestTypes names every request body with a schema.
var requestTypes = map[string]any{
	"signup":  &SignupRequest{},
	"login":   &LoginRequest{},
	"refresh": &RefreshRequest{},
	"profile": &ProfileRequest{},
	"blog":    &BlogRequest{},
	"post":    &PostRequest{},
}

// GenerateSchemas returns the JSON Schema of every request body keyed by
// name.
func GenerateSchemas() (map[string][]byte, error) {
	out := make(map[string][]byte, len(requestTypes))
	for name, v := range requestTypes {
		data, err := generateSchema(name, v)
		if err != nil {
			return nil, err
		}
		out[name] = data
	}
	return out, nil
}

// SchemaNames lists the request schema names in sorted order.
func SchemaNames() []string {
	names := make([]string, 0, len(requestTypes))
	for name := range requestTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func generateSchema(name string, v any) ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	schema := r.Reflect(v)
	schema.ID = jsonschema.ID(schemaBaseURL + name + ".schema.json")
	schema.Title = "Quill " + name + " request"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("HTTP_SCHEMA_FAILED").With("schema", name).Wrap(err)
	}
	return data, nil
}

var (
	compileOnce sync.Once
	compiled    map[string]*jschema.Schema
	compileErr  error
)

func compiledSchemas() (map[string]*jschema.Schema, error) {
	compileOnce.Do(func() {
		c := jschema.NewCompiler()
		c.AssertFormat()

		urls := make(map[string]string, len(requestTypes))
		for name, v := range requestTypes {
			data, err := generateSchema(name, v)
			if err != nil {
				compileErr = err
				return
			}
			doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
			if err != nil {
				compileErr = oops.Code("HTTP_SCHEMA_FAILED").With("schema", name).Wrap(err)
				return
			}
			url := schemaBaseURL + name + ".schema.json"
			if err := c.AddResource(url, doc); err != nil {
				compileErr = oops.Code("HTTP_SCHEMA_FAILED").With("schema", name).Wrap(err)
				return
			}
			urls[name] = url
		}

		compiled = make(map[string]*jschema.Schema, len(urls))
		for name, url := range urls {
			sch, err := c.Compile(url)
			if err != nil {
				compileErr = oops.Code("HTTP_SCHEMA_FAILED").With("schema", name).Wrap(err)
				return
			}
			compiled[name] = sch
		}
	})
	return compiled, compileErr
}

func invalidBody(field, message string) error {
	return errutil.Fail("HTTP_INVALID_BODY", errutil.ErrValidation, message, "field", field)
}

// decodeJSON reads the request body, validates it against the named schema
// and unmarshals it into dst.
func decodeJSON(r *http.Request, name string, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return invalidBody("", "request body too large")
		}
		return oops.Code("HTTP_READ_FAILED").Wrap(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return invalidBody("", "request body is required")
	}

	instance, err := jschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return invalidBody("", "request body is not valid JSON")
	}
	if err := validateInstance(name, instance); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return invalidBody("", "request body does not match the expected shape")
	}
	return nil
}

func validateInstance(name string, instance any) error {
	schemas, err := compiledSchemas()
	if err != nil {
		return err
	}
	sch, ok := schemas[name]
	if !ok {
		return oops.Code("HTTP_SCHEMA_UNKNOWN").With("schema", name).Errorf("no schema named %q", name)
	}
	err = sch.Validate(instance)
	if err == nil {
		return nil
	}
	var ve *jschema.ValidationError
	if !errors.As(err, &ve) {
		return oops.Code("HTTP_SCHEMA_FAILED").With("schema", name).Wrap(err)
	}
	field, message := describe(ve)
	return invalidBody(field, message)
}

// describe picks the first leaf failure and renders it for clients.
func describe(ve *jschema.ValidationError) (field, message string) {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	field = strings.Join(leaf.InstanceLocation, ".")

	if k, ok := leaf.ErrorKind.(*kind.Required); ok && len(k.Missing) > 0 {
		field = k.Missing[0]
		return field, field + " is required"
	}
	if field == "" {
		return "", "invalid request body"
	}
	switch k := leaf.ErrorKind.(type) {
	case *kind.Type:
		return field, field + " has the wrong type"
	case *kind.Format:
		return field, field + " is not a valid " + k.Want
	}
	return field, "invalid value for " + field
}
