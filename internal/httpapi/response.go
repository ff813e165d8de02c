// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/quillhq/quill/pkg/errutil"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
}

// successBody acknowledges a delete.
type successBody struct {
	Success string `json:"success"`
}

var kindStatus = map[errutil.Kind]int{
	errutil.KindInvalidCredentials: http.StatusBadRequest,
	errutil.KindForbidden:          http.StatusForbidden,
	errutil.KindUnauthorized:       http.StatusUnauthorized,
	errutil.KindNotFound:           http.StatusNotFound,
	errutil.KindConflict:           http.StatusConflict,
	errutil.KindValidation:         http.StatusUnprocessableEntity,
}

// StatusOf maps an error to its HTTP status.
func StatusOf(err error) int {
	if status, ok := kindStatus[errutil.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode response", "error", err)
		http.Error(w, `{"detail":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, data)
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	w.Write(data)
}

// writeError renders err as {"detail": ...} and logs it.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := StatusOf(err)
	body := errorBody{Detail: errutil.PublicMessage(err)}
	if oopsErr, ok := oops.AsOops(err); ok && status == http.StatusUnprocessableEntity {
		if field, ok := oopsErr.Context()["field"].(string); ok {
			body.Field = field
		}
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	errutil.LogError(r.Context(), logger, "request failed", err)
	writeJSON(w, status, body)
}
