// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err with structured context. Taxonomy errors are expected
// outcomes and go out at info level; everything else is an error.
// The public_message key is dropped since it duplicates the message.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	level := slog.LevelError
	kind := KindOf(err)
	if kind != KindInternal {
		level = slog.LevelInfo
	}

	attrs := []any{"error", err.Error(), "kind", string(kind)}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok && code != "" {
			attrs = append(attrs, "code", code)
		}
		if fields := oopsErr.Context(); len(fields) > 0 {
			filtered := make(map[string]any, len(fields))
			for k, v := range fields {
				if k == publicMessageKey {
					continue
				}
				filtered[k] = v
			}
			if len(filtered) > 0 {
				attrs = append(attrs, "context", filtered)
			}
		}
	}
	logger.Log(ctx, level, msg, attrs...)
}
