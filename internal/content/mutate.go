// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package content

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/quillhq/quill/internal/docstore"
	"github.com/quillhq/quill/pkg/errutil"
)

// Retry policy for version conflicts: 5 attempts, exponential from 10ms.
const (
	mutateAttempts = 5
	mutateBase     = 10 * time.Millisecond
	mutateJitter   = 25
)

// mutate re-reads id, applies fn and saves with a version check, retrying
// on conflict. fn reports whether it changed the document; unchanged
// documents are not written. The final document is returned.
func mutate[T any, PT document[T]](ctx context.Context, repo *Repository[T, PT], id string, fn func(PT) (bool, error)) (PT, error) {
	var result PT
	backoff := retry.WithMaxRetries(mutateAttempts-1,
		retry.WithJitterPercent(mutateJitter, retry.NewExponential(mutateBase)))
	attempt := 0

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			ConflictRetries.Inc()
		}

		doc, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		changed, err := fn(doc)
		if err != nil {
			return err
		}
		if changed {
			if err := repo.Save(ctx, doc); err != nil {
				if errors.Is(err, docstore.ErrVersionConflict) {
					return retry.RetryableError(err)
				}
				return err
			}
		}
		result = doc
		return nil
	})
	if err != nil {
		if errors.Is(err, docstore.ErrVersionConflict) {
			return nil, errutil.Fail("CONTENT_UPDATE_CONFLICT", errutil.ErrConflict,
				"concurrent update, please retry",
				"collection", repo.collection(),
				"id", id,
				"attempts", attempt,
			)
		}
		return nil, err
	}
	return result, nil
}
