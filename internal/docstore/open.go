// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package docstore

import (
	"context"

	"github.com/samber/oops"
)

// Supported drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
)

// Options selects and configures a backend.
type Options struct {
	Driver      string
	DatabaseURL string
	Dynamo      DynamoConfig
}

// Open constructs the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, oops.Code("DOC_CONFIG_INVALID").Errorf("postgres driver requires a database URL")
		}
		return NewPostgresStore(ctx, opts.DatabaseURL)
	case DriverDynamoDB:
		if opts.Dynamo.Table == "" {
			return nil, oops.Code("DOC_CONFIG_INVALID").Errorf("dynamodb driver requires a table name")
		}
		return NewDynamoStore(ctx, opts.Dynamo)
	default:
		return nil, oops.Code("DOC_CONFIG_INVALID").With("driver", opts.Driver).Errorf("unknown store driver %q", opts.Driver)
	}
}
