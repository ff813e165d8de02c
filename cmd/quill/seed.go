// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/quillhq/quill/internal/docstore"
	"github.com/quillhq/quill/internal/seed"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd(opts *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Load users, blogs, posts and likes from a YAML fixture",
		Long: `Replays a YAML fixture through the signup and content operations.
Users whose email already exists are skipped, so the command can be re-run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, opts, args[0], timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", defaultSeedTimeout, "timeout for store operations (e.g., 30s, 1m)")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *rootOptions, path string, timeout time.Duration) error {
	fx, err := seed.ParseFile(path)
	if err != nil {
		return err
	}

	cfg, err := opts.loader().Load(cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := setupLogging(cfg, cmd)
	if err != nil {
		return err
	}

	// cmd.Context() carries SIGINT/SIGTERM cancellation from cobra.
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if cfg.Store.Driver == docstore.DriverPostgres {
		m, err := migratorFactory(cfg.Store.DatabaseURL)
		if err != nil {
			return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
		}
		err = runMigrateUp(cmd, m)
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("closing migrator", "error", closeErr)
		}
		if err != nil {
			return err
		}
	}

	svc, err := buildServices(ctx, cfg, logger, docstore.Open)
	if err != nil {
		return err
	}
	defer svc.Close()

	res, err := seed.NewSeeder(svc.auth, svc.manager, logger).Run(ctx, fx)
	if err != nil {
		return err
	}

	cmd.Printf("Seeded %d users (%d skipped), %d blogs, %d posts, %d likes\n",
		res.UsersCreated, res.UsersSkipped, res.Blogs, res.Posts, res.Likes)
	return nil
}
