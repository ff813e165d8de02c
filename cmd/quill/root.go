// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/quillhq/quill/internal/config"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configFile string
	envFile    string
}

func (o *rootOptions) loader() config.Loader {
	return config.Loader{ConfigFile: o.configFile, DotEnvFile: o.envFile}
}

// NewRootCmd creates the root command for the Quill CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmdWithDeps(nil)
}

func newRootCmdWithDeps(deps *ServeDeps) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "quill",
		Short: "Quill - a blogging backend",
		Long: `Quill serves a JSON API for users, blogs, posts and likes, with
bearer-token authentication and a pluggable document store.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file with secrets (default .env)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd(opts, deps))
	cmd.AddCommand(NewMigrateCmd(opts))
	cmd.AddCommand(NewSeedCmd(opts))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("quill " + versionString())
		},
	}
}
