// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/quillhq/quill/internal/auth"
	"github.com/quillhq/quill/internal/config"
	"github.com/quillhq/quill/internal/content"
	"github.com/quillhq/quill/internal/docstore"
	"github.com/quillhq/quill/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// StoreOpener opens the document store.
	// Default: docstore.Open
	StoreOpener func(ctx context.Context, opts docstore.Options) (docstore.Store, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, checker observability.ReadinessChecker, registrars ...observability.Registrar) ObservabilityServer

	// ListenerFactory creates the API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.StoreOpener == nil {
		out.StoreOpener = docstore.Open
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, checker observability.ReadinessChecker, registrars ...observability.Registrar) ObservabilityServer {
			return observability.NewServer(addr, checker, registrars...)
		}
	}
	if out.ListenerFactory == nil {
		out.ListenerFactory = net.Listen
	}
	return &out
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// services is the wired domain layer shared by serve and seed.
type services struct {
	store    docstore.Store
	manager  *content.Manager
	auth     *auth.Service
	resolver *auth.Resolver
}

func (s *services) Close() {
	s.store.Close()
}

func buildServices(ctx context.Context, cfg *config.Config, logger *slog.Logger, open func(context.Context, docstore.Options) (docstore.Store, error)) (*services, error) {
	store, err := open(ctx, cfg.DocstoreOptions())
	if err != nil {
		return nil, err
	}

	manager := content.NewManager(store, content.WithLogger(logger))
	if err := manager.EnsureIndexes(ctx); err != nil {
		store.Close()
		return nil, err
	}

	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		store.Close()
		return nil, err
	}
	tokens, err := auth.NewTokenAuthority(auth.TokenConfig{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	service, err := auth.NewAuthService(manager, hasher, tokens, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &services{
		store:    store,
		manager:  manager,
		auth:     service,
		resolver: auth.NewResolver(tokens, manager),
	}, nil
}
