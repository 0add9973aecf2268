// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/typebind/pkg/logging"
	"github.com/AleutianAI/typebind/services/typebind"
	"github.com/AleutianAI/typebind/services/typebind/config"
	"github.com/AleutianAI/typebind/services/typebind/storage/badger"
)

// app is the state shared by every subcommand once the root command's
// pre-run has loaded configuration.
type app struct {
	configPath string
	logLevel   string
	jsonOutput bool

	cfg    *config.Config
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "typebind",
		Short: "Resolve Java generic type parameters through class hierarchies",
		Long: `typebind parses a Java project, builds its class hierarchy and answers
which concrete type a subclass binds to an ancestor's type parameter.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.logger != nil {
				return a.logger.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Print results as JSON")

	root.AddCommand(newResolveCmd(a))
	root.AddCommand(newChainCmd(a))
	root.AddCommand(newSubtypeCmd(a))
	root.AddCommand(newTypesCmd(a))
	root.AddCommand(newServeCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	logger, err := logging.New(logging.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Dir:     cfg.Logging.Dir,
		Service: cfg.Telemetry.ServiceName,
		Output:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger.Slog())

	a.cfg = cfg
	a.logger = logger
	return nil
}

// serviceConfig maps the file configuration onto the service's own.
func serviceConfig(cfg *config.Config) typebind.ServiceConfig {
	sc := typebind.DefaultServiceConfig()
	sc.MaxInitDuration = cfg.Service.MaxInitDuration
	sc.MaxProjectFiles = cfg.Service.MaxProjectFiles
	sc.MaxProjectSize = cfg.Service.MaxProjectSize
	sc.MaxCachedUniverses = cfg.Service.MaxCachedUniverses
	sc.UniverseTTL = cfg.Service.UniverseTTL
	sc.ParseWorkers = cfg.Service.ParseWorkers
	sc.MemoCapacity = cfg.Service.MemoCapacity
	sc.IncludeStubs = cfg.Service.IncludeStubs
	sc.AllowedRoots = cfg.Service.AllowedRoots
	sc.Excludes = cfg.Service.Excludes
	sc.WatchOnInit = cfg.Watch.Enabled
	if cfg.Watch.Debounce > 0 {
		sc.WatchDebounce = cfg.Watch.Debounce
	}
	return sc
}

// openStore opens the declaration store when storage is configured.
// The returned close function is never nil.
func openStore(cfg config.StorageConfig, logger *slog.Logger) (*badger.DeclStore, func() error, error) {
	if !cfg.Enabled() {
		return nil, func() error { return nil }, nil
	}

	bcfg := badger.DefaultConfig()
	bcfg.Path = cfg.CacheDir
	bcfg.InMemory = cfg.InMemory
	bcfg.Logger = logger

	db, err := badger.Open(bcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening declaration store: %w", err)
	}
	return badger.NewDeclStore(db), db.Close, nil
}

// newService builds a Service from the loaded configuration.
func (a *app) newService() (*typebind.Service, func(), error) {
	logger := a.logger.Slog()
	store, closeStore, err := openStore(a.cfg.Storage, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := []typebind.ServiceOption{typebind.WithLogger(logger)}
	if store != nil {
		opts = append(opts, typebind.WithStore(store))
	}
	svc := typebind.NewService(serviceConfig(a.cfg), opts...)

	cleanup := func() {
		svc.Close()
		if err := closeStore(); err != nil {
			logger.Warn("Closing declaration store failed", "error", err)
		}
	}
	return svc, cleanup, nil
}

// loadProject runs Init on root and returns the universe ID.
func (a *app) loadProject(ctx context.Context, svc *typebind.Service, root string) (string, error) {
	resp, err := svc.Init(ctx, root, nil)
	if err != nil {
		return "", err
	}
	for _, msg := range resp.Errors {
		a.logger.Slog().Warn("Parse problem", "detail", msg)
	}
	return resp.UniverseID, nil
}

func (a *app) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
