package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigmarp/medical-api/internal/config"
	"github.com/sigmarp/medical-api/internal/repository/document"
	"github.com/sigmarp/medical-api/pkg/docstore"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the collections, tables and indexes the repositories query",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg.Logging)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			store, err := openStore(ctx, cfg.Store)
			if err != nil {
				return fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
			}
			defer store.Close(ctx)

			indexer, ok := store.(docstore.Indexer)
			if !ok {
				log.Info("store needs no migration", "driver", cfg.Store.Driver)
				return nil
			}
			specs := document.Indexes()
			if err := indexer.EnsureIndexes(ctx, specs); err != nil {
				return fmt.Errorf("ensure indexes: %w", err)
			}
			log.Info("indexes ensured", "driver", cfg.Store.Driver, "count", len(specs))
			return nil
		},
	}
}
