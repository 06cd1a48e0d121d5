package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sigmarp/medical-api/internal/config"
	"github.com/sigmarp/medical-api/pkg/docstore"
	"github.com/sigmarp/medical-api/pkg/docstore/memory"
	"github.com/sigmarp/medical-api/pkg/docstore/mongo"
	"github.com/sigmarp/medical-api/pkg/docstore/postgres"
	"github.com/sigmarp/medical-api/pkg/logger"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "sigma-api",
		Short:         "Medical visits and recruitment API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(tokenCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Format == "json",
	})
}

// openStore connects the configured document store backend.
func openStore(ctx context.Context, cfg config.StoreConfig) (docstore.Store, error) {
	switch cfg.Driver {
	case "mongo":
		return mongo.Connect(ctx, mongo.Config{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
		})
	case "postgres":
		return postgres.Connect(ctx, cfg.PostgresDSN)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
