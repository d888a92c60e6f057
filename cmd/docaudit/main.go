// Command docaudit ingests documents, runs compliance evaluations and
// renders reports against a local database without the HTTP server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docaudit/internal/config"
	"github.com/dgallion1/docaudit/internal/store"
)

var (
	dbPath     string
	storageDir string
	noLLM      bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:          "docaudit",
	Short:        "Match compliance requirements to document evidence",
	Long:         `Ingest documents, evaluate requirement lists against them and render citation-backed reports.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default $DATABASE_PATH)")
	rootCmd.PersistentFlags().StringVar(&storageDir, "storage", "", "storage directory (default $STORAGE_DIR)")
	rootCmd.PersistentFlags().BoolVar(&noLLM, "no-llm", false, "use fallback rationales instead of calling the model")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app is what every subcommand runs against.
type app struct {
	cfg   config.Config
	store *store.Store
	log   *slog.Logger
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg := config.Load()
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if storageDir != "" {
		cfg.StorageDir = storageDir
	}
	if noLLM {
		cfg.RationaleDisabled = true
	}
	if err := cfg.ValidateLocal(); err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &app{cfg: cfg, store: st, log: log}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
