package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docaudit/internal/api"
	"github.com/dgallion1/docaudit/internal/compliance"
	"github.com/dgallion1/docaudit/internal/config"
	"github.com/dgallion1/docaudit/internal/pipeline"
	"github.com/dgallion1/docaudit/internal/rationale"
	"github.com/dgallion1/docaudit/internal/report"
	"github.com/dgallion1/docaudit/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	capability, claude := rationale.New(cfg, log)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, st, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(api.Services{
		Store:   st,
		Ingest:  orch,
		Engine:  compliance.NewEngine(st, capability, compliance.OptionsFrom(cfg), log),
		Reports: report.NewBuilder(st, cfg.StorageDir, log),
		Claude:  claude,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // compliance runs are synchronous
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		if claude != nil {
			claude.Close()
		}
	}()

	log.Info("starting docaudit", "port", cfg.Port, "database", cfg.DatabasePath, "rationale_enabled", capability.Enabled())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
