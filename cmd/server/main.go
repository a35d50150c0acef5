/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the salon operations console server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (flags pick the config file; env overrides)
  2. Build the logger
  3. Open the backing store (spreadsheet service or local SQLite)
  4. Compose the API handler (cache, resolver, reconciler)
  5. Start the server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  # Local mode (SQLite)
  ./server

  # Against the spreadsheet service
  SALON_STORE=sheet SALON_SHEET_URL=http://sheets.internal/v1 ./server

  # With a config file
  ./server -config=./salon.yaml

SEE ALSO:
  - config/config.go: configuration keys
  - api/server.go: router configuration
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/salonops/console/api"
	"github.com/salonops/console/config"
	"github.com/salonops/console/core"
	"github.com/salonops/console/store/sheet"
	"github.com/salonops/console/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "optional config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	log, err := buildLogger(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer log.Sync()

	var (
		txs  core.TransactionStore
		pkgs core.PackageStore
	)
	switch cfg.Store {
	case config.StoreSheet:
		client := sheet.New(cfg.SheetURL)
		txs = client.Transactions()
		pkgs = client.Packages()
		log.Info("using spreadsheet store", zap.String("url", cfg.SheetURL))
	case config.StoreSQLite:
		db, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			log.Fatal("failed to open database", zap.Error(err))
		}
		defer db.Close()
		txs = db
		pkgs = db.Grants()
		log.Info("using sqlite store", zap.String("path", cfg.SQLitePath))
	}

	handler := api.NewHandler(txs, pkgs, log)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = lvl
	return cfg.Build()
}
