// Command whalewatch tracks open perpetual positions of the largest
// Hyperliquid accounts and serves them as a JSON/SSE feed.
//
// Usage:
//
//	whalewatch --config config.yaml
//	whalewatch --setup
//	whalewatch --once --min-value 5000000
//
// Optional environment variables:
//
//	HYPERLIQUID_PRIVATE_KEY  signer for the SDK client, a throwaway key is used if unset
//	WHALEWATCH_DATA_DIR      overrides --data-dir
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vadiminshakov/whalewatch/config"
	"github.com/vadiminshakov/whalewatch/internal"
	"github.com/vadiminshakov/whalewatch/internal/setup"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := config.LoadEnv(); err != nil {
		logger.Warn("failed to load .env file", zap.Error(err))
	}

	args := os.Args[1:]
	cfg, opts, err := config.Get(args)
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	if opts.Setup {
		path, err := setup.RunTUI()
		if err != nil {
			logger.Fatal("setup failed", zap.Error(err))
		}
		cfg, _, err = config.Get(append(args, "--config", path))
		if err != nil {
			logger.Fatal("failed to load generated configuration", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := internal.NewApp(ctx, cfg, os.Stdout, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close ledger store", zap.Error(err))
		}
	}()

	if err := app.Run(ctx); err != nil {
		logger.Error("whalewatch stopped with error", zap.Error(err))
		return
	}
	logger.Info("whalewatch stopped")
}
