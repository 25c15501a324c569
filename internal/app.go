package internal

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/whalewatch/config"
	"github.com/vadiminshakov/whalewatch/internal/clients"
	"github.com/vadiminshakov/whalewatch/internal/console"
	"github.com/vadiminshakov/whalewatch/internal/ledger"
	"github.com/vadiminshakov/whalewatch/internal/observability"
	"github.com/vadiminshakov/whalewatch/internal/services/fetcher"
	"github.com/vadiminshakov/whalewatch/internal/services/merger"
	"github.com/vadiminshakov/whalewatch/internal/services/pricer"
	"github.com/vadiminshakov/whalewatch/internal/services/roster"
	"github.com/vadiminshakov/whalewatch/internal/services/scanner"
	"github.com/vadiminshakov/whalewatch/internal/storage/ledgerstore"
	"github.com/vadiminshakov/whalewatch/internal/web"
	"github.com/vadiminshakov/whalewatch/pkg/ratelimit"
)

// App holds the wired scan pipeline.
type App struct {
	Config     config.Config
	Controller *scanner.Controller
	Hub        *scanner.Hub
	Metrics    *observability.Metrics
	Watcher    *Watcher
	Server     *web.Server

	store  *ledgerstore.WALStore
	logger *zap.Logger
}

// NewApp builds every component from cfg. Console output goes to out when it is not nil.
func NewApp(ctx context.Context, cfg config.Config, out io.Writer, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	hlClient, err := clients.NewHyperliquidClient(ctx, cfg.PrivateKey, cfg.HyperliquidURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create hyperliquid client")
	}
	logger.Info("hyperliquid client ready", zap.String("account", hlClient.AccountAddress()))

	return assemble(cfg, pricer.NewHyperliquidPricer(hlClient.Info(), logger.Named("pricer")), out, logger)
}

func assemble(cfg config.Config, quotes pricer.QuoteSource, out io.Writer, logger *zap.Logger) (*App, error) {
	metrics := observability.NewMetrics("whalewatch")
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	store, err := ledgerstore.NewWALStore(cfg.DataDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open ledger store in %s", cfg.DataDir)
	}

	positions := ledger.New()
	hub := scanner.NewHub()
	if out != nil {
		hub.Subscribe(console.NewReporter(out))
	}

	snapshots := fetcher.New(
		ratelimit.New(cfg.RatePerSecond),
		fetcher.WithInfoURL(cfg.InfoURL),
		fetcher.WithHTTPClient(httpClient),
		fetcher.WithTimeout(cfg.RequestTimeout),
		fetcher.WithMaxAttempts(cfg.MaxAttempts),
		fetcher.WithBaseDelay(cfg.BaseDelay),
		fetcher.WithLogger(logger.Named("fetcher")),
		fetcher.WithMetrics(metrics),
	)

	controller := scanner.NewController(scanner.ControllerConfig{
		Roster: roster.New(
			roster.WithURL(cfg.LeaderboardURL),
			roster.WithHTTPClient(httpClient),
			roster.WithLogger(logger.Named("roster")),
		),
		Quotes:         quotes,
		Fetcher:        snapshots,
		Merger:         merger.New(positions, merger.WithLogger(logger.Named("merger")), merger.WithMetrics(metrics)),
		Ledger:         positions,
		Store:          store,
		Reporter:       hub,
		MaxConcurrency: cfg.Concurrency,
		Logger:         logger.Named("scanner"),
		Metrics:        metrics,
	})

	app := &App{
		Config:     cfg,
		Controller: controller,
		Hub:        hub,
		Metrics:    metrics,
		Watcher:    NewWatcher(controller, cfg.MinValue, cfg.ScanInterval, logger.Named("watcher")),
		store:      store,
		logger:     logger,
	}
	if cfg.Addr != "" && !cfg.Once {
		app.Server = web.NewServer(cfg.Addr, controller, positions, hub, metrics.Handler(), cfg.MinValue, logger.Named("web"))
	}

	return app, nil
}

// Run restores the persisted ledger, then either scans once or serves the
// web feed next to the periodic scan loop until ctx is done.
func (a *App) Run(ctx context.Context) error {
	n, err := a.Controller.Restore(ctx)
	if err != nil {
		a.logger.Warn("failed to restore ledger, starting empty", zap.Error(err))
	} else if n > 0 {
		a.logger.Info("restored positions from disk", zap.Int("positions", n))
	}

	if a.Config.Once {
		_, err := a.Watcher.RunOnce(ctx)
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if a.Server != nil {
		g.Go(func() error {
			return a.Server.Start(ctx)
		})
	}
	g.Go(func() error {
		return a.Watcher.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close releases the ledger store.
func (a *App) Close() error {
	return a.store.Close()
}
