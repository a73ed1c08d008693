// Package app builds every availmon component from a config.Config and runs
// the poller alongside the optional status server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/availmon/internal/api"
	"github.com/JakeFAU/availmon/internal/clock/system"
	"github.com/JakeFAU/availmon/internal/config"
	"github.com/JakeFAU/availmon/internal/extract"
	collyfetcher "github.com/JakeFAU/availmon/internal/fetcher/colly"
	"github.com/JakeFAU/availmon/internal/fetcher/headless"
	rodfetcher "github.com/JakeFAU/availmon/internal/fetcher/rod"
	"github.com/JakeFAU/availmon/internal/hash/sha256"
	filehistory "github.com/JakeFAU/availmon/internal/history/file"
	pghistory "github.com/JakeFAU/availmon/internal/history/postgres"
	sqlitehistory "github.com/JakeFAU/availmon/internal/history/sqlite"
	"github.com/JakeFAU/availmon/internal/id/uuid"
	"github.com/JakeFAU/availmon/internal/metrics"
	"github.com/JakeFAU/availmon/internal/monitor"
	"github.com/JakeFAU/availmon/internal/notify"
	"github.com/JakeFAU/availmon/internal/notify/email"
	pubsubnotify "github.com/JakeFAU/availmon/internal/notify/pubsub"
	"github.com/JakeFAU/availmon/internal/notify/webhook"
	"github.com/JakeFAU/availmon/internal/poller"
	gcssnapshot "github.com/JakeFAU/availmon/internal/snapshot/gcs"
	localsnapshot "github.com/JakeFAU/availmon/internal/snapshot/local"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	poller  *poller.Poller
	history monitor.HistoryStore
	metrics *metrics.Collectors
	api     *api.Server
	closers []func() error
}

// Build creates the application's dependencies. Close must be called even
// when Run is not.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	logger.Info("building application",
		zap.String("url", cfg.Target.URL),
		zap.String("engine", cfg.Fetcher.Engine),
		zap.String("history", cfg.History.Backend),
		zap.String("snapshot", cfg.Snapshot.Backend),
		zap.Duration("interval", cfg.Poll.Interval),
	)

	fetcher, err := NewFetcher(cfg, logger.Named("fetcher"))
	if err != nil {
		return nil, err
	}

	history, closeHistory, err := OpenHistory(ctx, cfg, logger.Named("history"))
	if err != nil {
		return nil, err
	}
	a.history = history
	a.closers = append(a.closers, closeHistory)

	notifier, err := a.setupNotifiers(ctx)
	if err != nil {
		return nil, err
	}

	snapshots, err := a.setupSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	a.metrics = metrics.New()
	a.poller, err = poller.New(poller.Deps{
		Fetcher:   fetcher,
		Extractor: NewExtractor(cfg),
		History:   history,
		Notifier:  notifier,
		Snapshots: snapshots,
		Hasher:    sha256.New(),
		Clock:     system.New(),
		IDs:       uuid.New(),
		Recorder:  a.metrics,
	}, poller.Config{
		URL:            cfg.Target.URL,
		Interval:       cfg.Poll.Interval,
		Subject:        cfg.Notify.Subject,
		Recipients:     cfg.Notify.Email.To,
		SnapshotPrefix: cfg.Snapshot.Prefix,
	}, logger.Named("poller"))
	if err != nil {
		return nil, fmt.Errorf("poller init failed: %w", err)
	}

	if cfg.Server.Enabled {
		a.api = api.NewServer(a.poller, history, api.Options{
			Metrics:    a.metrics.Handler(),
			Middleware: []func(http.Handler) http.Handler{a.metrics.Middleware},
		}, logger.Named("api"))
	}
	return a, nil
}

// Poller exposes the configured poller.
func (a *App) Poller() *poller.Poller {
	return a.poller
}

// Run polls until ctx is canceled, serving the status API when enabled.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	var srv *http.Server
	serveErr := make(chan error, 1)
	if a.api != nil {
		srv = &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(a.cfg.Server.Port)),
			Handler:           a.api.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("http server error", zap.Error(err))
				serveErr <- err
				stop()
			}
		}()
	}

	runErr := a.poller.Run(ctx)
	a.logger.Info("shutdown initiated")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown error", zap.Error(err))
		}
	}

	select {
	case err := <-serveErr:
		return errors.Join(runErr, fmt.Errorf("http server: %w", err))
	default:
		return runErr
	}
}

// Close releases every client in reverse construction order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewFetcher builds the configured page fetcher.
func NewFetcher(cfg config.Config, logger *zap.Logger) (monitor.Fetcher, error) {
	fc := cfg.Fetcher
	switch fc.Engine {
	case config.EngineChromedp:
		f, err := headless.NewChromedp(headless.Config{
			UserAgent:         fc.UserAgent,
			NavigationTimeout: fc.NavTimeout,
			SettleDelay:       fc.SettleDelay,
			WindowWidth:       fc.WindowWidth,
			WindowHeight:      fc.WindowHeight,
			ExecPath:          fc.BrowserPath,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("chromedp fetcher init failed: %w", err)
		}
		return f, nil
	case config.EngineRod:
		f, err := rodfetcher.New(rodfetcher.Config{
			UserAgent:         fc.UserAgent,
			NavigationTimeout: fc.NavTimeout,
			SettleDelay:       fc.SettleDelay,
			WindowWidth:       fc.WindowWidth,
			WindowHeight:      fc.WindowHeight,
			Bin:               fc.BrowserPath,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("rod fetcher init failed: %w", err)
		}
		return f, nil
	case config.EngineStatic:
		logger.Warn("static fetcher does not execute scripts; client-rendered counts will be missed")
		return collyfetcher.New(collyfetcher.Config{
			UserAgent:     fc.UserAgent,
			RespectRobots: fc.RespectRobots,
			Timeout:       fc.NavTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown fetcher engine %q", fc.Engine)
	}
}

// NewExtractor builds the availability extractor.
func NewExtractor(cfg config.Config) monitor.Extractor {
	return extract.New(extract.Config{
		LabelSelector: cfg.Target.LabelSelector,
		MarkerPhrase:  cfg.Target.MarkerPhrase,
	})
}

// OpenHistory opens the configured history backend and returns its closer.
func OpenHistory(ctx context.Context, cfg config.Config, logger *zap.Logger) (monitor.HistoryStore, func() error, error) {
	hc := cfg.History
	switch hc.Backend {
	case config.HistoryFile:
		s, err := filehistory.New(filehistory.Config{Path: hc.Path}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("file history init failed: %w", err)
		}
		logger.Info("using file history", zap.String("path", hc.Path))
		return s, func() error { return nil }, nil
	case config.HistorySQLite:
		s, err := sqlitehistory.Open(ctx, hc.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite history init failed: %w", err)
		}
		logger.Info("using sqlite history", zap.String("path", hc.SQLitePath))
		return s, s.Close, nil
	case config.HistoryPostgres:
		s, err := pghistory.New(ctx, pghistory.Config{
			DSN:   hc.PostgresDSN,
			Table: hc.PostgresTable,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres history init failed: %w", err)
		}
		logger.Info("using postgres history", zap.String("table", hc.PostgresTable))
		return s, func() error { s.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", hc.Backend)
	}
}

func (a *App) setupNotifiers(ctx context.Context) (monitor.Notifier, error) {
	nc := a.cfg.Notify
	var targets []notify.Named

	if nc.Email.Enabled() {
		targets = append(targets, notify.Named{Name: "email", Notifier: email.New(email.Config{
			From:     nc.Email.From,
			Password: nc.Email.Password,
			SMTPHost: nc.Email.SMTPHost,
			SMTPPort: nc.Email.SMTPPort,
		})})
		a.logger.Info("email notifier enabled",
			zap.String("from", nc.Email.From),
			zap.Int("recipients", len(nc.Email.To)),
		)
	}

	if nc.Webhook.URL != "" {
		targets = append(targets, notify.Named{Name: "webhook", Notifier: webhook.New(webhook.Config{
			URL:     nc.Webhook.URL,
			Timeout: nc.Webhook.Timeout,
		})})
		a.logger.Info("webhook notifier enabled")
	}

	if nc.PubSub.Topic != "" {
		client, err := pubsub.NewClient(ctx, nc.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("pubsub client init failed: %w", err)
		}
		topic := client.Topic(nc.PubSub.Topic)
		a.closers = append(a.closers, func() error {
			topic.Stop()
			return client.Close()
		})
		targets = append(targets, notify.Named{Name: "pubsub", Notifier: pubsubnotify.New(topic)})
		a.logger.Info("pubsub notifier enabled",
			zap.String("project", nc.PubSub.ProjectID),
			zap.String("topic", nc.PubSub.Topic),
		)
	}

	if len(targets) == 0 {
		a.logger.Warn("no notifier configured; changes will only be logged and recorded")
	}
	return notify.NewMulti(targets...), nil
}

func (a *App) setupSnapshots(ctx context.Context) (monitor.BlobStore, error) {
	sc := a.cfg.Snapshot
	switch sc.Backend {
	case config.SnapshotLocal:
		s, err := localsnapshot.New(localsnapshot.Config{BaseDir: sc.Dir})
		if err != nil {
			return nil, fmt.Errorf("local snapshot store init failed: %w", err)
		}
		a.logger.Info("using local snapshot store", zap.String("dir", sc.Dir))
		return s, nil
	case config.SnapshotGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		s, err := gcssnapshot.New(client, gcssnapshot.Config{Bucket: sc.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("gcs snapshot store init failed: %w", err)
		}
		a.logger.Info("using gcs snapshot store", zap.String("bucket", sc.GCSBucket))
		return s, nil
	default:
		return nil, nil
	}
}
