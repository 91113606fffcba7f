package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pizza-index-watcher/internal/alerting"
	"pizza-index-watcher/internal/clock"
	"pizza-index-watcher/internal/config"
	"pizza-index-watcher/internal/fetcher"
	"pizza-index-watcher/internal/scheduler"
	"pizza-index-watcher/internal/service"
	"pizza-index-watcher/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Clock  clock.Clock
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger.With().Str("component", "app").Logger(),
		Clock:  clock.System{},
	}
}

func (a *App) newFetcher() fetcher.IndexFetcher {
	return fetcher.NewUpstream(fetcher.UpstreamOptions{
		URL:       a.Config.Upstream.URL,
		Timeout:   a.Config.Upstream.RequestTimeout,
		UserAgent: a.Config.Upstream.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

// storeHandle bundles the capabilities of one opened backend. patterns is
// nil for the file backend.
type storeHandle struct {
	sink     storage.Sink
	browser  storage.HistoryBrowser
	patterns storage.PatternReader
}

func (a *App) openStore(ctx context.Context) (*storeHandle, func(), error) {
	switch a.Config.Storage.Backend {
	case config.BackendPostgres:
		pool, err := storage.NewPool(ctx, a.Config.Storage.Database)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewPostgresStore(pool)
		return &storeHandle{sink: store, browser: store, patterns: store}, store.Close, nil

	case config.BackendFile:
		store := storage.NewFileStore(a.Config.Storage.File.Path, a.Clock, a.Logger)
		return &storeHandle{sink: store, browser: store}, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", a.Config.Storage.Backend)
	}
}

func (a *App) newService(sched *scheduler.Scheduler, sink storage.Sink) *service.Service {
	return service.New(sched, a.newFetcher(), sink, a.newNotifier(), a.Clock, a.Config.Alerting.Enabled, a.Logger)
}

// Run executes the long-running collection service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := a.newService(sched, store.sink)

	a.Logger.Info().
		Str("backend", a.Config.Storage.Backend).
		Dur("interval", a.Config.Scheduler.Interval).
		Msg("starting collection service")

	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("collection service stopped")
	return nil
}

// ShowOptions configure the show and spikes commands.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting historical readings.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
