package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"futarchy-alerts/internal/accounts"
	"futarchy-alerts/internal/alerting"
	"futarchy-alerts/internal/config"
	"futarchy-alerts/internal/ledger"
	"futarchy-alerts/internal/scheduler"
	"futarchy-alerts/internal/service"
	"futarchy-alerts/internal/source"
	"futarchy-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// newCascade wires all acquisition strategies in reliability order. The
// ticker probe comes last and never yields a snapshot, so a cascade reaching
// it is already committed to reporting unavailability.
func (a *App) newCascade() *source.Cascade {
	proposalID := a.Config.Proposal.Address

	query := source.NewQuery(source.QueryOptions{
		Endpoints:  a.Config.Query.Endpoints,
		ProposalID: proposalID,
		Timeout:    a.Config.Query.RequestTimeout,
		UserAgent:  a.Config.Query.UserAgent,
	}, a.Logger)

	browser := source.NewBrowser(source.BrowserOptions{
		PageURL:          a.Config.Page.BaseURL,
		ProposalID:       proposalID,
		NavigateTimeout:  a.Config.Page.NavigateTimeout,
		InterstitialWait: a.Config.Page.InterstitialWait,
	}, a.Logger)

	static := source.NewStatic(source.StaticOptions{
		PageURL:     a.Config.Page.BaseURL,
		ProposalID:  proposalID,
		Timeout:     a.Config.Page.RequestTimeout,
		UserAgent:   a.Config.Page.UserAgent,
		PacingDelay: a.Config.Page.PacingDelay,
	}, a.Logger)

	rpc := ledger.NewClient(ledger.Options{
		Endpoint:   a.Config.Ledger.RPCURL,
		Timeout:    a.Config.Ledger.RequestTimeout,
		MaxRetries: a.Config.Ledger.MaxRetries,
	}, a.Logger)
	chain := source.NewChain(rpc, accounts.OffsetProbeDecoder{}, proposalID, a.Logger)

	ticker := source.NewTicker(source.TickerOptions{
		FeedURL: a.Config.Ticker.FeedURL,
		Symbol:  a.Config.Ticker.Symbol,
		Timeout: a.Config.Ticker.RequestTimeout,
	}, a.Logger)

	return source.NewCascade(a.Logger, query, browser, static, chain, ticker)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

// openStore selects the history backend. A configured DSN routes the series
// through PostgreSQL; otherwise the JSON file store carries it.
func (a *App) openStore(ctx context.Context) (storage.HistoryStore, func(), error) {
	if a.Config.Database.DSN != "" {
		pool, err := storage.NewPool(ctx, a.Config.Database)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewPostgresStore(pool)
		return store, store.Close, nil
	}

	a.Logger.Debug().Str("path", a.Config.History.FilePath).Msg("database.dsn not configured; using file store")
	return storage.NewFileStore(a.Config.History.FilePath), nil, nil
}

func (a *App) serviceOptions() service.Options {
	return service.Options{
		ProposalID:        a.Config.Proposal.Address,
		AdvisoryLockKey:   a.Config.Scheduler.AdvisoryLockKey,
		NotifyUnavailable: a.Config.Alerting.NotifyUnavailable,
	}
}

// Run executes the long-running watcher service.
func (a *App) Run(ctx context.Context) error {
	if a.Config.Proposal.Address == "" {
		return errors.New("proposal.address is required")
	}

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

	svc := service.New(sched, a.newCascade(), store, a.newNotifier(), a.serviceOptions(), a.Logger)

	a.Logger.Info().Str("proposal", a.Config.Proposal.Address).Msg("starting watcher service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("watcher service stopped")
	return nil
}

// ExportOptions hold parameters for exporting the threshold history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
