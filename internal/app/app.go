package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/stockroom/internal/catalog"
	"github.com/five82/stockroom/internal/config"
	"github.com/five82/stockroom/internal/logging"
	"github.com/five82/stockroom/internal/prefs"
	"github.com/five82/stockroom/internal/state"
	"github.com/five82/stockroom/internal/ui"
)

// Options configure the stockroom client.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/stockroom/prefs.toml
	PollEvery  int    // seconds; zero uses the config value
	BaseURL    string // overrides base_url from the config file
}

// Run boots the product browser until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}

	log, err := logging.New("stockroom", cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = log.Sync() }()

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		log.Warn("load preferences failed, using defaults", zap.String("path", opts.PrefsPath), zap.Error(err))
	}

	store, client, err := newStore(cfg, log)
	if err != nil {
		return err
	}
	log.Info("starting",
		zap.String("base_url", client.BaseURL()),
		zap.Duration("poll_interval", cfg.PollInterval))

	// Populate the cache before the first frame. A failure here is shown in
	// the UI rather than aborting startup.
	initCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	if _, err := store.FetchAll(initCtx); err != nil {
		log.Warn("initial fetch failed", zap.Error(err))
	}
	cancel()

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	StartPoller(pollCtx, store, cfg.PollInterval, log.Named("poller"))

	return ui.Run(ui.Options{
		Context:        ctx,
		Store:          store,
		BaseURL:        client.BaseURL(),
		LogFile:        cfg.LogFile,
		RequestTimeout: cfg.RequestTimeout,
		ThemeName:      userPrefs.Theme,
		ConfirmDelete:  userPrefs.ConfirmDelete,
		PrefsPath:      opts.PrefsPath,
		Logger:         log.Named("ui"),
	})
}

func newStore(cfg config.Config, log *zap.Logger) (*state.Store, *catalog.Client, error) {
	client, err := catalog.NewClient(cfg.BaseURL, catalog.Options{
		Timeout:         cfg.RequestTimeout,
		BreakerFailures: cfg.Breaker.ConsecutiveFailures,
		BreakerTimeout:  cfg.Breaker.OpenTimeout,
		Logger:          log.Named("catalog"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init catalog client: %w", err)
	}
	return state.NewStore(client, log.Named("state")), client, nil
}
