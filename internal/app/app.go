package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/five82/minicart/internal/cache"
	"github.com/five82/minicart/internal/config"
	"github.com/five82/minicart/internal/listener"
	"github.com/five82/minicart/internal/obs"
	"github.com/five82/minicart/internal/prefs"
	"github.com/five82/minicart/internal/state"
	"github.com/five82/minicart/internal/storeapi"
	"github.com/five82/minicart/internal/syncer"
	"github.com/five82/minicart/internal/ui"
)

// Options configure the minicart application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/minicart/prefs.toml
}

const (
	serviceName   = "minicart"
	cacheLoadWait = 2 * time.Second
	shutdownWait  = 5 * time.Second
	redisCacheTTL = 7 * 24 * time.Hour
)

// Run boots the minicart TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser, err := obs.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.LogPath)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logCloser.Close() }()
	logger = logger.With().Str("session", uuid.NewString()).Logger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := obs.NewMetrics(serviceName, reg)

	shutdownTracer, err := obs.InitTracer(ctx, obs.TracingConfig{
		ServiceName:   serviceName,
		Endpoint:      cfg.TracingEndpoint,
		SamplingRatio: cfg.TracingSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	client, err := storeapi.NewClient(storeapi.Options{
		StoreURL: cfg.StoreURL,
		Timeout:  cfg.RequestTimeout,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		return fmt.Errorf("init store client: %w", err)
	}

	rdb, err := newRedisClient(cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	backend, err := newCacheBackend(cfg, rdb)
	if err != nil {
		return err
	}
	localCache := cache.New(backend, logger, metrics)
	defer func() {
		if err := localCache.Close(); err != nil {
			logger.Warn().Err(err).Msg("cache_close_failed")
		}
	}()

	store := state.NewStore()
	warmStart(ctx, localCache, store, client, logger)

	synchronizer := syncer.New(syncer.Options{
		Client:  client,
		Store:   store,
		Cache:   localCache,
		Logger:  logger,
		Metrics: metrics,
	})

	userPrefs := prefs.Load(opts.PrefsPath)
	if userPrefs.Open {
		synchronizer.ToggleOpen()
	}
	theme := cfg.Theme
	if userPrefs.Theme != "" {
		theme = userPrefs.Theme
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	startListeners(runCtx, cfg, synchronizer, rdb, reg, logger, metrics)

	// First fetch runs in the background so the cached cart renders at once.
	go func() {
		if err := synchronizer.Refresh(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Msg("initial_refresh_failed")
		}
	}()

	updates, unsubscribe := store.Subscribe()
	defer unsubscribe()

	logger.Info().Str("store", cfg.StoreURL).Str("cache", cfg.CacheBackend).Msg("minicart_started")
	err = ui.Run(ui.Options{
		Context:   runCtx,
		Intents:   synchronizer,
		Updates:   updates,
		Initial:   store.Snapshot(),
		ThemeName: theme,
		PrefsPath: opts.PrefsPath,
		Logger:    logger,
	})
	logger.Info().Err(err).Msg("minicart_stopped")
	return err
}

// warmStart installs the cached cart and token before the first fetch.
func warmStart(ctx context.Context, c *cache.Cache, store *state.Store, client *storeapi.Client, logger zerolog.Logger) {
	lctx, cancel := context.WithTimeout(ctx, cacheLoadWait)
	defer cancel()

	snap, token := c.Load(lctx)
	if token != "" {
		client.SetToken(token)
	}
	if snap == nil && token == "" {
		return
	}
	if store.Warm(snap, token) {
		logger.Debug().Bool("snapshot", snap != nil).Msg("cart_warm_start")
	}
}

// startListeners launches the coalescer, poller and configured change sources.
func startListeners(ctx context.Context, cfg config.Config, synchronizer *syncer.Synchronizer, rdb *redis.Client, gatherer prometheus.Gatherer, logger zerolog.Logger, metrics *obs.Metrics) {
	coalescer := listener.NewCoalescer(cfg.CoalesceWindow, func(ctx context.Context) {
		_ = synchronizer.Refresh(ctx)
	}, listener.WithLogger(logger), listener.WithMetrics(metrics))
	go coalescer.Run(ctx)

	listener.StartPoller(ctx, synchronizer.Refresh, cfg.PollInterval, logger)

	if rdb != nil && cfg.RedisChannel != "" {
		src := &listener.RedisSource{
			Client:    rdb,
			Channel:   cfg.RedisChannel,
			Coalescer: coalescer,
			Logger:    logger,
		}
		go func() {
			if err := src.Run(ctx); err != nil {
				logger.Warn().Err(err).Msg("cart_signal_source_stopped")
			}
		}()
	}

	if cfg.SignalAddr != "" {
		src := listener.NewHTTPSource(cfg.SignalAddr, coalescer, gatherer, logger)
		go func() {
			if err := src.Run(ctx); err != nil {
				logger.Warn().Err(err).Msg("cart_signal_source_stopped")
			}
		}()
	}
}

// Notify publishes one cart-changed signal on the configured Redis channel so
// other running instances refresh.
func Notify(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	rdb, err := newRedisClient(cfg)
	if err != nil {
		return err
	}
	if rdb == nil {
		return errors.New("notify requires redis_url")
	}
	defer func() { _ = rdb.Close() }()
	return listener.Publish(ctx, rdb, cfg.RedisChannel, uuid.NewString())
}

func newRedisClient(cfg config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	ropts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(ropts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("instrument redis tracing: %w", err)
	}
	return client, nil
}

func newCacheBackend(cfg config.Config, rdb *redis.Client) (cache.Backend, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		if rdb == nil {
			return nil, errors.New("redis cache requires redis_url")
		}
		return cache.NewRedisBackend(rdb, serviceName+":", redisCacheTTL), nil
	default:
		backend, err := cache.NewFileBackend(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("init cache dir: %w", err)
		}
		return backend, nil
	}
}
