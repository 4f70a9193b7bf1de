package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/prakamrit/storefront/internal/advisor"
	"github.com/prakamrit/storefront/internal/catalog"
	"github.com/prakamrit/storefront/internal/config"
	"github.com/prakamrit/storefront/internal/db"
	"github.com/prakamrit/storefront/internal/idempotency"
	"github.com/prakamrit/storefront/internal/logging"
	"github.com/prakamrit/storefront/internal/metrics"
	"github.com/prakamrit/storefront/internal/migrations"
	"github.com/prakamrit/storefront/internal/notify"
	"github.com/prakamrit/storefront/internal/orders"
	"github.com/prakamrit/storefront/internal/payment"
	"github.com/prakamrit/storefront/internal/pricing"
	"github.com/prakamrit/storefront/internal/seed"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.IsDev())

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	for _, w := range cfg.Warnings {
		logger.Warn().Msg(w)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	migrations.SetLogger(logger)
	if err := migrations.Up(database); err != nil {
		return err
	}
	version, err := migrations.Version(database)
	if err != nil {
		return err
	}
	logger.Info().Int64("schema_version", version).Msg("migrations applied")
	ctx := context.Background()
	stats, err := seed.Run(ctx, database, seed.Config{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		DemoOrders:    cfg.IsDev(),
	})
	if err != nil {
		return err
	}
	logger.Info().Int("inserts", stats.Inserts).Int("updates", stats.Updates).Msg("seed complete")

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	for _, ref := range cat.Dangling() {
		logger.Warn().Str("ref", ref).Msg("recipe references an unknown ingredient")
	}

	m := metrics.New()
	srv, closeFn, err := newServer(cfg, logger, database, cat, m)
	if err != nil {
		return err
	}
	defer closeFn()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Str("env", cfg.AppEnv).Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(cfg.CatalogPath)
}

// newServer wires the optional backends: Redis for idempotency keys, Kafka
// for notifications and an AI endpoint. Each falls back to an in-process
// implementation when it is not configured.
func newServer(cfg config.Config, logger zerolog.Logger, database *sql.DB, cat *catalog.Catalog, m *metrics.Metrics) (*server, func(), error) {
	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn().Err(err).Msg("close")
			}
		}
	}

	auth, err := newAuthService(database, cfg.SessionSecret)
	if err != nil {
		return nil, nil, err
	}

	var keys idempotency.Store = idempotency.NewMemoryStore(idempotency.DefaultTTL)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		closers = append(closers, rdb.Close)
		keys = idempotency.NewRedisStore(rdb, idempotency.DefaultTTL)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("idempotency keys stored in redis")
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if len(cfg.KafkaBrokers) > 0 {
		kn := notify.NewKafkaNotifier(notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.NotifyTopic))
		closers = append(closers, kn.Close)
		notifier = kn
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.NotifyTopic).Msg("notifications published to kafka")
	}

	var chat advisor.Chatter
	if cfg.AIAPIKey != "" && cfg.AIBaseURL != "" {
		chat = advisor.NewClient(cfg.AIBaseURL, cfg.AIAPIKey, advisor.WithModel(cfg.AIModel))
	}

	srv := &server{
		cfg:      cfg,
		logger:   logger,
		db:       database,
		engine:   pricing.NewEngine(cat, pricing.WithCacheExpiry(cfg.BlendCacheTTL)),
		orders:   orders.NewStore(database),
		wishlist: orders.NewWishlistStore(database),
		auth:     auth,
		payments: payment.NewGateway(cfg.MerchantVPA, cfg.MerchantName, cfg.PaymentSecret),
		notifier: instrumentedNotifier{next: notifier, metrics: m},
		keys:     keys,
		advisor:  advisor.New(chat, logger, advisor.WithRecorder(m)),
		metrics:  m,
		validate: newValidator(),
		limiter:  newIPLimiter(rate.Limit(1), 3),
		now:      time.Now,
	}
	return srv, closeAll, nil
}
