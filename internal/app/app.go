package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"otcsettle/internal/adapters"
	"otcsettle/internal/adapters/cache"
	"otcsettle/internal/adapters/events"
	"otcsettle/internal/adapters/lpdesk"
	"otcsettle/internal/adapters/postgres"
	"otcsettle/internal/adapters/redisstore"
	"otcsettle/internal/api"
	"otcsettle/internal/api/handler"
	"otcsettle/internal/config"
	"otcsettle/internal/cryptoorder"
	"otcsettle/internal/gateway"
	"otcsettle/internal/jobs"
	"otcsettle/internal/platform/db"
	httpserver "otcsettle/internal/platform/http"
	"otcsettle/internal/platform/lock"
	"otcsettle/internal/platform/metrics"
	"otcsettle/internal/platform/redisdb"
	"otcsettle/internal/remittance"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const quotationCacheSize = 1024

// Run wires the application components, starts the feeds, the scheduler and the HTTP server
func Run() error {
	appCfg, err := config.Init()
	if err != nil {
		return err
	}
	// Logger
	logrus.SetOutput(os.Stdout)
	if parsedLvl, parseErr := logrus.ParseLevel(appCfg.Logging.Level); parseErr != nil {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(parsedLvl)
	}
	logrus.Info("✅ Config initialization successful")

	// Root context bound to OS signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bounded context for startup operations (DB connect, migrations, redis ping)
	startupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// DB pool
	pool, err := db.CreatePoolAndPing(startupCtx, appCfg.DbServer)
	if err != nil {
		logrus.WithError(err).Error("Error connecting to db")
		return err
	}
	defer pool.Close()
	if err = db.Migrate(startupCtx, pool); err != nil {
		logrus.WithError(err).Error("Error applying migrations")
		return err
	}
	logrus.Info("✅ Postgres connection successful")

	// Redis: remittance groups and group locks
	redisClient, err := redisdb.NewClientAndPing(startupCtx, appCfg.Redis)
	if err != nil {
		logrus.WithError(err).Error("Error connecting to redis")
		return err
	}
	defer func() { _ = redisClient.Close() }()
	logrus.Info("✅ Redis connection successful")

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	clock := clockwork.NewRealClock()
	emitter := newEmitter(appCfg.Kafka)
	defer closeEmitter(emitter)

	// Gateways and their streaming feeds
	gateways, feeds, refreshers, closeCaches, err := buildGateways(appCfg.Gateways, clock, appMetrics)
	if err != nil {
		logrus.WithError(err).Error("Failed to build gateways")
		return err
	}
	defer closeCaches()
	quotationFeeds := make([]gateway.QuotationFeed, 0, len(feeds))
	for _, f := range feeds {
		quotationFeeds = append(quotationFeeds, f)
	}
	quotations := gateway.NewQuotationService(quotationFeeds, appMetrics)
	logrus.Infof("✅ %d gateways registered", len(gateways.All()))

	// Repositories
	currencyRepo := postgres.NewCurrencyRepository(pool)
	providerRepo := postgres.NewProviderRepository(pool)
	holidayRepo := postgres.NewHolidayRepository(pool)
	featureRepo := postgres.NewFeatureSettingRepository(pool)
	cryptoOrderRepo := postgres.NewCryptoOrderRepository(pool)
	cryptoRemittanceRepo := postgres.NewCryptoRemittanceRepository(pool)
	remittanceRepo := postgres.NewRemittanceRepository(pool)
	remittanceOrderRepo := postgres.NewRemittanceOrderRepository(pool)
	groupCache := redisstore.NewGroupCache(redisClient)

	// Use cases
	matcher := cryptoorder.NewMatcher(cryptoOrderRepo, cryptoRemittanceRepo, quotations, gateways, providerRepo, emitter, clock, appCfg.Matcher)
	window, err := remittance.NewTradingWindow(appCfg.PSP)
	if err != nil {
		return err
	}
	grouper := remittance.NewGrouper(
		remittanceRepo, remittanceOrderRepo, groupCache, newLocker(appCfg.PSP, redisClient),
		currencyRepo, holidayRepo, featureRepo, emitter, window, clock, appMetrics, appCfg.PSP,
	)

	runner := jobs.NewRunner(matcher, grouper, currencyRepo, refreshers, appMetrics)
	scheduler := jobs.NewScheduler(runner, appCfg.Matcher.BaseCurrencies, clock, appCfg.Scheduler)
	// Ensure scheduler stops before DB pool closes
	defer func() {
		if shutDownErr := scheduler.Shutdown(); shutDownErr != nil {
			logrus.Errorf("Scheduler shutdown error: %v", shutDownErr)
		}
	}()

	group, groupCtx := errgroup.WithContext(ctx)
	for _, feed := range feeds {
		group.Go(func() error {
			feed.Run(groupCtx)
			return nil
		})
	}

	// Start scheduler tied to root context
	if startErr := scheduler.Start(groupCtx); startErr != nil {
		logrus.WithError(startErr).Error("Failed to start scheduler")
		stop()
		_ = group.Wait()
		return startErr
	}
	logrus.Info("✅ Scheduler activation successful")

	router := api.NewRouter(handler.NewHandler(runner, quotations), registry)
	group.Go(func() error {
		logrus.Info("Starting http server")
		// Block until context is canceled, then perform graceful shutdown.
		if serverErr := httpserver.Start(groupCtx, appCfg.HTTPServer, router); serverErr != nil {
			logrus.Errorf("HTTP server error: %v", serverErr)
			return serverErr
		}
		return nil
	})
	return group.Wait()
}

func buildGateways(cfgs []config.Gateway, clock clockwork.Clock, m *metrics.Metrics) (*gateway.Registry, []*lpdesk.Feed, []jobs.MarketRefresher, func(), error) {
	registry := gateway.NewRegistry()
	var (
		feeds      []*lpdesk.Feed
		refreshers []jobs.MarketRefresher
		closers    []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	for _, gc := range cfgs {
		markets, err := cache.NewMarketCache(gc.MarketTTL())
		if err != nil {
			closeAll()
			return nil, nil, nil, nil, err
		}
		closers = append(closers, markets.Close)

		quotes, err := cache.NewQuotationCache(quotationCacheSize, gc.QuotationTTL())
		if err != nil {
			closeAll()
			return nil, nil, nil, nil, err
		}
		closers = append(closers, quotes.Close)

		feed, err := lpdesk.NewFeed(lpdesk.FeedOptions{
			Provider:          gc.Name,
			URL:               gc.WsURL,
			APIKey:            gc.APIKey,
			AllowedBases:      gc.AllowedBases,
			DemandWindow:      gc.DemandWindow(),
			ReconnectCooldown: gc.ReconnectCooldown(),
			Clock:             clock,
			Metrics:           m,
		}, markets, quotes)
		if err != nil {
			closeAll()
			return nil, nil, nil, nil, fmt.Errorf("gateway %s: %w", gc.Name, err)
		}

		gw := lpdesk.NewGateway(gc.Name, lpdesk.NewClient(gc.RestURL, gc.APIKey, gc.Timeout()), markets, feed, m)
		if err = registry.Register(gw); err != nil {
			closeAll()
			return nil, nil, nil, nil, err
		}
		feeds = append(feeds, feed)
		refreshers = append(refreshers, gw)
	}
	return registry, feeds, refreshers, closeAll, nil
}

func newLocker(cfg config.PSP, client *redis.Client) adapters.Locker {
	if cfg.LockBackend == "memory" {
		logrus.Warn("Remittance groups are locked in-process, run a single instance only")
		return lock.NewKeyedLocker()
	}
	ttl := time.Duration(cfg.LockTTLSec) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return redisstore.NewLocker(client, ttl)
}

func newEmitter(cfg config.Kafka) adapters.EventEmitter {
	if len(cfg.Brokers) == 0 {
		logrus.Warn("No kafka brokers configured, events are only logged")
		return events.NewLogEmitter()
	}
	return events.NewKafkaEmitter(cfg)
}

func closeEmitter(e adapters.EventEmitter) {
	if k, ok := e.(*events.KafkaEmitter); ok {
		if err := k.Close(); err != nil {
			logrus.WithError(err).Error("Failed to flush events")
		}
	}
}
