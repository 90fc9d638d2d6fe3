package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/events"
	"storefront/internal/httpserver"
	"storefront/internal/logger"
	"storefront/internal/migrate"
	"storefront/internal/observability"
	cartrepo "storefront/internal/repository/cart"
	webhookrepo "storefront/internal/repository/webhook"
	cartsvc "storefront/internal/service/cart"
	productsvc "storefront/internal/service/product"
	"storefront/internal/shopify"
	"storefront/internal/storefront"
)

const sessionSweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	if cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, log, cfg.OTel)
	if err != nil {
		log.Fatal("init tracing", "error", err)
	}
	metrics := observability.NewMetrics()

	var checks []httpserver.ReadinessCheck
	operations := cartrepo.NewMemory()
	webhooks := webhookrepo.NewMemory()
	if cfg.DBConnString != "" {
		pool, err := db.Connect(ctx, cfg.DBConnString, db.DefaultPoolOptions(), log)
		if err != nil {
			log.Fatal("connect to db", "error", err)
		}
		defer pool.Close()
		if err := migrate.Apply(ctx, pool); err != nil {
			log.Fatal("apply migrations", "error", err)
		}
		operations = cartrepo.NewPostgres(pool, log)
		webhooks = webhookrepo.NewPostgres(pool, log)
		checks = append(checks, httpserver.ReadinessCheck{Name: "postgres", Ping: pool.Ping})
	} else {
		log.Warn("DB_DSN not set, journals are kept in memory")
	}

	var catalogCache cache.Cache = cache.NewMemory()
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "storefront")
		if err != nil {
			log.Fatal("connect to redis", "addr", cfg.Redis.Addr, "error", err)
		}
		defer redisCache.Close()
		catalogCache = redisCache
		checks = append(checks, httpserver.ReadinessCheck{Name: "redis", Ping: redisCache.Ping})
	}

	if cfg.Shopify.Endpoint() == "" {
		log.Warn("SHOPIFY_STORE_DOMAIN not set, platform calls will fail")
	}
	client := shopify.New(cfg.Shopify.Endpoint(), cfg.Shopify.AccessToken,
		shopify.WithTimeout(cfg.Shopify.Timeout),
		shopify.WithObserver(metrics),
	)
	catalog := productsvc.New(client, catalogCache, cfg.Redis.CacheTTL, log)
	carts := cartsvc.New(client)

	publisher := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if publisher.Enabled() {
		log.Info("publishing cart events", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}

	merge := cfg.Cart.ReconcileMode == config.ReconcileMerge
	sessions := storefront.NewRegistry(cfg.Cart.SessionTTL)
	dispatcher := storefront.NewDispatcher(carts, operations, publisher, metrics, log, storefront.DispatcherConfig{
		Merge:             merge,
		RollbackOnFailure: cfg.Cart.RollbackOnFailure,
	})

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sessions.Run(sweepCtx, sessionSweepInterval)

	srv, err := httpserver.New(cfg.HTTPAddr, log, httpserver.Deps{
		Catalog:            catalog,
		Carts:              carts,
		Sessions:           sessions,
		Dispatcher:         dispatcher,
		Operations:         operations,
		Webhooks:           webhooks,
		Events:             publisher,
		Metrics:            metrics,
		Checks:             checks,
		MergeOnLoad:        merge,
		RevalidationSecret: cfg.Shopify.RevalidationSecret,
		CookieSecure:       cfg.CookieSecure,
		CORSAllowOrigins:   cfg.CORSAllowOrigins,
		ServiceName:        cfg.OTel.ServiceName,
		WarmQueries: []shopify.ProductsQuery{
			{SortKey: productsvc.DefaultSortKey, Reverse: true},
		},
	})
	if err != nil {
		log.Fatal("init server", "error", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		log.Info("received signal, shutting down", "signal", sig.String())
	case err := <-serverErr:
		log.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	stopSweep()
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn("cart operations still in flight at shutdown", "error", err)
	}
	if err := publisher.Close(); err != nil {
		log.Warn("close event publisher", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("flush traces", "error", err)
	}
	log.Info("server stopped")
}
