package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/api"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/events"
	h "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/order"
	"github.com/fjod/storefront/internal/receipts"
	"github.com/fjod/storefront/internal/session"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	apiClient := api.NewClient(cfg.APIURL, api.Options{Timeout: cfg.UpstreamTimeout})

	var (
		catalogCache catalog.Cache
		sessionStore session.Store
	)
	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("redis unavailable at %s, continuing without it: %v", cfg.RedisAddr, err)
		}
		cancel()

		catalogCache = catalog.NewRedisCache(rdb, cfg.CatalogCacheTTL)
		sessionStore = session.NewRedisStore(rdb, cfg.SessionTTL)
		log.Printf("using redis at %s", cfg.RedisAddr)
	}

	catalogService := catalog.NewService(apiClient, catalogCache)
	orderClient := order.NewClient(apiClient, cfg.UpstreamTimeout)

	bus := events.NewBus()

	if cfg.KafkaEnabled() {
		forwarder := events.NewKafkaForwarder(events.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...), 1024)
		defer forwarder.Close()
		unsubscribe := bus.SubscribeAll(forwarder.Handle)
		defer unsubscribe()
		go forwarder.Run(ctx)
		log.Printf("forwarding events to kafka topic %s", cfg.KafkaTopic)
	}

	repo, err := receipts.NewRepository(cfg.ReceiptsDBPath)
	if err != nil {
		log.Fatalf("failed to open receipts db: %v", err)
	}
	defer repo.Close()
	if err := repo.RunMigrations(); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	detach := receipts.NewRecorder(repo).Attach(bus)
	defer detach()

	sessions := session.NewManager(sessionStore, bus, orderClient, cfg.SessionIdleTTL)
	defer sessions.Close()

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}, h.Handlers{
		Catalog:  h.NewCatalogHandler(catalogService, sessions),
		Basket:   h.NewBasketHandler(catalogService, sessions),
		Checkout: h.NewCheckoutHandler(sessions),
		Orders:   h.NewOrdersHandler(repo),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("storefront starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	stop()

	log.Println("server exited")
}
