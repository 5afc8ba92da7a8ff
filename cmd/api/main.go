package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"keramika/internal/api"
	"keramika/internal/availability"
	"keramika/internal/config"
	"keramika/internal/database"
	"keramika/internal/events"
	"keramika/internal/export"
	"keramika/internal/giftcard"
	"keramika/internal/logging"
	"keramika/internal/metrics"
	"keramika/internal/notify"
	"keramika/internal/override"
	"keramika/internal/repository"
	"keramika/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()
	db.SetCapacities(cfg.Studio.Capacities)

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schedSrc := initScheduleSource(ctx, cfg, db, &logger)

	bus := events.NewEventBus()
	mailWorker := initNotifications(cfg, bus, &logger)
	go mailWorker.Run(ctx)

	availabilitySvc := availability.NewService(db, schedSrc, cfg.Studio, &logger)
	giftcardSvc := giftcard.NewService(db, bus, &logger)
	authorizer := override.NewAuthorizer(db, bus, &logger)
	exporter := export.NewExporter(db)

	httpServer := api.NewHTTPServer(
		&cfg.API, db, availabilitySvc, giftcardSvc, authorizer, exporter,
		schedSrc, bus, &logger,
	)

	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.Component(baseLogger, "api-main")

	return cfg, logger, closer, nil
}

// initScheduleSource wires the cached schedule reads: Redis with in-memory
// failover when Redis is configured and reachable, plain in-memory otherwise.
func initScheduleSource(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) *repository.CachedScheduleSource {
	memory := repository.NewMemoryScheduleCache()

	var cache repository.ScheduleCache = memory
	if cfg.Redis.Address != "" {
		client := repository.NewRedisClient(cfg.Redis)
		if err := repository.Ping(ctx, client); err != nil {
			logger.Warn().Err(err).Msg("redis connection failed, continuing with memory cache")
		} else {
			logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
			cache = repository.NewFailoverScheduleCache(
				repository.NewRedisScheduleCache(client), memory, logger)
		}
	}

	return repository.NewCachedScheduleSource(db, cache, 0, logger)
}

// initNotifications subscribes staff alerts and the receipt mail pipeline to
// the event bus. Missing telegram credentials disable staff alerts only.
func initNotifications(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) *worker.MailWorker {
	notifier, err := notify.NewTelegramNotifier(cfg.Notify, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram notifier disabled")
	} else {
		bus.Subscribe(events.EventBookingCreated, func(event *events.Event) error {
			var payload events.BookingEventPayload
			if err := json.Unmarshal(event.Payload, &payload); err != nil {
				return err
			}
			return notifier.NotifyManagers(fmt.Sprintf(
				"New booking #%d: %s, %s, %d people, %s %s",
				payload.BookingID, payload.CustomerName, payload.Technique,
				payload.Participants, payload.Date, payload.Time))
		})
		bus.Subscribe(events.EventOverrideRecorded, func(event *events.Event) error {
			var payload events.OverrideEventPayload
			if err := json.Unmarshal(event.Payload, &payload); err != nil {
				return err
			}
			return notifier.NotifyManagers(fmt.Sprintf(
				"Override on booking #%d by %s: %s",
				payload.BookingID, payload.OverriddenBy, payload.Reason))
		})
	}

	sender := &notify.LogMailSender{From: cfg.Notify.MailFrom, Logger: logger}
	mailWorker := worker.NewMailWorker(sender, logger)

	bus.Subscribe(events.EventGiftcardConsumed, func(event *events.Event) error {
		var payload events.GiftcardEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		mailWorker.Enqueue(worker.MailJob{
			To:      cfg.Notify.MailFrom,
			Subject: fmt.Sprintf("Giftcard payment for booking #%d", payload.BookingID),
			Body: fmt.Sprintf("Giftcard %d charged %.2f, balance %.2f",
				payload.GiftcardID,
				float64(payload.AmountCents)/100,
				float64(payload.NewBalanceCents)/100),
		})
		return nil
	})

	return mailWorker
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
