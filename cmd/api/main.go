package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sessionsnap/internal/api"
	"sessionsnap/internal/availability"
	"sessionsnap/internal/billing"
	"sessionsnap/internal/config"
	"sessionsnap/internal/database"
	"sessionsnap/internal/domain"
	"sessionsnap/internal/events"
	"sessionsnap/internal/export"
	"sessionsnap/internal/logging"
	"sessionsnap/internal/metrics"
	"sessionsnap/internal/repository"
	"sessionsnap/internal/service"
	"sessionsnap/internal/suggest"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Backup.Enabled {
		go database.NewBackupService(cfg.Database.Path, cfg.Backup, logging.Component(logger, "backup")).Start(ctx)
	}

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}
	drafts := initDrafts(cfg, redisClient, logger)

	bus := events.NewEventBus()
	subscribeAuditLog(bus, logging.Component(logger, "events"))

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}
	httpServer := api.NewHTTPServer(cfg.API, newServices(cfg, db, drafts, bus, logger), api.Options{
		Location:   cfg.Studio.Location(),
		Currency:   cfg.Studio.Currency,
		ExportsDir: cfg.Exports.Path,
	}, logging.Component(logger, "http"))

	startMetrics(ctx, cfg, logger)

	return startServer(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}
	if err := db.EnsureInternalClient(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed internal client: %w", err)
	}
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = repository.Close(redisClient)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initDrafts keeps drafts in Redis when it is reachable and falls back to memory otherwise.
func initDrafts(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.DraftRepository {
	ttl := cfg.Studio.DraftTTLDuration()
	memory := repository.NewMemoryDraftRepository(ttl)
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverDraftRepository(
		repository.NewRedisDraftRepository(redisClient, ttl),
		memory,
		logging.Component(logger, "drafts"),
	)
}

func studioHours(s config.StudioConfig) availability.Hours {
	return availability.Hours{
		Start:  s.StartHour,
		End:    s.EndHour,
		Buffer: time.Duration(s.BufferHours) * time.Hour,
	}
}

func newServices(cfg *config.Config, db *database.DB, drafts domain.DraftRepository, bus *events.EventBus, logger *zerolog.Logger) api.Services {
	loc := cfg.Studio.Location()

	return api.Services{
		Calendar: service.NewCalendarService(db, drafts, bus, studioHours(cfg.Studio), loc, logging.Component(logger, "calendar")),
		Billing: service.NewBillingService(db, billing.ReceiptFormatter{
			StudioName: cfg.Studio.Name,
			Currency:   cfg.Studio.Currency,
			Location:   loc,
		}, logging.Component(logger, "billing")),
		Clients: service.NewClientService(db, bus, logging.Component(logger, "clients")),
		Share: service.NewShareService(db, drafts, suggest.NewTemplateSuggester(), service.ShareSettings{
			StudioName:   cfg.Studio.Name,
			CalendarLink: cfg.Studio.CalendarLink,
			Language:     cfg.Studio.Language,
			Limit:        cfg.Studio.ShareRateLimitMessages,
			Window:       time.Duration(cfg.Studio.ShareRateLimitWindow) * time.Second,
		}, logging.Component(logger, "share")),
		Directory: func(ctx context.Context) (export.Names, error) {
			return db.Load(ctx)
		},
	}
}

func subscribeAuditLog(bus *events.EventBus, logger *zerolog.Logger) {
	logBooking := func(event *events.Event) error {
		var payload events.BookingEventPayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		logger.Info().
			Str("event", event.Type).
			Strs("booking_ids", payload.BookingIDs).
			Str("client_id", payload.ClientID).
			Str("project_id", payload.ProjectID).
			Time("start", payload.Start).
			Time("end", payload.End).
			Float64("hours", payload.Hours).
			Msg("booking event")
		return nil
	}
	logEntity := func(event *events.Event) error {
		var payload events.EntityEventPayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		logger.Info().Str("event", event.Type).Str("id", payload.ID).Str("name", payload.Name).Msg("entity event")
		return nil
	}

	bus.Subscribe(events.EventBookingCreated, logBooking)
	bus.Subscribe(events.EventBookingCanceled, logBooking)
	bus.Subscribe(events.EventClientCreated, logEntity)
	bus.Subscribe(events.EventProjectCreated, logEntity)
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
	errCh := make(chan error, 1)
	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
