// caseworkd is the worker daemon: it keeps the business calendar fresh,
// consumes transition requests from kafka, and serves the metrics endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caseworks/appeal-engine/internal/application/orchestrator"
	"github.com/caseworks/appeal-engine/internal/config"
	"github.com/caseworks/appeal-engine/internal/domain/calendar"
	"github.com/caseworks/appeal-engine/internal/domain/timetable"
	"github.com/caseworks/appeal-engine/internal/infrastructure/database/postgres"
	"github.com/caseworks/appeal-engine/internal/infrastructure/database/postgres/repositories"
	"github.com/caseworks/appeal-engine/internal/infrastructure/database/redis"
	"github.com/caseworks/appeal-engine/internal/infrastructure/messaging/kafka"
	"github.com/caseworks/appeal-engine/internal/infrastructure/monitoring/logging"
	"github.com/caseworks/appeal-engine/internal/infrastructure/monitoring/prometheus"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file (CASEWORK_* env vars when omitted)")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	if err := run(*configPath, *migrateOnly); err != nil {
		fmt.Fprintf(os.Stderr, "caseworkd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, migrateOnly bool) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	logger = logger.Named("caseworkd")
	logger.Info("starting", logging.String("service", cfg.Service.Name))

	if err := postgres.RunMigrations(cfg.Database, logger); err != nil {
		return err
	}
	if migrateOnly {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := postgres.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = redisClient.Close()
	}()

	producer, err := kafka.NewProducer(cfg.Kafka.Producer, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = producer.Close()
	}()

	// Business calendar: primed from redis, refreshed from the feed.
	cal := calendar.New(calendar.Jurisdiction(cfg.Calendar.Jurisdiction), nil)
	holidayStore := redis.NewHolidayStore(redisClient)
	var source calendar.HolidaySource
	if cfg.Calendar.FilePath != "" {
		source = calendar.NewFileSource(cfg.Calendar.FilePath)
	} else {
		source = calendar.NewFeedSource(cfg.Calendar.FeedURL, nil)
	}
	refresher := calendar.NewRefresher(cal, source, holidayStore, cfg.Calendar.RefreshInterval, logger)
	refresher.Prime(ctx)
	go refresher.Run(ctx)
	if fileSrc, ok := source.(*calendar.FileSource); ok {
		go func() {
			if err := refresher.WatchFile(ctx, fileSrc); err != nil {
				logger.Warn("holiday file watcher stopped", logging.Err(err))
			}
		}()
	}

	metrics := prometheus.NewMetrics(nil)
	engine := timetable.NewEngine(cal, logger)
	repo := repositories.NewCaseRepository(conn.Pool(), logger)
	obligations := repositories.NewObligationRepository(conn.Pool())
	orc := orchestrator.New(repo, engine, obligations, logger, metrics, nil)

	executor := orchestrator.NewExecutor(
		kafka.NewNotificationDispatcher(producer),
		repositories.NewAuditRepository(conn.Pool(), logger),
		kafka.NewEventBroadcaster(producer),
		logger, metrics, 0)

	consumer, err := kafka.NewTransitionConsumer(cfg.Kafka.Consumer, orc, executor, producer, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = consumer.Close()
	}()

	metricsSrv := &http.Server{Addr: cfg.Service.MetricsAddr, Handler: prometheus.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", logging.Err(err))
		}
	}()

	logger.Info("consuming transition requests",
		logging.String("group", cfg.Kafka.Consumer.GroupID),
		logging.String("metrics_addr", cfg.Service.MetricsAddr))

	consumeErr := consumer.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	logger.Info("stopped")
	return consumeErr
}
