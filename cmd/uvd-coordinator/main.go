// UVD Coordinator — координация заявок бота УВД.
//
// Coordinator:
//   - Загружает ожидающие заявки из хранилища
//   - Получает нажатия кнопок из RabbitMQ и выполняет действия
//   - Публикует события о решениях и результаты нажатий
//   - Периодически сверяет заявки с платформой
//   - Отдаёт HTTP API для регистрации заявок и ручной сверки
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/api"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/caller"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/config"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/coordinator"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/mq"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/platform"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/repo"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config (default: $UVD_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		telemetry.SetupLogger().Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting uvd-coordinator", "store", cfg.Store.Driver)

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Хранилище
	adapter, err := repo.Open(ctx, cfg.RepoOptions())
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer adapter.Close()
	logger.Info("store opened")

	// Платформа
	var platformAPI platform.API
	sweepsDisabled := cfg.Platform.Token == ""
	if sweepsDisabled {
		logger.Warn("DISCORD_TOKEN is not set, using in-memory platform, sweeps disabled")
		platformAPI = platform.NewMemory()
	} else {
		platformAPI = platform.NewClient(platform.Config{
			BaseURL: cfg.Platform.BaseURL,
			Token:   cfg.Platform.Token,
			Timeout: cfg.Platform.Timeout,
			Logger:  logger,
		})
	}
	platformAPI = platform.WithRetry(platformAPI, caller.New(cfg.CallerOptions(logger)))

	// RabbitMQ
	var publisher *mq.Publisher
	mqConn, err := mq.NewConnection(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, interactions disabled", "error", err)
	} else {
		defer mqConn.Close()

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		logger.Debug("topology", "info", mq.TopologyInfo())

		publisher = mq.NewPublisher(mqConn, logger)
	}

	coordCfg := coordinator.Config{
		Adapter:           adapter,
		API:               platformAPI,
		QueueCapacity:     cfg.Queue.Capacity,
		TaskTimeout:       cfg.Queue.TaskTimeout,
		ReconcileSchedule: cfg.Reconciler.Schedule,
		Retention:         cfg.Reconciler.Retention,
		DisableReconciler: cfg.Reconciler.Disabled,
		DisableSweeps:     sweepsDisabled,
		Logger:            logger,
	}
	if publisher != nil {
		coordCfg.Events = publisher
	}

	coord, err := coordinator.New(coordCfg)
	if err != nil {
		logger.Error("failed to create coordinator", "error", err)
		os.Exit(1)
	}

	if err := coord.Start(ctx); err != nil {
		logger.Error("failed to start coordinator", "error", err)
		os.Exit(1)
	}

	// Нажатия кнопок
	var consumer *mq.Consumer
	if mqConn != nil {
		handler := mq.NewInteractionHandler(coord, publisher, logger)
		consumer = mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
			Queue:    mq.QueueInteractionActions,
			Handler:  handler.Handle,
			Prefetch: cfg.RabbitMQ.Prefetch,
		})
		consumer.Start(ctx)
	}

	// HTTP mux: API + /healthz + /metrics
	mux := http.NewServeMux()
	api.NewHandler(api.Config{Coordinator: coord, Logger: logger}).RegisterRoutes(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Addr(), Handler: mux}
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Сначала перестаём принимать нажатия и HTTP-запросы (начатые действия
	// доводятся до конца), затем дочитываем очередь записей
	if consumer != nil {
		consumer.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if err := coord.Stop(shutdownCtx); err != nil {
		logger.Error("coordinator stop", "error", err)
	}

	logger.Info("uvd-coordinator stopped")
}
