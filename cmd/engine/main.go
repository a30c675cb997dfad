package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/tu-usuario/editorial-stock/internal/application/engine"
	"github.com/tu-usuario/editorial-stock/internal/application/monitor"
	infraamqp "github.com/tu-usuario/editorial-stock/internal/infrastructure/amqp"
	"github.com/tu-usuario/editorial-stock/internal/infrastructure/eventbus"
	"github.com/tu-usuario/editorial-stock/internal/infrastructure/memstore"
	"github.com/tu-usuario/editorial-stock/internal/infrastructure/metrics"
	"github.com/tu-usuario/editorial-stock/internal/infrastructure/postgres"
	"github.com/tu-usuario/editorial-stock/internal/infrastructure/redisstore"
	"github.com/tu-usuario/editorial-stock/pkg/config"
	"github.com/tu-usuario/editorial-stock/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando motor de inventario")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	invRepo := postgres.NewInventoryRepository(pool)
	movRepo := postgres.NewMovementRepository(pool)
	transferRepo := postgres.NewTransferRepository(pool)
	warehouseRepo := postgres.NewWarehouseRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.New(registry)

	bus := eventbus.New(cfg.Engine.EventBufferSize, engineMetrics, log)
	defer bus.Close()

	// Almacén de reservas: Redis si está configurado, memoria si no.
	var store engine.ReservationStore
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		store = redisstore.NewReservationStore(client)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("almacén de reservas sobre Redis")
	} else {
		store = memstore.NewReservationStore()
		log.Info().Msg("almacén de reservas en memoria")
	}

	incoming := engine.StaticIncomingStock{}
	atpUC := engine.NewATPUseCase(invRepo, incoming)
	reservationUC := engine.NewReservationUseCase(
		txRunner, incoming, store, bus, engineMetrics, log, cfg.Engine.ReservationTTL,
	)
	allocationUC := engine.NewAllocationUseCase(
		invRepo, atpUC, reservationUC, nil, cfg.Engine.MaxWarehouses, engineMetrics, log,
	)
	transferUC := engine.NewTransferUseCase(txRunner, transferRepo, warehouseRepo, bus, log)
	adjustmentUC := engine.NewStockAdjustmentUseCase(txRunner, bus, log)

	alertStore := memstore.NewAlertStore()
	monitorUC := monitor.NewUseCase(invRepo, movRepo, alertStore, bus, engineMetrics, log, monitor.Config{
		ChangeRateWindow: cfg.Monitor.ChangeRateWindow,
		ChangeRateLimit:  cfg.Monitor.ChangeRateLimit,
		StaleDataAge:     cfg.Monitor.StaleDataAge,
	})
	bus.Subscribe("discrepancy-monitor", monitorUC.HandleEvent)

	service := engine.NewService(atpUC, reservationUC, allocationUC, transferUC, adjustmentUC, monitorUC)

	// Puente opcional hacia RabbitMQ para consumidores externos.
	if cfg.AMQP.URL != "" {
		bridge, err := infraamqp.NewEventBridge(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a RabbitMQ")
		}
		defer bridge.Close()
		bus.Subscribe("amqp-bridge", bridge.Publish)
		log.Info().Str("exchange", cfg.AMQP.Exchange).Msg("puente AMQP habilitado")
	}

	// Endpoint opcional de métricas Prometheus.
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsSrv := &http.Server{
			Addr:         cfg.Metrics.Addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("endpoint de métricas arriba")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("servidor de métricas")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	// Barrido periódico de reservas expiradas y purga diaria del índice.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	sweeper := engine.NewSweeper(reservationUC, cfg.Engine.SweepInterval, log)
	go sweeper.Run(sweepCtx)
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				purged, err := service.PerformMaintenanceCleanup(sweepCtx, cfg.Engine.MaintenanceDays)
				if err != nil {
					log.Error().Err(err).Msg("purga de mantenimiento")
					continue
				}
				log.Info().Int("purged", purged).Msg("purga de mantenimiento completada")
			}
		}
	}()

	log.Info().Msg("motor de inventario listo")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("apagando motor de inventario")
}
