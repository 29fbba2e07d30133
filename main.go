// package main reads & validates configuration for the envelope rewrite
// service and if the config is valid starts and monitors an instance of the service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kava-labs/envelope-rewrite-service/config"
	"github.com/kava-labs/envelope-rewrite-service/logging"
	"github.com/kava-labs/envelope-rewrite-service/routines"
	"github.com/kava-labs/envelope-rewrite-service/service"
	"github.com/kava-labs/envelope-rewrite-service/telemetry"
)

const shutdownTimeout = 30 * time.Second

var (
	serviceConfig config.Config
	serviceLogger logging.ServiceLogger
)

func init() {
	// load .env file if it exists
	_ = godotenv.Load()

	var err error

	serviceConfig, err = config.ReadConfig()

	if err != nil {
		panic(err)
	}

	err = config.Validate(serviceConfig)

	if err != nil {
		panic(err)
	}

	serviceLogger, err = logging.New(serviceConfig.LogLevel)

	if err != nil {
		panic(err)
	}
}

// startMetricPruningRoutine starts the routine deleting old rewrite
// metrics if storing them is enabled, logging any error it reports
func startMetricPruningRoutine(ctx context.Context, envelopeService *service.EnvelopeService) {
	if !serviceConfig.MetricDatabaseEnabled || !serviceConfig.MetricPruningEnabled {
		serviceLogger.Debug().Msg("metric pruning routine disabled")
		return
	}

	metricPruningRoutine, err := routines.NewMetricPruningRoutine(routines.MetricPruningRoutineConfig{
		Interval:       serviceConfig.MetricPruningRoutineInterval,
		StartDelay:     serviceConfig.MetricPruningRoutineDelayFirstRun,
		MaxHistoryDays: serviceConfig.MetricPruningMaxHistoryDays,
		Database:       envelopeService.Database,
		Logger:         serviceLogger,
	})

	if err != nil {
		serviceLogger.Panic().Msg(fmt.Sprintf("%v", err))
	}

	errChan, err := metricPruningRoutine.Run(ctx)

	if err != nil {
		serviceLogger.Panic().Msg(fmt.Sprintf("%v", err))
	}

	go func() {
		for routineErr := range errChan {
			serviceLogger.Error().Msg(fmt.Sprintf("metric pruning routine encountered error %s", routineErr))
		}
	}()
}

func main() {
	serviceLogger.Debug().Msg(fmt.Sprintf("initial config: %+v", serviceConfig))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if serviceConfig.TracingEnabled {
		shutdownTracer, err := telemetry.InitTracer(telemetry.ServiceName, os.Stdout, &serviceLogger)

		if err != nil {
			serviceLogger.Panic().Msg(fmt.Sprintf("error initializing tracer %v", err))
		}

		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				serviceLogger.Error().Err(err).Msg("failed to shutdown tracer")
			}
		}()
	}

	envelopeService, err := service.New(ctx, serviceConfig, &serviceLogger)

	if err != nil {
		serviceLogger.Panic().Msg(fmt.Sprintf("%v", err))
	}

	startMetricPruningRoutine(ctx, envelopeService)

	runErr := make(chan error, 1)

	go func() {
		runErr <- envelopeService.Run()
	}()

	// wait for shutdown signal or the service to stop on its own
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		serviceLogger.Info().Str("signal", sig.String()).Msg("shutdown signal received, stopping service")
	case err := <-runErr:
		if err != nil {
			serviceLogger.Error().Err(err).Msg("service stopped unexpectedly")
		}
	}

	// stop background routines before the clients they use are closed
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := envelopeService.Shutdown(shutdownCtx); err != nil {
		serviceLogger.Error().Err(err).Msg("shutdown error")
		os.Exit(1)
	}

	serviceLogger.Info().Msg("service shutdown complete")
}
