// package service provides functions and methods
// for creating and running the api of the envelope rewrite service
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kava-labs/envelope-rewrite-service/clients/database"
	"github.com/kava-labs/envelope-rewrite-service/clients/database/noop"
	"github.com/kava-labs/envelope-rewrite-service/clients/database/postgres"
	"github.com/kava-labs/envelope-rewrite-service/clients/database/postgres/migrations"
	"github.com/kava-labs/envelope-rewrite-service/clients/stats"
	"github.com/kava-labs/envelope-rewrite-service/config"
	"github.com/kava-labs/envelope-rewrite-service/logging"
	"github.com/kava-labs/envelope-rewrite-service/service/rewritemdw"
	"github.com/kava-labs/envelope-rewrite-service/telemetry"
)

// EnvelopeService represents an instance of the envelope rewrite service API
type EnvelopeService struct {
	Database database.MetricsDatabase
	Stats    stats.Store
	server   *http.Server
	*logging.ServiceLogger
}

// New returns a new EnvelopeService with the specified config and error (if any)
func New(ctx context.Context, config config.Config, serviceLogger *logging.ServiceLogger) (*EnvelopeService, error) {
	service := &EnvelopeService{
		ServiceLogger: serviceLogger,
	}

	db, err := createDatabaseClient(ctx, config, serviceLogger)
	if err != nil {
		return nil, err
	}
	service.Database = db

	store, err := createStatsStore(config, serviceLogger)
	if err != nil {
		if closer, ok := db.(interface{ Close() error }); ok {
			closer.Close()
		}
		return nil, err
	}
	service.Stats = store

	// create an http server for the caller to start at their own discretion
	service.server = newHTTPServer(config, service.newRouter(config))

	return service, nil
}

// responseWriteGrace is how long past the request timeout a reply
// may still be written, so a call whose body read timed out can
// still be answered with the middleware error
const responseWriteGrace = 5 * time.Second

// newHTTPServer returns a server for handler on the configured address.
// Reading a request, body included, is bounded by the request timeout,
// a stalled body fails the read instead of holding the call open.
func newHTTPServer(config config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(config.ServiceHost, config.ServicePort),
		Handler:           handler,
		ReadHeaderTimeout: config.RequestTimeout,
		ReadTimeout:       config.RequestTimeout,
		WriteTimeout:      config.RequestTimeout + responseWriteGrace,
	}
}

// newRouter registers the rewrite stage over the echo handler
// alongside the operational endpoints
func (s *EnvelopeService) newRouter(config config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(createRequestIDMiddleware)
	r.Use(createRequestLoggingMiddleware(s.ServiceLogger))
	r.Use(createTimeoutMiddleware(config.RequestTimeout))
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", createHealthcheckHandler(s))
	r.Get("/servicecheck", createServicecheckHandler(s))
	r.Get("/stats", createStatsHandler(s))

	// inner handler wrapped by the rewrite stage, which the metric middleware
	// wraps in turn so it can read the outcome of each phase
	rewriteStage := rewritemdw.New(s.ServiceLogger)
	echo := http.HandlerFunc(createEchoHandler(s.ServiceLogger))

	r.Method(http.MethodPost, "/", createMetricMiddleware(rewriteStage.Wrap(echo), s))

	return otelhttp.NewHandler(r, telemetry.ServiceName)
}

// createDatabaseClient returns the client for storing per call metrics,
// a client that does nothing when metric storage is disabled
func createDatabaseClient(ctx context.Context, config config.Config, logger *logging.ServiceLogger) (database.MetricsDatabase, error) {
	if !config.MetricDatabaseEnabled {
		logger.Debug().Msg("metric database disabled, using noop database client")

		return noop.New(), nil
	}

	client, err := postgres.NewClient(postgres.DatabaseConfig{
		DatabaseName:                     config.DatabaseName,
		DatabaseEndpointURL:              config.DatabaseEndpointURL,
		DatabaseUsername:                 config.DatabaseUserName,
		DatabasePassword:                 config.DatabasePassword,
		ReadTimeoutSeconds:               config.DatabaseReadTimeoutSeconds,
		DatabaseMaxIdleConnections:       config.DatabaseMaxIdleConnections,
		DatabaseConnectionMaxIdleSeconds: config.DatabaseConnectionMaxIdleSeconds,
		DatabaseMaxOpenConnections:       config.DatabaseMaxOpenConnections,
		ConnectMaxRetries:                config.DatabaseConnectMaxRetries,
		SSLEnabled:                       config.DatabaseSSLEnabled,
		QueryLoggingEnabled:              config.DatabaseQueryLoggingEnabled,
		Logger:                           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating database client: %w", err)
	}

	if config.RunDatabaseMigrations {
		migrationsRun, err := client.Migrate(ctx, *migrations.Migrations, logger)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("error running database migrations: %w", err)
		}

		logger.Debug().Msg(fmt.Sprintf("run migrations %+v", migrationsRun))
	}

	return client, nil
}

// createStatsStore returns the store for the rewrite outcome counters
func createStatsStore(serviceConfig config.Config, logger *logging.ServiceLogger) (stats.Store, error) {
	if serviceConfig.StatsBackend != config.STATS_BACKEND_REDIS {
		return stats.NewInMemoryStore(), nil
	}

	store, err := stats.NewRedisStore(&stats.RedisConfig{
		Address:  serviceConfig.RedisEndpointURL,
		Password: serviceConfig.RedisPassword,
		DB:       serviceConfig.RedisDB,
		Prefix:   serviceConfig.StatsKeyPrefix,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating redis stats store: %w", err)
	}

	return store, nil
}

// Handler returns the root handler of the service
func (s *EnvelopeService) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the address the service listens on
func (s *EnvelopeService) Addr() string {
	return s.server.Addr
}

// Run runs the envelope rewrite service, returning error (if any) in the event
// the service stops for any reason other than Shutdown
func (s *EnvelopeService) Run() error {
	s.Info().Str("address", s.server.Addr).Msg("starting envelope rewrite service")

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// Shutdown stops accepting new calls, waits for calls in flight to
// complete (or ctx to be done) and releases the service's clients
func (s *EnvelopeService) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)

	if closer, ok := s.Database.(interface{ Close() error }); ok {
		err = errors.Join(err, closer.Close())
	}

	if closer, ok := s.Stats.(interface{ Close() error }); ok {
		err = errors.Join(err, closer.Close())
	}

	return err
}
