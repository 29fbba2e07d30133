package postgres

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/migrate"

	"github.com/kava-labs/envelope-rewrite-service/clients/database"
	"github.com/kava-labs/envelope-rewrite-service/logging"
)

// DatabaseConfig contains values for creating a
// new connection to a postgres database
type DatabaseConfig struct {
	DatabaseName                     string
	DatabaseEndpointURL              string
	DatabaseUsername                 string
	DatabasePassword                 string
	ReadTimeoutSeconds               int64
	DatabaseMaxIdleConnections       int64
	DatabaseConnectionMaxIdleSeconds int64
	DatabaseMaxOpenConnections       int64
	// ConnectMaxRetries is how many more times the first
	// connection is attempted before giving up
	ConnectMaxRetries   int64
	SSLEnabled          bool
	QueryLoggingEnabled bool
	Logger              *logging.ServiceLogger
}

// Client wraps a connection to a postgres database
type Client struct {
	db     *bun.DB
	logger *logging.ServiceLogger
}

var _ database.MetricsDatabase = (*Client)(nil)

// NewClient returns a new connection to the specified
// postgres database and error (if any)
func NewClient(config DatabaseConfig) (*Client, error) {
	if config.DatabaseEndpointURL == "" {
		return nil, errors.New("database endpoint url is required")
	}
	if config.DatabaseName == "" {
		return nil, errors.New("database name is required")
	}
	if config.Logger == nil {
		return nil, errors.New("database logger is required")
	}

	// configure postgres database connection options
	var pgOptions *pgdriver.Connector

	if config.SSLEnabled {
		pgOptions =
			pgdriver.NewConnector(
				pgdriver.WithAddr(config.DatabaseEndpointURL),
				pgdriver.WithUser(config.DatabaseUsername),
				pgdriver.WithTLSConfig(&tls.Config{InsecureSkipVerify: false}),
				pgdriver.WithPassword(config.DatabasePassword),
				pgdriver.WithDatabase(config.DatabaseName),
				pgdriver.WithReadTimeout(time.Second*time.Duration(config.ReadTimeoutSeconds)),
			)
	} else {
		pgOptions = pgdriver.NewConnector(
			pgdriver.WithAddr(config.DatabaseEndpointURL),
			pgdriver.WithUser(config.DatabaseUsername),
			pgdriver.WithInsecure(true),
			pgdriver.WithPassword(config.DatabasePassword),
			pgdriver.WithDatabase(config.DatabaseName),
			pgdriver.WithReadTimeout(time.Second*time.Duration(config.ReadTimeoutSeconds)),
		)
	}

	config.Logger.Debug().Msg(fmt.Sprintf("creating database client for %s/%s", config.DatabaseEndpointURL, config.DatabaseName))

	// connect to the database
	sqldb := sql.OpenDB(pgOptions)

	// configure connection limits
	// https://go.dev/doc/database/manage-connections#connection_pool_properties
	sqldb.SetMaxIdleConns(int(config.DatabaseMaxIdleConnections))
	sqldb.SetConnMaxIdleTime(time.Second * time.Duration(config.DatabaseConnectionMaxIdleSeconds))
	sqldb.SetMaxOpenConns(int(config.DatabaseMaxOpenConnections))

	db := bun.NewDB(sqldb, pgdialect.New())

	// set up logging on database if requested
	if config.QueryLoggingEnabled {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	client := &Client{
		db:     db,
		logger: config.Logger,
	}

	// the database may still be starting alongside the service
	err := backoff.Retry(func() error {
		err := client.HealthCheck()
		if err != nil {
			config.Logger.Debug().Err(err).Msg("database not reachable yet")
		}
		return err
	}, backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), uint64(config.ConnectMaxRetries)))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database %s: %w", config.DatabaseEndpointURL, err)
	}

	return client, nil
}

// HealthCheck returns an error if the database can not
// be connected to and queried, nil otherwise
func (c *Client) HealthCheck() error {
	if c.db == nil {
		return errors.New("database client not initialized")
	}

	_, err := c.db.Exec(`SELECT 1;`)
	return err
}

// Close closes the connection pool to the database
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}

	return c.db.Close()
}

// Exec is not part of database.MetricsDatabase interface, so it is used only in the implementation for test purposes.
func (c *Client) Exec(query string, args ...interface{}) (sql.Result, error) {
	return c.db.Exec(query, args...)
}

// Migrate sets up and runs all migrations in the migrations model
// that haven't been run on the database being used by the service
// returning error (if any) and a list of migrations that have been
// run and any that were not
func (c *Client) Migrate(ctx context.Context, migrations migrate.Migrations, logger *logging.ServiceLogger) (*migrate.MigrationSlice, error) {
	if c.db == nil {
		return &migrate.MigrationSlice{}, errors.New("database client not initialized")
	}

	// set up migration config
	migrator := migrate.NewMigrator(c.db, &migrations)

	// create / verify tables used to track migrations
	err := migrator.Init(ctx)

	if err != nil {
		return &migrate.MigrationSlice{}, err
	}

	// run all un-applied migrations
	group, err := migrator.Migrate(ctx)

	// if migration failed attempt to rollback so migrations can be re-attempted
	if err != nil {
		group, rollbackErr := migrator.Rollback(ctx)

		if rollbackErr != nil {
			return &migrate.MigrationSlice{}, fmt.Errorf("error %s rolling back after original error %s", rollbackErr, err)
		}

		if group.ID == 0 {
			return &migrate.MigrationSlice{}, fmt.Errorf("no groups to rollback after migration error %s", err)
		}

		return &migrate.MigrationSlice{}, fmt.Errorf("rolled back after migration error %s", err)
	}

	// get the status of all run and un-run migrations
	ms, err := migrator.MigrationsWithStatus(ctx)

	if err != nil {
		return &migrate.MigrationSlice{}, err
	}

	if group.ID == 0 && logger != nil {
		logger.Debug().Msg("there are no new migrations to run")
	}

	return &ms, nil
}
