// package config provides functions and values
// for reading and validating envelope rewrite service configuration
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	LogLevel                          string
	ServiceHost                       string
	ServicePort                       string
	RequestTimeout                    time.Duration
	TracingEnabled                    bool
	StatsBackend                      string
	StatsKeyPrefix                    string
	RedisEndpointURL                  string
	RedisPassword                     string
	RedisDB                           int
	MetricDatabaseEnabled             bool
	DatabaseName                      string
	DatabaseEndpointURL               string
	DatabaseUserName                  string
	DatabasePassword                  string
	DatabaseSSLEnabled                bool
	DatabaseQueryLoggingEnabled       bool
	RunDatabaseMigrations             bool
	DatabaseReadTimeoutSeconds        int64
	DatabaseMaxIdleConnections        int64
	DatabaseConnectionMaxIdleSeconds  int64
	DatabaseMaxOpenConnections        int64
	DatabaseConnectMaxRetries         int64
	MetricPruningEnabled              bool
	MetricPruningRoutineInterval      time.Duration
	MetricPruningRoutineDelayFirstRun time.Duration
	MetricPruningMaxHistoryDays       int
}

const (
	CONFIG_FILE_PATH_ENVIRONMENT_KEY                                = "CONFIG_FILE_PATH"
	LOG_LEVEL_ENVIRONMENT_KEY                                       = "LOG_LEVEL"
	DEFAULT_LOG_LEVEL                                               = "INFO"
	SERVICE_HOST_ENVIRONMENT_KEY                                    = "SERVICE_HOST"
	DEFAULT_SERVICE_HOST                                            = "127.0.0.1"
	SERVICE_PORT_ENVIRONMENT_KEY                                    = "SERVICE_PORT"
	DEFAULT_SERVICE_PORT                                            = "8001"
	REQUEST_TIMEOUT_SECONDS_ENVIRONMENT_KEY                         = "REQUEST_TIMEOUT_SECONDS"
	DEFAULT_REQUEST_TIMEOUT_SECONDS                                 = 30
	TRACING_ENABLED_ENVIRONMENT_KEY                                 = "TRACING_ENABLED"
	STATS_BACKEND_ENVIRONMENT_KEY                                   = "STATS_BACKEND"
	STATS_BACKEND_MEMORY                                            = "memory"
	STATS_BACKEND_REDIS                                             = "redis"
	DEFAULT_STATS_BACKEND                                           = STATS_BACKEND_MEMORY
	STATS_KEY_PREFIX_ENVIRONMENT_KEY                                = "STATS_KEY_PREFIX"
	DEFAULT_STATS_KEY_PREFIX                                        = "envelope-rewrite"
	REDIS_ENDPOINT_URL_ENVIRONMENT_KEY                              = "REDIS_ENDPOINT_URL"
	REDIS_PASSWORD_ENVIRONMENT_KEY                                  = "REDIS_PASSWORD"
	REDIS_DB_ENVIRONMENT_KEY                                        = "REDIS_DB"
	METRIC_DATABASE_ENABLED_ENVIRONMENT_KEY                         = "METRIC_DATABASE_ENABLED"
	DATABASE_NAME_ENVIRONMENT_KEY                                   = "DATABASE_NAME"
	DATABASE_ENDPOINT_URL_ENVIRONMENT_KEY                           = "DATABASE_ENDPOINT_URL"
	DATABASE_USERNAME_ENVIRONMENT_KEY                               = "DATABASE_USERNAME"
	DATABASE_PASSWORD_ENVIRONMENT_KEY                               = "DATABASE_PASSWORD"
	DATABASE_SSL_ENABLED_ENVIRONMENT_KEY                            = "DATABASE_SSL_ENABLED"
	DATABASE_QUERY_LOGGING_ENABLED_ENVIRONMENT_KEY                  = "DATABASE_QUERY_LOGGING_ENABLED"
	RUN_DATABASE_MIGRATIONS_ENVIRONMENT_KEY                         = "RUN_DATABASE_MIGRATIONS"
	DATABASE_READ_TIMEOUT_SECONDS_ENVIRONMENT_KEY                   = "DATABASE_READ_TIMEOUT_SECONDS"
	DEFAULT_DATABASE_READ_TIMEOUT_SECONDS                           = 60
	DATABASE_MAX_IDLE_CONNECTIONS_ENVIRONMENT_KEY                   = "DATABASE_MAX_IDLE_CONNECTIONS"
	DEFAULT_DATABASE_MAX_IDLE_CONNECTIONS                           = 5
	DATABASE_CONNECTION_MAX_IDLE_SECONDS_ENVIRONMENT_KEY            = "DATABASE_CONNECTION_MAX_IDLE_SECONDS"
	DEFAULT_DATABASE_CONNECTION_MAX_IDLE_SECONDS                    = 5
	DATABASE_MAX_OPEN_CONNECTIONS_ENVIRONMENT_KEY                   = "DATABASE_MAX_OPEN_CONNECTIONS"
	DEFAULT_DATABASE_MAX_OPEN_CONNECTIONS                           = 20
	DATABASE_CONNECT_MAX_RETRIES_ENVIRONMENT_KEY                    = "DATABASE_CONNECT_MAX_RETRIES"
	DEFAULT_DATABASE_CONNECT_MAX_RETRIES                            = 10
	METRIC_PRUNING_ENABLED_ENVIRONMENT_KEY                          = "METRIC_PRUNING_ENABLED"
	DEFAULT_METRIC_PRUNING_ENABLED                                  = true
	METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS_ENVIRONMENT_KEY         = "METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS"
	DEFAULT_METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS                 = 86400
	METRIC_PRUNING_ROUTINE_DELAY_FIRST_RUN_SECONDS_ENVIRONMENT_KEY  = "METRIC_PRUNING_ROUTINE_DELAY_FIRST_RUN_SECONDS"
	DEFAULT_METRIC_PRUNING_ROUTINE_DELAY_FIRST_RUN_SECONDS          = 10
	METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS_ENVIRONMENT_KEY = "METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS"
	DEFAULT_METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS         = 45
)

// EnvOrDefault fetches an environment variable value, or if not set returns the fallback value
func EnvOrDefault(key string, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

// Load layers the process environment over the YAML file at
// the optional CONFIG_FILE_PATH, keys in both sources use the
// environment variable names (e.g. LOG_LEVEL)
func Load() (*koanf.Koanf, error) {
	k := koanf.New(".")

	if path := EnvOrDefault(CONFIG_FILE_PATH_ENVIRONMENT_KEY, ""); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("error loading config from environment: %w", err)
	}

	return k, nil
}

// ReadConfig attempts to parse service config from environment values
// and the optional config file, the returned config may be invalid and
// should be validated via the `Validate` function of the Config package before use
func ReadConfig() (Config, error) {
	k, err := Load()
	if err != nil {
		return Config{}, err
	}

	return FromKoanf(k), nil
}

// FromKoanf builds a Config from already loaded values, filling in
// defaults for any key that is not present
func FromKoanf(k *koanf.Koanf) Config {
	return Config{
		LogLevel:                          stringOrDefault(k, LOG_LEVEL_ENVIRONMENT_KEY, DEFAULT_LOG_LEVEL),
		ServiceHost:                       stringOrDefault(k, SERVICE_HOST_ENVIRONMENT_KEY, DEFAULT_SERVICE_HOST),
		ServicePort:                       stringOrDefault(k, SERVICE_PORT_ENVIRONMENT_KEY, DEFAULT_SERVICE_PORT),
		RequestTimeout:                    time.Duration(intOrDefault(k, REQUEST_TIMEOUT_SECONDS_ENVIRONMENT_KEY, DEFAULT_REQUEST_TIMEOUT_SECONDS)) * time.Second,
		TracingEnabled:                    boolOrDefault(k, TRACING_ENABLED_ENVIRONMENT_KEY, false),
		StatsBackend:                      stringOrDefault(k, STATS_BACKEND_ENVIRONMENT_KEY, DEFAULT_STATS_BACKEND),
		StatsKeyPrefix:                    stringOrDefault(k, STATS_KEY_PREFIX_ENVIRONMENT_KEY, DEFAULT_STATS_KEY_PREFIX),
		RedisEndpointURL:                  stringOrDefault(k, REDIS_ENDPOINT_URL_ENVIRONMENT_KEY, ""),
		RedisPassword:                     stringOrDefault(k, REDIS_PASSWORD_ENVIRONMENT_KEY, ""),
		RedisDB:                           intOrDefault(k, REDIS_DB_ENVIRONMENT_KEY, 0),
		MetricDatabaseEnabled:             boolOrDefault(k, METRIC_DATABASE_ENABLED_ENVIRONMENT_KEY, false),
		DatabaseName:                      stringOrDefault(k, DATABASE_NAME_ENVIRONMENT_KEY, ""),
		DatabaseEndpointURL:               stringOrDefault(k, DATABASE_ENDPOINT_URL_ENVIRONMENT_KEY, ""),
		DatabaseUserName:                  stringOrDefault(k, DATABASE_USERNAME_ENVIRONMENT_KEY, ""),
		DatabasePassword:                  stringOrDefault(k, DATABASE_PASSWORD_ENVIRONMENT_KEY, ""),
		DatabaseSSLEnabled:                boolOrDefault(k, DATABASE_SSL_ENABLED_ENVIRONMENT_KEY, false),
		DatabaseQueryLoggingEnabled:       boolOrDefault(k, DATABASE_QUERY_LOGGING_ENABLED_ENVIRONMENT_KEY, false),
		RunDatabaseMigrations:             boolOrDefault(k, RUN_DATABASE_MIGRATIONS_ENVIRONMENT_KEY, false),
		DatabaseReadTimeoutSeconds:        int64(intOrDefault(k, DATABASE_READ_TIMEOUT_SECONDS_ENVIRONMENT_KEY, DEFAULT_DATABASE_READ_TIMEOUT_SECONDS)),
		DatabaseMaxIdleConnections:        int64(intOrDefault(k, DATABASE_MAX_IDLE_CONNECTIONS_ENVIRONMENT_KEY, DEFAULT_DATABASE_MAX_IDLE_CONNECTIONS)),
		DatabaseConnectionMaxIdleSeconds:  int64(intOrDefault(k, DATABASE_CONNECTION_MAX_IDLE_SECONDS_ENVIRONMENT_KEY, DEFAULT_DATABASE_CONNECTION_MAX_IDLE_SECONDS)),
		DatabaseMaxOpenConnections:        int64(intOrDefault(k, DATABASE_MAX_OPEN_CONNECTIONS_ENVIRONMENT_KEY, DEFAULT_DATABASE_MAX_OPEN_CONNECTIONS)),
		DatabaseConnectMaxRetries:         int64(intOrDefault(k, DATABASE_CONNECT_MAX_RETRIES_ENVIRONMENT_KEY, DEFAULT_DATABASE_CONNECT_MAX_RETRIES)),
		MetricPruningEnabled:              boolOrDefault(k, METRIC_PRUNING_ENABLED_ENVIRONMENT_KEY, DEFAULT_METRIC_PRUNING_ENABLED),
		MetricPruningRoutineInterval:      time.Duration(intOrDefault(k, METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS_ENVIRONMENT_KEY, DEFAULT_METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS)) * time.Second,
		MetricPruningRoutineDelayFirstRun: time.Duration(intOrDefault(k, METRIC_PRUNING_ROUTINE_DELAY_FIRST_RUN_SECONDS_ENVIRONMENT_KEY, DEFAULT_METRIC_PRUNING_ROUTINE_DELAY_FIRST_RUN_SECONDS)) * time.Second,
		MetricPruningMaxHistoryDays:       intOrDefault(k, METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS_ENVIRONMENT_KEY, DEFAULT_METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS),
	}
}

func stringOrDefault(k *koanf.Koanf, key string, fallback string) string {
	if !k.Exists(key) {
		return fallback
	}
	return k.String(key)
}

func intOrDefault(k *koanf.Koanf, key string, fallback int) int {
	if !k.Exists(key) {
		return fallback
	}
	return k.Int(key)
}

func boolOrDefault(k *koanf.Koanf, key string, fallback bool) bool {
	if !k.Exists(key) {
		return fallback
	}
	return k.Bool(key)
}
