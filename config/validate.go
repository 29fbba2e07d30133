package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ValidLogLevels     = [4]string{"TRACE", "DEBUG", "INFO", "ERROR"}
	ValidStatsBackends = [2]string{STATS_BACKEND_MEMORY, STATS_BACKEND_REDIS}
)

// Validate validates the provided config
// returning a list of errors that can be unwrapped with `errors.Unwrap`
// or nil if the config is valid
func Validate(config Config) error {
	var validLogLevel bool
	var allErrs error

	for _, validLevel := range ValidLogLevels {
		if config.LogLevel == validLevel {
			validLogLevel = true
			break
		}
	}

	if !validLogLevel {
		allErrs = fmt.Errorf("invalid %s specified %s, supported values are %v", LOG_LEVEL_ENVIRONMENT_KEY, config.LogLevel, ValidLogLevels)
	}

	port, err := strconv.Atoi(config.ServicePort)

	if err != nil || port < 1 || port > 65535 {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s", SERVICE_PORT_ENVIRONMENT_KEY, config.ServicePort))
	}

	if config.RequestTimeout <= 0 {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must be greater than zero", REQUEST_TIMEOUT_SECONDS_ENVIRONMENT_KEY, config.RequestTimeout))
	}

	allErrs = errors.Join(allErrs, validateStats(config))

	if config.MetricDatabaseEnabled {
		allErrs = errors.Join(allErrs, validateDatabase(config))
	}

	return allErrs
}

func validateStats(config Config) error {
	var allErrs error
	var validBackend bool

	for _, backend := range ValidStatsBackends {
		if config.StatsBackend == backend {
			validBackend = true
			break
		}
	}

	if !validBackend {
		allErrs = fmt.Errorf("invalid %s specified %s, supported values are %v", STATS_BACKEND_ENVIRONMENT_KEY, config.StatsBackend, ValidStatsBackends)
	}

	if config.StatsBackend == STATS_BACKEND_REDIS && config.RedisEndpointURL == "" {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not be empty when %s is %s", REDIS_ENDPOINT_URL_ENVIRONMENT_KEY, config.RedisEndpointURL, STATS_BACKEND_ENVIRONMENT_KEY, STATS_BACKEND_REDIS))
	}
	if config.RedisDB < 0 {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %d, must not be negative", REDIS_DB_ENVIRONMENT_KEY, config.RedisDB))
	}
	if strings.Contains(config.StatsKeyPrefix, ":") {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not contain colon symbol", STATS_KEY_PREFIX_ENVIRONMENT_KEY, config.StatsKeyPrefix))
	}
	if config.StatsKeyPrefix == "" {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not be empty", STATS_KEY_PREFIX_ENVIRONMENT_KEY, config.StatsKeyPrefix))
	}

	return allErrs
}

func validateDatabase(config Config) error {
	var allErrs error

	if config.DatabaseEndpointURL == "" {
		allErrs = fmt.Errorf("invalid %s specified %s, must not be empty when %s is true", DATABASE_ENDPOINT_URL_ENVIRONMENT_KEY, config.DatabaseEndpointURL, METRIC_DATABASE_ENABLED_ENVIRONMENT_KEY)
	}
	if config.DatabaseName == "" {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not be empty when %s is true", DATABASE_NAME_ENVIRONMENT_KEY, config.DatabaseName, METRIC_DATABASE_ENABLED_ENVIRONMENT_KEY))
	}
	if config.DatabaseConnectMaxRetries < 0 {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %d, must not be negative", DATABASE_CONNECT_MAX_RETRIES_ENVIRONMENT_KEY, config.DatabaseConnectMaxRetries))
	}

	if config.MetricPruningEnabled {
		if config.MetricPruningRoutineInterval <= 0 {
			allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must be greater than zero", METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS_ENVIRONMENT_KEY, config.MetricPruningRoutineInterval))
		}
		if config.MetricPruningMaxHistoryDays < 1 {
			allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %d, must be at least 1", METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS_ENVIRONMENT_KEY, config.MetricPruningMaxHistoryDays))
		}
	}

	return allErrs
}
