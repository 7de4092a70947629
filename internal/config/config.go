// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

// Overview execution modes
const (
	// OverviewJoined compiles the bucketed overview into one statement joined server-side.
	OverviewJoined = "joined"
	// OverviewSplit issues the session and page halves separately and joins them in memory.
	OverviewSplit = "split"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName               string   `mapstructure:"appname"`
	AppPort               string   `mapstructure:"appport"`
	Environment           string   `mapstructure:"environment"`
	LogLevel              LogLevel `mapstructure:"loglevel"`
	PrivateKey            string   `mapstructure:"privatekey"`
	SessionTimeoutSeconds int      `mapstructure:"sessiontimeoutseconds"`
	PublicDirectory       string   `mapstructure:"publicdir"`
	PublicAssetsUrlPrefix string   `mapstructure:"publicassetsurlprefix"`

	// Relational store (site registry, user profiles)
	DatabasePath         string `mapstructure:"storagepath"`
	DatabaseName         string `mapstructure:"-"` // Derived from other settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Columnar event store (ClickHouse HTTP interface)
	ClickHouseURL            string `mapstructure:"clickhouseurl"`
	ClickHouseDatabase       string `mapstructure:"clickhousedatabase"`
	ClickHouseUser           string `mapstructure:"clickhouseuser"`
	ClickHousePassword       string `mapstructure:"clickhousepassword"`
	ClickHouseTimeoutSeconds int    `mapstructure:"clickhousetimeoutseconds"`
	ClickHouseMaxResultRows  int    `mapstructure:"clickhousemaxresultrows"`

	// Circuit breaker around the event store
	BreakerMinRequests     int     `mapstructure:"breakerminrequests"`
	BreakerFailureRatio    float64 `mapstructure:"breakerfailureratio"`
	BreakerTimeoutSeconds  int     `mapstructure:"breakertimeoutseconds"`
	BreakerIntervalSeconds int     `mapstructure:"breakerintervalseconds"`

	// Query compilation
	OverviewMode      string `mapstructure:"overviewmode"`
	QueryStatsEnabled bool   `mapstructure:"querystatsenabled"`
	QueryWorkers      int    `mapstructure:"queryworkers"`
	MaxBuckets        int    `mapstructure:"maxbuckets"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		v.SetDefault("appname", "pocketlytics")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("privatekey", "88888888888888888888888888888888")
		v.SetDefault("sessiontimeoutseconds", 1800)
		v.SetDefault("publicdir", "public")
		v.SetDefault("publicassetsurlprefix", "/")
		v.SetDefault("storagepath", "storage")
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("clickhouseurl", "http://localhost:8123")
		v.SetDefault("clickhousedatabase", "analytics")
		v.SetDefault("clickhouseuser", "default")
		v.SetDefault("clickhousepassword", "")
		v.SetDefault("clickhousetimeoutseconds", 30)
		v.SetDefault("clickhousemaxresultrows", 100000)
		v.SetDefault("breakerminrequests", 10)
		v.SetDefault("breakerfailureratio", 0.6)
		v.SetDefault("breakertimeoutseconds", 30)
		v.SetDefault("breakerintervalseconds", 60)
		v.SetDefault("overviewmode", OverviewJoined)
		v.SetDefault("querystatsenabled", true)
		v.SetDefault("queryworkers", 4)
		v.SetDefault("maxbuckets", 10000)

		v.BindEnv("appname", "POCKETLYTICS_APP_NAME")
		v.BindEnv("appport", "POCKETLYTICS_APP_PORT")
		v.BindEnv("environment", "POCKETLYTICS_ENV")
		v.BindEnv("loglevel", "POCKETLYTICS_LOG_LEVEL")
		v.BindEnv("privatekey", "POCKETLYTICS_PRIVATE_KEY")
		v.BindEnv("sessiontimeoutseconds", "POCKETLYTICS_SESSION_TIMEOUT_SECONDS")
		v.BindEnv("publicdir", "POCKETLYTICS_PUBLIC_DIR")
		v.BindEnv("publicassetsurlprefix", "POCKETLYTICS_PUBLIC_ASSETS_URL_PREFIX")
		v.BindEnv("storagepath", "POCKETLYTICS_STORAGE_PATH")
		v.BindEnv("dbtype", "POCKETLYTICS_DB_TYPE")
		v.BindEnv("dbmaxopenconns", "POCKETLYTICS_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "POCKETLYTICS_DB_MAX_IDLE_CONNS")
		v.BindEnv("logsdir", "POCKETLYTICS_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "POCKETLYTICS_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "POCKETLYTICS_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "POCKETLYTICS_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("clickhouseurl", "POCKETLYTICS_CLICKHOUSE_URL")
		v.BindEnv("clickhousedatabase", "POCKETLYTICS_CLICKHOUSE_DATABASE")
		v.BindEnv("clickhouseuser", "POCKETLYTICS_CLICKHOUSE_USER")
		v.BindEnv("clickhousepassword", "POCKETLYTICS_CLICKHOUSE_PASSWORD")
		v.BindEnv("clickhousetimeoutseconds", "POCKETLYTICS_CLICKHOUSE_TIMEOUT_SECONDS")
		v.BindEnv("clickhousemaxresultrows", "POCKETLYTICS_CLICKHOUSE_MAX_RESULT_ROWS")
		v.BindEnv("breakerminrequests", "POCKETLYTICS_BREAKER_MIN_REQUESTS")
		v.BindEnv("breakerfailureratio", "POCKETLYTICS_BREAKER_FAILURE_RATIO")
		v.BindEnv("breakertimeoutseconds", "POCKETLYTICS_BREAKER_TIMEOUT_SECONDS")
		v.BindEnv("breakerintervalseconds", "POCKETLYTICS_BREAKER_INTERVAL_SECONDS")
		v.BindEnv("overviewmode", "POCKETLYTICS_OVERVIEW_MODE")
		v.BindEnv("querystatsenabled", "POCKETLYTICS_QUERY_STATS_ENABLED")
		v.BindEnv("queryworkers", "POCKETLYTICS_QUERY_WORKERS")
		v.BindEnv("maxbuckets", "POCKETLYTICS_MAX_BUCKETS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		cfg.DatabaseName = cfg.GetDatabasePath()
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if c.DatabaseType != SQLiteDatabase {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	if c.OverviewMode != OverviewJoined && c.OverviewMode != OverviewSplit {
		return fmt.Errorf("invalid overview mode: %s", c.OverviewMode)
	}

	if c.ClickHouseURL == "" {
		return fmt.Errorf("clickhouse url is required")
	}

	if c.MaxBuckets < 1 {
		return fmt.Errorf("max buckets must be positive, got %d", c.MaxBuckets)
	}

	// A gap-filled series returns one row per bucket, all of which must fit
	// under the store's result row limit.
	if c.ClickHouseMaxResultRows > 0 && c.MaxBuckets > c.ClickHouseMaxResultRows {
		return fmt.Errorf("max buckets (%d) exceeds clickhouse max result rows (%d)",
			c.MaxBuckets, c.ClickHouseMaxResultRows)
	}

	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		return fmt.Errorf("breaker failure ratio must be in (0, 1], got %v", c.BreakerFailureRatio)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// ClickHouseTimeout returns the per-statement timeout for the event store.
func (c *Config) ClickHouseTimeout() time.Duration {
	return time.Duration(c.ClickHouseTimeoutSeconds) * time.Second
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return c.PublicAssetsUrlPrefix
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret returns the session encryption key (implements cartridge.FactoryConfig interface).
func (c *Config) GetSessionSecret() string {
	return c.PrivateKey
}

// GetSessionTimeout returns the session timeout in seconds.
func (c *Config) GetSessionTimeout() int {
	return c.SessionTimeoutSeconds
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1
// - Development/Production: 10
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
