package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Predict PredictConfig `yaml:"predict" mapstructure:"predict"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Report  ReportConfig  `yaml:"report" mapstructure:"report"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`             // "postgres" or "sqlite"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"` // postgres conn string or sqlite path
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// PredictConfig configures the reorder prediction core.
type PredictConfig struct {
	TriggerWindowDays   int     `yaml:"trigger_window_days" mapstructure:"trigger_window_days"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
}

// CatalogConfig configures catalog reporting.
type CatalogConfig struct {
	LowStockThreshold int `yaml:"low_stock_threshold" mapstructure:"low_stock_threshold"`
}

// ReportConfig configures suggestion and leaderboard limits.
type ReportConfig struct {
	SuggestLimit     int `yaml:"suggest_limit" mapstructure:"suggest_limit"`
	LeaderboardLimit int `yaml:"leaderboard_limit" mapstructure:"leaderboard_limit"`
}

// BatchConfig configures batch prediction.
type BatchConfig struct {
	MaxConcurrentCustomers int `yaml:"max_concurrent_customers" mapstructure:"max_concurrent_customers"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port             int     `yaml:"port" mapstructure:"port"`
	RequestsPerSec   float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	RequestBurst     int     `yaml:"request_burst" mapstructure:"request_burst"`
	ShutdownTimeSecs int     `yaml:"shutdown_time_secs" mapstructure:"shutdown_time_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REORDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("predict.trigger_window_days", 2)
	v.SetDefault("predict.confidence_threshold", 0.6)
	v.SetDefault("catalog.low_stock_threshold", 5)
	v.SetDefault("report.suggest_limit", 3)
	v.SetDefault("report.leaderboard_limit", 5)
	v.SetDefault("batch.max_concurrent_customers", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.requests_per_sec", 20)
	v.SetDefault("server.request_burst", 40)
	v.SetDefault("server.shutdown_time_secs", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
