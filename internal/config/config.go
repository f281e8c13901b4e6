// Package config loads application configuration from the environment and an
// optional config.yaml, and initializes the global logger.
package config

import (
	"fmt"
	"net/url"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	ETL      ETLConfig      `yaml:"etl" mapstructure:"etl"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DatabaseConfig holds the Postgres connection settings. User, password,
// host and name come from the DB_USER, DB_PASSWORD, DB_HOST and DB_NAME
// environment variables; SSLMode from SSL_MODE.
type DatabaseConfig struct {
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Host     string `yaml:"host" mapstructure:"host"`
	Name     string `yaml:"name" mapstructure:"name"`
	SSLMode  string `yaml:"ssl_mode" mapstructure:"ssl_mode"`
}

// ETLConfig tunes the pipeline.
type ETLConfig struct {
	BatchSize    int    `yaml:"batch_size" mapstructure:"batch_size"`
	ChunkSize    int    `yaml:"chunk_size" mapstructure:"chunk_size"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	MaxRetries   int    `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec   int    `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// LogConfig configures the global zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional) and the environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment. The database variables are a published contract, so they
	// are bound by their exact names rather than through a prefix.
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"database.user":     "DB_USER",
		"database.password": "DB_PASSWORD",
		"database.host":     "DB_HOST",
		"database.name":     "DB_NAME",
		"database.ssl_mode": "SSL_MODE",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", env)
		}
	}

	// Defaults
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("etl.batch_size", 50000)
	v.SetDefault("etl.chunk_size", 10000)
	v.SetDefault("etl.timeout_secs", 180)
	v.SetDefault("etl.max_retries", 3)
	v.SetDefault("etl.rate_per_sec", 5)
	v.SetDefault("etl.user_agent", "cvmsync/1.0")
	v.SetDefault("etl.base_url", "https://dados.cvm.gov.br/dados/CIA_ABERTA/DOC")

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

// Validate checks that the database credentials required for any run are set.
func (c *Config) Validate() error {
	if c.Database.User == "" || c.Database.Password == "" || c.Database.Host == "" {
		return eris.New("config: DB_USER, DB_PASSWORD and DB_HOST must be set")
	}
	return nil
}

// ConnString builds the Postgres connection URL.
func (c *Config) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		url.QueryEscape(c.Database.User),
		url.QueryEscape(c.Database.Password),
		c.Database.Host,
		c.Database.Name,
		c.Database.SSLMode,
	)
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
