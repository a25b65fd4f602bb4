package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"go-shard-query/internal/driver"
	"go-shard-query/internal/logger"
	"go-shard-query/internal/model"
)

// EnvPrefix prefixes environment overrides, e.g. SHARDQUERY_SERVER_ADDR
const EnvPrefix = "SHARDQUERY"

// DefaultPort is used when a data source leaves port empty
const DefaultPort = "3306"

// DefaultAggregateColumns is the key column count for aggregate sources that omit it
const DefaultAggregateColumns = 1

// Config is the full service configuration
type Config struct {
	Server      ServerConfig       `mapstructure:"server"`
	Store       StoreConfig        `mapstructure:"store"`
	Log         logger.Config      `mapstructure:"log"`
	OutputDir   string             `mapstructure:"output_dir"`
	DataSources []model.DataSource `mapstructure:"data_sources"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig configures the run store
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("store.path", "shardquery.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("output_dir", "output")
}

// Load reads the YAML file at path (skipped when path is empty) and applies
// environment overrides on top.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	seen := make(map[string]bool, len(cfg.DataSources))
	for i := range cfg.DataSources {
		ds := &cfg.DataSources[i]
		if seen[ds.Name] {
			return nil, fmt.Errorf("duplicate data source %q", ds.Name)
		}
		seen[ds.Name] = true

		if ds.Template.Port == "" {
			ds.Template.Port = DefaultPort
		}
		if ds.ConnectTimeout <= 0 {
			ds.ConnectTimeout = driver.DefaultConnectTimeout
		}
		if ds.Aggregates() && ds.AggregateColumns == 0 {
			ds.AggregateColumns = DefaultAggregateColumns
		}
	}

	return &cfg, nil
}
