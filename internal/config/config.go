package config

import (
	"fmt"
	"strings"
	"time"

	"better-pypi-stats/internal/model"

	"github.com/caarlos0/env/v9"
	"hermannm.dev/wrap"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	HTTPPort     string             `env:"HTTP_PORT" envDefault:":8080"`
	AppMode      string             `env:"APP_MODE" envDefault:"dev"`
	FiberPrefork bool               `env:"FIBER_PREFORK" envDefault:"false"`
	LogLevel     string             `env:"LOG_LEVEL" envDefault:"info"`
	Store        SupportedStore     `env:"STORE" envDefault:"clickhouse"`
	FixturePath  string             `env:"FIXTURE_PATH" envDefault:""`
	QueryTimeout time.Duration      `env:"QUERY_TIMEOUT" envDefault:"30s"`
	CacheSize    int                `env:"CACHE_SIZE" envDefault:"512"`
	CacheTTL     time.Duration      `env:"CACHE_TTL" envDefault:"10m"`
	DefaultTable model.TableVariant `env:"DEFAULT_TABLE" envDefault:"installer_type_country"`
	ClickHouse   ClickHouse
}

// ClickHouse defaults to the public read-only ClickPy playground.
type ClickHouse struct {
	Address         string        `env:"CLICKHOUSE_ADDRESS" envDefault:"clickpy-clickhouse.clickhouse.com:443"`
	DatabaseName    string        `env:"CLICKHOUSE_DB_NAME" envDefault:"pypi"`
	Username        string        `env:"CLICKHOUSE_USERNAME" envDefault:"play"`
	Password        string        `env:"CLICKHOUSE_PASSWORD" envDefault:""`
	Protocol        string        `env:"CLICKHOUSE_PROTOCOL" envDefault:"http"`
	TLS             bool          `env:"CLICKHOUSE_TLS" envDefault:"true"`
	Debug           bool          `env:"CLICKHOUSE_DEBUG_ENABLED" envDefault:"false"`
	DialTimeout     time.Duration `env:"CLICKHOUSE_DIAL_TIMEOUT" envDefault:"10s"`
	MaxOpenConns    int           `env:"CLICKHOUSE_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"CLICKHOUSE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CLICKHOUSE_CONN_MAX_LIFETIME" envDefault:"1h"`
	BootstrapSchema bool          `env:"CLICKHOUSE_BOOTSTRAP_SCHEMA" envDefault:"false"`
	BreakerFailures uint32        `env:"CLICKHOUSE_BREAKER_FAILURES" envDefault:"5"`
	BreakerTimeout  time.Duration `env:"CLICKHOUSE_BREAKER_TIMEOUT" envDefault:"30s"`
}

type SupportedStore string

const (
	StoreClickHouse SupportedStore = "clickhouse"
	StoreMemory     SupportedStore = "memory"
)

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads configuration from the given variables instead of the
// process environment.
func LoadFrom(environment map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(options env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, options); err != nil {
		return nil, wrap.Error(err, "failed to parse config from env")
	}

	cfg.AppMode = strings.ToLower(cfg.AppMode)
	cfg.ClickHouse.Protocol = strings.ToLower(cfg.ClickHouse.Protocol)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.Store {
	case StoreClickHouse:
		if cfg.ClickHouse.Address == "" {
			return fmt.Errorf("CLICKHOUSE_ADDRESS is required when STORE is '%s'", StoreClickHouse)
		}
		switch cfg.ClickHouse.Protocol {
		case "http", "native":
		default:
			err := fmt.Errorf("must be one of: 'http', 'native'")
			return wrap.Errorf(err, "unsupported value '%s' for CLICKHOUSE_PROTOCOL in env", cfg.ClickHouse.Protocol)
		}
	case StoreMemory:
		if cfg.FixturePath == "" {
			return fmt.Errorf("FIXTURE_PATH is required when STORE is '%s'", StoreMemory)
		}
	default:
		err := fmt.Errorf("must be one of: '%s', '%s'", StoreClickHouse, StoreMemory)
		return wrap.Errorf(err, "unsupported value '%s' for STORE in env", cfg.Store)
	}

	if cfg.QueryTimeout < 0 {
		return fmt.Errorf("QUERY_TIMEOUT must not be negative")
	}
	return nil
}

// IsDev reports whether the app runs in development mode.
func (cfg *Config) IsDev() bool {
	return cfg.AppMode == "dev"
}
