package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"claimflow/internal/bootstrap/logging"
	"claimflow/internal/errs"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Claims    ClaimsConfig    `mapstructure:"claims"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Events    EventsConfig    `mapstructure:"events"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// ClaimsConfig bounds read freshness: snapshots served to pollers are never
// older than ReadStaleness, which must fit inside one PollInterval.
type ClaimsConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	ReadStaleness time.Duration `mapstructure:"read_staleness"`
}

type PolicyConfig struct {
	MaxAttempts   int     `mapstructure:"max_attempts"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	RateBurst     int     `mapstructure:"rate_burst"`
}

type CacheConfig struct {
	Driver        string `mapstructure:"driver"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
	PurgeSchedule string `mapstructure:"purge_schedule"`
}

type EventsConfig struct {
	Driver         string        `mapstructure:"driver"`
	NATSURL        string        `mapstructure:"nats_url"`
	NATSToken      string        `mapstructure:"nats_token"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type TelemetryConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	if err := godotenv.Load(); err == nil {
		logging.Info(logCtx, "loaded .env into environment")
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, errs.Wrap(err, "load .env")
	}

	v := viper.New()
	setDefaults(logCtx, v)

	v.SetEnvPrefix("CLAIMFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("cache_driver", cfg.Cache.Driver),
		slog.String("events_driver", cfg.Events.Driver),
		slog.Duration("read_staleness", cfg.Claims.ReadStaleness),
	)

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Claims.PollInterval <= 0 {
		return errors.New("claims.poll_interval must be positive")
	}
	if c.Claims.ReadStaleness < 0 {
		return errors.New("claims.read_staleness must not be negative")
	}
	if c.Claims.ReadStaleness > c.Claims.PollInterval {
		return fmt.Errorf(
			"claims.read_staleness (%s) must not exceed claims.poll_interval (%s)",
			c.Claims.ReadStaleness, c.Claims.PollInterval,
		)
	}
	if c.Policy.MaxAttempts <= 0 {
		return errors.New("policy.max_attempts must be positive")
	}
	if strings.EqualFold(strings.TrimSpace(c.Cache.Driver), "sqlite") {
		if _, err := cron.ParseStandard(c.Cache.PurgeSchedule); err != nil {
			return errs.Wrapf(err, "cache.purge_schedule %q", c.Cache.PurgeSchedule)
		}
	}
	return nil
}

func setDefaults(ctx context.Context, v *viper.Viper) {
	if ctx == nil {
		return
	}

	v.SetDefault("app.name", "claimflow")
	v.SetDefault("app.env", "local")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".data/claimflow.sqlite")
	v.SetDefault("database.busy_timeout", 5*time.Second)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.request_timeout", 5*time.Second)
	v.SetDefault("claims.poll_interval", 5*time.Second)
	v.SetDefault("claims.read_staleness", 2*time.Second)
	v.SetDefault("policy.max_attempts", 10)
	v.SetDefault("policy.rate_per_second", 2.0)
	v.SetDefault("policy.rate_burst", 5)
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redis_addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis_prefix", "claimflow:")
	v.SetDefault("cache.purge_schedule", "@every 1m")
	v.SetDefault("events.driver", "log")
	v.SetDefault("events.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("events.subject_prefix", "claims.")
	v.SetDefault("events.connect_timeout", 10*time.Second)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.interval", 15*time.Second)
}
