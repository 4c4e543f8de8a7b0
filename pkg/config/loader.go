package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.AddConfigPath("/app/configs")

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Allow common env vars without APP_ prefix for Docker/VM deploys
	v.BindEnv("http.port", "HTTP_PORT", "APP_HTTP_PORT")
	v.BindEnv("database.url", "DATABASE_URL", "APP_DATABASE_URL")
	v.BindEnv("redis.url", "REDIS_URL", "APP_REDIS_URL")
	v.BindEnv("nats.url", "NATS_URL", "APP_NATS_URL")
	v.BindEnv("rabbitmq.url", "RABBITMQ_URL", "APP_RABBITMQ_URL")
	v.BindEnv("jwt.secret", "JWT_SECRET", "APP_JWT_SECRET")
	v.BindEnv("vault.address", "VAULT_ADDR", "APP_VAULT_ADDRESS")
	v.BindEnv("vault.token", "VAULT_TOKEN", "APP_VAULT_TOKEN")
	v.BindEnv("notification.email.api_key", "SENDGRID_API_KEY")
	v.BindEnv("app.environment", "APP_ENVIRONMENT")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("bootstrap.admin_email", "ADMIN_EMAIL")
	v.BindEnv("bootstrap.admin_password", "ADMIN_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "fuel-control")
	v.SetDefault("app.environment", "development")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 10*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)

	v.SetDefault("queue.driver", "log")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("nats.timeout", 5*time.Second)
	v.SetDefault("rabbitmq.exchange", "fuel.events")

	v.SetDefault("jwt.access_token_duration", 12*time.Hour)
	v.SetDefault("jwt.issuer", "fuel-control")

	v.SetDefault("vault.secret_path", "secret/data/fuel-control")

	v.SetDefault("opentelemetry.service_name", "fuel-control")
	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.path", "/metrics")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("circuit_breaker.max_requests", 5)
	v.SetDefault("circuit_breaker.interval", 60*time.Second)
	v.SetDefault("circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.failure_threshold", 0.6)

	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "Authorization"})

	v.SetDefault("notification.email.provider", "log")
	v.SetDefault("notification.email.from", "fuel-control@localhost")
	v.SetDefault("notification.email.from_name", "Fuel Control")

	v.SetDefault("cache.dashboard_ttl", 5*time.Minute)
	v.SetDefault("cache.local_max_entries", 512)
	v.SetDefault("cache.local_sweep", time.Minute)

	v.SetDefault("fuel.tank_name", "Main Tank")
	v.SetDefault("fuel.tank_capacity", 6000.0)
	v.SetDefault("fuel.normal_above", 50.0)
	v.SetDefault("fuel.warning_from", 20.0)
	v.SetDefault("fuel.refueling_code", "REF")
	v.SetDefault("fuel.intake_code", "INT")
	v.SetDefault("fuel.anomaly_ratio", 0.8)
	v.SetDefault("fuel.anomaly_top_n", 3)
	v.SetDefault("fuel.timezone", "Local")

	v.SetDefault("limits.max_receipt_size", 5*1024*1024)
	v.SetDefault("limits.max_body_size", 8*1024*1024)
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	if c.Fuel.TankCapacity <= 0 {
		return fmt.Errorf("fuel.tank_capacity must be positive, got %v", c.Fuel.TankCapacity)
	}
	if c.Fuel.WarningFrom < 0 || c.Fuel.NormalAbove < c.Fuel.WarningFrom {
		return fmt.Errorf("fuel thresholds out of order: warning_from=%v normal_above=%v",
			c.Fuel.WarningFrom, c.Fuel.NormalAbove)
	}
	if c.Fuel.AnomalyRatio <= 0 || c.Fuel.AnomalyRatio >= 1 {
		return fmt.Errorf("fuel.anomaly_ratio must be in (0,1), got %v", c.Fuel.AnomalyRatio)
	}
	return nil
}

// Location resolves the configured timezone used for month boundaries.
func (f FuelConfig) Location() *time.Location {
	if f.Timezone == "" || f.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
