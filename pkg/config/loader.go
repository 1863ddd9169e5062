package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/mlservice")
	}

	v.SetEnvPrefix("MLSERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no file: defaults and env only
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "workforce-ml")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "30s")

	// Database
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "workforce")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.ping_timeout", "10s")
	v.SetDefault("database.migration_timeout", "60s")
	v.SetDefault("database.query_timeout", "2m")

	// Data source
	v.SetDefault("datasource.type", "synthetic")
	v.SetDefault("datasource.retry_attempts", 3)
	v.SetDefault("datasource.retry_delay", "2s")
	v.SetDefault("datasource.circuit_breaker.max_failures", 5)
	v.SetDefault("datasource.circuit_breaker.timeout", "60s")
	v.SetDefault("datasource.synthetic.employees", 400)
	v.SetDefault("datasource.synthetic.seed", 42)

	// Storage
	v.SetDefault("storage.models_dir", "data/models")
	v.SetDefault("storage.metrics_dir", "data/metrics")
	v.SetDefault("storage.scheduler_state_path", "data/scheduler_state.json")

	// Scheduler
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.timezone", "America/Mexico_City")
	v.SetDefault("scheduler.misfire_grace", "300s")
	v.SetDefault("scheduler.register_defaults", true)

	// Windowing
	v.SetDefault("windowing.embargo_months", 3)
	v.SetDefault("windowing.lookback_months", 12)
	v.SetDefault("windowing.horizons", []int{30, 60, 90})

	// Rotation
	v.SetDefault("rotation.test_size", 0.2)
	v.SetDefault("rotation.cv_folds", 5)
	v.SetDefault("rotation.seed", 42)
	v.SetDefault("rotation.threshold", 0.5)
	v.SetDefault("rotation.attrition_cost", 50000.0)
	v.SetDefault("rotation.intervention_cost", 5000.0)
	v.SetDefault("rotation.intervention_success_rate", 0.30)

	// API
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "10m")
	v.SetDefault("api.idle_timeout", "60s")
	v.SetDefault("api.jwt_secret", "change-me-in-production")
	v.SetDefault("api.jwt_duration", "24h")
	v.SetDefault("api.jwt_issuer", "workforce-ml")
	v.SetDefault("api.admin_user", "admin")
	v.SetDefault("api.default_limit", 20)
	v.SetDefault("api.max_limit", 200)
	v.SetDefault("api.rate_limit", 120)
	v.SetDefault("api.train_rate_limit", 6)
	v.SetDefault("api.max_body_bytes", 1<<20)

	// WebSocket
	v.SetDefault("websocket.max_connections", 200)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.broadcast_buffer", 256)
	v.SetDefault("websocket.client_buffer", 64)

	// Prometheus
	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.port", 9090)

	// Events
	v.SetDefault("events.buffer_size", 100)
}
