package config

import (
	"fmt"
	"time"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	DataSource DataSourceConfig `mapstructure:"datasource"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Windowing  WindowingConfig  `mapstructure:"windowing"`
	Rotation   RotationConfig   `mapstructure:"rotation"`
	API        APIConfig        `mapstructure:"api"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Events     EventsConfig     `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Name             string        `mapstructure:"name"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	MaxConnections   int           `mapstructure:"max_connections"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout      time.Duration `mapstructure:"ping_timeout"`
	MigrationTimeout time.Duration `mapstructure:"migration_timeout"`
	QueryTimeout     time.Duration `mapstructure:"query_timeout"`
}

func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, sslMode,
	)
}

// DataSourceConfig selects where training frames come from.
type DataSourceConfig struct {
	Type           string                `mapstructure:"type"`
	RetryAttempts  int                   `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration         `mapstructure:"retry_delay"`
	CircuitBreaker CircuitBreakerConfig  `mapstructure:"circuit_breaker"`
	Synthetic      SyntheticSourceConfig `mapstructure:"synthetic"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type SyntheticSourceConfig struct {
	Employees int   `mapstructure:"employees"`
	Seed      int64 `mapstructure:"seed"`
}

type StorageConfig struct {
	ModelsDir          string `mapstructure:"models_dir"`
	MetricsDir         string `mapstructure:"metrics_dir"`
	SchedulerStatePath string `mapstructure:"scheduler_state_path"`
}

type SchedulerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Timezone         string        `mapstructure:"timezone"`
	MisfireGrace     time.Duration `mapstructure:"misfire_grace"`
	RegisterDefaults bool          `mapstructure:"register_defaults"`
}

// Location resolves the configured timezone, falling back to UTC.
func (s SchedulerConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type WindowingConfig struct {
	EmbargoMonths  int   `mapstructure:"embargo_months"`
	LookbackMonths int   `mapstructure:"lookback_months"`
	Horizons       []int `mapstructure:"horizons"`
}

type RotationConfig struct {
	TestSize                float64 `mapstructure:"test_size"`
	CVFolds                 int     `mapstructure:"cv_folds"`
	Seed                    int64   `mapstructure:"seed"`
	Threshold               float64 `mapstructure:"threshold"`
	AttritionCost           float64 `mapstructure:"attrition_cost"`
	InterventionCost        float64 `mapstructure:"intervention_cost"`
	InterventionSuccessRate float64 `mapstructure:"intervention_success_rate"`
}

type APIConfig struct {
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	JWTSecret         string        `mapstructure:"jwt_secret"`
	JWTDuration       time.Duration `mapstructure:"jwt_duration"`
	JWTIssuer         string        `mapstructure:"jwt_issuer"`
	AdminUser         string        `mapstructure:"admin_user"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"`
	DefaultLimit      int           `mapstructure:"default_limit"`
	MaxLimit          int           `mapstructure:"max_limit"`
	RateLimit         int           `mapstructure:"rate_limit"`
	TrainRateLimit    int           `mapstructure:"train_rate_limit"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
