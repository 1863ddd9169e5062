package config

import (
	"errors"
	"fmt"
	"time"
)

func (c *Config) Validate() error {
	var errs []error

	// App
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	// Database
	if c.Database.Enabled || c.DataSource.Type == "postgres" {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
	}

	// Data source
	validSources := map[string]bool{"postgres": true, "synthetic": true}
	if !validSources[c.DataSource.Type] {
		errs = append(errs, errors.New("datasource.type must be one of: postgres, synthetic"))
	}
	if c.DataSource.RetryAttempts < 0 {
		errs = append(errs, errors.New("datasource.retry_attempts must not be negative"))
	}
	if c.DataSource.Type == "synthetic" && c.DataSource.Synthetic.Employees <= 0 {
		errs = append(errs, errors.New("datasource.synthetic.employees must be positive"))
	}

	// Storage
	if c.Storage.ModelsDir == "" {
		errs = append(errs, errors.New("storage.models_dir is required"))
	}
	if c.Storage.MetricsDir == "" {
		errs = append(errs, errors.New("storage.metrics_dir is required"))
	}
	if c.Storage.SchedulerStatePath == "" {
		errs = append(errs, errors.New("storage.scheduler_state_path is required"))
	}

	// Scheduler
	if c.Scheduler.MisfireGrace < 0 {
		errs = append(errs, errors.New("scheduler.misfire_grace must not be negative"))
	}
	if c.Scheduler.Timezone != "" {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.timezone is invalid: %w", err))
		}
	}

	// Windowing
	if c.Windowing.EmbargoMonths < 0 {
		errs = append(errs, errors.New("windowing.embargo_months must not be negative"))
	}
	if c.Windowing.LookbackMonths <= 0 {
		errs = append(errs, errors.New("windowing.lookback_months must be positive"))
	}
	if len(c.Windowing.Horizons) == 0 {
		errs = append(errs, errors.New("windowing.horizons must not be empty"))
	}
	for i, h := range c.Windowing.Horizons {
		if h <= 0 {
			errs = append(errs, fmt.Errorf("windowing.horizons[%d] must be positive", i))
		}
		if i > 0 && h <= c.Windowing.Horizons[i-1] {
			errs = append(errs, errors.New("windowing.horizons must be strictly increasing"))
			break
		}
	}

	// Rotation
	if c.Rotation.TestSize <= 0 || c.Rotation.TestSize >= 1 {
		errs = append(errs, errors.New("rotation.test_size must be between 0 and 1"))
	}
	if c.Rotation.CVFolds < 2 {
		errs = append(errs, errors.New("rotation.cv_folds must be at least 2"))
	}
	if c.Rotation.Threshold <= 0 || c.Rotation.Threshold >= 1 {
		errs = append(errs, errors.New("rotation.threshold must be between 0 and 1"))
	}
	if c.Rotation.InterventionSuccessRate < 0 || c.Rotation.InterventionSuccessRate > 1 {
		errs = append(errs, errors.New("rotation.intervention_success_rate must be between 0 and 1"))
	}
	if c.Rotation.AttritionCost < 0 || c.Rotation.InterventionCost < 0 {
		errs = append(errs, errors.New("rotation costs must not be negative"))
	}

	// API
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.App.Mode == "production" && c.API.JWTSecret == "change-me-in-production" {
		errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
	}

	if c.Prometheus.Enabled && (c.Prometheus.Port < 0 || c.Prometheus.Port > 65535) {
		errs = append(errs, errors.New("prometheus.port must be between 0 and 65535"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
