package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/OldStager01/workforce-ml/api"
	"github.com/OldStager01/workforce-ml/api/handlers"
	"github.com/OldStager01/workforce-ml/internal/auth"
	"github.com/OldStager01/workforce-ml/internal/logger"
	"github.com/OldStager01/workforce-ml/internal/metrics"
	"github.com/OldStager01/workforce-ml/internal/orchestrator"
	"github.com/OldStager01/workforce-ml/pkg/config"
	"github.com/OldStager01/workforce-ml/pkg/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	trainAll := flag.Bool("train-all", false, "train every model once before serving")
	hashPassword := flag.Bool("hash-password", false, "read a password from stdin and print its bcrypt hash")
	flag.Parse()

	if *hashPassword {
		return printPasswordHash()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.New(cfg.Database.ToDBConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		logger.Info("Database connection established")

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		if *migrate {
			logger.Info("Running database migrations")
			if err := database.NewMigrator(db).Run(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			logger.Info("Migrations completed successfully")
			return nil
		}

		if version, err := db.ServerVersion(ctx); err == nil {
			logger.WithField("version", version).Debug("Connected to PostgreSQL")
		}
		if err := db.CheckSchema(ctx, database.RunLogTable); err != nil {
			logger.Warnf("Run log unavailable until migrations run (-migrate): %v", err)
		}
	} else if *migrate {
		return fmt.Errorf("-migrate requires database.enabled")
	}

	orch, err := orchestrator.New(cfg, db)
	if err != nil {
		return fmt.Errorf("failed to build orchestrator: %w", err)
	}

	if *trainAll {
		if err := orch.TrainAll(context.Background()); err != nil {
			logger.Warnf("Bootstrap training incomplete: %v", err)
		}
	}

	if err := orch.Start(); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}

	server := api.NewServer(cfg.API, cfg.WebSocket, apiDeps(orch, db))

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 2)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	var metricsServer *http.Server
	if cfg.Prometheus.Enabled {
		metricsServer = metrics.StartServer(cfg.Prometheus.Port, orch.Metrics())
	}

	var runErr error
	select {
	case err := <-errChan:
		runErr = fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API shutdown error: %v", err)
	}
	if metricsServer != nil {
		if err := metrics.Shutdown(shutdownCtx, metricsServer); err != nil {
			logger.Errorf("Metrics shutdown error: %v", err)
		}
	}
	orch.Stop(shutdownCtx)

	if runErr != nil {
		return runErr
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// apiDeps keeps disabled components out of the interfaces so the API sees
// a true nil rather than a typed nil pointer.
func apiDeps(orch *orchestrator.Orchestrator, db *database.DB) api.Deps {
	deps := api.Deps{
		Catalog: orch.Registry(),
		Metrics: orch.Metrics(),
		Events:  orch.Events(),
		Health: map[string]handlers.Checker{
			"datasource": orch.Source(),
		},
	}
	if s := orch.Scheduler(); s != nil {
		deps.Scheduler = s
	}
	if r := orch.Runs(); r != nil {
		deps.Runs = r
	}
	if db != nil {
		deps.Health["database"] = db
	}
	return deps
}

func printPasswordHash() error {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("failed to read password: %w", err)
	}
	hash, err := auth.HashPassword(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
