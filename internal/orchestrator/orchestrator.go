// Package orchestrator assembles the service: data source, artifact store,
// event bus, model registry and scheduler. It owns their lifecycle.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/OldStager01/workforce-ml/internal/artifacts"
	"github.com/OldStager01/workforce-ml/internal/datasource"
	"github.com/OldStager01/workforce-ml/internal/events"
	"github.com/OldStager01/workforce-ml/internal/logger"
	"github.com/OldStager01/workforce-ml/internal/metrics"
	"github.com/OldStager01/workforce-ml/internal/registry"
	"github.com/OldStager01/workforce-ml/internal/resilience"
	"github.com/OldStager01/workforce-ml/internal/scheduler"
	"github.com/OldStager01/workforce-ml/internal/simulator"
	"github.com/OldStager01/workforce-ml/internal/trainer"
	"github.com/OldStager01/workforce-ml/internal/trainers"
	"github.com/OldStager01/workforce-ml/pkg/config"
	"github.com/OldStager01/workforce-ml/pkg/database"
	"github.com/OldStager01/workforce-ml/pkg/database/queries"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

type Orchestrator struct {
	config      *config.Config
	source      *datasource.ResilientSource
	store       *artifacts.Store
	eventBus    *events.EventBus
	eventLogger *events.EventLogger
	metrics     *metrics.Metrics
	runs        *queries.TrainingRunRepository
	registry    *registry.Registry
	scheduler   *scheduler.Scheduler
	// subscribed before any component publishes
	apiEvents <-chan *models.Event
}

// New wires every component. db may be nil when the database is disabled
// and the data source is synthetic.
func New(cfg *config.Config, db *database.DB) (*Orchestrator, error) {
	m := metrics.New()

	base, err := newSource(cfg, db)
	if err != nil {
		return nil, err
	}
	source := datasource.NewResilientSource(datasource.ResilientSourceConfig{
		Source:        base,
		MaxFailures:   cfg.DataSource.CircuitBreaker.MaxFailures,
		Timeout:       cfg.DataSource.CircuitBreaker.Timeout,
		RetryAttempts: cfg.DataSource.RetryAttempts,
		RetryDelay:    cfg.DataSource.RetryDelay,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
			m.SetCircuitBreakerState(name, int(to))
		},
	})

	eventBus := events.NewEventBus(cfg.Events.BufferSize)
	publisher := events.NewPublisher(eventBus)

	var runs *queries.TrainingRunRepository
	var recorder events.RunRecorder
	if db != nil {
		runs = queries.NewTrainingRunRepository(db.DB)
		recorder = runs
	}
	eventLogger := events.NewEventLogger(recorder, eventBus.SubscribeAll())
	apiEvents := eventBus.SubscribeAll()

	store := artifacts.New(cfg.Storage.ModelsDir, cfg.Storage.MetricsDir)
	reg := registry.New(trainers.Deps{
		Source:    source,
		Store:     store,
		Windowing: cfg.Windowing,
		Rotation:  cfg.Rotation,
	}, trainer.Options{
		Publisher: publisher,
		Metrics:   m,
	})

	o := &Orchestrator{
		config:      cfg,
		source:      source,
		store:       store,
		eventBus:    eventBus,
		eventLogger: eventLogger,
		metrics:     m,
		runs:        runs,
		registry:    reg,
		apiEvents:   apiEvents,
	}

	if cfg.Scheduler.Enabled {
		o.scheduler = scheduler.New(cfg.Scheduler, reg, scheduler.Options{
			StatePath: cfg.Storage.SchedulerStatePath,
			Publisher: publisher,
			Metrics:   m,
		})
	}
	return o, nil
}

func newSource(cfg *config.Config, db *database.DB) (datasource.Source, error) {
	switch cfg.DataSource.Type {
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("datasource postgres requires database.enabled")
		}
		logger.Info("Using postgres data source")
		return datasource.NewPostgresSource(db, cfg.Database.QueryTimeout), nil
	case "synthetic", "":
		logger.Infof("Using synthetic data source with %d employees", cfg.DataSource.Synthetic.Employees)
		return datasource.NewSyntheticSource(simulator.New(simulator.Config{
			Employees: cfg.DataSource.Synthetic.Employees,
			Seed:      cfg.DataSource.Synthetic.Seed,
		})), nil
	}
	return nil, fmt.Errorf("unknown datasource type %q", cfg.DataSource.Type)
}

// Start launches the event logger and, when enabled, the scheduler.
func (o *Orchestrator) Start() error {
	logger.Info("Orchestrator starting")
	o.eventLogger.Start()

	if o.scheduler == nil {
		logger.Info("Scheduler disabled")
		return nil
	}
	if o.config.Scheduler.RegisterDefaults {
		if err := o.scheduler.RegisterDefaultJobs(); err != nil {
			return fmt.Errorf("failed to register default schedules: %w", err)
		}
	}
	o.scheduler.Start()
	return nil
}

// Stop waits for scheduled runs until ctx expires, then stops the event
// consumers and releases the data source.
func (o *Orchestrator) Stop(ctx context.Context) {
	logger.Info("Orchestrator stopping")

	if o.scheduler != nil {
		if err := o.scheduler.Shutdown(ctx); err != nil {
			logger.Warnf("Scheduler did not stop cleanly: %v", err)
		}
	}

	o.eventLogger.Stop()
	o.eventBus.Close()

	if err := o.source.Close(); err != nil {
		logger.Warnf("Failed to close data source: %v", err)
	}
	logger.Info("Orchestrator stopped")
}

func (o *Orchestrator) Registry() *registry.Registry { return o.registry }

func (o *Orchestrator) Metrics() *metrics.Metrics { return o.metrics }

func (o *Orchestrator) Source() datasource.Source { return o.source }

// Scheduler returns nil when scheduling is disabled.
func (o *Orchestrator) Scheduler() *scheduler.Scheduler { return o.scheduler }

// Runs returns nil when the database is disabled.
func (o *Orchestrator) Runs() *queries.TrainingRunRepository { return o.runs }

// Events is the stream reserved for the API's WebSocket bridge.
func (o *Orchestrator) Events() <-chan *models.Event { return o.apiEvents }

func (o *Orchestrator) SubscribeEvents(eventType models.EventType) <-chan *models.Event {
	return o.eventBus.Subscribe(eventType)
}

// TrainAll trains every registered model once, in catalog order, and
// returns the first error after attempting all of them.
func (o *Orchestrator) TrainAll(ctx context.Context) error {
	var firstErr error
	for _, id := range o.registry.IDs() {
		start := time.Now()
		if _, err := o.registry.Train(ctx, id, nil); err != nil {
			logger.WithModel(id).Errorf("Bootstrap training failed: %v", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", id, err)
			}
			continue
		}
		logger.WithModel(id).Infof("Bootstrap training finished in %s", time.Since(start).Round(time.Millisecond))
	}
	return firstErr
}
