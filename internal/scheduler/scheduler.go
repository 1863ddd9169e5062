// Package scheduler re-runs model training on cron schedules. Job state is
// persisted so schedules and pending fires survive a restart.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/OldStager01/workforce-ml/internal/events"
	"github.com/OldStager01/workforce-ml/internal/logger"
	"github.com/OldStager01/workforce-ml/internal/metrics"
	"github.com/OldStager01/workforce-ml/internal/trainer"
	"github.com/OldStager01/workforce-ml/pkg/config"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

var ErrInvalidSchedule = errors.New("invalid schedule")

const (
	defaultTickInterval = time.Second
	defaultMisfireGrace = 300 * time.Second
)

// Catalog is the view of the model registry the scheduler needs.
type Catalog interface {
	IDs() []string
	DefaultCron(id string) string
	Train(ctx context.Context, id string, params trainer.Params) (*models.TrainingResult, error)
}

type Options struct {
	StatePath    string
	Publisher    *events.Publisher
	Metrics      *metrics.Metrics
	Now          func() time.Time
	TickInterval time.Duration
}

type job struct {
	id       string
	cron     string
	schedule cron.Schedule
	next     time.Time
	running  bool
}

type Scheduler struct {
	catalog   Catalog
	loc       *time.Location
	grace     time.Duration
	statePath string
	interval  time.Duration
	publisher *events.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time

	jobs    map[string]*job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// New builds a scheduler and loads any persisted state. Nothing fires until
// Start is called.
func New(cfg config.SchedulerConfig, catalog Catalog, opts Options) *Scheduler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	grace := cfg.MisfireGrace
	if grace <= 0 {
		grace = defaultMisfireGrace
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		catalog:   catalog,
		loc:       cfg.Location(),
		grace:     grace,
		statePath: opts.StatePath,
		interval:  opts.TickInterval,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		now:       opts.Now,
		jobs:      make(map[string]*job),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.loadState()
	return s
}

// parse reads a five-field cron expression in the scheduler's timezone and
// returns its first occurrence after now. Expressions that never match a
// calendar date are rejected.
func (s *Scheduler) parse(expr string, now time.Time) (cron.Schedule, time.Time, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, time.Time{}, fmt.Errorf("%w: empty cron expression", ErrInvalidSchedule)
	}
	if strings.HasPrefix(expr, "TZ=") || strings.HasPrefix(expr, "CRON_TZ=") {
		return nil, time.Time{}, fmt.Errorf("%w: timezone prefixes are not accepted", ErrInvalidSchedule)
	}
	sched, err := cron.ParseStandard("CRON_TZ=" + s.loc.String() + " " + expr)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %q: %w", ErrInvalidSchedule, expr, err)
	}
	next := sched.Next(now.In(s.loc))
	if next.IsZero() {
		return nil, time.Time{}, fmt.Errorf("%w: %q never fires", ErrInvalidSchedule, expr)
	}
	return sched, next, nil
}

func (s *Scheduler) known(id string) bool {
	for _, k := range s.catalog.IDs() {
		if k == id {
			return true
		}
	}
	return false
}

// RegisterDefaultJobs schedules every model that has a default cron
// expression and persists once at the end. A job whose persisted cron is
// identical keeps its persisted next run. Every default is parsed before
// any job changes, so a bad default leaves the state untouched.
func (s *Scheduler) RegisterDefaultJobs() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	type pending struct {
		id    string
		expr  string
		sched cron.Schedule
		next  time.Time
	}

	now := s.now()
	var changes []pending
	registered := 0
	for _, id := range s.catalog.IDs() {
		expr := s.catalog.DefaultCron(id)
		if expr == "" {
			continue
		}
		registered++
		if existing, ok := s.jobs[id]; ok && existing.cron == expr {
			continue
		}
		sched, next, err := s.parse(expr, now)
		if err != nil {
			return fmt.Errorf("default schedule for %s: %w", id, err)
		}
		changes = append(changes, pending{id: id, expr: expr, sched: sched, next: next})
	}

	for _, c := range changes {
		s.setLocked(c.id, c.expr, c.sched, c.next)
	}
	s.persistLocked()
	logger.Infof("Registered %d default schedules", registered)
	return nil
}

// ScheduleModel creates or replaces the schedule of a model. There is
// never more than one job per model id.
func (s *Scheduler) ScheduleModel(id, expr string) (models.ScheduledJob, error) {
	if !s.known(id) {
		return models.ScheduledJob{}, fmt.Errorf("%w: unknown model %s", ErrInvalidSchedule, id)
	}
	expr = strings.TrimSpace(expr)
	sched, next, err := s.parse(expr, s.now())
	if err != nil {
		return models.ScheduledJob{}, err
	}

	s.mu.Lock()
	j := s.setLocked(id, expr, sched, next)
	s.persistLocked()
	out := j.snapshot()
	s.mu.Unlock()

	logger.WithModel(id).WithField("cron", expr).Infof("Schedule set, next run %s", out.NextRun.Format(time.RFC3339))
	s.publisher.ScheduleUpdated(id, expr, out.NextRun)
	return out, nil
}

func (s *Scheduler) setLocked(id, expr string, sched cron.Schedule, next time.Time) *job {
	j, ok := s.jobs[id]
	if !ok {
		j = &job{id: id}
		s.jobs[id] = j
	}
	j.cron = expr
	j.schedule = sched
	j.next = next
	return j
}

// RemoveSchedule deletes a model's schedule. Removing an absent schedule is
// a no-op. A run already in progress is not interrupted.
func (s *Scheduler) RemoveSchedule(id string) {
	s.mu.Lock()
	_, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
		s.persistLocked()
	}
	s.mu.Unlock()

	if ok {
		logger.WithModel(id).Info("Schedule removed")
		s.publisher.ScheduleRemoved(id)
	}
}

// State returns every scheduled job keyed by model id.
func (s *Scheduler) State() map[string]models.ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]models.ScheduledJob, len(s.jobs))
	for id, j := range s.jobs {
		out[id] = j.snapshot()
	}
	return out
}

// Schedule returns the job for one model, or nil when it is unscheduled.
func (s *Scheduler) Schedule(id string) *models.ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil
	}
	out := j.snapshot()
	return &out
}

func (j *job) snapshot() models.ScheduledJob {
	next := j.next
	return models.ScheduledJob{ModelID: j.id, Cron: j.cron, NextRun: &next}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	count := len(s.jobs)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()
	logger.WithField("jobs", count).Infof("Scheduler started in %s", s.loc)
}

// Shutdown stops the loop and waits for in-flight training runs until ctx
// expires.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if wasRunning {
			logger.Info("Scheduler stopped")
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown: %w", ctx.Err())
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// catch up on anything missed while the process was down
	s.tick(s.now())

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick(s.now())
		}
	}
}

// tick fires every job that is due at now. Occurrences missed since the
// last fire collapse into one, and only fire when the most recent of them
// is within the misfire grace.
func (s *Scheduler) tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}

	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	changed := false
	for _, id := range ids {
		j := s.jobs[id]
		if j.next.After(now) {
			continue
		}

		scheduled, missed := j.next, 0
		next := j.next
		for !next.IsZero() && !next.After(now) {
			scheduled = next
			missed++
			next = j.schedule.Next(next)
		}
		changed = true
		if next.IsZero() {
			logger.WithModel(id).WithField("cron", j.cron).Error("Dropping schedule with no future occurrence")
			delete(s.jobs, id)
			continue
		}
		j.next = next

		data := &models.ScheduleFiredData{
			ScheduledAt: scheduled.UTC(),
			FiredAt:     now.UTC(),
			Missed:      missed,
		}
		log := logger.WithModel(id).WithField("scheduled_at", scheduled.Format(time.RFC3339))

		switch {
		case now.Sub(scheduled) > s.grace:
			data.Reason = metrics.SkipMisfire
			log.Warnf("Skipping fire missed by %s, next run %s", now.Sub(scheduled).Round(time.Second), next.Format(time.RFC3339))
			s.metrics.IncScheduleSkip(id, metrics.SkipMisfire)
			s.publisher.ScheduleSkipped(id, data)
		case j.running:
			data.Reason = metrics.SkipInFlight
			log.Warn("Skipping fire, previous scheduled run still in progress")
			s.metrics.IncScheduleSkip(id, metrics.SkipInFlight)
			s.publisher.ScheduleSkipped(id, data)
		default:
			if missed > 1 {
				log = log.WithField("missed", missed)
			}
			log.Info("Scheduled training fired")
			s.metrics.IncScheduledFire(id, missed)
			s.publisher.ScheduleFired(id, data)
			j.running = true
			s.wg.Add(1)
			go s.fire(j)
		}
	}
	if changed {
		s.persistLocked()
	}
}

// fire runs one scheduled training. Errors are logged and the job stays
// scheduled.
func (s *Scheduler) fire(j *job) {
	defer s.wg.Done()

	ctx := logger.WithTraceID(s.ctx, models.NewUUID())
	log := logger.WithModelCtx(ctx, j.id)

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Scheduled training panicked: %v", r)
		}
		s.mu.Lock()
		j.running = false
		s.mu.Unlock()
	}()

	result, err := s.catalog.Train(ctx, j.id, nil)
	if err != nil {
		switch {
		case errors.Is(err, trainer.ErrTrainingInProgress):
			log.Warn("Scheduled training skipped, a run is already in progress")
			s.metrics.IncScheduleSkip(j.id, metrics.SkipInFlight)
		case errors.Is(err, trainer.ErrDataUnavailable):
			log.Errorf("Scheduled training failed, data unavailable: %v", err)
			s.metrics.IncScheduleSkip(j.id, metrics.SkipUnavailable)
		default:
			log.Errorf("Scheduled training failed: %v", err)
		}
		return
	}

	log.WithField("run_id", result.RunID).Infof("Scheduled training finished in %dms", result.DurationMs)

	s.mu.Lock()
	if current, ok := s.jobs[j.id]; ok && current == j {
		s.persistLocked()
	}
	s.mu.Unlock()
}
