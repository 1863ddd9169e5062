package scheduler

import (
	"sort"
	"time"

	"github.com/OldStager01/workforce-ml/internal/logger"
	"github.com/OldStager01/workforce-ml/pkg/jsonfile"
)

// persistedJob is one value of the state document, keyed by model id.
type persistedJob struct {
	Cron    string     `json:"cron"`
	NextRun *time.Time `json:"next_run"`
}

func (s *Scheduler) loadState() {
	if s.statePath == "" {
		return
	}
	var doc map[string]persistedJob
	found, err := jsonfile.Read(s.statePath, &doc)
	if err != nil {
		logger.Warnf("Ignoring unreadable scheduler state %s: %v", s.statePath, err)
		return
	}
	if !found {
		return
	}

	ids := make([]string, 0, len(doc))
	for id := range doc {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := s.now()
	for _, id := range ids {
		p := doc[id]
		log := logger.WithModel(id)
		if !s.known(id) {
			log.Warn("Dropping persisted schedule for unregistered model")
			continue
		}
		sched, next, err := s.parse(p.Cron, now)
		if err != nil {
			log.Warnf("Dropping persisted schedule: %v", err)
			continue
		}
		if p.NextRun != nil && !p.NextRun.IsZero() {
			next = p.NextRun.In(s.loc)
		}
		s.jobs[id] = &job{id: id, cron: p.Cron, schedule: sched, next: next}
	}
	logger.Infof("Loaded %d persisted schedules from %s", len(s.jobs), s.statePath)
}

// persistLocked rewrites the whole state document. Callers hold s.mu.
func (s *Scheduler) persistLocked() {
	if s.statePath == "" {
		return
	}
	doc := make(map[string]persistedJob, len(s.jobs))
	for id, j := range s.jobs {
		next := j.next.UTC()
		doc[id] = persistedJob{Cron: j.cron, NextRun: &next}
	}
	if err := jsonfile.Write(s.statePath, doc); err != nil {
		logger.Errorf("Failed to persist scheduler state: %v", err)
	}
}
