// Package simulator generates a deterministic synthetic workforce: a roster
// with terminations and incident aggregates, plus the derived datasets every
// trainer consumes. It backs the offline data source and the test suites.
package simulator

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/logger"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

type Config struct {
	Employees int
	Seed      int64
	// Today anchors every generated date. Zero means the current UTC date.
	Today   time.Time
	Pattern Pattern
}

type Simulator struct {
	config    Config
	once      sync.Once
	workforce *Workforce
	datasets  map[string]*frame.Frame
}

func New(cfg Config) *Simulator {
	if cfg.Employees <= 0 {
		cfg.Employees = 400
	}
	if cfg.Today.IsZero() {
		now := time.Now().UTC()
		cfg.Today = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if cfg.Pattern == nil {
		cfg.Pattern = Compose(PatternWeekly, PatternSeasonal)
	}
	return &Simulator{config: cfg}
}

func (s *Simulator) generate() {
	s.once.Do(func() {
		start := time.Now()
		s.workforce = NewWorkforce(s.config)
		s.datasets = map[string]*frame.Frame{
			models.DatasetEmployeeRoster:     s.workforce.RosterFrame(),
			models.DatasetAbsenteeism:        s.workforce.AbsenteeismFrame(),
			models.DatasetDailyAbsences:      s.workforce.DailyAbsencesFrame(s.config.Pattern),
			models.DatasetAttendanceProfiles: s.workforce.AttendanceFrame(),
			models.DatasetTerminationReasons: s.workforce.TerminationReasonsFrame(),
			models.DatasetAbsenceImpact:      s.workforce.AbsenceImpactFrame(),
		}
		logger.WithFields(map[string]interface{}{
			"employees":  s.config.Employees,
			"seed":       s.config.Seed,
			"pattern":    s.config.Pattern.Name(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		}).Debug("Synthetic workforce generated")
	})
}

// Dataset returns the named dataset. The returned frame must not be mutated.
func (s *Simulator) Dataset(name string) (*frame.Frame, error) {
	s.generate()
	f, ok := s.datasets[name]
	if !ok {
		return nil, fmt.Errorf("unknown synthetic dataset %q", name)
	}
	return f, nil
}

func (s *Simulator) Datasets() []string {
	s.generate()
	names := make([]string, 0, len(s.datasets))
	for name := range s.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Simulator) Workforce() *Workforce {
	s.generate()
	return s.workforce
}
