package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/OldStager01/workforce-ml/internal/frame"
	"github.com/OldStager01/workforce-ml/internal/logger"
	"github.com/OldStager01/workforce-ml/pkg/database"
)

type PostgresSource struct {
	db           *database.DB
	queryTimeout time.Duration
}

func NewPostgresSource(db *database.DB, queryTimeout time.Duration) *PostgresSource {
	if queryTimeout <= 0 {
		queryTimeout = 2 * time.Minute
	}
	return &PostgresSource{db: db, queryTimeout: queryTimeout}
}

func (s *PostgresSource) FetchTabular(ctx context.Context, q Query) (*frame.Frame, error) {
	if q.SQL == "" {
		return nil, fmt.Errorf("%w: %s has no SQL", ErrUnknownDataset, q.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := time.Now()
	columns, rows, err := s.db.FetchRows(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, q.Name, err)
	}

	f := frame.New(columns...)
	for _, r := range rows {
		f.Append(frame.Row(r))
	}

	logger.WithFields(map[string]interface{}{
		"dataset":    q.Name,
		"rows":       f.Len(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Debug("Dataset fetched")

	return f, nil
}

func (s *PostgresSource) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

// Close is a no-op; the pool is owned by the caller that opened it.
func (s *PostgresSource) Close() error {
	return nil
}
