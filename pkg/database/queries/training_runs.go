package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrRunNotFound = errors.New("training run not found")

type TrainingRunRepository struct {
	db *sql.DB
}

func NewTrainingRunRepository(db *sql.DB) *TrainingRunRepository {
	return &TrainingRunRepository{db: db}
}

type TrainingRunRecord struct {
	ID           string                 `json:"id"`
	ModelID      string                 `json:"model_id"`
	ModelVersion string                 `json:"model_version"`
	TrainedAt    time.Time              `json:"trained_at"`
	DurationMs   int64                  `json:"duration_ms"`
	Status       string                 `json:"status"`
	Error        *string                `json:"error,omitempty"`
	Metrics      map[string]interface{} `json:"metrics"`
}

func (r *TrainingRunRepository) Insert(ctx context.Context, rec TrainingRunRecord) error {
	if rec.Metrics == nil {
		rec.Metrics = map[string]interface{}{}
	}
	metrics, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}
	if rec.Status == "" {
		rec.Status = "completed"
	}

	query := `
		INSERT INTO training_runs (id, model_id, model_version, trained_at, duration_ms, status, error, metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.ModelID, rec.ModelVersion, rec.TrainedAt,
		rec.DurationMs, rec.Status, rec.Error, metrics,
	)
	return err
}

func (r *TrainingRunRepository) GetByModel(ctx context.Context, modelID string, limit int) ([]TrainingRunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, model_id, model_version, trained_at, duration_ms, status, error, metrics
		FROM training_runs
		WHERE model_id = $1
		ORDER BY trained_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, modelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []TrainingRunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *rec)
	}

	return runs, rows.Err()
}

func (r *TrainingRunRepository) GetByID(ctx context.Context, id string) (*TrainingRunRecord, error) {
	query := `
		SELECT id, model_id, model_version, trained_at, duration_ms, status, error, metrics
		FROM training_runs
		WHERE id = $1`

	rec, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*TrainingRunRecord, error) {
	var rec TrainingRunRecord
	var metrics []byte
	err := s.Scan(
		&rec.ID, &rec.ModelID, &rec.ModelVersion, &rec.TrainedAt,
		&rec.DurationMs, &rec.Status, &rec.Error, &metrics,
	)
	if err != nil {
		return nil, err
	}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &rec.Metrics); err != nil {
			return nil, fmt.Errorf("failed to decode metrics: %w", err)
		}
	}
	return &rec, nil
}
