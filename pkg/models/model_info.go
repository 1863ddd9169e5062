package models

import "time"

type ModelType string

const (
	ModelTypeClassification ModelType = "classification"
	ModelTypeRegression     ModelType = "regression"
	ModelTypeTimeSeries     ModelType = "time_series"
	ModelTypeClustering     ModelType = "clustering"
	ModelTypeSurvival       ModelType = "survival"
	ModelTypeRecommender    ModelType = "recommender"
)

// ModelSchedule is the schedule block shown alongside a model.
type ModelSchedule struct {
	Frequency      ScheduleFrequency `json:"frequency"`
	CronExpression *string           `json:"cron_expression"`
	NextRun        *time.Time        `json:"next_run"`
}

// ModelInfo describes a registered model for the API layer.
type ModelInfo struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	Type          ModelType              `json:"type"`
	Version       string                 `json:"version"`
	LastTrainedAt *time.Time             `json:"last_trained_at"`
	Metrics       map[string]interface{} `json:"metrics"`
	Schedule      *ModelSchedule         `json:"schedule"`
}
