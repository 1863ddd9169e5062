package models

import "time"

// TrainingResult is returned by a successful training run.
type TrainingResult struct {
	RunID       string                 `json:"run_id"`
	ModelID     string                 `json:"model_id"`
	TrainedAt   time.Time              `json:"trained_at"`
	DurationMs  int64                  `json:"duration_ms"`
	Metrics     map[string]interface{} `json:"metrics"`
	Artifacts   map[string]interface{} `json:"artifacts"`
	ModelPath   string                 `json:"model_path"`
	MetricsPath string                 `json:"metrics_path"`
	HistoryPath string                 `json:"history_path"`
}

// RunDocument is the persisted record of one run. The latest document is
// overwritten on every run, history documents never are.
type RunDocument struct {
	RunID        string                 `json:"run_id,omitempty"`
	ModelID      string                 `json:"model_id"`
	ModelName    string                 `json:"model_name"`
	ModelVersion string                 `json:"model_version"`
	TrainedAt    time.Time              `json:"trained_at"`
	Metrics      map[string]interface{} `json:"metrics"`
	Artifacts    map[string]interface{} `json:"artifacts"`
}

func (d *RunDocument) IsEmpty() bool {
	return d == nil || d.ModelID == ""
}
