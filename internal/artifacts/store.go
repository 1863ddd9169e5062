// Package artifacts persists fitted estimators and run documents on the
// local filesystem, keyed by model id.
//
// Layout:
//
//	{models_dir}/{model_id}/{version}.json
//	{metrics_dir}/{model_id}/latest.json
//	{metrics_dir}/{model_id}/history_20060102T150405.000Z.json
//	{metrics_dir}/{model_id}/history_20060102T150405.000Z_001.json
//
// Every write lands under its final name fully written or not at all.
package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/logger"
	"github.com/OldStager01/workforce-ml/pkg/jsonfile"
	"github.com/OldStager01/workforce-ml/pkg/models"
	"github.com/OldStager01/workforce-ml/pkg/validation"
)

var (
	ErrNotFound    = errors.New("artifact not found")
	ErrInvalidPath = errors.New("invalid artifact path component")
)

const (
	latestName    = "latest.json"
	historyPrefix = "history_"
	historyLayout = "20060102T150405.000Z"

	// bound on _NNN suffixes tried for one timestamp
	maxHistoryCollisions = 1000
)

type Store struct {
	modelsDir  string
	metricsDir string
}

func New(modelsDir, metricsDir string) *Store {
	return &Store{modelsDir: modelsDir, metricsDir: metricsDir}
}

// HistoryEntry names one history document.
type HistoryEntry struct {
	Name      string    `json:"name"`
	TrainedAt time.Time `json:"trained_at"`
}

func (s *Store) ModelPath(modelID, version string) (string, error) {
	if err := validation.ValidateModelID(modelID); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if err := validation.ValidateVersion(version); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	return filepath.Join(s.modelsDir, modelID, version+".json"), nil
}

func (s *Store) metricsPath(modelID string) (string, error) {
	if err := validation.ValidateModelID(modelID); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	return filepath.Join(s.metricsDir, modelID), nil
}

// PersistEstimator overwrites the artifact stored for (modelID, version).
func (s *Store) PersistEstimator(modelID, version string, est estimator.Estimator) (string, error) {
	path, err := s.ModelPath(modelID, version)
	if err != nil {
		return "", err
	}
	data, err := estimator.Marshal(est)
	if err != nil {
		return "", err
	}
	if err := jsonfile.WriteBytes(path, data); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Store) LoadEstimator(modelID, version string) (estimator.Estimator, error) {
	path, err := s.ModelPath(modelID, version)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, modelID, version)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return estimator.Unmarshal(data)
}

// HasEstimator reports whether an artifact exists for (modelID, version).
func (s *Store) HasEstimator(modelID, version string) bool {
	path, err := s.ModelPath(modelID, version)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// PersistRun replaces the latest document and adds a history document
// named after doc.TrainedAt. History documents are never overwritten: a
// second run stamped with the same millisecond gets a _NNN suffix, which
// keeps plain name order equal to write order.
func (s *Store) PersistRun(doc models.RunDocument) (latestPath, historyPath string, err error) {
	dir, err := s.metricsPath(doc.ModelID)
	if err != nil {
		return "", "", err
	}

	trainedAt := doc.TrainedAt.UTC()
	base := historyPrefix + trainedAt.Format(historyLayout)
	for n := 0; n < maxHistoryCollisions; n++ {
		name := base + ".json"
		if n > 0 {
			name = fmt.Sprintf("%s_%03d.json", base, n)
		}
		historyPath = filepath.Join(dir, name)
		err = jsonfile.Create(historyPath, doc)
		if err == nil {
			break
		}
		if !errors.Is(err, jsonfile.ErrExists) {
			return "", "", err
		}
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to allocate history document for %s: %w", doc.ModelID, err)
	}

	latestPath = filepath.Join(dir, latestName)
	if err := jsonfile.Write(latestPath, doc); err != nil {
		return "", historyPath, err
	}
	return latestPath, historyPath, nil
}

// ReadLatest returns nil, nil when the model has never been trained.
func (s *Store) ReadLatest(modelID string) (*models.RunDocument, error) {
	dir, err := s.metricsPath(modelID)
	if err != nil {
		return nil, err
	}
	var doc models.RunDocument
	found, err := jsonfile.Read(filepath.Join(dir, latestName), &doc)
	if err != nil || !found {
		return nil, err
	}
	return &doc, nil
}

// ListHistory returns history entries newest first.
func (s *Store) ListHistory(modelID string) ([]HistoryEntry, error) {
	dir, err := s.metricsPath(modelID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var out []HistoryEntry
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || validation.ValidateHistoryName(name) != nil {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, historyPrefix), ".json")
		if i := strings.IndexByte(stamp, '_'); i >= 0 {
			stamp = stamp[:i]
		}
		trainedAt, err := time.Parse(historyLayout, stamp)
		if err != nil {
			logger.WithModel(modelID).Warnf("Ignoring history document %s: %v", name, err)
			continue
		}
		out = append(out, HistoryEntry{Name: name, TrainedAt: trainedAt})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

func (s *Store) ReadHistory(modelID, name string) (*models.RunDocument, error) {
	dir, err := s.metricsPath(modelID)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateHistoryName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	var doc models.RunDocument
	found, err := jsonfile.Read(filepath.Join(dir, name), &doc)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, modelID, name)
	}
	return &doc, nil
}
