package trainer

import (
	"context"
	"errors"
)

var (
	// ErrDataUnavailable means the source dataset was empty or could not be fetched.
	ErrDataUnavailable = errors.New("training data unavailable")
	// ErrInsufficientLabels means a class or horizon had too few examples to fit.
	ErrInsufficientLabels = errors.New("insufficient labels")
	// ErrTrainingFailure wraps any error raised while fitting or evaluating.
	ErrTrainingFailure = errors.New("training failed")
	// ErrArtifactMissing means no estimator has been persisted for the model yet.
	ErrArtifactMissing = errors.New("model artifact missing")

	ErrTrainingInProgress = errors.New("training already in progress")
)

// Kind maps an error to the short label used in metrics and run logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTrainingInProgress):
		return "in_progress"
	case errors.Is(err, ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, ErrInsufficientLabels):
		return "insufficient_labels"
	case errors.Is(err, ErrArtifactMissing):
		return "artifact_missing"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrTrainingFailure):
		return "training_failure"
	default:
		return "unknown"
	}
}

func isTaxonomy(err error) bool {
	return errors.Is(err, ErrDataUnavailable) ||
		errors.Is(err, ErrInsufficientLabels) ||
		errors.Is(err, ErrTrainingFailure) ||
		errors.Is(err, ErrArtifactMissing)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
