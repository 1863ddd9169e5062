package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/workforce-ml/internal/artifacts"
	"github.com/OldStager01/workforce-ml/internal/logger"
	"github.com/OldStager01/workforce-ml/internal/registry"
	"github.com/OldStager01/workforce-ml/internal/scheduler"
	"github.com/OldStager01/workforce-ml/internal/trainer"
	"github.com/OldStager01/workforce-ml/pkg/database/queries"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrUnknownModel),
		errors.Is(err, trainer.ErrArtifactMissing),
		errors.Is(err, artifacts.ErrNotFound),
		errors.Is(err, queries.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, trainer.ErrDataUnavailable),
		errors.Is(err, trainer.ErrInsufficientLabels):
		return http.StatusUnprocessableEntity
	case errors.Is(err, trainer.ErrTrainingInProgress):
		return http.StatusConflict
	case errors.Is(err, scheduler.ErrInvalidSchedule),
		errors.Is(err, models.ErrInvalidScheduleConfig),
		errors.Is(err, artifacts.ErrInvalidPath):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes the error body. Errors outside the training taxonomy
// that map to 500 are logged and their detail is withheld.
func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	body := gin.H{"error": err.Error()}
	kind := trainer.Kind(err)
	if kind != "unknown" {
		body["kind"] = kind
	} else if status == http.StatusInternalServerError {
		logger.ErrorCtxf(c.Request.Context(), "Request failed: %v", err)
		body["error"] = "internal error"
	}
	c.JSON(status, body)
}
