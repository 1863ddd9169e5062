package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/OldStager01/workforce-ml/pkg/database/queries"
)

// RunLog reads the database record of training runs.
type RunLog interface {
	GetByModel(ctx context.Context, modelID string, limit int) ([]queries.TrainingRunRecord, error)
	GetByID(ctx context.Context, id string) (*queries.TrainingRunRecord, error)
}

type RunHandler struct {
	catalog ModelCatalog
	runs    RunLog
	limits  Limits
}

func NewRunHandler(catalog ModelCatalog, runs RunLog, limits Limits) *RunHandler {
	return &RunHandler{catalog: catalog, runs: runs, limits: limits}
}

// List godoc
// @Summary List recorded training runs
// @Description Returns the database run log of a model, newest first
// @Tags runs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Model ID"
// @Param limit query int false "Maximum number of runs"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /models/{id}/runs [get]
func (h *RunHandler) List(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run log requires the database"})
		return
	}
	id := c.Param("id")
	if _, err := h.catalog.Get(id); err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	runs, err := h.runs.GetByModel(ctx, id, h.limits.parse(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if runs == nil {
		runs = []queries.TrainingRunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"model_id": id,
		"runs":     runs,
		"count":    len(runs),
	})
}

// Get godoc
// @Summary Get one recorded training run
// @Tags runs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Model ID"
// @Param run_id path string true "Run ID"
// @Success 200 {object} queries.TrainingRunRecord
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /models/{id}/runs/{run_id} [get]
func (h *RunHandler) Get(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run log requires the database"})
		return
	}
	id := c.Param("id")
	if _, err := h.catalog.Get(id); err != nil {
		respondError(c, err)
		return
	}
	runID := c.Param("run_id")
	if _, err := uuid.Parse(runID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id must be a UUID"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	run, err := h.runs.GetByID(ctx, runID)
	if err != nil {
		respondError(c, err)
		return
	}
	// ids are global; a run of another model is reported as absent
	if run.ModelID != id {
		respondError(c, fmt.Errorf("%w: %s for model %s", queries.ErrRunNotFound, runID, id))
		return
	}
	c.JSON(http.StatusOK, run)
}
