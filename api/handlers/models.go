package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/workforce-ml/internal/artifacts"
	"github.com/OldStager01/workforce-ml/internal/trainer"
	"github.com/OldStager01/workforce-ml/pkg/models"
)

// ModelCatalog is the registry as seen by the API.
type ModelCatalog interface {
	IDs() []string
	Get(id string) (*trainer.Trainer, error)
	Info(id string, job *models.ScheduledJob) (models.ModelInfo, error)
}

// ScheduleManager is the scheduler as seen by the API.
type ScheduleManager interface {
	State() map[string]models.ScheduledJob
	Schedule(id string) *models.ScheduledJob
	ScheduleModel(id, cron string) (models.ScheduledJob, error)
	RemoveSchedule(id string)
}

type Limits struct {
	Default int
	Max     int
}

func (l Limits) parse(c *gin.Context) int {
	limit := l.Default
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if l.Max > 0 && limit > l.Max {
		limit = l.Max
	}
	return limit
}

type ModelHandler struct {
	catalog   ModelCatalog
	schedules ScheduleManager
	limits    Limits
}

func NewModelHandler(catalog ModelCatalog, schedules ScheduleManager, limits Limits) *ModelHandler {
	return &ModelHandler{
		catalog:   catalog,
		schedules: schedules,
		limits:    limits,
	}
}

func (h *ModelHandler) job(id string) *models.ScheduledJob {
	if h.schedules == nil {
		return nil
	}
	return h.schedules.Schedule(id)
}

// List godoc
// @Summary List models
// @Description Returns every registered model with its latest run and schedule
// @Tags models
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of models"
// @Failure 401 {object} map[string]string "User not authenticated"
// @Router /models [get]
func (h *ModelHandler) List(c *gin.Context) {
	ids := h.catalog.IDs()
	out := make([]models.ModelInfo, 0, len(ids))
	for _, id := range ids {
		info, err := h.catalog.Info(id, h.job(id))
		if err != nil {
			respondError(c, err)
			return
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, gin.H{
		"models": out,
		"count":  len(out),
	})
}

// Get godoc
// @Summary Get a model
// @Tags models
// @Produce json
// @Security BearerAuth
// @Param id path string true "Model ID"
// @Success 200 {object} models.ModelInfo
// @Failure 404 {object} map[string]string "Unknown model"
// @Router /models/{id} [get]
func (h *ModelHandler) Get(c *gin.Context) {
	id := c.Param("id")
	info, err := h.catalog.Info(id, h.job(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Train runs training synchronously. The optional JSON body holds
// hyperparameters.
//
// @Summary Train a model
// @Tags models
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Model ID"
// @Param params body map[string]interface{} false "Hyperparameters"
// @Success 200 {object} models.TrainingResult
// @Failure 400 {object} map[string]string "Invalid hyperparameters"
// @Failure 404 {object} map[string]string "Unknown model"
// @Failure 409 {object} map[string]string "Training already in progress"
// @Failure 422 {object} map[string]string "Training data unavailable"
// @Failure 429 {object} map[string]interface{} "Rate limit exceeded"
// @Router /models/{id}/train [post]
func (h *ModelHandler) Train(c *gin.Context) {
	t, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	params, err := decodeParams(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hyperparameters must be a JSON object"})
		return
	}

	// a client disconnect must not abort a run halfway through persisting
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := t.Train(ctx, params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func decodeParams(body io.Reader) (trainer.Params, error) {
	params := trainer.Params{}
	if body == nil {
		return params, nil
	}
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil {
		if errors.Is(err, io.EOF) {
			return trainer.Params{}, nil
		}
		return nil, err
	}
	return params, nil
}

// History godoc
// @Summary List run history
// @Tags models
// @Produce json
// @Security BearerAuth
// @Param id path string true "Model ID"
// @Param limit query int false "Maximum number of entries"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Unknown model"
// @Router /models/{id}/history [get]
func (h *ModelHandler) History(c *gin.Context) {
	id := c.Param("id")
	t, err := h.catalog.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}

	entries, err := t.History(h.limits.parse(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []artifacts.HistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"model_id": id,
		"history":  entries,
		"count":    len(entries),
	})
}

// HistoryDocument godoc
// @Summary Get a history document
// @Tags models
// @Produce json
// @Security BearerAuth
// @Param id path string true "Model ID"
// @Param name path string true "History file name"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid name"
// @Failure 404 {object} map[string]string "Document not found"
// @Router /models/{id}/history/{name} [get]
func (h *ModelHandler) HistoryDocument(c *gin.Context) {
	t, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	doc, err := t.HistoryDocument(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Latest returns the most recent run document, 404 before the first run.
//
// @Summary Get the latest run document
// @Tags models
// @Produce json
// @Security BearerAuth
// @Param id path string true "Model ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Not trained yet"
// @Router /models/{id}/latest [get]
func (h *ModelHandler) Latest(c *gin.Context) {
	id := c.Param("id")
	t, err := h.catalog.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	doc := t.LatestSummary()
	if doc.IsEmpty() {
		c.JSON(http.StatusNotFound, gin.H{"error": "model has not been trained yet", "model_id": id})
		return
	}
	c.JSON(http.StatusOK, doc)
}
