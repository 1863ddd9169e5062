package handlers

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/workforce-ml/internal/scheduler"
	"github.com/OldStager01/workforce-ml/pkg/models"
	"github.com/OldStager01/workforce-ml/pkg/validation"
)

type ScheduleHandler struct {
	catalog   ModelCatalog
	schedules ScheduleManager
}

func NewScheduleHandler(catalog ModelCatalog, schedules ScheduleManager) *ScheduleHandler {
	return &ScheduleHandler{catalog: catalog, schedules: schedules}
}

// ScheduleRequest takes either a raw cron expression or a schedule config.
type ScheduleRequest struct {
	Cron string `json:"cron"`
	models.ScheduleConfig
}

// List godoc
// @Summary List schedules
// @Tags schedules
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]string "Scheduler disabled"
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	if h.unavailable(c) {
		return
	}
	state := h.schedules.State()
	jobs := make([]models.ScheduledJob, 0, len(state))
	for _, j := range state {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].ModelID < jobs[k].ModelID })
	c.JSON(http.StatusOK, gin.H{
		"schedules": jobs,
		"count":     len(jobs),
	})
}

// Put godoc
// @Summary Set a model schedule
// @Description Accepts a cron expression or a frequency config; frequency "manual" removes the schedule
// @Tags schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Model ID"
// @Param schedule body ScheduleRequest true "Schedule"
// @Success 200 {object} models.ModelInfo
// @Failure 400 {object} map[string]string "Invalid schedule"
// @Failure 404 {object} map[string]string "Unknown model"
// @Failure 503 {object} map[string]string "Scheduler disabled"
// @Router /models/{id}/schedule [put]
func (h *ScheduleHandler) Put(c *gin.Context) {
	if h.unavailable(c) {
		return
	}
	id := c.Param("id")
	if _, err := h.catalog.Get(id); err != nil {
		respondError(c, err)
		return
	}

	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	expr, scheduled, err := req.cron()
	if err != nil {
		respondError(c, err)
		return
	}
	if !scheduled {
		h.schedules.RemoveSchedule(id)
		h.respondInfo(c, id)
		return
	}

	if _, err := h.schedules.ScheduleModel(id, expr); err != nil {
		respondError(c, err)
		return
	}
	h.respondInfo(c, id)
}

// Delete godoc
// @Summary Remove a model schedule
// @Tags schedules
// @Security BearerAuth
// @Param id path string true "Model ID"
// @Success 204
// @Failure 404 {object} map[string]string "Unknown model"
// @Failure 503 {object} map[string]string "Scheduler disabled"
// @Router /models/{id}/schedule [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if h.unavailable(c) {
		return
	}
	id := c.Param("id")
	if _, err := h.catalog.Get(id); err != nil {
		respondError(c, err)
		return
	}
	h.schedules.RemoveSchedule(id)
	c.Status(http.StatusNoContent)
}

func (h *ScheduleHandler) respondInfo(c *gin.Context, id string) {
	info, err := h.catalog.Info(id, h.schedules.Schedule(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *ScheduleHandler) unavailable(c *gin.Context) bool {
	if h.schedules != nil {
		return false
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler is disabled"})
	return true
}

// cron resolves the request to an expression. ok is false for manual
// schedules.
func (r ScheduleRequest) cron() (string, bool, error) {
	if r.Cron != "" {
		expr, err := validation.NormalizeCron(r.Cron)
		if err != nil {
			return "", false, fmt.Errorf("%w: %v", scheduler.ErrInvalidSchedule, err)
		}
		return expr, true, nil
	}
	if r.Frequency == "" {
		return "", false, fmt.Errorf("%w: cron or frequency is required", models.ErrInvalidScheduleConfig)
	}
	return r.ScheduleConfig.ToCron()
}
