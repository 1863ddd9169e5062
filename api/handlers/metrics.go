package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/OldStager01/workforce-ml/internal/metrics"
	"github.com/OldStager01/workforce-ml/pkg/config"
)

type MetricsHandler struct {
	metrics *metrics.Metrics
}

func NewMetricsHandler(m *metrics.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: m}
}

// Prometheus serves the text exposition of training and scheduler counters.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// LimitsFromConfig reads list limits, falling back to 20 and 200.
func LimitsFromConfig(cfg *config.APIConfig) Limits {
	l := Limits{Default: 20, Max: 200}
	if cfg == nil {
		return l
	}
	if cfg.DefaultLimit > 0 {
		l.Default = cfg.DefaultLimit
	}
	if cfg.MaxLimit > 0 {
		l.Max = cfg.MaxLimit
	}
	return l
}
