package handlers

import (
	"net/http"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

type metricsHandler struct {
	metricsService portssvc.MetricsSvc
}

// RegisterMetricsRoutes registers the PnL and performance routes.
func RegisterMetricsRoutes(rg *gin.RouterGroup, metricsService portssvc.MetricsSvc) {
	h := &metricsHandler{metricsService: metricsService}

	rg.GET("/metrics", h.getMetrics)
	rg.GET("/performance", h.getPerformance)
}

// getMetrics godoc
// @Summary Portfolio metrics
// @Description Total value, daily PnL, cash-flow adjusted PnL and total invested. The cash-flow day is taken in the given IANA timezone.
// @Tags metrics
// @Produce  json
// @Param   timezone query string false "IANA timezone (default UTC)"
// @Success 200 {object} dto.MetricsResponse
// @Failure 400 {object} map[string]string "Unknown timezone"
// @Failure 503 {object} map[string]string "Base currency rate unavailable"
// @Security BearerAuth
// @Router /metrics [get]
func (h *metricsHandler) getMetrics(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	loc := time.UTC
	if tz := c.Query("timezone"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation error", "fields": gin.H{"timezone": "unknown timezone " + tz}})
			return
		}
		loc = l
	}

	m, err := h.metricsService.GetPortfolioMetrics(c.Request.Context(), userID, loc)
	if err != nil {
		respondError(c, err, "compute metrics")
		return
	}
	c.JSON(http.StatusOK, dto.ToMetricsResponse(m))
}

// getPerformance godoc
// @Summary Portfolio value series
// @Description Downsampled from stored snapshots; each point is the last snapshot of its period.
// @Tags metrics
// @Produce  json
// @Param   range query string false "1D, 1W, 1M, 1Y or ALL (default 1M)"
// @Param   interval query string false "day, week or month (default day)"
// @Success 200 {array} dto.PerformancePointResponse
// @Failure 400 {object} map[string]string "Invalid range or interval"
// @Security BearerAuth
// @Router /performance [get]
func (h *metricsHandler) getPerformance(c *gin.Context) {
	var params dto.PerformanceParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	points, err := h.metricsService.GetPerformance(c.Request.Context(), userID,
		domain.PerformanceRange(params.Range), domain.PerformanceInterval(params.Interval))
	if err != nil {
		respondError(c, err, "compute performance")
		return
	}
	c.JSON(http.StatusOK, dto.ToPerformanceResponses(points))
}
