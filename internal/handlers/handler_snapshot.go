package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/SscSPs/portfolio_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

type snapshotHandler struct {
	snapshotService portssvc.SnapshotSvc
}

// RegisterSnapshotRoutes registers daily snapshot routes.
func RegisterSnapshotRoutes(rg *gin.RouterGroup, snapshotService portssvc.SnapshotSvc) {
	h := &snapshotHandler{snapshotService: snapshotService}

	snaps := rg.Group("/snapshots")
	{
		snaps.POST("/today", h.createTodaySnapshot)
		snaps.GET("/preview", h.previewSnapshot)
		snaps.GET("", h.listSnapshots)
		snaps.GET("/:date", h.getSnapshot)
	}
}

// createTodaySnapshot godoc
// @Summary Create or replace today's snapshot
// @Description Values the whole portfolio in USD and the user's base currency and stores it under today's UTC date. Repeated calls replace the stored snapshot.
// @Tags snapshots
// @Produce  json
// @Success 200 {object} dto.SnapshotResponse
// @Failure 503 {object} map[string]string "Base currency rate unavailable"
// @Security BearerAuth
// @Router /snapshots/today [post]
func (h *snapshotHandler) createTodaySnapshot(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Received request to snapshot portfolio", slog.String("user_id", userID))

	snap, err := h.snapshotService.CreateOrReplaceTodaySnapshot(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "create snapshot")
		return
	}
	c.JSON(http.StatusOK, dto.ToSnapshotResponse(snap))
}

// previewSnapshot godoc
// @Summary Preview today's snapshot without storing it
// @Tags snapshots
// @Produce  json
// @Success 200 {object} dto.SnapshotResponse
// @Failure 503 {object} map[string]string "Base currency rate unavailable"
// @Security BearerAuth
// @Router /snapshots/preview [get]
func (h *snapshotHandler) previewSnapshot(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	snap, err := h.snapshotService.BuildSnapshot(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "build snapshot")
		return
	}
	c.JSON(http.StatusOK, dto.ToSnapshotResponse(snap))
}

// listSnapshots godoc
// @Summary List stored snapshots
// @Tags snapshots
// @Produce  json
// @Param   from query string false "First date, YYYY-MM-DD"
// @Param   to query string false "Last date, YYYY-MM-DD"
// @Success 200 {array} dto.SnapshotResponse
// @Failure 400 {object} map[string]string "Invalid date"
// @Security BearerAuth
// @Router /snapshots [get]
func (h *snapshotHandler) listSnapshots(c *gin.Context) {
	var params dto.ListSnapshotsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	snaps, err := h.snapshotService.ListSnapshots(c.Request.Context(), userID, params.From, params.To)
	if err != nil {
		respondError(c, err, "list snapshots")
		return
	}
	c.JSON(http.StatusOK, dto.ToSnapshotResponses(snaps))
}

// getSnapshot godoc
// @Summary Get the snapshot of one day
// @Tags snapshots
// @Produce  json
// @Param   date path string true "Snapshot date, YYYY-MM-DD"
// @Success 200 {object} dto.SnapshotResponse
// @Failure 404 {object} map[string]string "No snapshot for that date"
// @Security BearerAuth
// @Router /snapshots/{date} [get]
func (h *snapshotHandler) getSnapshot(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	snap, err := h.snapshotService.GetSnapshot(c.Request.Context(), userID, c.Param("date"))
	if err != nil {
		respondError(c, err, "get snapshot")
		return
	}
	c.JSON(http.StatusOK, dto.ToSnapshotResponse(snap))
}
