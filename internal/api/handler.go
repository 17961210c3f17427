// Package api implements the HTTP API over the crawl orchestrator and
// the record store.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/bidwatch/internal/domain"
	"github.com/jonesrussell/bidwatch/internal/logger"
	"github.com/jonesrussell/bidwatch/internal/store"
)

// CrawlController is the orchestrator surface the API needs: trigger a
// run and poll its status.
type CrawlController interface {
	Start(ctx context.Context) (accepted bool, reason string)
	Status() domain.CrawlRun
}

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	controller CrawlController
	store      store.Interface
	logger     logger.Interface
}

// NewHandler creates a handler over controller and st.
func NewHandler(controller CrawlController, st store.Interface, log logger.Interface) *Handler {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Handler{
		controller: controller,
		store:      st,
		logger:     log.WithComponent("api"),
	}
}

// StartCrawl handles POST /api/v1/crawl.
func (h *Handler) StartCrawl(c *gin.Context) {
	accepted, reason := h.controller.Start(c.Request.Context())
	if !accepted {
		c.JSON(http.StatusConflict, gin.H{
			"accepted": false,
			"reason":   reason,
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"accepted": true,
		"run":      h.controller.Status(),
	})
}

// CrawlStatus handles GET /api/v1/crawl/status.
func (h *Handler) CrawlStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.Status())
}

// ListBids handles GET /api/v1/bids.
func (h *Handler) ListBids(c *gin.Context) {
	status := c.DefaultQuery("status", store.StatusAll)
	if status != store.StatusAll && !domain.ValidStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown status filter: " + status,
		})
		return
	}

	bids, err := h.store.GetAllBids(c.Request.Context(), status)
	if err != nil {
		h.logger.Error("failed to list bids", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to retrieve bids",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bids":  bids,
		"count": len(bids),
	})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateBidStatus handles PATCH /api/v1/bids/:id/status.
func (h *Handler) UpdateBidStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	id := c.Param("id")
	err := h.store.UpdateBidStatus(c.Request.Context(), id, req.Status)
	switch {
	case errors.Is(err, store.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + req.Status})
	case errors.Is(err, store.ErrBidNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "bid not found: " + id})
	case err != nil:
		h.logger.Error("failed to update bid status",
			"id", id, "status", req.Status, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update bid"})
	default:
		c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
	}
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.store.GetStats(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to compute stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to compute stats",
		})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
