package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/streamroute/event-analytics-platform/internal/dto"
	"github.com/streamroute/event-analytics-platform/internal/metastore"
	"github.com/streamroute/event-analytics-platform/internal/service"
)

type Handler struct {
	eventService service.EventServicer
	router       *gin.Engine
	log          *zap.Logger
}

func NewHandler(eventService service.EventServicer, log *zap.Logger) *Handler {
	h := &Handler{
		eventService: eventService,
		router:       gin.Default(),
		log:          log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.POST("/events", h.storeEvent)
	h.router.POST("/events/batch", h.storeEventsBatch)
	h.router.POST("/events/bulk", h.storeEventsBulk)
	h.router.POST("/collections", h.createCollection)
	h.router.GET("/metrics", h.getMetrics)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// storeEvent handles POST /events
func (h *Handler) storeEvent(c *gin.Context) {
	var req dto.StoreEventRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid event request",
			zap.Error(err),
			zap.String("project", req.Project),
			zap.String("collection", req.Collection))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	if err := h.eventService.ProcessEvent(c.Request.Context(), &req); err != nil {
		h.writeServiceError(c, err, "Failed to process event",
			zap.String("project", req.Project),
			zap.String("collection", req.Collection))
		return
	}

	h.log.Info("Event accepted",
		zap.String("project", req.Project),
		zap.String("collection", req.Collection))

	c.JSON(http.StatusAccepted, dto.StoreEventResponse{
		Status: "accepted",
	})
}

// storeEventsBatch handles POST /events/batch
func (h *Handler) storeEventsBatch(c *gin.Context) {
	var req dto.StoreEventsBatchRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid batch event request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	response, err := h.eventService.ProcessBatchEvents(c.Request.Context(), &req)
	if err != nil {
		h.writeServiceError(c, err, "Failed to process batch events",
			zap.Int("event_count", len(req.Events)))
		return
	}

	h.log.Info("Batch events processed",
		zap.Int("accepted", response.Accepted),
		zap.Int("failed", len(response.Failed)),
		zap.Int("total", len(req.Events)))

	c.JSON(http.StatusAccepted, response)
}

// storeEventsBulk handles POST /events/bulk
func (h *Handler) storeEventsBulk(c *gin.Context) {
	var req dto.StoreEventsBulkRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid bulk event request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	response, err := h.eventService.ProcessBulkEvents(c.Request.Context(), &req)
	if err != nil {
		h.writeServiceError(c, err, "Failed to process bulk events",
			zap.String("project", req.Project),
			zap.Int("event_count", len(req.Events)))
		return
	}

	h.log.Info("Bulk events processed",
		zap.String("project", req.Project),
		zap.Int("accepted", response.Accepted))

	c.JSON(http.StatusAccepted, response)
}

// createCollection handles POST /collections
func (h *Handler) createCollection(c *gin.Context) {
	var req dto.CreateCollectionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid collection request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	if err := h.eventService.CreateCollection(c.Request.Context(), &req); err != nil {
		h.writeServiceError(c, err, "Failed to create collection",
			zap.String("project", req.Project),
			zap.String("collection", req.Collection))
		return
	}

	h.log.Info("Collection created",
		zap.String("project", req.Project),
		zap.String("collection", req.Collection),
		zap.Int("field_count", len(req.Fields)))

	c.JSON(http.StatusCreated, dto.CreateCollectionResponse{
		Status: "created",
	})
}

// getMetrics handles GET /metrics
func (h *Handler) getMetrics(c *gin.Context) {
	var req dto.GetMetricsRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid metrics request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	response, err := h.eventService.GetMetrics(c.Request.Context(), &req)
	if err != nil {
		h.writeServiceError(c, err, "Failed to get metrics",
			zap.String("project", req.Project),
			zap.String("collection", req.Collection),
			zap.Int64("from", req.From),
			zap.Int64("to", req.To))
		return
	}

	h.log.Info("Metrics retrieved",
		zap.String("project", req.Project),
		zap.String("collection", req.Collection),
		zap.Uint64("total_count", response.TotalCount),
		zap.Uint64("unique_count", response.UniqueCount))

	c.JSON(http.StatusOK, response)
}

// writeServiceError maps service errors to HTTP responses
func (h *Handler) writeServiceError(c *gin.Context, err error, msg string, fields ...zap.Field) {
	if errors.Is(err, metastore.ErrCollectionNotFound) {
		h.log.Warn(msg, append(fields, zap.Error(err))...)
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "collection_not_found",
			Message: err.Error(),
		})
		return
	}

	h.log.Error(msg, append(fields, zap.Error(err))...)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error:   "internal_error",
		Message: err.Error(),
	})
}
