package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/natheelic/iot-device-hub/internal/api/websocket"
	"github.com/natheelic/iot-device-hub/internal/types"
	"go.uber.org/zap"
)

// POST /api/v1/telemetry
// Accepts any JSON object. Missing or malformed optional fields never
// reject the submission; only a broken request body (400) or a store
// failure (500) does.
func (s *Server) submitTelemetry(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("TELEMETRY_400", "Invalid request body", err.Error()))
		return
	}

	id, err := s.store.InsertTelemetry(c.Request.Context(), payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("TELEMETRY_500", "Failed to store telemetry", err.Error()))
		return
	}

	reading := types.ExtractReading(payload)
	s.wsHub.Broadcast(websocket.NewMessage(websocket.MessageTypeTelemetryReading, websocket.TelemetryData{
		ID:       id,
		DeviceID: reading.DeviceID,
		Payload:  payload,
	}))

	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"id":       id,
		"received": payload,
	})
}

// GET /api/v1/telemetry?limit=&device_id=
func (s *Server) listTelemetry(c *gin.Context) {
	limit := s.cfg.Ingest.DefaultQueryLimit

	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse("TELEMETRY_400", "limit must be a positive integer", raw))
			return
		}
		limit = parsed
	}
	if max := s.cfg.Ingest.MaxQueryLimit; max > 0 && limit > max {
		limit = max
	}

	deviceID := c.Query("device_id")

	records, err := s.store.ListTelemetry(c.Request.Context(), limit, deviceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("TELEMETRY_500", "Failed to query telemetry", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(records),
		"data":  records,
	})
}

// GET /api/v1/telemetry/latest
func (s *Server) latestTelemetry(c *gin.Context) {
	record, err := s.store.LatestTelemetry(c.Request.Context())
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, types.NewErrorResponse("TELEMETRY_404", "No telemetry recorded yet", nil))
			return
		}
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("TELEMETRY_500", "Failed to query telemetry", err.Error()))
		return
	}

	c.JSON(http.StatusOK, record)
}

// POST /api/v1/submissions
func (s *Server) submitText(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("SUBMISSION_400", "Invalid request body", err.Error()))
		return
	}

	id, err := s.store.InsertSubmission(c.Request.Context(), req.Content, c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("SUBMISSION_500", "Failed to store submission", err.Error()))
		return
	}

	s.logger.Info("Text submission stored",
		zap.Int64("id", id),
		zap.String("remote_addr", c.ClientIP()))

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"id":     id,
	})
}
