package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/physqgen-backend/internal/logger"
	"github.com/stemsi/physqgen-backend/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second
)

// MonitorHandler streams live submission progress to the admin console.
type MonitorHandler struct {
	adminService *service.AdminService
	log          zerolog.Logger
}

func NewMonitorHandler(adminService *service.AdminService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		adminService: adminService,
		log:          logger.Component(log, "monitor_handler"),
	}
}

// MonitorSSE godoc
// GET /api/v1/admin/monitor
// Sends a summary event, then one event per processed submission.
func (h *MonitorHandler) MonitorSSE(c *gin.Context) {
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	h.sendSummary(c, reqCtx, "snapshot")

	pubsub := h.adminService.SubscribeProgress(reqCtx)
	defer pubsub.Close()
	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()
	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	// skip summary queries while nobody is submitting
	dirty := false

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	h.log.Info().Msg("Admin attached to live monitor")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Admin detached from live monitor")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// already JSON
			writeSSEData(c, []byte(msg.Payload))
			dirty = true

		case <-refreshTicker.C:
			if !dirty {
				continue
			}
			h.sendSummary(c, reqCtx, "refresh")
			dirty = false

		case <-keepAliveTicker.C:
			writeSSEData(c, pingPayload)
		}
	}
}

func (h *MonitorHandler) sendSummary(c *gin.Context, parent context.Context, eventType string) {
	ctx, cancel := context.WithTimeout(parent, refreshTimeout)
	defer cancel()

	summary, err := h.adminService.GetDashboard(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Monitor summary query failed")
		return
	}

	payload, err := json.Marshal(map[string]any{
		"type":    eventType,
		"summary": summary,
	})
	if err != nil {
		return
	}
	writeSSEData(c, payload)
}

func writeSSEData(c *gin.Context, payload []byte) {
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(payload)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
