package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stemsi/physqgen-backend/internal/logger"
	"github.com/stemsi/physqgen-backend/internal/repository"
)

const metricsInterval = 7 * time.Second

// SystemHandler streams runtime, pool and queue metrics via SSE.
type SystemHandler struct {
	pool      *pgxpool.Pool
	progress  *repository.ProgressStore
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(pool *pgxpool.Pool, progress *repository.ProgressStore, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		progress:  progress,
		startTime: time.Now(),
		log:       logger.Component(log, "system_handler"),
	}
}

type systemMetrics struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`

	DBTotalConns    int32 `json:"db_total_conns"`
	DBAcquiredConns int32 `json:"db_acquired_conns"`
	DBIdleConns     int32 `json:"db_idle_conns"`

	// persistence backlog keyed by queue name
	Queues map[string]int64 `json:"queues"`
}

// SystemMetricsSSE godoc
// GET /api/v1/admin/system/metrics
func (h *SystemHandler) SystemMetricsSSE(c *gin.Context) {
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	h.writeMetrics(c, reqCtx)
	for {
		select {
		case <-reqCtx.Done():
			return
		case <-ticker.C:
			h.writeMetrics(c, reqCtx)
		}
	}
}

func (h *SystemHandler) writeMetrics(c *gin.Context, parent context.Context) {
	c.SSEvent("metrics", h.collect(parent))
	c.Writer.Flush()
}

func (h *SystemHandler) collect(parent context.Context) systemMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m := systemMetrics{
		Timestamp:  time.Now().Unix(),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  mem.HeapAlloc,
		HeapSys:    mem.HeapSys,
		NumGC:      mem.NumGC,
		GoVersion:  runtime.Version(),
		NumCPU:     runtime.NumCPU(),
	}

	if h.pool != nil {
		stat := h.pool.Stat()
		m.DBTotalConns = stat.TotalConns()
		m.DBAcquiredConns = stat.AcquiredConns()
		m.DBIdleConns = stat.IdleConns()
	}

	ctx, cancel := context.WithTimeout(parent, refreshTimeout)
	defer cancel()
	queues, err := h.progress.QueueLengths(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Queue length read failed")
	}
	m.Queues = queues
	return m
}
