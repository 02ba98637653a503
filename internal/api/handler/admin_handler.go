package handler

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jayascript1/menubot/internal/logger"
	"github.com/jayascript1/menubot/internal/service"
)

// BatchRunner analyzes a directory of menu photos.
type BatchRunner interface {
	AnalyzeDir(ctx context.Context, dir string, opts *service.BatchOptions) (*service.BatchStats, error)
}

// AdminHandler handles admin operations.
type AdminHandler struct {
	runner  BatchRunner
	rootDir string

	// Batch job state
	mu            sync.RWMutex
	isRunning     bool
	currentStats  *service.BatchStats
	lastRunTime   time.Time
	lastRunStatus string
}

// NewAdminHandler creates a new admin handler.
// Parameters:
//   - runner: batch service.
//   - rootDir: directory that request paths are resolved under.
// Returns:
//   - *AdminHandler: initialized handler.
func NewAdminHandler(runner BatchRunner, rootDir string) *AdminHandler {
	return &AdminHandler{
		runner:  runner,
		rootDir: rootDir,
	}
}

// BatchRequest represents the batch API request.
type BatchRequest struct {
	Dir         string `json:"dir"`
	HungerLevel string `json:"hunger_level"`
	Force       bool   `json:"force"`
}

// BatchResponse represents the batch API response.
type BatchResponse struct {
	Message string              `json:"message"`
	Stats   *service.BatchStats `json:"stats,omitempty"`
}

// BatchStatusResponse represents the batch job status.
type BatchStatusResponse struct {
	IsRunning     bool                `json:"is_running"`
	LastRunTime   string              `json:"last_run_time,omitempty"`
	LastRunStatus string              `json:"last_run_status,omitempty"`
	CurrentStats  *service.BatchStats `json:"current_stats,omitempty"`
}

// TriggerBatch handles POST /api/v1/admin/batch.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AdminHandler) TriggerBatch(c *gin.Context) {
	ctx := c.Request.Context()

	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.CtxWarn(ctx, "Invalid batch request: client_ip=%s, error=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Request paths never escape rootDir.
	dir := filepath.Join(h.rootDir, filepath.Clean("/"+req.Dir))

	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		logger.CtxWarn(ctx, "Batch request rejected: already running, dir=%s", dir)
		c.JSON(http.StatusConflict, gin.H{"error": "Batch analysis is already running"})
		return
	}
	h.isRunning = true
	h.currentStats = nil
	h.mu.Unlock()

	logger.CtxInfo(ctx, "Starting batch analysis: dir=%s, hunger_level=%s, force=%v",
		dir, req.HungerLevel, req.Force)

	// Detached from the request so a client timeout does not abort the run.
	batchCtx := logger.FromContext(ctx).WithContext(context.Background())
	startTime := time.Now()
	stats, err := h.runner.AnalyzeDir(batchCtx, dir, &service.BatchOptions{
		HungerLevel: req.HungerLevel,
		Force:       req.Force,
	})
	duration := time.Since(startTime)

	h.mu.Lock()
	h.isRunning = false
	h.currentStats = stats
	h.lastRunTime = time.Now()
	if err != nil {
		h.lastRunStatus = "failed: " + err.Error()
	} else {
		h.lastRunStatus = "success"
	}
	h.mu.Unlock()

	if err != nil {
		logger.With(logger.Fields{
			logger.FieldDurationMs: duration.Milliseconds(),
		}).Error(ctx, "Batch analysis failed: dir=%s, error=%v", dir, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: duration.Milliseconds(),
		logger.FieldCount:      stats.Processed,
	}).Info(ctx, "Batch analysis completed: dir=%s, total=%d, skipped=%d, failed=%d",
		dir, stats.Total, stats.Skipped, stats.Failed)

	c.JSON(http.StatusOK, BatchResponse{
		Message: "Batch analysis completed",
		Stats:   stats,
	})
}

// GetBatchStatus handles GET /api/v1/admin/batch/status.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AdminHandler) GetBatchStatus(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := BatchStatusResponse{
		IsRunning:     h.isRunning,
		LastRunStatus: h.lastRunStatus,
		CurrentStats:  h.currentStats,
	}

	if !h.lastRunTime.IsZero() {
		resp.LastRunTime = h.lastRunTime.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}
