package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jayascript1/menubot/internal/domain"
	"github.com/jayascript1/menubot/internal/export"
	"github.com/jayascript1/menubot/internal/logger"
	"github.com/jayascript1/menubot/internal/service"
)

// ScanService is the part of the analysis pipeline the HTTP layer needs.
type ScanService interface {
	AnalyzeImage(ctx context.Context, req service.AnalyzeImageRequest) (*service.ScanResult, error)
	AnalyzeRaw(ctx context.Context, raw interface{}, hungerLevel string) (*service.ScanResult, error)
	Validate(raw interface{}) domain.Analysis
	GetScan(ctx context.Context, id string) (*service.ScanResult, error)
	DeleteScan(ctx context.Context, id string) error
	ListScans(ctx context.Context, limit, offset int) ([]domain.MenuScan, error)
	Stats(ctx context.Context) (*service.ScanStats, error)
}

// ScanHandler handles menu scan endpoints.
type ScanHandler struct {
	svc            ScanService
	maxUploadBytes int64
}

// NewScanHandler creates a new scan handler.
// Parameters:
//   - svc: analysis service.
//   - maxUploadMB: largest accepted photo; <= 0 means 10 MB.
// Returns:
//   - *ScanHandler: initialized handler.
func NewScanHandler(svc ScanService, maxUploadMB int) *ScanHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &ScanHandler{svc: svc, maxUploadBytes: int64(maxUploadMB) << 20}
}

// CreateScan handles POST /api/v1/scans.
// Expects multipart form fields image (file), hunger_level and force.
func (h *ScanHandler) CreateScan(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Form file 'image' is required"})
		return
	}
	if file.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image is too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image: " + err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image: " + err.Error()})
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image is too large"})
		return
	}

	force, _ := strconv.ParseBool(c.PostForm("force"))
	ctx := logger.WithField(c.Request.Context(), logger.FieldImage, file.Filename)

	result, err := h.svc.AnalyzeImage(ctx, service.AnalyzeImageRequest{
		Image:       data,
		Filename:    file.Filename,
		HungerLevel: c.PostForm("hunger_level"),
		Force:       force,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Reused {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// ListScans handles GET /api/v1/scans.
func (h *ScanHandler) ListScans(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	scans, err := h.svc.ListScans(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scans":  scans,
		"count":  len(scans),
		"offset": offset,
	})
}

// GetScan handles GET /api/v1/scans/:id.
func (h *ScanHandler) GetScan(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Scan ID is required"})
		return
	}

	result, err := h.svc.GetScan(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// DeleteScan handles DELETE /api/v1/scans/:id.
func (h *ScanHandler) DeleteScan(c *gin.Context) {
	if err := h.svc.DeleteScan(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportScans handles GET /api/v1/scans/export.
// Streams the requested page of scans as an XLSX workbook.
func (h *ScanHandler) ExportScans(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	scans, err := h.svc.ListScans(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	f, err := export.Workbook(scans)
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("menu-scans-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Header("Content-Type", export.ContentType)
	c.Status(http.StatusOK)

	if err := f.Write(c.Writer); err != nil {
		logger.CtxWarn(c.Request.Context(), "Failed to write export: %v", err)
	}
}

// GetStats handles GET /api/v1/stats.
func (h *ScanHandler) GetStats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// AnalyzeRequest is the body of POST /api/v1/analysis.
type AnalyzeRequest struct {
	Raw         interface{} `json:"raw"`
	HungerLevel string      `json:"hunger_level"`
}

// Analyze handles POST /api/v1/analysis for menus extracted on the client.
func (h *ScanHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	// Only a missing raw is rejected; zero values validate to an empty menu.
	if req.Raw == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: raw is required"})
		return
	}

	result, err := h.svc.AnalyzeRaw(c.Request.Context(), req.Raw, req.HungerLevel)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ValidateAnalysis handles POST /api/v1/analysis/validate.
// The body is the extractor output as-is, fenced or not; nothing is persisted.
func (h *ScanHandler) ValidateAnalysis(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.svc.Validate(string(body)))
}
