package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jayascript1/menubot/internal/api/handler"
	"github.com/jayascript1/menubot/internal/api/middleware"
	"github.com/jayascript1/menubot/internal/config"
)

// Deps holds everything the router wires into handlers.
// Dishes, Batch and HealthChecks are optional.
type Deps struct {
	Scans        handler.ScanService
	Dishes       handler.DishSearcher
	Batch        handler.BatchRunner
	BatchRootDir string
	HealthChecks map[string]handler.HealthCheck
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps Deps, cfg config.ServerConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	if cfg.MaxUploadMB > 0 {
		r.MaxMultipartMemory = int64(cfg.MaxUploadMB) << 20
	}

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(deps.HealthChecks)
	scanHandler := handler.NewScanHandler(deps.Scans, cfg.MaxUploadMB)
	dishHandler := handler.NewDishHandler(deps.Dishes)
	toolHandler := handler.NewToolHandler(deps.Scans, deps.Dishes)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Scans
		v1.POST("/scans", scanHandler.CreateScan)
		v1.GET("/scans", scanHandler.ListScans)
		v1.GET("/scans/export", scanHandler.ExportScans)
		v1.GET("/scans/:id", scanHandler.GetScan)
		v1.DELETE("/scans/:id", scanHandler.DeleteScan)

		// Client-side extractions
		v1.POST("/analysis", scanHandler.Analyze)
		v1.POST("/analysis/validate", scanHandler.ValidateAnalysis)

		// Dishes
		v1.GET("/dishes/search", dishHandler.Search)

		// Assistant tool calls
		v1.GET("/tools", toolHandler.ListTools)
		v1.POST("/tools/call", toolHandler.CallTool)

		// Stats
		v1.GET("/stats", scanHandler.GetStats)

		if deps.Batch != nil && deps.BatchRootDir != "" {
			adminHandler := handler.NewAdminHandler(deps.Batch, deps.BatchRootDir)
			v1.POST("/admin/batch", adminHandler.TriggerBatch)
			v1.GET("/admin/batch/status", adminHandler.GetBatchStatus)
		}
	}

	return r
}
