package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jayascript1/menubot/internal/app"
	"github.com/jayascript1/menubot/internal/config"
	"github.com/jayascript1/menubot/internal/domain"
	"github.com/jayascript1/menubot/internal/export"
	"github.com/jayascript1/menubot/internal/logger"
	"github.com/jayascript1/menubot/internal/recommend"
	"github.com/jayascript1/menubot/internal/service"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "menubot-analyze",
	})
	logger.SetDefaultLogger(appLogger)

	dir := flag.String("dir", "", "Directory of menu photos to analyze")
	image := flag.String("image", "", "Single menu photo to analyze")
	raw := flag.String("raw", "", "Extractor JSON reply to validate offline (no services needed)")
	hunger := flag.String("hunger", "moderate", "Hunger level: light, moderate or very")
	workers := flag.Int("workers", 0, "Worker count (0 uses batch.workers from config)")
	force := flag.Bool("force", false, "Re-analyze photos that already have a completed scan")
	xlsxPath := flag.String("xlsx", "", "Also write the resulting scans to this XLSX file")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	if *raw != "" {
		if err := printOffline(*raw, *hunger, cfg); err != nil {
			appLogger.WithError(err).Fatal("Failed to validate raw analysis")
		}
		return
	}

	if *dir == "" && *image == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logger.SetComponent(ctx, "analyze")

	a, err := app.New(ctx, cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize services")
	}
	defer a.Close()

	opts := &service.BatchOptions{HungerLevel: *hunger, Force: *force}

	var stats *service.BatchStats
	if *image != "" {
		stats, err = a.Batch.AnalyzeFiles(ctx, []string{*image}, opts)
	} else {
		stats, err = a.Batch.AnalyzeDir(ctx, *dir, opts)
	}
	if err != nil {
		appLogger.WithError(err).Fatal("Batch analysis failed")
	}

	appLogger.WithFields(logger.Fields{
		"total":     stats.Total,
		"processed": stats.Processed,
		"skipped":   stats.Skipped,
		"failed":    stats.Failed,
		"duration":  stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Analysis completed")

	if err := writeJSON(stats.Results); err != nil {
		appLogger.WithError(err).Error("Failed to print results")
	}
	if *xlsxPath != "" {
		if err := writeWorkbook(ctx, a.Analysis, stats.Results, *xlsxPath); err != nil {
			appLogger.WithError(err).Error("Failed to write workbook")
		} else {
			appLogger.WithField("path", *xlsxPath).Info("Workbook written")
		}
	}
	if stats.Failed > 0 {
		os.Exit(1)
	}
}

// printOffline validates an extractor reply from disk and prints the
// validated analysis with its recommendation.
func printOffline(path, hunger string, cfg *config.Config) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	opts := recommend.Options{
		CalorieTolerance: cfg.Recommend.CalorieTolerance,
		BudgetLimit:      cfg.Recommend.BudgetLimit,
		MidRangeLimit:    cfg.Recommend.MidRangeLimit,
	}
	analysis := recommend.ValidateWith(recommend.ParseRaw(string(data)), opts)
	rec := recommend.Build(analysis, recommend.ParseHungerLevel(hunger), cfg.Recommend.TopN, opts)

	return writeJSON(map[string]interface{}{
		"analysis":       analysis,
		"recommendation": rec,
	})
}

// writeWorkbook exports the scans produced by a batch run.
func writeWorkbook(ctx context.Context, analysis *service.AnalysisService, results []service.BatchItemResult, path string) error {
	scans := make([]domain.MenuScan, 0, len(results))
	for _, r := range results {
		if r.ScanID == "" {
			continue
		}
		res, err := analysis.GetScan(ctx, r.ScanID)
		if err != nil {
			return fmt.Errorf("failed to load scan %s: %w", r.ScanID, err)
		}
		scans = append(scans, *res.Scan)
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := export.Write(f, scans); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
