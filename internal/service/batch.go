package service

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jayascript1/menubot/internal/logger"
)

var menuPhotoExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

type imageAnalyzer interface {
	AnalyzeImage(ctx context.Context, req AnalyzeImageRequest) (*ScanResult, error)
}

// BatchService analyzes many menu photos through a worker pool.
type BatchService struct {
	analyzer imageAnalyzer
	workers  int
}

// NewBatchService creates a new batch service. workers < 1 means 1.
func NewBatchService(analyzer imageAnalyzer, workers int) *BatchService {
	if workers < 1 {
		workers = 1
	}
	return &BatchService{analyzer: analyzer, workers: workers}
}

// BatchOptions holds options for a batch run
type BatchOptions struct {
	HungerLevel string
	Force       bool // re-analyze photos that already have a completed scan
}

// BatchItemResult is the outcome for one photo.
type BatchItemResult struct {
	Path   string `json:"path"`
	ScanID string `json:"scan_id,omitempty"`
	Reused bool   `json:"reused,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchStats holds statistics for a batch run
type BatchStats struct {
	Total     int64             `json:"total"`
	Processed int64             `json:"processed"`
	Skipped   int64             `json:"skipped"`
	Failed    int64             `json:"failed"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Results   []BatchItemResult `json:"results"`
}

// AnalyzeDir analyzes every menu photo under dir, recursively.
func (s *BatchService) AnalyzeDir(ctx context.Context, dir string, opts *BatchOptions) (*BatchStats, error) {
	paths, err := listMenuPhotos(dir)
	if err != nil {
		return nil, err
	}
	return s.AnalyzeFiles(ctx, paths, opts)
}

// AnalyzeFiles analyzes the given photos concurrently.
// Parameters:
//   - ctx: context; cancelling it stops handing out new photos.
//   - paths: photo files to analyze.
//   - opts: hunger level and reuse policy; may be nil.
// Returns:
//   - *BatchStats: counters and per-photo results in input order.
//   - error: always nil today; per-photo failures are counted, not returned.
func (s *BatchService) AnalyzeFiles(ctx context.Context, paths []string, opts *BatchOptions) (*BatchStats, error) {
	if opts == nil {
		opts = &BatchOptions{}
	}

	stats := &BatchStats{
		Total:     int64(len(paths)),
		StartTime: time.Now(),
		Results:   make([]BatchItemResult, len(paths)),
	}

	ctx = logger.SetBatchID(ctx, uuid.New().String())
	logger.FromContext(ctx).WithFields(logger.Fields{
		"total":   len(paths),
		"workers": s.workers,
		"force":   opts.Force,
	}).Info("Starting batch analysis")

	jobs := make(chan int, s.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				res := s.analyzeOne(ctx, paths[idx], opts)
				stats.Results[idx] = res

				atomic.AddInt64(&stats.Processed, 1)
				switch {
				case res.Error != "":
					atomic.AddInt64(&stats.Failed, 1)
					logger.FromContext(ctx).WithFields(logger.Fields{
						logger.FieldImage: res.Path,
					}).WithField("error", res.Error).Error("Failed to analyze photo")
				case res.Reused:
					atomic.AddInt64(&stats.Skipped, 1)
				}
			}
		}()
	}

feed:
	for i := range paths {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}

	close(jobs)
	wg.Wait()

	stats.EndTime = time.Now()

	logger.FromContext(ctx).WithFields(logger.Fields{
		"total":     stats.Total,
		"processed": stats.Processed,
		"skipped":   stats.Skipped,
		"failed":    stats.Failed,
		"duration":  stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Batch analysis completed")

	return stats, nil
}

func (s *BatchService) analyzeOne(ctx context.Context, path string, opts *BatchOptions) BatchItemResult {
	res := BatchItemResult{Path: path}
	if ctx.Err() != nil {
		res.Error = ctx.Err().Error()
		return res
	}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Error = fmt.Sprintf("failed to read image: %v", err)
		return res
	}

	result, err := s.analyzer.AnalyzeImage(ctx, AnalyzeImageRequest{
		Image:       data,
		Filename:    filepath.Base(path),
		HungerLevel: opts.HungerLevel,
		Force:       opts.Force,
	})
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.ScanID = result.Scan.ID
	res.Reused = result.Reused
	return res
}

func listMenuPhotos(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if menuPhotoExts[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}
