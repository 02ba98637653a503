package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jayascript1/menubot/internal/domain"
	"github.com/jayascript1/menubot/internal/logger"
	"github.com/jayascript1/menubot/internal/recommend"
	"github.com/jayascript1/menubot/internal/storage"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type menuExtractor interface {
	ExtractMenu(ctx context.Context, imageData []byte, format string, hunger recommend.HungerLevel) (string, error)
	GetModel() string
}

type scanStore interface {
	Create(ctx context.Context, scan *domain.MenuScan) error
	GetByID(ctx context.Context, id string) (*domain.MenuScan, error)
	GetLatestByMD5(ctx context.Context, md5Hash string) (*domain.MenuScan, error)
	List(ctx context.Context, limit, offset int) ([]domain.MenuScan, error)
	CountByStatus(ctx context.Context) (map[domain.ScanStatus]int64, error)
	CountImageRefs(ctx context.Context, md5Hash string) (int64, error)
	Delete(ctx context.Context, id string) error
}

type narrator interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type dishIndexer interface {
	IndexScan(ctx context.Context, scanID string, a domain.Analysis) error
	RemoveScan(ctx context.Context, scanID string) error
}

// AnalysisConfig holds the recommendation thresholds used by the pipeline.
type AnalysisConfig struct {
	Options recommend.Options
	TopN    int
}

// AnalysisService turns menu photos into persisted recommendations.
type AnalysisService struct {
	extractor menuExtractor
	scans     scanStore
	storage   storage.ObjectStorage
	speech    narrator
	index     dishIndexer
	opts      recommend.Options
	topN      int
}

// NewAnalysisService creates a new analysis service.
// Parameters:
//   - extractor: vision model client; may be nil when only raw analyses are accepted.
//   - scans: scan history store.
//   - objectStorage: photo and audio storage; may be nil to skip uploads.
//   - cfg: recommendation thresholds; nil means defaults.
// Returns:
//   - *AnalysisService: service without narration or dish indexing.
func NewAnalysisService(extractor menuExtractor, scans scanStore, objectStorage storage.ObjectStorage, cfg *AnalysisConfig) *AnalysisService {
	s := &AnalysisService{
		extractor: extractor,
		scans:     scans,
		storage:   objectStorage,
		opts:      recommend.DefaultOptions(),
		topN:      recommend.DefaultTopN,
	}
	if cfg != nil {
		s.opts = cfg.Options
		if cfg.TopN > 0 {
			s.topN = cfg.TopN
		}
	}
	return s
}

// SetNarrator enables spoken explanations.
func (s *AnalysisService) SetNarrator(n narrator) {
	s.speech = n
}

// SetDishIndexer enables indexing of analyzed dishes for search.
func (s *AnalysisService) SetDishIndexer(idx dishIndexer) {
	s.index = idx
}

// AnalyzeImageRequest is one menu photo to analyze.
type AnalyzeImageRequest struct {
	Image       []byte
	Filename    string
	HungerLevel string
	Force       bool // re-run extraction even if this exact photo was analyzed before
}

// ScanResult is a persisted scan plus its derived recommendation.
type ScanResult struct {
	Scan           *domain.MenuScan         `json:"scan"`
	Recommendation recommend.Recommendation `json:"recommendation"`
	ImageURL       string                   `json:"image_url,omitempty"`
	SpeechURL      string                   `json:"speech_url,omitempty"`
	Reused         bool                     `json:"reused"`
}

// ScanStats summarizes scan history.
type ScanStats struct {
	Total    int64                       `json:"total"`
	ByStatus map[domain.ScanStatus]int64 `json:"by_status"`
}

// AnalyzeImage runs the full photo pipeline.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: photo bytes, hunger level and reuse policy.
// Returns:
//   - *ScanResult: persisted scan and recommendation.
//   - error: ErrUnsupportedImage for bad payloads, or a wrapped extraction/persistence error.
func (s *AnalysisService) AnalyzeImage(ctx context.Context, req AnalyzeImageRequest) (*ScanResult, error) {
	if s.extractor == nil {
		return nil, ErrVisionUnavailable
	}

	info, err := InspectImage(req.Image)
	if err != nil {
		return nil, err
	}
	hunger := recommend.ParseHungerLevel(req.HungerLevel)

	if !req.Force {
		existing, err := s.scans.GetLatestByMD5(ctx, info.MD5Hash)
		if err == nil {
			logger.CtxInfo(ctx, "Reusing scan %s for identical photo", existing.ID)
			result := s.resultFor(existing, hunger)
			result.Reused = true
			return result, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check previous scans: %w", err)
		}
	}

	scanID := uuid.New().String()
	ctx = logger.SetScanID(ctx, scanID)
	start := time.Now()

	scan := &domain.MenuScan{
		ID:          scanID,
		Format:      info.Format,
		Width:       info.Width,
		Height:      info.Height,
		MD5Hash:     info.MD5Hash,
		HungerLevel: string(hunger),
		Model:       s.extractor.GetModel(),
		Status:      domain.ScanStatusPending,
	}

	// Extraction is the step most likely to fail, so it runs before anything is uploaded.
	reply, err := s.extractor.ExtractMenu(ctx, req.Image, info.Format, hunger)
	if err != nil {
		scan.Status = domain.ScanStatusFailed
		scan.ErrorLog = err.Error()
		if createErr := s.scans.Create(ctx, scan); createErr != nil {
			logger.FromContext(ctx).WithError(createErr).Error("Failed to record failed scan")
		}
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	analysis := recommend.ValidateWith(recommend.ParseRaw(reply), s.opts)
	rec := recommend.Build(analysis, hunger, s.topN, s.opts)
	fillScan(scan, analysis, rec)

	var uploaded []string
	if s.storage != nil {
		key := storage.MenuImageKey(info.MD5Hash, info.Format)
		exists, err := s.storage.Exists(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to check storage existence: %w", err)
		}
		if !exists {
			if err := s.storage.Upload(ctx, key, bytes.NewReader(req.Image), int64(len(req.Image)), getContentType(info.Format)); err != nil {
				return nil, fmt.Errorf("failed to upload menu photo: %w", err)
			}
			uploaded = append(uploaded, key)
		}
		scan.ImageKey = key
		scan.ImageURL = s.storage.GetURL(key)

		if speechKey := s.narrate(ctx, scanID, rec.Explanation); speechKey != "" {
			scan.SpeechKey = speechKey
			uploaded = append(uploaded, speechKey)
		}
	}

	if err := s.scans.Create(ctx, scan); err != nil {
		s.rollback(ctx, uploaded)
		return nil, fmt.Errorf("failed to save scan: %w", err)
	}

	s.indexDishes(ctx, scan.ID, analysis)

	logger.With(logger.Fields{"stage": "analyze", logger.FieldImage: req.Filename}).
		WithCount(len(analysis.Items)).
		WithSize(len(req.Image)).
		Since(start).
		Info(ctx, "Menu analyzed")

	return s.resultFor(scan, hunger), nil
}

// AnalyzeRaw validates an extraction produced elsewhere (for example on the
// client) and persists it as a completed scan.
// raw may be the model's reply text or an already decoded JSON value.
func (s *AnalysisService) AnalyzeRaw(ctx context.Context, raw interface{}, hungerLevel string) (*ScanResult, error) {
	if text, ok := raw.(string); ok {
		raw = recommend.ParseRaw(text)
	}
	hunger := recommend.ParseHungerLevel(hungerLevel)

	scanID := uuid.New().String()
	ctx = logger.SetScanID(ctx, scanID)

	analysis := recommend.ValidateWith(raw, s.opts)
	rec := recommend.Build(analysis, hunger, s.topN, s.opts)

	scan := &domain.MenuScan{
		ID:          scanID,
		HungerLevel: string(hunger),
		Model:       "client",
	}
	fillScan(scan, analysis, rec)

	var uploaded []string
	if s.storage != nil {
		if speechKey := s.narrate(ctx, scanID, rec.Explanation); speechKey != "" {
			scan.SpeechKey = speechKey
			uploaded = append(uploaded, speechKey)
		}
	}

	if err := s.scans.Create(ctx, scan); err != nil {
		s.rollback(ctx, uploaded)
		return nil, fmt.Errorf("failed to save scan: %w", err)
	}

	s.indexDishes(ctx, scan.ID, analysis)
	return s.resultFor(scan, hunger), nil
}

// Recommend derives the recommendation view of an analysis without persisting anything.
func (s *AnalysisService) Recommend(_ context.Context, a *domain.Analysis, hungerLevel string) recommend.Recommendation {
	if a == nil {
		a = &domain.Analysis{}
	}
	return recommend.Build(*a, recommend.ParseHungerLevel(hungerLevel), s.topN, s.opts)
}

// Validate repairs a raw extraction using the configured thresholds.
func (s *AnalysisService) Validate(raw interface{}) domain.Analysis {
	if text, ok := raw.(string); ok {
		raw = recommend.ParseRaw(text)
	}
	return recommend.ValidateWith(raw, s.opts)
}

// GetScan returns a stored scan with its recommendation rebuilt for the
// hunger level it was analyzed with.
func (s *AnalysisService) GetScan(ctx context.Context, id string) (*ScanResult, error) {
	scan, err := s.scans.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScanNotFound
		}
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return s.resultFor(scan, recommend.ParseHungerLevel(scan.HungerLevel)), nil
}

// ListScans returns scans newest first.
// limit is clamped to [1, 100]; zero or negative means 20.
func (s *AnalysisService) ListScans(ctx context.Context, limit, offset int) ([]domain.MenuScan, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	scans, err := s.scans.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return scans, nil
}

// DeleteScan removes a scan with its narration audio and indexed dishes.
// The photo is deleted only when no other scan references the same content.
// Cleanup of derived data is best effort; only the record deletion can fail
// the call.
func (s *AnalysisService) DeleteScan(ctx context.Context, id string) error {
	scan, err := s.scans.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScanNotFound
		}
		return fmt.Errorf("failed to get scan: %w", err)
	}

	if err := s.scans.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScanNotFound
		}
		return fmt.Errorf("failed to delete scan: %w", err)
	}

	ctx = logger.SetScanID(ctx, id)
	if s.index != nil {
		if err := s.index.RemoveScan(ctx, id); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to remove indexed dishes")
		}
	}

	if s.storage != nil {
		var keys []string
		if scan.SpeechKey != "" {
			keys = append(keys, scan.SpeechKey)
		}
		if scan.ImageKey != "" && scan.MD5Hash != "" {
			remaining, err := s.scans.CountImageRefs(ctx, scan.MD5Hash)
			if err != nil {
				logger.FromContext(ctx).WithError(err).Warn("Failed to count scans sharing the photo")
			} else if remaining == 0 {
				keys = append(keys, scan.ImageKey)
			}
		}
		s.rollback(ctx, keys)
	}

	logger.CtxInfo(ctx, "Scan deleted")
	return nil
}

// Stats counts scans by status.
func (s *AnalysisService) Stats(ctx context.Context) (*ScanStats, error) {
	counts, err := s.scans.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count scans: %w", err)
	}
	stats := &ScanStats{ByStatus: counts}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func (s *AnalysisService) resultFor(scan *domain.MenuScan, hunger recommend.HungerLevel) *ScanResult {
	result := &ScanResult{
		Scan:           scan,
		Recommendation: recommend.Build(domain.Analysis(scan.Analysis), hunger, s.topN, s.opts),
		ImageURL:       scan.ImageURL,
	}
	if scan.SpeechKey != "" && s.storage != nil {
		result.SpeechURL = s.storage.GetURL(scan.SpeechKey)
	}
	return result
}

// narrate synthesizes and stores the explanation audio, returning its key.
// Failures are logged and yield "" since narration is optional.
func (s *AnalysisService) narrate(ctx context.Context, scanID, text string) string {
	if s.speech == nil || text == "" {
		return ""
	}
	audio, err := s.speech.Synthesize(ctx, text)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to synthesize explanation")
		return ""
	}
	key := storage.SpeechKey(scanID)
	if err := s.storage.Upload(ctx, key, bytes.NewReader(audio), int64(len(audio)), "audio/mpeg"); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to upload explanation audio")
		return ""
	}
	return key
}

func (s *AnalysisService) indexDishes(ctx context.Context, scanID string, a domain.Analysis) {
	if s.index == nil || len(a.Items) == 0 {
		return
	}
	if err := s.index.IndexScan(ctx, scanID, a); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to index dishes")
	}
}

// rollback deletes stored objects, logging failures.
func (s *AnalysisService) rollback(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			logger.FromContext(ctx).WithFields(logger.Fields{
				"storage_key": key,
			}).WithError(err).Error("Failed to delete stored object")
		}
	}
}

func fillScan(scan *domain.MenuScan, a domain.Analysis, rec recommend.Recommendation) {
	scan.Status = domain.ScanStatusCompleted
	scan.ItemCount = len(a.Items)
	scan.Analysis = domain.AnalysisColumn(a)
	scan.DietaryNotes = rec.Summary.DietaryNotes
	scan.BudgetStrategy = rec.Summary.BudgetStrategy
	scan.Explanation = rec.Explanation
}
