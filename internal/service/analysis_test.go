package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/jayascript1/menubot/internal/domain"
	"github.com/jayascript1/menubot/internal/recommend"
	"gorm.io/gorm"
)

const menuReply = "```json\n" + `{
  "items": [
    {"name": "Grilled Chicken Salad", "description": "greens, lemon", "price": 12.5, "calories": 420, "protein_g": 38, "carbs_g": 20, "fat_g": 18},
    {"name": "Double Bacon Burger", "price": 15, "calories": 1100, "protein_g": 50, "carbs_g": 60, "fat_g": 70}
  ],
  "health_rank": [0, 1],
  "combos": [{"title": "Light lunch", "item_indices": [0], "rationale": "Lean protein."}],
  "notes": "Prices before tax."
}` + "\n```"

type fakeExtractor struct {
	reply  string
	err    error
	calls  int
	hunger recommend.HungerLevel
}

func (f *fakeExtractor) ExtractMenu(_ context.Context, _ []byte, _ string, hunger recommend.HungerLevel) (string, error) {
	f.calls++
	f.hunger = hunger
	return f.reply, f.err
}

func (f *fakeExtractor) GetModel() string { return "fake-vlm" }

type fakeScanStore struct {
	mu        sync.Mutex
	scans     []*domain.MenuScan
	createErr error
}

func (f *fakeScanStore) Create(_ context.Context, scan *domain.MenuScan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil && scan.Status == domain.ScanStatusCompleted {
		return f.createErr
	}
	f.scans = append(f.scans, scan)
	return nil
}

func (f *fakeScanStore) GetByID(_ context.Context, id string) (*domain.MenuScan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.scans {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeScanStore) GetLatestByMD5(_ context.Context, md5Hash string) (*domain.MenuScan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.scans) - 1; i >= 0; i-- {
		if f.scans[i].MD5Hash == md5Hash && f.scans[i].Status == domain.ScanStatusCompleted {
			return f.scans[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeScanStore) List(_ context.Context, limit, offset int) ([]domain.MenuScan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.MenuScan{}
	for i := len(f.scans) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, *f.scans[i])
	}
	return out, nil
}

func (f *fakeScanStore) CountByStatus(_ context.Context) (map[domain.ScanStatus]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[domain.ScanStatus]int64{}
	for _, s := range f.scans {
		counts[s.Status]++
	}
	return counts, nil
}

func (f *fakeScanStore) CountImageRefs(_ context.Context, md5Hash string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.scans {
		if s.MD5Hash == md5Hash && s.ImageKey != "" {
			n++
		}
	}
	return n, nil
}

func (f *fakeScanStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.scans {
		if s.ID == id {
			f.scans = append(f.scans[:i], f.scans[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeObjectStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: map[string][]byte{}}
}

func (f *fakeObjectStorage) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (f *fakeObjectStorage) GetURL(key string) string { return "https://cdn.test/" + key }

func (f *fakeObjectStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjectStorage) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeObjectStorage) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type fakeNarrator struct {
	text string
	err  error
}

func (f *fakeNarrator) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.text = text
	if f.err != nil {
		return nil, f.err
	}
	return []byte("mp3"), nil
}

type fakeIndexer struct {
	scanIDs []string
	removed []string
}

func (f *fakeIndexer) RemoveScan(_ context.Context, scanID string) error {
	f.removed = append(f.removed, scanID)
	return nil
}

func (f *fakeIndexer) IndexScan(_ context.Context, scanID string, _ domain.Analysis) error {
	f.scanIDs = append(f.scanIDs, scanID)
	return errors.New("qdrant down")
}

func TestAnalysisService_AnalyzeImage(t *testing.T) {
	extractor := &fakeExtractor{reply: menuReply}
	scans := &fakeScanStore{}
	store := newFakeObjectStorage()
	narr := &fakeNarrator{}
	idx := &fakeIndexer{}

	svc := NewAnalysisService(extractor, scans, store, nil)
	svc.SetNarrator(narr)
	svc.SetDishIndexer(idx)

	photo := encodeTestImage(t, "png", 8, 6)
	result, err := svc.AnalyzeImage(context.Background(), AnalyzeImageRequest{Image: photo, HungerLevel: "Very hungry"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	scan := result.Scan
	if scan.Status != domain.ScanStatusCompleted || scan.ItemCount != 2 {
		t.Errorf("unexpected scan status/count %s/%d", scan.Status, scan.ItemCount)
	}
	if scan.HungerLevel != "very" || extractor.hunger != recommend.HungerVery {
		t.Errorf("expected hunger level very, got %q/%q", scan.HungerLevel, extractor.hunger)
	}
	if scan.Format != "png" || scan.Width != 8 || scan.Height != 6 || scan.Model != "fake-vlm" {
		t.Errorf("unexpected image metadata %+v", scan)
	}
	if !strings.HasPrefix(scan.ImageKey, "menus/") || result.ImageURL != "https://cdn.test/"+scan.ImageKey {
		t.Errorf("unexpected image key/url %q/%q", scan.ImageKey, result.ImageURL)
	}
	if scan.SpeechKey != "speech/"+scan.ID+".mp3" || result.SpeechURL == "" {
		t.Errorf("unexpected speech key %q", scan.SpeechKey)
	}
	if narr.text != scan.Explanation || scan.Explanation == "" {
		t.Errorf("expected narrator to read the explanation, got %q", narr.text)
	}
	if len(result.Recommendation.TopItems) != 2 || result.Recommendation.TopItems[0].Name != "Grilled Chicken Salad" {
		t.Errorf("unexpected top items %+v", result.Recommendation.TopItems)
	}
	if result.Recommendation.Summary.BudgetStrategy != scan.BudgetStrategy {
		t.Error("expected stored budget strategy to match the recommendation")
	}
	if len(idx.scanIDs) != 1 || idx.scanIDs[0] != scan.ID {
		t.Errorf("expected dishes indexed once, got %v", idx.scanIDs)
	}
	if len(store.keys()) != 2 {
		t.Errorf("expected photo and audio stored, got %v", store.keys())
	}

	// Same photo again reuses the completed scan.
	again, err := svc.AnalyzeImage(context.Background(), AnalyzeImageRequest{Image: photo, HungerLevel: "light"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !again.Reused || again.Scan.ID != scan.ID || extractor.calls != 1 {
		t.Errorf("expected reuse of %s without extraction, got %+v (calls=%d)", scan.ID, again.Scan, extractor.calls)
	}

	forced, err := svc.AnalyzeImage(context.Background(), AnalyzeImageRequest{Image: photo, Force: true})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if forced.Reused || forced.Scan.ID == scan.ID || extractor.calls != 2 {
		t.Errorf("expected forced re-extraction, got reused=%v calls=%d", forced.Reused, extractor.calls)
	}
}

func TestAnalysisService_AnalyzeImageErrors(t *testing.T) {
	photo := encodeTestImage(t, "jpeg", 4, 4)

	t.Run("unsupported image", func(t *testing.T) {
		svc := NewAnalysisService(&fakeExtractor{reply: menuReply}, &fakeScanStore{}, nil, nil)
		_, err := svc.AnalyzeImage(context.Background(), AnalyzeImageRequest{Image: []byte("text")})
		if !errors.Is(err, ErrUnsupportedImage) {
			t.Errorf("expected ErrUnsupportedImage, got %v", err)
		}
	})

	t.Run("extraction failure records failed scan", func(t *testing.T) {
		scans := &fakeScanStore{}
		store := newFakeObjectStorage()
		cause := errors.New("timeout")
		svc := NewAnalysisService(&fakeExtractor{err: cause}, scans, store, nil)
		_, err := svc.AnalyzeImage(context.Background(), AnalyzeImageRequest{Image: photo})
		if !errors.Is(err, ErrExtractionFailed) || !errors.Is(err, cause) {
			t.Fatalf("expected ErrExtractionFailed wrapping the cause, got %v", err)
		}
		if len(scans.scans) != 1 || scans.scans[0].Status != domain.ScanStatusFailed || scans.scans[0].ErrorLog != "timeout" {
			t.Errorf("expected one failed scan, got %+v", scans.scans)
		}
		if len(store.keys()) != 0 {
			t.Errorf("expected nothing uploaded, got %v", store.keys())
		}
	})

	t.Run("persistence failure rolls back uploads", func(t *testing.T) {
		scans := &fakeScanStore{createErr: errors.New("disk full")}
		store := newFakeObjectStorage()
		svc := NewAnalysisService(&fakeExtractor{reply: menuReply}, scans, store, nil)
		svc.SetNarrator(&fakeNarrator{})
		if _, err := svc.AnalyzeImage(context.Background(), AnalyzeImageRequest{Image: photo}); err == nil {
			t.Fatal("expected error, got nil")
		}
		if len(store.keys()) != 0 || len(store.deleted) != 2 {
			t.Errorf("expected photo and audio rolled back, left %v deleted %v", store.keys(), store.deleted)
		}
	})

	t.Run("narration failure is not fatal", func(t *testing.T) {
		svc := NewAnalysisService(&fakeExtractor{reply: menuReply}, &fakeScanStore{}, newFakeObjectStorage(), nil)
		svc.SetNarrator(&fakeNarrator{err: errors.New("tts down")})
		result, err := svc.AnalyzeImage(context.Background(), AnalyzeImageRequest{Image: photo})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Scan.SpeechKey != "" || result.SpeechURL != "" {
			t.Errorf("expected no speech, got %q", result.Scan.SpeechKey)
		}
	})

	t.Run("no extractor", func(t *testing.T) {
		svc := NewAnalysisService(nil, &fakeScanStore{}, nil, nil)
		if _, err := svc.AnalyzeImage(context.Background(), AnalyzeImageRequest{Image: photo}); err == nil {
			t.Error("expected error without a vision model")
		}
	})
}

func TestAnalysisService_AnalyzeRaw(t *testing.T) {
	tests := []struct {
		name      string
		raw       interface{}
		wantItems int
	}{
		{name: "reply text", raw: menuReply, wantItems: 2},
		{name: "decoded object", raw: map[string]interface{}{"items": []interface{}{map[string]interface{}{"name": "Soup", "price": "4.50"}}}, wantItems: 1},
		{name: "garbage", raw: 42.0, wantItems: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scans := &fakeScanStore{}
			svc := NewAnalysisService(nil, scans, nil, nil)
			result, err := svc.AnalyzeRaw(context.Background(), tt.raw, "moderate")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.Scan.ItemCount != tt.wantItems {
				t.Errorf("expected %d items, got %d", tt.wantItems, result.Scan.ItemCount)
			}
			if result.Scan.Model != "client" || len(scans.scans) != 1 {
				t.Errorf("expected one client scan stored, got %+v", scans.scans)
			}
			if result.Recommendation.Explanation == "" {
				t.Error("expected an explanation")
			}
		})
	}
}

func TestAnalysisService_History(t *testing.T) {
	scans := &fakeScanStore{}
	svc := NewAnalysisService(nil, scans, nil, &AnalysisConfig{Options: recommend.DefaultOptions(), TopN: 1})

	first, err := svc.AnalyzeRaw(context.Background(), menuReply, "light")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(first.Recommendation.TopItems) != 1 {
		t.Errorf("expected TopN of 1, got %d", len(first.Recommendation.TopItems))
	}
	scans.scans = append(scans.scans, &domain.MenuScan{ID: "failed-1", Status: domain.ScanStatusFailed})

	got, err := svc.GetScan(context.Background(), first.Scan.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Recommendation.Explanation != first.Recommendation.Explanation {
		t.Error("expected rebuilt recommendation to match the original")
	}

	if _, err := svc.GetScan(context.Background(), "missing"); !errors.Is(err, ErrScanNotFound) {
		t.Errorf("expected ErrScanNotFound, got %v", err)
	}

	list, err := svc.ListScans(context.Background(), 0, -5)
	if err != nil || len(list) != 2 || list[0].ID != "failed-1" {
		t.Errorf("expected newest-first list of 2, got %v, %v", list, err)
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if stats.Total != 2 || stats.ByStatus[domain.ScanStatusFailed] != 1 || stats.ByStatus[domain.ScanStatusCompleted] != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestAnalysisService_Recommend(t *testing.T) {
	svc := NewAnalysisService(nil, &fakeScanStore{}, nil, nil)
	if rec := svc.Recommend(context.Background(), nil, "light"); rec.Summary.DietaryNotes != recommend.NoDietaryData {
		t.Errorf("expected empty-menu notes, got %q", rec.Summary.DietaryNotes)
	}

	a := svc.Validate(menuReply)
	rec := svc.Recommend(context.Background(), &a, "moderate")
	if len(rec.Pairings) != 1 || rec.Pairings[0].TotalPrice != 12.5 {
		t.Errorf("unexpected pairings %+v", rec.Pairings)
	}
}

func TestAnalysisService_DeleteScan(t *testing.T) {
	scans := &fakeScanStore{}
	store := newFakeObjectStorage()
	idx := &fakeIndexer{}
	svc := NewAnalysisService(&fakeExtractor{reply: menuReply}, scans, store, nil)
	svc.SetNarrator(&fakeNarrator{})
	svc.SetDishIndexer(idx)

	photo := encodeTestImage(t, "png", 5, 5)
	first, err := svc.AnalyzeImage(context.Background(), AnalyzeImageRequest{Image: photo})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := svc.AnalyzeImage(context.Background(), AnalyzeImageRequest{Image: photo, Force: true})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	imageKey := first.Scan.ImageKey

	if err := svc.DeleteScan(context.Background(), first.Scan.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := svc.GetScan(context.Background(), first.Scan.ID); !errors.Is(err, ErrScanNotFound) {
		t.Errorf("expected deleted scan to be gone, got %v", err)
	}
	if len(idx.removed) != 1 || idx.removed[0] != first.Scan.ID {
		t.Errorf("expected indexed dishes removed, got %v", idx.removed)
	}
	if ok, _ := store.Exists(context.Background(), first.Scan.SpeechKey); ok {
		t.Error("expected narration audio deleted")
	}
	if ok, _ := store.Exists(context.Background(), imageKey); !ok {
		t.Error("expected shared photo kept while another scan references it")
	}

	if err := svc.DeleteScan(context.Background(), second.Scan.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok, _ := store.Exists(context.Background(), imageKey); ok {
		t.Error("expected photo deleted with its last scan")
	}

	if err := svc.DeleteScan(context.Background(), "missing"); !errors.Is(err, ErrScanNotFound) {
		t.Errorf("expected ErrScanNotFound, got %v", err)
	}
}

func TestAnalysisService_DeleteScanAfterFailedAttempt(t *testing.T) {
	scans := &fakeScanStore{}
	store := newFakeObjectStorage()
	extractor := &fakeExtractor{err: errors.New("timeout")}
	svc := NewAnalysisService(extractor, scans, store, nil)

	photo := encodeTestImage(t, "png", 7, 3)
	if _, err := svc.AnalyzeImage(context.Background(), AnalyzeImageRequest{Image: photo}); err == nil {
		t.Fatal("expected first attempt to fail")
	}

	extractor.err = nil
	extractor.reply = menuReply
	retry, err := svc.AnalyzeImage(context.Background(), AnalyzeImageRequest{Image: photo})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(scans.scans) != 2 {
		t.Fatalf("expected failed and completed scans recorded, got %d", len(scans.scans))
	}

	if err := svc.DeleteScan(context.Background(), retry.Scan.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if keys := store.keys(); len(keys) != 0 {
		t.Errorf("expected photo deleted with the only scan that stored it, got %v", keys)
	}
}
