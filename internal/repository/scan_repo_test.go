package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jayascript1/menubot/internal/config"
	"github.com/jayascript1/menubot/internal/domain"
	"gorm.io/gorm"
)

func newTestScanRepo(t *testing.T) *ScanRepository {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "scans.db"),
		MaxOpenConns: 1,
	}, false)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewScanRepository(db)
}

func seedScans(t *testing.T, repo *ScanRepository, scans ...*domain.MenuScan) {
	t.Helper()
	for _, s := range scans {
		if err := repo.Create(context.Background(), s); err != nil {
			t.Fatalf("Create %s failed: %v", s.ID, err)
		}
	}
}

func TestScanRepository_GetLatestByMD5(t *testing.T) {
	repo := newTestScanRepo(t)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	seedScans(t, repo,
		&domain.MenuScan{ID: "old", MD5Hash: "abc", Status: domain.ScanStatusCompleted, CreatedAt: base},
		&domain.MenuScan{ID: "new", MD5Hash: "abc", Status: domain.ScanStatusCompleted, CreatedAt: base.Add(time.Hour)},
		&domain.MenuScan{ID: "failed", MD5Hash: "abc", Status: domain.ScanStatusFailed, CreatedAt: base.Add(2 * time.Hour)},
		&domain.MenuScan{ID: "other", MD5Hash: "def", Status: domain.ScanStatusCompleted, CreatedAt: base.Add(3 * time.Hour)},
	)

	tests := []struct {
		name    string
		md5     string
		wantID  string
		wantErr error
	}{
		{name: "newest completed wins over newer failed", md5: "abc", wantID: "new"},
		{name: "other hash", md5: "def", wantID: "other"},
		{name: "unknown hash", md5: "zzz", wantErr: gorm.ErrRecordNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetLatestByMD5(context.Background(), tt.md5)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("expected scan %s, got %s", tt.wantID, got.ID)
			}
		})
	}
}

func TestScanRepository_ListAndCountByStatus(t *testing.T) {
	repo := newTestScanRepo(t)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	seedScans(t, repo,
		&domain.MenuScan{ID: "a", Status: domain.ScanStatusCompleted, CreatedAt: base},
		&domain.MenuScan{ID: "b", Status: domain.ScanStatusFailed, CreatedAt: base.Add(time.Minute)},
		&domain.MenuScan{ID: "c", Status: domain.ScanStatusCompleted, CreatedAt: base.Add(2 * time.Minute)},
	)

	list, err := repo.List(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "b" {
		t.Errorf("expected [c b] newest first, got %v", list)
	}

	counts, err := repo.CountByStatus(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if counts[domain.ScanStatusCompleted] != 2 || counts[domain.ScanStatusFailed] != 1 || len(counts) != 2 {
		t.Errorf("unexpected counts %v", counts)
	}
}

func TestScanRepository_CountImageRefs(t *testing.T) {
	repo := newTestScanRepo(t)
	seedScans(t, repo,
		&domain.MenuScan{ID: "failed", MD5Hash: "abc", Status: domain.ScanStatusFailed},
		&domain.MenuScan{ID: "stored", MD5Hash: "abc", ImageKey: "menus/ab/abc.png", Status: domain.ScanStatusCompleted},
	)

	n, err := repo.CountImageRefs(context.Background(), "abc")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 scan holding the photo, got %d", n)
	}

	if err := repo.Delete(context.Background(), "stored"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n, _ := repo.CountImageRefs(context.Background(), "abc"); n != 0 {
		t.Errorf("expected failed scan not to hold the photo, got %d", n)
	}
}

func TestScanRepository_Delete(t *testing.T) {
	repo := newTestScanRepo(t)
	seedScans(t, repo, &domain.MenuScan{
		ID:       "scan-1",
		Status:   domain.ScanStatusCompleted,
		Analysis: domain.AnalysisColumn{Items: []domain.MenuItem{{Name: "Soup", Price: 4.5}}},
	})

	got, err := repo.GetByID(context.Background(), "scan-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got.Analysis.Items) != 1 || got.Analysis.Items[0].Name != "Soup" {
		t.Errorf("expected analysis column to round trip, got %+v", got.Analysis)
	}

	if err := repo.Delete(context.Background(), "scan-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), "scan-1"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound after delete, got %v", err)
	}
	if err := repo.Delete(context.Background(), "scan-1"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound deleting twice, got %v", err)
	}
}
