package repository

import (
	"context"

	"github.com/jayascript1/menubot/internal/domain"
	"gorm.io/gorm"
)

// ScanRepository persists menu scans.
type ScanRepository struct {
	db *gorm.DB
}

// NewScanRepository creates a new ScanRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ScanRepository: repository instance bound to db.
func NewScanRepository(db *gorm.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Create inserts a new scan record.
func (r *ScanRepository) Create(ctx context.Context, scan *domain.MenuScan) error {
	return r.db.WithContext(ctx).Create(scan).Error
}

// Delete removes a scan by ID.
// Returns gorm.ErrRecordNotFound if no row was deleted.
func (r *ScanRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.MenuScan{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountImageRefs returns how many scans still point at the stored photo
// with this hash. Failed scans record the hash but no image key, so they
// are not counted.
func (r *ScanRepository) CountImageRefs(ctx context.Context, md5Hash string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.MenuScan{}).
		Where("md5_hash = ? AND image_key <> ''", md5Hash).
		Count(&count).Error
	return count, err
}

// GetByID retrieves a scan by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: scan ID.
// Returns:
//   - *domain.MenuScan: scan record if found.
//   - error: gorm.ErrRecordNotFound if no scan has this ID.
func (r *ScanRepository) GetByID(ctx context.Context, id string) (*domain.MenuScan, error) {
	var scan domain.MenuScan
	if err := r.db.WithContext(ctx).First(&scan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}

// GetLatestByMD5 returns the newest completed scan of an identical photo.
func (r *ScanRepository) GetLatestByMD5(ctx context.Context, md5Hash string) (*domain.MenuScan, error) {
	var scan domain.MenuScan
	err := r.db.WithContext(ctx).
		Where("md5_hash = ? AND status = ?", md5Hash, domain.ScanStatusCompleted).
		Order("created_at DESC").
		First(&scan).Error
	if err != nil {
		return nil, err
	}
	return &scan, nil
}

// List retrieves scans newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.MenuScan: page of scans.
//   - error: non-nil if the query fails.
func (r *ScanRepository) List(ctx context.Context, limit, offset int) ([]domain.MenuScan, error) {
	var scans []domain.MenuScan
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&scans).Error; err != nil {
		return nil, err
	}
	return scans, nil
}

// CountByStatus returns the number of scans in each status.
func (r *ScanRepository) CountByStatus(ctx context.Context) (map[domain.ScanStatus]int64, error) {
	var rows []struct {
		Status domain.ScanStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&domain.MenuScan{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[domain.ScanStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
