package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ScanStatus represents the processing status of a menu scan.
// Values include ScanStatusPending, ScanStatusCompleted, and ScanStatusFailed.
type ScanStatus string

const (
	ScanStatusPending   ScanStatus = "pending"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// AnalysisColumn stores a validated Analysis as JSON in the database.
type AnalysisColumn Analysis

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded analysis.
//   - error: non-nil if marshaling fails.
func (a AnalysisColumn) Value() (driver.Value, error) {
	b, err := json.Marshal(Analysis(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *AnalysisColumn) Scan(value interface{}) error {
	if value == nil {
		*a = AnalysisColumn{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan AnalysisColumn")
		}
		bytes = []byte(str)
	}
	var decoded Analysis
	if err := json.Unmarshal(bytes, &decoded); err != nil {
		return err
	}
	*a = AnalysisColumn(decoded)
	return nil
}

// MenuScan is one photographed (or client-extracted) menu and the
// recommendation derived from it.
type MenuScan struct {
	ID             string         `gorm:"type:text;primaryKey" json:"id"`
	ImageKey       string         `gorm:"type:text" json:"image_key,omitempty"`
	ImageURL       string         `gorm:"type:text" json:"image_url,omitempty"`
	Format         string         `json:"format,omitempty"`
	Width          int            `json:"width,omitempty"`
	Height         int            `json:"height,omitempty"`
	MD5Hash        string         `gorm:"type:text;index:idx_scans_md5" json:"md5_hash,omitempty"`
	HungerLevel    string         `gorm:"type:text" json:"hunger_level"`
	Model          string         `gorm:"type:text" json:"model,omitempty"`
	Status         ScanStatus     `gorm:"type:text;index:idx_scans_status;default:pending" json:"status"`
	ItemCount      int            `json:"item_count"`
	Analysis       AnalysisColumn `gorm:"type:text" json:"analysis"`
	DietaryNotes   string         `gorm:"type:text" json:"dietary_notes"`
	BudgetStrategy string         `gorm:"type:text" json:"budget_strategy"`
	Explanation    string         `gorm:"type:text" json:"explanation"`
	SpeechKey      string         `gorm:"type:text" json:"speech_key,omitempty"`
	ErrorLog       string         `json:"error_log,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName returns the database table name for MenuScan.
func (MenuScan) TableName() string {
	return "menu_scans"
}
