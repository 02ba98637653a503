// Package export renders stored menu scans as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/jayascript1/menubot/internal/domain"
	"github.com/jayascript1/menubot/internal/recommend"
	"github.com/xuri/excelize/v2"
)

const (
	// ScansSheet lists one row per scan.
	ScansSheet = "Scans"
	// DishesSheet lists one row per extracted dish.
	DishesSheet = "Dishes"

	// ContentType is the MIME type of the produced workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var scanHeaders = []interface{}{
	"Scan ID", "Created", "Status", "Hunger level", "Model", "Items",
	"Dietary notes", "Budget strategy", "Explanation", "Image URL", "Error",
}

var dishHeaders = []interface{}{
	"Scan ID", "Item", "Name", "Description", "Price", "Calories",
	"Protein (g)", "Carbs (g)", "Fat (g)", "Health score", "Health rank",
}

// Workbook builds a two-sheet workbook from scans.
// Parameters:
//   - scans: scans to export, written in the given order.
// Returns:
//   - *excelize.File: workbook; the caller closes it.
//   - error: non-nil if a cell cannot be written.
func Workbook(scans []domain.MenuScan) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ScansSheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(DishesSheet); err != nil {
		_ = f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := writeScans(f, scans, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeDishes(f, scans, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}

	_ = f.SetColWidth(ScansSheet, "A", "A", 38)
	_ = f.SetColWidth(ScansSheet, "G", "I", 50)
	_ = f.SetColWidth(DishesSheet, "A", "A", 38)
	_ = f.SetColWidth(DishesSheet, "C", "D", 30)

	return f, nil
}

// Write builds the workbook for scans and writes it to w.
func Write(w io.Writer, scans []domain.MenuScan) error {
	f, err := Workbook(scans)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeScans(f *excelize.File, scans []domain.MenuScan, headerStyle int) error {
	if err := setRow(f, ScansSheet, 1, scanHeaders); err != nil {
		return err
	}
	if err := f.SetRowStyle(ScansSheet, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, s := range scans {
		row := []interface{}{
			s.ID,
			s.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			string(s.Status),
			s.HungerLevel,
			s.Model,
			s.ItemCount,
			s.DietaryNotes,
			s.BudgetStrategy,
			s.Explanation,
			s.ImageURL,
			s.ErrorLog,
		}
		if err := setRow(f, ScansSheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeDishes(f *excelize.File, scans []domain.MenuScan, headerStyle int) error {
	if err := setRow(f, DishesSheet, 1, dishHeaders); err != nil {
		return err
	}
	if err := f.SetRowStyle(DishesSheet, 1, 1, headerStyle); err != nil {
		return err
	}

	next := 2
	for _, s := range scans {
		a := domain.Analysis(s.Analysis)

		position := make(map[int]int, len(a.HealthRank))
		for pos, idx := range a.HealthRank {
			position[idx] = pos + 1
		}

		for idx, item := range a.Items {
			var rank interface{} = ""
			if p, ok := position[idx]; ok {
				rank = p
			}
			row := []interface{}{
				s.ID,
				idx,
				item.Name,
				item.Description,
				item.Price,
				item.Calories,
				item.ProteinG,
				item.CarbsG,
				item.FatG,
				recommend.Score(item),
				rank,
			}
			if err := setRow(f, DishesSheet, next, row); err != nil {
				return err
			}
			next++
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
