package recommend

import "github.com/jayascript1/menubot/internal/domain"

// SumPrice totals the price of the items at indices.
// Out-of-range indices contribute nothing.
func SumPrice(items []domain.MenuItem, indices []int) float64 {
	var total float64
	for _, idx := range indices {
		if idx < 0 || idx >= len(items) {
			continue
		}
		total += finite(items[idx].Price)
	}
	return total
}

// SumMacros adds up calories and macros of the items at indices.
// Out-of-range indices contribute nothing.
func SumMacros(items []domain.MenuItem, indices []int) domain.MacroSummary {
	var sum domain.MacroSummary
	for _, idx := range indices {
		if idx < 0 || idx >= len(items) {
			continue
		}
		item := items[idx]
		sum.Add(domain.MenuItem{
			Calories: finite(item.Calories),
			ProteinG: finite(item.ProteinG),
			CarbsG:   finite(item.CarbsG),
			FatG:     finite(item.FatG),
		})
	}
	return sum
}
