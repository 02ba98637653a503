package recommend

import (
	"fmt"
	"strings"

	"github.com/jayascript1/menubot/internal/domain"
)

// NoRecommendation is narrated when the analysis has neither combos nor a ranking.
const NoRecommendation = "There is no clear recommendation for this menu."

// Compose narrates the top pairing, or failing that the top-ranked dish, for
// display and voice playback. It returns "" for a nil analysis.
func Compose(a *domain.Analysis) string {
	if a == nil {
		return ""
	}

	var (
		parts  []string
		macros domain.MacroSummary
		note   string
	)

	switch {
	case len(a.Combos) > 0:
		combo := a.Combos[0]
		macros = SumMacros(a.Items, combo.ItemIndices)
		parts = append(parts, pairingSentence(a.Items, combo))
		note = combo.Rationale
	case topIndex(a) >= 0:
		idx := topIndex(a)
		item := a.Items[idx]
		macros = SumMacros(a.Items, []int{idx})
		parts = append(parts, fmt.Sprintf("Top pick: %s for %s.", item.Name, FormatCurrency(item.Price)))
	default:
		parts = append(parts, NoRecommendation)
	}

	parts = append(parts, fmt.Sprintf(
		"Nutrition: about %d kcal, %dg protein, %dg carbs and %dg fat.",
		roundInt(macros.Calories), roundInt(macros.ProteinG),
		roundInt(macros.CarbsG), roundInt(macros.FatG),
	))

	if strings.TrimSpace(note) == "" {
		note = a.Notes
	}
	if note = strings.TrimSpace(note); note != "" {
		parts = append(parts, note)
	}

	return strings.Join(parts, " ")
}

func pairingSentence(items []domain.MenuItem, combo domain.Combo) string {
	title := strings.TrimSpace(combo.Title)
	if title == "" {
		title = "Recommended pairing"
	}
	total := FormatCurrency(SumPrice(items, combo.ItemIndices))

	names := comboNames(items, combo.ItemIndices)
	if len(names) == 0 {
		return fmt.Sprintf("Top pairing: %s for %s.", title, total)
	}
	return fmt.Sprintf("Top pairing: %s. %s for %s.", title, strings.Join(names, " + "), total)
}

func comboNames(items []domain.MenuItem, indices []int) []string {
	names := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(items) {
			continue
		}
		names = append(names, items[idx].Name)
	}
	return names
}

// topIndex returns the first ranked index that points at an item, or -1.
func topIndex(a *domain.Analysis) int {
	if len(a.HealthRank) == 0 {
		return -1
	}
	idx := a.HealthRank[0]
	if idx < 0 || idx >= len(a.Items) {
		return -1
	}
	return idx
}
