package domain

// DefaultItemName is used for dishes the extractor returned without a name.
const DefaultItemName = "Unnamed item"

// MenuItem is one dish on a photographed menu.
// All numeric fields are non-negative once the item has been validated.
type MenuItem struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Calories    float64 `json:"calories"`
	ProteinG    float64 `json:"protein_g"`
	CarbsG      float64 `json:"carbs_g"`
	FatG        float64 `json:"fat_g"`
}

// Combo is a suggested pairing of dishes to order together.
// ItemIndices may point outside Items; consumers treat those as contributing nothing.
type Combo struct {
	Title       string `json:"title"`
	ItemIndices []int  `json:"item_indices"`
	Rationale   string `json:"rationale"`
}

// Analysis is the full extracted and processed menu.
// Item positions are stable identifiers used by HealthRank and Combo.ItemIndices.
type Analysis struct {
	Items      []MenuItem `json:"items"`
	HealthRank []int      `json:"health_rank"`
	Combos     []Combo    `json:"combos"`
	Notes      string     `json:"notes"`
}

// MacroSummary holds calorie and macro-nutrient totals over a set of items.
type MacroSummary struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// Add accumulates the nutrition facts of item into the summary.
func (m *MacroSummary) Add(item MenuItem) {
	m.Calories += item.Calories
	m.ProteinG += item.ProteinG
	m.CarbsG += item.CarbsG
	m.FatG += item.FatG
}

// Raw converts the analysis into the loosely typed shape produced by decoding
// an extractor's JSON reply, so it can be fed back through validation.
func (a Analysis) Raw() map[string]interface{} {
	items := make([]interface{}, len(a.Items))
	for i, it := range a.Items {
		items[i] = map[string]interface{}{
			"name":        it.Name,
			"description": it.Description,
			"price":       it.Price,
			"calories":    it.Calories,
			"protein_g":   it.ProteinG,
			"carbs_g":     it.CarbsG,
			"fat_g":       it.FatG,
		}
	}

	rank := make([]interface{}, len(a.HealthRank))
	for i, idx := range a.HealthRank {
		rank[i] = float64(idx)
	}

	combos := make([]interface{}, len(a.Combos))
	for i, c := range a.Combos {
		indices := make([]interface{}, len(c.ItemIndices))
		for j, idx := range c.ItemIndices {
			indices[j] = float64(idx)
		}
		combos[i] = map[string]interface{}{
			"title":        c.Title,
			"item_indices": indices,
			"rationale":    c.Rationale,
		}
	}

	return map[string]interface{}{
		"items":       items,
		"health_rank": rank,
		"combos":      combos,
		"notes":       a.Notes,
	}
}
