package recommend

import "github.com/jayascript1/menubot/internal/domain"

// DefaultTopN is how many ranked dishes Build lists.
const DefaultTopN = 3

// RankedItem is one dish in ranking order with its score.
type RankedItem struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Score float64 `json:"score"`
}

// Pairing is a combo with its derived totals.
type Pairing struct {
	Title       string              `json:"title"`
	ItemIndices []int               `json:"item_indices"`
	ItemNames   []string            `json:"item_names"`
	TotalPrice  float64             `json:"total_price"`
	Macros      domain.MacroSummary `json:"macros"`
	Rationale   string              `json:"rationale"`
}

// Recommendation bundles everything a display or narration layer needs.
type Recommendation struct {
	TopItems    []RankedItem        `json:"top_items"`
	TopMacros   domain.MacroSummary `json:"top_macros"`
	TopPrice    float64             `json:"top_price"`
	Pairings    []Pairing           `json:"pairings"`
	Summary     Summary             `json:"summary"`
	Explanation string              `json:"explanation"`
}

// Build derives the recommendation view of a validated analysis.
// topN <= 0 means DefaultTopN.
func Build(a domain.Analysis, hunger HungerLevel, topN int, opts Options) Recommendation {
	if topN <= 0 {
		topN = DefaultTopN
	}

	top := make([]int, 0, topN)
	for _, idx := range a.HealthRank {
		if len(top) == topN {
			break
		}
		if idx >= 0 && idx < len(a.Items) {
			top = append(top, idx)
		}
	}

	topItems := make([]RankedItem, len(top))
	for i, idx := range top {
		item := a.Items[idx]
		topItems[i] = RankedItem{Index: idx, Name: item.Name, Price: item.Price, Score: Score(item)}
	}

	pairings := make([]Pairing, len(a.Combos))
	for i, c := range a.Combos {
		pairings[i] = Pairing{
			Title:       c.Title,
			ItemIndices: c.ItemIndices,
			ItemNames:   comboNames(a.Items, c.ItemIndices),
			TotalPrice:  SumPrice(a.Items, c.ItemIndices),
			Macros:      SumMacros(a.Items, c.ItemIndices),
			Rationale:   c.Rationale,
		}
	}

	return Recommendation{
		TopItems:    topItems,
		TopMacros:   SumMacros(a.Items, top),
		TopPrice:    SumPrice(a.Items, top),
		Pairings:    pairings,
		Summary:     SummarizeWith(a.Items, hunger, opts),
		Explanation: Compose(&a),
	}
}
