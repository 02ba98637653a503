package recommend

import (
	"math"
	"sort"

	"github.com/jayascript1/menubot/internal/domain"
)

// Health score weights. Protein is rewarded, fat and carbohydrate load are
// penalized moderately and calorie density lightly.
const (
	proteinWeight = 2.0
	fatWeight     = 0.8
	calorieWeight = 0.005
	carbWeight    = 0.3
)

// Score maps an item's nutrition facts to a single healthiness number.
// Higher is healthier. NaN and infinite fields count as zero.
func Score(item domain.MenuItem) float64 {
	return proteinWeight*finite(item.ProteinG) -
		fatWeight*finite(item.FatG) -
		calorieWeight*finite(item.Calories) -
		carbWeight*finite(item.CarbsG)
}

// Rank returns the indices of items ordered by Score, healthiest first.
// Ties keep menu order. The result always has len(items) entries.
func Rank(items []domain.MenuItem) []int {
	scores := make([]float64, len(items))
	order := make([]int, len(items))
	for i, item := range items {
		scores[i] = Score(item)
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	return order
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
