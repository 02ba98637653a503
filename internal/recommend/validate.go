package recommend

import (
	"encoding/json"
	"math"

	"github.com/jayascript1/menubot/internal/domain"
)

// Energy per gram of each macro-nutrient, in kcal.
const (
	kcalPerGramProtein = 4.0
	kcalPerGramCarbs   = 4.0
	kcalPerGramFat     = 9.0
)

// Validate repairs an externally sourced analysis using DefaultOptions.
func Validate(raw interface{}) domain.Analysis {
	return ValidateWith(raw, DefaultOptions())
}

// ValidateWith coerces raw into a well-formed Analysis. It never fails:
// missing fields are defaulted, implausible calorie totals are recomputed from
// the macros, and the health ranking is regenerated whenever it is not a full
// permutation of the item indices.
//
// raw may be a decoded JSON object (map[string]interface{}), JSON text as
// string or []byte, or a domain.Analysis, so validating a validated analysis
// is a no-op.
func ValidateWith(raw interface{}, opts Options) domain.Analysis {
	opts = opts.withDefaults()
	obj := asObject(raw)

	items := coerceItems(obj["items"])
	for i := range items {
		reconcileCalories(&items[i], opts.CalorieTolerance)
	}

	rank, ok := coerceRank(obj["health_rank"])
	if !ok || len(rank) == 0 {
		rank = Rank(items)
	}
	rank = filterRank(rank, len(items))
	if len(rank) != len(items) {
		rank = Rank(items)
	}

	return domain.Analysis{
		Items:      items,
		HealthRank: rank,
		Combos:     coerceCombos(obj["combos"]),
		Notes:      toText(obj["notes"]),
	}
}

// ExpectedCalories derives an energy estimate from an item's macros.
func ExpectedCalories(item domain.MenuItem) float64 {
	return item.ProteinG*kcalPerGramProtein + item.CarbsG*kcalPerGramCarbs + item.FatG*kcalPerGramFat
}

func asObject(raw interface{}) map[string]interface{} {
	switch v := raw.(type) {
	case map[string]interface{}:
		return v
	case domain.Analysis:
		return v.Raw()
	case *domain.Analysis:
		if v == nil {
			return nil
		}
		return v.Raw()
	case string:
		return toObject(ParseRaw(v))
	case []byte:
		return toObject(ParseRaw(string(v)))
	case json.RawMessage:
		return toObject(ParseRaw(string(v)))
	default:
		return nil
	}
}

func coerceItems(v interface{}) []domain.MenuItem {
	list, _ := toList(v)
	items := make([]domain.MenuItem, 0, len(list))
	for _, entry := range list {
		items = append(items, coerceItem(toObject(entry)))
	}
	return items
}

func coerceItem(obj map[string]interface{}) domain.MenuItem {
	name := toText(obj["name"])
	if name == "" {
		name = domain.DefaultItemName
	}
	return domain.MenuItem{
		Name:        name,
		Description: toText(obj["description"]),
		Price:       toNumber(obj["price"]),
		Calories:    toNumber(obj["calories"]),
		ProteinG:    toNumber(obj["protein_g"]),
		CarbsG:      toNumber(obj["carbs_g"]),
		FatG:        toNumber(obj["fat_g"]),
	}
}

// reconcileCalories trusts the macro breakdown over a stated total that is
// too far off. Items without a stated total are left alone.
func reconcileCalories(item *domain.MenuItem, tolerance float64) {
	if item.Calories <= 0 {
		return
	}
	expected := ExpectedCalories(*item)
	if math.Abs(item.Calories-expected) > tolerance {
		item.Calories = math.Round(expected)
	}
}

// coerceRank reports false when v is not a sequence at all.
func coerceRank(v interface{}) ([]int, bool) {
	list, ok := toList(v)
	if !ok {
		return nil, false
	}
	rank := make([]int, 0, len(list))
	for _, entry := range list {
		if idx, ok := toIndex(entry); ok {
			rank = append(rank, idx)
		}
	}
	return rank, true
}

// filterRank drops out-of-range and repeated indices, keeping order.
func filterRank(rank []int, n int) []int {
	seen := make(map[int]bool, len(rank))
	out := make([]int, 0, len(rank))
	for _, idx := range rank {
		if idx < 0 || idx >= n || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}

func coerceCombos(v interface{}) []domain.Combo {
	list, _ := toList(v)
	combos := make([]domain.Combo, 0, len(list))
	for _, entry := range list {
		obj := toObject(entry)
		if obj == nil {
			continue
		}

		rawIndices, _ := toList(obj["item_indices"])
		indices := make([]int, 0, len(rawIndices))
		for _, raw := range rawIndices {
			if idx, ok := toIndex(raw); ok {
				indices = append(indices, idx)
			}
		}

		combos = append(combos, domain.Combo{
			Title:       toText(obj["title"]),
			ItemIndices: indices,
			Rationale:   toText(obj["rationale"]),
		})
	}
	return combos
}
