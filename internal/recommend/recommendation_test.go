package recommend

import (
	"reflect"
	"strings"
	"testing"

	"github.com/jayascript1/menubot/internal/domain"
)

func TestBuild(t *testing.T) {
	a := domain.Analysis{
		Items:      sampleMenu(),
		HealthRank: Rank(sampleMenu()),
		Combos:     []domain.Combo{{Title: "Protein Power", ItemIndices: []int{0, 2}}},
	}

	rec := Build(a, HungerVery, 2, DefaultOptions())

	if len(rec.TopItems) != 2 {
		t.Fatalf("expected 2 top items, got %d", len(rec.TopItems))
	}
	if rec.TopItems[0].Name != "Grilled Chicken" || rec.TopItems[1].Name != "Salmon Salad" {
		t.Errorf("unexpected top items %+v", rec.TopItems)
	}
	if rec.TopPrice != 25 {
		t.Errorf("expected top price 25, got %v", rec.TopPrice)
	}
	if rec.TopMacros.ProteinG != 80 {
		t.Errorf("expected 80g protein, got %v", rec.TopMacros.ProteinG)
	}

	if len(rec.Pairings) != 1 {
		t.Fatalf("expected 1 pairing, got %d", len(rec.Pairings))
	}
	p := rec.Pairings[0]
	if !reflect.DeepEqual(p.ItemNames, []string{"Grilled Chicken", "Salmon Salad"}) {
		t.Errorf("unexpected pairing names %v", p.ItemNames)
	}
	if p.TotalPrice != 25 || p.Macros.Calories != 870 {
		t.Errorf("unexpected pairing totals %+v", p)
	}

	if !strings.HasPrefix(rec.Explanation, "Top pairing: Protein Power.") {
		t.Errorf("unexpected explanation %q", rec.Explanation)
	}
	if !strings.HasSuffix(rec.Summary.BudgetStrategy, hungerAdvice[HungerVery]) {
		t.Errorf("expected very hungry advice, got %q", rec.Summary.BudgetStrategy)
	}
}

func TestBuild_DefaultTopNAndEmpty(t *testing.T) {
	a := domain.Analysis{Items: sampleMenu(), HealthRank: Rank(sampleMenu())}
	if got := Build(a, HungerModerate, 0, DefaultOptions()); len(got.TopItems) != DefaultTopN {
		t.Errorf("expected %d top items, got %d", DefaultTopN, len(got.TopItems))
	}

	empty := Build(Validate(nil), HungerModerate, 0, DefaultOptions())
	if len(empty.TopItems) != 0 || len(empty.Pairings) != 0 {
		t.Errorf("expected empty recommendation, got %+v", empty)
	}
	if empty.Summary.DietaryNotes != NoDietaryData {
		t.Errorf("expected %q, got %q", NoDietaryData, empty.Summary.DietaryNotes)
	}
	if empty.Explanation != NoRecommendation+" Nutrition: about 0 kcal, 0g protein, 0g carbs and 0g fat." {
		t.Errorf("unexpected explanation %q", empty.Explanation)
	}
}

func TestBuild_TopMatchesRank(t *testing.T) {
	a := domain.Analysis{Items: sampleMenu(), HealthRank: []int{1, 0, 2}}
	rec := Build(a, HungerModerate, 1, DefaultOptions())
	if len(rec.TopItems) != 1 || rec.TopItems[0].Index != 1 {
		t.Errorf("expected ranking order to be honored, got %+v", rec.TopItems)
	}
}
