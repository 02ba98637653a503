package recommend

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/jayascript1/menubot/internal/domain"
)

func decode(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return m
}

func TestValidate_RecomputesCaloriesAndRank(t *testing.T) {
	raw := decode(t, `{
		"items": [{"calories": 900, "protein_g": 10, "carbs_g": 10, "fat_g": 5}],
		"health_rank": [5],
		"combos": [],
		"notes": ""
	}`)

	got := Validate(raw)

	if len(got.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got.Items))
	}
	if got.Items[0].Calories != 125 {
		t.Errorf("expected calories recomputed to 125, got %v", got.Items[0].Calories)
	}
	if got.Items[0].Name != domain.DefaultItemName {
		t.Errorf("expected placeholder name, got %q", got.Items[0].Name)
	}
	if !reflect.DeepEqual(got.HealthRank, []int{0}) {
		t.Errorf("expected health_rank [0], got %v", got.HealthRank)
	}
}

func TestValidate_CalorieTolerance(t *testing.T) {
	// protein 40*4 + carbs 30*4 + fat 10*9 = 370
	macros := `"protein_g": 40, "carbs_g": 30, "fat_g": 10`

	tests := []struct {
		name      string
		calories  string
		tolerance float64
		want      float64
	}{
		{name: "within default tolerance", calories: "450", want: 450},
		{name: "beyond default tolerance", calories: "471", want: 370},
		{name: "exactly at tolerance", calories: "470", want: 470},
		{name: "missing calories stay zero", calories: "0", want: 0},
		{name: "tight tolerance keeps boundary", calories: "380", tolerance: 10, want: 380},
		{name: "tight tolerance corrects", calories: "390", tolerance: 10, want: 370},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := decode(t, `{"items": [{"name": "Bowl", "calories": `+tt.calories+`, `+macros+`}]}`)
			opts := DefaultOptions()
			if tt.tolerance > 0 {
				opts.CalorieTolerance = tt.tolerance
			}
			got := ValidateWith(raw, opts)
			if got.Items[0].Calories != tt.want {
				t.Errorf("expected %v kcal, got %v", tt.want, got.Items[0].Calories)
			}
		})
	}
}

func TestValidate_CoercesFields(t *testing.T) {
	raw := decode(t, `{
		"items": [
			{"name": "  Soup  ", "description": 42, "price": "$7.50", "calories": "abc", "protein_g": -3, "carbs_g": null},
			{"price": true},
			"not an object"
		],
		"notes": "  Prices exclude tax. "
	}`)

	got := Validate(raw)

	if len(got.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got.Items))
	}
	soup := got.Items[0]
	if soup.Name != "Soup" || soup.Description != "42" || soup.Price != 7.5 {
		t.Errorf("unexpected coercion: %+v", soup)
	}
	if soup.Calories != 0 || soup.ProteinG != 0 || soup.CarbsG != 0 || soup.FatG != 0 {
		t.Errorf("expected non-numeric and negative values to become 0, got %+v", soup)
	}
	for i, item := range got.Items[1:] {
		if item.Name != domain.DefaultItemName || item.Price != 0 {
			t.Errorf("item %d: expected defaults, got %+v", i+1, item)
		}
	}
	if got.Notes != "Prices exclude tax." {
		t.Errorf("unexpected notes %q", got.Notes)
	}
	assertPermutation(t, got.HealthRank, 3)
}

func TestValidate_HealthRankAlwaysFullPermutation(t *testing.T) {
	items := `[
		{"name": "A", "protein_g": 30},
		{"name": "B", "protein_g": 10},
		{"name": "C", "protein_g": 20}
	]`

	tests := []struct {
		name string
		rank string
		want []int
	}{
		{name: "missing", rank: ``, want: []int{0, 2, 1}},
		{name: "null", rank: `, "health_rank": null`, want: []int{0, 2, 1}},
		{name: "not a list", rank: `, "health_rank": "0,1,2"`, want: []int{0, 2, 1}},
		{name: "empty", rank: `, "health_rank": []`, want: []int{0, 2, 1}},
		{name: "too short", rank: `, "health_rank": [1]`, want: []int{0, 2, 1}},
		{name: "out of range", rank: `, "health_rank": [2, 1, 7]`, want: []int{0, 2, 1}},
		{name: "duplicates", rank: `, "health_rank": [1, 1, 2]`, want: []int{0, 2, 1}},
		{name: "fractional", rank: `, "health_rank": [1, 0.5, 2]`, want: []int{0, 2, 1}},
		{name: "valid order kept", rank: `, "health_rank": [1, 2, 0]`, want: []int{1, 2, 0}},
		{name: "numeric strings accepted", rank: `, "health_rank": ["2", "0", "1"]`, want: []int{2, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(decode(t, `{"items": `+items+tt.rank+`}`))
			assertPermutation(t, got.HealthRank, 3)
			if !reflect.DeepEqual(got.HealthRank, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got.HealthRank)
			}
		})
	}
}

func TestValidate_Combos(t *testing.T) {
	raw := decode(t, `{
		"items": [{"name": "A"}, {"name": "B"}],
		"combos": [
			{"title": "Duo", "item_indices": [0, "1", 2.5, 99], "rationale": "Balanced"},
			"junk",
			{"item_indices": "none"}
		]
	}`)

	got := Validate(raw)

	if len(got.Combos) != 2 {
		t.Fatalf("expected 2 combos, got %d", len(got.Combos))
	}
	if !reflect.DeepEqual(got.Combos[0].ItemIndices, []int{0, 1, 99}) {
		t.Errorf("unexpected indices %v", got.Combos[0].ItemIndices)
	}
	if got.Combos[0].Title != "Duo" || got.Combos[0].Rationale != "Balanced" {
		t.Errorf("unexpected combo %+v", got.Combos[0])
	}
	if got.Combos[1].ItemIndices == nil || len(got.Combos[1].ItemIndices) != 0 {
		t.Errorf("expected empty indices, got %#v", got.Combos[1].ItemIndices)
	}
}

func TestValidate_EmptyInputs(t *testing.T) {
	inputs := []interface{}{nil, "", "not json at all", []byte(`{}`), map[string]interface{}{}, (*domain.Analysis)(nil), 42}

	for _, in := range inputs {
		got := Validate(in)
		if got.Items == nil || len(got.Items) != 0 {
			t.Errorf("%#v: expected empty items, got %#v", in, got.Items)
		}
		if got.HealthRank == nil || len(got.HealthRank) != 0 {
			t.Errorf("%#v: expected empty rank, got %#v", in, got.HealthRank)
		}
		if got.Combos == nil || len(got.Combos) != 0 {
			t.Errorf("%#v: expected empty combos, got %#v", in, got.Combos)
		}
	}
}

func TestValidate_Idempotent(t *testing.T) {
	fixtures := []string{
		`{"items": [{"calories": 900, "protein_g": 10, "carbs_g": 10, "fat_g": 5}], "health_rank": [5], "combos": [], "notes": ""}`,
		`{"items": [
			{"name": "Grilled Chicken", "calories": 450, "protein_g": 45, "carbs_g": 10, "fat_g": 12, "price": 12},
			{"name": "Cheesecake", "calories": 650, "protein_g": 6, "carbs_g": 60, "fat_g": 40, "price": 6},
			{"name": "Salmon Salad", "calories": 420, "protein_g": 35, "carbs_g": 12, "fat_g": 18, "price": 13}
		], "health_rank": [2, 2, 9], "combos": [{"title": "Lean", "item_indices": [0, 2, 7]}], "notes": " caveat "}`,
		`{"items": [{"name": "Odd", "calories": 101.7, "protein_g": 0.3, "carbs_g": 0.1, "fat_g": 0.05, "price": "3"}]}`,
		`{}`,
	}

	for i, fx := range fixtures {
		once := Validate(fx)
		twice := Validate(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("fixture %d: validate is not a fixed point\nonce:  %+v\ntwice: %+v", i, once, twice)
		}
		viaPointer := Validate(&once)
		if !reflect.DeepEqual(once, viaPointer) {
			t.Errorf("fixture %d: pointer input changed result", i)
		}
	}
}

func TestValidate_AcceptsModelReplyText(t *testing.T) {
	reply := "Here is the menu:\n```json\n{\"items\": [{\"name\": \"Tofu Bowl\", \"price\": 11}], \"health_rank\": [0]}\n```"
	got := Validate(reply)
	if len(got.Items) != 1 || got.Items[0].Name != "Tofu Bowl" {
		t.Fatalf("expected Tofu Bowl, got %+v", got.Items)
	}
}
