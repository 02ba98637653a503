package recommend

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/jayascript1/menubot/internal/domain"
)

// Fixed replies when there is nothing to summarize.
const (
	NoDietaryData = "No menu items available for dietary analysis."
	NoBudgetData  = "Unable to provide budget strategy without menu items."
)

// Price tier labels, chosen from the total of all item prices.
const (
	TierBudget   = "budget-friendly"
	TierMidRange = "mid-range"
	TierPremium  = "premium"
)

// HungerLevel shapes the wording of the budget advice only.
type HungerLevel string

const (
	HungerLight    HungerLevel = "light"
	HungerModerate HungerLevel = "moderate"
	HungerVery     HungerLevel = "very"
)

// ParseHungerLevel normalizes user input such as "Very hungry" or "LIGHT".
// Unknown values fall back to HungerModerate.
func ParseHungerLevel(s string) HungerLevel {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, string(HungerLight)), s == "low", s == "snack":
		return HungerLight
	case strings.HasPrefix(s, string(HungerVery)), s == "high", s == "starving":
		return HungerVery
	default:
		return HungerModerate
	}
}

// Summary is the narrative description of a menu.
type Summary struct {
	DietaryNotes   string `json:"dietary_notes"`
	BudgetStrategy string `json:"budget_strategy"`
}

// Category is a dietary label an item can carry. Labels overlap freely.
type Category string

const (
	CategorySeafood     Category = "seafood"
	CategoryMeat        Category = "meat"
	CategoryVegetables  Category = "vegetables"
	CategoryGrains      Category = "grains"
	CategoryDairy       Category = "dairy"
	CategoryFruits      Category = "fruits"
	CategoryDesserts    Category = "desserts"
	CategoryVegetarian  Category = "vegetarian"
	CategoryVegan       Category = "vegan"
	CategoryHealthy     Category = "healthy"
	CategoryHighCalorie Category = "high_calorie"
	CategoryHighProtein Category = "high_protein"
	CategoryLowCalorie  Category = "low_calorie"
)

// keywordRules maps each text category to the words that trigger it.
// Keywords match whole words, optionally pluralized with "s" or "es".
var keywordRules = []struct {
	category Category
	keywords []string
}{
	{CategorySeafood, []string{
		"seafood", "fish", "salmon", "tuna", "cod", "tilapia", "halibut", "trout", "shrimp",
		"prawn", "crab", "lobster", "scallop", "oyster", "clam", "mussel", "squid",
		"calamari", "octopus", "anchovy", "sardine", "sushi", "sashimi",
	}},
	{CategoryMeat, []string{
		"chicken", "beef", "pork", "lamb", "steak", "bacon", "ham", "sausage", "turkey",
		"duck", "veal", "meatball", "burger", "brisket", "ribs", "prosciutto", "salami",
		"pepperoni", "chorizo", "mutton", "goat", "meat", "cheeseburger", "hamburger",
	}},
	{CategoryVegetables, []string{
		"salad", "vegetable", "veggie", "spinach", "kale", "broccoli", "tomato", "lettuce",
		"carrot", "mushroom", "zucchini", "eggplant", "cucumber", "greens", "cabbage",
		"asparagus", "cauliflower", "avocado", "pepper", "onion", "beans", "lentil",
	}},
	{CategoryGrains, []string{
		"rice", "pasta", "bread", "noodle", "quinoa", "oat", "wheat", "barley", "tortilla",
		"bun", "toast", "couscous", "grain", "pizza", "spaghetti", "risotto", "sandwich",
		"wrap", "bagel",
	}},
	{CategoryDairy, []string{
		"cheese", "milk", "cream", "butter", "yogurt", "yoghurt", "mozzarella", "parmesan",
		"cheddar", "feta", "ricotta", "latte", "paneer", "ghee", "cheesecake", "cheeseburger",
	}},
	{CategoryFruits, []string{
		"fruit", "apple", "banana", "berry", "berries", "mango", "orange", "lemon", "lime",
		"pineapple", "peach", "grape", "melon", "citrus", "cherry", "cherries", "strawberry",
		"strawberries", "blueberry", "blueberries",
	}},
	{CategoryDesserts, []string{
		"dessert", "cake", "pie", "brownie", "cookie", "pudding", "tart", "chocolate",
		"sundae", "donut", "doughnut", "tiramisu", "mousse", "gelato", "ice cream", "sorbet",
		"pastry", "pastries", "custard", "waffle", "crepe", "cheesecake", "cupcake", "pancake",
	}},
}

var keywordMatchers = compileKeywordRules()

type keywordMatcher struct {
	category Category
	re       *regexp.Regexp
}

func compileKeywordRules() []keywordMatcher {
	matchers := make([]keywordMatcher, 0, len(keywordRules))
	for _, rule := range keywordRules {
		quoted := make([]string, len(rule.keywords))
		for i, kw := range rule.keywords {
			quoted[i] = regexp.QuoteMeta(kw)
		}
		matchers = append(matchers, keywordMatcher{
			category: rule.category,
			re:       regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)(?:e?s)?\b`),
		})
	}
	return matchers
}

// Nutrition thresholds for the derived categories.
const (
	healthyMaxCalories     = 300.0
	healthyMinProtein      = 15.0
	healthyMaxFat          = 15.0
	highCalorieMinCalories = 600.0
	highProteinMinProtein  = 25.0
	lowCalorieMaxCalories  = 200.0
)

// dietarySentences lists the sentence for each category in display order.
// %s receives a counted phrase such as "3 dishes".
var dietarySentences = []struct {
	category Category
	format   string
}{
	{CategorySeafood, "Seafood appears in %s."},
	{CategoryMeat, "Meat or poultry appears in %s."},
	{CategoryVegetables, "Vegetables feature in %s."},
	{CategoryGrains, "Grains or starches feature in %s."},
	{CategoryDairy, "Dairy shows up in %s."},
	{CategoryFruits, "Fruit shows up in %s."},
	{CategoryDesserts, "Desserts or sweets account for %s."},
	{CategoryVegetarian, "Vegetarian-friendly choices: %s."},
	{CategoryVegan, "Possibly vegan choices: %s."},
	{CategoryHealthy, "Balanced picks under 300 kcal with at least 15g protein and at most 15g fat: %s."},
	{CategoryHighProtein, "High-protein options with 25g or more: %s."},
	{CategoryLowCalorie, "Light options at 200 kcal or less: %s."},
	{CategoryHighCalorie, "Heavier dishes at 600 kcal or more: %s."},
}

var hungerAdvice = map[HungerLevel]string{
	HungerLight:    "Since you are only a little hungry, a single lighter dish or a shared starter should be plenty.",
	HungerModerate: "For a moderate appetite, one main with a side keeps the bill in check.",
	HungerVery:     "If you are very hungry, pair a high-protein main with a filling side to get the most out of each dollar.",
}

// Categorize returns the set of categories an item belongs to.
func Categorize(item domain.MenuItem) map[Category]bool {
	text := strings.ToLower(item.Name + " " + item.Description)
	cats := make(map[Category]bool)

	for _, m := range keywordMatchers {
		if m.re.MatchString(text) {
			cats[m.category] = true
		}
	}

	if !cats[CategoryMeat] && !cats[CategorySeafood] {
		cats[CategoryVegetarian] = true
		if !cats[CategoryDairy] {
			cats[CategoryVegan] = true
		}
	}

	if item.Calories <= healthyMaxCalories && item.ProteinG >= healthyMinProtein && item.FatG <= healthyMaxFat {
		cats[CategoryHealthy] = true
	}
	if item.Calories >= highCalorieMinCalories {
		cats[CategoryHighCalorie] = true
	}
	if item.ProteinG >= highProteinMinProtein {
		cats[CategoryHighProtein] = true
	}
	if item.Calories <= lowCalorieMaxCalories {
		cats[CategoryLowCalorie] = true
	}

	return cats
}

// PriceTier labels a menu by the sum of its item prices.
func PriceTier(total float64, opts Options) string {
	opts = opts.withDefaults()
	switch {
	case total <= opts.BudgetLimit:
		return TierBudget
	case total <= opts.MidRangeLimit:
		return TierMidRange
	default:
		return TierPremium
	}
}

// Summarize describes the dietary make-up and price level of items using
// DefaultOptions.
func Summarize(items []domain.MenuItem, hunger HungerLevel) Summary {
	return SummarizeWith(items, hunger, DefaultOptions())
}

// SummarizeWith is Summarize with explicit thresholds.
func SummarizeWith(items []domain.MenuItem, hunger HungerLevel, opts Options) Summary {
	if len(items) == 0 {
		return Summary{DietaryNotes: NoDietaryData, BudgetStrategy: NoBudgetData}
	}
	return Summary{
		DietaryNotes:   dietaryNotes(items),
		BudgetStrategy: budgetStrategy(items, hunger, opts),
	}
}

func dietaryNotes(items []domain.MenuItem) string {
	counts := make(map[Category]int)
	var totals domain.MacroSummary
	for _, item := range items {
		for cat := range Categorize(item) {
			counts[cat]++
		}
		totals.Add(item)
	}

	var sentences []string
	for _, s := range dietarySentences {
		if n := counts[s.category]; n > 0 {
			sentences = append(sentences, fmt.Sprintf(s.format, countPhrase(n, "dish", "dishes")))
		}
	}

	n := float64(len(items))
	sentences = append(sentences, fmt.Sprintf(
		"On average each dish has about %d kcal, %dg protein, %dg carbs and %dg fat.",
		roundInt(totals.Calories/n), roundInt(totals.ProteinG/n),
		roundInt(totals.CarbsG/n), roundInt(totals.FatG/n),
	))

	return strings.Join(sentences, " ")
}

func budgetStrategy(items []domain.MenuItem, hunger HungerLevel, opts Options) string {
	var total float64
	for _, item := range items {
		total += finite(item.Price)
	}
	avg := total / float64(len(items))

	advice, ok := hungerAdvice[hunger]
	if !ok {
		advice = hungerAdvice[HungerModerate]
	}

	return strings.Join([]string{
		fmt.Sprintf("This menu lists %s with an average price of %s.",
			countPhrase(len(items), "item", "items"), FormatCurrency(avg)),
		fmt.Sprintf("Taken together the menu is %s.", PriceTier(total, opts)),
		advice,
	}, " ")
}

func countPhrase(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return fmt.Sprintf("%d %s", n, plural)
}

func roundInt(v float64) int {
	return int(math.Round(finite(v)))
}
