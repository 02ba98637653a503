// Package recommend turns loosely typed menu extractions into validated
// analyses and derives health rankings, totals and narrative summaries from them.
//
// Every function in this package is pure: no I/O, no shared state, and no error
// channel. Malformed input is repaired or degrades to zero values.
package recommend

const (
	// DefaultCalorieTolerance is how far (kcal) a stated calorie count may drift
	// from the macro-derived estimate before it is overwritten.
	DefaultCalorieTolerance = 100.0

	// DefaultBudgetLimit is the highest menu total still labelled budget-friendly.
	DefaultBudgetLimit = 50.0

	// DefaultMidRangeLimit is the highest menu total still labelled mid-range.
	DefaultMidRangeLimit = 100.0
)

// Options holds the heuristic thresholds used by validation and summarizing.
type Options struct {
	CalorieTolerance float64
	BudgetLimit      float64
	MidRangeLimit    float64
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		CalorieTolerance: DefaultCalorieTolerance,
		BudgetLimit:      DefaultBudgetLimit,
		MidRangeLimit:    DefaultMidRangeLimit,
	}
}

// withDefaults replaces unset or nonsensical thresholds with the stock values.
func (o Options) withDefaults() Options {
	if !(o.CalorieTolerance > 0) {
		o.CalorieTolerance = DefaultCalorieTolerance
	}
	if !(o.BudgetLimit > 0) {
		o.BudgetLimit = DefaultBudgetLimit
	}
	if !(o.MidRangeLimit > 0) {
		o.MidRangeLimit = DefaultMidRangeLimit
	}
	if o.MidRangeLimit < o.BudgetLimit {
		o.MidRangeLimit = o.BudgetLimit
	}
	return o
}
