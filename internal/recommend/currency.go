package recommend

import (
	"encoding/json"
	"fmt"
	"math"
)

// PricePlaceholder is shown for prices that are missing or not numbers.
const PricePlaceholder = "$--.--"

// FormatCurrency renders a number as a two-decimal dollar amount. Any other
// value, including NaN and infinities, renders as PricePlaceholder.
func FormatCurrency(v interface{}) string {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return PricePlaceholder
		}
		f = parsed
	default:
		return PricePlaceholder
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return PricePlaceholder
	}
	if f < 0 {
		return fmt.Sprintf("-$%.2f", -f)
	}
	return fmt.Sprintf("$%.2f", f)
}
