// Package soil maps soil-type labels to nutrient profiles and scores soil health.
package soil

import (
	"slices"
	"strings"
	"time"

	"github.com/sells-group/crop-advisor/internal/model"
)

type nutrients struct{ n, p, k, ph float64 }

var table = map[string]nutrients{
	"sandy":        {60, 25, 25, 6.0},
	"clay":         {90, 45, 50, 7.2},
	"loamy":        {80, 42, 40, 6.8},
	"silty":        {85, 40, 35, 6.5},
	"peaty":        {70, 30, 30, 5.5},
	"chalky":       {75, 35, 45, 8.0},
	"saline":       {50, 20, 30, 7.5},
	"black_cotton": {95, 50, 55, 7.0},
}

// Seasonal fallbacks for unrecognized soil types.
var (
	winterDefault      = nutrients{72, 42, 35, 7.0} // Dec-Feb
	summerDefault      = nutrients{65, 35, 30, 7.2} // Mar-May
	monsoonDefault     = nutrients{85, 45, 40, 6.5} // Jun-Sep
	postMonsoonDefault = nutrients{78, 40, 38, 6.8} // Oct-Nov
)

// Types returns the recognized soil types in sorted order.
func Types() []string {
	out := make([]string, 0, len(table))
	for k := range table {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Normalize lower-cases a label and folds spaces and hyphens to underscores.
func Normalize(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// Known reports whether label is one of the recognized soil types.
func Known(label string) bool {
	_, ok := table[Normalize(label)]
	return ok
}

// Map returns the nutrient profile for a soil-type label. Unrecognized
// labels get a season-dependent default chosen by month.
func Map(label string, month time.Month) model.SoilProfile {
	key := Normalize(label)
	v, ok := table[key]
	if !ok {
		v = seasonalDefault(month)
	}
	return model.SoilProfile{Type: key, N: v.n, P: v.p, K: v.k, PH: v.ph}
}

func seasonalDefault(month time.Month) nutrients {
	switch month {
	case time.June, time.July, time.August, time.September:
		return monsoonDefault
	case time.October, time.November:
		return postMonsoonDefault
	case time.December, time.January, time.February:
		return winterDefault
	default:
		return summerDefault
	}
}
