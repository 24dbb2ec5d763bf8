package estimate

import (
	"slices"
	"time"

	"github.com/sells-group/crop-advisor/internal/model"
)

// Month-by-month price/yield multipliers for each income season, January first.
var seasonalFactors = map[model.Season][12]float64{
	model.SeasonWinter:  {1.2, 1.1, 0.9, 0.7, 0.6, 0.6, 0.7, 0.8, 0.9, 1.1, 1.3, 1.3},
	model.SeasonSummer:  {0.8, 1.0, 1.2, 1.3, 1.3, 1.2, 1.0, 0.9, 0.8, 0.7, 0.6, 0.7},
	model.SeasonMonsoon: {0.6, 0.7, 0.8, 0.9, 1.1, 1.3, 1.3, 1.2, 1.1, 0.9, 0.7, 0.6},
}

// Classes are checked in this order; the first one a crop belongs to wins.
var incomePrecedence = []model.Season{model.SeasonWinter, model.SeasonSummer, model.SeasonMonsoon}

// IncomeSeason resolves a crop's income class. The zero Season means neutral.
func IncomeSeason(classes []model.Season) model.Season {
	for _, s := range incomePrecedence {
		if slices.Contains(classes, s) {
			return s
		}
	}
	return ""
}

// SeasonalFactor returns the multiplier for an income class in a month.
// Neutral crops always get 1.0.
func SeasonalFactor(class model.Season, month time.Month) float64 {
	table, ok := seasonalFactors[class]
	if !ok {
		return 1.0
	}
	return table[month-1]
}
