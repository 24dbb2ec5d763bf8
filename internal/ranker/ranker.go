// Package ranker re-ranks classifier output using seasonal, regional and
// planting-time signals and selects the top crops.
package ranker

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/sells-group/crop-advisor/internal/crops"
	"github.com/sells-group/crop-advisor/internal/model"
)

// Adjustment weights.
const (
	SeasonalBoost       = 0.2
	RegionalBoost       = 0.15
	PlantingWeight      = 0.3
	HarvestBoost        = 0.15
	LongDurationPenalty = 0.1

	longDurationDays = 365
)

// TopN is the number of crops returned by Rank.
const TopN = 3

var harvestWindows = map[model.Season][]time.Month{
	model.SeasonWinter:  {time.November, time.December, time.January, time.February},
	model.SeasonSummer:  {time.March, time.April, time.May, time.June},
	model.SeasonMonsoon: {time.August, time.September, time.October},
}

// SeasonOf returns the meteorological season for a month.
func SeasonOf(m time.Month) model.Season {
	switch m {
	case time.November, time.December, time.January, time.February:
		return model.SeasonWinter
	case time.March, time.April, time.May, time.June:
		return model.SeasonSummer
	default:
		return model.SeasonMonsoon
	}
}

// RegionOf infers a coarse region from the literal tokens
// "north", "south", "east", "west" in a location string.
func RegionOf(location string) model.Region {
	loc := strings.ToLower(location)
	for _, r := range []model.Region{model.RegionNorth, model.RegionSouth, model.RegionEast, model.RegionWest} {
		if strings.Contains(loc, string(r)) {
			return r
		}
	}
	return model.RegionNone
}

// PlantingSuitability scores how close current is to the nearest
// optimal planting month, in [0, 1].
func PlantingSuitability(months []int, current time.Month) float64 {
	if len(months) == 0 {
		return 0.2
	}
	best := 12
	for _, m := range months {
		d := ((m-int(current))%12 + 12) % 12
		best = min(best, d)
	}
	switch {
	case best == 0:
		return 1.0
	case best <= 1:
		return 0.8
	case best <= 3:
		return 0.6
	case best <= 6:
		return 0.3
	default:
		return 0.2
	}
}

// Ranker scores every classifier label against the crop knowledge base.
type Ranker struct {
	kb *crops.KnowledgeBase
}

// New creates a Ranker backed by kb.
func New(kb *crops.KnowledgeBase) *Ranker {
	return &Ranker{kb: kb}
}

// Score computes the adjusted, unscaled score for every label, in input order.
func (r *Ranker) Score(probs []model.LabelProbability, location string, now time.Time) []model.ScoredCandidate {
	season := SeasonOf(now.Month())
	region := RegionOf(location)

	out := make([]model.ScoredCandidate, 0, len(probs))
	for _, lp := range probs {
		p := r.kb.Profile(lp.Label)
		c := model.ScoredCandidate{
			Crop:           lp.Label,
			RawProbability: lp.Probability,
			SeasonalMatch:  p.InSeason(season),
			RegionalMatch:  p.InRegion(region),
			HarvestDate:    now.AddDate(0, 0, p.GrowingDays),
		}

		score := lp.Probability
		if c.SeasonalMatch {
			score += SeasonalBoost
		}
		if c.RegionalMatch {
			score += RegionalBoost
		}
		c.PlantingSuitability = PlantingSuitability(p.PlantingMonths, now.Month())
		score += c.PlantingSuitability * PlantingWeight
		if window, ok := harvestWindows[p.HarvestWindow]; ok && slices.Contains(window, c.HarvestDate.Month()) {
			score += HarvestBoost
		}
		if p.GrowingDays > longDurationDays {
			score -= LongDurationPenalty
		}
		c.AdjustedScore = score
		out = append(out, c)
	}
	return out
}

// Rank returns the top crops ordered by adjusted score. Scores are rescaled
// by the maximum when it exceeds 1. Equal scores keep input order.
func (r *Ranker) Rank(probs []model.LabelProbability, location string, now time.Time) []model.ScoredCandidate {
	scored := r.Score(probs, location, now)
	if len(scored) == 0 {
		return nil
	}

	peak := math.Inf(-1)
	for _, c := range scored {
		peak = max(peak, c.AdjustedScore)
	}
	if peak > 1.0 {
		for i := range scored {
			scored[i].AdjustedScore /= peak
		}
	}

	slices.SortStableFunc(scored, func(a, b model.ScoredCandidate) int {
		switch {
		case a.AdjustedScore > b.AdjustedScore:
			return -1
		case a.AdjustedScore < b.AdjustedScore:
			return 1
		default:
			return 0
		}
	})

	top := scored[:min(TopN, len(scored))]
	for i := range top {
		top[i].Rank = i + 1
	}
	return slices.Clone(top)
}

// Confidence converts an adjusted score to the 0-100 figure shown to users.
// It is a ranking heuristic, not a calibrated probability.
func Confidence(score float64) float64 {
	return math.Round(score*1000) / 10
}
