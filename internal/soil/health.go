package soil

import "github.com/sells-group/crop-advisor/internal/model"

// Health status bands.
const (
	StatusVeryPoor  = "Very Poor"
	StatusPoor      = "Poor"
	StatusModerate  = "Moderate"
	StatusGood      = "Good"
	StatusExcellent = "Excellent"
)

// NutrientStatus holds a label per nutrient.
type NutrientStatus struct {
	N  string `json:"N"`
	P  string `json:"P"`
	K  string `json:"K"`
	PH string `json:"pH"`
}

// Report is the outcome of a soil health evaluation.
type Report struct {
	Score     int            `json:"score"`
	Status    string         `json:"status"`
	Nutrients NutrientStatus `json:"nutrients"`
	Tips      []string       `json:"tips"`
}

type band struct {
	points int
	label  string
	good   bool
}

func nutrientBand(v, high, mid float64) band {
	switch {
	case v >= high:
		return band{30, "Good", true}
	case v >= mid:
		return band{20, "Moderate", false}
	default:
		return band{10, "Low", false}
	}
}

func phBand(ph float64) band {
	switch {
	case ph >= 6.0 && ph <= 7.5:
		return band{20, "Optimal", true}
	case ph >= 5.5 && ph <= 8.0:
		return band{12, "Acceptable", false}
	default:
		return band{5, "Poor", false}
	}
}

var soilTypeTips = map[string]string{
	"sandy":        "Sandy soil drains fast: add compost and mulch to hold moisture",
	"clay":         "Clay soil compacts easily: add organic matter and avoid working it wet",
	"loamy":        "Loamy soil is well balanced: maintain it with crop rotation",
	"silty":        "Silty soil crusts easily: keep it covered and avoid heavy traffic",
	"peaty":        "Peaty soil is acidic: apply lime and ensure drainage",
	"chalky":       "Chalky soil is alkaline: use acidifying fertilizers and extra organic matter",
	"saline":       "Saline soil: leach salts with good-quality water and grow salt-tolerant crops",
	"black_cotton": "Black cotton soil cracks when dry: irrigate lightly and often",
}

// Evaluate scores a soil profile and suggests improvements.
func Evaluate(p model.SoilProfile) Report {
	n := nutrientBand(p.N, 80, 50)
	ph := phBand(p.PH)
	pp := nutrientBand(p.P, 40, 25)
	k := nutrientBand(p.K, 40, 25)

	// Sub-scores can sum to 110; the reported score is capped at 100.
	score := min(n.points+pp.points+k.points+ph.points, 100)
	r := Report{
		Score:     score,
		Status:    status(score),
		Nutrients: NutrientStatus{N: n.label, P: pp.label, K: k.label, PH: ph.label},
	}

	if n.good && pp.good && k.good && ph.good {
		r.Tips = append(r.Tips, "Nutrient levels are well balanced; maintain them with organic manure and crop rotation")
	} else {
		r.Tips = append(r.Tips, deficiencyTips(p)...)
	}
	if tip, ok := soilTypeTips[Normalize(p.Type)]; ok {
		r.Tips = append(r.Tips, tip)
	}
	return r
}

func status(score int) string {
	switch {
	case score < 30:
		return StatusVeryPoor
	case score < 50:
		return StatusPoor
	case score < 70:
		return StatusModerate
	case score < 90:
		return StatusGood
	default:
		return StatusExcellent
	}
}

func deficiencyTips(p model.SoilProfile) []string {
	var tips []string
	switch {
	case p.N < 50:
		tips = append(tips, "Nitrogen is low: apply urea or well-rotted manure, or grow a legume cover crop")
	case p.N > 140:
		tips = append(tips, "Nitrogen is high: cut back nitrogen fertilizer to avoid lush foliage and lodging")
	}
	switch {
	case p.P < 25:
		tips = append(tips, "Phosphorus is low: apply single super phosphate or bone meal at sowing")
	case p.P > 100:
		tips = append(tips, "Phosphorus is high: skip phosphate fertilizer this season")
	}
	switch {
	case p.K < 25:
		tips = append(tips, "Potassium is low: apply muriate of potash or wood ash")
	case p.K > 150:
		tips = append(tips, "Potassium is high: avoid potash fertilizer and monitor magnesium")
	}
	switch {
	case p.PH < 5.5:
		tips = append(tips, "Soil is too acidic: apply agricultural lime")
	case p.PH > 8.0:
		tips = append(tips, "Soil is too alkaline: apply gypsum or elemental sulfur")
	}
	return tips
}
