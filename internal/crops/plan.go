package crops

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crop-advisor/internal/model"
	"github.com/sells-group/crop-advisor/internal/soil"
)

// ErrUnknownCrop is returned when a growing plan is requested for a crop
// the knowledge base does not list.
var ErrUnknownCrop = eris.New("crops: growing plan not available")

// UnknownCropError carries the list of crops that do have plans.
type UnknownCropError struct {
	Crop      string
	Available []string
}

func (e *UnknownCropError) Error() string {
	return fmt.Sprintf("growing plan not available for %s", e.Crop)
}

// Is lets errors.Is match ErrUnknownCrop.
func (e *UnknownCropError) Is(target error) bool {
	return target == ErrUnknownCrop
}

// PlanOptions tailors a growing plan to a farm. Zero values skip the
// corresponding customization.
type PlanOptions struct {
	SoilType string
	Weather  *model.WeatherObservation
	FarmSize float64
	Now      time.Time
}

// TimelineStage is a stage placed on the calendar.
type TimelineStage struct {
	Stage
	StartDay  int    `json:"start_day"`
	EndDay    int    `json:"end_day"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Plan is a crop's growing plan customized for a farm.
type Plan struct {
	Crop                    string          `json:"crop"`
	Name                    string          `json:"name"`
	Category                string          `json:"crop_category"`
	DurationDays            int             `json:"duration_days"`
	BestPlantingMonths      []int           `json:"best_planting_months"`
	WaterRequirement        string          `json:"water_requirement"`
	Fertilizer              string          `json:"fertilizer"`
	SoilPHRange             string          `json:"soil_ph_range"`
	TemperatureRange        string          `json:"temperature_range"`
	Stages                  []TimelineStage `json:"stages"`
	Tips                    []string        `json:"tips"`
	SoilTips                []string        `json:"soil_specific_tips,omitempty"`
	WeatherTips             []string        `json:"weather_specific_tips,omitempty"`
	ScaleTips               []string        `json:"scale_tips,omitempty"`
	FarmSizeAcres           float64         `json:"farm_size_acres,omitempty"`
	RecommendedPlantingDate string          `json:"recommended_planting_date"`
	GeneratedAt             time.Time       `json:"generated_date"`
}

var soilAdjustments = map[string][2]string{
	"sandy": {"Increase irrigation frequency due to sandy soil drainage", "Apply fertilizer in smaller, frequent doses"},
	"clay":  {"Reduce irrigation frequency but increase quantity", "Apply organic matter to improve soil structure"},
	"loamy": {"Standard irrigation schedule suitable", "Standard fertilizer application recommended"},
	"silty": {"Monitor drainage to prevent waterlogging", "Standard application with good incorporation"},
}

// Plan builds the growing plan for a crop.
func (kb *KnowledgeBase) Plan(crop string, opts PlanOptions) (*Plan, error) {
	p, ok := kb.Lookup(crop)
	if !ok {
		return nil, &UnknownCropError{Crop: crop, Available: kb.Names()}
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	plantingMonth, plantingYear := NextPlantingMonth(p.PlantingMonths, now)
	start := time.Date(plantingYear, time.Month(plantingMonth), 1, 0, 0, 0, 0, now.Location())
	if plantingMonth == int(now.Month()) && plantingYear == now.Year() {
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}

	plan := &Plan{
		Crop:                    p.Name,
		Name:                    p.DisplayName,
		Category:                p.Category,
		DurationDays:            p.GrowingDays,
		BestPlantingMonths:      p.PlantingMonths,
		WaterRequirement:        p.WaterRequirement,
		Fertilizer:              p.Fertilizer,
		SoilPHRange:             p.PHRange,
		TemperatureRange:        p.TemperatureRange,
		Stages:                  timeline(p.Stages, start),
		Tips:                    p.Tips,
		RecommendedPlantingDate: fmt.Sprintf("%s %d", time.Month(plantingMonth), plantingYear),
		GeneratedAt:             now,
	}

	if opts.SoilType != "" {
		adj, ok := soilAdjustments[soil.Normalize(opts.SoilType)]
		if !ok {
			adj = soilAdjustments["loamy"]
		}
		plan.SoilTips = []string{adj[0], adj[1]}
	}

	if opts.Weather != nil {
		plan.WeatherTips = weatherTips(*opts.Weather)
	}

	if opts.FarmSize > 0 {
		plan.FarmSizeAcres = opts.FarmSize
		plan.ScaleTips = scaleTips(opts.FarmSize)
	}

	return plan, nil
}

// NextPlantingMonth returns the planting month closest ahead of now's month,
// counting cyclically, and the year it falls in. Listed order is irrelevant.
func NextPlantingMonth(months []int, now time.Time) (month, year int) {
	current := int(now.Month())
	if len(months) == 0 {
		return current, now.Year()
	}
	best := 12
	for _, m := range months {
		if d := ((m-current)%12 + 12) % 12; d < best {
			best, month = d, m
		}
	}
	if month < current {
		return month, now.Year() + 1
	}
	return month, now.Year()
}

func timeline(stages []Stage, start time.Time) []TimelineStage {
	out := make([]TimelineStage, 0, len(stages))
	day := 0
	for _, s := range stages {
		end := day + s.DurationDays
		out = append(out, TimelineStage{
			Stage:     s,
			StartDay:  day,
			EndDay:    end,
			StartDate: start.AddDate(0, 0, day).Format(time.DateOnly),
			EndDate:   start.AddDate(0, 0, end).Format(time.DateOnly),
		})
		day = end
	}
	return out
}

func weatherTips(w model.WeatherObservation) []string {
	var tips []string
	switch {
	case w.Temperature > 35:
		tips = append(tips, "Provide shade during peak summer temperatures")
	case w.Temperature < 15:
		tips = append(tips, "Protect from cold using mulching or row covers")
	}
	switch {
	case w.Humidity > 85:
		tips = append(tips, "Ensure good air circulation to prevent fungal diseases")
	case w.Humidity < 50:
		tips = append(tips, "Increase irrigation frequency due to low humidity")
	}
	return tips
}

func scaleTips(acres float64) []string {
	switch {
	case acres < 2:
		return []string{
			"Focus on intensive cultivation methods",
			"Consider high-value crops for better returns",
			"Use drip irrigation for water efficiency",
		}
	case acres > 10:
		return []string{
			"Consider mechanization for efficiency",
			"Plan crop rotation for soil health",
			"Implement integrated pest management",
		}
	}
	return nil
}

// CatalogEntry is the summary shown when listing available crops.
type CatalogEntry struct {
	Crop               string `json:"crop"`
	Name               string `json:"name"`
	DurationDays       int    `json:"duration_days"`
	BestPlantingMonths []int  `json:"best_planting_months"`
	Category           string `json:"category"`
}

// Catalog lists every known crop in label order.
func (kb *KnowledgeBase) Catalog() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(kb.names))
	for _, name := range kb.names {
		p := kb.profiles[name]
		out = append(out, CatalogEntry{
			Crop:               name,
			Name:               p.DisplayName,
			DurationDays:       p.GrowingDays,
			BestPlantingMonths: p.PlantingMonths,
			Category:           p.Category,
		})
	}
	return out
}
