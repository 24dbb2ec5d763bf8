package model

import "time"

// FeatureCount is the number of inputs the classifier expects.
const FeatureCount = 7

// FeatureNames lists the classifier inputs in vector order.
var FeatureNames = [FeatureCount]string{"N", "P", "K", "temperature", "humidity", "ph", "rainfall"}

// FeatureVector is the ordered classifier input:
// N, P, K, temperature, humidity, pH, rainfall.
type FeatureVector [FeatureCount]float64

// NewFeatureVector assembles a vector from a soil profile and a weather observation.
func NewFeatureVector(soil SoilProfile, w WeatherObservation) FeatureVector {
	return FeatureVector{soil.N, soil.P, soil.K, w.Temperature, w.Humidity, soil.PH, w.Rainfall}
}

// SoilProfile is the nutrient and pH profile derived from a soil-type label.
type SoilProfile struct {
	Type string  `json:"type"`
	N    float64 `json:"N"`
	P    float64 `json:"P"`
	K    float64 `json:"K"`
	PH   float64 `json:"pH"`
}

// Season is a coarse meteorological season.
type Season string

const (
	SeasonWinter  Season = "winter"
	SeasonSummer  Season = "summer"
	SeasonMonsoon Season = "monsoon"
)

// Region is a coarse geographic region inferred from a location string.
type Region string

const (
	RegionNone  Region = ""
	RegionNorth Region = "north"
	RegionSouth Region = "south"
	RegionEast  Region = "east"
	RegionWest  Region = "west"
)

// LabelProbability is one entry of a classifier's output distribution.
type LabelProbability struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// ScoredCandidate is a crop considered by the ranker.
type ScoredCandidate struct {
	Crop                string    `json:"crop"`
	RawProbability      float64   `json:"raw_probability"`
	AdjustedScore       float64   `json:"adjusted_score"`
	PlantingSuitability float64   `json:"planting_suitability"`
	SeasonalMatch       bool      `json:"seasonal_match"`
	RegionalMatch       bool      `json:"regional_match"`
	HarvestDate         time.Time `json:"harvest_date"`
	Rank                int       `json:"rank"`
}

// Recommendation is a ranked crop enriched with income and growing details.
type Recommendation struct {
	Crop                  string   `json:"crop"`
	Confidence            float64  `json:"confidence"`
	ExpectedIncome        float64  `json:"expected_income"`
	Rank                  int      `json:"rank"`
	SeasonalMatch         bool     `json:"seasonal_match"`
	GrowingPeriod         string   `json:"growing_period"`
	WaterRequirements     string   `json:"water_requirements"`
	SoilSuitability       string   `json:"soil_suitability"`
	Description           string   `json:"description"`
	PlantingSuitability   float64  `json:"planting_suitability"`
	DaysToHarvest         int      `json:"days_to_harvest"`
	HarvestDate           string   `json:"harvest_date"`
	IsOptimalPlantingTime bool     `json:"is_optimal_planting_time"`
	OptimalPlantingMonths []string `json:"optimal_planting_months"`
}

// PlantingWindow summarizes when a recommended crop goes in and comes out.
type PlantingWindow struct {
	Crop         string `json:"crop"`
	PlantingDate string `json:"planting_date"`
	HarvestDate  string `json:"harvest_date"`
	DurationDays int    `json:"duration_days"`
}

// MarketPrice is one observed mandi price for a crop.
type MarketPrice struct {
	Market          string    `json:"market"`
	Crop            string    `json:"crop"`
	PricePerQuintal float64   `json:"price_per_quintal"`
	ObservedOn      time.Time `json:"observed_on"`
}
