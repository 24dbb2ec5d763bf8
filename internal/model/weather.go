package model

import "time"

// WeatherObservation is the weather used to build a feature vector.
// Rainfall may be an estimate; MatchedQuery is empty and IsDefault is set
// when no upstream lookup succeeded.
type WeatherObservation struct {
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	Rainfall     float64   `json:"rainfall"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	Country      string    `json:"country"`
	Date         time.Time `json:"date"`
	MatchedQuery string    `json:"matched_query,omitempty"`
	Latitude     float64   `json:"lat,omitempty"`
	Longitude    float64   `json:"lon,omitempty"`
	IsDefault    bool      `json:"is_default"`

	// RainfallEstimated marks a live reading whose rainfall was synthesised.
	RainfallEstimated bool `json:"rainfall_estimated,omitempty"`
}
