package weather

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sells-group/crop-advisor/internal/model"
)

type monthly struct {
	temperature float64
	humidity    float64
	rainfall    float64 // mm per month
}

// averages are indicative Indian climate normals, January first.
var averages = [12]monthly{
	{18, 60, 15},
	{21, 55, 20},
	{26, 50, 20},
	{30, 45, 25},
	{33, 50, 50},
	{31, 70, 180},
	{28, 85, 300},
	{28, 85, 280},
	{28, 80, 180},
	{26, 70, 80},
	{22, 65, 25},
	{19, 62, 12},
}

// DefaultObservation is the seasonal-average observation for a location
// that could not be resolved.
func DefaultObservation(location string, now time.Time) model.WeatherObservation {
	a := averages[now.Month()-1]
	return model.WeatherObservation{
		Temperature: a.temperature,
		Humidity:    a.humidity,
		Rainfall:    a.rainfall,
		Description: "seasonal average (live weather unavailable)",
		Location:    Clean(location),
		Country:     "IN",
		Date:        now,
		IsDefault:   true,
	}
}

// box is an inclusive latitude/longitude rectangle.
type box struct{ latMin, latMax, lonMin, lonMax float64 }

func (b box) contains(lat, lon float64) bool {
	return lat >= b.latMin && lat <= b.latMax && lon >= b.lonMin && lon <= b.lonMax
}

var (
	coastal   = box{8, 21, 72, 76}  // western coast and Kerala
	interior  = box{24, 31, 74, 84} // north Indian plains
	northeast = box{22, 29, 89, 97}
)

// minLiveRainfall is the reading below which rainfall is synthesised.
const minLiveRainfall = 0.1

// RandSource yields uniform values in [0, 1).
type RandSource interface {
	Float64() float64
}

// lockedRand guards a *rand.Rand for concurrent use.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandSource returns a concurrency-safe source seeded from seed.
func NewRandSource(seed uint64) RandSource {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// EstimateRainfall synthesises a daily rainfall figure from the monthly
// normal, the location's coordinates and humidity.
func EstimateRainfall(month time.Month, lat, lon, humidity float64, rnd RandSource) float64 {
	est := averages[month-1].rainfall / 30
	if coastal.contains(lat, lon) {
		est *= 1.4
	}
	if interior.contains(lat, lon) {
		est *= 0.7
	}
	if northeast.contains(lat, lon) {
		est *= 1.5
	}
	est *= 0.9 + humidity/1000
	est *= 0.9 + 0.2*rnd.Float64()
	return est
}
