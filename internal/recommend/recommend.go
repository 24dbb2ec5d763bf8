// Package recommend runs the crop recommendation pipeline: soil mapping,
// weather resolution, classification, re-ranking and enrichment.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crop-advisor/internal/classifier"
	"github.com/sells-group/crop-advisor/internal/crops"
	"github.com/sells-group/crop-advisor/internal/model"
	"github.com/sells-group/crop-advisor/internal/ranker"
	"github.com/sells-group/crop-advisor/internal/soil"
)

var (
	// ErrInvalidInput matches every request validation failure.
	ErrInvalidInput = eris.New("recommend: invalid input")
	// ErrWarmingUp is returned while the classifier is still being trained.
	ErrWarmingUp = eris.New("recommend: model training in progress")
)

// InputError describes a rejected request field. It matches ErrInvalidInput.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// Is lets errors.Is match ErrInvalidInput.
func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// ConfidenceNote accompanies every result so callers do not read the
// confidence figure as a probability.
const ConfidenceNote = "Confidence is a ranking score that combines the model's probability " +
	"with seasonal, regional and planting-time adjustments. It is not a calibrated probability."

// Predictor is the classifier as the pipeline sees it.
type Predictor interface {
	Ready() bool
	Predict(fv model.FeatureVector) ([]model.LabelProbability, error)
	TriggerTraining() bool
}

// WeatherSource resolves a location. It never fails.
type WeatherSource interface {
	Resolve(ctx context.Context, location string) model.WeatherObservation
}

// IncomeEstimator prices a crop for a farm.
type IncomeEstimator interface {
	Estimate(ctx context.Context, crop string, farmSize float64, soilType string, date time.Time) float64
}

// Request is a recommendation request.
type Request struct {
	SoilType string
	Location string
	FarmSize float64
	UserID   string // optional; only logged
}

// SoilAnalysis is the derived soil profile with its health report.
type SoilAnalysis struct {
	model.SoilProfile
	Health soil.Report `json:"health"`
}

// Result is a complete recommendation.
type Result struct {
	Success          bool                     `json:"success"`
	Recommendations  []model.Recommendation   `json:"recommendations"`
	Weather          model.WeatherObservation `json:"weather_data"`
	SoilAnalysis     SoilAnalysis             `json:"soil_analysis"`
	FarmSize         float64                  `json:"farm_size"`
	Location         string                   `json:"location"`
	Season           model.Season             `json:"season"`
	Region           model.Region             `json:"region,omitempty"`
	PlantingTimeline []model.PlantingWindow   `json:"planting_timeline"`
	ConfidenceNote   string                   `json:"confidence_note"`
	GeneratedAt      time.Time                `json:"generated_at"`
}

// Engine wires the pipeline's collaborators.
type Engine struct {
	kb      *crops.KnowledgeBase
	model   Predictor
	weather WeatherSource
	income  IncomeEstimator
	ranker  *ranker.Ranker
	now     func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(kb *crops.KnowledgeBase, p Predictor, w WeatherSource, income IncomeEstimator) *Engine {
	return &Engine{
		kb:      kb,
		model:   p,
		weather: w,
		income:  income,
		ranker:  ranker.New(kb),
		now:     time.Now,
	}
}

// Validate normalizes a request and rejects bad input.
func Validate(req Request) (Request, error) {
	req.SoilType = strings.TrimSpace(req.SoilType)
	req.Location = strings.TrimSpace(req.Location)
	switch {
	case req.SoilType == "":
		return req, &InputError{Msg: "soil_type is required"}
	case req.Location == "":
		return req, &InputError{Msg: "location is required"}
	case math.IsNaN(req.FarmSize) || math.IsInf(req.FarmSize, 0):
		return req, &InputError{Msg: "farm_size must be a number"}
	case req.FarmSize < 0:
		return req, &InputError{Msg: "farm_size must not be negative"}
	}
	return req, nil
}

// Recommend produces the top crops for a request. While no model is
// installed it starts background training and returns ErrWarmingUp.
func (e *Engine) Recommend(ctx context.Context, req Request) (*Result, error) {
	req, err := Validate(req)
	if err != nil {
		return nil, err
	}
	if !e.model.Ready() {
		e.warmUp()
		return nil, ErrWarmingUp
	}

	now := e.now()
	log := zap.L().With(
		zap.String("component", "recommend"),
		zap.String("location", req.Location),
		zap.String("soil_type", req.SoilType),
	)
	if req.UserID != "" {
		log = log.With(zap.String("user_id", req.UserID))
	}

	profile := soil.Map(req.SoilType, now.Month())
	obs := e.weather.Resolve(ctx, req.Location)

	probs, err := e.model.Predict(model.NewFeatureVector(profile, obs))
	if errors.Is(err, classifier.ErrNotReady) {
		e.warmUp()
		return nil, ErrWarmingUp
	}
	if err != nil {
		return nil, eris.Wrap(err, "recommend: classify")
	}

	top := e.ranker.Rank(probs, req.Location, now)
	if len(top) == 0 {
		return nil, eris.New("recommend: classifier returned no labels")
	}

	recs := make([]model.Recommendation, len(top))
	timeline := make([]model.PlantingWindow, len(top))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range top {
		g.Go(func() error {
			p := e.kb.Profile(c.Crop)
			recs[i] = e.recommendation(gctx, c, p, req, now)
			timeline[i] = plantingWindow(p, now)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "recommend: enrich")
	}

	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Crop
	}
	log.Info("recommend: ranked crops",
		zap.Strings("crops", names),
		zap.Bool("default_weather", obs.IsDefault),
	)

	return &Result{
		Success:          true,
		Recommendations:  recs,
		Weather:          obs,
		SoilAnalysis:     SoilAnalysis{SoilProfile: profile, Health: soil.Evaluate(profile)},
		FarmSize:         req.FarmSize,
		Location:         req.Location,
		Season:           ranker.SeasonOf(now.Month()),
		Region:           ranker.RegionOf(req.Location),
		PlantingTimeline: timeline,
		ConfidenceNote:   ConfidenceNote,
		GeneratedAt:      now,
	}, nil
}

func (e *Engine) warmUp() {
	if e.model.TriggerTraining() {
		zap.L().Info("recommend: model not ready, background training started")
	}
}

func (e *Engine) recommendation(ctx context.Context, c model.ScoredCandidate, p crops.Profile, req Request, now time.Time) model.Recommendation {
	return model.Recommendation{
		Crop:                  c.Crop,
		Confidence:            ranker.Confidence(c.AdjustedScore),
		ExpectedIncome:        e.income.Estimate(ctx, c.Crop, req.FarmSize, req.SoilType, now),
		Rank:                  c.Rank,
		SeasonalMatch:         c.SeasonalMatch,
		GrowingPeriod:         fmt.Sprintf("%d days", p.GrowingDays),
		WaterRequirements:     p.WaterRequirement,
		SoilSuitability:       p.SoilSuitability,
		Description:           p.Description,
		PlantingSuitability:   math.Round(c.PlantingSuitability*1000) / 10,
		DaysToHarvest:         p.GrowingDays,
		HarvestDate:           c.HarvestDate.Format(time.DateOnly),
		IsOptimalPlantingTime: c.PlantingSuitability == 1.0,
		OptimalPlantingMonths: monthNames(p.PlantingMonths),
	}
}

// plantingWindow places a crop's next sowing and the harvest that follows.
func plantingWindow(p crops.Profile, now time.Time) model.PlantingWindow {
	month, year := crops.NextPlantingMonth(p.PlantingMonths, now)
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, now.Location())
	if year == now.Year() && time.Month(month) == now.Month() {
		start = now
	}
	return model.PlantingWindow{
		Crop:         p.Name,
		PlantingDate: start.Format(time.DateOnly),
		HarvestDate:  start.AddDate(0, 0, p.GrowingDays).Format(time.DateOnly),
		DurationDays: p.GrowingDays,
	}
}

func monthNames(months []int) []string {
	out := make([]string, len(months))
	for i, m := range months {
		out[i] = time.Month(m).String()
	}
	return out
}
