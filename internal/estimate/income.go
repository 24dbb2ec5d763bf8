// Package estimate computes expected net income for a crop on a farm.
package estimate

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crop-advisor/internal/cost"
	"github.com/sells-group/crop-advisor/internal/crops"
	"github.com/sells-group/crop-advisor/internal/model"
	"github.com/sells-group/crop-advisor/internal/soil"
)

// soilFactors is the general productivity multiplier per soil type.
// Crop-specific entries in the knowledge base take precedence.
var soilFactors = map[string]float64{
	"loamy":        1.2,
	"black_cotton": 1.15,
	"clay":         1.1,
	"silty":        1.05,
	"sandy":        0.8,
	"chalky":       0.9,
	"peaty":        0.95,
	"saline":       0.6,
}

// PriceSource supplies observed market prices. A nil price with a nil
// error means no observation exists.
type PriceSource interface {
	LatestPrice(ctx context.Context, crop string) (*model.MarketPrice, error)
}

// Breakdown shows every term of an income estimate.
type Breakdown struct {
	Crop            string       `json:"crop"`
	PricePerQuintal float64      `json:"price_per_quintal"`
	PriceSource     string       `json:"price_source"` // "reference" or "market"
	YieldPerAcre    float64      `json:"yield_per_acre"`
	FarmSize        float64      `json:"farm_size"`
	SoilFactor      float64      `json:"soil_factor"`
	IncomeSeason    model.Season `json:"income_season,omitempty"`
	SeasonalFactor  float64      `json:"seasonal_factor"`
	CostFactor      float64      `json:"cost_factor"`
	NetIncome       float64      `json:"net_income"`
}

// IncomeEstimator computes expected net income in rupees.
type IncomeEstimator struct {
	kb     *crops.KnowledgeBase
	costs  *cost.Calculator
	prices PriceSource
}

// NewIncomeEstimator creates an estimator. prices may be nil, in which case
// reference prices from the knowledge base are always used.
func NewIncomeEstimator(kb *crops.KnowledgeBase, costs *cost.Calculator, prices PriceSource) *IncomeEstimator {
	return &IncomeEstimator{kb: kb, costs: costs, prices: prices}
}

// Estimate returns the net income rounded to two decimals.
func (e *IncomeEstimator) Estimate(ctx context.Context, crop string, farmSize float64, soilType string, date time.Time) float64 {
	return e.Breakdown(ctx, crop, farmSize, soilType, date).NetIncome
}

// Breakdown computes the income estimate along with its inputs.
//
// net = price * yield * farm size * soil factor * seasonal factor * (1 - cost factor)
func (e *IncomeEstimator) Breakdown(ctx context.Context, crop string, farmSize float64, soilType string, date time.Time) Breakdown {
	p := e.kb.Profile(crop)
	b := Breakdown{
		Crop:            p.Name,
		PricePerQuintal: p.PricePerQuintal,
		PriceSource:     "reference",
		YieldPerAcre:    p.YieldPerAcre,
		FarmSize:        farmSize,
		SoilFactor:      SoilFactor(p, soilType),
		IncomeSeason:    IncomeSeason(p.IncomeSeasons),
		CostFactor:      e.costs.Factor(p.CostClass),
	}
	b.SeasonalFactor = SeasonalFactor(b.IncomeSeason, date.Month())

	if price, ok := e.marketPrice(ctx, p.Name); ok {
		b.PricePerQuintal = price
		b.PriceSource = "market"
	}

	gross := b.PricePerQuintal * b.YieldPerAcre * farmSize * b.SoilFactor * b.SeasonalFactor
	b.NetIncome = math.Round(e.costs.Net(gross, p.CostClass)*100) / 100
	return b
}

// marketPrice looks up the latest observed price. Failures are logged and
// fall back to the reference price.
func (e *IncomeEstimator) marketPrice(ctx context.Context, crop string) (float64, bool) {
	if e.prices == nil {
		return 0, false
	}
	mp, err := e.prices.LatestPrice(ctx, crop)
	if err != nil {
		zap.L().Warn("estimate: market price lookup failed, using reference price",
			zap.String("crop", crop),
			zap.Error(err),
		)
		return 0, false
	}
	if mp == nil || mp.PricePerQuintal <= 0 {
		return 0, false
	}
	return mp.PricePerQuintal, true
}

// SoilFactor returns the productivity multiplier for a crop on a soil type.
func SoilFactor(p crops.Profile, soilType string) float64 {
	key := soil.Normalize(soilType)
	if f, ok := p.SoilFactors[key]; ok {
		return f
	}
	if f, ok := soilFactors[key]; ok {
		return f
	}
	return 1.0
}
