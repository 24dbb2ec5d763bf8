// Package cost holds the cultivation cost factors applied to gross crop income.
package cost

// Cost classes used by the crop knowledge base.
const (
	ClassCereal = "cereal"
	ClassFruit  = "fruit"
	ClassFiber  = "fiber"
	ClassOther  = "other"
)

// Rates holds the fraction of gross income spent on inputs, per cost class.
type Rates struct {
	Cereal float64 `yaml:"cereal" mapstructure:"cereal"`
	Fruit  float64 `yaml:"fruit" mapstructure:"fruit"`
	Fiber  float64 `yaml:"fiber" mapstructure:"fiber"`
	Other  float64 `yaml:"other" mapstructure:"other"`
}

// Calculator resolves cost factors and net income.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Factor returns the cost factor for a cost class. Unknown classes use Other.
func (c *Calculator) Factor(class string) float64 {
	switch class {
	case ClassCereal:
		return c.rates.Cereal
	case ClassFruit:
		return c.rates.Fruit
	case ClassFiber:
		return c.rates.Fiber
	default:
		return c.rates.Other
	}
}

// Net subtracts the class's cost share from gross income.
func (c *Calculator) Net(gross float64, class string) float64 {
	return gross * (1 - c.Factor(class))
}

// DefaultRates returns the default cost factors.
func DefaultRates() Rates {
	return Rates{
		Cereal: 0.55,
		Fruit:  0.65,
		Fiber:  0.60,
		Other:  0.58,
	}
}
