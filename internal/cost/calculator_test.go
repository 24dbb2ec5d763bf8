package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactor(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(DefaultRates())

	tests := []struct {
		class string
		want  float64
	}{
		{ClassCereal, 0.55},
		{ClassFruit, 0.65},
		{ClassFiber, 0.60},
		{ClassOther, 0.58},
		{"", 0.58},
		{"spice", 0.58},
	}
	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.Factor(tt.class), 1e-9)
		})
	}
}

func TestNet(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(Rates{Cereal: 0.5, Fruit: 0.25, Fiber: 0.1, Other: 0})

	assert.InDelta(t, 50.0, calc.Net(100, ClassCereal), 1e-9)
	assert.InDelta(t, 75.0, calc.Net(100, ClassFruit), 1e-9)
	assert.InDelta(t, 90.0, calc.Net(100, ClassFiber), 1e-9)
	assert.InDelta(t, 100.0, calc.Net(100, "unknown"), 1e-9)
	assert.InDelta(t, 0.0, calc.Net(0, ClassFruit), 1e-9)
}
