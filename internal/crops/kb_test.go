package crops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crop-advisor/internal/model"
)

func loadKB(t *testing.T) *KnowledgeBase {
	t.Helper()
	kb, err := Load()
	require.NoError(t, err)
	return kb
}

func TestLoad_Embedded(t *testing.T) {
	t.Parallel()
	kb := loadKB(t)

	assert.Equal(t, 23, kb.Len())
	names := kb.Names()
	assert.Equal(t, "apple", names[0])
	assert.Contains(t, names, "wheat")
	assert.IsNonDecreasing(t, names)
}

func TestLookup_CaseInsensitive(t *testing.T) {
	t.Parallel()
	kb := loadKB(t)

	p, ok := kb.Lookup("  RICE ")
	require.True(t, ok)
	assert.Equal(t, "rice", p.Name)
	assert.Equal(t, 120, p.GrowingDays)
	assert.Equal(t, []int{5, 6, 7}, p.PlantingMonths)
	assert.InDelta(t, 2500, p.PricePerQuintal, 0.001)
	assert.InDelta(t, 25, p.YieldPerAcre, 0.001)
	assert.True(t, p.Known)
}

func TestProfile_UnknownFallsBack(t *testing.T) {
	t.Parallel()
	kb := loadKB(t)

	p := kb.Profile("dragonfruit")
	assert.False(t, p.Known)
	assert.Equal(t, "dragonfruit", p.Name)
	assert.Equal(t, "Dragonfruit", p.DisplayName)
	assert.InDelta(t, DefaultPricePerQuintal, p.PricePerQuintal, 0.001)
	assert.InDelta(t, DefaultYieldPerAcre, p.YieldPerAcre, 0.001)
	assert.Equal(t, 120, p.GrowingDays)
	assert.Empty(t, p.PlantingMonths)
}

func TestProfile_SeasonAndRegionMembership(t *testing.T) {
	t.Parallel()
	kb := loadKB(t)

	rice := kb.Profile("rice")
	assert.True(t, rice.InSeason(model.SeasonSummer))
	assert.True(t, rice.InSeason(model.SeasonMonsoon))
	assert.False(t, rice.InSeason(model.SeasonWinter))
	assert.True(t, rice.InRegion(model.RegionNorth))
	assert.False(t, rice.InRegion(model.RegionWest))
	assert.False(t, rice.InRegion(model.RegionNone))

	wheat := kb.Profile("wheat")
	assert.True(t, wheat.InSeason(model.SeasonWinter))
	assert.Equal(t, model.SeasonSummer, wheat.HarvestWindow)
}

func TestHarvestWindowsAreExclusive(t *testing.T) {
	t.Parallel()
	kb := loadKB(t)

	counts := map[model.Season]int{}
	for _, name := range kb.Names() {
		p := kb.Profile(name)
		if p.HarvestWindow != "" {
			counts[p.HarvestWindow]++
		}
	}
	assert.Equal(t, 4, counts[model.SeasonWinter])
	assert.Equal(t, 6, counts[model.SeasonSummer])
	assert.Equal(t, 6, counts[model.SeasonMonsoon])
}

func TestHarvestMonths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		planting []int
		days     int
		want     []int
	}{
		{"rice", []int{5, 6, 7}, 120, []int{9, 10, 11}},
		{"wheat wraps year", []int{11, 12}, 120, []int{3, 4}},
		{"annual lands on same month", []int{6}, 365, []int{6}},
		{"none", nil, 90, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, harvestMonths(tt.planting, tt.days))
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("crops: {}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no crops")

	_, err = Parse([]byte("crops:\n  bad:\n    growing_days: 0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "growing_days")

	_, err = Parse([]byte("crops:\n  bad:\n    growing_days: 10\n    planting_months: [13]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid planting month")

	_, err = Parse([]byte("crops: ["))
	require.Error(t, err)
}
