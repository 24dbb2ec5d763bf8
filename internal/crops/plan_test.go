package crops

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crop-advisor/internal/model"
)

func TestNextPlantingMonth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		months    []int
		now       time.Time
		wantMonth int
		wantYear  int
	}{
		{"current month", []int{5, 6, 7}, time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC), 6, 2026},
		{"later this year", []int{11, 12}, time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC), 11, 2026},
		{"next year", []int{5, 6, 7}, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), 5, 2027},
		{"unsorted list in December", []int{12, 1, 2}, time.Date(2026, 12, 5, 0, 0, 0, 0, time.UTC), 12, 2026},
		{"apple in January", []int{12, 1, 2}, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 1, 2026},
		{"banana in January", []int{6, 7, 8, 2, 3}, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 2, 2026},
		{"mango in January", []int{7, 8, 2, 3}, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 2, 2026},
		{"wraps past December", []int{7, 3, 1}, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), 1, 2027},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, y := NextPlantingMonth(tt.months, tt.now)
			assert.Equal(t, tt.wantMonth, m)
			assert.Equal(t, tt.wantYear, y)
		})
	}
}

func TestPlan_Unknown(t *testing.T) {
	t.Parallel()
	kb := loadKB(t)

	_, err := kb.Plan("quinoa", PlanOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCrop))

	var uce *UnknownCropError
	require.ErrorAs(t, err, &uce)
	assert.Len(t, uce.Available, 23)
}

func TestPlan_UnsortedPlantingMonths(t *testing.T) {
	t.Parallel()
	kb := loadKB(t)
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		crop string
		want string
	}{
		{"apple", "January 2026"},
		{"banana", "February 2026"},
		{"mango", "February 2026"},
		{"papaya", "February 2026"},
	}
	for _, tt := range tests {
		t.Run(tt.crop, func(t *testing.T) {
			t.Parallel()
			plan, err := kb.Plan(tt.crop, PlanOptions{Now: now})
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.RecommendedPlantingDate)
		})
	}
}

func TestPlan_SoilTipsNormalizeLabel(t *testing.T) {
	t.Parallel()
	kb := loadKB(t)

	plan, err := kb.Plan("wheat", PlanOptions{SoilType: " Sandy ", Now: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, "Increase irrigation frequency due to sandy soil drainage", plan.SoilTips[0])
}

func TestPlan_Customized(t *testing.T) {
	t.Parallel()
	kb := loadKB(t)
	now := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	plan, err := kb.Plan("Wheat", PlanOptions{
		SoilType: "sandy",
		Weather:  &model.WeatherObservation{Temperature: 12, Humidity: 90},
		FarmSize: 12,
		Now:      now,
	})
	require.NoError(t, err)

	assert.Equal(t, "wheat", plan.Crop)
	assert.Equal(t, "Cereal", plan.Category)
	assert.Equal(t, "November 2026", plan.RecommendedPlantingDate)
	assert.Equal(t, []string{
		"Increase irrigation frequency due to sandy soil drainage",
		"Apply fertilizer in smaller, frequent doses",
	}, plan.SoilTips)
	assert.Equal(t, []string{
		"Protect from cold using mulching or row covers",
		"Ensure good air circulation to prevent fungal diseases",
	}, plan.WeatherTips)
	assert.Contains(t, plan.ScaleTips, "Consider mechanization for efficiency")
	assert.InDelta(t, 12, plan.FarmSizeAcres, 0.001)

	require.NotEmpty(t, plan.Stages)
	assert.Equal(t, 0, plan.Stages[0].StartDay)
	assert.Equal(t, "2026-11-01", plan.Stages[0].StartDate)
	for i := 1; i < len(plan.Stages); i++ {
		assert.Equal(t, plan.Stages[i-1].EndDay, plan.Stages[i].StartDay)
	}
}

func TestPlan_UnlistedSoilUsesLoamyTips(t *testing.T) {
	t.Parallel()
	kb := loadKB(t)

	plan, err := kb.Plan("rice", PlanOptions{SoilType: "peaty", FarmSize: 1.5, Now: time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	assert.Equal(t, "Standard irrigation schedule suitable", plan.SoilTips[0])
	assert.Contains(t, plan.ScaleTips, "Focus on intensive cultivation methods")
	assert.Empty(t, plan.WeatherTips)
	assert.Equal(t, "June 2026", plan.RecommendedPlantingDate)
	assert.Equal(t, "2026-06-03", plan.Stages[0].StartDate)
}

func TestPlan_NoCustomization(t *testing.T) {
	t.Parallel()
	kb := loadKB(t)

	plan, err := kb.Plan("mango", PlanOptions{FarmSize: 5})
	require.NoError(t, err)
	assert.Nil(t, plan.SoilTips)
	assert.Nil(t, plan.WeatherTips)
	assert.Nil(t, plan.ScaleTips)
	assert.False(t, plan.GeneratedAt.IsZero())
}

func TestCatalog(t *testing.T) {
	t.Parallel()
	kb := loadKB(t)

	cat := kb.Catalog()
	require.Len(t, cat, 23)
	assert.Equal(t, "apple", cat[0].Crop)
	for _, e := range cat {
		assert.NotEmpty(t, e.Name)
		assert.Positive(t, e.DurationDays)
		assert.Contains(t, []string{"Cereal", "Pulse", "Fruit", "Cash Crop"}, e.Category)
	}
}
