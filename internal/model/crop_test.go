package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewFeatureVector_Order(t *testing.T) {
	t.Parallel()

	soil := SoilProfile{Type: "loamy", N: 80, P: 42, K: 40, PH: 6.8}
	w := WeatherObservation{Temperature: 29.5, Humidity: 78, Rainfall: 12.4}

	fv := NewFeatureVector(soil, w)
	assert.Equal(t, FeatureVector{80, 42, 40, 29.5, 78, 6.8, 12.4}, fv)
	assert.Len(t, FeatureNames, FeatureCount)
	assert.Equal(t, "ph", FeatureNames[5])
}

func TestSessionExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s := Session{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Hour)))
	assert.True(t, s.Expired(now.Add(2*time.Hour)))
}
