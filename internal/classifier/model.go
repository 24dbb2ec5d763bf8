// Package classifier trains, persists and serves the crop classifier that
// maps a soil and weather feature vector to a distribution over crop labels.
package classifier

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crop-advisor/internal/model"
)

// ErrDimension is returned when a bundle does not match the feature layout.
var ErrDimension = eris.New("classifier: feature dimension mismatch")

// bundleVersion is bumped whenever the JSON layout changes.
const bundleVersion = 1

// Model is a Gaussian naive Bayes classifier over standardised features.
// It is immutable after training and safe for concurrent use.
type Model struct {
	Version   int         `json:"version"`
	Features  []string    `json:"features"`
	Labels    []string    `json:"labels"`
	Mean      []float64   `json:"scaler_mean"`
	Scale     []float64   `json:"scaler_scale"`
	LogPrior  []float64   `json:"log_prior"`
	Theta     [][]float64 `json:"theta"`
	Var       [][]float64 `json:"var"`
	Samples   int         `json:"samples"`
	TrainedAt time.Time   `json:"trained_at"`
}

// Predict returns the posterior probability of every label, in label order.
func (m *Model) Predict(fv model.FeatureVector) []model.LabelProbability {
	var x [model.FeatureCount]float64
	for i, v := range fv {
		x[i] = (v - m.Mean[i]) / m.Scale[i]
	}

	joint := make([]float64, len(m.Labels))
	for c := range m.Labels {
		ll := m.LogPrior[c]
		for i := range x {
			d := x[i] - m.Theta[c][i]
			ll -= 0.5*math.Log(2*math.Pi*m.Var[c][i]) + d*d/(2*m.Var[c][i])
		}
		joint[c] = ll
	}

	top := slices.Max(joint)
	var sum float64
	for c := range joint {
		joint[c] = math.Exp(joint[c] - top)
		sum += joint[c]
	}

	out := make([]model.LabelProbability, len(m.Labels))
	for c, label := range m.Labels {
		out[c] = model.LabelProbability{Label: label, Probability: joint[c] / sum}
	}
	return out
}

// Best returns the most probable label. Ties go to the earlier label.
func (m *Model) Best(fv model.FeatureVector) string {
	probs := m.Predict(fv)
	best := 0
	for i, p := range probs {
		if p.Probability > probs[best].Probability {
			best = i
		}
	}
	return probs[best].Label
}

// Evaluate returns the fraction of samples whose label is predicted correctly.
func (m *Model) Evaluate(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var hits int
	for _, s := range samples {
		if m.Best(s.Features) == s.Label {
			hits++
		}
	}
	return float64(hits) / float64(len(samples))
}

func (m *Model) validate() error {
	if m.Version != bundleVersion {
		return eris.Errorf("classifier: unsupported bundle version %d", m.Version)
	}
	if !slices.Equal(m.Features, model.FeatureNames[:]) {
		return eris.Wrapf(ErrDimension, "features %v", m.Features)
	}
	if len(m.Mean) != model.FeatureCount || len(m.Scale) != model.FeatureCount {
		return eris.Wrap(ErrDimension, "scaler")
	}
	n := len(m.Labels)
	if n == 0 || len(m.LogPrior) != n || len(m.Theta) != n || len(m.Var) != n {
		return eris.Wrapf(ErrDimension, "%d labels", n)
	}
	for c := range n {
		if len(m.Theta[c]) != model.FeatureCount || len(m.Var[c]) != model.FeatureCount {
			return eris.Wrapf(ErrDimension, "label %q", m.Labels[c])
		}
		for _, v := range m.Var[c] {
			if v <= 0 {
				return eris.Errorf("classifier: non-positive variance for label %q", m.Labels[c])
			}
		}
	}
	for _, s := range m.Scale {
		if s <= 0 {
			return eris.New("classifier: non-positive scaler scale")
		}
	}
	return nil
}

// Save writes the bundle as JSON, replacing any existing file atomically.
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "classifier: create model dir")
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return eris.Wrap(err, "classifier: encode bundle")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".bundle-*")
	if err != nil {
		return eris.Wrap(err, "classifier: create temp bundle")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "classifier: write bundle")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "classifier: close bundle")
	}
	return eris.Wrap(os.Rename(tmp.Name(), path), "classifier: install bundle")
}

// Load reads and validates a bundle written by Save.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classifier: read bundle %s", path)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "classifier: decode bundle")
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
