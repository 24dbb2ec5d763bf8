package classifier

import (
	"math"
	"slices"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crop-advisor/internal/model"
)

// varSmoothing is added to every class variance. Features are standardised
// first, so it is an absolute floor on unit-scale variances.
const varSmoothing = 1e-9

// Train fits a model to labelled samples. At least two distinct labels are
// required.
func Train(samples []Sample) (*Model, error) {
	if len(samples) == 0 {
		return nil, eris.New("classifier: no training samples")
	}

	byLabel := map[string][]model.FeatureVector{}
	for _, s := range samples {
		byLabel[s.Label] = append(byLabel[s.Label], s.Features)
	}
	if len(byLabel) < 2 {
		return nil, eris.Errorf("classifier: need at least 2 labels, got %d", len(byLabel))
	}
	labels := make([]string, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	slices.Sort(labels)

	all := make([]model.FeatureVector, len(samples))
	for i, s := range samples {
		all[i] = s.Features
	}
	mean, variance := moments(all)
	scale := make([]float64, model.FeatureCount)
	for i, v := range variance {
		scale[i] = math.Sqrt(v)
		if scale[i] == 0 {
			scale[i] = 1
		}
	}

	m := &Model{
		Version:   bundleVersion,
		Features:  slices.Clone(model.FeatureNames[:]),
		Labels:    labels,
		Mean:      mean[:],
		Scale:     scale,
		LogPrior:  make([]float64, len(labels)),
		Theta:     make([][]float64, len(labels)),
		Var:       make([][]float64, len(labels)),
		Samples:   len(samples),
		TrainedAt: time.Now().UTC(),
	}

	// Standardised features have unit variance, so smoothing is relative to 1
	// unless a column was constant.
	epsilon := varSmoothing
	for c, label := range labels {
		rows := byLabel[label]
		scaled := make([]model.FeatureVector, len(rows))
		for r, fv := range rows {
			for i := range fv {
				scaled[r][i] = (fv[i] - mean[i]) / scale[i]
			}
		}
		theta, v := moments(scaled)
		m.Theta[c] = theta[:]
		m.Var[c] = make([]float64, model.FeatureCount)
		for i := range v {
			m.Var[c][i] = v[i] + epsilon
		}
		m.LogPrior[c] = math.Log(float64(len(rows)) / float64(len(samples)))
	}
	return m, nil
}

// moments returns the per-column mean and population variance.
func moments(rows []model.FeatureVector) (mean, variance [model.FeatureCount]float64) {
	n := float64(len(rows))
	for _, r := range rows {
		for i, v := range r {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= n
	}
	for _, r := range rows {
		for i, v := range r {
			d := v - mean[i]
			variance[i] += d * d
		}
	}
	for i := range variance {
		variance[i] /= n
	}
	return mean, variance
}
