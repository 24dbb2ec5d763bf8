package classifier

import (
	"context"
	"errors"
	"io/fs"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/crop-advisor/internal/fetcher"
	"github.com/sells-group/crop-advisor/internal/model"
)

// ErrNotReady is returned by Predict before a model is loaded or trained.
var ErrNotReady = eris.New("classifier: model not ready")

// Status is the lifecycle state reported by /health.
type Status string

const (
	StatusLoaded    Status = "loaded"
	StatusTraining  Status = "training"
	StatusNotLoaded Status = "not_loaded"
)

// Hooks receive lifecycle events. Either field may be nil.
type Hooks struct {
	Trained func(d time.Duration, err error)
	Ready   func(ready bool)
}

// Options configures a Service.
type Options struct {
	ModelPath    string        // bundle location; empty disables persistence
	TrainingData string        // CSV path or URL; empty uses the reference dataset
	TrainTimeout time.Duration // bound for background runs; default 10m
	Fetcher      *fetcher.HTTPFetcher
	Hooks        Hooks
}

// Service owns the active model. Predictions read it without locking; a
// retrain swaps it atomically.
type Service struct {
	opts Options

	current   atomic.Pointer[Model]
	training  atomic.Bool
	triggered atomic.Bool
	group     singleflight.Group
}

// NewService creates a Service with no model loaded.
func NewService(opts Options) *Service {
	if opts.TrainTimeout <= 0 {
		opts.TrainTimeout = 10 * time.Minute
	}
	return &Service{opts: opts}
}

// LoadFromDisk installs the bundle at ModelPath. A missing file is not an
// error; the service simply stays not ready.
func (s *Service) LoadFromDisk() error {
	if s.opts.ModelPath == "" {
		return nil
	}
	m, err := Load(s.opts.ModelPath)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Info("classifier: no saved model", zap.String("path", s.opts.ModelPath))
		return nil
	}
	if err != nil {
		return err
	}
	s.install(m)
	zap.L().Info("classifier: model loaded",
		zap.String("path", s.opts.ModelPath),
		zap.Int("labels", len(m.Labels)),
		zap.Time("trained_at", m.TrainedAt),
	)
	return nil
}

// Ready reports whether a model is installed.
func (s *Service) Ready() bool { return s.current.Load() != nil }

// Status reports the lifecycle state.
func (s *Service) Status() Status {
	switch {
	case s.Ready():
		return StatusLoaded
	case s.training.Load() || s.triggered.Load():
		return StatusTraining
	default:
		return StatusNotLoaded
	}
}

// Model returns the active model, or nil.
func (s *Service) Model() *Model { return s.current.Load() }

// Predict classifies a feature vector with the active model.
func (s *Service) Predict(fv model.FeatureVector) ([]model.LabelProbability, error) {
	m := s.current.Load()
	if m == nil {
		return nil, ErrNotReady
	}
	return m.Predict(fv), nil
}

// Train fits a new model, saves it and installs it. Concurrent callers
// share one run.
func (s *Service) Train(ctx context.Context) (*Model, error) {
	v, err, _ := s.group.Do("train", func() (any, error) {
		s.training.Store(true)
		defer s.training.Store(false)
		return s.train(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Model), nil
}

// TriggerTraining starts a background run unless one is already pending.
// It reports whether a run was started.
func (s *Service) TriggerTraining() bool {
	if !s.triggered.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer s.triggered.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.TrainTimeout)
		defer cancel()
		if _, err := s.Train(ctx); err != nil {
			zap.L().Error("classifier: background training failed", zap.Error(err))
		}
	}()
	return true
}

func (s *Service) train(ctx context.Context) (*Model, error) {
	start := time.Now()
	m, err := s.fit(ctx)
	if s.opts.Hooks.Trained != nil {
		s.opts.Hooks.Trained(time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}
	s.install(m)
	zap.L().Info("classifier: training complete",
		zap.Int("samples", m.Samples),
		zap.Int("labels", len(m.Labels)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return m, nil
}

func (s *Service) fit(ctx context.Context) (*Model, error) {
	samples, err := LoadSamples(ctx, s.opts.Fetcher, s.opts.TrainingData)
	if err != nil {
		return nil, err
	}
	m, err := Train(samples)
	if err != nil {
		return nil, err
	}
	if s.opts.ModelPath != "" {
		if err := m.Save(s.opts.ModelPath); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (s *Service) install(m *Model) {
	s.current.Store(m)
	if s.opts.Hooks.Ready != nil {
		s.opts.Hooks.Ready(true)
	}
}
