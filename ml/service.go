package ml

import (
	"context"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultMargin is the fixed half-width of the displayed range. It is a
// stand-in for model uncertainty, not derived from residuals.
const DefaultMargin = 1000

// PredictionResult is the currency estimate and its display range.
type PredictionResult struct {
	LogPrice float64 `json:"log_price"`
	Amount   int     `json:"amount"`
	Low      int     `json:"low"`
	High     int     `json:"high"`
}

type ServiceConfig struct {
	Margin    int
	CacheSize int
}

// Service wraps a loaded model.
type Service struct {
	model  Regressor
	margin int
	cache  *lru.Cache[string, float64]
	logger *zap.Logger
}

func NewService(model Regressor, config ServiceConfig, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	margin := config.Margin
	if margin < 0 {
		margin = DefaultMargin
	}
	s := &Service{model: model, margin: margin, logger: logger}
	if config.CacheSize > 0 {
		cache, err := lru.New[string, float64](config.CacheSize)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

func (s *Service) Predict(ctx context.Context, features DerivedFeatures) (PredictionResult, error) {
	if s.model == nil {
		return PredictionResult{}, &PredictionError{Cause: ErrModelNotLoaded}
	}
	record := features.Record()
	key := record.Key()

	logPrice, hit := s.lookup(key)
	if !hit {
		var err error
		logPrice, err = s.model.Predict(ctx, record)
		if err != nil {
			s.logger.Warn("model invocation failed", zap.Error(err))
			return PredictionResult{}, &PredictionError{Cause: err}
		}
	}

	result, err := s.toRange(logPrice)
	if err != nil {
		return PredictionResult{}, &PredictionError{Cause: err}
	}
	if !hit && s.cache != nil {
		s.cache.Add(key, logPrice)
	}
	s.logger.Debug("price estimated",
		zap.Float64("log_price", logPrice),
		zap.Int("amount", result.Amount),
		zap.Bool("cached", hit),
	)
	return result, nil
}

func (s *Service) lookup(key string) (float64, bool) {
	if s.cache == nil {
		return 0, false
	}
	return s.cache.Get(key)
}

func (s *Service) toRange(logPrice float64) (PredictionResult, error) {
	if math.IsNaN(logPrice) || math.IsInf(logPrice, 0) {
		return PredictionResult{}, ErrInvalidEstimate
	}
	price := math.Exp(logPrice)
	if price >= float64(math.MaxInt-s.margin) {
		return PredictionResult{}, ErrEstimateOverflow
	}
	amount := int(price)
	return PredictionResult{
		LogPrice: logPrice,
		Amount:   amount,
		Low:      amount - s.margin,
		High:     amount + s.margin,
	}, nil
}
