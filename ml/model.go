package ml

import "context"

// Regressor is an opaque, pre-trained model: one record in, one log-price out.
type Regressor interface {
	Predict(ctx context.Context, record Record) (float64, error)
}

// Estimator scores an already encoded feature vector.
type Estimator interface {
	Predict(vector []float64) (float64, error)
}

// Pipeline chains the column encoder and the fitted estimator, mirroring the
// exported training pipeline.
type Pipeline struct {
	Encoder   *OneHotEncoder
	Estimator Estimator
}

func (p *Pipeline) Predict(ctx context.Context, record Record) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if p.Encoder == nil || p.Estimator == nil {
		return 0, ErrModelNotLoaded
	}
	vector, err := p.Encoder.Encode(record)
	if err != nil {
		return 0, err
	}
	return p.Estimator.Predict(vector)
}
