// Package app wires the loaded configuration into the estimator components.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"laptopprice/catalog"
	"laptopprice/config"
	"laptopprice/db"
	"laptopprice/ml"
	"laptopprice/monitoring"
)

// App holds the immutable, process-lifetime handles.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Catalog   *catalog.Catalog
	Deriver   *ml.Deriver
	Service   *ml.Service
	Formatter *ml.PriceFormatter
	Store     db.Store // nil when persistence is disabled
	Metrics   *monitoring.Collector
}

func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dataset, err := catalog.LoadDataset(cfg.Dataset.Path)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	cat, err := catalog.NewCatalog(dataset, cfg.Sorted())
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	logger.Info("catalog loaded", zap.String("path", cfg.Dataset.Path), zap.Bool("sorted", cfg.Sorted()))

	model, err := ml.LoadModel(cfg.Model.Type, cfg.Model.Path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	logger.Info("model loaded", zap.String("type", cfg.Model.Type), zap.String("path", cfg.Model.Path))

	service, err := ml.NewService(model, ml.ServiceConfig{
		Margin:    cfg.Margin(),
		CacheSize: cfg.Cache.Size,
	}, logger.Named("predict"))
	if err != nil {
		return nil, err
	}
	formatter, err := ml.NewPriceFormatter(cfg.Pricing.CurrencySymbol, cfg.Pricing.Locale)
	if err != nil {
		return nil, fmt.Errorf("pricing.locale: %w", err)
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Catalog:   cat,
		Deriver:   ml.NewDeriver(cat),
		Service:   service,
		Formatter: formatter,
		Metrics:   monitoring.NewCollector(),
	}
	if cfg.Persist() {
		store, err := db.Open(cfg.Store.Driver, cfg.StoreSource())
		if err != nil {
			return nil, err
		}
		a.Store = store
		logger.Info("prediction store opened", zap.String("driver", cfg.Store.Driver))
	}
	return a, nil
}

// Estimate is the outcome of one interaction.
type Estimate struct {
	Spec     ml.LaptopSpec       `json:"spec"`
	Features ml.DerivedFeatures  `json:"features"`
	Result   ml.PredictionResult `json:"result"`
	Display  string              `json:"display"`
	RecordID int64               `json:"record_id,omitempty"`
	Warning  string              `json:"warning,omitempty"`
}

// Estimate runs the input range checks, derive, predict and, when enabled,
// save. Invalid input and
// prediction failures return an error with nothing persisted. A failed save
// only sets Warning.
func (a *App) Estimate(ctx context.Context, spec ml.LaptopSpec) (Estimate, error) {
	start := time.Now()
	defer func() {
		a.Metrics.ObserveDuration(time.Since(start))
	}()

	features, err := a.derive(spec)
	if err != nil {
		a.Metrics.CountEstimate(monitoring.OutcomeInvalid)
		return Estimate{}, err
	}
	result, err := a.Service.Predict(ctx, features)
	if err != nil {
		a.Metrics.CountEstimate(monitoring.OutcomeFailed)
		a.Logger.Error("prediction failed", zap.Error(err))
		return Estimate{}, err
	}
	a.Metrics.CountEstimate(monitoring.OutcomeOK)

	est := Estimate{
		Spec:     spec,
		Features: features,
		Result:   result,
		Display:  a.Formatter.Format(result),
	}
	if a.Store == nil {
		return est, nil
	}
	record := db.NewRecord(spec, features, result, time.Now())
	id, err := a.Store.Save(ctx, record)
	if err != nil {
		a.Metrics.CountStorageWarning()
		a.Logger.Warn("prediction not persisted", zap.Error(err))
		est.Warning = "estimate could not be saved"
		return est, nil
	}
	est.RecordID = id
	return est, nil
}

func (a *App) derive(spec ml.LaptopSpec) (ml.DerivedFeatures, error) {
	if err := ml.CheckFormRanges(spec); err != nil {
		return ml.DerivedFeatures{}, err
	}
	return a.Deriver.Derive(spec)
}

func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
