// Package forecast projects future sales for a single crop with a seasonal ARIMA model.
package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"cropcast/internal/core"
	"cropcast/internal/log"
)

const (
	// MinObservations is the fewest records a crop needs to be forecast.
	MinObservations = 5
	// HistoryLength is how many recent observations accompany a forecast.
	HistoryLength = 7
)

// Observer is notified after every fit attempt.
type Observer interface {
	ObserveFit(crop string, d time.Duration, err error)
}

// Forecaster fits a fresh model per request over a read-only sales table.
type Forecaster struct {
	table    core.SalesTable
	spec     ModelSpec
	fitOpts  FitOptions
	logger   *log.Logger
	observer Observer
}

type Option func(*Forecaster)

func WithSpec(spec ModelSpec) Option {
	return func(f *Forecaster) { f.spec = spec }
}

func WithFitOptions(opts FitOptions) Option {
	return func(f *Forecaster) { f.fitOpts = opts }
}

func WithLogger(logger *log.Logger) Option {
	return func(f *Forecaster) { f.logger = logger.WithComponent(log.ComponentForecast) }
}

func WithObserver(o Observer) Option {
	return func(f *Forecaster) { f.observer = o }
}

func New(table core.SalesTable, opts ...Option) *Forecaster {
	f := &Forecaster{
		table:   table,
		spec:    DefaultSpec,
		fitOpts: DefaultFitOptions,
		logger:  log.New(log.DefaultConfig()).WithComponent(log.ComponentForecast),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Forecast projects periods daily values for crop, starting the day after its
// last observation. The series is positional: gaps between dates are not filled.
func (f *Forecaster) Forecast(ctx context.Context, crop string, periods int) (core.ForecastResult, error) {
	if periods < 1 {
		return core.ForecastResult{}, fmt.Errorf("periods must be positive, got %d", periods)
	}

	records := f.table.Filter(crop)
	if len(records) < MinObservations {
		return core.ForecastResult{}, fmt.Errorf("%w: crop %q has %d records, need %d",
			core.ErrInsufficientData, crop, len(records), MinObservations)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date.Time)
	})

	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.QuantitySold
	}

	if err := ctx.Err(); err != nil {
		return core.ForecastResult{}, err
	}

	start := time.Now()
	projected, spec, err := f.fit(values, periods)
	if f.observer != nil {
		f.observer.ObserveFit(crop, time.Since(start), err)
	}
	if err != nil {
		return core.ForecastResult{}, fmt.Errorf("%w: %s: %w", core.ErrModelFit, crop, err)
	}

	f.logger.DebugContext(ctx, "Model fitted",
		log.FieldCrop, crop,
		log.FieldObservations, len(values),
		"model", spec.String(),
		log.FieldDuration, time.Since(start).Milliseconds())

	last := records[len(records)-1].Date
	result := core.ForecastResult{
		Crop:       crop,
		Historical: history(records, HistoryLength),
		Forecast:   make([]core.ForecastPoint, periods),
	}
	for i, v := range projected {
		result.Forecast[i] = core.ForecastPoint{
			Date:     last.AddDays(i + 1),
			Forecast: Round2(v),
		}
	}
	return result, nil
}

// fit falls back to the non-seasonal model when the series cannot survive seasonal differencing.
func (f *Forecaster) fit(values []float64, periods int) ([]float64, ModelSpec, error) {
	spec := f.spec
	if spec.IsSeasonal() && len(values) <= spec.DifferencingLoss() {
		spec = spec.NonSeasonal()
	}

	model, err := Fit(values, spec, f.fitOpts)
	if err != nil {
		return nil, spec, err
	}

	projected := model.Forecast(periods)
	for i, v := range projected {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, spec, fmt.Errorf("non-finite forecast at step %d", i+1)
		}
	}
	return projected, spec, nil
}

func history(records []core.SalesRecord, n int) []core.HistoricalPoint {
	if len(records) > n {
		records = records[len(records)-n:]
	}
	out := make([]core.HistoricalPoint, len(records))
	for i, r := range records {
		out[i] = core.HistoricalPoint{Date: r.Date, Actual: r.QuantitySold}
	}
	return out
}

// Round2 rounds half away from zero to two decimal places. It rounds the shortest
// decimal form of v, so 2.675 becomes 2.68 even though its binary value is just below.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
