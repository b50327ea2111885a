package services

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"cropcast/internal/analytics"
	"cropcast/internal/cache"
	"cropcast/internal/core"
	"cropcast/internal/dataset"
	"cropcast/internal/forecast"
	"cropcast/internal/log"
)

// DatasetStats summarizes the loaded dataset
type DatasetStats struct {
	Records  int       `json:"records"`
	Crops    int       `json:"crops"`
	LoadedAt time.Time `json:"loaded_at"`

	// TotalQuantity is the sum of Quantity Sold (kg) over every record
	TotalQuantity float64 `json:"total_quantity"`
}

// SalesService answers aggregation and forecast queries over a dataset loaded once.
// It is never mutated after construction and is safe for concurrent use.
type SalesService struct {
	table      core.SalesTable
	aggregator *analytics.Aggregator
	forecaster *forecast.Forecaster
	defaults   core.ForecastRequest
	stats      DatasetStats
	logger     *log.Logger
	structured *log.StructuredLogger

	// results is nil when caching is disabled
	results cache.Cache[core.ForecastResult]
	flight  singleflight.Group
}

type Option func(*options)

type options struct {
	logger   *log.Logger
	defaults core.ForecastRequest
	observer forecast.Observer
	spec     forecast.ModelSpec
	results  cache.Cache[core.ForecastResult]
}

// WithLogger sets the service logger
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDefaults sets the crop and horizon used when a request leaves them empty
func WithDefaults(crop string, periods int) Option {
	return func(o *options) { o.defaults = core.ForecastRequest{Crop: crop, Periods: periods} }
}

// WithFitObserver reports model fit timings
func WithFitObserver(obs forecast.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithModelSpec overrides the forecasting model
func WithModelSpec(spec forecast.ModelSpec) Option {
	return func(o *options) { o.spec = spec }
}

// WithForecastCache stores forecast results in c keyed by crop and horizon.
// Identical concurrent requests share one model fit.
func WithForecastCache(c cache.Cache[core.ForecastResult]) Option {
	return func(o *options) { o.results = c }
}

// NewSalesService precomputes totals over table.
func NewSalesService(table core.SalesTable, opts ...Option) (*SalesService, error) {
	if table.Len() == 0 {
		return nil, core.ErrEmptyDataset
	}

	o := options{
		logger:   log.New(log.DefaultConfig()),
		defaults: core.ForecastRequest{Crop: "Rice", Periods: 7},
		spec:     forecast.DefaultSpec,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.spec.Validate(); err != nil {
		return nil, err
	}

	fopts := []forecast.Option{forecast.WithLogger(o.logger), forecast.WithSpec(o.spec)}
	if o.observer != nil {
		fopts = append(fopts, forecast.WithObserver(o.observer))
	}

	logger := o.logger.WithComponent(log.ComponentAnalytics)
	agg := analytics.New(table)
	return &SalesService{
		table:      table,
		aggregator: agg,
		forecaster: forecast.New(table, fopts...),
		defaults:   o.defaults,
		stats: DatasetStats{
			Records:  table.Len(),
			Crops:    len(table.Crops()),
			LoadedAt: time.Now().UTC(),

			TotalQuantity: agg.GrandTotal(),
		},
		logger:     logger,
		structured: log.NewStructuredLogger(o.logger.WithComponent(log.ComponentForecast)),
		results:    o.results,
	}, nil
}

// LoadSalesService reads src once and builds the service from it.
func LoadSalesService(ctx context.Context, src dataset.Source, opts ...Option) (*SalesService, error) {
	table, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return NewSalesService(table, opts...)
}

// BestWorstSellers returns the top and bottom three crops by total quantity sold.
func (s *SalesService) BestWorstSellers() core.BestWorst {
	return s.aggregator.BestWorst()
}

// Forecast fills empty request fields from the defaults and runs the forecaster.
func (s *SalesService) Forecast(ctx context.Context, req core.ForecastRequest) (core.ForecastResult, error) {
	req = s.withDefaults(req)
	if s.results == nil {
		return s.compute(ctx, req)
	}

	key := cacheKey(req)
	if res, ok := s.results.Get(key); ok {
		s.logger.DebugContext(ctx, "Forecast served from cache", log.FieldCrop, req.Crop, log.FieldPeriods, req.Periods)
		return cloneResult(res), nil
	}

	// The shared fit outlives any single caller; each caller still honors its own ctx.
	ch := s.flight.DoChan(key, func() (any, error) {
		res, err := s.compute(context.WithoutCancel(ctx), req)
		if err != nil {
			return nil, err
		}
		s.results.Set(key, res)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return core.ForecastResult{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return core.ForecastResult{}, r.Err
		}
		return cloneResult(r.Val.(core.ForecastResult)), nil
	}
}

func (s *SalesService) compute(ctx context.Context, req core.ForecastRequest) (core.ForecastResult, error) {
	start := time.Now()
	result, err := s.forecaster.Forecast(ctx, req.Crop, req.Periods)
	if err != nil {
		return core.ForecastResult{}, err
	}

	s.structured.LogForecast(ctx, req.Crop, req.Periods, len(s.table.Filter(req.Crop)), time.Since(start).Milliseconds())
	return result, nil
}

func cacheKey(req core.ForecastRequest) string {
	return req.Crop + "\x00" + strconv.Itoa(req.Periods)
}

func cloneResult(r core.ForecastResult) core.ForecastResult {
	r.Historical = slices.Clone(r.Historical)
	r.Forecast = slices.Clone(r.Forecast)
	return r
}

// Defaults returns the request used when the caller specifies nothing.
func (s *SalesService) Defaults() core.ForecastRequest {
	return s.defaults
}

// Stats describes the loaded dataset.
func (s *SalesService) Stats() DatasetStats {
	return s.stats
}

func (s *SalesService) withDefaults(req core.ForecastRequest) core.ForecastRequest {
	if req.Crop == "" {
		req.Crop = s.defaults.Crop
	}
	if req.Periods == 0 {
		req.Periods = s.defaults.Periods
	}
	return req
}
