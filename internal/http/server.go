package http

import (
	"context"
	"net/http"
	"time"

	"cropcast/internal/core"
	"cropcast/internal/log"
	"cropcast/internal/metrics"
	"cropcast/internal/middleware/cors"
	"cropcast/internal/middleware/ratelimit"
	"cropcast/internal/middleware/security"
	"cropcast/internal/middleware/trace"
	"cropcast/internal/services"
)

// Route paths.
const (
	PathBestWorst = "/best_worst_sellers"
	PathForecast  = "/forecast"
	PathHealth    = "/healthz"
	PathReady     = "/readyz"
	PathMetrics   = "/metrics"
)

// SalesAPI is the read-only service the handlers depend on.
type SalesAPI interface {
	BestWorstSellers() core.BestWorst
	Forecast(ctx context.Context, req core.ForecastRequest) (core.ForecastResult, error)
	Stats() services.DatasetStats
}

// Options configures the server beyond its address and service.
type Options struct {
	Logger             *log.Logger
	Metrics            *metrics.Metrics
	Limits             Limits
	CORSAllowedOrigins []string
	// ForecastRateLimit is forecasts per minute per client; 0 disables limiting.
	ForecastRateLimit int
}

type Server struct {
	http.Server
	svc         SalesAPI
	logger      *log.Logger
	metrics     *metrics.Metrics
	limits      Limits
	rateLimiter *ratelimit.Limiter
	started     time.Time
}

// NewServer wires routes and middleware around svc.
func NewServer(addr string, svc SalesAPI, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Limits.MaxPeriods == 0 {
		opts.Limits = DefaultLimits()
	}

	s := &Server{
		svc:     svc,
		logger:  opts.Logger.WithComponent(log.ComponentHTTP),
		metrics: opts.Metrics,
		limits:  opts.Limits,
		started: time.Now(),
	}

	var forecast http.Handler = http.HandlerFunc(s.handleForecast)
	if opts.ForecastRateLimit > 0 {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.ForecastRateLimit})
		forecast = s.rateLimiter.Middleware(extractClientIP, s.handleRateLimited)(forecast)
	}

	mux := http.NewServeMux()
	mux.Handle(PathBestWorst, getOnly(http.HandlerFunc(s.handleBestWorstSellers)))
	mux.Handle(PathForecast, getOnly(forecast))
	mux.Handle(PathHealth, getOnly(http.HandlerFunc(s.handleHealth)))
	mux.Handle(PathReady, getOnly(http.HandlerFunc(s.handleReady)))
	mux.Handle(PathMetrics, getOnly(s.metrics.Handler()))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(opts.Logger, extractClientIP, s.metrics,
		PathBestWorst, PathForecast, PathHealth, PathReady, PathMetrics)

	var handler http.Handler = mux
	handler = headers.Middleware(handler)
	handler = cors.Middleware(opts.CORSAllowedOrigins)(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops background work and drains connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	return s.Server.Shutdown(ctx)
}

func getOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			MethodNotAllowedError(http.MethodGet).Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
