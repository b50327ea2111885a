package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cropcast/internal/core"
	"cropcast/internal/log"
	"cropcast/internal/metrics"
)

// Client-visible error messages.
const (
	msgInsufficientData = "Not enough data to forecast for this crop."
	msgForecastFailed   = "Forecast failed."
	msgRateLimited      = "Too many forecast requests. Please try again later."
	msgRequestCancelled = "Request cancelled."
)

func (s *Server) handleBestWorstSellers(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.svc.BestWorstSellers()).Write(w)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	req, err := ParseForecastRequest(r.URL.Query(), s.limits)
	if err != nil {
		s.metrics.RecordForecast(metrics.OutcomeInvalidRequest)
		logger.WarnContext(ctx, "Invalid forecast request",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeValidation)
		BadRequestError(err.Error()).Write(w)
		return
	}

	result, err := s.svc.Forecast(ctx, req)
	switch {
	case err == nil:
		s.metrics.RecordForecast(metrics.OutcomeOK)
		NewJSONResponse().Body(result).Write(w)

	case errors.Is(err, core.ErrInsufficientData):
		s.metrics.RecordForecast(metrics.OutcomeInsufficientData)
		logger.WarnContext(ctx, "Not enough data to forecast",
			log.FieldCrop, req.Crop,
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeNotFound)
		BadRequestError(msgInsufficientData).Write(w)

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.DebugContext(ctx, "Forecast abandoned", log.FieldCrop, req.Crop, log.FieldError, err.Error())
		ErrorResponse(http.StatusServiceUnavailable, msgRequestCancelled).Write(w)

	default:
		s.metrics.RecordForecast(metrics.OutcomeError)
		log.NewStructuredLogger(logger).LogError(ctx, "Forecast failed", err, log.OpForecast,
			log.NewFields().WithForecast(req.Crop, req.Periods, 0).WithErrorType(log.ErrorTypeModel))
		InternalServerError(msgForecastFailed).Write(w)
	}
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordForecast(metrics.OutcomeRateLimited)
	log.FromContext(r.Context()).WarnContext(r.Context(), "Forecast rate limit exceeded",
		log.FieldClientIP, extractClientIP(r))
	TooManyRequestsError(msgRateLimited).Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports whether the dataset is loaded
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	stats := s.svc.Stats()

	status := "ready"
	httpStatus := http.StatusOK
	datasetStatus := "ok"
	if stats.Records == 0 {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
		datasetStatus = "empty"
	}

	checks := map[string]any{
		"dataset": map[string]any{
			"status":         datasetStatus,
			"records":        stats.Records,
			"crops":          stats.Crops,
			"total_quantity": stats.TotalQuantity,
			"loaded_at":      stats.LoadedAt.Format(time.RFC3339),
		},
	}
	if s.rateLimiter != nil {
		checks["rate_limiter"] = map[string]any{
			"status":         "ok",
			"active_clients": s.rateLimiter.ActiveClients(),
		}
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}
