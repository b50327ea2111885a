// Package http provides HTTP server and handler implementations.
//
// This file implements typed parsing and validation of query parameters.

package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"cropcast/internal/core"
)

// MaxCropLength bounds the crop query parameter.
const MaxCropLength = 100

// Limits holds the defaults and bounds applied to forecast requests.
type Limits struct {
	DefaultCrop    string
	DefaultPeriods int
	MaxPeriods     int
}

// DefaultLimits mirrors the configuration defaults.
func DefaultLimits() Limits {
	return Limits{
		DefaultCrop:    "Rice",
		DefaultPeriods: 7,
		MaxPeriods:     365,
	}
}

// RequestError reports an invalid query parameter.
type RequestError struct {
	Field  string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("Invalid '%s' parameter: %s", e.Field, e.Reason)
}

// ParseForecastRequest reads crop and periods from query, applying defaults for
// absent or blank values.
func ParseForecastRequest(query url.Values, limits Limits) (core.ForecastRequest, error) {
	req := core.ForecastRequest{
		Crop:    limits.DefaultCrop,
		Periods: limits.DefaultPeriods,
	}

	// An empty or whitespace-only crop means "not given" and takes the default,
	// rather than naming a crop called "" that would have no rows.
	if v := strings.TrimSpace(query.Get("crop")); v != "" {
		if utf8.RuneCountInString(v) > MaxCropLength {
			return req, &RequestError{Field: "crop", Reason: fmt.Sprintf("must be at most %d characters", MaxCropLength)}
		}
		req.Crop = v
	}

	if v := strings.TrimSpace(query.Get("periods")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, &RequestError{Field: "periods", Reason: "must be an integer"}
		}
		if n < 1 || n > limits.MaxPeriods {
			return req, &RequestError{Field: "periods", Reason: fmt.Sprintf("must be between 1 and %d", limits.MaxPeriods)}
		}
		req.Periods = n
	}

	return req, nil
}
