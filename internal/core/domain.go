package core

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	// SalesRecord is one row of the sales dataset.
	SalesRecord struct {
		Date         Date
		Crop         string
		QuantitySold float64
	}

	// SalesTable holds the dataset in load order. It is never mutated after construction.
	SalesTable struct {
		records []SalesRecord
	}
)

var (
	ErrZeroDate         = errors.New("date cannot be zero")
	ErrEmptyCrop        = errors.New("empty crop")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrEmptyDataset     = errors.New("dataset has no records")
	ErrInsufficientData = errors.New("insufficient data to forecast")
	ErrModelFit         = errors.New("model fit failed")
)

// NewDate returns midnight UTC of the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time-of-day part of t, keeping its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON renders the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (r SalesRecord) Validate() error {
	if r.Date.IsZero() {
		return ErrZeroDate
	}
	if strings.TrimSpace(r.Crop) == "" {
		return ErrEmptyCrop
	}
	if math.IsNaN(r.QuantitySold) || math.IsInf(r.QuantitySold, 0) || r.QuantitySold < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// NewSalesTable copies records into a new table. Records are kept in the given order.
func NewSalesTable(records []SalesRecord) SalesTable {
	out := make([]SalesRecord, len(records))
	copy(out, records)
	return SalesTable{records: out}
}

// Len returns the number of records.
func (t SalesTable) Len() int {
	return len(t.records)
}

// Records returns a copy of the records in load order.
func (t SalesTable) Records() []SalesRecord {
	out := make([]SalesRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Filter returns the records for crop in load order.
func (t SalesTable) Filter(crop string) []SalesRecord {
	var out []SalesRecord
	for _, r := range t.records {
		if r.Crop == crop {
			out = append(out, r)
		}
	}
	return out
}

// Crops returns the distinct crop labels sorted by name.
func (t SalesTable) Crops() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.records {
		if _, ok := seen[r.Crop]; ok {
			continue
		}
		seen[r.Crop] = struct{}{}
		out = append(out, r.Crop)
	}
	sort.Strings(out)
	return out
}

// TotalQuantity sums QuantitySold over every record.
func (t SalesTable) TotalQuantity() float64 {
	var sum float64
	for _, r := range t.records {
		sum += r.QuantitySold
	}
	return sum
}
