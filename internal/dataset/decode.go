package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cropcast/internal/core"
)

var ErrMissingColumn = errors.New("missing column")

// dateLayouts are tried in order.
var dateLayouts = []string{
	core.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

// Columns holds the positions of the required columns in a header row.
type Columns struct {
	Date     int
	Crop     int
	Quantity int
}

// LocateColumns finds the required columns by name. Extra columns are ignored.
func LocateColumns(header []string) (Columns, error) {
	cols := Columns{Date: -1, Crop: -1, Quantity: -1}
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case ColumnDate:
			cols.Date = i
		case ColumnCrop:
			cols.Crop = i
		case ColumnQuantity:
			cols.Quantity = i
		}
	}

	var missing []string
	if cols.Date < 0 {
		missing = append(missing, ColumnDate)
	}
	if cols.Crop < 0 {
		missing = append(missing, ColumnCrop)
	}
	if cols.Quantity < 0 {
		missing = append(missing, ColumnQuantity)
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

// DecodeRows converts a header and its data rows into a SalesTable.
// Row numbers in errors are 1-based and count data rows only.
func DecodeRows(header []string, rows [][]string) (core.SalesTable, error) {
	cols, err := LocateColumns(header)
	if err != nil {
		return core.SalesTable{}, err
	}

	records := make([]core.SalesRecord, 0, len(rows))
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		rec, err := cols.Decode(row)
		if err != nil {
			return core.SalesTable{}, fmt.Errorf("row %d: %w", i+1, err)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return core.SalesTable{}, core.ErrEmptyDataset
	}
	return core.NewSalesTable(records), nil
}

// Decode builds a validated record from one data row.
func (c Columns) Decode(row []string) (core.SalesRecord, error) {
	date, err := ParseDate(cell(row, c.Date))
	if err != nil {
		return core.SalesRecord{}, err
	}
	qty, err := ParseQuantity(cell(row, c.Quantity))
	if err != nil {
		return core.SalesRecord{}, err
	}

	rec := core.SalesRecord{
		Date:         date,
		Crop:         strings.TrimSpace(cell(row, c.Crop)),
		QuantitySold: qty,
	}
	if err := rec.Validate(); err != nil {
		return core.SalesRecord{}, err
	}
	return rec, nil
}

// ParseDate accepts the supported layouts and truncates to the calendar day.
func ParseDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, core.ErrZeroDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t), nil
		}
	}
	return core.Date{}, fmt.Errorf("parse date %q: unsupported format", s)
}

// ParseQuantity parses a non-negative finite quantity.
func ParseQuantity(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", core.ErrInvalidQuantity)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", core.ErrInvalidQuantity, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidQuantity, s)
	}
	return v, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
