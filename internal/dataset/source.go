// Package dataset turns tabular sales data into a core.SalesTable.
//
// Every source (CSV file, SQLite table, Google Sheet) hands its raw rows to
// DecodeRows so that header lookup, date parsing and quantity validation
// behave the same regardless of where the data lives.
package dataset

import (
	"context"

	"cropcast/internal/core"
)

// Column names expected in the header row.
const (
	ColumnDate     = "Date"
	ColumnCrop     = "Crop"
	ColumnQuantity = "Quantity Sold (kg)"
)

// Source loads the full sales dataset.
type Source interface {
	Load(ctx context.Context) (core.SalesTable, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context) (core.SalesTable, error)

func (f SourceFunc) Load(ctx context.Context) (core.SalesTable, error) {
	return f(ctx)
}
