// Package csvfile reads the sales dataset from a CSV file on disk.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"cropcast/internal/core"
	"cropcast/internal/dataset"
)

type Source struct {
	path string
}

var _ dataset.Source = (*Source)(nil)

func New(path string) *Source {
	return &Source{path: path}
}

// Path returns the file the source reads.
func (s *Source) Path() string {
	return s.path
}

func (s *Source) Load(ctx context.Context) (core.SalesTable, error) {
	if err := ctx.Err(); err != nil {
		return core.SalesTable{}, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return core.SalesTable{}, fmt.Errorf("open dataset %s: %w", s.path, err)
	}
	defer f.Close()

	table, err := Read(f)
	if err != nil {
		return core.SalesTable{}, fmt.Errorf("dataset %s: %w", s.path, err)
	}
	return table, nil
}

// Read decodes CSV content whose first record is the header.
func Read(r io.Reader) (core.SalesTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return core.SalesTable{}, core.ErrEmptyDataset
		}
		return core.SalesTable{}, fmt.Errorf("read header: %w", err)
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return core.SalesTable{}, fmt.Errorf("read rows: %w", err)
	}

	return dataset.DecodeRows(header, rows)
}
