// Package google reads the sales dataset from a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"cropcast/internal/core"
	"cropcast/internal/dataset"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// ValuesReader fetches a range of cell values.
type ValuesReader interface {
	Values(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
}

type Source struct {
	reader        ValuesReader
	spreadsheetID string
	sheetName     string
}

var _ dataset.Source = (*Source)(nil)

// New returns a source backed by reader. The sheet's first row must be the header.
func New(reader ValuesReader, spreadsheetID, sheetName string) *Source {
	return &Source{
		reader:        reader,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}
}

// NewFromEnv builds a source authenticated with service account credentials from the environment.
func NewFromEnv(ctx context.Context, spreadsheetID, sheetName string) (*Source, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(&serviceReader{svc: svc}, spreadsheetID, sheetName), nil
}

func (s *Source) Load(ctx context.Context) (core.SalesTable, error) {
	rng := fmt.Sprintf("%s!A:Z", s.sheetName)
	values, err := s.reader.Values(ctx, s.spreadsheetID, rng)
	if err != nil {
		return core.SalesTable{}, fmt.Errorf("read %s: %w", rng, err)
	}
	if len(values) == 0 {
		return core.SalesTable{}, core.ErrEmptyDataset
	}

	header := toStrings(values[0])
	rows := make([][]string, 0, len(values)-1)
	for _, v := range values[1:] {
		rows = append(rows, toStrings(v))
	}

	table, err := dataset.DecodeRows(header, rows)
	if err != nil {
		return core.SalesTable{}, fmt.Errorf("sheet %s: %w", s.sheetName, err)
	}

	slog.InfoContext(ctx, "Loaded sales from Google Sheets",
		"sheet", s.sheetName,
		"records", table.Len())
	return table, nil
}

func toStrings(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case nil:
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

type serviceReader struct {
	svc *gsheet.Service
}

func (r *serviceReader) Values(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := r.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// newSheetsService initializes a read-only Sheets service using service account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := credentialsFromEnv()
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func credentialsFromEnv() ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); v != "" {
		return []byte(v), nil
	}

	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}
