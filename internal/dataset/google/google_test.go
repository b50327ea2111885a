package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cropcast/internal/core"
)

type fakeReader struct {
	values  [][]any
	err     error
	lastRng string
}

func (f *fakeReader) Values(_ context.Context, _ string, rng string) ([][]any, error) {
	f.lastRng = rng
	return f.values, f.err
}

func TestSource_Load(t *testing.T) {
	reader := &fakeReader{values: [][]any{
		{"Date", "Crop", "Quantity Sold (kg)"},
		{"2023-01-01", "Rice", 120.5},
		{"2023-01-02", "Rice", "99"},
		{},
		{"2023-01-02", "Wheat", float64(40)},
	}}

	table, err := New(reader, "sheet-id", "Sales").Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reader.lastRng != "Sales!A:Z" {
		t.Errorf("range = %q", reader.lastRng)
	}
	if table.Len() != 3 {
		t.Fatalf("records = %d, want 3", table.Len())
	}
	if got := table.TotalQuantity(); got != 259.5 {
		t.Errorf("total = %v, want 259.5", got)
	}
}

func TestSource_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		reader  *fakeReader
		wantErr error
	}{
		{"api failure", &fakeReader{err: errors.New("quota")}, nil},
		{"empty sheet", &fakeReader{}, core.ErrEmptyDataset},
		{"bad quantity", &fakeReader{values: [][]any{
			{"Date", "Crop", "Quantity Sold (kg)"},
			{"2023-01-01", "Rice", "-1"},
		}}, core.ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.reader, "id", "Sales").Load(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if _, err := credentialsFromEnv(); err == nil {
		t.Fatal("expected error without credentials")
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	got, err := credentialsFromEnv()
	if err != nil || string(got) != `{"type":"service_account"}` {
		t.Fatalf("file credentials = %q, %v", got, err)
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"inline":true}`)
	got, err = credentialsFromEnv()
	if err != nil || string(got) != `{"inline":true}` {
		t.Fatalf("inline credentials = %q, %v", got, err)
	}
}
