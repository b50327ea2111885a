package core

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestSalesRecordValidate(t *testing.T) {
	good := SalesRecord{Date: NewDate(2025, 1, 1), Crop: "Rice", QuantitySold: 12.5}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []SalesRecord{
		{Date: Date{Time: time.Time{}}, Crop: "Rice", QuantitySold: 1}, // zero date
		{Date: NewDate(2025, 1, 1), Crop: "  ", QuantitySold: 1},
		{Date: NewDate(2025, 1, 1), Crop: "Rice", QuantitySold: -1},
		{Date: NewDate(2025, 1, 1), Crop: "Rice", QuantitySold: math.NaN()},
		{Date: NewDate(2025, 1, 1), Crop: "Rice", QuantitySold: math.Inf(1)},
	}
	for i, r := range bads {
		if err := r.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateOfDropsTime(t *testing.T) {
	in := time.Date(2024, 2, 28, 23, 59, 0, 0, time.UTC)
	d := DateOf(in)
	if d.String() != "2024-02-28" {
		t.Fatalf("got %s", d)
	}
	if d.AddDays(2).String() != "2024-03-01" {
		t.Fatalf("leap day not handled: %s", d.AddDays(2))
	}
}

func TestDateMarshalJSON(t *testing.T) {
	b, err := json.Marshal(ForecastPoint{Date: NewDate(2023, 7, 4), Forecast: 1.5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"Date":"2023-07-04","Forecast":1.5}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestSalesTable(t *testing.T) {
	records := []SalesRecord{
		{Date: NewDate(2024, 1, 2), Crop: "Wheat", QuantitySold: 3},
		{Date: NewDate(2024, 1, 1), Crop: "Rice", QuantitySold: 10},
		{Date: NewDate(2024, 1, 3), Crop: "Rice", QuantitySold: 5.5},
	}
	table := NewSalesTable(records)

	// the table owns its copy
	records[0].Crop = "Maize"

	if table.Len() != 3 {
		t.Fatalf("Len = %d", table.Len())
	}
	if got := table.Crops(); len(got) != 2 || got[0] != "Rice" || got[1] != "Wheat" {
		t.Fatalf("Crops = %v", got)
	}
	rice := table.Filter("Rice")
	if len(rice) != 2 || rice[0].QuantitySold != 10 || rice[1].QuantitySold != 5.5 {
		t.Fatalf("Filter kept wrong rows: %+v", rice)
	}
	if len(table.Filter("rice")) != 0 {
		t.Fatal("Filter should be case-sensitive")
	}
	if table.TotalQuantity() != 18.5 {
		t.Fatalf("TotalQuantity = %v", table.TotalQuantity())
	}
}
