package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropcast/internal/core"
)

func rec(day int, crop string, qty float64) core.SalesRecord {
	return core.SalesRecord{Date: core.NewDate(2023, time.January, day), Crop: crop, QuantitySold: qty}
}

func crops(totals []core.CategoryTotal) []string {
	out := make([]string, len(totals))
	for i, t := range totals {
		out[i] = t.Crop
	}
	return out
}

func TestComputeTotals(t *testing.T) {
	table := core.NewSalesTable([]core.SalesRecord{
		rec(1, "Rice", 10),
		rec(1, "Wheat", 5),
		rec(2, "Rice", 15),
		rec(2, "Maize", 25),
		rec(3, "Barley", 5),
	})

	totals := ComputeTotals(table)
	require.Len(t, totals, 4)
	assert.Equal(t, []string{"Maize", "Rice", "Barley", "Wheat"}, crops(totals))
	assert.Equal(t, 25.0, totals[1].TotalSales)
}

func TestAggregator_BestWorst(t *testing.T) {
	var records []core.SalesRecord
	for i, c := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		records = append(records, rec(1, c, float64(10*(i+1))))
	}
	agg := New(core.NewSalesTable(records))

	bw := agg.BestWorst()
	assert.Equal(t, []string{"G", "F", "E"}, crops(bw.Best))
	assert.Equal(t, []string{"C", "B", "A"}, crops(bw.Worst))

	for _, b := range bw.Best {
		assert.NotContains(t, crops(bw.Worst), b.Crop)
	}
}

func TestAggregator_FewCategories(t *testing.T) {
	agg := New(core.NewSalesTable([]core.SalesRecord{
		rec(1, "Rice", 1),
		rec(1, "Wheat", 2),
	}))

	bw := agg.BestWorst()
	assert.Equal(t, []string{"Wheat", "Rice"}, crops(bw.Best))
	assert.Equal(t, []string{"Wheat", "Rice"}, crops(bw.Worst))

	empty := New(core.SalesTable{}).BestWorst()
	assert.Empty(t, empty.Best)
	assert.Empty(t, empty.Worst)
	assert.NotNil(t, empty.Best, "empty lists must still encode as []")
}

func TestAggregator_SumsMatchTable(t *testing.T) {
	table := core.NewSalesTable([]core.SalesRecord{
		rec(1, "Rice", 10.25),
		rec(2, "Rice", 4.75),
		rec(1, "Wheat", 3.5),
		rec(3, "Soy", 0),
	})
	agg := New(table)

	var sum float64
	for _, tot := range agg.Totals() {
		sum += tot.TotalSales
	}
	assert.InDelta(t, table.TotalQuantity(), sum, 1e-9)
	assert.InDelta(t, table.TotalQuantity(), agg.GrandTotal(), 1e-9)
}

func TestAggregator_ReturnsCopies(t *testing.T) {
	agg := New(core.NewSalesTable([]core.SalesRecord{rec(1, "Rice", 1)}))

	bw := agg.BestWorst()
	bw.Best[0].TotalSales = 999
	agg.Totals()[0].Crop = "mutated"

	assert.Equal(t, core.CategoryTotal{Crop: "Rice", TotalSales: 1}, agg.Totals()[0])
}
