// Package analytics computes per-crop sales totals and best/worst rankings.
package analytics

import (
	"sort"

	"cropcast/internal/core"
)

// DefaultRankSize is how many crops each side of BestWorst holds.
const DefaultRankSize = 3

// Aggregator holds category totals computed once from a sales table.
type Aggregator struct {
	totals []core.CategoryTotal
	grand  float64
}

// New groups the table by crop and ranks the totals, highest first.
func New(table core.SalesTable) *Aggregator {
	return &Aggregator{
		totals: ComputeTotals(table),
		grand:  table.TotalQuantity(),
	}
}

// ComputeTotals sums quantity per crop. The result is sorted by total descending;
// equal totals keep ascending crop-name order.
func ComputeTotals(table core.SalesTable) []core.CategoryTotal {
	sums := make(map[string]float64)
	for _, r := range table.Records() {
		sums[r.Crop] += r.QuantitySold
	}

	crops := table.Crops()
	totals := make([]core.CategoryTotal, 0, len(crops))
	for _, crop := range crops {
		totals = append(totals, core.CategoryTotal{Crop: crop, TotalSales: sums[crop]})
	}

	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].TotalSales > totals[j].TotalSales
	})
	return totals
}

// Totals returns a copy of the ranked totals.
func (a *Aggregator) Totals() []core.CategoryTotal {
	return clone(a.totals)
}

// GrandTotal is the sum of every record's quantity.
func (a *Aggregator) GrandTotal() float64 {
	return a.grand
}

// BestWorst returns the DefaultRankSize highest and lowest crops.
func (a *Aggregator) BestWorst() core.BestWorst {
	return a.Rank(DefaultRankSize)
}

// Rank returns the n highest and the n lowest crops. Both lists are in descending
// order of total. With fewer than n crops each list holds all of them.
func (a *Aggregator) Rank(n int) core.BestWorst {
	if n < 0 {
		n = 0
	}
	k := min(n, len(a.totals))
	return core.BestWorst{
		Best:  clone(a.totals[:k]),
		Worst: clone(a.totals[len(a.totals)-k:]),
	}
}

func clone(in []core.CategoryTotal) []core.CategoryTotal {
	out := make([]core.CategoryTotal, len(in))
	copy(out, in)
	return out
}
