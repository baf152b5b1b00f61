package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"gradelens/domain/dataset"
	"gradelens/domain/query"
)

// Correlate computes Pearson coefficients for every pair of columns over the
// rows where both values are defined. Duplicate columns are collapsed. A pair
// with fewer than two complete rows, or with a constant side, is reported
// as undefined. The diagonal is 1 by definition.
func Correlate(ds *dataset.Dataset, columns []string) (*query.CorrelationMatrix, error) {
	cols := dedupe(columns)

	xs := make([][]float64, len(cols))
	oks := make([][]bool, len(cols))
	for i, c := range cols {
		x, ok, err := ds.Numbers(c)
		if err != nil {
			return nil, err
		}
		xs[i], oks[i] = x, ok
	}

	cells := make([][]query.Coefficient, len(cols))
	for i := range cells {
		cells[i] = make([]query.Coefficient, len(cols))
	}
	for i := range cols {
		cells[i][i] = query.Coefficient{Value: 1, Defined: true, N: countTrue(oks[i])}
		for j := i + 1; j < len(cols); j++ {
			c := pearson(xs[i], oks[i], xs[j], oks[j])
			cells[i][j] = c
			cells[j][i] = c
		}
	}
	return &query.CorrelationMatrix{Columns: cols, Cells: cells}, nil
}

func pearson(x []float64, okx []bool, y []float64, oky []bool) query.Coefficient {
	var a, b []float64
	for k := range x {
		if okx[k] && oky[k] {
			a = append(a, x[k])
			b = append(b, y[k])
		}
	}
	n := len(a)
	if n < 2 || stat.Variance(a, nil) == 0 || stat.Variance(b, nil) == 0 {
		return query.Coefficient{N: n}
	}
	r := stat.Correlation(a, b, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return query.Coefficient{N: n}
	}
	// rounding can push |r| a hair past 1
	r = math.Max(-1, math.Min(1, r))
	return query.Coefficient{Value: r, Defined: true, N: n}
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}
