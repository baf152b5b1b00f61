package analysis

import (
	"slices"

	"gradelens/domain/dataset"
	"gradelens/domain/query"
)

// Crosstab counts co-occurrences of two columns. Rows with a null in either
// column are left out. With Normalize each row is scaled to sum to 100; a
// row with no observations stays all zero.
func Crosstab(ds *dataset.Dataset, spec query.CrosstabSpec) (*query.CrosstabResult, error) {
	rowCol, err := ds.Schema().Lookup(spec.Row)
	if err != nil {
		return nil, err
	}
	colCol, err := ds.Schema().Lookup(spec.Column)
	if err != nil {
		return nil, err
	}

	type pair struct{ r, c string }
	counts := make(map[pair]int)
	var rowSeen, colSeen []dataset.Value
	seenR, seenC := map[string]bool{}, map[string]bool{}
	for i := 0; i < ds.Len(); i++ {
		rv, cv := ds.Value(i, spec.Row), ds.Value(i, spec.Column)
		if rv.Null || cv.Null {
			continue
		}
		r, c := rv.String(), cv.String()
		counts[pair{r, c}]++
		if !seenR[r] {
			seenR[r] = true
			rowSeen = append(rowSeen, rv)
		}
		if !seenC[c] {
			seenC[c] = true
			colSeen = append(colSeen, cv)
		}
	}

	rowLabels := axisOrder(rowCol, spec.RowOrder, rowSeen)
	colLabels := axisOrder(colCol, spec.ColumnOrder, colSeen)

	result := &query.CrosstabResult{
		Row:          spec.Row,
		Column:       spec.Column,
		Normalized:   spec.Normalize,
		RowLabels:    rowLabels,
		ColumnLabels: colLabels,
		Cells:        make([][]float64, len(rowLabels)),
		RowTotals:    make([]int, len(rowLabels)),
	}
	for i, r := range rowLabels {
		cells := make([]float64, len(colLabels))
		total := 0
		for j, c := range colLabels {
			n := counts[pair{r, c}]
			cells[j] = float64(n)
			total += n
		}
		if spec.Normalize && total > 0 {
			for j := range cells {
				cells[j] = cells[j] * 100 / float64(total)
			}
		}
		result.Cells[i] = cells
		result.RowTotals[i] = total
	}
	return result, nil
}

// axisOrder lays out one crosstab axis. An explicit order comes first, even
// for labels that were not observed; observed labels it misses follow in the
// column's own order. Without an explicit order the column's levels are used,
// limited to what was observed.
func axisOrder(col dataset.Column, explicit []string, observed []dataset.Value) []string {
	slices.SortStableFunc(observed, col.Compare)

	if len(explicit) == 0 {
		out := make([]string, len(observed))
		for i, v := range observed {
			out[i] = v.String()
		}
		return out
	}

	out := make([]string, 0, len(explicit)+len(observed))
	placed := make(map[string]bool, len(explicit))
	for _, l := range explicit {
		if placed[l] {
			continue
		}
		placed[l] = true
		out = append(out, l)
	}
	for _, v := range observed {
		if !placed[v.String()] {
			out = append(out, v.String())
		}
	}
	return out
}
