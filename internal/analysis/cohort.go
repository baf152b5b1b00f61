package analysis

import (
	"cmp"
	"fmt"
	"slices"

	"gradelens/domain/core"
	"gradelens/domain/dataset"
	"gradelens/domain/query"
)

// Cohort selects the spec.N rows ranked highest (Top) or lowest (Bottom) by
// spec.RankColumn and profiles them. Ties keep their original row order.
// Rows with no rank value are never selected. N beyond the row count
// selects every ranked row.
func Cohort(ds *dataset.Dataset, spec query.CohortSpec) (*query.CohortResult, error) {
	if spec.N <= 0 {
		return nil, fmt.Errorf("%w: got %d", core.ErrInvalidCohortSize, spec.N)
	}
	dir := spec.Direction
	if dir == "" {
		dir = query.Top
	}
	if dir != query.Top && dir != query.Bottom {
		return nil, fmt.Errorf("%w: unknown direction %q", core.ErrInvalidQuery, spec.Direction)
	}
	ranks, rankOK, err := ds.Numbers(spec.RankColumn)
	if err != nil {
		return nil, err
	}
	metrics := dedupe(spec.Metrics)
	for _, m := range metrics {
		if _, err := ds.Schema().LookupNumeric(m); err != nil {
			return nil, err
		}
	}
	var labelCol dataset.Column
	if spec.LabelColumn != "" {
		if labelCol, err = ds.Schema().Lookup(spec.LabelColumn); err != nil {
			return nil, err
		}
	}

	positions := make([]int, 0, ds.Len())
	for i := range ranks {
		if rankOK[i] {
			positions = append(positions, i)
		}
	}
	slices.SortStableFunc(positions, func(a, b int) int {
		if dir == query.Top {
			return cmp.Compare(ranks[b], ranks[a])
		}
		return cmp.Compare(ranks[a], ranks[b])
	})
	if len(positions) > spec.N {
		positions = positions[:spec.N]
	}
	selected := ds.Subset(positions)

	result := &query.CohortResult{
		N:            spec.N,
		Size:         selected.Len(),
		RankColumn:   spec.RankColumn,
		Direction:    dir,
		Metrics:      metrics,
		Means:        make(map[string]float64, len(metrics)),
		LabelColumn:  spec.LabelColumn,
		Distribution: []query.Share{},
		RowIDs:       selected.RowIDs(),
	}
	for _, m := range metrics {
		mean, n, err := Mean(selected, m)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			result.Means[m] = mean
		}
	}
	if spec.LabelColumn != "" {
		result.Distribution = shares(selected, labelCol)
	}
	return result, nil
}

// CompareCohorts returns top minus bottom for every metric. Both results
// must have been computed over the same metric set.
func CompareCohorts(top, bottom *query.CohortResult) (*query.CohortDelta, error) {
	a, b := slices.Clone(top.Metrics), slices.Clone(bottom.Metrics)
	slices.Sort(a)
	slices.Sort(b)
	if !slices.Equal(a, b) {
		return nil, fmt.Errorf("%w: %v vs %v", core.ErrMetricMismatch, top.Metrics, bottom.Metrics)
	}

	delta := &query.CohortDelta{
		Metrics: slices.Clone(top.Metrics),
		Delta:   make(map[string]float64, len(top.Metrics)),
	}
	for _, m := range top.Metrics {
		t, okT := top.Means[m]
		b, okB := bottom.Means[m]
		if okT && okB {
			delta.Delta[m] = t - b
		}
	}
	return delta, nil
}

// shares is the normalized frequency of each non-null value of col, in the
// column's order. Percentages are of the non-null rows.
func shares(ds *dataset.Dataset, col dataset.Column) []query.Share {
	counts := make(map[string]int)
	var keys []dataset.Value
	total := 0
	for i := 0; i < ds.Len(); i++ {
		v := ds.Value(i, col.Name)
		if v.Null {
			continue
		}
		if counts[v.String()] == 0 {
			keys = append(keys, v)
		}
		counts[v.String()]++
		total++
	}
	slices.SortStableFunc(keys, col.Compare)

	out := make([]query.Share, 0, len(keys))
	for _, k := range keys {
		n := counts[k.String()]
		out = append(out, query.Share{Label: k.String(), Count: n, Percent: float64(n) * 100 / float64(total)})
	}
	return out
}
