package analysis

import (
	"fmt"
	"math"
	"slices"

	"github.com/montanaflynn/stats"

	"gradelens/domain/core"
	"gradelens/domain/dataset"
	"gradelens/domain/query"
)

// groupAcc collects one group's observations during a scan.
type groupAcc struct {
	key  dataset.Value
	rows int
	obs  map[string][]float64
	seen map[string]int
}

// Aggregate groups ds by spec.GroupBy and reduces each metric per group.
//
// Groups follow the group-by column's level order when it has levels, else
// natural value order. Rows with a null key belong to no group, and groups
// never appear without rows. An empty ds yields an empty result.
func Aggregate(ds *dataset.Dataset, spec query.AggregationSpec) (*query.GroupResult, error) {
	fn := spec.Func
	if fn == "" {
		fn = query.AggMean
	}
	if !fn.Valid() {
		return nil, fmt.Errorf("%w: unknown aggregation %q", core.ErrInvalidQuery, spec.Func)
	}

	groupCol, err := ds.Schema().Lookup(spec.GroupBy)
	if err != nil {
		return nil, err
	}
	numeric := make(map[string]bool, len(spec.Metrics))
	for _, m := range spec.Metrics {
		col, err := ds.Schema().Lookup(m)
		if err != nil {
			return nil, err
		}
		numeric[m] = col.Type.IsNumeric()
		if fn != query.AggCount && !numeric[m] {
			return nil, core.NewNotNumericError(m)
		}
	}

	result := &query.GroupResult{
		GroupBy: spec.GroupBy,
		Func:    fn,
		Metrics: slices.Clone(spec.Metrics),
		Groups:  []query.Group{},
	}
	if ds.IsEmpty() {
		return result, nil
	}

	index := make(map[string]*groupAcc)
	var accs []*groupAcc
	for i := 0; i < ds.Len(); i++ {
		key := ds.Value(i, spec.GroupBy)
		if key.Null {
			continue
		}
		acc, ok := index[key.String()]
		if !ok {
			acc = &groupAcc{key: key, obs: make(map[string][]float64), seen: make(map[string]int)}
			index[key.String()] = acc
			accs = append(accs, acc)
		}
		acc.rows++
		for _, m := range spec.Metrics {
			v := ds.Value(i, m)
			if v.Null {
				continue
			}
			acc.seen[m]++
			if f, ok := v.Float64(); ok {
				acc.obs[m] = append(acc.obs[m], f)
			}
		}
	}

	slices.SortStableFunc(accs, func(a, b *groupAcc) int {
		return groupCol.Compare(a.key, b.key)
	})

	for _, acc := range accs {
		g := query.Group{
			Key:    acc.key.String(),
			Rows:   acc.rows,
			Values: make(map[string]float64, len(spec.Metrics)),
			Counts: make(map[string]int, len(spec.Metrics)),
		}
		for _, m := range spec.Metrics {
			g.Counts[m] = acc.seen[m]
			if fn == query.AggCount {
				g.Values[m] = float64(acc.seen[m])
				continue
			}
			if v, ok := reduce(fn, acc.obs[m]); ok {
				g.Values[m] = v
			}
		}
		result.Groups = append(result.Groups, g)
	}
	return result, nil
}

// reduce applies fn to xs. It reports false when the result is undefined.
func reduce(fn query.AggFunc, xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	var (
		v   float64
		err error
	)
	switch fn {
	case query.AggSum:
		v, err = stats.Sum(xs)
	case query.AggMedian:
		v, err = stats.Median(xs)
	case query.AggMin:
		v, err = stats.Min(xs)
	case query.AggMax:
		v, err = stats.Max(xs)
	case query.AggStd:
		v, err = stats.StandardDeviationSample(xs)
	default:
		v, err = stats.Mean(xs)
	}
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Mean is the arithmetic mean of the defined values of a numeric column.
func Mean(ds *dataset.Dataset, column string) (float64, int, error) {
	xs, ok, err := ds.Numbers(column)
	if err != nil {
		return 0, 0, err
	}
	vals := defined(xs, ok)
	m, has := reduce(query.AggMean, vals)
	if !has {
		return 0, 0, nil
	}
	return m, len(vals), nil
}

func defined(xs []float64, ok []bool) []float64 {
	out := make([]float64, 0, len(xs))
	for i, x := range xs {
		if ok[i] {
			out = append(out, x)
		}
	}
	return out
}
