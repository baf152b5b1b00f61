package analysis

import (
	"math"
	"sort"
	"strconv"

	"gradelens/domain/core"
	"gradelens/domain/dataset"
	"gradelens/domain/query"
)

// DefaultBinSpecs returns the lifestyle buckets of the student table.
func DefaultBinSpecs() []query.BinSpec {
	return []query.BinSpec{
		{
			Source: dataset.ColSleepHours,
			Target: dataset.ColSleepCategory,
			Edges:  []float64{3.9, 5.0, 6.0, 7.0, 8.0, 9.1},
			Labels: []string{"4-5", "5-6", "6-7", "7-8", "8-9"},
		},
		{
			Source: dataset.ColStudyHours,
			Target: dataset.ColStudyCategory,
			Edges:  []float64{4.9, 10.0, 15.0, 20.0, 25.0, 30.1},
			Labels: []string{"5-10", "10-15", "15-20", "20-25", "25-30"},
		},
		{
			Source: dataset.ColStress,
			Target: dataset.ColStressCategory,
			Edges:  []float64{0, 3, 6, 10},
			Labels: []string{"Low (1-3)", "Medium (4-6)", "High (7-10)"},
		},
	}
}

// MergeBinSpecs overlays overrides on base by target column. Overrides with
// a new target are appended.
func MergeBinSpecs(base, overrides []query.BinSpec) []query.BinSpec {
	out := append([]query.BinSpec(nil), base...)
	for _, o := range overrides {
		replaced := false
		for i := range out {
			if out[i].Target == o.Target {
				out[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}
	return out
}

// Bin adds one category column per spec. All specs are validated before any
// column is derived, so a bad spec leaves nothing half-applied.
func Bin(ds *dataset.Dataset, specs ...query.BinSpec) (*dataset.Dataset, error) {
	targets := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if _, err := ds.Schema().LookupNumeric(spec.Source); err != nil {
			return nil, err
		}
		if ds.Schema().Has(spec.Target) || targets[spec.Target] {
			return nil, core.NewBinningError(spec.Target, "target column already exists")
		}
		targets[spec.Target] = true
	}

	out := ds
	for _, spec := range specs {
		col := dataset.Column{Name: spec.Target, Type: dataset.TypeCategory, Levels: spec.Levels()}
		next, err := out.WithDerivedColumn(col, func(r dataset.Row) dataset.Value {
			v, ok := r.Get(spec.Source).Float64()
			if !ok {
				return dataset.NullOf(dataset.TypeCategory)
			}
			return dataset.Category(BinLabel(spec, v))
		})
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

// BinLabel returns the label of the interval containing v, or UnbinnedLabel.
func BinLabel(spec query.BinSpec, v float64) string {
	if i := binIndex(spec.Edges, spec.IncludeLowest, v); i >= 0 {
		return spec.Labels[i]
	}
	return query.UnbinnedLabel
}

// binIndex finds i with edges[i] < v <= edges[i+1]. With includeLowest,
// v == edges[0] falls into interval 0.
func binIndex(edges []float64, includeLowest bool, v float64) int {
	if math.IsNaN(v) {
		return -1
	}
	if includeLowest && v == edges[0] {
		return 0
	}
	// first edge >= v is the upper bound of v's interval
	j := sort.SearchFloat64s(edges, v)
	if j == 0 || j == len(edges) {
		return -1
	}
	return j - 1
}

// EqualWidthSpec builds n equal-width bins over [min, max] with the lowest
// edge closed. Labels are the interval bounds.
func EqualWidthSpec(source, target string, min, max float64, n int) query.BinSpec {
	if n < 1 {
		n = 1
	}
	if !(max > min) {
		// single-value column: one bin around it
		min, max = min-0.5, min+0.5
	}
	width := (max - min) / float64(n)
	edges := make([]float64, n+1)
	for i := range edges {
		edges[i] = min + float64(i)*width
	}
	edges[n] = max

	labels := make([]string, n)
	for i := range labels {
		labels[i] = formatEdge(edges[i]) + "-" + formatEdge(edges[i+1])
	}
	return query.BinSpec{Source: source, Target: target, Edges: edges, Labels: labels, IncludeLowest: true}
}

func formatEdge(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
