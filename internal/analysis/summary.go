package analysis

import (
	"slices"

	"gradelens/domain/dataset"
	"gradelens/domain/query"
)

// Summarize computes the KPI block for a filtered view. total is the row
// count of the unfiltered dataset.
func Summarize(ds *dataset.Dataset, total int) (*query.Summary, error) {
	s := &query.Summary{Rows: ds.Len(), TotalRows: total}

	var err error
	if s.AvgTotalScore, err = optionalMean(ds, dataset.ColTotal); err != nil {
		return nil, err
	}
	if s.AvgAttendance, err = optionalMean(ds, dataset.ColAttendance); err != nil {
		return nil, err
	}
	if s.AvgStudyHours, err = optionalMean(ds, dataset.ColStudyHours); err != nil {
		return nil, err
	}
	s.PassRate = passRate(ds)
	return s, nil
}

func optionalMean(ds *dataset.Dataset, column string) (*float64, error) {
	if !ds.Schema().Has(column) {
		return nil, nil
	}
	m, n, err := Mean(ds, column)
	if err != nil || n == 0 {
		return nil, err
	}
	return &m, nil
}

// passRate is the percentage of graded rows that passed.
func passRate(ds *dataset.Dataset) *float64 {
	if !ds.Schema().Has(dataset.ColGrade) {
		return nil
	}
	passed, graded := 0, 0
	for i := 0; i < ds.Len(); i++ {
		st := dataset.PassStatus(ds.Row(i))
		if st.Null {
			continue
		}
		graded++
		if st.Str == "Passed" {
			passed++
		}
	}
	if graded == 0 {
		return nil
	}
	rate := float64(passed) * 100 / float64(graded)
	return &rate
}

// Distribution is the share of each value of a column among its non-null
// rows, in the column's order.
func Distribution(ds *dataset.Dataset, column string) (*query.Distribution, error) {
	col, err := ds.Schema().Lookup(column)
	if err != nil {
		return nil, err
	}
	sh := shares(ds, col)
	total := 0
	for _, s := range sh {
		total += s.Count
	}
	return &query.Distribution{Column: column, Total: total, Shares: sh}, nil
}

// DefaultHistogramBins matches the score distribution panel.
const DefaultHistogramBins = 30

// Histogram counts a numeric column into equal-width bins spanning its
// observed range.
func Histogram(ds *dataset.Dataset, column string, bins int) (*query.Histogram, error) {
	xs, ok, err := ds.Numbers(column)
	if err != nil {
		return nil, err
	}
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	vals := defined(xs, ok)
	h := &query.Histogram{Column: column, Bins: []query.HistogramBin{}}
	if len(vals) == 0 {
		return h, nil
	}

	spec := EqualWidthSpec(column, column, slices.Min(vals), slices.Max(vals), bins)
	counts := make([]int, len(spec.Labels))
	for _, v := range vals {
		if i := binIndex(spec.Edges, spec.IncludeLowest, v); i >= 0 {
			counts[i]++
		}
	}
	for i, label := range spec.Labels {
		h.Bins = append(h.Bins, query.HistogramBin{
			Label: label,
			Lower: spec.Edges[i],
			Upper: spec.Edges[i+1],
			Count: counts[i],
		})
	}
	return h, nil
}
