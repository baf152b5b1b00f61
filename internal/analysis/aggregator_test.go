package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradelens/domain/core"
	"gradelens/domain/dataset"
	"gradelens/domain/query"
)

func TestAggregate_OneGroupPerGrade(t *testing.T) {
	ds := fiveRows(t)
	res, err := Aggregate(ds, query.AggregationSpec{GroupBy: dataset.ColGrade, Metrics: []string{dataset.ColTotal}})
	require.NoError(t, err)

	require.Len(t, res.Groups, 5)
	want := map[string]float64{"A": 90, "B": 80, "C": 70, "D": 60, "F": 50}
	for i, g := range res.Groups {
		assert.Equal(t, dataset.GradeLevels[i], g.Key)
		assert.Equal(t, 1, g.Rows)
		assert.Equal(t, want[g.Key], g.Values[dataset.ColTotal])
	}
	assert.Equal(t, query.AggMean, res.Func)
}

func TestAggregate_WeightedMeansReconcile(t *testing.T) {
	ds := students(t, 300)
	filtered, err := Filter(ds, query.FilterSet{dataset.ColGender: {query.Equals("Female")}})
	require.NoError(t, err)

	for _, groupBy := range []string{dataset.ColGrade, dataset.ColStudyCategory, dataset.ColDepartment, dataset.ColAge} {
		res, err := Aggregate(filtered, query.AggregationSpec{GroupBy: groupBy, Metrics: []string{dataset.ColTotal, dataset.ColSleepHours}})
		require.NoError(t, err)

		for _, m := range res.Metrics {
			var weighted float64
			var n int
			for _, g := range res.Groups {
				weighted += g.Values[m] * float64(g.Counts[m])
				n += g.Counts[m]
			}
			overall, count, err := Mean(filtered, m)
			require.NoError(t, err)
			assert.Equal(t, count, n, "%s/%s", groupBy, m)
			assert.InDelta(t, overall, weighted/float64(n), 1e-9, "%s/%s", groupBy, m)
		}
	}
}

func TestAggregate_OrderAndNullKeys(t *testing.T) {
	cols := []dataset.Column{
		{Name: "Income", Type: dataset.TypeCategory, Levels: dataset.IncomeLevels},
		{Name: "Age", Type: dataset.TypeInt},
		{Name: "Score", Type: dataset.TypeFloat},
	}
	ds := table(t, cols,
		[]string{"High", "21", "90"},
		[]string{"Low", "19", "60"},
		[]string{"", "20", "75"},
		[]string{"Medium", "19", ""},
		[]string{"Low", "21", "70"},
	)

	byIncome, err := Aggregate(ds, query.AggregationSpec{GroupBy: "Income", Metrics: []string{"Score"}})
	require.NoError(t, err)
	var keys []string
	for _, g := range byIncome.Groups {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"Low", "Medium", "High"}, keys, "level order, null key dropped")

	medium, ok := byIncome.Find("Medium")
	require.True(t, ok)
	assert.Equal(t, 1, medium.Rows)
	assert.Equal(t, 0, medium.Counts["Score"])
	_, has := medium.Values["Score"]
	assert.False(t, has, "no observations means no value")

	byAge, err := Aggregate(ds, query.AggregationSpec{GroupBy: "Age", Metrics: []string{"Score"}})
	require.NoError(t, err)
	keys = keys[:0]
	for _, g := range byAge.Groups {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"19", "20", "21"}, keys, "numeric order")
}

func TestAggregate_Funcs(t *testing.T) {
	cols := []dataset.Column{
		{Name: "g", Type: dataset.TypeString},
		{Name: "x", Type: dataset.TypeFloat},
	}
	ds := table(t, cols,
		[]string{"a", "1"}, []string{"a", "2"}, []string{"a", "6"},
		[]string{"b", "5"},
	)

	tests := []struct {
		fn   query.AggFunc
		a    float64
		bHas bool
	}{
		{query.AggMean, 3, true},
		{query.AggSum, 9, true},
		{query.AggMedian, 2, true},
		{query.AggMin, 1, true},
		{query.AggMax, 6, true},
		{query.AggCount, 3, true},
		{query.AggStd, 2.6457513110645907, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.fn), func(t *testing.T) {
			res, err := Aggregate(ds, query.AggregationSpec{GroupBy: "g", Metrics: []string{"x"}, Func: tt.fn})
			require.NoError(t, err)
			a, _ := res.Find("a")
			assert.InDelta(t, tt.a, a.Values["x"], 1e-12)
			b, _ := res.Find("b")
			_, has := b.Values["x"]
			assert.Equal(t, tt.bHas, has)
		})
	}
}

func TestAggregate_CountAcceptsNonNumeric(t *testing.T) {
	ds := fiveRows(t)
	res, err := Aggregate(ds, query.AggregationSpec{GroupBy: dataset.ColGrade, Metrics: []string{dataset.ColGrade}, Func: query.AggCount})
	require.NoError(t, err)
	assert.Len(t, res.Groups, 5)
}

func TestAggregate_EmptyInput(t *testing.T) {
	ds := fiveRows(t).Subset(nil)
	res, err := Aggregate(ds, query.AggregationSpec{GroupBy: dataset.ColGrade, Metrics: []string{dataset.ColTotal}})
	require.NoError(t, err)
	require.NotNil(t, res.Groups)
	assert.Empty(t, res.Groups)
}

func TestAggregate_Errors(t *testing.T) {
	ds := fiveRows(t)
	tests := []struct {
		name string
		spec query.AggregationSpec
		want error
	}{
		{"missing metric", query.AggregationSpec{GroupBy: dataset.ColGrade, Metrics: []string{"Nope"}}, core.ErrColumnNotFound},
		{"missing group", query.AggregationSpec{GroupBy: "Nope", Metrics: []string{dataset.ColTotal}}, core.ErrColumnNotFound},
		{"non numeric metric", query.AggregationSpec{GroupBy: dataset.ColGrade, Metrics: []string{dataset.ColGrade}}, core.ErrNotNumeric},
		{"unknown func", query.AggregationSpec{GroupBy: dataset.ColGrade, Metrics: []string{dataset.ColTotal}, Func: "mode"}, core.ErrInvalidQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(ds, tt.spec)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// missing metric on an empty view is still an error
	_, err := Aggregate(ds.Subset(nil), query.AggregationSpec{GroupBy: dataset.ColGrade, Metrics: []string{"Nope"}})
	assert.ErrorIs(t, err, core.ErrColumnNotFound)
}
