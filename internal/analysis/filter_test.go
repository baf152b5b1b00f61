package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradelens/domain/core"
	"gradelens/domain/dataset"
	"gradelens/domain/query"
)

func TestFilter_Conjunction(t *testing.T) {
	ds := students(t, 200)

	fs := query.FilterSet{}.
		Add(dataset.ColDepartment, query.Equals("CS")).
		Add(dataset.ColStress, query.Between(3, 7)).
		Add(dataset.ColGender, query.Equals(query.AllSentinel))

	out, err := Filter(ds, fs)
	require.NoError(t, err)
	require.Greater(t, out.Len(), 0)
	assert.Less(t, out.Len(), ds.Len())

	for i := 0; i < out.Len(); i++ {
		assert.Equal(t, "CS", out.Value(i, dataset.ColDepartment).Str)
		stress, _ := out.Value(i, dataset.ColStress).Float64()
		assert.True(t, stress >= 3 && stress <= 7)
	}

	// every surviving row id exists in the source with the same contents
	for i, id := range out.RowIDs() {
		assert.Equal(t, ds.Row(id).Get(dataset.ColTotal), out.Value(i, dataset.ColTotal))
	}
}

func TestFilter_Idempotent(t *testing.T) {
	ds := students(t, 120)
	fs := query.FilterSet{}.
		Add(dataset.ColGrade, query.Equals("b")).
		Add(dataset.ColSleepHours, query.Between(5, 8))

	once, err := Filter(ds, fs)
	require.NoError(t, err)
	twice, err := Filter(once, fs)
	require.NoError(t, err)

	assert.Equal(t, once.RowIDs(), twice.RowIDs())
}

func TestFilter_RangesAndEqualitiesOnSameColumn(t *testing.T) {
	ds := fiveRows(t)
	fs := query.FilterSet{}.
		Add(dataset.ColTotal, query.Between(55, 100)).
		Add(dataset.ColTotal, query.Between(0, 75))

	out, err := Filter(ds, fs)
	require.NoError(t, err)
	assert.Equal(t, []string{"70", "60"}, labels(out, dataset.ColTotal))

	out, err = Filter(ds, query.FilterSet{dataset.ColTotal: {query.Equals("80.0")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, labels(out, dataset.ColGrade))
}

func TestFilter_EmptyResultIsValid(t *testing.T) {
	ds := fiveRows(t)
	out, err := Filter(ds, query.FilterSet{dataset.ColTotal: {query.Between(95, 99)}})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, out.IsEmpty())
	assert.Equal(t, ds.Schema().Names(), out.Schema().Names())
}

func TestFilter_UnknownLevelMatchesNothing(t *testing.T) {
	ds := fiveRows(t)

	out, err := Filter(ds, query.FilterSet{dataset.ColGrade: {query.Equals("Z")}})
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())

	// predicates on one column are AND-ed
	out, err = Filter(ds, query.FilterSet{}.
		Add(dataset.ColGrade, query.Equals("A")).
		Add(dataset.ColGrade, query.Equals("E")))
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())

	out, err = Filter(ds, query.FilterSet{dataset.ColGrade: {query.Equals("a")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, labels(out, dataset.ColGrade), "levels match case-insensitively")
}

func TestPredicate_IsAll(t *testing.T) {
	tests := []struct {
		name string
		p    query.Predicate
		want bool
	}{
		{"zero value", query.Predicate{}, true},
		{"all", query.All(), true},
		{"all sentinel", query.Equals(query.AllSentinel), true},
		{"equals", query.Equals("A"), false},
		{"value without op", query.Predicate{Value: "A"}, false},
		{"bounds without op", query.Predicate{Min: 1, Max: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.IsAll())
		})
	}
}

func TestFilter_AllSentinelAndEmptySet(t *testing.T) {
	ds := fiveRows(t)

	out, err := Filter(ds, nil)
	require.NoError(t, err)
	assert.Equal(t, ds.Len(), out.Len())

	out, err = Filter(ds, query.FilterSet{dataset.ColGrade: {query.All(), query.Equals("All")}})
	require.NoError(t, err)
	assert.Equal(t, ds.Len(), out.Len())
}

func TestFilter_Errors(t *testing.T) {
	ds := fiveRows(t)
	tests := []struct {
		name string
		fs   query.FilterSet
		want error
	}{
		{"unknown column", query.FilterSet{"Nope": {query.Equals("x")}}, core.ErrColumnNotFound},
		{"min above max", query.FilterSet{dataset.ColTotal: {query.Between(80, 60)}}, core.ErrInvalidRange},
		{"range on category", query.FilterSet{dataset.ColGrade: {query.Between(0, 1)}}, core.ErrInvalidRange},
		{"literal not a number", query.FilterSet{dataset.ColTotal: {query.Equals("high")}}, core.ErrParse},
		{"value without op", query.FilterSet{dataset.ColGrade: {{Value: "A"}}}, core.ErrInvalidQuery},
		{"unknown op", query.FilterSet{dataset.ColGrade: {{Kind: "like", Value: "A"}}}, core.ErrInvalidQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Filter(ds, tt.fs)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 5, ds.Len(), "failed queries leave the dataset intact")
}

func TestParseFilterArgs(t *testing.T) {
	fs, err := ParseFilterArgs([]string{
		"Department=CS",
		"Stress_Level (1-10)=2..6",
		"Gender=All",
		"Department = Business ",
	})
	require.NoError(t, err)

	assert.Equal(t, []query.Predicate{query.Equals("CS"), query.Equals("Business")}, fs["Department"])
	assert.Equal(t, []query.Predicate{query.Between(2, 6)}, fs["Stress_Level (1-10)"])
	assert.True(t, fs["Gender"][0].IsAll())

	for _, bad := range []string{"Department", "=CS", "Age=1..x"} {
		_, err := ParseFilterArgs([]string{bad})
		assert.ErrorIs(t, err, core.ErrParse, bad)
	}
}
