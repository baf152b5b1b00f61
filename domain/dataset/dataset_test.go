package dataset

import (
	"errors"
	"testing"

	"gradelens/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testColumns() []Column {
	return []Column{
		{Name: "Grade", Type: TypeCategory, Required: true, Levels: []string{"A", "B", "C", "D", "F"}},
		{Name: "Score", Type: TypeFloat, Required: true, Domain: &Interval{Min: 0, Max: 100}},
		{Name: "Stress", Type: TypeInt, Required: true, Domain: &Interval{Min: 1, Max: 10}},
		{Name: "Parent", Type: TypeCategory, Levels: []string{"None", "PhD"}},
	}
}

func buildTestDataset(t *testing.T) *Dataset {
	t.Helper()
	header := []string{"Grade", "Score", "Stress", "Notes"}
	rows := [][]string{
		{"C", "70.5", "3", "x"},
		{"a", "90", "7", ""},
		{"F", "40", "10", "late"},
		{"", "", "", ""},
		{"A", "88.25", "1", "y"},
	}
	ds, err := Build(header, rows, testColumns())
	require.NoError(t, err)
	return ds
}

func TestBuild_SchemaFromHeader(t *testing.T) {
	ds := buildTestDataset(t)

	assert.Equal(t, 4, ds.Len(), "blank row should be skipped")
	assert.Equal(t, []string{"Grade", "Score", "Stress", "Notes"}, ds.Schema().Names())
	assert.False(t, ds.Schema().Has("Parent"), "absent optional column is left out")

	notes, ok := ds.Schema().Column("Notes")
	require.True(t, ok)
	assert.Equal(t, TypeString, notes.Type)
	assert.False(t, notes.Required)

	// Category labels are canonicalized to the declared level.
	assert.Equal(t, "A", ds.Value(1, "Grade").Str)
	assert.Equal(t, "a", ds.Value(1, "Grade").Raw)
	assert.True(t, ds.Value(1, "Notes").Null)
}

func TestBuild_MissingRequiredColumns(t *testing.T) {
	_, err := Build([]string{"Score"}, nil, testColumns())
	require.Error(t, err)

	var schemaErr *core.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"Grade", "Stress"}, schemaErr.Missing)
	assert.True(t, errors.Is(err, core.ErrSchema))
}

func TestBuild_ParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		row    []string
		column string
	}{
		{"non numeric float", []string{"A", "abc", "3"}, "Score"},
		{"fractional int", []string{"A", "50", "3.5"}, "Stress"},
		{"int out of domain", []string{"A", "50", "11"}, "Stress"},
		{"float out of domain", []string{"A", "101", "3"}, "Score"},
		{"unknown level", []string{"E", "50", "3"}, "Grade"},
		{"missing required", []string{"A", "n/a", "3"}, "Score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := [][]string{{"B", "60", "2"}, tt.row}
			_, err := Build([]string{"Grade", "Score", "Stress"}, rows, testColumns())
			require.Error(t, err)

			var parseErr *core.ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, tt.column, parseErr.Column)
			assert.Equal(t, 2, parseErr.Row)
			assert.True(t, errors.Is(err, core.ErrParse))
		})
	}
}

func TestBuild_RejectsBadHeader(t *testing.T) {
	_, err := Build([]string{"Grade", "Grade"}, nil, nil)
	assert.ErrorIs(t, err, core.ErrSchema)

	_, err = Build([]string{"Grade", " "}, nil, nil)
	assert.ErrorIs(t, err, core.ErrSchema)
}

func TestBuild_IntegralFloatAcceptedAsInt(t *testing.T) {
	ds, err := Build([]string{"Grade", "Score", "Stress"}, [][]string{{"A", "50", "4.0"}}, testColumns())
	require.NoError(t, err)
	assert.Equal(t, "4", ds.Value(0, "Stress").String())
	assert.Equal(t, "4.0", ds.Value(0, "Stress").Text())
}

func TestDataset_UniqueValues(t *testing.T) {
	ds := buildTestDataset(t)

	grades, err := ds.UniqueValues("Grade")
	require.NoError(t, err)
	labels := make([]string, len(grades))
	for i, v := range grades {
		labels[i] = v.String()
	}
	assert.Equal(t, []string{"A", "C", "F"}, labels, "level order, not lexical or insertion order")

	scores, err := ds.UniqueValues("Score")
	require.NoError(t, err)
	assert.Equal(t, "40", scores[0].String())
	assert.Equal(t, "90", scores[len(scores)-1].String())

	notes, err := ds.UniqueValues("Notes")
	require.NoError(t, err)
	assert.Len(t, notes, 3, "nulls are excluded")

	_, err = ds.UniqueValues("Nope")
	assert.ErrorIs(t, err, core.ErrColumnNotFound)
}

func TestDataset_UniqueValuesEmpty(t *testing.T) {
	ds := buildTestDataset(t).Subset(nil)
	vals, err := ds.UniqueValues("Grade")
	require.NoError(t, err)
	assert.NotNil(t, vals)
	assert.Empty(t, vals)
}

func TestDataset_Numbers(t *testing.T) {
	ds := buildTestDataset(t)

	xs, ok, err := ds.Numbers("Score")
	require.NoError(t, err)
	assert.Equal(t, []float64{70.5, 90, 40, 88.25}, xs)
	assert.Equal(t, []bool{true, true, true, true}, ok)

	_, _, err = ds.Numbers("Grade")
	assert.ErrorIs(t, err, core.ErrNotNumeric)
}

func TestDataset_WithDerivedColumnDoesNotMutate(t *testing.T) {
	ds := buildTestDataset(t)
	col := Column{Name: "High", Type: TypeCategory, Levels: []string{"No", "Yes"}}

	derived, err := ds.WithDerivedColumn(col, func(r Row) Value {
		if v, ok := r.Get("Score").Float64(); ok && v >= 80 {
			return Category("Yes")
		}
		return Category("No")
	})
	require.NoError(t, err)

	assert.False(t, ds.Schema().Has("High"))
	assert.True(t, derived.Schema().Has("High"))
	assert.Equal(t, ds.Len(), derived.Len())
	assert.Equal(t, "Yes", derived.Value(1, "High").Str)
	assert.Equal(t, "No", derived.Value(0, "High").Str)

	c, _ := derived.Schema().Column("High")
	assert.True(t, c.Derived)
	assert.Len(t, derived.Schema().SourceColumns(), 4)
}

func TestDataset_WithDerivedColumnValidates(t *testing.T) {
	ds := buildTestDataset(t)

	_, err := ds.WithDerivedColumn(Column{Name: "Score", Type: TypeFloat}, func(Row) Value { return Float(1) })
	assert.Error(t, err, "existing column")

	_, err = ds.WithDerivedColumn(Column{Name: "X", Type: TypeFloat}, func(Row) Value { return String("a") })
	assert.Error(t, err, "type mismatch")

	_, err = ds.WithDerivedColumn(Column{Name: "Y", Type: TypeCategory, Levels: []string{"a"}}, func(Row) Value { return Category("b") })
	assert.Error(t, err, "undeclared level")
}

func TestDataset_SubsetSharesRowIdentity(t *testing.T) {
	ds := buildTestDataset(t)
	sub := ds.Subset([]int{2, 0})

	assert.Equal(t, 2, sub.Len())
	assert.Equal(t, []int{2, 0}, sub.RowIDs())
	assert.Equal(t, ds.Value(2, "Score"), sub.Value(0, "Score"))

	// Derived columns on a subset still index by original row id.
	derived, err := sub.WithDerivedColumn(Column{Name: "Twice", Type: TypeFloat}, func(r Row) Value {
		v, _ := r.Get("Score").Float64()
		return Float(v * 2)
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, derived.Value(0, "Twice").Num)
}

func TestDataset_Empty(t *testing.T) {
	schema, err := NewSchema(testColumns()...)
	require.NoError(t, err)
	ds := Empty(schema)

	assert.True(t, ds.IsEmpty())
	vals, err := ds.ColumnValues("Score")
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestNew_ValidatesVectors(t *testing.T) {
	schema, err := NewSchema(Column{Name: "a", Type: TypeInt})
	require.NoError(t, err)

	_, err = New(schema, map[string][]Value{"a": {Int(1)}}, 2)
	assert.Error(t, err)

	_, err = New(schema, map[string][]Value{"a": {Float(1)}}, 1)
	assert.Error(t, err)

	_, err = New(schema, map[string][]Value{}, 0)
	assert.Error(t, err)
}

func TestValue_Formatting(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Int(7), "7"},
		{Float(85), "85"},
		{Float(70.25), "70.25"},
		{Category("B"), "B"},
		{NullOf(TypeFloat), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.v.String())
	}
}

func TestPassStatus(t *testing.T) {
	header := []string{"Grade"}
	cols := []Column{{Name: ColGrade, Type: TypeCategory, Required: true, Levels: GradeLevels}}
	ds, err := Build(header, [][]string{{"A"}, {"F"}, {"D"}}, cols)
	require.NoError(t, err)

	derived, err := ds.WithDerivedColumn(PassStatusColumn(), PassStatus)
	require.NoError(t, err)
	assert.Equal(t, "Passed", derived.Value(0, ColPassStatus).Str)
	assert.Equal(t, "Failed", derived.Value(1, ColPassStatus).Str)
	assert.Equal(t, "Passed", derived.Value(2, ColPassStatus).Str)
}
