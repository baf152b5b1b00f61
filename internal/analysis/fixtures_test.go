package analysis

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"gradelens/domain/dataset"
)

// fiveRows is the five-student table: one row per grade, scores descending.
func fiveRows(t *testing.T) *dataset.Dataset {
	t.Helper()
	cols := []dataset.Column{
		{Name: dataset.ColGrade, Type: dataset.TypeCategory, Required: true, Levels: dataset.GradeLevels},
		{Name: dataset.ColTotal, Type: dataset.TypeFloat, Required: true},
	}
	ds, err := dataset.Build(
		[]string{dataset.ColGrade, dataset.ColTotal},
		[][]string{{"A", "90"}, {"B", "80"}, {"C", "70"}, {"D", "60"}, {"F", "50"}},
		cols,
	)
	require.NoError(t, err)
	return ds
}

// table builds a dataset from inline rows with declared columns.
func table(t *testing.T, cols []dataset.Column, rows ...[]string) *dataset.Dataset {
	t.Helper()
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	ds, err := dataset.Build(header, rows, cols)
	require.NoError(t, err)
	return ds
}

func studentHeader() []string {
	var header []string
	for _, c := range dataset.StudentColumns() {
		if c.Required {
			header = append(header, c.Name)
		}
	}
	return header
}

// studentRow produces deterministic, varied values for row i.
func studentRow(i int) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	total := 50 + float64((i*37)%50)
	return []string{
		[]string{"Engineering", "Business", "Mathematics", "CS"}[i%4],
		[]string{"Male", "Female"}[i%2],
		strconv.Itoa(18 + i%7),
		dataset.GradeLevels[i%5],
		f(total - 3 + float64(i%4)),
		f(total - float64(i%3)),
		f(60 + float64((i*13)%40)),
		f(55 + float64((i*17)%45)),
		f(float64((i * 11) % 100)),
		f(40 + float64((i*19)%60)),
		f(total),
		f(50 + float64((i*23)%50)),
		f(5 + float64((i*7)%25)),
		f(4 + float64(i%10)*0.5),
		strconv.Itoa(1 + i%10),
		[]string{"No", "Yes"}[(i/2)%2],
		[]string{"Yes", "No"}[(i/3)%2],
		[]string{"Low", "Medium", "High"}[i%3],
	}
}

// students loads n generated rows and derives the standard columns.
func students(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = studentRow(i)
	}
	ds, err := dataset.Build(studentHeader(), rows, dataset.StudentColumns())
	require.NoError(t, err)

	ds, err = Bin(ds, DefaultBinSpecs()...)
	require.NoError(t, err)
	ds, err = ds.WithDerivedColumn(dataset.PassStatusColumn(), dataset.PassStatus)
	require.NoError(t, err)
	return ds
}

func labels(ds *dataset.Dataset, column string) []string {
	out := make([]string, ds.Len())
	for i := range out {
		out[i] = ds.Value(i, column).String()
	}
	return out
}
