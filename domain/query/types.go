package query

import (
	"fmt"
	"slices"

	"gradelens/domain/core"
)

// UnbinnedLabel marks a value that falls outside every interval of a BinSpec.
// It is appended as the last level of the derived column.
const UnbinnedLabel = "(unbinned)"

// AllSentinel is the filter literal that matches every row.
const AllSentinel = "All"

// BinSpec derives an ordered category column from a numeric column.
// Intervals are (Edges[i], Edges[i+1]]; with IncludeLowest the first one is
// closed on the left too. Edges may be ±Inf.
type BinSpec struct {
	Source        string    `json:"source" yaml:"source"`
	Target        string    `json:"target" yaml:"target"`
	Edges         []float64 `json:"edges" yaml:"edges"`
	Labels        []string  `json:"labels" yaml:"labels"`
	IncludeLowest bool      `json:"include_lowest,omitempty" yaml:"include_lowest"`
}

// Validate checks the edge and label invariants.
func (s BinSpec) Validate() error {
	if s.Target == "" {
		return core.NewBinningError(s.Source, "target column name is empty")
	}
	if len(s.Edges) < 2 {
		return core.NewBinningError(s.Target, "need at least two edges")
	}
	for i := 1; i < len(s.Edges); i++ {
		if !(s.Edges[i] > s.Edges[i-1]) {
			return core.NewBinningError(s.Target, fmt.Sprintf("edges not strictly increasing at %d (%g after %g)", i, s.Edges[i], s.Edges[i-1]))
		}
	}
	if len(s.Labels) != len(s.Edges)-1 {
		return core.NewBinningError(s.Target, fmt.Sprintf("got %d labels for %d intervals", len(s.Labels), len(s.Edges)-1))
	}
	seen := make(map[string]bool, len(s.Labels))
	for _, l := range s.Labels {
		if l == "" || l == UnbinnedLabel {
			return core.NewBinningError(s.Target, fmt.Sprintf("invalid label %q", l))
		}
		if seen[l] {
			return core.NewBinningError(s.Target, fmt.Sprintf("duplicate label %q", l))
		}
		seen[l] = true
	}
	return nil
}

// Levels returns the labels of the derived column in display order.
func (s BinSpec) Levels() []string {
	return append(slices.Clone(s.Labels), UnbinnedLabel)
}

// PredicateKind selects how a Predicate matches a value.
type PredicateKind string

const (
	PredicateAll     PredicateKind = "all"
	PredicateEquals  PredicateKind = "eq"
	PredicateBetween PredicateKind = "between"
)

// Predicate is one filter condition on a column.
type Predicate struct {
	Kind  PredicateKind `json:"op"`
	Value string        `json:"value,omitempty"`
	Min   float64       `json:"min,omitempty"`
	Max   float64       `json:"max,omitempty"`
}

// All matches every row.
func All() Predicate { return Predicate{Kind: PredicateAll} }

// Equals matches rows whose value equals literal. The literal "All" matches every row.
func Equals(literal string) Predicate {
	if literal == AllSentinel {
		return All()
	}
	return Predicate{Kind: PredicateEquals, Value: literal}
}

// Between matches numeric values in [min, max].
func Between(min, max float64) Predicate {
	return Predicate{Kind: PredicateBetween, Min: min, Max: max}
}

// IsAll reports whether the predicate is always true. The zero Predicate
// counts as All; one with a value or bounds but no op does not.
func (p Predicate) IsAll() bool {
	if p.Kind == "" {
		return p == Predicate{}
	}
	return p.Kind == PredicateAll || (p.Kind == PredicateEquals && p.Value == AllSentinel)
}

func (p Predicate) String() string {
	switch {
	case p.IsAll():
		return AllSentinel
	case p.Kind == PredicateBetween:
		return fmt.Sprintf("%g..%g", p.Min, p.Max)
	default:
		return p.Value
	}
}

// FilterSet maps a column to the predicates it must satisfy. Every predicate
// of every column must hold for a row to pass.
type FilterSet map[string][]Predicate

// Add appends a predicate for column and returns the set.
func (f FilterSet) Add(column string, p Predicate) FilterSet {
	f[column] = append(f[column], p)
	return f
}

// Columns returns the filtered columns in sorted order.
func (f FilterSet) Columns() []string {
	cols := make([]string, 0, len(f))
	for c := range f {
		cols = append(cols, c)
	}
	slices.Sort(cols)
	return cols
}

// AggFunc is the per-group reduction of a metric.
type AggFunc string

const (
	AggMean   AggFunc = "mean"
	AggCount  AggFunc = "count"
	AggSum    AggFunc = "sum"
	AggMedian AggFunc = "median"
	AggMin    AggFunc = "min"
	AggMax    AggFunc = "max"
	AggStd    AggFunc = "std"
)

// Valid reports whether f is a known function. The empty value means mean.
func (f AggFunc) Valid() bool {
	switch f {
	case "", AggMean, AggCount, AggSum, AggMedian, AggMin, AggMax, AggStd:
		return true
	}
	return false
}

// AggregationSpec requests Func of each metric grouped by GroupBy.
type AggregationSpec struct {
	GroupBy string   `json:"group_by"`
	Metrics []string `json:"metrics"`
	Func    AggFunc  `json:"func,omitempty"`
}

// Group is one group of a GroupResult. Values omits a metric that has no
// observations in the group; Counts always lists every metric.
type Group struct {
	Key    string             `json:"key"`
	Rows   int                `json:"rows"`
	Values map[string]float64 `json:"values"`
	Counts map[string]int     `json:"counts"`
}

// GroupResult is the ordered output of an aggregation.
type GroupResult struct {
	GroupBy string   `json:"group_by"`
	Func    AggFunc  `json:"func"`
	Metrics []string `json:"metrics"`
	Groups  []Group  `json:"groups"`
}

// Find returns the group with the given key.
func (r *GroupResult) Find(key string) (Group, bool) {
	for _, g := range r.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{}, false
}

// CrosstabSpec requests a two-way frequency table. RowOrder and ColumnOrder
// are canonical axis orders; when empty, the column's levels are used.
type CrosstabSpec struct {
	Row         string   `json:"row"`
	Column      string   `json:"column"`
	Normalize   bool     `json:"normalize"`
	RowOrder    []string `json:"row_order,omitempty"`
	ColumnOrder []string `json:"column_order,omitempty"`
}

// CrosstabResult is a dense table: Cells[i][j] is the count (or row
// percentage when Normalized) of RowLabels[i] with ColumnLabels[j].
type CrosstabResult struct {
	Row          string      `json:"row"`
	Column       string      `json:"column"`
	Normalized   bool        `json:"normalized"`
	RowLabels    []string    `json:"row_labels"`
	ColumnLabels []string    `json:"column_labels"`
	Cells        [][]float64 `json:"cells"`
	RowTotals    []int       `json:"row_totals"`
}

// Get returns the cell for a pair of labels.
func (r *CrosstabResult) Get(row, col string) (float64, bool) {
	i := slices.Index(r.RowLabels, row)
	j := slices.Index(r.ColumnLabels, col)
	if i < 0 || j < 0 {
		return 0, false
	}
	return r.Cells[i][j], true
}

// Coefficient is one cell of a CorrelationMatrix. N is the number of
// pairwise-complete observations.
type Coefficient struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
	N       int     `json:"n"`
}

// CorrelationMatrix is a symmetric matrix of Pearson coefficients.
type CorrelationMatrix struct {
	Columns []string        `json:"columns"`
	Cells   [][]Coefficient `json:"cells"`
}

// Get returns the coefficient of a and b. It fails with ErrColumnNotFound
// when either column is not part of the matrix and with
// ErrCoefficientUndefined when the pair has no defined coefficient.
func (m *CorrelationMatrix) Get(a, b string) (float64, error) {
	i := slices.Index(m.Columns, a)
	if i < 0 {
		return 0, core.NewColumnNotFoundError(a)
	}
	j := slices.Index(m.Columns, b)
	if j < 0 {
		return 0, core.NewColumnNotFoundError(b)
	}
	c := m.Cells[i][j]
	if !c.Defined {
		return 0, fmt.Errorf("%w for %q and %q", core.ErrCoefficientUndefined, a, b)
	}
	return c.Value, nil
}

// Direction selects the top or bottom of a ranking.
type Direction string

const (
	Top    Direction = "top"
	Bottom Direction = "bottom"
)

// CohortSpec requests the N rows ranked highest (Top) or lowest (Bottom) by
// RankColumn, profiled by Metrics and LabelColumn.
type CohortSpec struct {
	N           int       `json:"n"`
	RankColumn  string    `json:"rank_column"`
	Direction   Direction `json:"direction"`
	Metrics     []string  `json:"metrics"`
	LabelColumn string    `json:"label_column,omitempty"`
}

// Share is one category of a normalized distribution.
type Share struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// CohortResult profiles a selected cohort.
type CohortResult struct {
	N            int                `json:"n"`
	Size         int                `json:"size"`
	RankColumn   string             `json:"rank_column"`
	Direction    Direction          `json:"direction"`
	Metrics      []string           `json:"metrics"`
	Means        map[string]float64 `json:"means"`
	LabelColumn  string             `json:"label_column,omitempty"`
	Distribution []Share            `json:"distribution"`
	RowIDs       []int              `json:"row_ids"`
}

// CohortDelta is top minus bottom per metric. A metric without a mean on
// either side has no delta.
type CohortDelta struct {
	Metrics []string           `json:"metrics"`
	Delta   map[string]float64 `json:"delta"`
}

// Distribution is the normalized frequency of each category of a column.
type Distribution struct {
	Column string  `json:"column"`
	Total  int     `json:"total"`
	Shares []Share `json:"shares"`
}

// HistogramBin is one equal-width bin.
type HistogramBin struct {
	Label string  `json:"label"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram is an equal-width binning of a numeric column.
type Histogram struct {
	Column string         `json:"column"`
	Bins   []HistogramBin `json:"bins"`
}

// Summary is the KPI block of a filtered view. Averages are nil when the
// view has no observations.
type Summary struct {
	Rows          int      `json:"rows"`
	TotalRows     int      `json:"total_rows"`
	AvgTotalScore *float64 `json:"avg_total_score"`
	PassRate      *float64 `json:"pass_rate"`
	AvgAttendance *float64 `json:"avg_attendance"`
	AvgStudyHours *float64 `json:"avg_study_hours"`
}

// Dashboard is the standard panel set computed over one filtered view.
// Optional panels are nil when their column is absent.
type Dashboard struct {
	Summary              Summary           `json:"summary"`
	GradeDistribution    Distribution      `json:"grade_distribution"`
	DepartmentByGrade    CrosstabResult    `json:"department_by_grade"`
	GenderByGrade        CrosstabResult    `json:"gender_by_grade"`
	MetricsByGrade       GroupResult       `json:"metrics_by_grade"`
	Correlations         CorrelationMatrix `json:"correlations"`
	ScoreHistogram       Histogram         `json:"score_histogram"`
	StudyHours           GroupResult       `json:"study_hours"`
	Sleep                GroupResult       `json:"sleep"`
	StressCategories     GroupResult       `json:"stress_categories"`
	StressLevels         GroupResult       `json:"stress_levels"`
	Extracurricular      GroupResult       `json:"extracurricular"`
	Internet             GroupResult       `json:"internet"`
	Gender               GroupResult       `json:"gender"`
	Age                  GroupResult       `json:"age"`
	Income               GroupResult       `json:"income"`
	ParentEducation      *GroupResult      `json:"parent_education,omitempty"`
	ParentEducationGrade *CrosstabResult   `json:"parent_education_by_grade,omitempty"`
	TopCohort            CohortResult      `json:"top_cohort"`
	BottomCohort         CohortResult      `json:"bottom_cohort"`
	CohortDelta          CohortDelta       `json:"cohort_delta"`
}
