package analysis

import (
	"context"

	"golang.org/x/sync/errgroup"

	"gradelens/domain/dataset"
	"gradelens/domain/query"
)

// DefaultCohortSize matches the cohort panel's default slider value.
const DefaultCohortSize = 250

// DashboardOptions tunes the parameterized panels.
type DashboardOptions struct {
	CohortSize    int
	HistogramBins int
	// ScoreColumn feeds the histogram and ranks the cohorts.
	ScoreColumn string
}

func (o DashboardOptions) withDefaults() DashboardOptions {
	if o.CohortSize <= 0 {
		o.CohortSize = DefaultCohortSize
	}
	if o.HistogramBins <= 0 {
		o.HistogramBins = DefaultHistogramBins
	}
	if o.ScoreColumn == "" {
		o.ScoreColumn = dataset.ColTotal
	}
	return o
}

// BuildDashboard computes every standard panel over one filtered view. Panels
// are independent reads of the same immutable dataset and run concurrently;
// the first failure cancels the rest.
func BuildDashboard(ctx context.Context, ds *dataset.Dataset, total int, opts DashboardOptions) (*query.Dashboard, error) {
	opts = opts.withDefaults()
	d := &query.Dashboard{}
	g, ctx := errgroup.WithContext(ctx)

	panel := func(fn func() error) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn()
		})
	}
	aggregate := func(dst *query.GroupResult, groupBy string, metrics ...string) {
		panel(func() error {
			r, err := Aggregate(ds, query.AggregationSpec{GroupBy: groupBy, Metrics: metrics})
			if err != nil {
				return err
			}
			*dst = *r
			return nil
		})
	}
	crosstab := func(dst *query.CrosstabResult, row string) {
		panel(func() error {
			r, err := Crosstab(ds, query.CrosstabSpec{Row: row, Column: dataset.ColGrade, ColumnOrder: dataset.GradeLevels})
			if err != nil {
				return err
			}
			*dst = *r
			return nil
		})
	}

	panel(func() error {
		s, err := Summarize(ds, total)
		if err != nil {
			return err
		}
		d.Summary = *s
		return nil
	})
	panel(func() error {
		dist, err := Distribution(ds, dataset.ColGrade)
		if err != nil {
			return err
		}
		d.GradeDistribution = *dist
		return nil
	})
	panel(func() error {
		h, err := Histogram(ds, opts.ScoreColumn, opts.HistogramBins)
		if err != nil {
			return err
		}
		d.ScoreHistogram = *h
		return nil
	})
	panel(func() error {
		m, err := Correlate(ds, dataset.CorrelationColumns)
		if err != nil {
			return err
		}
		d.Correlations = *m
		return nil
	})

	crosstab(&d.DepartmentByGrade, dataset.ColDepartment)
	crosstab(&d.GenderByGrade, dataset.ColGender)

	aggregate(&d.MetricsByGrade, dataset.ColGrade, dataset.ScoreColumns...)
	aggregate(&d.StudyHours, dataset.ColStudyCategory, dataset.ColTotal)
	aggregate(&d.Sleep, dataset.ColSleepCategory, dataset.ColTotal)
	aggregate(&d.StressCategories, dataset.ColStressCategory, dataset.ColTotal)
	aggregate(&d.StressLevels, dataset.ColStress, dataset.ColTotal, dataset.ColMidterm, dataset.ColFinal)
	aggregate(&d.Extracurricular, dataset.ColExtracurricular, dataset.ColTotal, dataset.ColStudyHours)
	aggregate(&d.Internet, dataset.ColInternet, dataset.ColTotal, dataset.ColAssignments)
	aggregate(&d.Gender, dataset.ColGender, dataset.ColTotal, dataset.ColMidterm, dataset.ColFinal)
	aggregate(&d.Age, dataset.ColAge, dataset.ColTotal, dataset.ColStudyHours, dataset.ColStress)
	aggregate(&d.Income, dataset.ColIncome, dataset.ColTotal, dataset.ColStress)

	if hasValues(ds, dataset.ColParentEducation) {
		d.ParentEducation = &query.GroupResult{}
		d.ParentEducationGrade = &query.CrosstabResult{}
		aggregate(d.ParentEducation, dataset.ColParentEducation, dataset.ColTotal)
		crosstab(d.ParentEducationGrade, dataset.ColParentEducation)
	}

	cohort := func(dst *query.CohortResult, dir query.Direction) {
		panel(func() error {
			r, err := Cohort(ds, query.CohortSpec{
				N:           opts.CohortSize,
				RankColumn:  opts.ScoreColumn,
				Direction:   dir,
				Metrics:     dataset.ProfileColumns,
				LabelColumn: dataset.ColGrade,
			})
			if err != nil {
				return err
			}
			*dst = *r
			return nil
		})
	}
	cohort(&d.TopCohort, query.Top)
	cohort(&d.BottomCohort, query.Bottom)

	if err := g.Wait(); err != nil {
		return nil, err
	}

	delta, err := CompareCohorts(&d.TopCohort, &d.BottomCohort)
	if err != nil {
		return nil, err
	}
	d.CohortDelta = *delta
	return d, nil
}

// hasValues reports whether column exists and holds at least one value in
// this view.
func hasValues(ds *dataset.Dataset, column string) bool {
	if !ds.Schema().Has(column) {
		return false
	}
	for i := 0; i < ds.Len(); i++ {
		if !ds.Value(i, column).Null {
			return true
		}
	}
	return false
}
