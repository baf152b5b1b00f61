package ui

import "gradelens/domain/query"

// Every query body carries the filter selection under "filters":
//
//	{"filters": {"Department": [{"op": "eq", "value": "CS"}],
//	             "Total_Score": [{"op": "between", "min": 60, "max": 100}]}}

type openRequest struct {
	Path  string `json:"path" binding:"required"`
	Sheet string `json:"sheet"`
}

type filterRequest struct {
	Filters query.FilterSet `json:"filters"`
}

type aggregateRequest struct {
	Filters query.FilterSet `json:"filters"`
	GroupBy string          `json:"group_by" binding:"required"`
	Metrics []string        `json:"metrics" binding:"required,min=1"`
	Func    query.AggFunc   `json:"func"`
}

func (r aggregateRequest) spec() query.AggregationSpec {
	return query.AggregationSpec{GroupBy: r.GroupBy, Metrics: r.Metrics, Func: r.Func}
}

type crosstabRequest struct {
	Filters     query.FilterSet `json:"filters"`
	Row         string          `json:"row" binding:"required"`
	Column      string          `json:"column" binding:"required"`
	Normalize   bool            `json:"normalize"`
	RowOrder    []string        `json:"row_order"`
	ColumnOrder []string        `json:"column_order"`
}

func (r crosstabRequest) spec() query.CrosstabSpec {
	return query.CrosstabSpec{
		Row:         r.Row,
		Column:      r.Column,
		Normalize:   r.Normalize,
		RowOrder:    r.RowOrder,
		ColumnOrder: r.ColumnOrder,
	}
}

type correlateRequest struct {
	Filters query.FilterSet `json:"filters"`
	Columns []string        `json:"columns"`
}

type cohortRequest struct {
	Filters     query.FilterSet `json:"filters"`
	N           int             `json:"n"`
	RankColumn  string          `json:"rank_column" binding:"required"`
	Direction   query.Direction `json:"direction"`
	Metrics     []string        `json:"metrics"`
	LabelColumn string          `json:"label_column"`
}

func (r cohortRequest) spec(dir query.Direction) query.CohortSpec {
	return query.CohortSpec{
		N:           r.N,
		RankColumn:  r.RankColumn,
		Direction:   dir,
		Metrics:     r.Metrics,
		LabelColumn: r.LabelColumn,
	}
}

type columnRequest struct {
	Filters query.FilterSet `json:"filters"`
	Column  string          `json:"column" binding:"required"`
	Bins    int             `json:"bins" binding:"omitempty,min=1,max=500"`
}

type exportRequest struct {
	Filters query.FilterSet `json:"filters"`
	Format  string          `json:"format" binding:"omitempty,oneof=csv xlsx"`
}
