package app

import (
	"context"
	"io"
	"time"

	"gradelens/adapters/excel"
	"gradelens/domain/core"
	"gradelens/domain/dataset"
	"gradelens/domain/query"
	"gradelens/internal"
	"gradelens/internal/analysis"
	"gradelens/internal/errors"
	"gradelens/internal/loader"
	"gradelens/internal/metrics"
	"gradelens/internal/session"
	"gradelens/ports"
)

// AnalysisService opens sessions over student tables and answers queries
// against them. Every query filters the session's dataset first, then runs
// one engine operation on the surviving rows.
type AnalysisService struct {
	cache    *loader.Cache
	sessions *session.Manager
	uploads  ports.UploadStore
	options  analysis.DashboardOptions
	logger   *internal.Logger
}

// SessionInfo describes an open session
type SessionInfo struct {
	*session.Session
	Rows    int              `json:"rows"`
	Columns []dataset.Column `json:"columns"`
}

// CohortComparison is a top and a bottom cohort with their metric delta
type CohortComparison struct {
	Top    *query.CohortResult `json:"top"`
	Bottom *query.CohortResult `json:"bottom"`
	Delta  *query.CohortDelta  `json:"delta"`
}

// NewAnalysisService creates the service. uploads may be nil when uploads
// are not accepted.
func NewAnalysisService(cache *loader.Cache, sessions *session.Manager, uploads ports.UploadStore, options analysis.DashboardOptions, logger *internal.Logger) *AnalysisService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &AnalysisService{
		cache:    cache,
		sessions: sessions,
		uploads:  uploads,
		options:  options,
		logger:   logger.Component("analysis"),
	}
}

// Open loads src (from cache when its content was seen before) and opens a
// session over it.
func (s *AnalysisService) Open(ctx context.Context, name string, src ports.TableSource) (*SessionInfo, error) {
	return s.open(ctx, name, src, "")
}

func (s *AnalysisService) open(ctx context.Context, name string, src ports.TableSource, uploadPath string) (*SessionInfo, error) {
	ds, id, err := s.cache.Load(ctx, src)
	if err != nil {
		if core.IsLoadError(err) {
			s.logger.Info("rejected %s: %v", name, err)
		}
		return nil, errors.Wrapf(err, "failed to load %s", name)
	}
	sess, err := s.sessions.Create(ctx, session.Session{Name: name, Source: id, Dataset: ds, UploadPath: uploadPath})
	if err != nil {
		return nil, err
	}
	s.logger.Info("session %s opened on %s (%d rows)", sess.ID, name, ds.Len())
	return describe(sess), nil
}

// OpenFile opens a session over a CSV or Excel file on disk
func (s *AnalysisService) OpenFile(ctx context.Context, path, sheet string) (*SessionInfo, error) {
	src, err := excel.NewFileSource(path, sheet)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	return s.Open(ctx, path, src)
}

// OpenUpload stages an uploaded file and opens a session over it. The staged
// file is removed when the load fails or the session is closed.
func (s *AnalysisService) OpenUpload(ctx context.Context, name, sheet string, data []byte) (*SessionInfo, error) {
	if s.uploads == nil {
		return nil, errors.InvalidInput("uploads are disabled")
	}
	if _, err := excel.FormatFromName(name); err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	path, err := s.uploads.Store(ctx, name, data)
	if err != nil {
		return nil, err
	}
	src, err := excel.NewFileSource(path, sheet)
	if err == nil {
		var info *SessionInfo
		if info, err = s.open(ctx, name, src, path); err == nil {
			return info, nil
		}
	}
	if derr := s.uploads.Delete(ctx, path); derr != nil {
		s.logger.Warn("failed to remove staged upload %s: %v", path, derr)
	}
	return nil, err
}

// Session describes an open session
func (s *AnalysisService) Session(ctx context.Context, id core.ID) (*SessionInfo, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "session lookup failed")
	}
	return describe(sess), nil
}

// Sessions lists the open sessions
func (s *AnalysisService) Sessions(ctx context.Context) []*SessionInfo {
	list := s.sessions.List(ctx)
	out := make([]*SessionInfo, len(list))
	for i, sess := range list {
		out[i] = describe(sess)
	}
	return out
}

// Close ends a session and releases its staged upload
func (s *AnalysisService) Close(ctx context.Context, id core.ID) error {
	sess, err := s.sessions.Delete(ctx, id)
	if err != nil {
		return errors.Wrap(err, "session lookup failed")
	}
	if sess.UploadPath != "" && s.uploads != nil {
		if err := s.uploads.Delete(ctx, sess.UploadPath); err != nil {
			s.logger.Warn("failed to remove staged upload %s: %v", sess.UploadPath, err)
		}
	}
	s.logger.Info("session %s closed", id)
	return nil
}

func describe(sess *session.Session) *SessionInfo {
	return &SessionInfo{
		Session: sess,
		Rows:    sess.Dataset.Len(),
		Columns: sess.Dataset.Schema().Columns(),
	}
}

// Values returns the filter choices for a column of the whole session:
// "All" followed by every distinct value in the column's order.
func (s *AnalysisService) Values(ctx context.Context, id core.ID, column string) ([]string, error) {
	return run(ctx, s, "values", id, nil, func(ds *dataset.Dataset, _ int) ([]string, error) {
		vals, err := ds.UniqueValues(column)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(vals)+1)
		out = append(out, query.AllSentinel)
		for _, v := range vals {
			out = append(out, v.String())
		}
		return out, nil
	})
}

// Aggregate groups the filtered rows
func (s *AnalysisService) Aggregate(ctx context.Context, id core.ID, filters query.FilterSet, spec query.AggregationSpec) (*query.GroupResult, error) {
	return run(ctx, s, "aggregate", id, filters, func(ds *dataset.Dataset, _ int) (*query.GroupResult, error) {
		return analysis.Aggregate(ds, spec)
	})
}

// Crosstab counts the filtered rows by two categories
func (s *AnalysisService) Crosstab(ctx context.Context, id core.ID, filters query.FilterSet, spec query.CrosstabSpec) (*query.CrosstabResult, error) {
	return run(ctx, s, "crosstab", id, filters, func(ds *dataset.Dataset, _ int) (*query.CrosstabResult, error) {
		return analysis.Crosstab(ds, spec)
	})
}

// Correlate computes the Pearson matrix of the filtered rows. No columns
// means the standard academic and lifestyle set.
func (s *AnalysisService) Correlate(ctx context.Context, id core.ID, filters query.FilterSet, columns []string) (*query.CorrelationMatrix, error) {
	if len(columns) == 0 {
		columns = dataset.CorrelationColumns
	}
	return run(ctx, s, "correlate", id, filters, func(ds *dataset.Dataset, _ int) (*query.CorrelationMatrix, error) {
		return analysis.Correlate(ds, columns)
	})
}

// Cohort selects the top or bottom N of the filtered rows
func (s *AnalysisService) Cohort(ctx context.Context, id core.ID, filters query.FilterSet, spec query.CohortSpec) (*query.CohortResult, error) {
	return run(ctx, s, "cohort", id, filters, func(ds *dataset.Dataset, _ int) (*query.CohortResult, error) {
		return analysis.Cohort(ds, spec)
	})
}

// CompareCohorts selects both cohorts from the same filtered view and
// subtracts bottom from top per metric.
func (s *AnalysisService) CompareCohorts(ctx context.Context, id core.ID, filters query.FilterSet, top, bottom query.CohortSpec) (*CohortComparison, error) {
	return run(ctx, s, "compare", id, filters, func(ds *dataset.Dataset, _ int) (*CohortComparison, error) {
		t, err := analysis.Cohort(ds, top)
		if err != nil {
			return nil, err
		}
		b, err := analysis.Cohort(ds, bottom)
		if err != nil {
			return nil, err
		}
		delta, err := analysis.CompareCohorts(t, b)
		if err != nil {
			return nil, err
		}
		return &CohortComparison{Top: t, Bottom: b, Delta: delta}, nil
	})
}

// Histogram bins a numeric column of the filtered rows
func (s *AnalysisService) Histogram(ctx context.Context, id core.ID, filters query.FilterSet, column string, bins int) (*query.Histogram, error) {
	if bins <= 0 {
		bins = s.options.HistogramBins
	}
	return run(ctx, s, "histogram", id, filters, func(ds *dataset.Dataset, _ int) (*query.Histogram, error) {
		return analysis.Histogram(ds, column, bins)
	})
}

// Distribution gives the share of each value of a column
func (s *AnalysisService) Distribution(ctx context.Context, id core.ID, filters query.FilterSet, column string) (*query.Distribution, error) {
	return run(ctx, s, "distribution", id, filters, func(ds *dataset.Dataset, _ int) (*query.Distribution, error) {
		return analysis.Distribution(ds, column)
	})
}

// Summary gives the KPI block
func (s *AnalysisService) Summary(ctx context.Context, id core.ID, filters query.FilterSet) (*query.Summary, error) {
	return run(ctx, s, "summary", id, filters, analysis.Summarize)
}

// Dashboard computes every standard panel of the filtered rows
func (s *AnalysisService) Dashboard(ctx context.Context, id core.ID, filters query.FilterSet) (*query.Dashboard, error) {
	return run(ctx, s, "dashboard", id, filters, func(ds *dataset.Dataset, total int) (*query.Dashboard, error) {
		return analysis.BuildDashboard(ctx, ds, total, s.options)
	})
}

// Export writes the filtered rows in the source schema
func (s *AnalysisService) Export(ctx context.Context, id core.ID, filters query.FilterSet, format excel.Format, w io.Writer) error {
	_, err := run(ctx, s, "export", id, filters, func(ds *dataset.Dataset, _ int) (struct{}, error) {
		switch format {
		case excel.FormatCSV, "":
			return struct{}{}, excel.WriteCSV(w, ds)
		case excel.FormatXLSX:
			return struct{}{}, excel.WriteXLSX(w, ds)
		default:
			return struct{}{}, errors.InvalidInput("unsupported export format " + string(format))
		}
	})
	return err
}

// run resolves the session, applies filters and times fn. fn also receives
// the unfiltered row count.
func run[T any](ctx context.Context, s *AnalysisService, op string, id core.ID, filters query.FilterSet, fn func(*dataset.Dataset, int) (T, error)) (T, error) {
	start := time.Now()
	var zero T

	result, err := func() (T, error) {
		sess, err := s.sessions.Get(ctx, id)
		if err != nil {
			return zero, err
		}
		ds, err := analysis.Filter(sess.Dataset, filters)
		if err != nil {
			return zero, err
		}
		return fn(ds, sess.Dataset.Len())
	}()

	metrics.ObserveQuery(op, start, err)
	if err != nil {
		if core.IsQueryError(err) || core.IsNotFoundError(err) {
			s.logger.Debug("%s on %s rejected: %v", op, id, err)
		} else {
			s.logger.Warn("%s on %s failed: %v", op, id, err)
		}
		return zero, errors.Wrapf(err, "%s failed", op)
	}
	s.logger.Trace("%s on %s took %s", op, id, time.Since(start))
	return result, nil
}
