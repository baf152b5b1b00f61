package ui

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"gradelens/adapters/excel"
	"gradelens/domain/core"
	"gradelens/domain/query"
	"gradelens/internal/errors"
)

// fail writes {code, error} with the status that matches the error code
func (s *Server) fail(c *gin.Context, err error) {
	code := errors.CodeFor(err)
	status := errors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"code": code, "error": err.Error()})
}

// bind decodes an optional JSON body into dst and validates it. An empty
// body is validated as the zero request.
func (s *Server) bind(c *gin.Context, dst interface{}) bool {
	var err error
	if c.Request.ContentLength == 0 {
		err = binding.Validator.ValidateStruct(dst)
	} else {
		err = c.ShouldBindJSON(dst)
	}
	if err != nil {
		s.fail(c, errors.ValidationError(err.Error()))
		return false
	}
	return true
}

func (s *Server) sessionID(c *gin.Context) (core.ID, bool) {
	id, err := core.ParseID(c.Param("id"))
	if err != nil {
		s.fail(c, errors.WithCode(errors.CodeNotFound, core.NewSessionNotFoundError(core.ID(c.Param("id")))))
		return "", false
	}
	return id, true
}

func (s *Server) handleListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": s.service.Sessions(c.Request.Context())})
}

// handleOpenSession accepts a multipart upload (field "file", optional
// "sheet") or, when allowed, a JSON {path, sheet}.
func (s *Server) handleOpenSession(c *gin.Context) {
	ctx := c.Request.Context()

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.options.MaxUploadBytes)
		header, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if stderrors.As(err, &tooLarge) {
				s.fail(c, errors.InvalidInput(fmt.Sprintf("upload exceeds %d bytes", s.options.MaxUploadBytes)))
				return
			}
			s.fail(c, errors.InvalidInput("multipart field \"file\" is required"))
			return
		}
		f, err := header.Open()
		if err != nil {
			s.fail(c, errors.Wrap(err, "failed to open upload"))
			return
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			s.fail(c, errors.Wrap(err, "failed to read upload"))
			return
		}

		info, err := s.service.OpenUpload(ctx, filepath.Base(header.Filename), c.PostForm("sheet"), data)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, info)
		return
	}

	if !s.options.AllowLocalFiles {
		s.fail(c, errors.InvalidInput("opening server paths is disabled; upload the file instead"))
		return
	}
	var req openRequest
	if !s.bind(c, &req) {
		return
	}
	info, err := s.service.OpenFile(ctx, req.Path, req.Sheet)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (s *Server) handleGetSession(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	info, err := s.service.Session(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleCloseSession(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	if err := s.service.Close(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleValues(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	column := c.Param("column")
	values, err := s.service.Values(c.Request.Context(), id, column)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"column": column, "values": values})
}

func (s *Server) handleAggregate(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	var req aggregateRequest
	if !s.bind(c, &req) {
		return
	}
	s.reply(c)(s.service.Aggregate(c.Request.Context(), id, req.Filters, req.spec()))
}

func (s *Server) handleCrosstab(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	var req crosstabRequest
	if !s.bind(c, &req) {
		return
	}
	s.reply(c)(s.service.Crosstab(c.Request.Context(), id, req.Filters, req.spec()))
}

func (s *Server) handleCorrelate(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	var req correlateRequest
	if !s.bind(c, &req) {
		return
	}
	s.reply(c)(s.service.Correlate(c.Request.Context(), id, req.Filters, req.Columns))
}

func (s *Server) handleCohort(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	var req cohortRequest
	if !s.bind(c, &req) {
		return
	}
	s.reply(c)(s.service.Cohort(c.Request.Context(), id, req.Filters, req.spec(req.Direction)))
}

// handleCompareCohorts takes one cohort request and compares its top and
// bottom selections; Direction is ignored.
func (s *Server) handleCompareCohorts(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	var req cohortRequest
	if !s.bind(c, &req) {
		return
	}
	s.reply(c)(s.service.CompareCohorts(c.Request.Context(), id, req.Filters, req.spec(query.Top), req.spec(query.Bottom)))
}

func (s *Server) handleHistogram(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	var req columnRequest
	if !s.bind(c, &req) {
		return
	}
	s.reply(c)(s.service.Histogram(c.Request.Context(), id, req.Filters, req.Column, req.Bins))
}

func (s *Server) handleDistribution(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	var req columnRequest
	if !s.bind(c, &req) {
		return
	}
	s.reply(c)(s.service.Distribution(c.Request.Context(), id, req.Filters, req.Column))
}

func (s *Server) handleSummary(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	var req filterRequest
	if !s.bind(c, &req) {
		return
	}
	s.reply(c)(s.service.Summary(c.Request.Context(), id, req.Filters))
}

func (s *Server) handleDashboard(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	var req filterRequest
	if !s.bind(c, &req) {
		return
	}
	s.reply(c)(s.service.Dashboard(c.Request.Context(), id, req.Filters))
}

var exportContentTypes = map[excel.Format]string{
	excel.FormatCSV:  "text/csv; charset=utf-8",
	excel.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// handleExport returns the filtered rows as an attachment
func (s *Server) handleExport(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	var req exportRequest
	if !s.bind(c, &req) {
		return
	}
	format := excel.Format(req.Format)
	if format == "" {
		format = excel.FormatCSV
	}

	var buf bytes.Buffer
	if err := s.service.Export(c.Request.Context(), id, req.Filters, format, &buf); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"students_filtered.%s\"", format))
	c.Data(http.StatusOK, exportContentTypes[format], buf.Bytes())
}

// reply returns a sink for a (result, error) pair
func (s *Server) reply(c *gin.Context) func(interface{}, error) {
	return func(result interface{}, err error) {
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
