package ui

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradelens/app"
	"gradelens/domain/dataset"
	"gradelens/domain/query"
	"gradelens/internal/analysis"
	"gradelens/internal/errors"
	"gradelens/internal/loader"
	"gradelens/internal/session"
	"gradelens/internal/storage"
	"gradelens/internal/testkit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, options ServerOptions) *Server {
	t.Helper()
	svc := app.NewAnalysisService(
		loader.NewCache(analysis.DefaultBinSpecs(), nil),
		session.NewManager(),
		storage.NewLocalFileStorageWithPath(t.TempDir(), 0),
		analysis.DashboardOptions{CohortSize: 15},
		nil,
	)
	return NewServer(svc, options, nil)
}

func studentsCSV(n int) []byte {
	config := testkit.DefaultStudentConfig()
	config.StudentCount = n
	return testkit.NewStudentDataGenerator(config).CSV()
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func upload(t *testing.T, s *Server, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func openSession(t *testing.T, s *Server, n int) string {
	t.Helper()
	w := upload(t, s, "students.csv", studentsCSV(n))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var info struct {
		ID   string `json:"id"`
		Rows int    `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	require.Equal(t, n, info.Rows)
	return info.ID
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)
	return body.Code
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, ServerOptions{Metrics: true})
	w := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gradelens_sessions_active")
}

func TestServer_MetricsDisabled(t *testing.T) {
	s := newTestServer(t, ServerOptions{})
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/metrics", nil).Code)
}

func TestServer_SessionLifecycle(t *testing.T) {
	s := newTestServer(t, ServerOptions{})
	id := openSession(t, s, 30)

	w := do(t, s, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), dataset.ColPassStatus)

	w = do(t, s, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	w = do(t, s, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, s, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.CodeNotFound, decodeError(t, w))

	w = do(t, s, http.MethodGet, "/api/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_UploadErrors(t *testing.T) {
	s := newTestServer(t, ServerOptions{})

	w := upload(t, s, "bad.csv", []byte("Grade,Total_Score\nA,90\n"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, errors.CodeSchemaError, decodeError(t, w))

	bad := strings.Replace(string(studentsCSV(3)), "\n", "\nEngineering,Male,19,Z,1,1,1,1,1,1,1,1,1,1,1,No,No,Low,\n", 1)
	w = upload(t, s, "bad.csv", []byte(bad))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, errors.CodeParseError, decodeError(t, w))
	assert.Contains(t, w.Body.String(), "row 1")

	small := newTestServer(t, ServerOptions{MaxUploadBytes: 64})
	w = upload(t, small, "big.csv", studentsCSV(20))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_OpenLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.csv")
	require.NoError(t, os.WriteFile(path, studentsCSV(12), 0o644))

	closed := newTestServer(t, ServerOptions{})
	w := do(t, closed, http.MethodPost, "/api/sessions", gin.H{"path": path})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	open := newTestServer(t, ServerOptions{AllowLocalFiles: true})
	w = do(t, open, http.MethodPost, "/api/sessions", gin.H{"path": path})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, open, http.MethodPost, "/api/sessions", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.CodeValidationError, decodeError(t, w))
}

func TestServer_Values(t *testing.T) {
	s := newTestServer(t, ServerOptions{})
	id := openSession(t, s, 50)

	w := do(t, s, http.MethodGet, "/api/sessions/"+id+"/values/"+url.PathEscape(dataset.ColStressCategory), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Values []string `json:"values"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, query.AllSentinel, body.Values[0])
	assert.Subset(t, []string{query.AllSentinel, "Low (1-3)", "Medium (4-6)", "High (7-10)"}, body.Values)
}

func TestServer_Queries(t *testing.T) {
	s := newTestServer(t, ServerOptions{})
	id := openSession(t, s, 80)
	base := "/api/sessions/" + id
	filters := query.FilterSet{}.
		Add(dataset.ColTotal, query.Between(40, 100)).
		Add(dataset.ColGender, query.Equals(query.AllSentinel))

	tests := []struct {
		name string
		path string
		body interface{}
		want string
	}{
		{"aggregate", "/aggregate", gin.H{"filters": filters, "group_by": dataset.ColGrade, "metrics": []string{dataset.ColTotal}}, `"groups"`},
		{"crosstab", "/crosstab", gin.H{"row": dataset.ColDepartment, "column": dataset.ColGrade, "normalize": true}, `"row_labels"`},
		{"correlate", "/correlate", gin.H{"filters": filters}, `"cells"`},
		{"cohort", "/cohort", gin.H{"n": 5, "rank_column": dataset.ColTotal, "direction": "top", "metrics": dataset.ProfileColumns}, `"means"`},
		{"compare", "/cohorts/compare", gin.H{"n": 5, "rank_column": dataset.ColTotal, "metrics": dataset.ProfileColumns}, `"delta"`},
		{"histogram", "/histogram", gin.H{"column": dataset.ColTotal, "bins": 10}, `"bins"`},
		{"distribution", "/distribution", gin.H{"column": dataset.ColGrade}, `"shares"`},
		{"summary without body", "/summary", nil, `"total_rows":80`},
		{"dashboard", "/dashboard", gin.H{"filters": filters}, `"top_cohort"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, base+tt.path, tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestServer_QueryErrors(t *testing.T) {
	s := newTestServer(t, ServerOptions{})
	id := openSession(t, s, 20)
	base := "/api/sessions/" + id

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"unknown column", "/aggregate", gin.H{"group_by": "Shoe_Size", "metrics": []string{dataset.ColTotal}}, http.StatusBadRequest, errors.CodeColumnNotFound},
		{"missing metrics", "/aggregate", gin.H{"group_by": dataset.ColGrade}, http.StatusBadRequest, errors.CodeValidationError},
		{"inverted range", "/summary", `{"filters": {"Total_Score": [{"op": "between", "min": 90, "max": 10}]}}`, http.StatusBadRequest, errors.CodeInvalidRange},
		{"bad cohort size", "/cohort", gin.H{"n": -1, "rank_column": dataset.ColTotal, "direction": "top"}, http.StatusBadRequest, errors.CodeInvalidCohortSize},
		{"non numeric rank", "/cohort", gin.H{"n": 3, "rank_column": dataset.ColGrade, "direction": "top"}, http.StatusBadRequest, errors.CodeNotNumeric},
		{"bad export format", "/export", gin.H{"format": "pdf"}, http.StatusBadRequest, errors.CodeValidationError},
		{"malformed json", "/summary", `{"filters":`, http.StatusBadRequest, errors.CodeValidationError},
		{"filter without op", "/summary", `{"filters": {"Grade": [{"value": "A"}]}}`, http.StatusBadRequest, errors.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, base+tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decodeError(t, w))
		})
	}

	// the session still answers after failed queries
	w := do(t, s, http.MethodPost, base+"/summary", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_EmptySelection(t *testing.T) {
	s := newTestServer(t, ServerOptions{})
	id := openSession(t, s, 20)

	body := `{"filters": {"Department": [{"op": "eq", "value": "Astrology"}]}}`
	w := do(t, s, http.MethodPost, "/api/sessions/"+id+"/dashboard", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var d query.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, 0, d.Summary.Rows)
	assert.Equal(t, 20, d.Summary.TotalRows)
	assert.Empty(t, d.MetricsByGrade.Groups)

	body = `{"filters": {"Grade": [{"op": "eq", "value": "Z"}]}}`
	w = do(t, s, http.MethodPost, "/api/sessions/"+id+"/summary", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary query.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 0, summary.Rows)
}

func TestServer_Export(t *testing.T) {
	s := newTestServer(t, ServerOptions{})
	data := studentsCSV(25)
	w := upload(t, s, "students.csv", data)
	require.Equal(t, http.StatusCreated, w.Code)
	var info struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))

	w = do(t, s, http.MethodPost, "/api/sessions/"+info.ID+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(data), w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "students_filtered.csv")

	w = do(t, s, http.MethodPost, "/api/sessions/"+info.ID+"/export", gin.H{"format": "xlsx"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}
