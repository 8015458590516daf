package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadcheck/internal/model"
	"github.com/sells-group/leadcheck/internal/store"
)

const (
	dealsCSV = "Email,Associated Company\n" +
		"jan.mueller@acme.de,Acme GmbH\n" +
		"info@beispiel.com,Beispiel Software AG\n"
	alignmentCSV = "Company Domain Name,Company\n" +
		"acme.de,Acme GmbH\n"
	leadsCSV = "Name,E-Mail-Adresse,Firma/Organisation\n" +
		"Jan M,jan.mueller@acme.de,Acme\n" +
		"Neu K,neu@zzqqa.com,Zzqqa GmbH\n" +
		"Lena B,lena@acme-group.de,Acme Group\n"
)

type upload struct {
	field   string
	name    string
	content []byte
}

func multipartBody(t *testing.T, uploads []upload, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, u := range uploads {
		fw, err := mw.CreateFormFile(u.field, u.name)
		require.NoError(t, err)
		_, err = fw.Write(u.content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func allUploads() []upload {
	return []upload{
		{field: "deals", name: "deals.csv", content: []byte(dealsCSV)},
		{field: "alignment", name: "alignment.csv", content: []byte(alignmentCSV)},
		{field: "leads", name: "leads.csv", content: []byte(leadsCSV)},
	}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(t.Context()))
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}

func newTestServer(t *testing.T, st store.Store) *Server {
	t.Helper()
	return New(Options{Store: st, OutDir: t.TempDir()})
}

func postCheck(t *testing.T, s *Server, uploads []upload, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartBody(t, uploads, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/check", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestCheck_ClassifiesAndPersists(t *testing.T) {
	st := newTestStore(t)
	s := newTestServer(t, st)

	rec := postCheck(t, s, allUploads(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp checkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 1, resp.New)
	assert.Equal(t, 1, resp.Existing)
	assert.Equal(t, 1, resp.DoubleCheck)
	assert.NotEmpty(t, resp.OutputDir)

	// Run history picked the result up.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+resp.RunID, nil)
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var run model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, 3, run.Result.Total)
	assert.Equal(t, "leads.csv", run.Inputs.Leads)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	// The existing partition downloads as semicolon CSV.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+resp.RunID+"/download/existing", nil)
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "existing_leads_")

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "Name;E-Mail-Adresse;Firma/Organisation;Reason"), body)
	assert.Contains(t, body, "Jan M")
	assert.Contains(t, body, "Email exists in deals")
	assert.NotContains(t, body, "Neu K")
}

func TestCheck_MissingFile(t *testing.T) {
	s := newTestServer(t, nil)
	uploads := allUploads()[:2] // no leads
	rec := postCheck(t, s, uploads, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "leads file is required")
}

func TestCheck_ThresholdOverride(t *testing.T) {
	s := newTestServer(t, nil)
	rec := postCheck(t, s, allUploads(), map[string]string{"company_high": "95"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp checkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 95, resp.Thresholds.CompanyHigh)
	assert.Equal(t, 70, resp.Thresholds.CompanyMid)
}

func TestCheck_InvalidThreshold(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postCheck(t, s, allUploads(), map[string]string{"company_high": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `invalid company_high`)

	rec = postCheck(t, s, allUploads(), map[string]string{"domain_mid": "101"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "out of range")
}

func TestCheck_BadCSV(t *testing.T) {
	s := newTestServer(t, nil)
	uploads := allUploads()
	uploads[0].content = nil
	rec := postCheck(t, s, uploads, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no header row")
}

func TestCheck_XLSXUpload(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Alignment")
	require.NoError(t, err)
	for _, row := range [][]string{
		{"Company Domain Name", "Company"},
		{"acme.de", "Acme GmbH"},
	} {
		r := sheet.AddRow()
		for _, cell := range row {
			r.AddCell().Value = cell
		}
	}
	var wb bytes.Buffer
	require.NoError(t, f.Write(&wb))

	uploads := allUploads()
	uploads[1] = upload{field: "alignment", name: "alignment.xlsx", content: wb.Bytes()}

	s := newTestServer(t, nil)
	rec := postCheck(t, s, uploads, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp checkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 1, resp.Existing)
}

func TestRuns_StoreDisabled(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{
		"/api/v1/runs",
		"/api/v1/runs/abc",
		"/api/v1/runs/abc/download/new",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestServer(t, newTestStore(t))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "run not found")
}

func TestDownload_UnknownDisposition(t *testing.T) {
	s := newTestServer(t, newTestStore(t))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/abc/download/maybe", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown disposition")
}

func TestDownload_RunNotFound(t *testing.T) {
	s := newTestServer(t, newTestStore(t))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/nope/download/new", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRuns_BadLimit(t *testing.T) {
	s := newTestServer(t, newTestStore(t))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=many", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
