package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"safetywatch/internal/models"
	"safetywatch/internal/report"
	"safetywatch/internal/services"
	"safetywatch/internal/testutil"
	"safetywatch/internal/violation"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- local mocks (scoped to controller tests) ---

type mockService struct {
	categories []services.CategoryInfo
	dates      []models.DateFolderRecord
	datesErr   error
	series     *report.SeriesReport
	seriesErr  error
	report     *report.Report
	reportErr  error
	alert      models.AlertState
	dismissed  bool
	shareErr   error
	status     services.Status

	dateQueries []services.DatesQuery
	shares      []string
}

func (m *mockService) Categories() []services.CategoryInfo { return m.categories }
func (m *mockService) Dates(_ context.Context, q services.DatesQuery) ([]models.DateFolderRecord, error) {
	m.dateQueries = append(m.dateQueries, q)
	return m.dates, m.datesErr
}
func (m *mockService) Series(_ context.Context, _ models.Category, _ string) (*report.SeriesReport, error) {
	return m.series, m.seriesErr
}
func (m *mockService) Report(_ context.Context) (*report.Report, error) { return m.report, m.reportErr }
func (m *mockService) Alert() models.AlertState                       { return m.alert }
func (m *mockService) Dismiss() bool                                  { return m.dismissed }
func (m *mockService) Share(_ context.Context, cat models.Category, principal string) error {
	m.shares = append(m.shares, string(cat)+":"+principal)
	return m.shareErr
}
func (m *mockService) Status() services.Status { return m.status }

// --- helpers ---

func newTestController(svc *mockService, cache *testutil.MockCache) *ApiController {
	return NewApiController(&testutil.MockLogger{}, svc, cache, report.NewExporter(&testutil.MockCompressor{}))
}

func do(handler http.HandlerFunc, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func sampleDates() []models.DateFolderRecord {
	return []models.DateFolderRecord{
		{DisplayDate: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), FolderID: "f2", ImageCount: 3},
		{DisplayDate: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), FolderID: "f1", ImageCount: 1},
	}
}

// --- GetCategories ---

func TestGetCategories_CachesResponse(t *testing.T) {
	svc := &mockService{categories: []services.CategoryInfo{{Name: "worker", Title: "Worker Safety"}}}
	cache := testutil.NewMockCache()
	ac := newTestController(svc, cache)

	rr := do(ac.GetCategories, http.MethodGet, "/categories", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var got []services.CategoryInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, models.Category("worker"), got[0].Name)

	_, ok := cache.Get("categories")
	assert.True(t, ok)
}

// --- GetDates ---

func TestGetDates_MissingCategory(t *testing.T) {
	ac := newTestController(&mockService{}, testutil.NewMockCache())
	rr := do(ac.GetDates, http.MethodGet, "/dates", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetDates_InvalidDate(t *testing.T) {
	ac := newTestController(&mockService{}, testutil.NewMockCache())
	rr := do(ac.GetDates, http.MethodGet, "/dates?c=worker&date=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetDates_ServesFromCache(t *testing.T) {
	svc := &mockService{dates: sampleDates()}
	cache := testutil.NewMockCache()
	ac := newTestController(svc, cache)

	rr := do(ac.GetDates, http.MethodGet, "/dates?c=worker", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(ac.GetDates, http.MethodGet, "/dates?c=worker", "")
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Len(t, svc.dateQueries, 1, "second call should hit the cache")

	var got []models.DateFolderRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "f2", got[0].FolderID)
}

func TestGetDates_DateFilterUsesOwnCacheKey(t *testing.T) {
	svc := &mockService{dates: sampleDates()[:1]}
	cache := testutil.NewMockCache()
	ac := newTestController(svc, cache)

	rr := do(ac.GetDates, http.MethodGet, "/dates?c=worker&date=10/19/2026", "")
	require.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, svc.dateQueries, 1)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), svc.dateQueries[0].Date)
	_, ok := cache.Get("dates:worker:2026-10-19")
	assert.True(t, ok)
}

func TestGetDates_RefreshClearsCache(t *testing.T) {
	svc := &mockService{dates: sampleDates()}
	cache := testutil.NewMockCache()
	cache.Set("report", []byte(`{}`))
	ac := newTestController(svc, cache)

	rr := do(ac.GetDates, http.MethodGet, "/dates?c=worker&refresh=1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, 1, cache.Cleared)
	assert.Empty(t, cache.Data)
	require.Len(t, svc.dateQueries, 1)
	assert.True(t, svc.dateQueries[0].Refresh)
}

func TestGetDates_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unknown category", fmt.Errorf("%w: %q", violation.ErrUnknownCategory, "forklift"), http.StatusNotFound},
		{"store down", fmt.Errorf("%w: timeout", violation.ErrRemoteUnavailable), http.StatusServiceUnavailable},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cache := testutil.NewMockCache()
			ac := newTestController(&mockService{datesErr: tt.err}, cache)
			rr := do(ac.GetDates, http.MethodGet, "/dates?c=worker", "")
			assert.Equal(t, tt.status, rr.Code)
			assert.Empty(t, cache.Data, "errors must not be cached")
		})
	}
}

// --- GetSeries / GetReport ---

func TestGetSeries_UnknownSeries(t *testing.T) {
	svc := &mockService{seriesErr: fmt.Errorf("%w: %q", services.ErrUnknownSeries, "boots")}
	ac := newTestController(svc, testutil.NewMockCache())
	rr := do(ac.GetSeries, http.MethodGet, "/series?c=worker&s=boots", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetSeries_OK(t *testing.T) {
	svc := &mockService{series: &report.SeriesReport{Name: "mask"}}
	cache := testutil.NewMockCache()
	ac := newTestController(svc, cache)

	rr := do(ac.GetSeries, http.MethodGet, "/series?c=worker&s=mask", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var got report.SeriesReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "mask", got.Name)
	_, ok := cache.Get("series:worker:mask")
	assert.True(t, ok)
}

func TestGetSeries_MissingCategory(t *testing.T) {
	ac := newTestController(&mockService{}, testutil.NewMockCache())
	rr := do(ac.GetSeries, http.MethodGet, "/series", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetReport_OK(t *testing.T) {
	svc := &mockService{report: &report.Report{Total: 7}}
	ac := newTestController(svc, testutil.NewMockCache())

	rr := do(ac.GetReport, http.MethodGet, "/report", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var got report.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 7, got.Total)
}

// --- ExportReport ---

func TestExportReport_Compressed(t *testing.T) {
	generated := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	svc := &mockService{report: &report.Report{GeneratedAt: generated, Total: 3}}
	comp := &testutil.MockCompressor{CompressFn: func(b []byte) ([]byte, error) {
		return append([]byte("Z:"), b...), nil
	}}
	ac := NewApiController(&testutil.MockLogger{}, svc, testutil.NewMockCache(), report.NewExporter(comp))

	rr := do(ac.ExportReport, http.MethodGet, "/report/export", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/zstd", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "violation_report_20261019_093000.json.zst")
	assert.True(t, strings.HasPrefix(rr.Body.String(), "Z:"))
}

func TestExportReport_Raw(t *testing.T) {
	svc := &mockService{report: &report.Report{Total: 3}}
	ac := newTestController(svc, testutil.NewMockCache())

	rr := do(ac.ExportReport, http.MethodGet, "/report/export?raw=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var got report.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Total)
}

func TestExportReport_CompressionFailure(t *testing.T) {
	svc := &mockService{report: &report.Report{}}
	comp := &testutil.MockCompressor{CompressFn: func([]byte) ([]byte, error) {
		return nil, fmt.Errorf("encoder closed")
	}}
	ac := NewApiController(&testutil.MockLogger{}, svc, testutil.NewMockCache(), report.NewExporter(comp))

	rr := do(ac.ExportReport, http.MethodGet, "/report/export", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

// --- Alert ---

func TestGetAlert(t *testing.T) {
	svc := &mockService{alert: models.AlertState{Active: true, Category: "fallen", Title: "Fallen Objects", ID: "a1"}}
	ac := newTestController(svc, testutil.NewMockCache())

	rr := do(ac.GetAlert, http.MethodGet, "/alert", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var got models.AlertState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.True(t, got.Active)
	assert.Equal(t, "Fallen Objects", got.Title)
}

func TestDismissAlert(t *testing.T) {
	ac := newTestController(&mockService{dismissed: true}, testutil.NewMockCache())

	rr := do(ac.DismissAlert, http.MethodPost, "/alert/dismiss", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"dismissed":true}`, rr.Body.String())
}

// --- Share ---

func TestShare_OK(t *testing.T) {
	svc := &mockService{}
	ac := newTestController(svc, testutil.NewMockCache())

	rr := do(ac.Share, http.MethodPost, "/share", `{"category":"worker","email":"lead@plant.test"}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []string{"worker:lead@plant.test"}, svc.shares)
}

func TestShare_BadBody(t *testing.T) {
	svc := &mockService{}
	ac := newTestController(svc, testutil.NewMockCache())

	for _, body := range []string{`not json`, `{"category":"worker"}`, `{"email":"a@b.test"}`} {
		rr := do(ac.Share, http.MethodPost, "/share", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	assert.Empty(t, svc.shares)
}

func TestShare_UnknownCategory(t *testing.T) {
	svc := &mockService{shareErr: fmt.Errorf("%w: %q", violation.ErrUnknownCategory, "forklift")}
	ac := newTestController(svc, testutil.NewMockCache())

	rr := do(ac.Share, http.MethodPost, "/share", `{"category":"forklift","email":"lead@plant.test"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestIsTrue(t *testing.T) {
	assert.True(t, isTrue("1"))
	assert.True(t, isTrue("true"))
	assert.False(t, isTrue("0"))
	assert.False(t, isTrue(""))
	assert.False(t, isTrue("yes"))
}
