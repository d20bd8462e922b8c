package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, 10*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, 30*time.Millisecond)
	m.RecordSubmission(OutcomeResolved)
	m.RecordSubmission(OutcomeResolved)
	m.RecordSubmission(OutcomeNoURL)
	m.ObserveReportJob(models.ReportStatusFinished, time.Second)
	m.ObserveReportJob(models.ReportStatusFailed, time.Second)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 20.0, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(2), snap.Submissions[OutcomeResolved])
	assert.Equal(t, uint64(1), snap.Submissions[OutcomeNoURL])
	assert.Equal(t, uint64(1), snap.ReportsFinished)
	assert.Equal(t, uint64(1), snap.ReportsFailed)
}

func TestMetricsServiceHandlerExposesCounters(t *testing.T) {
	m := NewMetricsService()
	m.RecordSubmission(OutcomeInvalidURL)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `grading_submissions_total{outcome="invalid_url"} 1`)
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.RecordSubmission(OutcomeResolved)
	m.ObserveReportJob(models.ReportStatusFinished, time.Second)
	assert.Equal(t, models.MetricsSnapshot{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
