package varz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	testEvents   = NewCounter("test_events_total", "Events counted by the tests.")
	testByResult = NewCounterVec("test_results_total", "Results counted by the tests.", "result")
)

func TestHandlerServesPackageQualifiedNames(t *testing.T) {
	testEvents.Inc()
	testByResult.WithLabelValues("ok").Add(2)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "wtapicks_varz_test_events_total 1")
	assert.Contains(t, body, `wtapicks_varz_test_results_total{result="ok"} 2`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricName(t *testing.T) {
	assert.Equal(t, "wtapicks_picks_submitted_total", metricName("picks", "submitted_total"))
}
