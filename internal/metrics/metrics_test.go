package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New("facility")

	m.ObserveProposal("accepted")
	m.ObserveProposal("accepted")
	m.ObserveProposal("conflict")
	m.ObserveCancellation("not_found")
	m.ObserveSnapshot(time.Millisecond, nil)
	m.ObserveSnapshot(time.Millisecond, errors.New("disk full"))
	m.ObserveHTTP(http.MethodPost, "/api/v1/bookings", 0, time.Millisecond)
	m.ObserveLockWait(3 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Proposals.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Proposals.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cancellations.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Snapshots.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/api/v1/bookings", "200")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New("facility")
	m.ObserveProposal("busy")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `facility_booking_proposals_total{outcome="busy"} 1`))
}
