package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTransition(t *testing.T) {
	m := New("test")

	m.RecordTransition(models.EntityOrder, string(models.OrderAccepted))
	m.RecordTransition(models.EntityOrder, string(models.OrderAccepted))
	m.RecordTransition(models.EntityLink, string(models.LinkApproved))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("order", "ACCEPTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("link", "APPROVED")))
}

func TestCounters(t *testing.T) {
	m := New("")

	m.RecordStockRejection()
	m.RecordDroppedEvent()
	m.RecordDroppedEvent()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.stockRejections))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsDropped))
}

func TestInstrument(t *testing.T) {
	m := New("test")

	handler := m.Instrument(http.MethodGet, "/v1/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/v1/orders/123", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/v1/orders/{id}", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpRequestDuration, "test_http_request_duration_seconds"))
}

func TestInstrumentDefaultsToOK(t *testing.T) {
	m := New("test")

	handler := m.Instrument(http.MethodPost, "/v1/orders", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})
	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/orders", nil))
	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/orders", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/v1/orders", "200")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New("test")
	m.RecordStockRejection()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_stock_rejections_total 1"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordTransition(models.EntityComplaint, "OPEN")
		m.RecordStockRejection()
		m.RecordDroppedEvent()
	})
	assert.Nil(t, m.Registry())

	called := false
	handler := m.Instrument(http.MethodGet, "/x", func(http.ResponseWriter, *http.Request) { called = true })
	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.True(t, called)
}
