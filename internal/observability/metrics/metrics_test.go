package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestClientMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewClientMetrics(reg)

	m.ObserveRequest("/bookings/", "POST", 201, 0.05)
	m.ObserveRequest("/bookings/", "POST", 0, 0.01)
	m.ObserveRefresh("success")
	m.ObserveBooking("confirmed", "")
	m.ObserveToggle("rolled_back")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/bookings/", "POST", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/bookings/", "POST", "network_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingOutcomes.WithLabelValues("confirmed", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.favoriteToggles.WithLabelValues("rolled_back")))
}

func TestClientMetricsNilSafe(t *testing.T) {
	var m *ClientMetrics
	m.ObserveRequest("/x/", "GET", 200, 0.1)
	m.ObserveRefresh("failure")
	m.ObserveBooking("failed", "auth_required")
	m.ObserveToggle("saved")
}
