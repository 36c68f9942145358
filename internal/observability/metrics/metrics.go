package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics exposes counters/histograms for the booking client.
// All methods are safe on a nil receiver.
type ClientMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	refreshTotal    *prometheus.CounterVec
	bookingOutcomes *prometheus.CounterVec
	favoriteToggles *prometheus.CounterVec
}

func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tellme",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total backend requests by endpoint and status",
		}, []string{"endpoint", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tellme",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Latency of backend requests, per attempt",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tellme",
			Subsystem: "client",
			Name:      "token_refresh_total",
			Help:      "Access token refresh attempts by result",
		}, []string{"result"}),
		bookingOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tellme",
			Subsystem: "booking",
			Name:      "outcomes_total",
			Help:      "Booking submissions by final state and failure reason",
		}, []string{"state", "reason"}),
		favoriteToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tellme",
			Subsystem: "favorites",
			Name:      "toggles_total",
			Help:      "Save/unsave toggles by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency, m.refreshTotal, m.bookingOutcomes, m.favoriteToggles)
	return m
}

// ObserveRequest records one attempt; status 0 means no response was received
func (m *ClientMetrics) ObserveRequest(endpoint, method string, status int, seconds float64) {
	if m == nil {
		return
	}
	label := "network_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requestsTotal.WithLabelValues(endpoint, method, label).Inc()
	m.requestLatency.WithLabelValues(endpoint).Observe(seconds)
}

func (m *ClientMetrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(result).Inc()
}

func (m *ClientMetrics) ObserveBooking(state, reason string) {
	if m == nil {
		return
	}
	m.bookingOutcomes.WithLabelValues(state, reason).Inc()
}

func (m *ClientMetrics) ObserveToggle(result string) {
	if m == nil {
		return
	}
	m.favoriteToggles.WithLabelValues(result).Inc()
}
