package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the scheduling flow.
type BookingMetrics struct {
	attemptsTotal   *prometheus.CounterVec
	persistFailures prometheus.Counter
	turnLatency     *prometheus.HistogramVec
	modelTokens     *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "scheduling",
			Name:      "booking_attempts_total",
			Help:      "Total booking attempts by outcome",
		}, []string{"outcome"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "scheduling",
			Name:      "calendar_persist_failures_total",
			Help:      "Calendar snapshot writes that failed after a booking",
		}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medassist",
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end latency of one conversational turn",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34},
		}, []string{"status"}),
		modelTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "chat",
			Name:      "model_tokens_total",
			Help:      "Tokens consumed by model completions, by direction",
		}, []string{"direction"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.attemptsTotal, m.persistFailures, m.turnLatency, m.modelTokens)
	return m
}

func (m *BookingMetrics) ObserveAttempt(outcome string) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObservePersistFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *BookingMetrics) ObserveTurn(status string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(status).Observe(seconds)
}

func (m *BookingMetrics) ObserveModelUsage(inputTokens, outputTokens int32) {
	if m == nil {
		return
	}
	m.modelTokens.WithLabelValues("input").Add(float64(inputTokens))
	m.modelTokens.WithLabelValues("output").Add(float64(outputTokens))
}
