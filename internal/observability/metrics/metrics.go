package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadMetrics exposes counters/histograms for the lead-intake pipeline.
type LeadMetrics struct {
	submissionsTotal  *prometheus.CounterVec
	verificationTotal *prometheus.CounterVec
	deliveryTotal     *prometheus.CounterVec
	deliveryLatency   *prometheus.HistogramVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "denver1031",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Lead submissions by final response outcome",
		}, []string{"outcome"}),
		verificationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "denver1031",
			Subsystem: "leads",
			Name:      "verification_total",
			Help:      "Bot-check verification results",
		}, []string{"outcome"}),
		deliveryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "denver1031",
			Subsystem: "leads",
			Name:      "delivery_total",
			Help:      "Notification deliveries by channel and status",
		}, []string{"channel", "status"}),
		deliveryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "denver1031",
			Subsystem: "leads",
			Name:      "delivery_latency_seconds",
			Help:      "Latency of outbound notification deliveries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.verificationTotal, m.deliveryTotal, m.deliveryLatency)
	return m
}

func (m *LeadMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *LeadMetrics) ObserveVerification(outcome string) {
	if m == nil {
		return
	}
	m.verificationTotal.WithLabelValues(outcome).Inc()
}

// ObserveDelivery records one channel attempt. status is "sent", "failed" or "skipped".
func (m *LeadMetrics) ObserveDelivery(channel, status string) {
	if m == nil {
		return
	}
	m.deliveryTotal.WithLabelValues(channel, status).Inc()
}

func (m *LeadMetrics) ObserveDeliveryLatency(channel string, seconds float64) {
	if m == nil {
		return
	}
	m.deliveryLatency.WithLabelValues(channel).Observe(seconds)
}
