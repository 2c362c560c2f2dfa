package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK                 = "ok"
	ResultUndefinedProvider  = "undefined_provider"
	ResultVerificationFailed = "verification_failed"
	ResultParsingFailed      = "parsing_failed"
)

type Metrics struct {
	Verifications        *prometheus.CounterVec
	VerificationDuration *prometheus.HistogramVec
}

// New registers the receipt verification metrics on reg. A nil reg registers
// them on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "iap_receipt_verifications_total",
			Help: "Total number of receipt verifications, by provider and result",
		}, []string{"provider", "result"}),
		VerificationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iap_receipt_verification_duration_seconds",
			Help:    "Time spent verifying and parsing a receipt, by provider",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
	}
}

func (m *Metrics) ObserveVerification(provider, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(provider, result).Inc()
	if result != ResultUndefinedProvider {
		m.VerificationDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}
