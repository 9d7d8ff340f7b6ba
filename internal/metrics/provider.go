package metrics

import "github.com/prometheus/client_golang/prometheus"

// Provider (embeddings / LLM) Prometheus metrics.
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birthdex",
			Name:      "provider_requests_total",
			Help:      "Total number of provider API requests",
		},
		[]string{"operation", "model", "status"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "birthdex",
			Name:      "provider_request_duration_seconds",
			Help:      "Provider API request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation", "model"},
	)

	ProviderRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birthdex",
			Name:      "provider_retries_total",
			Help:      "Total number of retried provider API requests",
		},
		[]string{"operation", "model"},
	)

	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birthdex",
			Name:      "provider_tokens_total",
			Help:      "Total provider tokens consumed",
		},
		[]string{"operation", "model", "type"},
	)

	RateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birthdex",
			Name:      "ratelimit_rejections_total",
			Help:      "Total number of rate-limited requests",
		},
		[]string{"endpoint"},
	)
)

var providerMetricsRegistered bool

// RegisterProviderMetrics registers provider Prometheus metrics. Must be called once from main.
func RegisterProviderMetrics() {
	if providerMetricsRegistered {
		return
	}
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(ProviderRetriesTotal)
	prometheus.MustRegister(ProviderTokensTotal)
	prometheus.MustRegister(RateLimitRejectionsTotal)
	providerMetricsRegistered = true
}
