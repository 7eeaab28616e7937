package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)

var (
	CheckInsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_checkins_total",
			Help: "Total check-ins recorded",
		},
		[]string{"method"},
	)

	WebhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_webhooks_total",
			Help: "Outbound webhook deliveries by outcome",
		},
		[]string{"status"},
	)

	KafkaEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_kafka_events_total",
			Help: "CRM events published to Kafka",
		},
		[]string{"event"},
	)
)

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(CheckInsTotal)
	prometheus.MustRegister(WebhooksTotal)
	prometheus.MustRegister(KafkaEventsTotal)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
