package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	renewalCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifeplanner_client",
		Subsystem: "session",
		Name:      "credential_renewals_total",
		Help:      "Credential renewal attempts partitioned by outcome.",
	}, []string{"outcome"})
	renewalSharedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lifeplanner_client",
		Subsystem: "session",
		Name:      "credential_renewals_shared_total",
		Help:      "Callers that awaited an already in-flight renewal instead of starting their own.",
	})
	retryCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lifeplanner_client",
		Subsystem: "api",
		Name:      "request_retries_total",
		Help:      "Requests replayed once after a successful credential renewal.",
	})
	decodeFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifeplanner_client",
		Subsystem: "codec",
		Name:      "decode_failures_total",
		Help:      "Field values that could not be decoded for their declared type.",
	}, []string{"field_type"})
	filterPassCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lifeplanner_client",
		Subsystem: "query",
		Name:      "filter_passes_total",
		Help:      "Completed filter/sort passes over the exercise list.",
	})
	filterDurationGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lifeplanner_client",
		Subsystem: "query",
		Name:      "last_filter_duration_seconds",
		Help:      "Duration of the most recent filter/sort pass.",
	})
)

func init() {
	prometheus.MustRegister(
		renewalCounter,
		renewalSharedCounter,
		retryCounter,
		decodeFailureCounter,
		filterPassCounter,
		filterDurationGauge,
	)
}

// RecordRenewal counts one renewal attempt.
func RecordRenewal(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	renewalCounter.WithLabelValues(outcome).Inc()
}

// RecordRenewalShared counts a caller that joined an in-flight renewal.
func RecordRenewalShared() {
	renewalSharedCounter.Inc()
}

// RecordRetry counts a request replayed after renewal.
func RecordRetry() {
	retryCounter.Inc()
}

// RecordDecodeFailure counts a malformed field value.
func RecordDecodeFailure(fieldType string) {
	decodeFailureCounter.WithLabelValues(fieldType).Inc()
}

// RecordFilterPass updates the query engine watermarks.
func RecordFilterPass(elapsed time.Duration) {
	filterPassCounter.Inc()
	filterDurationGauge.Set(elapsed.Seconds())
}
