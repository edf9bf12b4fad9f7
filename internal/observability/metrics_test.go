package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.GetCounter() != nil {
				return metric.GetCounter().GetValue()
			}
			if metric.GetGauge() != nil {
				return metric.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	for key, want := range labels {
		found := false
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == key && pair.GetValue() == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestRecordRenewalOutcomes(t *testing.T) {
	before := counterValue(t, "lifeplanner_client_session_credential_renewals_total", map[string]string{"outcome": "success"})
	RecordRenewal(true)
	after := counterValue(t, "lifeplanner_client_session_credential_renewals_total", map[string]string{"outcome": "success"})
	if after != before+1 {
		t.Fatalf("expected success counter to advance by 1, got %f -> %f", before, after)
	}

	before = counterValue(t, "lifeplanner_client_session_credential_renewals_total", map[string]string{"outcome": "failure"})
	RecordRenewal(false)
	after = counterValue(t, "lifeplanner_client_session_credential_renewals_total", map[string]string{"outcome": "failure"})
	if after != before+1 {
		t.Fatalf("expected failure counter to advance by 1, got %f -> %f", before, after)
	}
}

func TestRecordDecodeFailurePartitionsByType(t *testing.T) {
	before := counterValue(t, "lifeplanner_client_codec_decode_failures_total", map[string]string{"field_type": "number"})
	RecordDecodeFailure("number")
	RecordDecodeFailure("date")
	after := counterValue(t, "lifeplanner_client_codec_decode_failures_total", map[string]string{"field_type": "number"})
	if after != before+1 {
		t.Fatalf("expected number decode failures to advance by 1, got %f -> %f", before, after)
	}
}

func TestRecordFilterPass(t *testing.T) {
	before := counterValue(t, "lifeplanner_client_query_filter_passes_total", nil)
	RecordFilterPass(42 * time.Millisecond)
	after := counterValue(t, "lifeplanner_client_query_filter_passes_total", nil)
	if after != before+1 {
		t.Fatalf("expected filter pass counter to advance by 1, got %f -> %f", before, after)
	}

	duration := counterValue(t, "lifeplanner_client_query_last_filter_duration_seconds", nil)
	if duration < 0.04 || duration > 0.05 {
		t.Fatalf("unexpected last filter duration %f", duration)
	}
}
