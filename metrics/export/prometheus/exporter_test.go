package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/mpconsole"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot mpconsole.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() mpconsole.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func populated() fakeSource {
	return fakeSource{
		snapshot: mpconsole.MetricsSnapshot{
			Counters: map[mpconsole.MetricID]uint64{
				mpconsole.MetricLoginSuccess: 7,
				mpconsole.MetricHardRedirect: 1,
			},
			Histograms: map[mpconsole.MetricID][]uint64{
				mpconsole.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
			HistogramSums: map[mpconsole.MetricID]time.Duration{
				mpconsole.MetricRequestLatency: 1500 * time.Millisecond,
			},
		},
		dropped: 2,
	}
}

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: mpconsole.MetricsSnapshot{
			Counters:   map[mpconsole.MetricID]uint64{},
			Histograms: map[mpconsole.MetricID][]uint64{},
		},
	})

	if n := testutil.CollectAndCount(exp); n != 0 {
		t.Fatalf("expected no metrics, got %d", n)
	}
}

func TestCollectCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewExporterFromSource(populated()))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	byName := map[string]int{}
	for i, mf := range families {
		byName[mf.GetName()] = i
	}

	login, ok := byName["mpconsole_login_success_total"]
	if !ok {
		t.Fatal("missing login counter")
	}
	if got := families[login].GetMetric()[0].GetCounter().GetValue(); got != 7 {
		t.Fatalf("expected 7 logins, got %v", got)
	}

	hi, ok := byName["mpconsole_api_request_duration_seconds"]
	if !ok {
		t.Fatal("missing latency histogram")
	}
	h := families[hi].GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 36 {
		t.Fatalf("expected 36 samples, got %d", h.GetSampleCount())
	}
	if h.GetSampleSum() != 1.5 {
		t.Fatalf("expected sum 1.5s, got %v", h.GetSampleSum())
	}
	if first := h.GetBucket()[0]; first.GetUpperBound() != 0.05 || first.GetCumulativeCount() != 1 {
		t.Fatalf("unexpected first bucket %v", first)
	}

	dropped, ok := byName["mpconsole_audit_dropped_total"]
	if !ok || families[dropped].GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Fatal("expected audit dropped counter of 2")
	}
}

func TestHandlerServesTextFormat(t *testing.T) {
	srv := httptest.NewServer(NewExporterFromSource(populated()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	out := string(body)
	if !strings.Contains(out, "mpconsole_hard_redirect_total 1") {
		t.Fatalf("expected hard redirect counter, got:\n%s", out)
	}
	if !strings.Contains(out, `mpconsole_api_request_duration_seconds_bucket{le="+Inf"} 36`) {
		t.Fatalf("expected +Inf bucket, got:\n%s", out)
	}
}
