package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorderCounters(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ImportCompleted("proj", 12, 3, 2*time.Second, true)
	pr.ImportCompleted("proj", 0, 0, time.Second, false)
	pr.ReindexBatch("proj", 100)
	pr.ReindexBatch("proj", 50)
	pr.RateLimitWait("proj")
	pr.ResolutionCompleted("proj", "changed")
	pr.PagesRemoved("proj", 7)

	if got := testutil.ToFloat64(pr.pagesImported.WithLabelValues("proj")); got != 12 {
		t.Errorf("pages imported: got %v", got)
	}
	if got := testutil.ToFloat64(pr.importOutcome.WithLabelValues("proj", "failure")); got != 1 {
		t.Errorf("failure count: got %v", got)
	}
	if got := testutil.ToFloat64(pr.reindexBatches.WithLabelValues("proj")); got != 2 {
		t.Errorf("batches: got %v", got)
	}
	if got := testutil.ToFloat64(pr.docsIndexed.WithLabelValues("proj")); got != 150 {
		t.Errorf("docs indexed: got %v", got)
	}
	if got := testutil.ToFloat64(pr.rateLimitWaits.WithLabelValues("proj")); got != 1 {
		t.Errorf("rate limit waits: got %v", got)
	}
	if got := testutil.ToFloat64(pr.docsRemoved.WithLabelValues("proj")); got != 7 {
		t.Errorf("docs removed: got %v", got)
	}
}

func TestNopRecorderIsSafe(t *testing.T) {
	var r Recorder = Nop{}
	r.ImportCompleted("p", 1, 1, time.Second, true)
	r.ResolutionCompleted("p", "noop")
	r.ReindexBatch("p", 1)
	r.RateLimitWait("p")
	r.PagesRemoved("p", 1)
}
