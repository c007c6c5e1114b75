package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	importDuration *prom.HistogramVec
	importOutcome  *prom.CounterVec
	pagesImported  *prom.CounterVec
	imagesImported *prom.CounterVec
	resolutions    *prom.CounterVec
	reindexBatches *prom.CounterVec
	docsIndexed    *prom.CounterVec
	docsRemoved    *prom.CounterVec
	rateLimitWaits *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the dochost metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		importDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "dochost",
			Name:      "import_duration_seconds",
			Help:      "Duration of archive imports",
			Buckets:   prom.DefBuckets,
		}, []string{"project", "result"}),
		importOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "dochost",
			Name:      "imports_total",
			Help:      "Import attempts by outcome",
		}, []string{"project", "result"}),
		pagesImported: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "dochost",
			Name:      "pages_imported_total",
			Help:      "Pages persisted by imports",
		}, []string{"project"}),
		imagesImported: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "dochost",
			Name:      "images_imported_total",
			Help:      "Images persisted by imports",
		}, []string{"project"}),
		resolutions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "dochost",
			Name:      "latest_resolutions_total",
			Help:      "Latest-version resolutions by outcome",
		}, []string{"project", "outcome"}),
		reindexBatches: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "dochost",
			Name:      "reindex_batches_total",
			Help:      "Search index batches pushed",
		}, []string{"project"}),
		docsIndexed: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "dochost",
			Name:      "search_documents_indexed_total",
			Help:      "Documents pushed to the search index",
		}, []string{"project"}),
		docsRemoved: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "dochost",
			Name:      "search_documents_removed_total",
			Help:      "Documents removed from the search index",
		}, []string{"project"}),
		rateLimitWaits: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "dochost",
			Name:      "search_rate_limit_waits_total",
			Help:      "Waits caused by search backend rate limiting",
		}, []string{"project"}),
	}
	reg.MustRegister(
		pr.importDuration, pr.importOutcome, pr.pagesImported, pr.imagesImported,
		pr.resolutions, pr.reindexBatches, pr.docsIndexed, pr.docsRemoved, pr.rateLimitWaits,
	)
	return pr
}

func (pr *PrometheusRecorder) ImportCompleted(project string, pages, images int, d time.Duration, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	pr.importDuration.WithLabelValues(project, result).Observe(d.Seconds())
	pr.importOutcome.WithLabelValues(project, result).Inc()
	if success {
		pr.pagesImported.WithLabelValues(project).Add(float64(pages))
		pr.imagesImported.WithLabelValues(project).Add(float64(images))
	}
}

func (pr *PrometheusRecorder) ResolutionCompleted(project, outcome string) {
	pr.resolutions.WithLabelValues(project, outcome).Inc()
}

func (pr *PrometheusRecorder) ReindexBatch(project string, docs int) {
	pr.reindexBatches.WithLabelValues(project).Inc()
	pr.docsIndexed.WithLabelValues(project).Add(float64(docs))
}

func (pr *PrometheusRecorder) RateLimitWait(project string) {
	pr.rateLimitWaits.WithLabelValues(project).Inc()
}

func (pr *PrometheusRecorder) PagesRemoved(project string, docs int) {
	pr.docsRemoved.WithLabelValues(project).Add(float64(docs))
}
