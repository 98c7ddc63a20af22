package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry        *prom.Registry
	mutations       *prom.CounterVec
	assetOutcomes   *prom.CounterVec
	publishDuration prom.Histogram
	publishOutcomes *prom.CounterVec
	catalogSize     *prom.GaugeVec
}

// NewPrometheusRecorder constructs the collectors and registers them on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		mutations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "carta",
			Name:      "catalog_mutations_total",
			Help:      "Catalog mutations by operation and result",
		}, []string{"op", "result"}),
		assetOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "carta",
			Name:      "asset_normalizations_total",
			Help:      "Image normalization outcomes by reference kind",
		}, []string{"kind", "outcome"}),
		publishDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "carta",
			Name:      "site_publish_duration_seconds",
			Help:      "Duration of rendering and writing the site",
			Buckets:   prom.DefBuckets,
		}),
		publishOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "carta",
			Name:      "site_publish_total",
			Help:      "Site publications by result",
		}, []string{"result"}),
		catalogSize: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "carta",
			Name:      "catalog_entities",
			Help:      "Number of catalog entities by kind",
		}, []string{"entity"}),
	}
	reg.MustRegister(pr.mutations, pr.assetOutcomes, pr.publishDuration, pr.publishOutcomes, pr.catalogSize)
	return pr
}

func (p *PrometheusRecorder) IncMutation(op string, result string) {
	p.mutations.WithLabelValues(op, result).Inc()
}

func (p *PrometheusRecorder) IncAssetOutcome(kind string, outcome string) {
	p.assetOutcomes.WithLabelValues(kind, outcome).Inc()
}

func (p *PrometheusRecorder) ObservePublishDuration(d time.Duration) {
	p.publishDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPublishOutcome(result string) {
	p.publishOutcomes.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) SetCatalogSize(categories, subcategories, items int) {
	p.catalogSize.WithLabelValues("category").Set(float64(categories))
	p.catalogSize.WithLabelValues("subcategory").Set(float64(subcategories))
	p.catalogSize.WithLabelValues("item").Set(float64(items))
}

// Handler exposes the recorder's registry in the Prometheus text format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
