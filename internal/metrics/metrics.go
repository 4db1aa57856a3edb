package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg                 *prometheus.Registry
	RecordsIngested     prometheus.Counter
	RecordsDropped      prometheus.Counter
	ModelsTrained       prometheus.Counter
	ModelsSkipped       prometheus.Counter
	RefreshCycles       prometheus.Counter
	LastRefreshAgeSec   prometheus.Gauge
	TrainLatencySec     prometheus.Histogram
	Recommendations     prometheus.Counter
	RecommendFailures   prometheus.Counter
	RecommendLatencySec prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	ingested := prometheus.NewCounter(prometheus.CounterOpts{Name: "mandi_records_ingested_total"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "mandi_records_dropped_total"})
	trained := prometheus.NewCounter(prometheus.CounterOpts{Name: "mandi_models_trained_total"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "mandi_models_skipped_total"})
	cycles := prometheus.NewCounter(prometheus.CounterOpts{Name: "mandi_refresh_cycles_total"})
	lastAge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "mandi_last_refresh_age_seconds"})
	trainLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mandi_train_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	recommendations := prometheus.NewCounter(prometheus.CounterOpts{Name: "mandi_recommendations_total"})
	recommendFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "mandi_recommendation_failures_total"})
	recommendLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mandi_recommendation_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(ingested, dropped, trained, skipped, cycles, lastAge, trainLatency, recommendations, recommendFailures, recommendLatency)
	return &Registry{
		reg:                 r,
		RecordsIngested:     ingested,
		RecordsDropped:      dropped,
		ModelsTrained:       trained,
		ModelsSkipped:       skipped,
		RefreshCycles:       cycles,
		LastRefreshAgeSec:   lastAge,
		TrainLatencySec:     trainLatency,
		Recommendations:     recommendations,
		RecommendFailures:   recommendFailures,
		RecommendLatencySec: recommendLatency,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
