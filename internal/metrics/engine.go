package metrics

import "github.com/prometheus/client_golang/prometheus"

// Catalog and analytics engine metrics.
var (
	CatalogSearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogd",
			Name:      "catalog_search_total",
			Help:      "Total number of catalog searches",
		},
		[]string{"kind", "status"},
	)

	CatalogSearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalogd",
			Name:      "catalog_search_duration_seconds",
			Help:      "Catalog search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"kind"},
	)

	FacetCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogd",
			Name:      "facet_cache_total",
			Help:      "Facet index cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	AnalyticsReportDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalogd",
			Name:      "analytics_report_duration_seconds",
			Help:      "Analytics report duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"report"},
	)

	JoinPlaceholdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogd",
			Name:      "join_placeholders_total",
			Help:      "Aggregation joins resolved to a placeholder label",
		},
		[]string{"kind"}, // "record" / "actor"
	)
)

var engineMetricsRegistered bool

// RegisterEngineMetrics registers catalog and analytics metrics. Must be called once from main.
func RegisterEngineMetrics() {
	if engineMetricsRegistered {
		return
	}
	prometheus.MustRegister(CatalogSearchTotal)
	prometheus.MustRegister(CatalogSearchDuration)
	prometheus.MustRegister(FacetCacheTotal)
	prometheus.MustRegister(AnalyticsReportDuration)
	prometheus.MustRegister(JoinPlaceholdersTotal)
	engineMetricsRegistered = true
}
