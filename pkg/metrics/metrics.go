package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Catalog composition metrics.
	IndicesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clustermeta_indices_total",
			Help: "Total number of indices by open/closed state",
		},
		[]string{"state"},
	)

	AliasesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clustermeta_aliases_total",
			Help: "Total number of distinct index aliases",
		},
	)

	DataStreamsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clustermeta_data_streams_total",
			Help: "Total number of data streams",
		},
	)

	TemplatesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clustermeta_templates_total",
			Help: "Total number of composable index templates",
		},
	)

	ShardsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clustermeta_shards_total",
			Help: "Total number of shard copies (primaries plus replicas) across all indices",
		},
	)

	OpenShardsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clustermeta_open_shards_total",
			Help: "Total number of shard copies belonging to open indices",
		},
	)

	MappingPoolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clustermeta_mapping_pool_entries",
			Help: "Number of distinct mapping bodies interned in the mapping pool",
		},
	)

	OldestCompatibilityVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clustermeta_oldest_compatibility_version",
			Help: "Oldest index creation-time compatibility version present in the catalog",
		},
	)

	SnapshotEntriesByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clustermeta_snapshot_entries",
			Help: "Number of in-progress snapshot entries by top-level state",
		},
		[]string{"state"},
	)

	CatalogVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clustermeta_version",
			Help: "Current top-level version of the catalog root",
		},
	)

	// Raft metrics, grounded on the same shape the teacher exposes for its
	// own consensus layer.
	RaftLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clustermeta_raft_is_leader",
			Help: "Whether this node is the Raft leader (1 = leader, 0 = follower)",
		},
	)

	RaftLogIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clustermeta_raft_log_index",
			Help: "Current Raft log index",
		},
	)

	RaftAppliedIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clustermeta_raft_applied_index",
			Help: "Last applied Raft log index",
		},
	)

	// API surface metrics.
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clustermeta_api_requests_total",
			Help: "Total number of catalog API requests by context mode and status",
		},
		[]string{"context", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clustermeta_api_request_duration_seconds",
			Help:    "Catalog API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"context"},
	)

	// Builder and replication operation metrics.
	BuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clustermeta_build_duration_seconds",
			Help:    "Time taken by Builder.Build to validate and freeze a new catalog root",
			Buckets: prometheus.DefBuckets,
		},
	)

	BuildFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clustermeta_build_failures_total",
			Help: "Total number of Builder.Build calls that failed invariant validation",
		},
	)

	RaftApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clustermeta_raft_apply_duration_seconds",
			Help:    "Time taken to apply a Raft log entry to the catalog FSM",
			Buckets: prometheus.DefBuckets,
		},
	)

	SnapshotPersistDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clustermeta_snapshot_persist_duration_seconds",
			Help:    "Time taken to persist a GATEWAY document snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(IndicesTotal)
	prometheus.MustRegister(AliasesTotal)
	prometheus.MustRegister(DataStreamsTotal)
	prometheus.MustRegister(TemplatesTotal)
	prometheus.MustRegister(ShardsTotal)
	prometheus.MustRegister(OpenShardsTotal)
	prometheus.MustRegister(MappingPoolSize)
	prometheus.MustRegister(OldestCompatibilityVersion)
	prometheus.MustRegister(SnapshotEntriesByState)
	prometheus.MustRegister(CatalogVersion)
	prometheus.MustRegister(RaftLeader)
	prometheus.MustRegister(RaftLogIndex)
	prometheus.MustRegister(RaftAppliedIndex)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(BuildDuration)
	prometheus.MustRegister(BuildFailuresTotal)
	prometheus.MustRegister(RaftApplyDuration)
	prometheus.MustRegister(SnapshotPersistDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
