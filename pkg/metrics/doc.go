/*
Package metrics exposes Prometheus instrumentation for the cluster metadata
core: catalog composition gauges (indices, aliases, data streams, templates,
shards, mapping-pool size), Raft leader/log-index gauges, and API request
counters/histograms, registered at package init and scraped via Handler().

# Metrics

Catalog gauges:

	clustermeta_indices_total{state}            - indices by open/closed state
	clustermeta_aliases_total                   - distinct alias names
	clustermeta_data_streams_total
	clustermeta_templates_total
	clustermeta_shards_total                    - total shard copies across all indices
	clustermeta_open_shards_total                - shard copies on open indices
	clustermeta_mapping_pool_entries
	clustermeta_oldest_compatibility_version
	clustermeta_snapshot_entries{state}          - in-progress snapshot entries by state
	clustermeta_version                          - current root version

Raft gauges:

	clustermeta_raft_is_leader
	clustermeta_raft_log_index
	clustermeta_raft_applied_index

API metrics:

	clustermeta_api_requests_total{context,status}
	clustermeta_api_request_duration_seconds{context}

Operation histograms:

	clustermeta_build_duration_seconds
	clustermeta_build_failures_total
	clustermeta_raft_apply_duration_seconds
	clustermeta_snapshot_persist_duration_seconds

# Usage

	timer := metrics.NewTimer()
	next, err := builder.Build()
	timer.ObserveDuration(metrics.BuildDuration)
	if err != nil {
		metrics.BuildFailuresTotal.Inc()
	}

Collector periodically reads an FSM's current root and a raft.Raft handle's
stats into the gauges above; see NewCollector.
*/
package metrics
