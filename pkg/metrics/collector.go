package metrics

import (
	"strconv"
	"time"

	"github.com/cuemby/clustermeta/pkg/clusterfsm"
	"github.com/cuemby/clustermeta/pkg/snapshot"
	"github.com/hashicorp/raft"
)

func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

// Collector periodically snapshots an FSM's current root and a raft.Raft
// handle's stats into the package's gauges.
type Collector struct {
	fsm    *clusterfsm.FSM
	raft   *raft.Raft
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector. raftHandle may be nil (e.g.
// in tests exercising the FSM without a live consensus group), in which
// case Raft-related gauges are left untouched.
func NewCollector(fsm *clusterfsm.FSM, raftHandle *raft.Raft) *Collector {
	return &Collector{
		fsm:    fsm,
		raft:   raftHandle,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics every 15 seconds.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectCatalogMetrics()
	c.collectRaftMetrics()
}

func (c *Collector) collectCatalogMetrics() {
	md := c.fsm.State()

	IndicesTotal.WithLabelValues("open").Set(float64(len(md.AllOpenIndices)))
	IndicesTotal.WithLabelValues("closed").Set(float64(len(md.AllClosedIndices)))

	aliasNames := map[string]struct{}{}
	for _, idx := range md.Indices {
		for name := range idx.Aliases {
			aliasNames[name] = struct{}{}
		}
	}
	AliasesTotal.Set(float64(len(aliasNames)))

	DataStreamsTotal.Set(float64(len(md.DataStreams)))
	TemplatesTotal.Set(float64(len(md.Templates)))
	ShardsTotal.Set(float64(md.TotalNumberOfShards))
	OpenShardsTotal.Set(float64(md.TotalOpenIndexShards))
	MappingPoolSize.Set(float64(md.MappingPool.Len()))
	OldestCompatibilityVersion.Set(float64(md.OldestCompatibilityVersion))
	CatalogVersion.Set(float64(md.Version))

	stateCounts := map[snapshot.EntryState]int{}
	for _, e := range md.SnapshotsInProgress {
		stateCounts[e.State]++
	}
	for _, st := range []snapshot.EntryState{
		snapshot.EntryInit, snapshot.EntryStarted, snapshot.EntrySuccess,
		snapshot.EntryFailed, snapshot.EntryAborted,
	} {
		SnapshotEntriesByState.WithLabelValues(st.String()).Set(float64(stateCounts[st]))
	}
}

func (c *Collector) collectRaftMetrics() {
	if c.raft == nil {
		return
	}
	if c.raft.State() == raft.Leader {
		RaftLeader.Set(1)
	} else {
		RaftLeader.Set(0)
	}

	stats := c.raft.Stats()
	if v, ok := stats["last_log_index"]; ok {
		if n, err := parseUint(v); err == nil {
			RaftLogIndex.Set(float64(n))
		}
	}
	if v, ok := stats["applied_index"]; ok {
		if n, err := parseUint(v); err == nil {
			RaftAppliedIndex.Set(float64(n))
		}
	}
}
