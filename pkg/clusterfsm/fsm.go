package clusterfsm

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/cuemby/clustermeta/pkg/clog"
	"github.com/cuemby/clustermeta/pkg/datastream"
	"github.com/cuemby/clustermeta/pkg/discovery"
	"github.com/cuemby/clustermeta/pkg/docformat"
	"github.com/cuemby/clustermeta/pkg/index"
	"github.com/cuemby/clustermeta/pkg/metadata"
	"github.com/cuemby/clustermeta/pkg/snapshot"
	"github.com/cuemby/clustermeta/pkg/template"
	"github.com/hashicorp/raft"
)

// FSM implements raft.FSM over a metadata.Builder: every committed Command
// is applied to the current root under lock, producing the next immutable
// Metadata value.
type FSM struct {
	mu      sync.RWMutex
	current metadata.Metadata
}

// New starts an FSM from an existing root (metadata.Empty() for a fresh
// cluster).
func New(initial metadata.Metadata) *FSM {
	return &FSM{current: initial}
}

// State returns the current root. Safe for concurrent use; the returned
// value is immutable.
func (f *FSM) State() metadata.Metadata {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// Apply decodes and runs one committed log entry. Per raft.FSM's contract,
// the returned value is delivered to the caller of raft.Apply on the
// leader that proposed it; here it is either nil (success) or an error.
func (f *FSM) Apply(l *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(l.Data, &cmd); err != nil {
		return fmt.Errorf("unmarshal command: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	next, err := f.apply(cmd)
	if err != nil {
		clog.Logger.Warn().Str("op", cmd.Op).Err(err).Msg("command rejected")
		return err
	}
	f.current = next
	return nil
}

func (f *FSM) apply(cmd Command) (metadata.Metadata, error) {
	b := metadata.NewBuilder(f.current)

	switch cmd.Op {
	case OpPutIndex:
		var idx index.Metadata
		if err := json.Unmarshal(cmd.Data, &idx); err != nil {
			return metadata.Metadata{}, err
		}
		b.PutIndex(idx, true)

	case OpRemoveIndex:
		var name string
		if err := json.Unmarshal(cmd.Data, &name); err != nil {
			return metadata.Metadata{}, err
		}
		b.RemoveIndex(name)

	case OpUpdateSettings:
		var d UpdateSettingsData
		if err := json.Unmarshal(cmd.Data, &d); err != nil {
			return metadata.Metadata{}, err
		}
		b.UpdateSettings(d.Settings, d.Indices...)

	case OpUpdateReplicas:
		var d UpdateReplicasData
		if err := json.Unmarshal(cmd.Data, &d); err != nil {
			return metadata.Metadata{}, err
		}
		b.UpdateNumberOfReplicas(d.NumberOfReplicas, d.Indices...)

	case OpPutTemplate:
		var t template.ComposableIndexTemplate
		if err := json.Unmarshal(cmd.Data, &t); err != nil {
			return metadata.Metadata{}, err
		}
		if err := t.Validate(); err != nil {
			return metadata.Metadata{}, err
		}
		b.PutTemplate(t)

	case OpPutComponentTemplate:
		var named struct {
			Name string                    `json:"name"`
			T    template.ComponentTemplate `json:"template"`
		}
		if err := json.Unmarshal(cmd.Data, &named); err != nil {
			return metadata.Metadata{}, err
		}
		b.PutComponentTemplate(named.Name, named.T)

	case OpPutDataStream:
		var ds datastream.DataStream
		if err := json.Unmarshal(cmd.Data, &ds); err != nil {
			return metadata.Metadata{}, err
		}
		if err := ds.Validate(); err != nil {
			return metadata.Metadata{}, err
		}
		b.PutDataStream(ds)

	case OpRemoveDataStream:
		var name string
		if err := json.Unmarshal(cmd.Data, &name); err != nil {
			return metadata.Metadata{}, err
		}
		b.RemoveDataStream(name)

	case OpRolloverDataStream:
		var d RolloverData
		if err := json.Unmarshal(cmd.Data, &d); err != nil {
			return metadata.Metadata{}, err
		}
		ds, ok := f.current.DataStreams[d.StreamName]
		if !ok {
			return metadata.Metadata{}, fmt.Errorf("rollover: data stream %q not found", d.StreamName)
		}
		exists := func(name string) bool { _, ok := f.current.Indices[name]; return ok }
		rolled, err := datastream.Rollover(ds, d.NewUUID, d.EpochMillis, exists)
		if err != nil {
			return metadata.Metadata{}, err
		}
		newBacking := rolled.WriteIndex()
		idx, err := index.NewBuilder(index.Metadata{
			Index:            index.Identity{Name: newBacking.Name, UUID: newBacking.UUID},
			NumberOfShards:   d.NumberOfShards,
			NumberOfReplicas: d.NumberOfReplicas,
			State:            index.Open,
			Hidden:           true,
			System:           ds.System,
		}).Build()
		if err != nil {
			return metadata.Metadata{}, err
		}
		b.PutIndex(idx, false).PutDataStream(rolled)

	case OpPutDataStreamAlias:
		var a datastream.Alias
		if err := json.Unmarshal(cmd.Data, &a); err != nil {
			return metadata.Metadata{}, err
		}
		b.PutDataStreamAlias(a)

	case OpPutCustom:
		var c metadata.Custom
		if err := json.Unmarshal(cmd.Data, &c); err != nil {
			return metadata.Metadata{}, err
		}
		b.PutCustom(c)

	case OpPutSnapshotEntry:
		var e snapshot.Entry
		if err := json.Unmarshal(cmd.Data, &e); err != nil {
			return metadata.Metadata{}, err
		}
		b.PutSnapshotEntry(e)

	case OpRemoveSnapshotEntry:
		var d RemoveSnapshotEntryData
		if err := json.Unmarshal(cmd.Data, &d); err != nil {
			return metadata.Metadata{}, err
		}
		b.RemoveSnapshotEntry(snapshot.Identity{Repository: d.Repository, Snapshot: d.Snapshot})

	case OpAbortSnapshotEntry:
		var d RemoveSnapshotEntryData
		if err := json.Unmarshal(cmd.Data, &d); err != nil {
			return metadata.Metadata{}, err
		}
		id := snapshot.Identity{Repository: d.Repository, Snapshot: d.Snapshot}
		var found *snapshot.Entry
		for _, e := range f.current.SnapshotsInProgress {
			if e.Snapshot == id {
				cp := e
				found = &cp
				break
			}
		}
		if found == nil {
			return metadata.Metadata{}, fmt.Errorf("abort: snapshot entry %v not found", id)
		}
		aborted, ok := snapshot.Abort(*found)
		if ok {
			b.PutSnapshotEntry(aborted)
		} else {
			b.RemoveSnapshotEntry(id)
		}

	case OpPutNode:
		var n discovery.Node
		if err := json.Unmarshal(cmd.Data, &n); err != nil {
			return metadata.Metadata{}, err
		}
		b.PutNode(n)

	case OpRemoveNode:
		var ephemeralID string
		if err := json.Unmarshal(cmd.Data, &ephemeralID); err != nil {
			return metadata.Metadata{}, err
		}
		b.RemoveNode(ephemeralID)

	case OpClusterUUID:
		var id string
		if err := json.Unmarshal(cmd.Data, &id); err != nil {
			return metadata.Metadata{}, err
		}
		b.ClusterUUID(id)

	case OpIncrementVersion:
		b.IncrementVersion()

	default:
		return metadata.Metadata{}, fmt.Errorf("unknown command: %s", cmd.Op)
	}

	return b.Build()
}

// Snapshot captures the current root as a raft.FSMSnapshot, to be persisted
// via the GATEWAY document.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return &fsmSnapshot{doc: docformat.ToDocument(f.current, docformat.Gateway)}, nil
}

// Restore replaces the current root with the one decoded from a previously
// persisted snapshot.
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var doc docformat.Node
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return fmt.Errorf("decode snapshot document: %w", err)
	}
	md, err := docformat.FromGatewayDocument(doc)
	if err != nil {
		return fmt.Errorf("rebuild metadata from snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = md
	return nil
}

// fsmSnapshot is the raft.FSMSnapshot handed back by FSM.Snapshot.
type fsmSnapshot struct {
	doc docformat.Node
}

// Persist writes the snapshot's GATEWAY document to sink, matching the
// teacher's encode-then-close-or-cancel pattern.
func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(s.doc); err != nil {
			return err
		}
		return sink.Close()
	}()
	if err != nil {
		sink.Cancel()
	}
	return err
}

// Release is a no-op; the snapshot document holds no external resources.
func (s *fsmSnapshot) Release() {}
