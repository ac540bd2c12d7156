// Package snapshot models SnapshotsInProgress: the in-memory state machine
// tracking per-shard progress of in-flight backup and clone operations
// against an external repository. The repository blob store itself is out
// of scope; only this state machine is specified.
package snapshot

// ShardState is a single shard's progress within one snapshot or clone
// entry. Wire values are fixed and a gap is preserved at 1 for the
// top-level-only STARTED state, so shard values never shift on the wire.
type ShardState int

const (
	ShardInit    ShardState = 0
	// 1 is reserved: STARTED is a top-level-only state, never a shard state.
	ShardSuccess ShardState = 2
	ShardFailed  ShardState = 3
	ShardAborted ShardState = 4
	ShardMissing ShardState = 5
	ShardWaiting ShardState = 6
	ShardQueued  ShardState = 7
)

func (s ShardState) String() string {
	switch s {
	case ShardInit:
		return "INIT"
	case ShardSuccess:
		return "SUCCESS"
	case ShardFailed:
		return "FAILED"
	case ShardAborted:
		return "ABORTED"
	case ShardMissing:
		return "MISSING"
	case ShardWaiting:
		return "WAITING"
	case ShardQueued:
		return "QUEUED"
	default:
		return "UNKNOWN"
	}
}

// Completed reports whether a shard in this state requires no further work.
func (s ShardState) Completed() bool {
	switch s {
	case ShardSuccess, ShardFailed, ShardAborted, ShardMissing:
		return true
	default:
		return false
	}
}

// Active reports whether a shard in this state is presently being worked
// by a data node (used by the cross-entry QUEUED-ordering invariant).
func (s ShardState) Active() bool {
	switch s {
	case ShardInit, ShardAborted, ShardWaiting:
		return true
	default:
		return false
	}
}

// Failed reports whether a shard in this state counts toward an owning
// entry's hasFailures check.
func (s ShardState) Failed() bool {
	return s == ShardFailed
}

// ShardSnapshotResult is attached to a shard status only in the SUCCESS
// state: the generation and size observed once the shard's data was
// written to the repository.
type ShardSnapshotResult struct {
	Generation string
	Size       int64
	SegmentCount int
}

// ShardSnapshotStatus is one shard's status within an entry's shard map.
type ShardSnapshotStatus struct {
	NodeID     *string
	State      ShardState
	Generation *string
	Reason     *string
	Result     *ShardSnapshotResult // only set when State == ShardSuccess
}

// QueuedStatus is the single reused sentinel instance for a queued shard:
// no node id, generation, or reason is ever attached to QUEUED.
var QueuedStatus = ShardSnapshotStatus{State: ShardQueued}

// ShardId identifies a shard local to this cluster's view of an index.
type ShardId struct {
	IndexName string
	Shard     int
}

// RepositoryShardId identifies a shard by its repository-relative
// coordinate — the index name as recorded in the repository, which may
// differ from any local index name, plus the shard index. Clone entries
// key their clones map by this, not by ShardId, because clone work runs
// entirely against the repository and has no local index to resolve.
type RepositoryShardId struct {
	IndexNameInRepository string
	Shard                 int
}
