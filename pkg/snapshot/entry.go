package snapshot

import "github.com/cuemby/clustermeta/pkg/metaerr"

// EntryState is an entry's top-level state.
type EntryState int

const (
	EntryInit EntryState = iota
	EntryStarted
	EntrySuccess
	EntryFailed
	EntryAborted
)

func (s EntryState) String() string {
	switch s {
	case EntryInit:
		return "INIT"
	case EntryStarted:
		return "STARTED"
	case EntrySuccess:
		return "SUCCESS"
	case EntryFailed:
		return "FAILED"
	case EntryAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Identity names a repository + snapshot pair.
type Identity struct {
	Repository string
	Snapshot   string
}

// IndexId names an index as recorded inside a snapshot entry: its name plus
// the uuid it had at snapshot time.
type IndexId struct {
	Name string
	UUID string
}

// Entry is one in-flight backup or clone operation. A clone entry has a
// non-nil Source and populates Clones instead of Shards.
type Entry struct {
	Snapshot            Identity
	IncludeGlobalState  bool
	Partial             bool
	State               EntryState
	Indices             []IndexId
	DataStreams         []string
	StartTime           int64
	Shards              map[ShardId]ShardSnapshotStatus
	RepositoryStateId   int64
	Failure             *string
	UserMetadata        map[string]string
	Version             int
	FeatureStates       []string
	Source              *Identity
	Clones              map[RepositoryShardId]ShardSnapshotStatus
}

// IsClone reports whether this entry is a repository-to-repository clone.
func (e Entry) IsClone() bool { return e.Source != nil }

// completed reports whether every shard in shards is in a completed state.
func completed(shards map[ShardId]ShardSnapshotStatus) bool {
	for _, s := range shards {
		if !s.State.Completed() {
			return false
		}
	}
	return true
}

// completedClones reports whether every clone in clones is in a completed
// state, mirroring completed for the repository-shard-keyed clone map.
func completedClones(clones map[RepositoryShardId]ShardSnapshotStatus) bool {
	for _, s := range clones {
		if !s.State.Completed() {
			return false
		}
	}
	return true
}

// hasFailures reports whether any clone in clones ended in FAILED.
func hasFailures(clones map[RepositoryShardId]ShardSnapshotStatus) bool {
	for _, s := range clones {
		if s.State.Failed() {
			return true
		}
	}
	return false
}

// StartedEntry builds an entry transitioning from INIT to in-progress work,
// deriving its top-level state from whether every shard already completed
// (a backup whose shards all resolved in a single commit goes straight to
// SUCCESS; partial completion goes to STARTED).
func StartedEntry(base Entry, shards map[ShardId]ShardSnapshotStatus) Entry {
	next := base
	next.Shards = shards
	if completed(shards) {
		next.State = EntrySuccess
	} else {
		next.State = EntryStarted
	}
	return next
}

// WithShardStates returns a copy of e with its shard map replaced. The
// top-level state advances to SUCCESS if every shard is now completed;
// otherwise it is left unchanged (an entry does not regress out of
// STARTED/ABORTED/FAILED just because a later shard update arrived).
func (e Entry) WithShardStates(shards map[ShardId]ShardSnapshotStatus) Entry {
	next := e
	next.Shards = shards
	if completed(shards) {
		next.State = EntrySuccess
	}
	return next
}

// WithClones returns a copy of e with its clones map replaced. The
// top-level state only moves once every clone has completed: SUCCESS if
// none failed, FAILED if any did; until then the current state is left
// unchanged, matching WithShardStates' no-regression rule.
func (e Entry) WithClones(clones map[RepositoryShardId]ShardSnapshotStatus) Entry {
	next := e
	next.Clones = clones
	if completedClones(clones) {
		if hasFailures(clones) {
			next.State = EntryFailed
		} else {
			next.State = EntrySuccess
		}
	}
	return next
}

// snapshotAbortedMessage is the fixed failure message recorded on an
// entry aborted by deletion; message stability is a contract observed by
// clients that pattern-match on it.
const snapshotAbortedMessage = "Snapshot was aborted by deletion"

// Abort walks every shard of e: completed and QUEUED shards are kept
// unchanged; any other incomplete shard with a node id transitions to
// ABORTED (there is a data node to receive the abort request); one with no
// node id transitions straight to FAILED (nothing to abort, so the failure
// is recorded directly).
// If every shard was already QUEUED — nothing assigned, nothing written —
// or e is a clone entry, Abort returns (Entry{}, false) and the caller
// removes the entry outright rather than keep an all-queued aborted husk.
func Abort(e Entry) (Entry, bool) {
	if e.IsClone() {
		return Entry{}, false
	}
	allQueued := true
	for _, s := range e.Shards {
		if s.State != ShardQueued {
			allQueued = false
			break
		}
	}
	if allQueued {
		return Entry{}, false
	}

	next := make(map[ShardId]ShardSnapshotStatus, len(e.Shards))
	for id, s := range e.Shards {
		if s.State.Completed() || s.State == ShardQueued {
			next[id] = s
			continue
		}
		if s.NodeID != nil {
			aborted := s
			aborted.State = ShardAborted
			next[id] = aborted
		} else {
			reason := snapshotAbortedMessage
			next[id] = ShardSnapshotStatus{State: ShardFailed, Reason: &reason}
		}
	}

	result := e
	result.Shards = next
	failure := snapshotAbortedMessage
	result.Failure = &failure
	if completed(next) {
		result.State = EntrySuccess
	} else {
		result.State = EntryAborted
	}
	return result, true
}

// ValidateRepositoryOrdering enforces the cross-entry invariant: within one
// repository's entries (in list order), once a shard has appeared QUEUED in
// some entry, it must not appear active (INIT, ABORTED, WAITING) in any
// later entry of the same repository.
func ValidateRepositoryOrdering(entries []Entry) error {
	byRepo := map[string][]Entry{}
	for _, e := range entries {
		byRepo[e.Snapshot.Repository] = append(byRepo[e.Snapshot.Repository], e)
	}
	for repo, es := range byRepo {
		queuedSeen := map[ShardId]bool{}
		for _, e := range es {
			for id, s := range e.Shards {
				if s.State.Active() && queuedSeen[id] {
					return metaerr.InvalidStatef(
						"repository [%s] has shard %v active after it was already queued in an earlier entry", repo, id)
				}
			}
			for id, s := range e.Shards {
				if s.State == ShardQueued {
					queuedSeen[id] = true
				}
			}
		}
	}
	return nil
}
