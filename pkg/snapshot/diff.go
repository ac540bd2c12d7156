package snapshot

import "github.com/cuemby/clustermeta/pkg/diffable"

// Diff is the delta between two Entry values for the same snapshot
// identity: a full-replacement SimpleDiff, since an in-flight entry's
// per-shard churn is bounded and not worth a structural delta.
type Diff = diffable.SimpleDiff[Entry]

// DiffAgainst computes the delta from prev to curr.
func DiffAgainst(prev, curr Entry) Diff {
	return diffable.DiffSimple(prev, curr, Equal)
}

// Equal compares two entries field by field, including their shard and
// clone maps by content.
func Equal(a, b Entry) bool {
	if a.Snapshot != b.Snapshot || a.IncludeGlobalState != b.IncludeGlobalState || a.Partial != b.Partial {
		return false
	}
	if a.State != b.State || a.StartTime != b.StartTime || a.RepositoryStateId != b.RepositoryStateId || a.Version != b.Version {
		return false
	}
	if !optStrEqual(a.Failure, b.Failure) {
		return false
	}
	if len(a.Indices) != len(b.Indices) {
		return false
	}
	for i := range a.Indices {
		if a.Indices[i] != b.Indices[i] {
			return false
		}
	}
	if !stringSliceEqual(a.DataStreams, b.DataStreams) || !stringSliceEqual(a.FeatureStates, b.FeatureStates) {
		return false
	}
	if !stringMapEqual(a.UserMetadata, b.UserMetadata) {
		return false
	}
	if (a.Source == nil) != (b.Source == nil) {
		return false
	}
	if a.Source != nil && *a.Source != *b.Source {
		return false
	}
	if !shardMapEqual(a.Shards, b.Shards) {
		return false
	}
	return repoShardMapEqual(a.Clones, b.Clones)
}

func shardStatusEqual(a, b ShardSnapshotStatus) bool {
	if a.State != b.State {
		return false
	}
	if !optStrEqual(a.NodeID, b.NodeID) || !optStrEqual(a.Generation, b.Generation) || !optStrEqual(a.Reason, b.Reason) {
		return false
	}
	if (a.Result == nil) != (b.Result == nil) {
		return false
	}
	return a.Result == nil || *a.Result == *b.Result
}

func shardMapEqual(a, b map[ShardId]ShardSnapshotStatus) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || !shardStatusEqual(v, bv) {
			return false
		}
	}
	return true
}

func repoShardMapEqual(a, b map[RepositoryShardId]ShardSnapshotStatus) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || !shardStatusEqual(v, bv) {
			return false
		}
	}
	return true
}

func optStrEqual(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringMapEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
