package snapshot

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/cuemby/clustermeta/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestAbortMixedShardStates(t *testing.T) {
	n1, n2, gen := "N1", "N2", "G"
	e := Entry{
		Snapshot: Identity{Repository: "repo1", Snapshot: "snap1"},
		State:    EntryStarted,
		Shards: map[ShardId]ShardSnapshotStatus{
			{IndexName: "orders", Shard: 0}: {NodeID: &n1, State: ShardInit, Generation: &gen},
			{IndexName: "orders", Shard: 1}: {NodeID: &n2, State: ShardWaiting, Generation: &gen},
			{IndexName: "orders", Shard: 2}: QueuedStatus,
		},
	}

	next, ok := Abort(e)
	require.True(t, ok)
	assert.Equal(t, EntryAborted, next.State)
	require.NotNil(t, next.Failure)
	assert.Equal(t, "Snapshot was aborted by deletion", *next.Failure)

	assert.Equal(t, ShardAborted, next.Shards[ShardId{IndexName: "orders", Shard: 0}].State)
	assert.Equal(t, ShardAborted, next.Shards[ShardId{IndexName: "orders", Shard: 1}].State)
	assert.Equal(t, ShardQueued, next.Shards[ShardId{IndexName: "orders", Shard: 2}].State)
}

func TestAbortAllQueuedReturnsFalse(t *testing.T) {
	e := Entry{
		Snapshot: Identity{Repository: "repo1", Snapshot: "snap1"},
		Shards: map[ShardId]ShardSnapshotStatus{
			{IndexName: "orders", Shard: 0}: QueuedStatus,
			{IndexName: "orders", Shard: 1}: QueuedStatus,
		},
	}
	_, ok := Abort(e)
	assert.False(t, ok)
}

func TestAbortFailsShardWithNoNodeID(t *testing.T) {
	e := Entry{
		Snapshot: Identity{Repository: "repo1", Snapshot: "snap1"},
		Shards: map[ShardId]ShardSnapshotStatus{
			{IndexName: "orders", Shard: 0}: {State: ShardInit},
		},
	}
	next, ok := Abort(e)
	require.True(t, ok)
	st := next.Shards[ShardId{IndexName: "orders", Shard: 0}]
	assert.Equal(t, ShardFailed, st.State)
	require.NotNil(t, st.Reason)
}

func TestWithShardStatesAdvancesToSuccess(t *testing.T) {
	e := Entry{State: EntryStarted}
	next := e.WithShardStates(map[ShardId]ShardSnapshotStatus{
		{IndexName: "orders", Shard: 0}: {State: ShardSuccess},
	})
	assert.Equal(t, EntrySuccess, next.State)
}

func TestWithShardStatesHoldsCurrentWhenIncomplete(t *testing.T) {
	e := Entry{State: EntryAborted}
	next := e.WithShardStates(map[ShardId]ShardSnapshotStatus{
		{IndexName: "orders", Shard: 0}: {State: ShardWaiting},
	})
	assert.Equal(t, EntryAborted, next.State)
}

func TestWithClonesAdvancesToSuccessWhenNoneFailed(t *testing.T) {
	e := Entry{State: EntryStarted, Source: &Identity{Repository: "repo1", Snapshot: "source1"}}
	next := e.WithClones(map[RepositoryShardId]ShardSnapshotStatus{
		{IndexNameInRepository: "orders", Shard: 0}: {State: ShardSuccess},
		{IndexNameInRepository: "orders", Shard: 1}: {State: ShardSuccess},
	})
	assert.Equal(t, EntrySuccess, next.State)
}

func TestWithClonesAdvancesToFailedWhenAnyFailed(t *testing.T) {
	e := Entry{State: EntryStarted, Source: &Identity{Repository: "repo1", Snapshot: "source1"}}
	next := e.WithClones(map[RepositoryShardId]ShardSnapshotStatus{
		{IndexNameInRepository: "orders", Shard: 0}: {State: ShardSuccess},
		{IndexNameInRepository: "orders", Shard: 1}: {State: ShardFailed},
	})
	assert.Equal(t, EntryFailed, next.State)
}

func TestWithClonesHoldsCurrentWhenIncomplete(t *testing.T) {
	e := Entry{State: EntryStarted, Source: &Identity{Repository: "repo1", Snapshot: "source1"}}
	next := e.WithClones(map[RepositoryShardId]ShardSnapshotStatus{
		{IndexNameInRepository: "orders", Shard: 0}: {State: ShardWaiting},
	})
	assert.Equal(t, EntryStarted, next.State)
}

func TestValidateRepositoryOrderingRejectsActiveAfterQueued(t *testing.T) {
	id := ShardId{IndexName: "orders", Shard: 0}
	entries := []Entry{
		{Snapshot: Identity{Repository: "repo1", Snapshot: "s1"}, Shards: map[ShardId]ShardSnapshotStatus{id: {State: ShardQueued}}},
		{Snapshot: Identity{Repository: "repo1", Snapshot: "s2"}, Shards: map[ShardId]ShardSnapshotStatus{id: {State: ShardInit}}},
	}
	require.Error(t, ValidateRepositoryOrdering(entries))
}

func TestValidateRepositoryOrderingAcceptsQueuedAfterActive(t *testing.T) {
	id := ShardId{IndexName: "orders", Shard: 0}
	entries := []Entry{
		{Snapshot: Identity{Repository: "repo1", Snapshot: "s1"}, Shards: map[ShardId]ShardSnapshotStatus{id: {State: ShardInit}}},
		{Snapshot: Identity{Repository: "repo1", Snapshot: "s2"}, Shards: map[ShardId]ShardSnapshotStatus{id: {State: ShardQueued}}},
	}
	assert.NoError(t, ValidateRepositoryOrdering(entries))
}

func TestWireRoundTripClone(t *testing.T) {
	e := Entry{
		Snapshot:          Identity{Repository: "repo1", Snapshot: "clone1"},
		State:             EntryStarted,
		StartTime:         1000,
		RepositoryStateId: 7,
		Version:           1,
		Source:            &Identity{Repository: "repo1", Snapshot: "source1"},
		Clones: map[RepositoryShardId]ShardSnapshotStatus{
			{IndexNameInRepository: "orders", Shard: 0}: {State: ShardSuccess, Result: &ShardSnapshotResult{Generation: "g1", Size: 100}},
		},
		Shards: map[ShardId]ShardSnapshotStatus{},
	}
	var buf bytes.Buffer
	require.NoError(t, e.WriteTo(&buf, wire.VersionCurrent))

	got, err := ReadFrom(bufio.NewReader(&buf), wire.VersionCurrent)
	require.NoError(t, err)
	assert.True(t, Equal(e, got))
}

// TestBackwardCompatibleEntryRead matches the spec's scenario 6: a
// non-clone entry serialized at VersionSnapshotClones, read by a peer
// pretending to predate clone support, decodes every pre-clone field
// correctly and leaves source/clones empty.
func TestBackwardCompatibleEntryRead(t *testing.T) {
	gen := "gen-1"
	e := Entry{
		Snapshot:          Identity{Repository: "repo1", Snapshot: "snap1"},
		State:             EntrySuccess,
		StartTime:         500,
		RepositoryStateId: 3,
		Version:           2,
		Indices:           []IndexId{{Name: "orders", UUID: "u1"}},
		DataStreams:       []string{"logs"},
		Shards: map[ShardId]ShardSnapshotStatus{
			{IndexName: "orders", Shard: 0}: {State: ShardSuccess, Generation: &gen},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, e.WriteTo(&buf, wire.VersionSnapshotClones))

	got, err := ReadFrom(bufio.NewReader(&buf), wire.VersionImmutableState)
	require.NoError(t, err)
	assert.Equal(t, e.Snapshot, got.Snapshot)
	assert.Equal(t, e.State, got.State)
	assert.Equal(t, e.Indices, got.Indices)
	assert.Equal(t, e.DataStreams, got.DataStreams)
	assert.Nil(t, got.Source)
	assert.Empty(t, got.Clones)
}
