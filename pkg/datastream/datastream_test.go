package datastream

import (
	"bufio"
	"bytes"
	"testing"
	"time"

	"github.com/cuemby/clustermeta/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStream() DataStream {
	return DataStream{
		Name:       "orders",
		Generation: 5,
		BackingIndices: []BackingIndex{
			{Name: ".ds-orders-2024.01.01-000005", UUID: "uuid-5"},
		},
		Metadata: map[string]string{},
	}
}

func TestDefaultBackingIndexNameFormat(t *testing.T) {
	epoch := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	got := DefaultBackingIndexName("orders", 6, epoch)
	assert.Equal(t, ".ds-orders-2024.01.02-000006", got)
}

func TestRolloverBumpsGenerationAndName(t *testing.T) {
	ds := sampleStream()
	epoch := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	next, err := Rollover(ds, "U", epoch, func(string) bool { return false })
	require.NoError(t, err)
	assert.Equal(t, uint64(6), next.Generation)
	assert.Equal(t, ".ds-orders-2024.01.02-000006", next.WriteIndex().Name)
	assert.Len(t, next.BackingIndices, 2)
	assert.Equal(t, ds.BackingIndices[0], next.BackingIndices[0])
}

func TestRolloverRetriesOnCollision(t *testing.T) {
	ds := sampleStream()
	epoch := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	calls := 0
	next, err := Rollover(ds, "U", epoch, func(name string) bool {
		calls++
		return name == ".ds-orders-2024.01.02-000006"
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), next.Generation)
	assert.Equal(t, ".ds-orders-2024.01.02-000007", next.WriteIndex().Name)
	assert.GreaterOrEqual(t, calls, 2)
}

func TestRolloverRejectsReplicated(t *testing.T) {
	ds := sampleStream()
	ds.Replicated = true
	_, err := Rollover(ds, "U", time.Now().UnixMilli(), func(string) bool { return false })
	require.Error(t, err)
}

func TestRemoveBackingIndexRejectsWriteIndex(t *testing.T) {
	ds := sampleStream()
	_, err := RemoveBackingIndex(ds, ds.WriteIndex().Name)
	require.Error(t, err)
}

func TestRemoveBackingIndexRemovesNonWrite(t *testing.T) {
	ds := sampleStream()
	epoch := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	withSecond, err := Rollover(ds, "U2", epoch, func(string) bool { return false })
	require.NoError(t, err)

	removed, err := RemoveBackingIndex(withSecond, ds.BackingIndices[0].Name)
	require.NoError(t, err)
	assert.Len(t, removed.BackingIndices, 1)
	assert.Equal(t, withSecond.WriteIndex(), removed.BackingIndices[0])
}

func TestSnapshotReconciliationDropsAbsentIndices(t *testing.T) {
	ds := sampleStream()
	epoch := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	ds, _ = Rollover(ds, "U2", epoch, func(string) bool { return false })

	present := map[string]bool{ds.WriteIndex().Name: true}
	next, ok := Snapshot(ds, present)
	require.True(t, ok)
	assert.Len(t, next.BackingIndices, 1)
	assert.Equal(t, ds.WriteIndex(), next.BackingIndices[0])
}

func TestSnapshotReconciliationDropsStreamWhenNoneRemain(t *testing.T) {
	ds := sampleStream()
	_, ok := Snapshot(ds, map[string]bool{})
	assert.False(t, ok)
}

func TestSnapshotReconciliationUnchangedWhenAllRetained(t *testing.T) {
	ds := sampleStream()
	present := map[string]bool{ds.BackingIndices[0].Name: true}
	next, ok := Snapshot(ds, present)
	require.True(t, ok)
	assert.True(t, Equal(ds, next))
}

func TestWireRoundTrip(t *testing.T) {
	ds := sampleStream()
	ds.Hidden = true
	ds.AllowCustomRouting = true
	var buf bytes.Buffer
	require.NoError(t, ds.WriteTo(&buf, wire.VersionCurrent))

	got, err := ReadFrom(bufio.NewReader(&buf), wire.VersionCurrent)
	require.NoError(t, err)
	assert.True(t, Equal(ds, got))
}

func TestWireRoundTripOlderPeerOmitsAllowCustomRouting(t *testing.T) {
	ds := sampleStream()
	ds.AllowCustomRouting = true
	var buf bytes.Buffer
	require.NoError(t, ds.WriteTo(&buf, wire.VersionBaseline))

	got, err := ReadFrom(bufio.NewReader(&buf), wire.VersionBaseline)
	require.NoError(t, err)
	assert.False(t, got.AllowCustomRouting)
}
