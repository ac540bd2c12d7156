package metadata

import (
	"bufio"
	"bytes"
	"testing"
	"time"

	"github.com/cuemby/clustermeta/pkg/datastream"
	"github.com/cuemby/clustermeta/pkg/discovery"
	"github.com/cuemby/clustermeta/pkg/index"
	"github.com/cuemby/clustermeta/pkg/mapping"
	"github.com/cuemby/clustermeta/pkg/snapshot"
	"github.com/cuemby/clustermeta/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIndex(name string) index.Metadata {
	built, err := index.NewBuilder(index.Metadata{
		Index:            index.Identity{Name: name, UUID: name + "-uuid"},
		NumberOfShards:   1,
		NumberOfReplicas: 1,
		State:            index.Open,
		CreationVersion:  1,
	}).Build()
	if err != nil {
		panic(err)
	}
	return built
}

func TestEmptyBuilderBuildsZeroValue(t *testing.T) {
	md, err := NewEmptyBuilder().Build()
	require.NoError(t, err)
	assert.Equal(t, 0, len(md.Indices))
	assert.NotNil(t, md.lookupCache)
	assert.Empty(t, md.AllIndices)
}

func TestPutIndexInsertsNewMappingIntoPool(t *testing.T) {
	mm := mapping.New([]byte(`{"properties":{"f":{"type":"keyword"}}}`))
	idx, err := index.NewBuilder(index.Metadata{
		Index:            index.Identity{Name: "orders", UUID: "u1"},
		NumberOfShards:   1,
		NumberOfReplicas: 1,
		State:            index.Open,
	}).Mapping(mm).Build()
	require.NoError(t, err)

	md, err := NewEmptyBuilder().PutIndex(idx, false).Build()
	require.NoError(t, err)

	assert.Equal(t, 1, md.MappingPool.Len())
	resolved, ok := md.MappingPool.Get(mm.Hash())
	require.True(t, ok)
	assert.Equal(t, mm.Source(), resolved.Source())
	assert.Equal(t, mm.Hash(), md.Indices["orders"].MappingHash)
}

func TestPutIndexDedupesIdenticalMappingAcrossIndices(t *testing.T) {
	mm := mapping.New([]byte(`{"properties":{"f":{"type":"keyword"}}}`))
	idxA, err := index.NewBuilder(index.Metadata{
		Index: index.Identity{Name: "a", UUID: "ua"}, NumberOfShards: 1, NumberOfReplicas: 1, State: index.Open,
	}).Mapping(mm).Build()
	require.NoError(t, err)
	idxB, err := index.NewBuilder(index.Metadata{
		Index: index.Identity{Name: "b", UUID: "ub"}, NumberOfShards: 1, NumberOfReplicas: 1, State: index.Open,
	}).Mapping(mapping.New([]byte(`{"properties":{"f":{"type":"keyword"}}}`))).Build()
	require.NoError(t, err)

	md, err := NewEmptyBuilder().PutIndex(idxA, false).PutIndex(idxB, false).Build()
	require.NoError(t, err)

	assert.Equal(t, 1, md.MappingPool.Len())
	assert.Equal(t, md.Indices["a"].MappingHash, md.Indices["b"].MappingHash)
}

func TestPutIndexIsVisibleAfterBuild(t *testing.T) {
	md, err := NewEmptyBuilder().PutIndex(sampleIndex("orders"), true).Build()
	require.NoError(t, err)
	assert.Contains(t, md.Indices, "orders")
	assert.Equal(t, []string{"orders"}, md.AllIndices)
	assert.Equal(t, 2, md.TotalNumberOfShards) // 1 shard * (1 primary + 1 replica)
}

func TestNameCollisionBetweenAliasAndIndexFailsBuild(t *testing.T) {
	// scenario: an alias named "orders" is declared on one index while a
	// concrete index is also named "orders" - the two user-visible
	// namespaces collide and the build must fail.
	wi := true
	aliased := sampleIndex("shipments")
	aliased.Aliases = map[string]index.Alias{
		"orders": {Name: "orders", WriteIndex: &wi},
	}

	_, err := NewEmptyBuilder().
		PutIndex(sampleIndex("orders"), false).
		PutIndex(aliased, false).
		Build()
	require.Error(t, err)
}

func TestNameCollisionBetweenDataStreamAndIndexFailsBuild(t *testing.T) {
	ds := datastream.DataStream{
		Name:           "logs",
		Generation:     1,
		BackingIndices: []datastream.BackingIndex{{Name: ".ds-logs-2026.07.31-000001", UUID: "u1"}},
	}
	backing := sampleIndex(".ds-logs-2026.07.31-000001")

	_, err := NewEmptyBuilder().
		PutIndex(sampleIndex("logs"), false).
		PutIndex(backing, false).
		PutDataStream(ds).
		Build()
	require.Error(t, err)
}

func TestMultiIndexAliasRejectsTwoWriteIndices(t *testing.T) {
	wi := true
	a := sampleIndex("a")
	a.Aliases = map[string]index.Alias{"shared": {Name: "shared", WriteIndex: &wi}}
	b := sampleIndex("b")
	b.Aliases = map[string]index.Alias{"shared": {Name: "shared", WriteIndex: &wi}}

	_, err := NewEmptyBuilder().PutIndex(a, false).PutIndex(b, false).Build()
	require.Error(t, err)
}

func TestDataStreamBackingIndexMustExist(t *testing.T) {
	ds := datastream.DataStream{
		Name:           "logs",
		Generation:     1,
		BackingIndices: []datastream.BackingIndex{{Name: ".ds-logs-2026.07.31-000001", UUID: "u1"}},
	}
	_, err := NewEmptyBuilder().PutDataStream(ds).Build()
	require.Error(t, err)
}

func TestBackingIndexCannotAlsoBeAliasTarget(t *testing.T) {
	wi := true
	backing := sampleIndex(".ds-logs-2026.07.31-000001")
	backing.Aliases = map[string]index.Alias{"logs-alias": {Name: "logs-alias", WriteIndex: &wi}}
	ds := datastream.DataStream{
		Name:           "logs",
		Generation:     1,
		BackingIndices: []datastream.BackingIndex{{Name: ".ds-logs-2026.07.31-000001", UUID: "u1"}},
	}
	_, err := NewEmptyBuilder().PutIndex(backing, false).PutDataStream(ds).Build()
	require.Error(t, err)
}

func TestLookupReusedWhenNoNameVisibleFacetChanges(t *testing.T) {
	md, err := NewEmptyBuilder().PutIndex(sampleIndex("orders"), false).Build()
	require.NoError(t, err)
	first := md.lookupCache

	md2, err := NewBuilder(md).IncrementVersion().Build()
	require.NoError(t, err)
	assert.Same(t, first, md2.lookupCache)
}

func TestLookupRebuiltWhenAliasSetChanges(t *testing.T) {
	md, err := NewEmptyBuilder().PutIndex(sampleIndex("orders"), false).Build()
	require.NoError(t, err)
	first := md.lookupCache

	wi := true
	withAlias := md.Indices["orders"]
	withAlias.Aliases = map[string]index.Alias{"o-alias": {Name: "o-alias", WriteIndex: &wi}}
	md2, err := NewBuilder(md).PutIndex(withAlias, false).Build()
	require.NoError(t, err)
	assert.NotSame(t, first, md2.lookupCache)

	lk := md2.Lookup()
	require.Contains(t, lk, "o-alias")
	assert.Equal(t, AliasAbstraction, lk["o-alias"].Kind)
}

func TestRootWireRoundTrip(t *testing.T) {
	md, err := NewEmptyBuilder().
		ClusterUUID("cluster-1").
		ClusterUUIDCommitted(true).
		IncrementVersion().
		PutIndex(sampleIndex("orders"), false).
		PutCustom(Custom{Name: "repositories", Payload: []byte(`{"r":1}`), Contexts: ContextGateway}).
		Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, md.WriteTo(&buf, wire.VersionCurrent))

	got, err := ReadFrom(bufio.NewReader(&buf), wire.VersionCurrent)
	require.NoError(t, err)

	assert.Equal(t, md.ClusterUUID, got.ClusterUUID)
	assert.Equal(t, md.ClusterUUIDCommitted, got.ClusterUUIDCommitted)
	assert.Equal(t, md.Version, got.Version)
	assert.Contains(t, got.Indices, "orders")
	assert.Contains(t, got.Customs, "repositories")
}

func TestDiffRoundTrip(t *testing.T) {
	base, err := NewEmptyBuilder().ClusterUUID("c1").IncrementVersion().Build()
	require.NoError(t, err)

	next, err := NewBuilder(base).
		PutIndex(sampleIndex("orders"), false).
		PutSnapshotEntry(snapshot.Entry{
			Snapshot: snapshot.Identity{Repository: "repo1", Snapshot: "snap1"},
			State:    snapshot.EntryStarted,
		}).
		IncrementVersion().
		Build()
	require.NoError(t, err)

	d := DiffAgainst(base, next)
	assert.False(t, d.IsNoOp())

	applied := d.Apply(base)
	assert.Equal(t, next.Version, applied.Version)
	assert.Contains(t, applied.Indices, "orders")
	assert.Equal(t, 1, len(applied.SnapshotsInProgress))
	assert.Nil(t, applied.lookupCache)
}

func TestDiffAgainstSelfIsNoOp(t *testing.T) {
	md, err := NewEmptyBuilder().PutIndex(sampleIndex("orders"), false).Build()
	require.NoError(t, err)
	d := DiffAgainst(md, md)
	assert.True(t, d.IsNoOp())
}

func TestArchiveIndexRecordsTombstoneSurvivingBuild(t *testing.T) {
	md, err := NewEmptyBuilder().
		PutIndex(sampleIndex("orders"), false).
		Build()
	require.NoError(t, err)

	md, err = NewBuilder(md).
		RemoveIndex("orders").
		ArchiveIndex("orders", "orders-uuid", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 0).
		Build()
	require.NoError(t, err)

	assert.NotContains(t, md.Indices, "orders")
	g, err := md.Graveyard()
	require.NoError(t, err)
	assert.True(t, g.ContainsName("orders"))
}

func TestPutNodeIsVisibleInKnownNodesAfterBuild(t *testing.T) {
	n := discovery.New("node-1", "p1", "e1", "host-a", "10.0.0.1", "10.0.0.1:9300", nil, []discovery.Role{discovery.RoleData}, 3)

	md, err := NewEmptyBuilder().PutNode(n).Build()
	require.NoError(t, err)

	roster, err := md.KnownNodes()
	require.NoError(t, err)
	require.Contains(t, roster.Nodes, "e1")
	assert.True(t, roster.Nodes["e1"].Equal(n))
}

func TestRestartedNodeIsDistinctFromPriorEphemeralID(t *testing.T) {
	n1 := discovery.New("node-1", "p1", "e1", "host-a", "10.0.0.1", "10.0.0.1:9300", nil, []discovery.Role{discovery.RoleData}, 3)
	n2 := discovery.New("node-1", "p1", "e2", "host-a", "10.0.0.1", "10.0.0.1:9300", nil, []discovery.Role{discovery.RoleData}, 3)

	md, err := NewEmptyBuilder().PutNode(n1).PutNode(n2).Build()
	require.NoError(t, err)

	roster, err := md.KnownNodes()
	require.NoError(t, err)
	assert.Len(t, roster.Nodes, 2)
}

func TestRemoveNodeDropsItFromKnownNodes(t *testing.T) {
	n := discovery.New("node-1", "p1", "e1", "host-a", "10.0.0.1", "10.0.0.1:9300", nil, []discovery.Role{discovery.RoleData}, 3)

	md, err := NewEmptyBuilder().PutNode(n).Build()
	require.NoError(t, err)

	md2, err := NewBuilder(md).RemoveNode("e1").Build()
	require.NoError(t, err)

	roster, err := md2.KnownNodes()
	require.NoError(t, err)
	assert.Empty(t, roster.Nodes)
}
