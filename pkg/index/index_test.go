package index

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/cuemby/clustermeta/pkg/mapping"
	"github.com/cuemby/clustermeta/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIndex() Metadata {
	wi := true
	return Metadata{
		Index:            Identity{Name: "orders", UUID: "uuid-1"},
		Settings:         map[string]string{"index.number_of_shards": "1"},
		NumberOfShards:   1,
		NumberOfReplicas: 1,
		State:            Open,
		CreationVersion:  1,
		Aliases: map[string]Alias{
			"orders-alias": {Name: "orders-alias", WriteIndex: &wi},
		},
		Customs:     map[string][]byte{},
		MappingHash: "deadbeef",
		Version:     3,
	}
}

func TestValidateRejectsZeroShards(t *testing.T) {
	m := sampleIndex()
	m.NumberOfShards = 0
	err := m.Validate()
	require.Error(t, err)
}

func TestValidateRejectsNegativeReplicas(t *testing.T) {
	m := sampleIndex()
	m.NumberOfReplicas = -1
	require.Error(t, m.Validate())
}

func TestBuilderBumpsSettingsVersionOnStateChange(t *testing.T) {
	m := sampleIndex()
	b := NewBuilder(m)
	next, err := b.StateTransition(Closed).Build()
	require.NoError(t, err)
	assert.Equal(t, Closed, next.State)
	assert.Equal(t, m.SettingsVersion+1, next.SettingsVersion)
}

func TestBuilderBumpsAliasesVersionOnPutAndRemove(t *testing.T) {
	m := sampleIndex()
	b := NewBuilder(m)
	next, err := b.PutAlias(Alias{Name: "second"}).Build()
	require.NoError(t, err)
	assert.Equal(t, m.AliasesVersion+1, next.AliasesVersion)

	b2 := NewBuilder(next)
	next2, err := b2.RemoveAlias("second").Build()
	require.NoError(t, err)
	assert.Equal(t, next.AliasesVersion+1, next2.AliasesVersion)
	_, ok := next2.Aliases["second"]
	assert.False(t, ok)
}

func TestWireRoundTrip(t *testing.T) {
	m := sampleIndex()
	var buf bytes.Buffer
	require.NoError(t, m.WriteTo(&buf, wire.VersionCurrent, mapping.NewPool()))

	got, _, err := ReadFrom(bufio.NewReader(&buf), wire.VersionCurrent)
	require.NoError(t, err)
	assert.True(t, Equal(m, got))
}

func TestWireRoundTripLegacyPeerCarriesFullMappingBody(t *testing.T) {
	mm := mapping.New([]byte(`{"properties":{"f":{"type":"keyword"}}}`))
	_, pool, _ := mapping.NewPool().Dedupe(mm)
	m := sampleIndex()
	m.MappingHash = mm.Hash()

	var buf bytes.Buffer
	require.NoError(t, m.WriteTo(&buf, wire.VersionBaseline, pool))

	got, embedded, err := ReadFrom(bufio.NewReader(&buf), wire.VersionBaseline)
	require.NoError(t, err)
	assert.Equal(t, mm.Hash(), got.MappingHash)
	require.False(t, embedded.IsZero())
	assert.Equal(t, mm.Source(), embedded.Source())
}

func TestEqualDistinguishesAliasWriteFlag(t *testing.T) {
	a := sampleIndex()
	b := sampleIndex()
	wi := false
	alias := b.Aliases["orders-alias"]
	alias.WriteIndex = &wi
	b.Aliases["orders-alias"] = alias
	assert.False(t, Equal(a, b))
}
