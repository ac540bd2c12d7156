package graveyard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRecordsTombstone(t *testing.T) {
	g := Empty()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g = g.Add("orders", "u1", now, 0)

	assert.True(t, g.ContainsName("orders"))
	assert.True(t, g.ContainsUUID("u1"))
	assert.False(t, g.ContainsName("shipments"))
}

func TestAddEvictsTombstonesOlderThanMaxAge(t *testing.T) {
	g := Empty()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g = g.Add("orders", "u1", base, time.Hour)
	g = g.Add("shipments", "u2", base.Add(2*time.Hour), time.Hour)

	assert.False(t, g.ContainsName("orders"))
	assert.True(t, g.ContainsName("shipments"))
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	g := Empty().Add("orders", "u1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 0)

	payload, err := Marshal(g)
	require.NoError(t, err)

	back, err := Unmarshal(payload)
	require.NoError(t, err)
	assert.True(t, back.ContainsName("orders"))
}

func TestUnmarshalEmptyPayloadIsEmptyGraveyard(t *testing.T) {
	g, err := Unmarshal(nil)
	require.NoError(t, err)
	assert.Empty(t, g.Tombstones)
}
