package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterPutKeyedByEphemeralID(t *testing.T) {
	n1 := New("node-1", "p1", "e1", "h1", "a1", "ta1", nil, []Role{RoleData}, 1)
	n2 := New("node-1", "p1", "e2", "h1", "a1", "ta1", nil, []Role{RoleData}, 1)

	r := EmptyRoster().Put(n1)
	require.Len(t, r.Nodes, 1)

	r = r.Put(n2)
	assert.Len(t, r.Nodes, 2, "restarted node has a distinct ephemeral id and must not overwrite the old entry")
}

func TestRosterRemove(t *testing.T) {
	n := New("node-1", "p1", "e1", "h1", "a1", "ta1", nil, []Role{RoleData}, 1)
	r := EmptyRoster().Put(n).Remove("e1")
	assert.Empty(t, r.Nodes)
}

func TestRosterSortedIsStableByEphemeralID(t *testing.T) {
	n1 := New("a", "p1", "e2", "h", "a", "ta", nil, []Role{RoleData}, 1)
	n2 := New("b", "p2", "e1", "h", "a", "ta", nil, []Role{RoleData}, 1)
	r := EmptyRoster().Put(n1).Put(n2)

	sorted := r.Sorted()
	require.Len(t, sorted, 2)
	assert.Equal(t, "e1", sorted[0].EphemeralID)
	assert.Equal(t, "e2", sorted[1].EphemeralID)
}

func TestMarshalUnmarshalRosterRoundTrip(t *testing.T) {
	n := New("node-1", "p1", "e1", "h1", "10.0.0.1", "10.0.0.1:9300", map[string]string{"zone": "us-east"}, []Role{RoleMaster, RoleData}, 7)
	r := EmptyRoster().Put(n)

	payload, err := MarshalRoster(r)
	require.NoError(t, err)

	back, err := UnmarshalRoster(payload)
	require.NoError(t, err)
	require.Contains(t, back.Nodes, "e1")
	assert.True(t, back.Nodes["e1"].Equal(n))
	assert.Equal(t, n.Attributes, back.Nodes["e1"].Attributes)
}

func TestUnmarshalRosterEmptyPayloadIsEmptyRoster(t *testing.T) {
	r, err := UnmarshalRoster(nil)
	require.NoError(t, err)
	assert.Empty(t, r.Nodes)
}
