package discovery

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualIsByEphemeralIDOnly(t *testing.T) {
	a := New("node-1", "persist-1", "ephemeral-1", "host-a", "10.0.0.1", "10.0.0.1:9300", nil, []Role{RoleData}, 5)
	restarted := New("node-1", "persist-1", "ephemeral-2", "host-a", "10.0.0.1", "10.0.0.1:9300", nil, []Role{RoleData}, 5)
	sameProcess := New("node-1", "persist-1", "ephemeral-1", "host-a", "10.0.0.1", "10.0.0.1:9300", nil, []Role{RoleData}, 5)

	assert.False(t, a.Equal(restarted))
	assert.True(t, a.Equal(sameProcess))
}

func TestNewSortsRoles(t *testing.T) {
	n := New("node-1", "p1", "e1", "h", "a", "ta", nil, []Role{RoleMaster, RoleData, RoleIngest}, 1)
	require.Len(t, n.Roles, 3)
	assert.Equal(t, "data", n.Roles[0].Name)
	assert.Equal(t, "ingest", n.Roles[1].Name)
	assert.Equal(t, "master", n.Roles[2].Name)
}

func TestUnknownRolePreservedOverWire(t *testing.T) {
	n := New("node-1", "p1", "e1", "h", "a", "ta", map[string]string{"zone": "us-east"}, []Role{UnknownRole("search_tier")}, 9)
	var buf bytes.Buffer
	require.NoError(t, n.WriteTo(&buf))

	got, err := ReadFrom(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.Len(t, got.Roles, 1)
	assert.Equal(t, "search_tier", got.Roles[0].Name)
	assert.True(t, got.HasRole("search_tier"))
	assert.Equal(t, n.Attributes, got.Attributes)
	assert.Equal(t, n.EphemeralID, got.EphemeralID)
}
