package localstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistentNodeIDIsStableAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	require.NoError(t, err)
	id1, err := s1.PersistentNodeID()
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()
	id2, err := s2.PersistentNodeID()
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
}

func TestPersistentNodeIDDiffersAcrossDataDirs(t *testing.T) {
	s1, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s1.Close()
	s2, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s2.Close()

	id1, err := s1.PersistentNodeID()
	require.NoError(t, err)
	id2, err := s2.PersistentNodeID()
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
}
