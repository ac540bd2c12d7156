package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupeSharesIdenticalMappingByIdentity(t *testing.T) {
	pool := NewPool()

	m1 := New([]byte(`{"properties":{"ts":{"type":"date"}}}`))
	stored1, pool, wasDup1 := pool.Dedupe(m1)
	require.False(t, wasDup1)

	m1copy := New([]byte(`{"properties":{"ts":{"type":"date"}}}`))
	stored2, pool, wasDup2 := pool.Dedupe(m1copy)
	require.True(t, wasDup2)

	assert.Equal(t, stored1.Hash(), stored2.Hash())
	assert.Equal(t, 1, pool.Len())
}

func TestDedupeIdempotent(t *testing.T) {
	pool := NewPool()
	m := New([]byte(`{"a":1}`))
	_, pool, _ = pool.Dedupe(m)
	before := pool.Len()
	_, pool, _ = pool.Dedupe(m)
	assert.Equal(t, before, pool.Len())
}

func TestPurgeDropsUnreferencedHashes(t *testing.T) {
	pool := NewPool()
	a := New([]byte(`{"a":1}`))
	b := New([]byte(`{"b":2}`))
	_, pool, _ = pool.Dedupe(a)
	_, pool, _ = pool.Dedupe(b)
	require.Equal(t, 2, pool.Len())

	pool = pool.Purge(map[string]struct{}{a.Hash(): {}})
	assert.Equal(t, 1, pool.Len())
	_, ok := pool.Get(b.Hash())
	assert.False(t, ok)
}

func TestPoolIsImmutable(t *testing.T) {
	pool := NewPool()
	a := New([]byte(`{"a":1}`))
	_, next, _ := pool.Dedupe(a)
	assert.Equal(t, 0, pool.Len())
	assert.Equal(t, 1, next.Len())
}
