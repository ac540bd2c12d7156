package wire

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTripReader(buf *bytes.Buffer) ByteReadReader {
	return bufio.NewReader(buf)
}

func TestVIntRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 127, 128, 300, 1 << 20} {
		var buf bytes.Buffer
		require.NoError(t, WriteVInt(&buf, n))
		got, err := ReadVInt(bufio.NewReader(&buf))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteString(&buf, "orders"))
	got, err := ReadString(roundTripReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, "orders", got)
}

func TestOptionalStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOptionalString(&buf, nil))
	got, err := ReadOptionalString(roundTripReader(&buf))
	require.NoError(t, err)
	assert.Nil(t, got)

	s := "routing"
	buf.Reset()
	require.NoError(t, WriteOptionalString(&buf, &s))
	got, err = ReadOptionalString(roundTripReader(&buf))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "routing", *got)
}

func TestStringSliceRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := []string{"a", "b", "c"}
	require.NoError(t, WriteStringSlice(&buf, in))
	got, err := ReadStringSlice(roundTripReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestStringMapRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	m := map[string]string{"b": "2", "a": "1"}
	require.NoError(t, WriteStringMap(&buf, m, []string{"a", "b"}))
	got, err := ReadStringMap(roundTripReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestI64RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteI64(&buf, -12345))
	got, err := ReadI64(&buf)
	require.NoError(t, err)
	assert.EqualValues(t, -12345, got)
}

func TestVersionAtLeast(t *testing.T) {
	assert.True(t, VersionCurrent.AtLeast(VersionMappingsAsHash))
	assert.False(t, VersionBaseline.AtLeast(VersionMappingsAsHash))
}
