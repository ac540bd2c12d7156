// Package wire provides the shared binary primitives used by every entity's
// writeTo/readFrom pair: variable-length integers, length-prefixed strings,
// and present-flag framing for optional values. The primitives themselves
// take no Version; each entity's writeTo/readFrom gates its optional fields
// by comparing the negotiated peer Version against the constants below.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Version is a peer's wire protocol version, negotiated by the transport
// handshake before any Metadata value crosses the wire.
type Version uint32

// Version gates named in the spec. Values are illustrative monotonic
// markers; only their relative order matters to callers.
const (
	VersionBaseline            Version = 0
	VersionConsistentHashes    Version = 1
	VersionMappingsAsHash      Version = 2
	VersionImmutableState      Version = 3
	VersionSnapshotClones      Version = 4
	VersionAllowCustomRouting  Version = 5
	VersionCurrent             Version = VersionAllowCustomRouting
)

// AtLeast reports whether peer satisfies a minimum required version.
func (v Version) AtLeast(min Version) bool { return v >= min }

// WriteVInt writes n as a protobuf-style base-128 varint.
func WriteVInt(w io.Writer, n int) error {
	if n < 0 {
		return fmt.Errorf("wire: negative vint %d", n)
	}
	buf := make([]byte, binary.MaxVarintLen64)
	nn := binary.PutUvarint(buf, uint64(n))
	_, err := w.Write(buf[:nn])
	return err
}

// ReadVInt reads a varint written by WriteVInt.
func ReadVInt(r io.ByteReader) (int, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// WriteString writes a UTF-8 string, vint-length-prefixed.
func WriteString(w io.Writer, s string) error {
	if err := WriteVInt(w, len(s)); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// ReadString reads a string written by WriteString.
func ReadString(r ByteReadReader) (string, error) {
	n, err := ReadVInt(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// ByteReadReader is the minimal interface ReadString and ReadVInt require:
// a byte-at-a-time reader for varints plus bulk reads for the payload.
type ByteReadReader interface {
	io.Reader
	io.ByteReader
}

// WriteBool writes a single presence/boolean byte.
func WriteBool(w io.Writer, b bool) error {
	var v byte
	if b {
		v = 1
	}
	_, err := w.Write([]byte{v})
	return err
}

// ReadBool reads a byte written by WriteBool.
func ReadBool(r io.Reader) (bool, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return false, err
	}
	return buf[0] != 0, nil
}

// WriteI64 writes a big-endian int64.
func WriteI64(w io.Writer, n int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	_, err := w.Write(buf[:])
	return err
}

// ReadI64 reads an int64 written by WriteI64.
func ReadI64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

// WriteU64 writes a big-endian uint64.
func WriteU64(w io.Writer, n uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	_, err := w.Write(buf[:])
	return err
}

// ReadU64 reads a uint64 written by WriteU64.
func ReadU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// WriteOptionalString writes a present-flag byte followed by the string
// when present.
func WriteOptionalString(w io.Writer, s *string) error {
	if s == nil {
		return WriteBool(w, false)
	}
	if err := WriteBool(w, true); err != nil {
		return err
	}
	return WriteString(w, *s)
}

// ReadOptionalString reads a value written by WriteOptionalString.
func ReadOptionalString(r ByteReadReader) (*string, error) {
	present, err := ReadBool(r)
	if err != nil || !present {
		return nil, err
	}
	s, err := ReadString(r)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// WriteStringSlice writes a vint count followed by each string.
func WriteStringSlice(w io.Writer, ss []string) error {
	if err := WriteVInt(w, len(ss)); err != nil {
		return err
	}
	for _, s := range ss {
		if err := WriteString(w, s); err != nil {
			return err
		}
	}
	return nil
}

// ReadStringSlice reads a slice written by WriteStringSlice.
func ReadStringSlice(r ByteReadReader) ([]string, error) {
	n, err := ReadVInt(r)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, err := ReadString(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// WriteStringMap writes a string->string map, vint count then sorted
// key/value pairs so the byte output is deterministic.
func WriteStringMap(w io.Writer, m map[string]string, sortedKeys []string) error {
	if err := WriteVInt(w, len(sortedKeys)); err != nil {
		return err
	}
	for _, k := range sortedKeys {
		if err := WriteString(w, k); err != nil {
			return err
		}
		if err := WriteString(w, m[k]); err != nil {
			return err
		}
	}
	return nil
}

// ReadStringMap reads a map written by WriteStringMap.
func ReadStringMap(r ByteReadReader) (map[string]string, error) {
	n, err := ReadVInt(r)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, n)
	for i := 0; i < n; i++ {
		k, err := ReadString(r)
		if err != nil {
			return nil, err
		}
		v, err := ReadString(r)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// WriteBytes writes a vint-length-prefixed byte slice.
func WriteBytes(w io.Writer, b []byte) error {
	if err := WriteVInt(w, len(b)); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadBytes reads a byte slice written by WriteBytes.
func ReadBytes(r ByteReadReader) ([]byte, error) {
	n, err := ReadVInt(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
