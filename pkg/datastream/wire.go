package datastream

import (
	"io"
	"sort"

	"github.com/cuemby/clustermeta/pkg/wire"
)

// WriteTo serializes d per the data-stream wire layout: name,
// timestampField, list<backing index>, generation, metadata map, then the
// four boolean flags, with allowCustomRouting gated on peerVersion.
func (d DataStream) WriteTo(w io.Writer, peerVersion wire.Version) error {
	if err := wire.WriteString(w, d.Name); err != nil {
		return err
	}
	if err := wire.WriteString(w, TimestampField); err != nil {
		return err
	}
	if err := wire.WriteVInt(w, len(d.BackingIndices)); err != nil {
		return err
	}
	for _, b := range d.BackingIndices {
		if err := wire.WriteString(w, b.Name); err != nil {
			return err
		}
		if err := wire.WriteString(w, b.UUID); err != nil {
			return err
		}
	}
	if err := wire.WriteVInt(w, int(d.Generation)); err != nil {
		return err
	}
	if err := wire.WriteStringMap(w, d.Metadata, sortedKeys(d.Metadata)); err != nil {
		return err
	}
	if err := wire.WriteBool(w, d.Hidden); err != nil {
		return err
	}
	if err := wire.WriteBool(w, d.Replicated); err != nil {
		return err
	}
	if err := wire.WriteBool(w, d.System); err != nil {
		return err
	}
	if peerVersion.AtLeast(wire.VersionAllowCustomRouting) {
		return wire.WriteBool(w, d.AllowCustomRouting)
	}
	return nil
}

// ReadFrom deserializes a DataStream written by WriteTo.
func ReadFrom(r wire.ByteReadReader, peerVersion wire.Version) (DataStream, error) {
	var d DataStream
	var err error
	if d.Name, err = wire.ReadString(r); err != nil {
		return d, err
	}
	if _, err = wire.ReadString(r); err != nil { // timestamp field, fixed sentinel
		return d, err
	}
	n, err := wire.ReadVInt(r)
	if err != nil {
		return d, err
	}
	d.BackingIndices = make([]BackingIndex, 0, n)
	for i := 0; i < n; i++ {
		var b BackingIndex
		if b.Name, err = wire.ReadString(r); err != nil {
			return d, err
		}
		if b.UUID, err = wire.ReadString(r); err != nil {
			return d, err
		}
		d.BackingIndices = append(d.BackingIndices, b)
	}
	gen, err := wire.ReadVInt(r)
	if err != nil {
		return d, err
	}
	d.Generation = uint64(gen)
	if d.Metadata, err = wire.ReadStringMap(r); err != nil {
		return d, err
	}
	if d.Hidden, err = wire.ReadBool(r); err != nil {
		return d, err
	}
	if d.Replicated, err = wire.ReadBool(r); err != nil {
		return d, err
	}
	if d.System, err = wire.ReadBool(r); err != nil {
		return d, err
	}
	if peerVersion.AtLeast(wire.VersionAllowCustomRouting) {
		if d.AllowCustomRouting, err = wire.ReadBool(r); err != nil {
			return d, err
		}
	}
	return d, nil
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
