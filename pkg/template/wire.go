package template

import (
	"io"
	"sort"

	"github.com/cuemby/clustermeta/pkg/wire"
)

// WriteTo serializes a ComponentTemplate.
func (c ComponentTemplate) WriteTo(w io.Writer) error {
	if err := wire.WriteString(w, c.Name); err != nil {
		return err
	}
	if err := wire.WriteStringMap(w, c.Settings, sortedKeys(c.Settings)); err != nil {
		return err
	}
	if err := wire.WriteBytes(w, c.Mappings); err != nil {
		return err
	}
	if err := wire.WriteStringMap(w, c.Aliases, sortedKeys(c.Aliases)); err != nil {
		return err
	}
	if err := writeOptionalI64(w, c.Version); err != nil {
		return err
	}
	return wire.WriteBool(w, c.Deprecated)
}

// ReadComponentTemplateFrom deserializes a ComponentTemplate.
func ReadComponentTemplateFrom(r wire.ByteReadReader) (ComponentTemplate, error) {
	var c ComponentTemplate
	var err error
	if c.Name, err = wire.ReadString(r); err != nil {
		return c, err
	}
	if c.Settings, err = wire.ReadStringMap(r); err != nil {
		return c, err
	}
	if c.Mappings, err = wire.ReadBytes(r); err != nil {
		return c, err
	}
	if len(c.Mappings) == 0 {
		c.Mappings = nil
	}
	if c.Aliases, err = wire.ReadStringMap(r); err != nil {
		return c, err
	}
	if c.Version, err = readOptionalI64(r); err != nil {
		return c, err
	}
	if c.Deprecated, err = wire.ReadBool(r); err != nil {
		return c, err
	}
	return c, nil
}

// WriteTo serializes a ComposableIndexTemplate.
func (t ComposableIndexTemplate) WriteTo(w io.Writer) error {
	if err := wire.WriteString(w, t.Name); err != nil {
		return err
	}
	if err := wire.WriteStringSlice(w, t.IndexPatterns); err != nil {
		return err
	}
	if err := writeOptionalI64(w, t.Priority); err != nil {
		return err
	}
	if err := writeOptionalI64(w, t.Version); err != nil {
		return err
	}
	if err := wire.WriteStringSlice(w, t.ComposedOf); err != nil {
		return err
	}
	if err := wire.WriteStringMap(w, t.Settings, sortedKeys(t.Settings)); err != nil {
		return err
	}
	if err := wire.WriteBytes(w, t.Mappings); err != nil {
		return err
	}
	if err := wire.WriteStringMap(w, t.Aliases, sortedKeys(t.Aliases)); err != nil {
		return err
	}
	if t.DataStream == nil {
		return wire.WriteBool(w, false)
	}
	if err := wire.WriteBool(w, true); err != nil {
		return err
	}
	return writeDataStreamTemplate(w, *t.DataStream)
}

// ReadComposableIndexTemplateFrom deserializes a ComposableIndexTemplate.
func ReadComposableIndexTemplateFrom(r wire.ByteReadReader) (ComposableIndexTemplate, error) {
	var t ComposableIndexTemplate
	var err error
	if t.Name, err = wire.ReadString(r); err != nil {
		return t, err
	}
	if t.IndexPatterns, err = wire.ReadStringSlice(r); err != nil {
		return t, err
	}
	if t.Priority, err = readOptionalI64(r); err != nil {
		return t, err
	}
	if t.Version, err = readOptionalI64(r); err != nil {
		return t, err
	}
	if t.ComposedOf, err = wire.ReadStringSlice(r); err != nil {
		return t, err
	}
	if t.Settings, err = wire.ReadStringMap(r); err != nil {
		return t, err
	}
	if t.Mappings, err = wire.ReadBytes(r); err != nil {
		return t, err
	}
	if len(t.Mappings) == 0 {
		t.Mappings = nil
	}
	if t.Aliases, err = wire.ReadStringMap(r); err != nil {
		return t, err
	}
	present, err := wire.ReadBool(r)
	if err != nil {
		return t, err
	}
	if present {
		ds, err := readDataStreamTemplate(r)
		if err != nil {
			return t, err
		}
		t.DataStream = &ds
	}
	return t, nil
}

func writeDataStreamTemplate(w io.Writer, d DataStreamTemplate) error {
	if err := wire.WriteString(w, d.TimestampField); err != nil {
		return err
	}
	if err := wire.WriteBool(w, d.Hidden); err != nil {
		return err
	}
	return writeRetention(w, d.Retention)
}

func readDataStreamTemplate(r wire.ByteReadReader) (DataStreamTemplate, error) {
	var d DataStreamTemplate
	var err error
	if d.TimestampField, err = wire.ReadString(r); err != nil {
		return d, err
	}
	if d.Hidden, err = wire.ReadBool(r); err != nil {
		return d, err
	}
	if d.Retention, err = readRetention(r); err != nil {
		return d, err
	}
	return d, nil
}

// writeRetention encodes the two-level retention option as: a "has opinion"
// flag, then (only if set) an "infinite" flag, then (only if finite) the
// duration. No opinion and infinite retention never share a wire shape.
func writeRetention(w io.Writer, r RetentionOpinion) error {
	if !r.HasOpinion() {
		return wire.WriteBool(w, false)
	}
	if err := wire.WriteBool(w, true); err != nil {
		return err
	}
	if err := wire.WriteBool(w, r.IsInfinite()); err != nil {
		return err
	}
	if r.IsInfinite() {
		return nil
	}
	d, _ := r.Duration()
	return wire.WriteI64(w, d)
}

func readRetention(r wire.ByteReadReader) (RetentionOpinion, error) {
	hasOpinion, err := wire.ReadBool(r)
	if err != nil || !hasOpinion {
		return NoOpinion, err
	}
	infinite, err := wire.ReadBool(r)
	if err != nil {
		return NoOpinion, err
	}
	if infinite {
		return Infinite(), nil
	}
	d, err := wire.ReadI64(r)
	if err != nil {
		return NoOpinion, err
	}
	return FiniteRetention(d), nil
}

func writeOptionalI64(w io.Writer, v *int64) error {
	if v == nil {
		return wire.WriteBool(w, false)
	}
	if err := wire.WriteBool(w, true); err != nil {
		return err
	}
	return wire.WriteI64(w, *v)
}

func readOptionalI64(r wire.ByteReadReader) (*int64, error) {
	present, err := wire.ReadBool(r)
	if err != nil || !present {
		return nil, err
	}
	v, err := wire.ReadI64(r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
