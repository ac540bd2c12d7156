package index

import (
	"io"
	"sort"

	"github.com/cuemby/clustermeta/pkg/mapping"
	"github.com/cuemby/clustermeta/pkg/wire"
)

// WriteTo serializes m. When peerVersion is at least VersionMappingsAsHash,
// only the mapping's sha-256 is written — a lookup key into the pool,
// which the root writes once, independently, ahead of the index list.
// Older peers don't know how to read that pool section at all, so for them
// the full mapping body is written inline here instead, resolved against
// pool (the caller's root-level pool).
func (m Metadata) WriteTo(w io.Writer, peerVersion wire.Version, pool mapping.Pool) error {
	if err := wire.WriteString(w, m.Index.Name); err != nil {
		return err
	}
	if err := wire.WriteString(w, m.Index.UUID); err != nil {
		return err
	}
	if err := wire.WriteI64(w, m.Version); err != nil {
		return err
	}
	if err := wire.WriteI64(w, m.SettingsVersion); err != nil {
		return err
	}
	if err := wire.WriteI64(w, m.AliasesVersion); err != nil {
		return err
	}
	if err := wire.WriteVInt(w, m.NumberOfShards); err != nil {
		return err
	}
	if err := wire.WriteVInt(w, m.NumberOfReplicas); err != nil {
		return err
	}
	if err := wire.WriteBool(w, m.State == Closed); err != nil {
		return err
	}
	if err := wire.WriteU64(w, m.CreationVersion); err != nil {
		return err
	}
	if err := wire.WriteU64(w, m.CompatibilityVersion); err != nil {
		return err
	}
	if err := wire.WriteBool(w, m.Hidden); err != nil {
		return err
	}
	if err := wire.WriteBool(w, m.System); err != nil {
		return err
	}

	keys := sortedKeys(m.Settings)
	if err := wire.WriteStringMap(w, m.Settings, keys); err != nil {
		return err
	}

	if err := wire.WriteVInt(w, len(m.Aliases)); err != nil {
		return err
	}
	for _, name := range sortedAliasNames(m.Aliases) {
		if err := writeAlias(w, m.Aliases[name]); err != nil {
			return err
		}
	}

	// Mapping: hash-only when the peer supports the mappings-as-hash
	// optimization (it reads the pool section separately); otherwise the
	// full body, since a legacy peer has no pool section to resolve
	// against.
	if peerVersion.AtLeast(wire.VersionMappingsAsHash) {
		return wire.WriteOptionalString(w, nilIfEmpty(m.MappingHash))
	}
	var body []byte
	if m.MappingHash != "" {
		if mm, ok := pool.Get(m.MappingHash); ok {
			body = mm.Source()
		}
	}
	return wire.WriteBytes(w, body)
}

// ReadFrom deserializes a Metadata written by WriteTo. On a pre-hash peer,
// the full mapping body was embedded inline; ReadFrom returns it as the
// second result so the caller can intern it into the root's pool. Post-hash
// peers return the zero mapping.Metadata here since the hash alone was
// read — the caller resolves it against the pool section read separately.
func ReadFrom(r wire.ByteReadReader, peerVersion wire.Version) (Metadata, mapping.Metadata, error) {
	var m Metadata
	var embedded mapping.Metadata
	var err error
	if m.Index.Name, err = wire.ReadString(r); err != nil {
		return m, embedded, err
	}
	if m.Index.UUID, err = wire.ReadString(r); err != nil {
		return m, embedded, err
	}
	if m.Version, err = wire.ReadI64(r); err != nil {
		return m, embedded, err
	}
	if m.SettingsVersion, err = wire.ReadI64(r); err != nil {
		return m, embedded, err
	}
	if m.AliasesVersion, err = wire.ReadI64(r); err != nil {
		return m, embedded, err
	}
	if m.NumberOfShards, err = wire.ReadVInt(r); err != nil {
		return m, embedded, err
	}
	if m.NumberOfReplicas, err = wire.ReadVInt(r); err != nil {
		return m, embedded, err
	}
	closed, err := wire.ReadBool(r)
	if err != nil {
		return m, embedded, err
	}
	if closed {
		m.State = Closed
	} else {
		m.State = Open
	}
	if m.CreationVersion, err = wire.ReadU64(r); err != nil {
		return m, embedded, err
	}
	if m.CompatibilityVersion, err = wire.ReadU64(r); err != nil {
		return m, embedded, err
	}
	if m.Hidden, err = wire.ReadBool(r); err != nil {
		return m, embedded, err
	}
	if m.System, err = wire.ReadBool(r); err != nil {
		return m, embedded, err
	}
	if m.Settings, err = wire.ReadStringMap(r); err != nil {
		return m, embedded, err
	}

	n, err := wire.ReadVInt(r)
	if err != nil {
		return m, embedded, err
	}
	m.Aliases = make(map[string]Alias, n)
	for i := 0; i < n; i++ {
		a, err := readAlias(r)
		if err != nil {
			return m, embedded, err
		}
		m.Aliases[a.Name] = a
	}

	if peerVersion.AtLeast(wire.VersionMappingsAsHash) {
		hashPtr, err := wire.ReadOptionalString(r)
		if err != nil {
			return m, embedded, err
		}
		if hashPtr != nil {
			m.MappingHash = *hashPtr
		}
	} else {
		body, err := wire.ReadBytes(r)
		if err != nil {
			return m, embedded, err
		}
		if len(body) > 0 {
			embedded = mapping.New(body)
			m.MappingHash = embedded.Hash()
		}
	}
	return m, embedded, nil
}

func writeAlias(w io.Writer, a Alias) error {
	if err := wire.WriteString(w, a.Name); err != nil {
		return err
	}
	if err := wire.WriteBytes(w, a.Filter); err != nil {
		return err
	}
	if err := wire.WriteOptionalString(w, a.IndexRouting); err != nil {
		return err
	}
	if err := wire.WriteOptionalString(w, a.SearchRouting); err != nil {
		return err
	}
	if err := writeOptionalBool(w, a.WriteIndex); err != nil {
		return err
	}
	return writeOptionalBool(w, a.Hidden)
}

func readAlias(r wire.ByteReadReader) (Alias, error) {
	var a Alias
	var err error
	if a.Name, err = wire.ReadString(r); err != nil {
		return a, err
	}
	if a.Filter, err = wire.ReadBytes(r); err != nil {
		return a, err
	}
	if len(a.Filter) == 0 {
		a.Filter = nil
	}
	if a.IndexRouting, err = wire.ReadOptionalString(r); err != nil {
		return a, err
	}
	if a.SearchRouting, err = wire.ReadOptionalString(r); err != nil {
		return a, err
	}
	if a.WriteIndex, err = readOptionalBool(r); err != nil {
		return a, err
	}
	if a.Hidden, err = readOptionalBool(r); err != nil {
		return a, err
	}
	return a, nil
}

func writeOptionalBool(w io.Writer, b *bool) error {
	if b == nil {
		return wire.WriteBool(w, false)
	}
	if err := wire.WriteBool(w, true); err != nil {
		return err
	}
	return wire.WriteBool(w, *b)
}

func readOptionalBool(r io.Reader) (*bool, error) {
	present, err := wire.ReadBool(r)
	if err != nil || !present {
		return nil, err
	}
	v, err := wire.ReadBool(r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedAliasNames(m map[string]Alias) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
