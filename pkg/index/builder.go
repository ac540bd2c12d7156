package index

import "github.com/cuemby/clustermeta/pkg/mapping"

// Builder mutates a copy of an index's metadata, bumping the appropriate
// facet version on each write so the replication layer can cheaply detect
// staleness per facet (settings, aliases, or the record as a whole).
type Builder struct {
	m Metadata
}

// NewBuilder starts a builder from an existing Metadata value.
func NewBuilder(m Metadata) *Builder {
	cp := m
	cp.Settings = cloneStringMap(m.Settings)
	cp.Aliases = m.CloneAliases()
	cp.Customs = cloneBytesMap(m.Customs)
	return &Builder{m: cp}
}

// Settings replaces the settings bag and bumps SettingsVersion.
func (b *Builder) Settings(s map[string]string) *Builder {
	b.m.Settings = cloneStringMap(s)
	b.m.SettingsVersion++
	return b
}

// NumberOfReplicas sets the replica count and bumps SettingsVersion.
func (b *Builder) NumberOfReplicas(n int) *Builder {
	b.m.NumberOfReplicas = n
	b.m.SettingsVersion++
	return b
}

// StateTransition sets open/closed state and bumps SettingsVersion.
func (b *Builder) StateTransition(s State) *Builder {
	b.m.State = s
	b.m.SettingsVersion++
	return b
}

// PutAlias adds or replaces an alias and bumps AliasesVersion.
func (b *Builder) PutAlias(a Alias) *Builder {
	b.m.Aliases[a.Name] = a
	b.m.AliasesVersion++
	return b
}

// RemoveAlias drops an alias, if present, and bumps AliasesVersion.
func (b *Builder) RemoveAlias(name string) *Builder {
	if _, ok := b.m.Aliases[name]; ok {
		delete(b.m.Aliases, name)
		b.m.AliasesVersion++
	}
	return b
}

// MappingHash sets the interned mapping reference for this index directly,
// for callers that already know the hash is present in the owning root's
// pool (e.g. rebuilding from a document or wire read).
func (b *Builder) MappingHash(hash string) *Builder {
	b.m.MappingHash = hash
	return b
}

// Mapping attaches a full mapping body to this index. The hash is set
// immediately so every other reader of this Metadata (Validate, wire
// serialization) sees a consistent reference, but the body itself is only
// staged as a pending mapping: it is not a member of any pool until the
// owning root's Builder.PutIndex runs dedupeMapping against it.
func (b *Builder) Mapping(mm mapping.Metadata) *Builder {
	b.m = b.m.WithPendingMapping(mm)
	return b
}

// PutCustom sets an opaque per-index custom fragment.
func (b *Builder) PutCustom(key string, payload []byte) *Builder {
	b.m.Customs[key] = payload
	return b
}

// IncrementVersion bumps the top-level record version. Called on
// publication of any mutation, per the hidden monotonicity invariant.
func (b *Builder) IncrementVersion() *Builder {
	b.m.Version++
	return b
}

// Build validates and returns the frozen result.
func (b *Builder) Build() (Metadata, error) {
	if err := b.m.Validate(); err != nil {
		return Metadata{}, err
	}
	return b.m, nil
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBytesMap(m map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
