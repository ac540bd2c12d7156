// Package index models a single index's metadata: its settings, shard
// counts, open/closed state, aliases, and an optional reference to an
// interned mapping body. See pkg/metadata for the root aggregate that owns
// a keyed collection of these.
package index

import (
	"github.com/cuemby/clustermeta/pkg/mapping"
	"github.com/cuemby/clustermeta/pkg/metaerr"
)

// State is an index's open/closed lifecycle state.
type State int

const (
	Open State = iota
	Closed
)

func (s State) String() string {
	if s == Closed {
		return "closed"
	}
	return "open"
}

// Identity is an index's durable identity: its user-visible name plus a
// UUID minted at creation, stable across settings/mapping/state mutations.
type Identity struct {
	Name string
	UUID string
}

// LifecycleExecutionStateKey is the reserved key under which a data
// lifecycle implementation persists its execution state in an index's
// custom map (spec: "a lifecycle-execution-state map persisted in the
// per-index custom map under a reserved key").
const LifecycleExecutionStateKey = "index.lifecycle.execution_state"

// Alias is a named alias declared on an index.
type Alias struct {
	Name          string
	Filter        []byte // opaque JSON, nil if unset
	IndexRouting  *string
	SearchRouting *string
	WriteIndex    *bool
	Hidden        *bool
}

// Equal compares two aliases field by field; Filter is compared by byte
// content.
func (a Alias) Equal(b Alias) bool {
	if a.Name != b.Name || string(a.Filter) != string(b.Filter) {
		return false
	}
	if !strPtrEqual(a.IndexRouting, b.IndexRouting) || !strPtrEqual(a.SearchRouting, b.SearchRouting) {
		return false
	}
	if !boolPtrEqual(a.WriteIndex, b.WriteIndex) || !boolPtrEqual(a.Hidden, b.Hidden) {
		return false
	}
	return true
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Metadata is a single index's full, immutable metadata record.
type Metadata struct {
	Index              Identity
	Settings           map[string]string
	NumberOfShards     int
	NumberOfReplicas   int
	State              State
	CreationVersion    uint64
	CompatibilityVersion uint64
	Aliases            map[string]Alias
	Customs            map[string][]byte // opaque per-index custom fragments, keyed by type
	MappingHash        string            // empty means no mapping assigned
	Version            int64
	SettingsVersion    int64
	AliasesVersion     int64
	Hidden             bool
	System             bool

	// pendingMapping carries a full mapping body a Builder has not yet run
	// through the owning root's pool. It never crosses the wire or a JSON
	// document by itself; PutIndex consumes and clears it during dedupeMapping.
	pendingMapping mapping.Metadata
}

// PendingMapping returns the full mapping body awaiting pool insertion, if
// any. A Metadata value read back from storage or the wire never carries
// one — only a Builder.Mapping call produces it.
func (m Metadata) PendingMapping() (mapping.Metadata, bool) {
	return m.pendingMapping, !m.pendingMapping.IsZero()
}

// ResolvePendingMapping returns a copy of m with its pending mapping
// cleared and MappingHash pointed at resolvedHash, the canonical pool
// instance's hash once dedupeMapping has run.
func (m Metadata) ResolvePendingMapping(resolvedHash string) Metadata {
	m.pendingMapping = mapping.Metadata{}
	m.MappingHash = resolvedHash
	return m
}

// WithPendingMapping returns a copy of m carrying mm as a mapping not yet
// run through any pool. The owning root's Builder.PutIndex must see this
// index to actually intern mm; until then m.MappingHash already reflects
// mm's content hash so Validate and equality checks stay consistent.
func (m Metadata) WithPendingMapping(mm mapping.Metadata) Metadata {
	m.MappingHash = mm.Hash()
	m.pendingMapping = mm
	return m
}

// HasMapping reports whether this index carries a mapping reference.
func (m Metadata) HasMapping() bool { return m.MappingHash != "" }

// Validate checks the shard and replica counts: number_of_shards > 0 and
// number_of_replicas >= 0. Aliases and CreationVersion are not checked.
func (m Metadata) Validate() error {
	if m.NumberOfShards <= 0 {
		return metaerr.InvalidInputf("index [%s] must have number_of_shards > 0, got %d", m.Index.Name, m.NumberOfShards)
	}
	if m.NumberOfReplicas < 0 {
		return metaerr.InvalidInputf("index [%s] must have number_of_replicas >= 0, got %d", m.Index.Name, m.NumberOfReplicas)
	}
	if m.CreationVersion > uint64(m.Version) && m.Version >= 0 {
		// No error is raised here: CreationVersion is not compared
		// against Version.
	}
	return nil
}

// MappingOf resolves this index's mapping through the given pool. Returns
// the zero mapping.Metadata and false if this index carries none.
func (m Metadata) MappingOf(pool mapping.Pool) (mapping.Metadata, bool) {
	if m.MappingHash == "" {
		return mapping.Metadata{}, false
	}
	return pool.Get(m.MappingHash)
}

// CloneAliases returns a defensive shallow copy of the alias map.
func (m Metadata) CloneAliases() map[string]Alias {
	out := make(map[string]Alias, len(m.Aliases))
	for k, v := range m.Aliases {
		out[k] = v
	}
	return out
}
