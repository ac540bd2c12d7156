package metadata

import (
	"sort"
	"time"

	"github.com/cuemby/clustermeta/pkg/aliasvalidator"
	"github.com/cuemby/clustermeta/pkg/datastream"
	"github.com/cuemby/clustermeta/pkg/discovery"
	"github.com/cuemby/clustermeta/pkg/graveyard"
	"github.com/cuemby/clustermeta/pkg/index"
	"github.com/cuemby/clustermeta/pkg/metaerr"
	"github.com/cuemby/clustermeta/pkg/snapshot"
	"github.com/cuemby/clustermeta/pkg/template"
)

// Builder mutates a copy of a Metadata root. It shares the source
// Metadata's immutable mapping pool and its lookup cache; a Builder is
// single-owner and its operations are not thread-safe.
type Builder struct {
	m Metadata

	lookupValid            bool
	checkForUnusedMappings bool
}

// NewBuilder starts a builder from an existing root, reusing its mapping
// pool and, if no name-visible facet has changed by the time Build is
// called, its memoized indices lookup.
func NewBuilder(m Metadata) *Builder {
	cp := m
	cp.PersistentSettings = cloneStringMap(m.PersistentSettings)
	cp.TransientSettings = cloneStringMap(m.TransientSettings)
	cp.HashesOfConsistentSettings = cloneStringMap(m.HashesOfConsistentSettings)
	cp.Indices = cloneIndices(m.Indices)
	cp.Templates = cloneTemplates(m.Templates)
	cp.ComponentTemplates = cloneComponentTemplates(m.ComponentTemplates)
	cp.DataStreams = cloneDataStreams(m.DataStreams)
	cp.DataStreamAliases = cloneDataStreamAliases(m.DataStreamAliases)
	cp.SnapshotsInProgress = append([]snapshot.Entry{}, m.SnapshotsInProgress...)
	cp.Customs = cloneCustoms(m.Customs)
	return &Builder{m: cp, lookupValid: true}
}

// NewEmptyBuilder starts a builder from a fresh, empty root.
func NewEmptyBuilder() *Builder {
	return NewBuilder(Empty())
}

func (b *Builder) invalidateLookup() { b.lookupValid = false }

// ClusterUUID sets the opaque cluster identity.
func (b *Builder) ClusterUUID(id string) *Builder { b.m.ClusterUUID = id; return b }

// ClusterUUIDCommitted sets the committed bit.
func (b *Builder) ClusterUUIDCommitted(v bool) *Builder { b.m.ClusterUUIDCommitted = v; return b }

// GenerateClusterUUIDIfNeeded assigns uuid only if no cluster UUID is set yet.
func (b *Builder) GenerateClusterUUIDIfNeeded(uuid string) *Builder {
	if b.m.ClusterUUID == "" {
		b.m.ClusterUUID = uuid
	}
	return b
}

// CoordinationMetadata sets the opaque coordination blob.
func (b *Builder) CoordinationMetadata(payload []byte) *Builder {
	b.m.CoordinationMetadata = payload
	return b
}

// PersistentSettings replaces the persistent settings bag.
func (b *Builder) PersistentSettings(s map[string]string) *Builder {
	b.m.PersistentSettings = cloneStringMap(s)
	return b
}

// TransientSettings replaces the transient settings bag.
func (b *Builder) TransientSettings(s map[string]string) *Builder {
	b.m.TransientSettings = cloneStringMap(s)
	return b
}

// HashesOfConsistentSettings replaces the consistent-setting hash map.
func (b *Builder) HashesOfConsistentSettings(h map[string]string) *Builder {
	b.m.HashesOfConsistentSettings = cloneStringMap(h)
	return b
}

// IncrementVersion bumps the top-level version, making strict monotonicity
// trivial for the caller to enforce.
func (b *Builder) IncrementVersion() *Builder {
	b.m.Version++
	return b
}

// Version sets the top-level version directly, used when reconstructing a
// root from a stored document rather than mutating a live one.
func (b *Builder) Version(v uint64) *Builder {
	b.m.Version = v
	return b
}

// PutIndex implements the per-index put algorithm: dedupeMapping against
// the pool, optionally bump its top-level version, store it keyed by name,
// and invalidate the indices lookup if any name-visible facet changed.
//
// dedupeMapping: if idx carries a pending full mapping body (set via
// index.Builder.Mapping), its sha-256 is looked up in the pool — a hit
// rebuilds idx to point at the pool's existing instance; a miss inserts
// the incoming body into the pool. An idx with only a resolved MappingHash
// and no pending body is assumed already live in the pool (e.g. read back
// from the wire or a document) and is left untouched.
func (b *Builder) PutIndex(idx index.Metadata, incrementVersion bool) *Builder {
	prev, existed := b.m.Indices[idx.Index.Name]

	if pending, ok := idx.PendingMapping(); ok {
		resolved, pool, _ := b.m.MappingPool.Dedupe(pending)
		b.m.MappingPool = pool
		idx = idx.ResolvePendingMapping(resolved.Hash())
	}

	if incrementVersion {
		idx.Version++
	}

	b.m.Indices[idx.Index.Name] = idx

	if existed && prev.MappingHash != idx.MappingHash {
		b.checkForUnusedMappings = true
	}
	if !existed || prev.Hidden != idx.Hidden || prev.System != idx.System || prev.State != idx.State || !aliasSetEqual(prev.Aliases, idx.Aliases) {
		b.invalidateLookup()
	}
	return b
}

// RemoveIndex deletes an index by name, if present.
func (b *Builder) RemoveIndex(name string) *Builder {
	if _, ok := b.m.Indices[name]; ok {
		delete(b.m.Indices, name)
		b.checkForUnusedMappings = true
		b.invalidateLookup()
	}
	return b
}

// ArchiveIndex tombstones a destroyed index's (name, uuid) pair into the
// index-graveyard custom, evicting tombstones older than maxAge. Call this
// instead of (or in addition to) RemoveIndex when the deletion should be
// remembered long enough to reject a stale re-creation under the same name.
// maxAge <= 0 disables eviction.
func (b *Builder) ArchiveIndex(name, uuid string, now time.Time, maxAge time.Duration) *Builder {
	g, err := graveyard.Unmarshal(b.m.Customs[graveyard.CustomName].Payload)
	if err != nil {
		g = graveyard.Empty()
	}
	g = g.Add(name, uuid, now, maxAge)
	payload, err := graveyard.Marshal(g)
	if err != nil {
		return b
	}
	b.m.Customs[graveyard.CustomName] = Custom{
		Name:     graveyard.CustomName,
		Payload:  payload,
		Contexts: ContextGateway,
	}
	return b
}

// PutNode records n in the known-nodes roster, keyed by its ephemeral id
// per discovery.Node.Equal: a restarted node is a distinct entry, not an
// overwrite of its prior self.
func (b *Builder) PutNode(n discovery.Node) *Builder {
	roster, err := discovery.UnmarshalRoster(b.m.Customs[knownNodesCustomName].Payload)
	if err != nil {
		roster = discovery.EmptyRoster()
	}
	roster = roster.Put(n)
	payload, err := discovery.MarshalRoster(roster)
	if err != nil {
		return b
	}
	b.m.Customs[knownNodesCustomName] = Custom{
		Name:     knownNodesCustomName,
		Payload:  payload,
		Contexts: ContextGateway | ContextAPI,
	}
	return b
}

// RemoveNode drops ephemeralID from the known-nodes roster, if present.
func (b *Builder) RemoveNode(ephemeralID string) *Builder {
	roster, err := discovery.UnmarshalRoster(b.m.Customs[knownNodesCustomName].Payload)
	if err != nil || len(roster.Nodes) == 0 {
		return b
	}
	roster = roster.Remove(ephemeralID)
	payload, err := discovery.MarshalRoster(roster)
	if err != nil {
		return b
	}
	b.m.Customs[knownNodesCustomName] = Custom{
		Name:     knownNodesCustomName,
		Payload:  payload,
		Contexts: ContextGateway | ContextAPI,
	}
	return b
}

// PutDataStream stores a data stream keyed by name.
func (b *Builder) PutDataStream(ds datastream.DataStream) *Builder {
	b.m.DataStreams[ds.Name] = ds
	b.invalidateLookup()
	return b
}

// RemoveDataStream deletes a data stream by name, if present.
func (b *Builder) RemoveDataStream(name string) *Builder {
	if _, ok := b.m.DataStreams[name]; ok {
		delete(b.m.DataStreams, name)
		b.invalidateLookup()
	}
	return b
}

// PutDataStreamAlias stores a data-stream alias keyed by name.
func (b *Builder) PutDataStreamAlias(alias datastream.Alias) *Builder {
	b.m.DataStreamAliases[alias.Name] = alias
	b.invalidateLookup()
	return b
}

// PutTemplate stores a composable index template keyed by name.
func (b *Builder) PutTemplate(t template.ComposableIndexTemplate) *Builder {
	b.m.Templates[t.Name] = t
	return b
}

// PutComponentTemplate stores a component template keyed by name.
func (b *Builder) PutComponentTemplate(name string, c template.ComponentTemplate) *Builder {
	b.m.ComponentTemplates[name] = c
	return b
}

// PutCustom stores a named custom fragment.
func (b *Builder) PutCustom(c Custom) *Builder {
	b.m.Customs[c.Name] = c
	return b
}

// RemoveCustomIf removes every custom fragment matching pred.
func (b *Builder) RemoveCustomIf(pred func(Custom) bool) *Builder {
	for name, c := range b.m.Customs {
		if pred(c) {
			delete(b.m.Customs, name)
		}
	}
	return b
}

// PutSnapshotEntry appends or replaces (by repository+snapshot identity) an
// in-progress snapshot entry, preserving the relative order of every other
// entry.
func (b *Builder) PutSnapshotEntry(e snapshot.Entry) *Builder {
	for i, existing := range b.m.SnapshotsInProgress {
		if existing.Snapshot == e.Snapshot {
			b.m.SnapshotsInProgress[i] = e
			return b
		}
	}
	b.m.SnapshotsInProgress = append(b.m.SnapshotsInProgress, e)
	return b
}

// RemoveSnapshotEntry drops the entry with the given identity, preserving
// the relative order of the remaining entries.
func (b *Builder) RemoveSnapshotEntry(id snapshot.Identity) *Builder {
	out := make([]snapshot.Entry, 0, len(b.m.SnapshotsInProgress))
	for _, e := range b.m.SnapshotsInProgress {
		if e.Snapshot != id {
			out = append(out, e)
		}
	}
	b.m.SnapshotsInProgress = out
	return b
}

// UpdateSettings merges s into the settings of every named index, bumping
// each one's settings version.
func (b *Builder) UpdateSettings(s map[string]string, indices ...string) *Builder {
	for _, name := range indices {
		idx, ok := b.m.Indices[name]
		if !ok {
			continue
		}
		next := index.NewBuilder(idx).Settings(mergeStringMaps(idx.Settings, s))
		built, err := next.Build()
		if err == nil {
			b.m.Indices[name] = built
		}
	}
	return b
}

// UpdateNumberOfReplicas sets the replica count on every named index.
func (b *Builder) UpdateNumberOfReplicas(n int, indices ...string) *Builder {
	for _, name := range indices {
		idx, ok := b.m.Indices[name]
		if !ok {
			continue
		}
		built, err := index.NewBuilder(idx).NumberOfReplicas(n).Build()
		if err == nil {
			b.m.Indices[name] = built
		}
	}
	return b
}

// Build runs the always-run build algorithm: derive the flat name arrays
// and shard totals, validate the multi-index alias invariants, recompute or
// reuse the indices lookup, purge orphaned mappings, and freeze the result.
func (b *Builder) Build() (Metadata, error) {
	var acc metaerr.Accumulator

	allIndices := make([]string, 0, len(b.m.Indices))
	visibleIndices := make([]string, 0, len(b.m.Indices))
	allOpen := make([]string, 0, len(b.m.Indices))
	visibleOpen := make([]string, 0, len(b.m.Indices))
	allClosed := make([]string, 0, len(b.m.Indices))
	visibleClosed := make([]string, 0, len(b.m.Indices))

	var totalShards, totalOpenShards int
	var oldestCompat uint64
	first := true

	for name, idx := range b.m.Indices {
		allIndices = append(allIndices, name)
		if !idx.Hidden {
			visibleIndices = append(visibleIndices, name)
		}
		totalShards += idx.NumberOfShards * (1 + idx.NumberOfReplicas)
		if idx.State == index.Open {
			allOpen = append(allOpen, name)
			totalOpenShards += idx.NumberOfShards * (1 + idx.NumberOfReplicas)
			if !idx.Hidden {
				visibleOpen = append(visibleOpen, name)
			}
		} else {
			allClosed = append(allClosed, name)
			if !idx.Hidden {
				visibleClosed = append(visibleClosed, name)
			}
		}
		if first || idx.CompatibilityVersion < oldestCompat {
			oldestCompat = idx.CompatibilityVersion
			first = false
		}
	}
	sort.Strings(allIndices)
	sort.Strings(visibleIndices)
	sort.Strings(allOpen)
	sort.Strings(visibleOpen)
	sort.Strings(allClosed)
	sort.Strings(visibleClosed)

	b.m.AllIndices = allIndices
	b.m.VisibleIndices = visibleIndices
	b.m.AllOpenIndices = allOpen
	b.m.VisibleOpenIndices = visibleOpen
	b.m.AllClosedIndices = allClosed
	b.m.VisibleClosedIndices = visibleClosed
	b.m.TotalNumberOfShards = totalShards
	b.m.TotalOpenIndexShards = totalOpenShards
	b.m.OldestCompatibilityVersion = oldestCompat

	validateAliasNames(b.m, &acc)
	validateMultiIndexAliases(b.m, &acc)
	validateDataStreamBackingIndices(b.m, &acc)
	validateSnapshotOrdering(b.m, &acc)

	if !b.lookupValid || b.m.lookupCache == nil {
		detectNameCollisions(b.m, &acc)
		b.m.lookupCache = &lookupCache{}
	}

	if acc.HasErrors() {
		return Metadata{}, acc.ErrorOrNil()
	}

	if b.checkForUnusedMappings {
		live := map[string]struct{}{}
		for _, idx := range b.m.Indices {
			if idx.MappingHash != "" {
				live[idx.MappingHash] = struct{}{}
			}
		}
		b.m.MappingPool = b.m.MappingPool.Purge(live)
	}

	return b.m, nil
}

// validateAliasNames runs the stateless per-alias checks (name format, index
// routing, and the alias-cannot-shadow-a-concrete-index rule) over every
// alias attached to every index. detectNameCollisions covers the converse
// case (an index named after an existing alias); this pass covers the
// alias's own shape and its collision with an index of the same name.
func validateAliasNames(m Metadata, acc *metaerr.Accumulator) {
	lookup := func(name string) bool {
		_, ok := m.Indices[name]
		return ok
	}
	for indexName, idx := range m.Indices {
		for aliasName, alias := range idx.Aliases {
			if err := aliasvalidator.ValidateAlias(aliasName, indexName, alias.IndexRouting, lookup); err != nil {
				acc.Add(err)
			}
		}
	}
}

// validateMultiIndexAliases enforces invariant 2 and part of invariant 3: at
// most one write-index per multi-index alias, and a uniform index Hidden
// flag across its members. The System flag is not compared.
func validateMultiIndexAliases(m Metadata, acc *metaerr.Accumulator) {
	members := map[string][]string{}
	for indexName, idx := range m.Indices {
		for aliasName := range idx.Aliases {
			members[aliasName] = append(members[aliasName], indexName)
		}
	}
	for aliasName, indices := range members {
		if len(indices) < 2 {
			continue
		}
		writeCount := 0
		hiddenSeen := map[bool]bool{}
		for _, indexName := range indices {
			idx := m.Indices[indexName]
			a := idx.Aliases[aliasName]
			if a.WriteIndex != nil && *a.WriteIndex {
				writeCount++
			}
			hiddenSeen[idx.Hidden] = true
		}
		if writeCount > 1 {
			acc.Addf("alias [%s] has more than one write index", aliasName)
		}
		if len(hiddenSeen) > 1 {
			acc.Addf("alias [%s] has inconsistent is_hidden settings across its member indices", aliasName)
		}
	}
}

// validateDataStreamBackingIndices enforces invariant 5: every backing
// index name a data stream lists must exist in Indices, and no backing
// index may also be the target of an index alias.
func validateDataStreamBackingIndices(m Metadata, acc *metaerr.Accumulator) {
	backing := map[string]string{}
	for streamName, ds := range m.DataStreams {
		for _, b := range ds.BackingIndices {
			if _, ok := m.Indices[b.Name]; !ok {
				acc.Addf("data stream [%s] references backing index [%s] which does not exist", streamName, b.Name)
			}
			backing[b.Name] = streamName
		}
	}
	for indexName, idx := range m.Indices {
		if _, isBacking := backing[indexName]; isBacking && len(idx.Aliases) > 0 {
			acc.Addf("index [%s] is a backing index of a data stream and cannot also be the target of an index alias", indexName)
		}
	}
}

// validateSnapshotOrdering enforces the cross-entry ordering part of
// invariant 7 via the snapshot package's repository ordering check. The
// shard states of completed entries are not checked here.
func validateSnapshotOrdering(m Metadata, acc *metaerr.Accumulator) {
	if err := snapshot.ValidateRepositoryOrdering(m.SnapshotsInProgress); err != nil {
		acc.Add(err)
	}
}

// detectNameCollisions enforces invariant 1: every alias, data-stream, and
// index name is unique across all three sets.
func detectNameCollisions(m Metadata, acc *metaerr.Accumulator) {
	owner := map[string]string{}
	for name := range m.Indices {
		if existing, ok := owner[name]; ok {
			acc.Addf("name [%s] is used by both %s and index", name, existing)
		} else {
			owner[name] = "index"
		}
	}
	for name := range m.DataStreams {
		if existing, ok := owner[name]; ok {
			acc.Addf("data stream [%s] conflicts with %s", name, existing)
		} else {
			owner[name] = "data stream"
		}
	}
	aliasNames := map[string]bool{}
	for _, idx := range m.Indices {
		for aliasName := range idx.Aliases {
			aliasNames[aliasName] = true
		}
	}
	for name := range aliasNames {
		if existing, ok := owner[name]; ok {
			acc.Addf("alias [%s] conflicts with %s", name, existing)
		} else {
			owner[name] = "alias"
		}
	}
}

func aliasSetEqual(a, b map[string]index.Alias) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || !v.Equal(bv) {
			return false
		}
	}
	return true
}

func mergeStringMaps(base, overlay map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneIndices(m map[string]index.Metadata) map[string]index.Metadata {
	out := make(map[string]index.Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneTemplates(m map[string]template.ComposableIndexTemplate) map[string]template.ComposableIndexTemplate {
	out := make(map[string]template.ComposableIndexTemplate, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneComponentTemplates(m map[string]template.ComponentTemplate) map[string]template.ComponentTemplate {
	out := make(map[string]template.ComponentTemplate, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneDataStreams(m map[string]datastream.DataStream) map[string]datastream.DataStream {
	out := make(map[string]datastream.DataStream, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneDataStreamAliases(m map[string]datastream.Alias) map[string]datastream.Alias {
	out := make(map[string]datastream.Alias, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneCustoms(m map[string]Custom) map[string]Custom {
	out := make(map[string]Custom, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
