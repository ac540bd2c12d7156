// Package metadata implements the root aggregate: the immutable, versioned
// catalog every cluster node agrees on. It composes index, template,
// datastream, snapshot, and discovery records with cluster-wide settings and
// arbitrary named custom fragments, enforces the cross-entity invariants at
// build time, and memoizes the derived name arrays and indices lookup.
package metadata

import (
	"github.com/cuemby/clustermeta/pkg/datastream"
	"github.com/cuemby/clustermeta/pkg/discovery"
	"github.com/cuemby/clustermeta/pkg/graveyard"
	"github.com/cuemby/clustermeta/pkg/index"
	"github.com/cuemby/clustermeta/pkg/mapping"
	"github.com/cuemby/clustermeta/pkg/snapshot"
	"github.com/cuemby/clustermeta/pkg/template"
)

// CustomContext is a bitmask of the serialization contexts a Custom
// fragment should be emitted into.
type CustomContext uint8

const (
	ContextAPI      CustomContext = 1 << iota // caller-facing cluster state reads
	ContextGateway                            // on-disk persistence snapshot
	ContextSnapshot                           // a snapshot's global-state file
)

// Has reports whether ctx includes c.
func (c CustomContext) Has(ctx CustomContext) bool { return c&ctx != 0 }

// Custom is an opaque, named fragment attached to the root, gated by a
// minimum wire version and the contexts it should be emitted into.
type Custom struct {
	Name           string
	Payload        []byte
	Contexts       CustomContext
	MinimumVersion uint32
}

// Metadata is the immutable root: every field reachable from a value handed
// to a caller is frozen. Producing a changed Metadata always goes through a
// Builder.
type Metadata struct {
	ClusterUUID          string
	ClusterUUIDCommitted bool
	Version              uint64
	CoordinationMetadata []byte

	PersistentSettings         map[string]string
	TransientSettings          map[string]string
	HashesOfConsistentSettings map[string]string

	Indices           map[string]index.Metadata
	Templates         map[string]template.ComposableIndexTemplate
	ComponentTemplates map[string]template.ComponentTemplate
	DataStreams       map[string]datastream.DataStream
	DataStreamAliases map[string]datastream.Alias
	SnapshotsInProgress []snapshot.Entry
	Customs           map[string]Custom
	MappingPool       mapping.Pool

	// Derived, memoized at build time.
	AllIndices           []string
	VisibleIndices       []string
	AllOpenIndices       []string
	VisibleOpenIndices   []string
	AllClosedIndices     []string
	VisibleClosedIndices []string
	TotalNumberOfShards     int
	TotalOpenIndexShards    int
	OldestCompatibilityVersion uint64

	lookupCache *lookupCache
}

// Empty returns a freshly booted, empty root.
func Empty() Metadata {
	return Metadata{
		PersistentSettings:         map[string]string{},
		TransientSettings:          map[string]string{},
		HashesOfConsistentSettings: map[string]string{},
		Indices:                    map[string]index.Metadata{},
		Templates:                  map[string]template.ComposableIndexTemplate{},
		ComponentTemplates:         map[string]template.ComponentTemplate{},
		DataStreams:                map[string]datastream.DataStream{},
		DataStreamAliases:          map[string]datastream.Alias{},
		Customs:                    map[string]Custom{},
		MappingPool:                mapping.NewPool(),
	}
}

// Graveyard decodes the index-graveyard custom, if present. A root with no
// destroyed indices yet decodes to an empty graveyard.
func (md Metadata) Graveyard() (graveyard.Graveyard, error) {
	return graveyard.Unmarshal(md.Customs[graveyard.CustomName].Payload)
}

// knownNodesCustomName is the Custom.Name the discovery roster is stored
// under. Membership discovery itself happens outside this package; what's
// agreed upon once a node is discovered travels with the rest of the root.
const knownNodesCustomName = "known-nodes"

// KnownNodes decodes the known-nodes custom, if present. A root that has
// not yet recorded any peer decodes to an empty roster.
func (md Metadata) KnownNodes() (discovery.Roster, error) {
	return discovery.UnmarshalRoster(md.Customs[knownNodesCustomName].Payload)
}
