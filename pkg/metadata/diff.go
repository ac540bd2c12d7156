package metadata

import (
	"github.com/cuemby/clustermeta/pkg/datastream"
	"github.com/cuemby/clustermeta/pkg/diffable"
	"github.com/cuemby/clustermeta/pkg/index"
	"github.com/cuemby/clustermeta/pkg/snapshot"
	"github.com/cuemby/clustermeta/pkg/template"
)

// Diff is the delta between two Metadata roots: a header of scalar/opaque
// field replacements plus a structural MapDiff per keyed collection. The
// consensus layer computes this against the previously committed value and
// ships it to followers, who Apply it to the previous value. Component
// templates, data-stream aliases and the mapping pool are not part of the
// diff: Apply carries them over from the previous value unchanged.
type Diff struct {
	Version              uint64
	VersionChanged       bool
	ClusterUUID          string
	ClusterUUIDChanged   bool
	ClusterUUIDCommitted bool
	CoordinationMetadata []byte
	CoordinationChanged  bool
	PersistentSettings   diffable.SimpleDiff[map[string]string]
	TransientSettings    diffable.SimpleDiff[map[string]string]
	HashesOfConsistentSettings diffable.MapDiff[string, string]

	Indices   diffable.MapDiff[string, index.Metadata]
	Templates diffable.MapDiff[string, template.ComposableIndexTemplate]
	DataStreams diffable.MapDiff[string, datastream.DataStream]
	Customs   diffable.MapDiff[string, Custom]

	SnapshotsInProgress diffable.SimpleDiff[[]snapshot.Entry]
}

// DiffAgainst computes the delta from prev to curr.
func DiffAgainst(prev, curr Metadata) Diff {
	return Diff{
		Version:              curr.Version,
		VersionChanged:       curr.Version != prev.Version,
		ClusterUUID:          curr.ClusterUUID,
		ClusterUUIDChanged:   curr.ClusterUUID != prev.ClusterUUID,
		ClusterUUIDCommitted: curr.ClusterUUIDCommitted,
		CoordinationMetadata: curr.CoordinationMetadata,
		CoordinationChanged:  string(curr.CoordinationMetadata) != string(prev.CoordinationMetadata),
		PersistentSettings:   diffable.DiffSimple(prev.PersistentSettings, curr.PersistentSettings, stringMapEqual),
		TransientSettings:    diffable.DiffSimple(prev.TransientSettings, curr.TransientSettings, stringMapEqual),
		HashesOfConsistentSettings: diffable.DiffMap(prev.HashesOfConsistentSettings, curr.HashesOfConsistentSettings,
			diffable.StringKeyLess, func(a, b string) bool { return a == b }, nil),

		Indices: diffable.DiffMap(prev.Indices, curr.Indices, diffable.StringKeyLess, index.Equal,
			func(p, c index.Metadata) diffable.Diff[index.Metadata] { return nil }),
		Templates: diffable.DiffMap(prev.Templates, curr.Templates, diffable.StringKeyLess, template.EqualComposable,
			func(p, c template.ComposableIndexTemplate) diffable.Diff[template.ComposableIndexTemplate] { return nil }),
		DataStreams: diffable.DiffMap(prev.DataStreams, curr.DataStreams, diffable.StringKeyLess, datastream.Equal,
			func(p, c datastream.DataStream) diffable.Diff[datastream.DataStream] { return nil }),
		Customs: diffable.DiffMap(prev.Customs, curr.Customs, diffable.StringKeyLess, customEqual, nil),

		SnapshotsInProgress: diffable.DiffSimple(prev.SnapshotsInProgress, curr.SnapshotsInProgress, snapshotsEqual),
	}
}

// Apply reconstructs the successor Metadata from prev and this diff. The
// result still needs its derived fields and indices lookup recomputed via
// Builder.Build before it is usable as a live root.
func (d Diff) Apply(prev Metadata) Metadata {
	next := prev
	if d.VersionChanged {
		next.Version = d.Version
	}
	if d.ClusterUUIDChanged {
		next.ClusterUUID = d.ClusterUUID
	}
	next.ClusterUUIDCommitted = d.ClusterUUIDCommitted
	if d.CoordinationChanged {
		next.CoordinationMetadata = d.CoordinationMetadata
	}
	next.PersistentSettings = d.PersistentSettings.Apply(prev.PersistentSettings)
	next.TransientSettings = d.TransientSettings.Apply(prev.TransientSettings)
	next.HashesOfConsistentSettings = d.HashesOfConsistentSettings.Apply(prev.HashesOfConsistentSettings)
	next.Indices = d.Indices.Apply(prev.Indices)
	next.Templates = d.Templates.Apply(prev.Templates)
	next.DataStreams = d.DataStreams.Apply(prev.DataStreams)
	next.Customs = d.Customs.Apply(prev.Customs)
	next.SnapshotsInProgress = d.SnapshotsInProgress.Apply(prev.SnapshotsInProgress)
	next.lookupCache = nil
	return next
}

// IsNoOp reports whether this delta represents no change at all.
func (d Diff) IsNoOp() bool {
	return !d.VersionChanged && !d.ClusterUUIDChanged && !d.CoordinationChanged &&
		d.PersistentSettings.IsNoOp() && d.TransientSettings.IsNoOp() &&
		d.HashesOfConsistentSettings.IsNoOp() && d.Indices.IsNoOp() &&
		d.Templates.IsNoOp() && d.DataStreams.IsNoOp() && d.Customs.IsNoOp() &&
		d.SnapshotsInProgress.IsNoOp()
}

func stringMapEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func customEqual(a, b Custom) bool {
	return a.Name == b.Name && string(a.Payload) == string(b.Payload) &&
		a.Contexts == b.Contexts && a.MinimumVersion == b.MinimumVersion
}

func snapshotsEqual(a, b []snapshot.Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !snapshot.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
