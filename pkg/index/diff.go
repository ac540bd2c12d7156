package index

import "github.com/cuemby/clustermeta/pkg/diffable"

// Diff is the delta between two Metadata values for the same index name:
// for now a full-replacement SimpleDiff, since an index record is small
// enough that a structural per-field delta isn't worth the complexity (the
// aggregate MapDiff at the Metadata root already avoids resending unchanged
// indices).
type Diff = diffable.SimpleDiff[Metadata]

// DiffAgainst computes the delta from prev to curr.
func DiffAgainst(prev, curr Metadata) Diff {
	return diffable.DiffSimple(prev, curr, Equal)
}

// Equal compares two index records field by field (aliases by content, not
// map identity).
func Equal(a, b Metadata) bool {
	if a.Index != b.Index {
		return false
	}
	if a.NumberOfShards != b.NumberOfShards || a.NumberOfReplicas != b.NumberOfReplicas {
		return false
	}
	if a.State != b.State || a.Hidden != b.Hidden || a.System != b.System {
		return false
	}
	if a.Version != b.Version || a.SettingsVersion != b.SettingsVersion || a.AliasesVersion != b.AliasesVersion {
		return false
	}
	if a.MappingHash != b.MappingHash {
		return false
	}
	if a.CreationVersion != b.CreationVersion || a.CompatibilityVersion != b.CompatibilityVersion {
		return false
	}
	if len(a.Customs) != len(b.Customs) {
		return false
	}
	for k, v := range a.Customs {
		if bv, ok := b.Customs[k]; !ok || string(bv) != string(v) {
			return false
		}
	}
	if len(a.Settings) != len(b.Settings) {
		return false
	}
	for k, v := range a.Settings {
		if b.Settings[k] != v {
			return false
		}
	}
	if len(a.Aliases) != len(b.Aliases) {
		return false
	}
	for k, v := range a.Aliases {
		bv, ok := b.Aliases[k]
		if !ok || !v.Equal(bv) {
			return false
		}
	}
	return true
}
