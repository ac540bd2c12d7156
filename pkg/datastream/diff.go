package datastream

import "github.com/cuemby/clustermeta/pkg/diffable"

// Diff is the delta between two DataStream values for the same name.
type Diff = diffable.SimpleDiff[DataStream]

// DiffAgainst computes the delta from prev to curr.
func DiffAgainst(prev, curr DataStream) Diff {
	return diffable.DiffSimple(prev, curr, Equal)
}

// Equal compares two data streams field by field.
func Equal(a, b DataStream) bool {
	if a.Name != b.Name || a.Generation != b.Generation {
		return false
	}
	if a.Hidden != b.Hidden || a.Replicated != b.Replicated || a.System != b.System || a.AllowCustomRouting != b.AllowCustomRouting {
		return false
	}
	if len(a.BackingIndices) != len(b.BackingIndices) {
		return false
	}
	for i := range a.BackingIndices {
		if a.BackingIndices[i] != b.BackingIndices[i] {
			return false
		}
	}
	if len(a.Metadata) != len(b.Metadata) {
		return false
	}
	for k, v := range a.Metadata {
		if b.Metadata[k] != v {
			return false
		}
	}
	return true
}
