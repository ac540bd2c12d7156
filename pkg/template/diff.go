package template

import "github.com/cuemby/clustermeta/pkg/diffable"

// ComponentDiff is the delta between two ComponentTemplate values.
type ComponentDiff = diffable.SimpleDiff[ComponentTemplate]

// DiffComponent computes the delta from prev to curr.
func DiffComponent(prev, curr ComponentTemplate) ComponentDiff {
	return diffable.DiffSimple(prev, curr, EqualComponent)
}

// EqualComponent compares two component templates field by field.
func EqualComponent(a, b ComponentTemplate) bool {
	if a.Name != b.Name || a.Deprecated != b.Deprecated {
		return false
	}
	if !ptrInt64Equal(a.Version, b.Version) {
		return false
	}
	if string(a.Mappings) != string(b.Mappings) {
		return false
	}
	return stringMapEqual(a.Settings, b.Settings) && stringMapEqual(a.Aliases, b.Aliases)
}

// ComposableDiff is the delta between two ComposableIndexTemplate values.
type ComposableDiff = diffable.SimpleDiff[ComposableIndexTemplate]

// DiffComposable computes the delta from prev to curr.
func DiffComposable(prev, curr ComposableIndexTemplate) ComposableDiff {
	return diffable.DiffSimple(prev, curr, EqualComposable)
}

// EqualComposable compares two composable index templates field by field.
func EqualComposable(a, b ComposableIndexTemplate) bool {
	if a.Name != b.Name {
		return false
	}
	if !ptrInt64Equal(a.Priority, b.Priority) || !ptrInt64Equal(a.Version, b.Version) {
		return false
	}
	if string(a.Mappings) != string(b.Mappings) {
		return false
	}
	if !stringSliceEqual(a.IndexPatterns, b.IndexPatterns) || !stringSliceEqual(a.ComposedOf, b.ComposedOf) {
		return false
	}
	if !stringMapEqual(a.Settings, b.Settings) || !stringMapEqual(a.Aliases, b.Aliases) {
		return false
	}
	if (a.DataStream == nil) != (b.DataStream == nil) {
		return false
	}
	if a.DataStream == nil {
		return true
	}
	return *a.DataStream == *b.DataStream
}

func ptrInt64Equal(a, b *int64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
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
