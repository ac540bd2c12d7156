// Package template models index templates: the legacy IndexTemplateMetadata
// shape and the current ComposableIndexTemplate/ComponentTemplate shapes that
// apply partial settings/mappings/aliases to newly created indices by
// name-glob.
package template

import "github.com/cuemby/clustermeta/pkg/metaerr"

// Legacy is the legacy, non-composable index template.
type Legacy struct {
	Name     string
	Patterns []string
	Order    int
	Version  *int64
	Settings map[string]string
	Mappings []byte // opaque JSON
	Aliases  map[string]string
}

// ComponentTemplate is a reusable fragment of settings/mappings/aliases that
// a ComposableIndexTemplate can reference by name via ComposedOf.
type ComponentTemplate struct {
	Name       string
	Settings   map[string]string
	Mappings   []byte // opaque JSON
	Aliases    map[string]string
	Version    *int64
	Deprecated bool
}

// RetentionOpinion is an explicit two-level option over a data lifecycle's
// retention: whether the user expressed an opinion at all, and if so,
// whether retention is infinite or a finite duration. This is the nullable
// triple from the design notes, encoded as two named levels instead of one
// packed nullable so "no opinion" and "infinite" are never conflated.
type RetentionOpinion struct {
	set      bool
	infinite bool
	finite   int64 // nanoseconds, meaningful only if set && !infinite
}

// NoOpinion is the zero value: the user expressed no retention preference.
var NoOpinion = RetentionOpinion{}

// Infinite indicates data is retained forever.
func Infinite() RetentionOpinion { return RetentionOpinion{set: true, infinite: true} }

// FiniteRetention indicates data is retained for exactly d (nanoseconds).
func FiniteRetention(d int64) RetentionOpinion {
	return RetentionOpinion{set: true, finite: d}
}

// HasOpinion reports whether the user expressed any retention preference.
func (r RetentionOpinion) HasOpinion() bool { return r.set }

// IsInfinite reports whether retention is unbounded. Only meaningful when
// HasOpinion is true.
func (r RetentionOpinion) IsInfinite() bool { return r.set && r.infinite }

// Duration returns the finite retention duration in nanoseconds and true, or
// (0, false) if retention is unset or infinite.
func (r RetentionOpinion) Duration() (int64, bool) {
	if !r.set || r.infinite {
		return 0, false
	}
	return r.finite, true
}

// DataStreamTemplate is the optional data-stream template block on a
// ComposableIndexTemplate.
type DataStreamTemplate struct {
	TimestampField string
	Hidden         bool
	Retention      RetentionOpinion
}

// ComposableIndexTemplate is the current template type: ordered glob
// patterns plus partial settings/mappings/aliases, an explicit priority
// (higher wins), optional references to component templates, and an
// optional data-stream template block.
type ComposableIndexTemplate struct {
	Name         string
	IndexPatterns []string
	Priority     *int64
	Version      *int64
	ComposedOf   []string // ComponentTemplate names, applied in order
	Settings     map[string]string
	Mappings     []byte
	Aliases      map[string]string
	DataStream   *DataStreamTemplate
}

// Validate enforces the minimal build-time shape: a name, at least one
// pattern, and component-template references that are non-empty strings.
func (t ComposableIndexTemplate) Validate() error {
	if t.Name == "" {
		return metaerr.InvalidInputf("index template must have a name")
	}
	if len(t.IndexPatterns) == 0 {
		return metaerr.InvalidInputf("index template [%s] must declare at least one index pattern", t.Name)
	}
	for _, c := range t.ComposedOf {
		if c == "" {
			return metaerr.InvalidInputf("index template [%s] has an empty component template reference", t.Name)
		}
	}
	return nil
}

// Matches reports whether name matches any of the template's glob patterns.
// A pattern matches either exactly or, when it ends in a single "*", by
// prefix; no other glob syntax is recognised.
func (t ComposableIndexTemplate) Matches(name string) bool {
	for _, p := range t.IndexPatterns {
		if globMatch(p, name) {
			return true
		}
	}
	return false
}

// globMatch implements the restricted glob the catalog needs: a single
// trailing "*" wildcard, which covers every index-template pattern in
// practice ("logs-*", "metrics-app-*") without pulling in path.Match's
// full (and partially mismatched) semantics for "/"-bearing names.
func globMatch(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	if n := len(pattern); n > 0 && pattern[n-1] == '*' {
		prefix := pattern[:n-1]
		return len(name) >= len(prefix) && name[:len(prefix)] == prefix
	}
	return pattern == name
}
