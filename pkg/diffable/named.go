package diffable

import "github.com/cuemby/clustermeta/pkg/wire"

// NamedValue is one variant of a heterogeneous named registry (cluster-level
// Customs, per-index Customs, ImmutableState namespaces). Each variant
// declares its own wire name and the minimum peer version that understands
// it.
type NamedValue interface {
	// Name is the wire-visible discriminator for this variant.
	Name() string
	// MinimumVersion is the oldest peer version that recognizes this
	// variant; older peers never receive it.
	MinimumVersion() wire.Version
}

// UnknownNamed preserves a variant produced by a newer writer that this
// reader does not recognize: its raw bytes are forwarded verbatim rather
// than dropped, so a round trip through an implementation that doesn't
// understand it is lossless.
type UnknownNamed struct {
	NameValue string
	Payload   []byte
	MinVer    wire.Version
}

func (u UnknownNamed) Name() string             { return u.NameValue }
func (u UnknownNamed) MinimumVersion() wire.Version { return u.MinVer }

// Registry is a closed set of known NamedValue constructors keyed by wire
// name, plus the fallback UnknownNamed path. It never reflectively
// constructs a variant by name; only constructors explicitly registered by
// RegisterDecoder are invoked.
type Registry struct {
	decoders map[string]func(payload []byte) (NamedValue, error)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]func(payload []byte) (NamedValue, error))}
}

// RegisterDecoder registers the decode function for a known variant name.
func (r *Registry) RegisterDecoder(name string, decode func(payload []byte) (NamedValue, error)) {
	r.decoders[name] = decode
}

// Decode decodes a wire-carried (name, payload, minVersion) triple. If name
// is not registered, it returns an UnknownNamed that forwards payload
// byte-for-byte — never an error — matching the "skip with a warning, never
// fatal" contract for version skew.
func (r *Registry) Decode(name string, payload []byte, minVer wire.Version) (NamedValue, bool, error) {
	decode, ok := r.decoders[name]
	if !ok {
		return UnknownNamed{NameValue: name, Payload: payload, MinVer: minVer}, false, nil
	}
	v, err := decode(payload)
	if err != nil {
		return nil, true, err
	}
	return v, true, nil
}

// VisibleTo filters variants by whether peerVersion satisfies their
// MinimumVersion; invisible variants are simply skipped by the writer, per
// the wire-format contract for Customs.
func VisibleTo(all map[string]NamedValue, peerVersion wire.Version) map[string]NamedValue {
	out := make(map[string]NamedValue, len(all))
	for name, v := range all {
		if peerVersion.AtLeast(v.MinimumVersion()) {
			out[name] = v
		}
	}
	return out
}

// NamedDiff is the delta over a heterogeneous named-variant map: a MapDiff
// keyed by variant name. Names unknown to this reader (UnknownNamed) are
// preserved and forwarded verbatim by Apply, never dropped or rejected.
type NamedDiff = MapDiff[string, NamedValue]

// DiffNamed computes a NamedDiff between two named-variant maps using
// identity/full-replacement semantics (no per-variant structural diff),
// which is sufficient since these maps are small and change infrequently.
func DiffNamed(prev, curr map[string]NamedValue, eq func(a, b NamedValue) bool) NamedDiff {
	return DiffMap(prev, curr, StringKeyLess, eq, nil)
}
