package mapping

// Pool is a hash-keyed intern table for Metadata values, shared between a
// Metadata root and every IndexMetadata it transitively owns. A Pool is an
// immutable value: Dedupe and Purge both return a new Pool, leaving the
// receiver untouched, so a Builder can carry the source catalog's pool
// forward without the catalog's readers observing any mutation.
type Pool struct {
	byHash map[string]Metadata
}

// NewPool returns an empty pool.
func NewPool() Pool {
	return Pool{byHash: map[string]Metadata{}}
}

// Len reports how many distinct mappings are interned.
func (p Pool) Len() int { return len(p.byHash) }

// Get looks up a mapping by hash.
func (p Pool) Get(hash string) (Metadata, bool) {
	m, ok := p.byHash[hash]
	return m, ok
}

// Dedupe returns the pool's existing instance for candidate's hash, if any,
// and the (possibly new) pool containing it. The bool result reports
// whether an existing instance was found and substituted — callers use this
// to decide whether they must rebuild the owning IndexMetadata to point at
// the canonical instance.
func (p Pool) Dedupe(candidate Metadata) (Metadata, Pool, bool) {
	if existing, ok := p.byHash[candidate.hash]; ok {
		return existing, p, true
	}
	next := p.clone()
	next.byHash[candidate.hash] = candidate
	return candidate, next, false
}

// Purge returns a new pool containing only hashes present in liveHashes.
// Called at Metadata.Builder.Build time whenever a mutation could have
// orphaned a mapping (a mapping changed, or an index was removed).
func (p Pool) Purge(liveHashes map[string]struct{}) Pool {
	next := NewPool()
	for h, m := range p.byHash {
		if _, live := liveHashes[h]; live {
			next.byHash[h] = m
		}
	}
	return next
}

// All returns every interned Metadata value. The returned slice is a copy;
// mutating it does not affect the pool.
func (p Pool) All() []Metadata {
	out := make([]Metadata, 0, len(p.byHash))
	for _, m := range p.byHash {
		out = append(out, m)
	}
	return out
}

func (p Pool) clone() Pool {
	next := NewPool()
	for h, m := range p.byHash {
		next.byHash[h] = m
	}
	return next
}
