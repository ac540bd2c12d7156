// Package datastream models DataStream: an append-only, time-series
// collection of backing indices that grows by rollover and names its write
// index deterministically from its name, generation, and a timestamp.
package datastream

import (
	"fmt"
	"time"

	"github.com/cuemby/clustermeta/pkg/metaerr"
)

// TimestampField is the sentinel timestamp field every data stream is fixed
// to, per the catalog's data-stream contract.
const TimestampField = "@timestamp"

// BackingIndex names one of a data stream's concrete indices.
type BackingIndex struct {
	Name string
	UUID string
}

// DataStream is a named, ordered, non-empty list of backing indices: oldest
// first, write index last.
type DataStream struct {
	Name               string
	Generation         uint64
	BackingIndices     []BackingIndex
	Metadata           map[string]string
	Hidden             bool
	Replicated         bool
	System             bool
	AllowCustomRouting bool
}

// WriteIndex returns the current write index: the last backing index.
// Panics if the stream has no backing indices, which Validate forbids.
func (d DataStream) WriteIndex() BackingIndex {
	return d.BackingIndices[len(d.BackingIndices)-1]
}

// Validate requires a non-empty name and enforces the
// non-empty-backing-index-list invariant. The write index is by definition
// the last slot (see WriteIndex), so there is no separate check for it.
func (d DataStream) Validate() error {
	if d.Name == "" {
		return metaerr.InvalidInputf("data stream must have a name")
	}
	if len(d.BackingIndices) == 0 {
		return metaerr.InvalidStatef("data stream [%s] has no backing indices", d.Name)
	}
	return nil
}

// HasBackingIndex reports whether name is one of this stream's backing
// indices.
func (d DataStream) HasBackingIndex(name string) bool {
	for _, b := range d.BackingIndices {
		if b.Name == name {
			return true
		}
	}
	return false
}

// DefaultBackingIndexName computes the deterministic write-index name for a
// rollover: ".ds-<streamName>-<yyyy.MM.dd of epochMillis, UTC>-<generation
// zero-padded to 6 digits>".
func DefaultBackingIndexName(streamName string, generation uint64, epochMillis int64) string {
	t := time.UnixMilli(epochMillis).UTC()
	return fmt.Sprintf(".ds-%s-%04d.%02d.%02d-%06d", streamName, t.Year(), t.Month(), t.Day(), generation)
}

// IndexNameExists reports whether a candidate backing-index name is
// already known to the catalog. Callers supply this as the collision
// predicate for Rollover; the data-stream package itself has no view of
// the wider metadata graph.
type IndexNameExists func(name string) bool

// Rollover appends a new write index, bumping the generation, retrying
// candidate names while exists reports a collision (essential for
// deterministic rollover under clock skew or repeated rollovers within the
// same day). Fails if the stream is replicated: a replicated data stream's
// backing indices are only ever appended by the replication source.
func Rollover(d DataStream, newUUID string, epochMillis int64, exists IndexNameExists) (DataStream, error) {
	if d.Replicated {
		return DataStream{}, metaerr.InvalidStatef("data stream [%s] cannot be rolled over, because it is a replicated data stream", d.Name)
	}
	gen := d.Generation
	var name string
	for {
		gen++
		name = DefaultBackingIndexName(d.Name, gen, epochMillis)
		if !exists(name) {
			break
		}
	}
	next := d
	next.BackingIndices = append(append([]BackingIndex{}, d.BackingIndices...), BackingIndex{Name: name, UUID: newUUID})
	next.Generation = gen
	return next, nil
}

// RemoveBackingIndex drops idx from the stream. Fails if idx is absent or
// is the current write index (a stream's write index can only be retired
// by rollover, never by direct removal).
func RemoveBackingIndex(d DataStream, idx string) (DataStream, error) {
	pos := -1
	for i, b := range d.BackingIndices {
		if b.Name == idx {
			pos = i
			break
		}
	}
	if pos < 0 {
		return DataStream{}, metaerr.NotFoundf("index", "data stream [%s] has no backing index [%s]", d.Name, idx)
	}
	if pos == len(d.BackingIndices)-1 {
		return DataStream{}, metaerr.InvalidInputf("cannot remove backing index [%s] of data stream [%s] because it is the write index", idx, d.Name)
	}
	next := d
	next.BackingIndices = append(append([]BackingIndex{}, d.BackingIndices[:pos]...), d.BackingIndices[pos+1:]...)
	return next, nil
}

// AddBackingIndex prepends idx as the new oldest backing index (used when
// migrating an existing index into a data stream, e.g. during a reindex).
// belongsToOtherStream and hasAlias are supplied by the caller, which owns
// the wider metadata graph this package cannot see.
func AddBackingIndex(d DataStream, idx BackingIndex, belongsToOtherStream, hasAlias bool) (DataStream, error) {
	if belongsToOtherStream {
		return DataStream{}, metaerr.InvalidInputf("index [%s] already belongs to another data stream", idx.Name)
	}
	if hasAlias {
		return DataStream{}, metaerr.InvalidInputf("index [%s] cannot be added to data stream [%s] because it has an alias", idx.Name, d.Name)
	}
	next := d
	next.BackingIndices = append([]BackingIndex{idx}, d.BackingIndices...)
	next.Generation++
	return next, nil
}

// Snapshot reconciles this stream against the set of indices present in a
// snapshot: backing indices absent from present are dropped. Returns
// (DataStream{}, false) if none remain, signaling the stream itself should
// be dropped. If every backing index is retained, returns d unchanged.
func Snapshot(d DataStream, present map[string]bool) (DataStream, bool) {
	kept := make([]BackingIndex, 0, len(d.BackingIndices))
	for _, b := range d.BackingIndices {
		if present[b.Name] {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(d.BackingIndices) {
		return d, true
	}
	if len(kept) == 0 {
		return DataStream{}, false
	}
	next := d
	next.BackingIndices = kept
	next.Metadata = cloneStringMap(d.Metadata)
	return next, true
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Alias is a named reference to one or more data streams, with an optional
// distinguished write data stream and an optional filter applied at
// search/index time.
type Alias struct {
	Name            string
	DataStreams     []string
	WriteDataStream *string
	Filter          []byte
}
