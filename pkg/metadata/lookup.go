package metadata

import (
	"sort"
	"sync"

	"github.com/cuemby/clustermeta/pkg/datastream"
	"github.com/cuemby/clustermeta/pkg/index"
)

// AbstractionKind distinguishes what a name in the indices lookup resolves
// to.
type AbstractionKind int

const (
	ConcreteIndexAbstraction AbstractionKind = iota
	AliasAbstraction
	DataStreamAbstraction
	DataStreamAliasAbstraction
)

// Abstraction is one entry of the indices lookup: the thing a user-visible
// name (index, alias, or data stream) currently resolves to.
type Abstraction struct {
	Kind             AbstractionKind
	Index            *index.Metadata   // set for ConcreteIndexAbstraction
	ParentDataStream *string           // set for ConcreteIndexAbstraction, if the index backs a stream
	AliasName        string            // set for AliasAbstraction
	AliasIndices     []string          // set for AliasAbstraction, sorted
	AliasWriteIndex  *string           // set for AliasAbstraction, if one member is the write index
	DataStream       *datastream.DataStream     // set for DataStreamAbstraction
	DataStreamAlias  *datastream.Alias // set for DataStreamAliasAbstraction
}

// lookupCache memoizes the indices lookup behind a sync.Once: the first
// reader computes it while concurrent readers wait, and the stored map is
// written only once. A Metadata with no cache recomputes the lookup on every
// call.
type lookupCache struct {
	once sync.Once
	m    map[string]Abstraction
}

// Lookup returns the memoized indices-or-alias-or-data-stream name lookup,
// computing it on first access.
func (md Metadata) Lookup() map[string]Abstraction {
	if md.lookupCache == nil {
		return buildLookup(md)
	}
	md.lookupCache.once.Do(func() {
		md.lookupCache.m = buildLookup(md)
	})
	return md.lookupCache.m
}

// buildLookup constructs the indices lookup as a plain Go map, so it has no
// key order. Entries are inserted in this order, a later entry overwriting
// an earlier one of the same name: (1) data-stream aliases and data
// streams, (2) every index as ConcreteIndex with its parent stream if any,
// (3) every index alias, collecting its member indices into one Alias entry.
func buildLookup(md Metadata) map[string]Abstraction {
	out := make(map[string]Abstraction, len(md.Indices)+len(md.DataStreams)+len(md.DataStreamAliases))

	for name, alias := range md.DataStreamAliases {
		a := alias
		out[name] = Abstraction{Kind: DataStreamAliasAbstraction, DataStreamAlias: &a}
	}
	for name, ds := range md.DataStreams {
		d := ds
		out[name] = Abstraction{Kind: DataStreamAbstraction, DataStream: &d}
	}

	parentOf := map[string]string{}
	for streamName, ds := range md.DataStreams {
		for _, b := range ds.BackingIndices {
			parentOf[b.Name] = streamName
		}
	}
	for name, idx := range md.Indices {
		i := idx
		var parent *string
		if p, ok := parentOf[name]; ok {
			parent = &p
		}
		out[name] = Abstraction{Kind: ConcreteIndexAbstraction, Index: &i, ParentDataStream: parent}
	}

	aliasMembers := map[string][]string{}
	aliasWrite := map[string]string{}
	hasWrite := map[string]bool{}
	for indexName, idx := range md.Indices {
		for aliasName, a := range idx.Aliases {
			aliasMembers[aliasName] = append(aliasMembers[aliasName], indexName)
			if a.WriteIndex != nil && *a.WriteIndex {
				aliasWrite[aliasName] = indexName
				hasWrite[aliasName] = true
			}
		}
	}
	for aliasName := range aliasMembers {
		members := append([]string{}, aliasMembers[aliasName]...)
		sort.Strings(members)
		ab := Abstraction{Kind: AliasAbstraction, AliasName: aliasName, AliasIndices: members}
		if hasWrite[aliasName] {
			w := aliasWrite[aliasName]
			ab.AliasWriteIndex = &w
		}
		out[aliasName] = ab
	}

	return out
}
