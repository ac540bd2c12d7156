// Package graveyard implements the bounded tombstone ledger for destroyed
// indices: deleted-index names linger here so a stale replica that missed
// the delete doesn't resurrect the index under a reused name before the
// tombstone ages out.
package graveyard

import (
	"encoding/json"
	"time"
)

// CustomName is the well-known metadata.Custom fragment name this ledger is
// stored under.
const CustomName = "index-graveyard"

// Tombstone records one destroyed index.
type Tombstone struct {
	IndexName   string    `json:"index_name"`
	IndexUUID   string    `json:"index_uuid"`
	DeletionTime time.Time `json:"deletion_time"`
}

// Graveyard is an immutable, append-only (modulo eviction) FIFO of
// tombstones.
type Graveyard struct {
	Tombstones []Tombstone
}

// Empty returns a graveyard with no tombstones.
func Empty() Graveyard {
	return Graveyard{}
}

// Add appends a tombstone and evicts every entry older than maxAge as of
// now. maxAge <= 0 disables eviction.
func (g Graveyard) Add(indexName, indexUUID string, now time.Time, maxAge time.Duration) Graveyard {
	next := make([]Tombstone, 0, len(g.Tombstones)+1)
	for _, t := range g.Tombstones {
		if maxAge > 0 && now.Sub(t.DeletionTime) > maxAge {
			continue
		}
		next = append(next, t)
	}
	next = append(next, Tombstone{IndexName: indexName, IndexUUID: indexUUID, DeletionTime: now})
	return Graveyard{Tombstones: next}
}

// ContainsName reports whether name is currently tombstoned.
func (g Graveyard) ContainsName(name string) bool {
	for _, t := range g.Tombstones {
		if t.IndexName == name {
			return true
		}
	}
	return false
}

// ContainsUUID reports whether uuid is currently tombstoned.
func (g Graveyard) ContainsUUID(uuid string) bool {
	for _, t := range g.Tombstones {
		if t.IndexUUID == uuid {
			return true
		}
	}
	return false
}

// Marshal encodes the graveyard for storage as a metadata.Custom payload.
func Marshal(g Graveyard) ([]byte, error) {
	return json.Marshal(g)
}

// Unmarshal decodes a metadata.Custom payload back into a Graveyard. A nil
// or empty payload decodes to Empty().
func Unmarshal(payload []byte) (Graveyard, error) {
	if len(payload) == 0 {
		return Empty(), nil
	}
	var g Graveyard
	if err := json.Unmarshal(payload, &g); err != nil {
		return Graveyard{}, err
	}
	return g, nil
}
