// Package mapping implements content-addressed deduplication of index
// mapping bodies. Mapping JSON is frequently identical across many indices
// of the same template, and a cluster can carry thousands of indices, so the
// catalog interns every mapping body by its sha-256 and shares the single
// stored instance across every index that has an identical mapping.
package mapping

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Metadata is a single mapping document, identified by the sha-256 of its
// canonical JSON body. Instances are immutable; two Metadata values with
// equal Source bytes always compute the same Hash.
type Metadata struct {
	hash   string
	source []byte // canonical, uncompressed JSON
}

// New computes the content hash of source and returns an immutable Metadata
// wrapping it. source is copied defensively.
func New(source []byte) Metadata {
	cp := make([]byte, len(source))
	copy(cp, source)
	sum := sha256.Sum256(cp)
	return Metadata{hash: hex.EncodeToString(sum[:]), source: cp}
}

// FromJSON marshals v to canonical JSON and wraps it as a Metadata.
func FromJSON(v interface{}) (Metadata, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Metadata{}, err
	}
	return New(body), nil
}

// Hash returns the sha-256 content hash, hex-encoded. It is this value's
// identity.
func (m Metadata) Hash() string { return m.hash }

// Source returns the raw JSON body. Callers must not mutate the returned
// slice.
func (m Metadata) Source() []byte { return m.source }

// IsZero reports whether m is the zero value (no mapping assigned).
func (m Metadata) IsZero() bool { return m.hash == "" }

// Equal compares two Metadata values by content hash, which is sufficient
// since the hash is a function of the body.
func (m Metadata) Equal(other Metadata) bool { return m.hash == other.hash }
