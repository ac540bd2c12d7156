package discovery

import (
	"bufio"
	"bytes"
	"sort"

	"github.com/cuemby/clustermeta/pkg/wire"
)

// Roster is the set of nodes a cluster member currently believes are part
// of the cluster, keyed by ephemeral id per the equality rule in Node.Equal.
// It is carried on the root as an opaque custom, not a fixed root field:
// membership discovery itself is out of scope here, only the shape of what
// gets agreed upon once discovered.
type Roster struct {
	Nodes map[string]Node // keyed by EphemeralID
}

// EmptyRoster returns a roster with no known members.
func EmptyRoster() Roster {
	return Roster{Nodes: map[string]Node{}}
}

// Put returns a copy of r with n recorded under its ephemeral id, replacing
// any prior entry for that id.
func (r Roster) Put(n Node) Roster {
	out := Roster{Nodes: make(map[string]Node, len(r.Nodes)+1)}
	for id, existing := range r.Nodes {
		out.Nodes[id] = existing
	}
	out.Nodes[n.EphemeralID] = n
	return out
}

// Remove returns a copy of r with ephemeralID dropped, if present.
func (r Roster) Remove(ephemeralID string) Roster {
	out := Roster{Nodes: make(map[string]Node, len(r.Nodes))}
	for id, existing := range r.Nodes {
		if id == ephemeralID {
			continue
		}
		out.Nodes[id] = existing
	}
	return out
}

// Sorted returns the roster's nodes ordered by ephemeral id, for stable
// iteration and serialization.
func (r Roster) Sorted() []Node {
	ids := make([]string, 0, len(r.Nodes))
	for id := range r.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.Nodes[id])
	}
	return out
}

// MarshalRoster renders r as the binary payload stored in a Metadata custom.
func MarshalRoster(r Roster) ([]byte, error) {
	var buf bytes.Buffer
	sorted := r.Sorted()
	if err := wire.WriteVInt(&buf, len(sorted)); err != nil {
		return nil, err
	}
	for _, n := range sorted {
		if err := n.WriteTo(&buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalRoster parses a payload written by MarshalRoster. An empty
// payload decodes to an empty roster.
func UnmarshalRoster(payload []byte) (Roster, error) {
	if len(payload) == 0 {
		return EmptyRoster(), nil
	}
	br := bufio.NewReader(bytes.NewReader(payload))
	count, err := wire.ReadVInt(br)
	if err != nil {
		return Roster{}, err
	}
	r := Roster{Nodes: make(map[string]Node, count)}
	for i := 0; i < count; i++ {
		n, err := ReadFrom(br)
		if err != nil {
			return Roster{}, err
		}
		r.Nodes[n.EphemeralID] = n
	}
	return r, nil
}
