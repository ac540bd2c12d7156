// Package discovery models DiscoveryNode: an immutable descriptor of a
// cluster member. The discovery protocol that actually finds peers is out
// of scope; only the data type and its equality/serialization contract are
// specified here.
package discovery

import "sort"

// Role is a capability a node advertises to the rest of the cluster. Roles
// are serialized as (name, abbreviation, canContainData) triples so that a
// newer peer's custom role is still reported intelligibly to an older one.
type Role struct {
	Name           string
	Abbreviation   string
	CanContainData bool
}

// Well-known roles. Name/Abbreviation pairs are part of the wire contract:
// never rename an existing role without a version gate.
var (
	RoleData        = Role{Name: "data", Abbreviation: "d", CanContainData: true}
	RoleMaster      = Role{Name: "master", Abbreviation: "m", CanContainData: false}
	RoleIngest      = Role{Name: "ingest", Abbreviation: "i", CanContainData: false}
	RoleCoordinating = Role{Name: "coordinating_only", Abbreviation: "-", CanContainData: false}
)

// UnknownRole wraps a role name this build does not recognize, received
// from a newer peer. It is preserved and forwarded rather than rejected, so
// a mixed-version cluster keeps operating.
func UnknownRole(name string) Role {
	return Role{Name: name, Abbreviation: "?", CanContainData: false}
}

// Node is an immutable descriptor of one cluster member.
type Node struct {
	Name            string
	PersistentID    string
	EphemeralID     string // minted once per process lifetime
	HostName        string
	HostAddress     string
	TransportAddress string
	Attributes      map[string]string
	Roles           []Role // always kept sorted by Name
	ProtocolVersion uint32
}

// New constructs a Node with its roles sorted by name, per the wire
// contract that a node's role set is serialized in a canonical order.
func New(name, persistentID, ephemeralID, hostName, hostAddress, transportAddress string, attrs map[string]string, roles []Role, protocolVersion uint32) Node {
	sorted := append([]Role{}, roles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return Node{
		Name:             name,
		PersistentID:     persistentID,
		EphemeralID:      ephemeralID,
		HostName:         hostName,
		HostAddress:      hostAddress,
		TransportAddress: transportAddress,
		Attributes:       cloneStringMap(attrs),
		Roles:            sorted,
		ProtocolVersion:  protocolVersion,
	}
}

// Equal compares two nodes by ephemeral id only: a restarted node is a new
// process and a distinct peer even if its persistent id is unchanged. This
// is intentional — it prevents stale connections from being silently
// routed to the new process.
func (n Node) Equal(other Node) bool {
	return n.EphemeralID == other.EphemeralID
}

// HasRole reports whether the node advertises the named role.
func (n Node) HasRole(name string) bool {
	for _, r := range n.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
