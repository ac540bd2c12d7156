package discovery

import (
	"io"
	"sort"

	"github.com/cuemby/clustermeta/pkg/wire"
)

// WriteTo serializes n: identity fields, addresses, attributes, then the
// sorted role set as (name, abbreviation, canContainData) triples, then
// the protocol version.
func (n Node) WriteTo(w io.Writer) error {
	if err := wire.WriteString(w, n.Name); err != nil {
		return err
	}
	if err := wire.WriteString(w, n.PersistentID); err != nil {
		return err
	}
	if err := wire.WriteString(w, n.EphemeralID); err != nil {
		return err
	}
	if err := wire.WriteString(w, n.HostName); err != nil {
		return err
	}
	if err := wire.WriteString(w, n.HostAddress); err != nil {
		return err
	}
	if err := wire.WriteString(w, n.TransportAddress); err != nil {
		return err
	}
	keys := sortedKeys(n.Attributes)
	if err := wire.WriteStringMap(w, n.Attributes, keys); err != nil {
		return err
	}
	if err := wire.WriteVInt(w, len(n.Roles)); err != nil {
		return err
	}
	for _, r := range n.Roles {
		if err := wire.WriteString(w, r.Name); err != nil {
			return err
		}
		if err := wire.WriteString(w, r.Abbreviation); err != nil {
			return err
		}
		if err := wire.WriteBool(w, r.CanContainData); err != nil {
			return err
		}
	}
	return wire.WriteU64(w, uint64(n.ProtocolVersion))
}

// ReadFrom deserializes a Node written by WriteTo.
func ReadFrom(r wire.ByteReadReader) (Node, error) {
	var n Node
	var err error
	if n.Name, err = wire.ReadString(r); err != nil {
		return n, err
	}
	if n.PersistentID, err = wire.ReadString(r); err != nil {
		return n, err
	}
	if n.EphemeralID, err = wire.ReadString(r); err != nil {
		return n, err
	}
	if n.HostName, err = wire.ReadString(r); err != nil {
		return n, err
	}
	if n.HostAddress, err = wire.ReadString(r); err != nil {
		return n, err
	}
	if n.TransportAddress, err = wire.ReadString(r); err != nil {
		return n, err
	}
	if n.Attributes, err = wire.ReadStringMap(r); err != nil {
		return n, err
	}
	rn, err := wire.ReadVInt(r)
	if err != nil {
		return n, err
	}
	n.Roles = make([]Role, 0, rn)
	for i := 0; i < rn; i++ {
		var role Role
		if role.Name, err = wire.ReadString(r); err != nil {
			return n, err
		}
		if role.Abbreviation, err = wire.ReadString(r); err != nil {
			return n, err
		}
		if role.CanContainData, err = wire.ReadBool(r); err != nil {
			return n, err
		}
		n.Roles = append(n.Roles, role)
	}
	v, err := wire.ReadU64(r)
	if err != nil {
		return n, err
	}
	n.ProtocolVersion = uint32(v)
	return n, nil
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
