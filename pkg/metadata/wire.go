package metadata

import (
	"io"
	"sort"

	"github.com/cuemby/clustermeta/pkg/datastream"
	"github.com/cuemby/clustermeta/pkg/index"
	"github.com/cuemby/clustermeta/pkg/mapping"
	"github.com/cuemby/clustermeta/pkg/snapshot"
	"github.com/cuemby/clustermeta/pkg/template"
	"github.com/cuemby/clustermeta/pkg/wire"
)

// WriteTo serializes the root per the wire layout: version, cluster
// identity, coordination metadata, settings, the consistent-settings hash
// map (gated), the mapping pool (gated), indices, templates, data streams,
// snapshots in progress, and customs (each gated by its own minimum
// version).
func (md Metadata) WriteTo(w io.Writer, peerVersion wire.Version) error {
	if err := wire.WriteU64(w, md.Version); err != nil {
		return err
	}
	if err := wire.WriteString(w, md.ClusterUUID); err != nil {
		return err
	}
	if err := wire.WriteBool(w, md.ClusterUUIDCommitted); err != nil {
		return err
	}
	if err := wire.WriteBytes(w, md.CoordinationMetadata); err != nil {
		return err
	}
	if err := wire.WriteStringMap(w, md.TransientSettings, sortedStrKeys(md.TransientSettings)); err != nil {
		return err
	}
	if err := wire.WriteStringMap(w, md.PersistentSettings, sortedStrKeys(md.PersistentSettings)); err != nil {
		return err
	}
	if peerVersion.AtLeast(wire.VersionConsistentHashes) {
		if err := wire.WriteStringMap(w, md.HashesOfConsistentSettings, sortedStrKeys(md.HashesOfConsistentSettings)); err != nil {
			return err
		}
	}

	if peerVersion.AtLeast(wire.VersionMappingsAsHash) {
		pooled := md.MappingPool.All()
		if err := wire.WriteVInt(w, len(pooled)); err != nil {
			return err
		}
		for _, mm := range pooled {
			if err := wire.WriteString(w, mm.Hash()); err != nil {
				return err
			}
			if err := wire.WriteBytes(w, mm.Source()); err != nil {
				return err
			}
		}
	}

	indexNames := sortedIndexKeys(md.Indices)
	if err := wire.WriteVInt(w, len(indexNames)); err != nil {
		return err
	}
	for _, name := range indexNames {
		if err := md.Indices[name].WriteTo(w, peerVersion, md.MappingPool); err != nil {
			return err
		}
	}

	templateNames := sortedTemplateKeys(md.Templates)
	if err := wire.WriteVInt(w, len(templateNames)); err != nil {
		return err
	}
	for _, name := range templateNames {
		if err := md.Templates[name].WriteTo(w); err != nil {
			return err
		}
	}

	streamNames := sortedDataStreamKeys(md.DataStreams)
	if err := wire.WriteVInt(w, len(streamNames)); err != nil {
		return err
	}
	for _, name := range streamNames {
		if err := md.DataStreams[name].WriteTo(w, peerVersion); err != nil {
			return err
		}
	}

	if err := wire.WriteVInt(w, len(md.SnapshotsInProgress)); err != nil {
		return err
	}
	for _, e := range md.SnapshotsInProgress {
		if err := e.WriteTo(w, peerVersion); err != nil {
			return err
		}
	}

	var emitted []Custom
	for _, c := range md.Customs {
		if uint32(peerVersion) >= c.MinimumVersion {
			emitted = append(emitted, c)
		}
	}
	sort.Slice(emitted, func(i, j int) bool { return emitted[i].Name < emitted[j].Name })
	if err := wire.WriteVInt(w, len(emitted)); err != nil {
		return err
	}
	for _, c := range emitted {
		if err := wire.WriteString(w, c.Name); err != nil {
			return err
		}
		if err := wire.WriteBytes(w, c.Payload); err != nil {
			return err
		}
		if err := wire.WriteVInt(w, int(c.Contexts)); err != nil {
			return err
		}
		if err := wire.WriteU64(w, uint64(c.MinimumVersion)); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrom deserializes a root written by WriteTo. Customs whose minimum
// version exceeds peerVersion were never written by a cooperating peer, so
// none need special skip handling here; a reader that encounters a custom
// name it does not recognize still decodes its opaque payload and can
// forward it unmodified (VersionSkew, not fatal).
func ReadFrom(r wire.ByteReadReader, peerVersion wire.Version) (Metadata, error) {
	md := Empty()
	var err error
	if md.Version, err = wire.ReadU64(r); err != nil {
		return md, err
	}
	if md.ClusterUUID, err = wire.ReadString(r); err != nil {
		return md, err
	}
	if md.ClusterUUIDCommitted, err = wire.ReadBool(r); err != nil {
		return md, err
	}
	if md.CoordinationMetadata, err = wire.ReadBytes(r); err != nil {
		return md, err
	}
	if md.TransientSettings, err = wire.ReadStringMap(r); err != nil {
		return md, err
	}
	if md.PersistentSettings, err = wire.ReadStringMap(r); err != nil {
		return md, err
	}
	if peerVersion.AtLeast(wire.VersionConsistentHashes) {
		if md.HashesOfConsistentSettings, err = wire.ReadStringMap(r); err != nil {
			return md, err
		}
	}

	pool := mapping.NewPool()
	if peerVersion.AtLeast(wire.VersionMappingsAsHash) {
		n, err := wire.ReadVInt(r)
		if err != nil {
			return md, err
		}
		for i := 0; i < n; i++ {
			hash, err := wire.ReadString(r)
			if err != nil {
				return md, err
			}
			body, err := wire.ReadBytes(r)
			if err != nil {
				return md, err
			}
			mm := mapping.New(body)
			_, pool, _ = pool.Dedupe(mm)
			_ = hash
		}
	}

	in, err := wire.ReadVInt(r)
	if err != nil {
		return md, err
	}
	for i := 0; i < in; i++ {
		idx, embedded, err := index.ReadFrom(r, peerVersion)
		if err != nil {
			return md, err
		}
		if !embedded.IsZero() {
			_, pool, _ = pool.Dedupe(embedded)
		}
		md.Indices[idx.Index.Name] = idx
	}
	md.MappingPool = pool

	tn, err := wire.ReadVInt(r)
	if err != nil {
		return md, err
	}
	for i := 0; i < tn; i++ {
		t, err := template.ReadComposableIndexTemplateFrom(r)
		if err != nil {
			return md, err
		}
		md.Templates[t.Name] = t
	}

	dn, err := wire.ReadVInt(r)
	if err != nil {
		return md, err
	}
	for i := 0; i < dn; i++ {
		ds, err := datastream.ReadFrom(r, peerVersion)
		if err != nil {
			return md, err
		}
		md.DataStreams[ds.Name] = ds
	}

	sn, err := wire.ReadVInt(r)
	if err != nil {
		return md, err
	}
	md.SnapshotsInProgress = make([]snapshot.Entry, 0, sn)
	for i := 0; i < sn; i++ {
		e, err := snapshot.ReadFrom(r, peerVersion)
		if err != nil {
			return md, err
		}
		md.SnapshotsInProgress = append(md.SnapshotsInProgress, e)
	}

	cn, err := wire.ReadVInt(r)
	if err != nil {
		return md, err
	}
	for i := 0; i < cn; i++ {
		var c Custom
		if c.Name, err = wire.ReadString(r); err != nil {
			return md, err
		}
		if c.Payload, err = wire.ReadBytes(r); err != nil {
			return md, err
		}
		ctx, err := wire.ReadVInt(r)
		if err != nil {
			return md, err
		}
		c.Contexts = CustomContext(ctx)
		mv, err := wire.ReadU64(r)
		if err != nil {
			return md, err
		}
		c.MinimumVersion = uint32(mv)
		md.Customs[c.Name] = c
	}

	return md, nil
}

func sortedStrKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedIndexKeys(m map[string]index.Metadata) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedTemplateKeys(m map[string]template.ComposableIndexTemplate) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedDataStreamKeys(m map[string]datastream.DataStream) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
