package snapshot

import (
	"io"
	"sort"

	"github.com/cuemby/clustermeta/pkg/wire"
)

// WriteTo serializes e per the snapshots-in-progress wire layout: snapshot
// identity, includeGlobalState, partial, state byte, indices, startTime,
// shards map, repositoryStateId, failure, userMetadata, version,
// dataStreams, source (clone gate), clones map, featureStates.
func (e Entry) WriteTo(w io.Writer, peerVersion wire.Version) error {
	if err := wire.WriteString(w, e.Snapshot.Repository); err != nil {
		return err
	}
	if err := wire.WriteString(w, e.Snapshot.Snapshot); err != nil {
		return err
	}
	if err := wire.WriteBool(w, e.IncludeGlobalState); err != nil {
		return err
	}
	if err := wire.WriteBool(w, e.Partial); err != nil {
		return err
	}
	if err := wire.WriteVInt(w, int(e.State)); err != nil {
		return err
	}
	if err := wire.WriteVInt(w, len(e.Indices)); err != nil {
		return err
	}
	for _, idx := range e.Indices {
		if err := wire.WriteString(w, idx.Name); err != nil {
			return err
		}
		if err := wire.WriteString(w, idx.UUID); err != nil {
			return err
		}
	}
	if err := wire.WriteI64(w, e.StartTime); err != nil {
		return err
	}

	shardIDs := sortedShardIDs(e.Shards)
	if err := wire.WriteVInt(w, len(shardIDs)); err != nil {
		return err
	}
	for _, id := range shardIDs {
		if err := writeShardID(w, id); err != nil {
			return err
		}
		if err := writeShardStatus(w, e.Shards[id]); err != nil {
			return err
		}
	}

	if err := wire.WriteI64(w, e.RepositoryStateId); err != nil {
		return err
	}
	if err := wire.WriteOptionalString(w, e.Failure); err != nil {
		return err
	}
	if err := wire.WriteStringMap(w, e.UserMetadata, sortedStringKeys(e.UserMetadata)); err != nil {
		return err
	}
	if err := wire.WriteVInt(w, e.Version); err != nil {
		return err
	}
	if err := wire.WriteStringSlice(w, e.DataStreams); err != nil {
		return err
	}

	// Clone fields are gated: an older peer (pre-VersionSnapshotClones)
	// never reads past this point, so source/clones are written last and
	// only decoded by readers that declare support for them.
	if !peerVersion.AtLeast(wire.VersionSnapshotClones) {
		return nil
	}
	if e.Source == nil {
		if err := wire.WriteBool(w, false); err != nil {
			return err
		}
	} else {
		if err := wire.WriteBool(w, true); err != nil {
			return err
		}
		if err := wire.WriteString(w, e.Source.Repository); err != nil {
			return err
		}
		if err := wire.WriteString(w, e.Source.Snapshot); err != nil {
			return err
		}
	}

	repoShardIDs := sortedRepoShardIDs(e.Clones)
	if err := wire.WriteVInt(w, len(repoShardIDs)); err != nil {
		return err
	}
	for _, id := range repoShardIDs {
		if err := writeRepoShardID(w, id); err != nil {
			return err
		}
		if err := writeShardStatus(w, e.Clones[id]); err != nil {
			return err
		}
	}
	return wire.WriteStringSlice(w, e.FeatureStates)
}

// ReadFrom deserializes an Entry written by WriteTo. Peers older than
// VersionSnapshotClones never wrote the clone fields; source is left nil
// and clones left empty, matching the backward-compatible read contract.
func ReadFrom(r wire.ByteReadReader, peerVersion wire.Version) (Entry, error) {
	var e Entry
	var err error
	if e.Snapshot.Repository, err = wire.ReadString(r); err != nil {
		return e, err
	}
	if e.Snapshot.Snapshot, err = wire.ReadString(r); err != nil {
		return e, err
	}
	if e.IncludeGlobalState, err = wire.ReadBool(r); err != nil {
		return e, err
	}
	if e.Partial, err = wire.ReadBool(r); err != nil {
		return e, err
	}
	st, err := wire.ReadVInt(r)
	if err != nil {
		return e, err
	}
	e.State = EntryState(st)

	n, err := wire.ReadVInt(r)
	if err != nil {
		return e, err
	}
	e.Indices = make([]IndexId, 0, n)
	for i := 0; i < n; i++ {
		var idx IndexId
		if idx.Name, err = wire.ReadString(r); err != nil {
			return e, err
		}
		if idx.UUID, err = wire.ReadString(r); err != nil {
			return e, err
		}
		e.Indices = append(e.Indices, idx)
	}
	if e.StartTime, err = wire.ReadI64(r); err != nil {
		return e, err
	}

	sn, err := wire.ReadVInt(r)
	if err != nil {
		return e, err
	}
	e.Shards = make(map[ShardId]ShardSnapshotStatus, sn)
	for i := 0; i < sn; i++ {
		id, err := readShardID(r)
		if err != nil {
			return e, err
		}
		st, err := readShardStatus(r)
		if err != nil {
			return e, err
		}
		e.Shards[id] = st
	}

	if e.RepositoryStateId, err = wire.ReadI64(r); err != nil {
		return e, err
	}
	if e.Failure, err = wire.ReadOptionalString(r); err != nil {
		return e, err
	}
	if e.UserMetadata, err = wire.ReadStringMap(r); err != nil {
		return e, err
	}
	if e.Version, err = wire.ReadVInt(r); err != nil {
		return e, err
	}
	if e.DataStreams, err = wire.ReadStringSlice(r); err != nil {
		return e, err
	}

	if !peerVersion.AtLeast(wire.VersionSnapshotClones) {
		return e, nil
	}

	present, err := wire.ReadBool(r)
	if err != nil {
		return e, err
	}
	if present {
		var src Identity
		if src.Repository, err = wire.ReadString(r); err != nil {
			return e, err
		}
		if src.Snapshot, err = wire.ReadString(r); err != nil {
			return e, err
		}
		e.Source = &src
	}

	cn, err := wire.ReadVInt(r)
	if err != nil {
		return e, err
	}
	e.Clones = make(map[RepositoryShardId]ShardSnapshotStatus, cn)
	for i := 0; i < cn; i++ {
		id, err := readRepoShardID(r)
		if err != nil {
			return e, err
		}
		st, err := readShardStatus(r)
		if err != nil {
			return e, err
		}
		e.Clones[id] = st
	}
	if e.FeatureStates, err = wire.ReadStringSlice(r); err != nil {
		return e, err
	}
	return e, nil
}

func writeShardID(w io.Writer, id ShardId) error {
	if err := wire.WriteString(w, id.IndexName); err != nil {
		return err
	}
	return wire.WriteVInt(w, id.Shard)
}

func readShardID(r wire.ByteReadReader) (ShardId, error) {
	var id ShardId
	var err error
	if id.IndexName, err = wire.ReadString(r); err != nil {
		return id, err
	}
	if id.Shard, err = wire.ReadVInt(r); err != nil {
		return id, err
	}
	return id, nil
}

func writeRepoShardID(w io.Writer, id RepositoryShardId) error {
	if err := wire.WriteString(w, id.IndexNameInRepository); err != nil {
		return err
	}
	return wire.WriteVInt(w, id.Shard)
}

func readRepoShardID(r wire.ByteReadReader) (RepositoryShardId, error) {
	var id RepositoryShardId
	var err error
	if id.IndexNameInRepository, err = wire.ReadString(r); err != nil {
		return id, err
	}
	if id.Shard, err = wire.ReadVInt(r); err != nil {
		return id, err
	}
	return id, nil
}

func writeShardStatus(w io.Writer, s ShardSnapshotStatus) error {
	if err := wire.WriteOptionalString(w, s.NodeID); err != nil {
		return err
	}
	if err := wire.WriteVInt(w, int(s.State)); err != nil {
		return err
	}
	if err := wire.WriteOptionalString(w, s.Generation); err != nil {
		return err
	}
	if err := wire.WriteOptionalString(w, s.Reason); err != nil {
		return err
	}
	if s.State != ShardSuccess || s.Result == nil {
		return wire.WriteBool(w, false)
	}
	if err := wire.WriteBool(w, true); err != nil {
		return err
	}
	if err := wire.WriteString(w, s.Result.Generation); err != nil {
		return err
	}
	if err := wire.WriteI64(w, s.Result.Size); err != nil {
		return err
	}
	return wire.WriteVInt(w, s.Result.SegmentCount)
}

func readShardStatus(r wire.ByteReadReader) (ShardSnapshotStatus, error) {
	var s ShardSnapshotStatus
	var err error
	if s.NodeID, err = wire.ReadOptionalString(r); err != nil {
		return s, err
	}
	st, err := wire.ReadVInt(r)
	if err != nil {
		return s, err
	}
	s.State = ShardState(st)
	if s.Generation, err = wire.ReadOptionalString(r); err != nil {
		return s, err
	}
	if s.Reason, err = wire.ReadOptionalString(r); err != nil {
		return s, err
	}
	present, err := wire.ReadBool(r)
	if err != nil {
		return s, err
	}
	if present {
		var res ShardSnapshotResult
		if res.Generation, err = wire.ReadString(r); err != nil {
			return s, err
		}
		if res.Size, err = wire.ReadI64(r); err != nil {
			return s, err
		}
		if res.SegmentCount, err = wire.ReadVInt(r); err != nil {
			return s, err
		}
		s.Result = &res
	}
	return s, nil
}

func sortedShardIDs(m map[ShardId]ShardSnapshotStatus) []ShardId {
	out := make([]ShardId, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IndexName != out[j].IndexName {
			return out[i].IndexName < out[j].IndexName
		}
		return out[i].Shard < out[j].Shard
	})
	return out
}

func sortedRepoShardIDs(m map[RepositoryShardId]ShardSnapshotStatus) []RepositoryShardId {
	out := make([]RepositoryShardId, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IndexNameInRepository != out[j].IndexNameInRepository {
			return out[i].IndexNameInRepository < out[j].IndexNameInRepository
		}
		return out[i].Shard < out[j].Shard
	})
	return out
}

func sortedStringKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
