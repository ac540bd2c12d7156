// Package clusterfsm adapts pkg/metadata.Builder to hashicorp/raft's FSM
// interface: committed log entries carry a Command that Apply decodes and
// runs through a Builder, and Snapshot/Restore round-trip the whole root
// through the GATEWAY document.
package clusterfsm

import "encoding/json"

// Command is one state-change operation in the raft log, grounded on the
// teacher's op/data envelope.
type Command struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

// Recognized operation names.
const (
	OpPutIndex              = "put_index"
	OpRemoveIndex           = "remove_index"
	OpUpdateSettings        = "update_settings"
	OpUpdateReplicas        = "update_number_of_replicas"
	OpPutTemplate           = "put_template"
	OpPutComponentTemplate  = "put_component_template"
	OpPutDataStream         = "put_data_stream"
	OpRemoveDataStream      = "remove_data_stream"
	OpRolloverDataStream    = "rollover_data_stream"
	OpPutDataStreamAlias    = "put_data_stream_alias"
	OpPutCustom             = "put_custom"
	OpPutSnapshotEntry      = "put_snapshot_entry"
	OpRemoveSnapshotEntry   = "remove_snapshot_entry"
	OpAbortSnapshotEntry    = "abort_snapshot_entry"
	OpClusterUUID           = "cluster_uuid"
	OpIncrementVersion      = "increment_version"
	OpPutNode               = "put_node"
	OpRemoveNode            = "remove_node"
)

// RolloverData is the payload for OpRolloverDataStream.
type RolloverData struct {
	StreamName       string `json:"stream_name"`
	NewUUID          string `json:"new_uuid"`
	EpochMillis      int64  `json:"epoch_millis"`
	NumberOfShards   int    `json:"number_of_shards"`
	NumberOfReplicas int    `json:"number_of_replicas"`
}

// UpdateSettingsData is the payload for OpUpdateSettings.
type UpdateSettingsData struct {
	Indices  []string          `json:"indices"`
	Settings map[string]string `json:"settings"`
}

// UpdateReplicasData is the payload for OpUpdateReplicas.
type UpdateReplicasData struct {
	Indices          []string `json:"indices"`
	NumberOfReplicas int      `json:"number_of_replicas"`
}

// RemoveSnapshotEntryData identifies an in-progress snapshot to drop.
type RemoveSnapshotEntryData struct {
	Repository string `json:"repository"`
	Snapshot   string `json:"snapshot"`
}
