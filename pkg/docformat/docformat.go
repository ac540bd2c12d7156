// Package docformat implements the structured, human-readable document
// serialization of a catalog root: a self-describing key/value tree gated
// by a context mode (API, GATEWAY, SNAPSHOT), plus the legacy type-wrapped
// mapping quirk that the wire format must preserve bit-for-bit.
package docformat

import (
	"github.com/cuemby/clustermeta/pkg/datastream"
	"github.com/cuemby/clustermeta/pkg/index"
	"github.com/cuemby/clustermeta/pkg/mapping"
	"github.com/cuemby/clustermeta/pkg/metadata"
	"github.com/cuemby/clustermeta/pkg/metaerr"
	"github.com/cuemby/clustermeta/pkg/template"
)

// ContextMode selects which view of the root a document renders.
type ContextMode int

const (
	// API is a caller-facing read of the cluster state.
	API ContextMode = iota
	// Gateway is the full-fidelity on-disk persistence snapshot.
	Gateway
	// Snapshot is the subset embedded in a snapshot's global-state file.
	Snapshot
)

func (c ContextMode) custom() metadata.CustomContext {
	switch c {
	case API:
		return metadata.ContextAPI
	case Gateway:
		return metadata.ContextGateway
	case Snapshot:
		return metadata.ContextSnapshot
	}
	return 0
}

// legacyMappingTypeKey is the dummy type name an index's mapping body is
// nested under in a structured document, a carryover from the multi-type
// mapping era that newer mapping bodies never actually use. Template
// documents carry no mapping body, so this wrapper is not applied to them.
const legacyMappingTypeKey = "_doc"

// Node is one key/value tree, matching the shape encoding/json already
// produces for map[string]interface{} but kept as a named type so document
// construction reads as building a tree, not assembling arbitrary JSON.
type Node = map[string]interface{}

// ToDocument renders md as a structured document for the given context.
// Only customs whose Contexts bitmask includes mode are emitted; GATEWAY
// names its root object "meta-data" (the other modes use "metadata"). Every
// mode carries the version field.
func ToDocument(md metadata.Metadata, mode ContextMode) Node {
	root := Node{}
	body := Node{
		"cluster_uuid":           md.ClusterUUID,
		"cluster_uuid_committed": md.ClusterUUIDCommitted,
		"version":                md.Version,
		"transient_settings":     copyStringMap(md.TransientSettings),
		"persistent_settings":    copyStringMap(md.PersistentSettings),
	}

	indices := Node{}
	for name, idx := range md.Indices {
		indices[name] = indexToDocument(idx, md.MappingPool)
	}
	body["indices"] = indices

	templates := Node{}
	for name, t := range md.Templates {
		templates[name] = templateToDocument(t)
	}
	body["index_templates"] = templates

	streams := Node{}
	for name, ds := range md.DataStreams {
		streams[name] = dataStreamToDocument(ds)
	}
	body["data_stream"] = streams

	customs := Node{}
	want := mode.custom()
	for name, c := range md.Customs {
		if c.Contexts.Has(want) {
			customs[name] = map[string]interface{}{
				"payload": string(c.Payload),
			}
		}
	}
	body["customs"] = customs

	if mode == Gateway {
		root["meta-data"] = body
	} else {
		root["metadata"] = body
	}
	return root
}

// FromGatewayDocument parses a GATEWAY document back into a Metadata. It
// reads back the cluster uuid and its committed flag, the version, the
// transient and persistent settings, indices, composable templates, data
// streams and customs. The document carries no component templates,
// data-stream aliases, coordination metadata, consistent-setting hashes or
// snapshots in progress, so these come back empty; templates keep only
// name, index_patterns, composed_of and priority; indices come back without
// creation/compatibility versions, settings/aliases versions or per-index
// customs; data streams come back without their Metadata; customs come back
// with ContextGateway only and MinimumVersion 0. Non-GATEWAY documents omit
// fields this function needs and are not accepted.
func FromGatewayDocument(doc Node) (metadata.Metadata, error) {
	body, ok := doc["meta-data"].(Node)
	if !ok {
		return metadata.Metadata{}, metaerr.InvalidInputf("document is not a GATEWAY document: missing meta-data root")
	}

	b := metadata.NewEmptyBuilder()
	if uuid, ok := body["cluster_uuid"].(string); ok {
		b.ClusterUUID(uuid)
	}
	if committed, ok := body["cluster_uuid_committed"].(bool); ok {
		b.ClusterUUIDCommitted(committed)
	}
	if s, ok := body["transient_settings"].(Node); ok {
		b.TransientSettings(toStringMap(s))
	}
	if s, ok := body["persistent_settings"].(Node); ok {
		b.PersistentSettings(toStringMap(s))
	}

	if indices, ok := body["indices"].(Node); ok {
		for _, raw := range indices {
			idxDoc, ok := raw.(Node)
			if !ok {
				continue
			}
			idx, err := indexFromDocument(idxDoc)
			if err != nil {
				return metadata.Metadata{}, err
			}
			b.PutIndex(idx, false)
		}
	}

	if templates, ok := body["index_templates"].(Node); ok {
		for _, raw := range templates {
			tDoc, ok := raw.(Node)
			if !ok {
				continue
			}
			t, err := templateFromDocument(tDoc)
			if err != nil {
				return metadata.Metadata{}, err
			}
			b.PutTemplate(t)
		}
	}

	if streams, ok := body["data_stream"].(Node); ok {
		for _, raw := range streams {
			sDoc, ok := raw.(Node)
			if !ok {
				continue
			}
			ds, err := dataStreamFromDocument(sDoc)
			if err != nil {
				return metadata.Metadata{}, err
			}
			b.PutDataStream(ds)
		}
	}

	if customs, ok := body["customs"].(Node); ok {
		for name, raw := range customs {
			cDoc, ok := raw.(Node)
			if !ok {
				continue
			}
			payload, _ := cDoc["payload"].(string)
			b.PutCustom(metadata.Custom{Name: name, Payload: []byte(payload), Contexts: metadata.ContextGateway})
		}
	}

	if v, ok := body["version"]; ok {
		if fv, ok := toUint64(v); ok {
			b.Version(fv)
		}
	}

	return b.Build()
}

func indexToDocument(idx index.Metadata, pool mapping.Pool) Node {
	doc := Node{
		"index_name":        idx.Index.Name,
		"index_uuid":        idx.Index.UUID,
		"number_of_shards":  idx.NumberOfShards,
		"number_of_replicas": idx.NumberOfReplicas,
		"state":             idx.State.String(),
		"version":           idx.Version,
		"hidden":            idx.Hidden,
		"system":            idx.System,
		"settings":          copyStringMap(idx.Settings),
	}
	aliases := Node{}
	for name, a := range idx.Aliases {
		aliases[name] = aliasToDocument(a)
	}
	doc["aliases"] = aliases

	if idx.MappingHash != "" {
		if mm, ok := pool.Get(idx.MappingHash); ok {
			doc["mappings"] = wrapLegacyMapping(mm.Source())
		}
	}
	return doc
}

func indexFromDocument(doc Node) (index.Metadata, error) {
	m := index.Metadata{}
	m.Index.Name, _ = doc["index_name"].(string)
	m.Index.UUID, _ = doc["index_uuid"].(string)
	m.NumberOfShards = toInt(doc["number_of_shards"])
	m.NumberOfReplicas = toInt(doc["number_of_replicas"])
	if s, ok := doc["state"].(string); ok && s == "closed" {
		m.State = index.Closed
	}
	if v, ok := toUint64(doc["version"]); ok {
		m.Version = int64(v)
	}
	m.Hidden, _ = doc["hidden"].(bool)
	m.System, _ = doc["system"].(bool)
	if s, ok := doc["settings"].(Node); ok {
		m.Settings = toStringMap(s)
	} else {
		m.Settings = map[string]string{}
	}
	m.Aliases = map[string]index.Alias{}
	if aliases, ok := doc["aliases"].(Node); ok {
		for name, raw := range aliases {
			if aDoc, ok := raw.(Node); ok {
				m.Aliases[name] = aliasFromDocument(name, aDoc)
			}
		}
	}
	if mappingDoc, ok := doc["mappings"].(Node); ok {
		body, err := unwrapLegacyMapping(mappingDoc)
		if err != nil {
			return m, err
		}
		m = m.WithPendingMapping(mapping.New(body))
	}
	m.Customs = map[string][]byte{}
	return m, nil
}

func aliasToDocument(a index.Alias) Node {
	doc := Node{"filter": string(a.Filter)}
	if a.WriteIndex != nil {
		doc["is_write_index"] = *a.WriteIndex
	}
	if a.Hidden != nil {
		doc["is_hidden"] = *a.Hidden
	}
	if a.IndexRouting != nil {
		doc["index_routing"] = *a.IndexRouting
	}
	if a.SearchRouting != nil {
		doc["search_routing"] = *a.SearchRouting
	}
	return doc
}

func aliasFromDocument(name string, doc Node) index.Alias {
	a := index.Alias{Name: name}
	if f, ok := doc["filter"].(string); ok && f != "" {
		a.Filter = []byte(f)
	}
	if v, ok := doc["is_write_index"].(bool); ok {
		a.WriteIndex = &v
	}
	if v, ok := doc["is_hidden"].(bool); ok {
		a.Hidden = &v
	}
	if v, ok := doc["index_routing"].(string); ok {
		a.IndexRouting = &v
	}
	if v, ok := doc["search_routing"].(string); ok {
		a.SearchRouting = &v
	}
	return a
}

func templateToDocument(t template.ComposableIndexTemplate) Node {
	doc := Node{
		"name":           t.Name,
		"index_patterns": toInterfaceSlice(t.IndexPatterns),
		"composed_of":    toInterfaceSlice(t.ComposedOf),
	}
	if t.Priority != nil {
		doc["priority"] = *t.Priority
	}
	return doc
}

func toInterfaceSlice(ss []string) []interface{} {
	out := make([]interface{}, 0, len(ss))
	for _, s := range ss {
		out = append(out, s)
	}
	return out
}

func templateFromDocument(doc Node) (template.ComposableIndexTemplate, error) {
	t := template.ComposableIndexTemplate{}
	t.Name, _ = doc["name"].(string)
	if v, ok := toInt64(doc["priority"]); ok {
		t.Priority = &v
	}
	if patterns, ok := doc["index_patterns"].([]interface{}); ok {
		for _, p := range patterns {
			if s, ok := p.(string); ok {
				t.IndexPatterns = append(t.IndexPatterns, s)
			}
		}
	}
	if composed, ok := doc["composed_of"].([]interface{}); ok {
		for _, c := range composed {
			if s, ok := c.(string); ok {
				t.ComposedOf = append(t.ComposedOf, s)
			}
		}
	}
	return t, nil
}

func dataStreamToDocument(ds datastream.DataStream) Node {
	backing := make([]interface{}, 0, len(ds.BackingIndices))
	for _, b := range ds.BackingIndices {
		backing = append(backing, Node{"index_name": b.Name, "index_uuid": b.UUID})
	}
	return Node{
		"name":                 ds.Name,
		"generation":           ds.Generation,
		"hidden":               ds.Hidden,
		"replicated":           ds.Replicated,
		"system":               ds.System,
		"allow_custom_routing": ds.AllowCustomRouting,
		"indices":              backing,
	}
}

func dataStreamFromDocument(doc Node) (datastream.DataStream, error) {
	ds := datastream.DataStream{}
	ds.Name, _ = doc["name"].(string)
	if g, ok := toUint64(doc["generation"]); ok {
		ds.Generation = g
	}
	ds.Hidden, _ = doc["hidden"].(bool)
	ds.Replicated, _ = doc["replicated"].(bool)
	ds.System, _ = doc["system"].(bool)
	ds.AllowCustomRouting, _ = doc["allow_custom_routing"].(bool)
	if indices, ok := doc["indices"].([]interface{}); ok {
		for _, raw := range indices {
			if iDoc, ok := raw.(Node); ok {
				name, _ := iDoc["index_name"].(string)
				uuid, _ := iDoc["index_uuid"].(string)
				ds.BackingIndices = append(ds.BackingIndices, datastream.BackingIndex{Name: name, UUID: uuid})
			}
		}
	}
	return ds, nil
}

// wrapLegacyMapping nests body under the reserved "_doc" type key, a quirk
// preserved bit-for-bit for on-wire compatibility with older readers that
// still expect a multi-type mapping envelope.
func wrapLegacyMapping(body []byte) Node {
	return Node{legacyMappingTypeKey: Node{"_raw": string(body)}}
}

// unwrapLegacyMapping reverses wrapLegacyMapping (reduce_mappings mode).
func unwrapLegacyMapping(doc Node) ([]byte, error) {
	inner, ok := doc[legacyMappingTypeKey].(Node)
	if !ok {
		return nil, metaerr.InvalidInputf("mapping document missing legacy type wrapper %q", legacyMappingTypeKey)
	}
	raw, _ := inner["_raw"].(string)
	return []byte(raw), nil
}

func copyStringMap(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toStringMap(m Node) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func toUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case int:
		return uint64(n), true
	case int64:
		return uint64(n), true
	case uint64:
		return n, true
	case float64:
		return uint64(n), true
	}
	return 0, false
}
