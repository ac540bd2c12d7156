package catalogapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cuemby/clustermeta/pkg/clusterfsm"
	"github.com/cuemby/clustermeta/pkg/discovery"
	"github.com/cuemby/clustermeta/pkg/index"
	"github.com/cuemby/clustermeta/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *clusterfsm.FSM) {
	t.Helper()
	f := clusterfsm.New(metadata.Empty())
	s := NewServer(f, nil)
	return s, f
}

func TestAPIDocumentEndpointServesJSON(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/catalog/api", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Contains(t, doc["metadata"], "cluster_uuid")
}

func TestGatewayDocumentEndpointServesJSON(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/catalog/gateway", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNodesEndpointReflectsKnownNodesRoster(t *testing.T) {
	n := discovery.New("node-1", "p1", "e1", "h1", "10.0.0.1", "10.0.0.1:9300", nil, []discovery.Role{discovery.RoleMaster}, 1)
	md, err := metadata.NewBuilder(metadata.Empty()).PutNode(n).Build()
	require.NoError(t, err)

	s := NewServer(clusterfsm.New(md), nil)
	req := httptest.NewRequest(http.MethodGet, "/catalog/nodes", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var nodes []discovery.Node
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, "e1", nodes[0].EphemeralID)
}

func TestDiffEndpointReturnsNotFoundWithoutHistory(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/catalog/diff", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiffEndpointReflectsTrackedChange(t *testing.T) {
	s, f := newTestServer(t)
	s.Track()

	idx := index.Metadata{
		Index:            index.Identity{Name: "orders", UUID: "u1"},
		NumberOfShards:   1,
		NumberOfReplicas: 0,
		State:            index.Open,
	}
	next, err := metadata.NewBuilder(f.State()).PutIndex(idx, true).Build()
	require.NoError(t, err)
	f2 := clusterfsm.New(next)
	s2 := NewServer(f2, nil)
	s2.history = s.history
	s2.Track()

	req := httptest.NewRequest(http.MethodGet, "/catalog/diff", nil)
	rec := httptest.NewRecorder()
	s2.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var diff map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diff))
	assert.True(t, diff["VersionChanged"].(bool))
}
