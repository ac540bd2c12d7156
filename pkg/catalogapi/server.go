// Package catalogapi exposes a read-only HTTP surface over a cluster
// metadata root: API/GATEWAY/SNAPSHOT documents, a diff endpoint, and the
// health/readiness/metrics trio the teacher wires onto every long-running
// component.
package catalogapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cuemby/clustermeta/pkg/clog"
	"github.com/cuemby/clustermeta/pkg/clusterfsm"
	"github.com/cuemby/clustermeta/pkg/docformat"
	"github.com/cuemby/clustermeta/pkg/metadata"
	"github.com/cuemby/clustermeta/pkg/metrics"
	"github.com/hashicorp/raft"
)

// Server serves the read-only catalog surface for one FSM.
type Server struct {
	fsm     *clusterfsm.FSM
	raft    *raft.Raft
	mux     *http.ServeMux
	history *history
}

// NewServer builds a Server. raftHandle may be nil outside a live cluster
// (e.g. in tests that serve a bare FSM).
func NewServer(fsm *clusterfsm.FSM, raftHandle *raft.Raft) *Server {
	s := &Server{
		fsm:     fsm,
		raft:    raftHandle,
		mux:     http.NewServeMux(),
		history: newHistory(16),
	}

	s.mux.HandleFunc("/catalog/api", s.handleDocument(docformat.API))
	s.mux.HandleFunc("/catalog/gateway", s.handleDocument(docformat.Gateway))
	s.mux.HandleFunc("/catalog/snapshot", s.handleDocument(docformat.Snapshot))
	s.mux.HandleFunc("/catalog/diff", s.handleDiff)
	s.mux.HandleFunc("/catalog/nodes", s.handleNodes)
	s.mux.HandleFunc("/health", metrics.HealthHandler())
	s.mux.HandleFunc("/ready", s.handleReady)
	s.mux.Handle("/metrics", metrics.Handler())

	return s
}

// Handler returns the HTTP handler for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the server until it errors or the process is killed.
func (s *Server) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	clog.Logger.Info().Str("addr", addr).Msg("catalogapi listening")
	return server.ListenAndServe()
}

// Track records the current state into the diff history. Call this after
// every successfully applied FSM command so /catalog/diff has something to
// compare against.
func (s *Server) Track() {
	s.history.push(s.fsm.State())
}

func (s *Server) handleDocument(mode docformat.ContextMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		label := modeLabel(mode)
		timer := metrics.NewTimer()
		md := s.fsm.State()
		doc := docformat.ToDocument(md, mode)
		timer.ObserveDurationVec(metrics.APIRequestDuration, label)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(doc); err != nil {
			metrics.APIRequestsTotal.WithLabelValues(label, "error").Inc()
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		metrics.APIRequestsTotal.WithLabelValues(label, "ok").Inc()
	}
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stepsParam := r.URL.Query().Get("steps")
	steps := 1
	if stepsParam != "" {
		if n, err := strconv.Atoi(stepsParam); err == nil && n > 0 {
			steps = n
		}
	}

	prev, curr, ok := s.history.lookback(steps)
	if !ok {
		http.Error(w, "not enough history", http.StatusNotFound)
		return
	}

	diff := metadata.DiffAgainst(prev, curr)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(diff)
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	roster, err := s.fsm.State().KnownNodes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(roster.Sorted())
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.raft != nil {
		leader := s.raft.State() == raft.Leader
		metrics.UpdateComponent("raft", leader || s.raft.Leader() != "", "")
	}
	metrics.ReadyHandler()(w, r)
}

func modeLabel(mode docformat.ContextMode) string {
	switch mode {
	case docformat.API:
		return "api"
	case docformat.Gateway:
		return "gateway"
	case docformat.Snapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}
