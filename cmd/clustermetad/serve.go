package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cuemby/clustermeta/pkg/catalogapi"
	"github.com/cuemby/clustermeta/pkg/clog"
	"github.com/cuemby/clustermeta/pkg/clusterfsm"
	"github.com/cuemby/clustermeta/pkg/discovery"
	"github.com/cuemby/clustermeta/pkg/localstate"
	"github.com/cuemby/clustermeta/pkg/metadata"
	"github.com/cuemby/clustermeta/pkg/metrics"
	"github.com/google/uuid"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a single-node clustermeta demo server",
	Long: `Boots a one-node Raft group fronting a cluster metadata catalog
and serves the read-only catalog API alongside it. Not a production
deployment topology — it exists to exercise the FSM end-to-end.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("config", "", "Path to a YAML bootstrap config")
	serveCmd.Flags().String("node-id", "", "Override node_id from config")
	serveCmd.Flags().String("bind-addr", "", "Override bind_addr from config")
	serveCmd.Flags().String("api-addr", "", "Override api_addr from config")
	serveCmd.Flags().String("data-dir", "", "Override data_dir from config")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	applyOverride(cmd, "node-id", &cfg.NodeID)
	applyOverride(cmd, "bind-addr", &cfg.BindAddr)
	applyOverride(cmd, "api-addr", &cfg.APIAddr)
	applyOverride(cmd, "data-dir", &cfg.DataDir)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	local, err := localstate.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open local state: %w", err)
	}
	defer local.Close()
	persistentNodeID, err := local.PersistentNodeID()
	if err != nil {
		return fmt.Errorf("load persistent node id: %w", err)
	}

	fsm := clusterfsm.New(metadata.Empty())

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)

	addr, err := net.ResolveTCPAddr("tcp", cfg.BindAddr)
	if err != nil {
		return fmt.Errorf("resolve bind-addr: %w", err)
	}
	transport, err := raft.NewTCPTransport(cfg.BindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return fmt.Errorf("create transport: %w", err)
	}

	snapshots, err := raft.NewFileSnapshotStore(cfg.DataDir, 2, os.Stderr)
	if err != nil {
		return fmt.Errorf("create snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-log.bolt"))
	if err != nil {
		return fmt.Errorf("create log store: %w", err)
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-stable.bolt"))
	if err != nil {
		return fmt.Errorf("create stable store: %w", err)
	}

	r, err := raft.NewRaft(raftCfg, fsm, logStore, stableStore, snapshots, transport)
	if err != nil {
		return fmt.Errorf("create raft node: %w", err)
	}

	if cfg.Bootstrap {
		bootstrapCfg := raft.Configuration{
			Servers: []raft.Server{
				{ID: raftCfg.LocalID, Address: transport.LocalAddr()},
			},
		}
		for _, peer := range cfg.Peers {
			bootstrapCfg.Servers = append(bootstrapCfg.Servers, raft.Server{
				ID:      raft.ServerID(peer),
				Address: raft.ServerAddress(peer),
			})
		}
		f := r.BootstrapCluster(bootstrapCfg)
		if err := f.Error(); err != nil && err != raft.ErrCantBootstrap {
			return fmt.Errorf("bootstrap cluster: %w", err)
		}
	}

	metrics.SetVersion(Version)
	metrics.RegisterComponent("raft", true, "started")
	metrics.RegisterComponent("catalogapi", true, "started")

	announceLocalNode(r, cfg, persistentNodeID)

	server := catalogapi.NewServer(fsm, r)
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.APIAddr); err != nil {
			errCh <- fmt.Errorf("catalog API server error: %w", err)
		}
	}()

	clog.Logger.Info().
		Str("cluster", cfg.ClusterName).
		Str("node_id", cfg.NodeID).
		Str("bind_addr", cfg.BindAddr).
		Str("api_addr", cfg.APIAddr).
		Msg("clustermetad serving")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		clog.Logger.Info().Msg("shutting down")
	case err := <-errCh:
		clog.Logger.Error().Err(err).Msg("server error")
	}

	if err := r.Shutdown().Error(); err != nil {
		return fmt.Errorf("raft shutdown: %w", err)
	}
	return nil
}

// announceLocalNode waits for this process to observe Raft leadership, then
// applies a put_node command recording its own discovery identity in the
// known-nodes roster. Membership discovery is out of scope here; this only
// publishes the shape of what gets agreed upon once a node has joined.
func announceLocalNode(r *raft.Raft, cfg bootstrapConfig, persistentNodeID string) {
	hostName, _ := os.Hostname()
	node := discovery.New(
		cfg.NodeID, persistentNodeID, uuid.New().String(),
		hostName, cfg.BindAddr, cfg.BindAddr,
		nil,
		[]discovery.Role{discovery.RoleMaster, discovery.RoleData},
		1,
	)

	go func() {
		deadline := time.Now().Add(30 * time.Second)
		for time.Now().Before(deadline) {
			if r.State() == raft.Leader {
				break
			}
			time.Sleep(200 * time.Millisecond)
		}
		if r.State() != raft.Leader {
			return
		}
		data, err := json.Marshal(node)
		if err != nil {
			clog.Logger.Warn().Err(err).Msg("marshal local node announcement")
			return
		}
		cmd := clusterfsm.Command{Op: clusterfsm.OpPutNode, Data: data}
		payload, err := json.Marshal(cmd)
		if err != nil {
			clog.Logger.Warn().Err(err).Msg("marshal node announcement command")
			return
		}
		if err := r.Apply(payload, 5*time.Second).Error(); err != nil {
			clog.Logger.Warn().Err(err).Msg("announce local node")
			return
		}
		clog.Logger.Info().Str("ephemeral_id", node.EphemeralID).Msg("local node announced")
	}()
}

func applyOverride(cmd *cobra.Command, flag string, dst *string) {
	v, _ := cmd.Flags().GetString(flag)
	if v != "" {
		*dst = v
	}
}
