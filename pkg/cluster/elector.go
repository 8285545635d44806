package cluster

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/dd214pipeline/pkg/log"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// Config holds configuration for a single Elector node.
type Config struct {
	NodeID   string
	BindAddr string
	DataDir  string
}

// Peer is another node participating in leader election.
type Peer struct {
	NodeID string
	Addr   string
}

// Elector wraps a Raft instance used solely for leader election: the
// orchestrator's periodic TTL sweep (see pkg/orchestrator) only runs on
// whichever process currently holds leadership, so a deployment can run
// several worker processes for availability without two of them racing
// to delete the same expired records.
//
// It intentionally never calls raft.Apply — there is no replicated log
// of application commands, only the leader election protocol raft
// itself runs internally.
type Elector struct {
	nodeID   string
	bindAddr string
	dataDir  string
	raft     *raft.Raft
}

// NewElector creates a new Elector. Call Bootstrap for the first node in
// a deployment, or Join to add a node to an existing one.
func NewElector(cfg Config) (*Elector, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Elector{
		nodeID:   cfg.NodeID,
		bindAddr: cfg.BindAddr,
		dataDir:  cfg.DataDir,
	}, nil
}

func (e *Elector) newRaft() (*raft.Raft, *raft.TCPTransport, error) {
	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID(e.nodeID)

	// Tuned for fast leadership detection on a LAN/single-region
	// deployment; the TTL sweep tolerates a few seconds of double-idle
	// during failover far better than it tolerates slow detection.
	config.HeartbeatTimeout = 500 * time.Millisecond
	config.ElectionTimeout = 500 * time.Millisecond
	config.CommitTimeout = 50 * time.Millisecond
	config.LeaderLeaseTimeout = 250 * time.Millisecond

	addr, err := net.ResolveTCPAddr("tcp", e.bindAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve bind address: %w", err)
	}

	transport, err := raft.NewTCPTransport(e.bindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create transport: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStore(e.dataDir, 2, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(e.dataDir, "raft-log.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log store: %w", err)
	}

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(e.dataDir, "raft-stable.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stable store: %w", err)
	}

	r, err := raft.NewRaft(config, &noopFSM{}, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create raft: %w", err)
	}

	return r, transport, nil
}

// Bootstrap initializes a new single-node cluster, optionally seeded
// with the other peers that will join it.
func (e *Elector) Bootstrap(peers []Peer) error {
	r, transport, err := e.newRaft()
	if err != nil {
		return err
	}
	e.raft = r

	servers := []raft.Server{
		{ID: raft.ServerID(e.nodeID), Address: transport.LocalAddr()},
	}
	for _, p := range peers {
		servers = append(servers, raft.Server{ID: raft.ServerID(p.NodeID), Address: raft.ServerAddress(p.Addr)})
	}

	future := e.raft.BootstrapCluster(raft.Configuration{Servers: servers})
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to bootstrap cluster: %w", err)
	}

	log.WithComponent("cluster").Info().Str("node_id", e.nodeID).Msg("leader election bootstrapped")
	return nil
}

// Join starts this node's raft instance so it can be added to an
// existing cluster via AddVoter on the current leader. The caller is
// responsible for invoking AddVoter against the leader out of band.
func (e *Elector) Join() error {
	r, _, err := e.newRaft()
	if err != nil {
		return err
	}
	e.raft = r
	return nil
}

// IsLeader reports whether this node currently holds leadership.
func (e *Elector) IsLeader() bool {
	if e.raft == nil {
		return false
	}
	return e.raft.State() == raft.Leader
}

// PeerCount returns the number of servers in the current configuration.
func (e *Elector) PeerCount() int {
	if e.raft == nil {
		return 0
	}
	future := e.raft.GetConfiguration()
	if err := future.Error(); err != nil {
		return 0
	}
	return len(future.Configuration().Servers)
}

// AddVoter adds a new peer to the cluster. Must be called against the
// current leader.
func (e *Elector) AddVoter(nodeID, addr string) error {
	if !e.IsLeader() {
		return fmt.Errorf("AddVoter must be called on the leader")
	}
	future := e.raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(addr), 0, 0)
	return future.Error()
}

// Shutdown stops the raft instance.
func (e *Elector) Shutdown() error {
	if e.raft == nil {
		return nil
	}
	return e.raft.Shutdown().Error()
}
