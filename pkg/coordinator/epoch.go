package coordinator

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	"github.com/rs/zerolog"

	"github.com/supervm/txcore/pkg/log"
)

// EpochAuthority elects a single coordinator leader via Raft and hands out
// a monotonically increasing epoch on each leader incarnation, per
// spec.md §9. It is grounded on the teacher's Manager.Bootstrap wiring,
// scoped down to the epochFSM this coordinator needs instead of the full
// cluster state machine.
type EpochAuthority struct {
	nodeID  string
	dataDir string

	raft   *raft.Raft
	fsm    *epochFSM
	logger zerolog.Logger
}

// EpochAuthorityConfig configures a single-node or joinable raft group
// backing the coordinator epoch.
type EpochAuthorityConfig struct {
	NodeID   string
	BindAddr string
	DataDir  string

	// Timeouts mirror the teacher's edge/LAN tuning: fast failure
	// detection over the conservative hashicorp/raft WAN defaults.
	HeartbeatTimeout   time.Duration
	ElectionTimeout    time.Duration
	CommitTimeout      time.Duration
	LeaderLeaseTimeout time.Duration
}

func (c EpochAuthorityConfig) withDefaults() EpochAuthorityConfig {
	if c.HeartbeatTimeout == 0 {
		c.HeartbeatTimeout = 500 * time.Millisecond
	}
	if c.ElectionTimeout == 0 {
		c.ElectionTimeout = 500 * time.Millisecond
	}
	if c.CommitTimeout == 0 {
		c.CommitTimeout = 50 * time.Millisecond
	}
	if c.LeaderLeaseTimeout == 0 {
		c.LeaderLeaseTimeout = 250 * time.Millisecond
	}
	return c
}

// NewEpochAuthority wires a raft.Raft instance over raft-boltdb log/stable
// stores and a file snapshot store, with the epochFSM as its state
// machine, then bootstraps a single-node cluster.
func NewEpochAuthority(cfg EpochAuthorityConfig) (*EpochAuthority, error) {
	cfg = cfg.withDefaults()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("epoch authority: create data dir: %w", err)
	}

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)
	raftCfg.HeartbeatTimeout = cfg.HeartbeatTimeout
	raftCfg.ElectionTimeout = cfg.ElectionTimeout
	raftCfg.CommitTimeout = cfg.CommitTimeout
	raftCfg.LeaderLeaseTimeout = cfg.LeaderLeaseTimeout

	addr, err := net.ResolveTCPAddr("tcp", cfg.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("epoch authority: resolve bind address: %w", err)
	}
	transport, err := raft.NewTCPTransport(cfg.BindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("epoch authority: create transport: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStore(cfg.DataDir, 2, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("epoch authority: create snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "epoch-raft-log.db"))
	if err != nil {
		return nil, fmt.Errorf("epoch authority: create log store: %w", err)
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "epoch-raft-stable.db"))
	if err != nil {
		return nil, fmt.Errorf("epoch authority: create stable store: %w", err)
	}

	fsm := &epochFSM{}
	r, err := raft.NewRaft(raftCfg, fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, fmt.Errorf("epoch authority: create raft: %w", err)
	}

	configuration := raft.Configuration{
		Servers: []raft.Server{
			{ID: raftCfg.LocalID, Address: transport.LocalAddr()},
		},
	}
	if err := r.BootstrapCluster(configuration).Error(); err != nil && err != raft.ErrCantBootstrap {
		return nil, fmt.Errorf("epoch authority: bootstrap cluster: %w", err)
	}

	return &EpochAuthority{
		nodeID:  cfg.NodeID,
		dataDir: cfg.DataDir,
		raft:    r,
		fsm:     fsm,
		logger:  log.WithComponent("coordinator-epoch"),
	}, nil
}

// IsLeader reports whether this node currently holds the raft leadership.
func (a *EpochAuthority) IsLeader() bool {
	return a.raft.State() == raft.Leader
}

// CurrentEpoch returns the last epoch value applied to the local FSM.
// Safe to call from any node; followers see the epoch as of their last
// applied log entry.
func (a *EpochAuthority) CurrentEpoch() uint64 {
	return a.fsm.current()
}

// BumpEpoch proposes a new epoch through Raft consensus, only succeeding
// on the current leader. The returned epoch is the new value once the
// log entry has been applied.
func (a *EpochAuthority) BumpEpoch(timeout time.Duration) (uint64, error) {
	if !a.IsLeader() {
		return 0, fmt.Errorf("epoch authority: not leader")
	}

	data, err := encodeEpochCommand(epochCommand{Op: "bump_epoch"})
	if err != nil {
		return 0, err
	}

	future := a.raft.Apply(data, timeout)
	if err := future.Error(); err != nil {
		return 0, fmt.Errorf("epoch authority: apply bump: %w", err)
	}

	resp := future.Response()
	if err, ok := resp.(error); ok {
		return 0, fmt.Errorf("epoch authority: fsm rejected bump: %w", err)
	}
	epoch, ok := resp.(uint64)
	if !ok {
		return 0, fmt.Errorf("epoch authority: unexpected fsm response %T", resp)
	}

	a.logger.Info().Str("node_id", a.nodeID).Uint64("epoch", epoch).Msg("coordinator epoch bumped")
	return epoch, nil
}

// Shutdown releases the underlying raft instance.
func (a *EpochAuthority) Shutdown() error {
	return a.raft.Shutdown().Error()
}
