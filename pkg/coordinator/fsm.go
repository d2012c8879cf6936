package coordinator

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/raft"
)

// epochFSM is a minimal Raft FSM whose only state is a monotonically
// increasing coordinator epoch, bumped once per leader incarnation. It is
// grounded on the teacher's WarrenFSM Apply/Snapshot/Restore shape, scoped
// down to the one counter this coordinator needs, per spec.md §9: "every
// prepare/commit carries coordinator_epoch so that a recovered
// coordinator does not clash with in-flight messages from a prior
// incarnation."
type epochFSM struct {
	mu    sync.RWMutex
	epoch uint64
}

// epochCommand is the sole Raft log entry type this FSM understands.
type epochCommand struct {
	Op string `json:"op"` // always "bump_epoch"
}

func (f *epochFSM) Apply(log *raft.Log) any {
	var cmd epochCommand
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("epoch fsm: unmarshal: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Op {
	case "bump_epoch":
		f.epoch++
		return f.epoch
	default:
		return fmt.Errorf("epoch fsm: unknown op %q", cmd.Op)
	}
}

func encodeEpochCommand(cmd epochCommand) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("epoch fsm: marshal command: %w", err)
	}
	return data, nil
}

func (f *epochFSM) current() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.epoch
}

func (f *epochFSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return &epochSnapshot{Epoch: f.epoch}, nil
}

func (f *epochFSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	var snap epochSnapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return fmt.Errorf("epoch fsm: restore: %w", err)
	}
	f.mu.Lock()
	f.epoch = snap.Epoch
	f.mu.Unlock()
	return nil
}

type epochSnapshot struct {
	Epoch uint64 `json:"epoch"`
}

func (s *epochSnapshot) Persist(sink raft.SnapshotSink) error {
	if err := json.NewEncoder(sink).Encode(s); err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *epochSnapshot) Release() {}
