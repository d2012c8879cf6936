package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/supervm/txcore/pkg/config"
	"github.com/supervm/txcore/pkg/coordinator"
	"github.com/supervm/txcore/pkg/metrics"
	"github.com/supervm/txcore/pkg/mvcc"
	"github.com/supervm/txcore/pkg/ownership"
	"github.com/supervm/txcore/pkg/types"
)

var benchTwoPCCmd = &cobra.Command{
	Use:   "two-pc",
	Short: "Run a batch of cross-shard transactions with an injected stale-read abort",
	RunE:  runBenchTwoPC,
}

func init() {
	benchTwoPCCmd.Flags().Int("txns", 200, "number of cross-shard transactions to submit")
}

func runBenchTwoPC(cmd *cobra.Command, args []string) error {
	txns, _ := cmd.Flags().GetInt("txns")

	cfg := config.Default()
	cfg.Coordinator.NumShards = 4
	cfg.Coordinator.TimeoutMillis = 1000

	regs := make(map[uint16]*ownership.Registry, cfg.Coordinator.NumShards)
	participants := make(map[uint16]*coordinator.Participant, cfg.Coordinator.NumShards)
	for shard := uint16(0); shard < cfg.Coordinator.NumShards; shard++ {
		reg := ownership.New()
		store := mvcc.NewStore(cfg.MVCC.CommitLatchStripes, cfg.MVCC.MaxVersionsPerKey)
		regs[shard] = reg
		participants[shard] = coordinator.NewParticipant(shard, reg, store)
	}
	transport := coordinator.NewLocalTransport(participants)

	m := metrics.NewRegistry(16)
	coord := coordinator.New(transport, nil, m, cfg.Coordinator)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	committed, aborted := 0, 0
	for i := 0; i < txns; i++ {
		idA := objectOf(byte(i % 256))
		idB := objectOf(byte((i + 1) % 256))
		shardA := coordinator.Partition(idA, cfg.Coordinator.NumShards)
		shardB := coordinator.Partition(idB, cfg.Coordinator.NumShards)

		registerIfAbsent(regs[shardA], idA)
		registerIfAbsent(regs[shardB], idB)

		readVersionB := types.Version(1)
		if i%20 == 0 {
			// Inject a stale read every 20th transaction, exercising the
			// participant-side NO vote and full-transaction abort path.
			readVersionB = 99
		}

		plans := []coordinator.ShardPlan{
			{ShardID: shardA, ReadSet: []coordinator.ObjectVersion{{ID: idA, Version: 1}}, WriteSet: []coordinator.KeyWrite{{ID: idA, Value: []byte("v")}}},
			{ShardID: shardB, ReadSet: []coordinator.ObjectVersion{{ID: idB, Version: readVersionB}}, WriteSet: []coordinator.KeyWrite{{ID: idB, Value: []byte("v")}}},
		}
		if shardA == shardB {
			// One plan per shard: a participant answers a second Prepare for
			// the same txn id from its in-flight intent without validating it.
			plans = []coordinator.ShardPlan{{
				ShardID:  shardA,
				ReadSet:  append(plans[0].ReadSet, plans[1].ReadSet...),
				WriteSet: append(plans[0].WriteSet, plans[1].WriteSet...),
			}}
		}

		decision, err := coord.Execute(ctx, fmt.Sprintf("2pc-%d", i), uint64(i+1), plans)
		if err != nil {
			return fmt.Errorf("txn %d: %w", i, err)
		}
		if decision == coordinator.DecisionCommit {
			committed++
		} else {
			aborted++
		}
	}

	fmt.Printf("submitted:  %d\n", txns)
	fmt.Printf("committed:  %d\n", committed)
	fmt.Printf("aborted:    %d\n", aborted)
	fmt.Println(m.Snapshot("txcore_"))
	return nil
}

func registerIfAbsent(reg *ownership.Registry, id types.ObjectId) {
	if _, err := reg.Lookup(id); err != nil {
		_ = reg.Register(types.ObjectMetadata{ID: id, Ownership: types.OwnershipShared, Version: 1})
	}
}
