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

var benchCrossShardCmd = &cobra.Command{
	Use:   "cross-shard",
	Short: "Run a two-shard 2PC transaction to completion and report the decision",
	RunE:  runBenchCrossShard,
}

func runBenchCrossShard(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	cfg.Coordinator.NumShards = 2
	cfg.Coordinator.TimeoutMillis = 2000

	regA, regB := ownership.New(), ownership.New()
	storeA := mvcc.NewStore(cfg.MVCC.CommitLatchStripes, cfg.MVCC.MaxVersionsPerKey)
	storeB := mvcc.NewStore(cfg.MVCC.CommitLatchStripes, cfg.MVCC.MaxVersionsPerKey)

	pA := coordinator.NewParticipant(0, regA, storeA)
	pB := coordinator.NewParticipant(1, regB, storeB)
	transport := coordinator.NewLocalTransport(map[uint16]*coordinator.Participant{0: pA, 1: pB})

	m := metrics.NewRegistry(16)
	coord := coordinator.New(transport, nil, m, cfg.Coordinator)

	idA, idB := objectOf(11), objectOf(12)
	_ = regA.Register(types.ObjectMetadata{ID: idA, Ownership: types.OwnershipShared, Version: 1})
	_ = regB.Register(types.ObjectMetadata{ID: idB, Ownership: types.OwnershipShared, Version: 1})

	plans := []coordinator.ShardPlan{
		{ShardID: 0, ReadSet: []coordinator.ObjectVersion{{ID: idA, Version: 1}}, WriteSet: []coordinator.KeyWrite{{ID: idA, Value: []byte("balance-a")}}},
		{ShardID: 1, ReadSet: []coordinator.ObjectVersion{{ID: idB, Version: 1}}, WriteSet: []coordinator.KeyWrite{{ID: idB, Value: []byte("balance-b")}}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	decision, err := coord.Execute(ctx, "cross-shard-demo", uint64(time.Now().UnixNano()), plans)
	elapsed := time.Since(start)
	if err != nil {
		return fmt.Errorf("cross-shard transaction failed: %w", err)
	}

	fmt.Printf("decision: %v\n", decisionString(decision))
	fmt.Printf("elapsed:  %s\n", elapsed)
	fmt.Println(m.Snapshot("txcore_"))
	return nil
}

func decisionString(d coordinator.Decision) string {
	if d == coordinator.DecisionCommit {
		return "commit"
	}
	return "abort"
}
