package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/supervm/txcore/pkg/config"
	"github.com/supervm/txcore/pkg/fastpath"
	"github.com/supervm/txcore/pkg/metrics"
	"github.com/supervm/txcore/pkg/mvcc"
	"github.com/supervm/txcore/pkg/ownership"
	"github.com/supervm/txcore/pkg/types"
)

var benchCongestionCmd = &cobra.Command{
	Use:   "congestion",
	Short: "Compare baseline vs congested retry backoff, then report hot-key Top-K",
	RunE:  runBenchCongestion,
}

func runBenchCongestion(cmd *cobra.Command, args []string) error {
	fmt.Println("scenario 1: normal load (queue below threshold)")
	if err := runCongestionScenario(cmd.Context(), 500); err != nil {
		return err
	}

	fmt.Println("\nscenario 2: congested (queue 5x threshold)")
	if err := runCongestionScenario(cmd.Context(), 5000); err != nil {
		return err
	}

	fmt.Println("\nscenario 3: hot-key detection over 1000 accesses")
	return runHotKeyScenario()
}

func runCongestionScenario(ctx context.Context, queueLength int64) error {
	cfg := config.Default()
	registry := ownership.New()
	store := mvcc.NewStore(cfg.MVCC.CommitLatchStripes, cfg.MVCC.MaxVersionsPerKey)
	m := metrics.NewRegistry(cfg.FastPath.HotKeyTopK)
	exec := fastpath.NewExecutor(registry, store, m, cfg.FastPath)
	exec.SetQueueLength(queueLength)

	owner := addressOf(9)
	objID := objectOf(9)
	_ = registry.Register(types.ObjectMetadata{ID: objID, Ownership: types.OwnershipOwned, Owner: owner})

	// Seed one committed version of the object.
	seed := store.Begin()
	_ = seed.Write(objID[:], []byte{0})
	_, _ = seed.Commit()

	attempt := 0
	tx := types.Transaction{ID: "congestion-demo", From: owner, Objects: []types.ObjectId{objID}}

	start := time.Now()
	_, err := exec.ExecuteWithCongestionControl(ctx, tx, func(txn *mvcc.Txn) (any, error) {
		attempt++
		if attempt <= 2 {
			// Commit a concurrent write underneath the first two attempts so
			// they collide, forcing the congestion-aware retry path to engage.
			interloper := store.Begin()
			_ = interloper.Write(objID[:], []byte{0})
			_, _ = interloper.Commit()
		}
		return nil, txn.Write(objID[:], []byte{byte(attempt)})
	}, 5)
	elapsed := time.Since(start)

	fmt.Printf("  result err: %v\n", err)
	fmt.Printf("  elapsed: %s (retries: %d)\n", elapsed, attempt-1)
	fmt.Printf("  congested: %v, queue_length: %d / %d\n", exec.Congested(), exec.QueueLength(), cfg.FastPath.CongestionThreshold)
	return nil
}

func runHotKeyScenario() error {
	cfg := config.Default()
	m := metrics.NewRegistry(cfg.FastPath.HotKeyTopK)

	hotKeys := []string{"key-42", "key-100", "key-200"}
	coldKeys := []string{"key-1", "key-2", "key-3", "key-4", "key-5", "key-6", "key-7", "key-8", "key-9", "key-10"}

	for i := 0; i < 1000; i++ {
		if i%3 == 0 {
			m.HotKeys.Record(hotKeys[(i/3)%len(hotKeys)])
		} else {
			m.HotKeys.Record(coldKeys[i%len(coldKeys)])
		}
	}

	fmt.Println("  top hot keys:")
	for _, hk := range m.HotKeys.GetHotKeys(5) {
		fmt.Printf("    %-10s %d\n", hk.Key, hk.Count)
	}
	return nil
}
