package main

import (
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

var benchFastPathCmd = &cobra.Command{
	Use:   "fastpath",
	Short: "Drive 1000 owned-object transactions through the fast path and report latency percentiles",
	RunE:  runBenchFastPath,
}

func init() {
	benchFastPathCmd.Flags().Int("txns", 1000, "number of transactions to execute")
	benchFastPathCmd.Flags().Int("retry-txns", 50, "number of transactions that must retry once before succeeding")
}

func runBenchFastPath(cmd *cobra.Command, args []string) error {
	txns, _ := cmd.Flags().GetInt("txns")
	retryTxns, _ := cmd.Flags().GetInt("retry-txns")

	cfg := config.Default()
	registry := ownership.New()
	store := mvcc.NewStore(cfg.MVCC.CommitLatchStripes, cfg.MVCC.MaxVersionsPerKey)
	m := metrics.NewRegistry(cfg.FastPath.HotKeyTopK)
	exec := fastpath.NewExecutor(registry, store, m, cfg.FastPath)

	owner := addressOf(1)

	fmt.Printf("executing %d owned-object transactions with synthetic per-transaction delay\n", txns)
	for i := 0; i < txns; i++ {
		objID := objectOf(byte(i % 256))
		_ = registry.Register(types.ObjectMetadata{ID: objID, Ownership: types.OwnershipOwned, Owner: owner})

		delay := syntheticDelay(i)
		tx := types.Transaction{ID: fmt.Sprintf("fp-%d", i), From: owner, Objects: []types.ObjectId{objID}}
		_, _ = exec.Execute(tx, func(txn *mvcc.Txn) (any, error) {
			time.Sleep(delay)
			return nil, txn.Write(objID[:], []byte{1})
		})
	}

	fmt.Printf("executing %d transactions requiring one retry each\n", retryTxns)
	for i := 0; i < retryTxns; i++ {
		objID := objectOf(byte(200 + i%56))
		_ = registry.Register(types.ObjectMetadata{ID: objID, Ownership: types.OwnershipOwned, Owner: owner})

		attempt := 0
		tx := types.Transaction{ID: fmt.Sprintf("fp-retry-%d", i), From: owner, Objects: []types.ObjectId{objID}}
		_, _ = exec.ExecuteWithRetry(cmd.Context(), tx, func(txn *mvcc.Txn) (any, error) {
			attempt++
			if attempt == 1 {
				// Commit a concurrent write underneath the first attempt so it
				// conflicts and is retried once.
				other := store.Begin()
				_ = other.Write(objID[:], []byte{0})
				_, _ = other.Commit()
			}
			time.Sleep(150 * time.Microsecond)
			return nil, txn.Write(objID[:], []byte{byte(attempt)})
		}, 3)
	}

	stats := exec.Stats()
	fmt.Println(separator())
	fmt.Printf("executed:     %d\n", stats.ExecutedCount)
	fmt.Printf("retries:      %d\n", stats.RetryCount)
	fmt.Printf("conflicts:    %d\n", stats.Conflicts)
	fmt.Printf("p50:          %.0fus\n", stats.LatencyP50Us)
	fmt.Printf("p90:          %.0fus\n", stats.LatencyP90Us)
	fmt.Printf("p95:          %.0fus\n", stats.LatencyP95Us)
	fmt.Printf("p99:          %.0fus\n", stats.LatencyP99Us)
	fmt.Printf("est. tps:     %.0f\n", stats.EstimatedTPS)
	fmt.Println(separator())
	return nil
}

// syntheticDelay mirrors the mixed-latency distribution from the
// original fast path latency demo: mostly 100-200us, with a long tail
// out to 1ms.
func syntheticDelay(i int) time.Duration {
	switch i % 10 {
	case 0:
		return 50 * time.Microsecond
	case 1, 2, 3, 4:
		return 100 * time.Microsecond
	case 5, 6, 7:
		return 200 * time.Microsecond
	case 8:
		return 500 * time.Microsecond
	default:
		return 1000 * time.Microsecond
	}
}

func addressOf(b byte) types.Address {
	var a types.Address
	a[0] = b
	return a
}

func objectOf(b byte) types.ObjectId {
	var id types.ObjectId
	id[0] = b
	id[1] = 1 // avoid colliding with addressOf's all-zero-but-first-byte pattern
	return id
}

func separator() string {
	s := ""
	for i := 0; i < 60; i++ {
		s += "="
	}
	return s
}
