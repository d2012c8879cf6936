package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/supervm/txcore/pkg/config"
	"github.com/supervm/txcore/pkg/fastpath"
	"github.com/supervm/txcore/pkg/metrics"
	"github.com/supervm/txcore/pkg/mvcc"
	"github.com/supervm/txcore/pkg/ownership"
	"github.com/supervm/txcore/pkg/types"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Execute a small fast-path workload and print the metrics snapshot",
	RunE:  runMetrics,
}

func runMetrics(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	registry := ownership.New()
	store := mvcc.NewStore(cfg.MVCC.CommitLatchStripes, cfg.MVCC.MaxVersionsPerKey)
	m := metrics.NewRegistry(cfg.FastPath.HotKeyTopK)
	exec := fastpath.NewExecutor(registry, store, m, cfg.FastPath)

	owner := addressOf(3)
	for i := 0; i < 500; i++ {
		objID := objectOf(byte(i % 256))
		_ = registry.Register(types.ObjectMetadata{ID: objID, Ownership: types.OwnershipOwned, Owner: owner})

		tx := types.Transaction{ID: fmt.Sprintf("metrics-%d", i), From: owner, Objects: []types.ObjectId{objID}}
		_, _ = exec.Execute(tx, func(txn *mvcc.Txn) (any, error) {
			return nil, txn.Write(objID[:], []byte{1})
		})
	}

	fmt.Println(m.Snapshot("txcore_"))
	return nil
}
