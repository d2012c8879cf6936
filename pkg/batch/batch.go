// Package batch implements the Batch Executor with fallback (spec.md
// §4.7): route each transaction, attempt the fast path, and re-route
// whitelist-matching failures to the consensus lane via the scheduler.
package batch

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/supervm/txcore/pkg/config"
	"github.com/supervm/txcore/pkg/fastpath"
	"github.com/supervm/txcore/pkg/metrics"
	"github.com/supervm/txcore/pkg/router"
	"github.com/supervm/txcore/pkg/types"
)

// Scheduler is the subset of the MVCC Scheduler's surface the batch
// executor needs — narrowed to an interface so tests can substitute a
// fake without pulling in the full txscheduler package.
type Scheduler interface {
	ExecuteTxn(ctx context.Context, tx types.Transaction, op fastpath.Op) (types.Receipt, error)
}

// Executor routes and runs a batch of transactions, falling back
// fast-path failures whose error matches a configured whitelist to the
// consensus lane.
type Executor struct {
	router    *router.Router
	fastExec  *fastpath.Executor
	scheduler Scheduler
	metrics   *metrics.Registry
	cfg       config.BatchExecutorConfig

	fastSuccess, fastFail, consensusSuccess, consensusFail atomic.Uint64
	fallbackTotal                                          atomic.Uint64
}

// New wires an Executor against the shared router, fast path executor,
// and scheduler.
func New(r *router.Router, fastExec *fastpath.Executor, scheduler Scheduler, m *metrics.Registry, cfg config.BatchExecutorConfig) *Executor {
	return &Executor{router: r, fastExec: fastExec, scheduler: scheduler, metrics: m, cfg: cfg}
}

// Item is one transaction in a batch together with the operation to run
// against its MVCC transaction.
type Item struct {
	Tx types.Transaction
	Op fastpath.Op
}

// Result is the batch executor's accounting for one Item.
type Result struct {
	Tx                  types.Transaction
	Receipt             types.Receipt
	Err                 error
	FallbackToConsensus bool
}

// ExecuteBatch runs every item, routing first, then attempting the fast
// path for FastPath-classified items, falling back to the consensus
// scheduler on a whitelisted failure. Returns per-item results and the
// total fallback count for this call.
func (e *Executor) ExecuteBatch(ctx context.Context, items []Item) ([]Result, int) {
	results := make([]Result, len(items))
	fallbacks := 0

	for i, item := range items {
		path := e.router.Classify(item.Tx)

		switch path {
		case types.ConsensusPath, types.PrivatePath:
			receipt, err := e.scheduler.ExecuteTxn(ctx, item.Tx, item.Op)
			e.recordConsensus(err == nil)
			results[i] = Result{Tx: item.Tx, Receipt: receipt, Err: err}
			continue
		}

		receipt, err := e.fastExec.Execute(item.Tx, item.Op)
		if err == nil {
			e.fastSuccess.Add(1)
			results[i] = Result{Tx: item.Tx, Receipt: receipt}
			continue
		}
		e.fastFail.Add(1)

		if !e.cfg.FallbackEnabled || !e.matchesWhitelist(receipt.ErrorKind, err) {
			results[i] = Result{Tx: item.Tx, Receipt: receipt, Err: err}
			continue
		}

		fallbacks++
		e.fallbackTotal.Add(1)
		e.metrics.IncFastFallbackTotal()

		consensusReceipt, consensusErr := e.scheduler.ExecuteTxn(ctx, item.Tx, item.Op)
		consensusReceipt.FallbackToConsensus = true
		e.recordConsensus(consensusErr == nil)
		results[i] = Result{Tx: item.Tx, Receipt: consensusReceipt, Err: consensusErr, FallbackToConsensus: true}
	}

	return results, fallbacks
}

func (e *Executor) recordConsensus(success bool) {
	if success {
		e.consensusSuccess.Add(1)
	} else {
		e.consensusFail.Add(1)
	}
}

// matchesWhitelist reports whether any whitelist entry equals the
// structured error kind (spec.md §9 Open Question 2's recommended fix) or
// is a substring of the error string, preserving the literal spec
// behavior for callers that configure free-text substrings. Both checks
// apply to every entry.
func (e *Executor) matchesWhitelist(errorKind string, err error) bool {
	for _, entry := range e.cfg.FallbackWhitelist {
		if entry == errorKind {
			return true
		}
		if err != nil && strings.Contains(err.Error(), entry) {
			return true
		}
	}
	return false
}

// Counts returns the executor's accumulated per-path outcome totals.
func (e *Executor) Counts() (fastSuccess, fastFail, consensusSuccess, consensusFail, fallbackTotal uint64) {
	return e.fastSuccess.Load(), e.fastFail.Load(), e.consensusSuccess.Load(), e.consensusFail.Load(), e.fallbackTotal.Load()
}
