// Package router implements the Path Router (spec.md §4.5): classifying
// each Transaction into Fast, Consensus, or Privacy based on object
// ownership kinds and the transaction's privacy flag.
package router

import (
	"sync/atomic"

	"github.com/supervm/txcore/pkg/ownership"
	"github.com/supervm/txcore/pkg/types"
)

// Router classifies transactions and keeps atomic per-path counters for
// export.
type Router struct {
	registry *ownership.Registry

	fastCount      atomic.Uint64
	consensusCount atomic.Uint64
	privacyCount   atomic.Uint64
}

// New wires a Router against the shared Ownership Registry.
func New(registry *ownership.Registry) *Router {
	return &Router{registry: registry}
}

// Classify returns the path a Transaction should execute on, per spec.md
// §4.5: Private -> PrivatePath; else any Shared object or any object the
// registry cannot resolve -> ConsensusPath; else -> FastPath. An Owned
// object whose owner is not tx.From still routes to FastPath; the owner
// check happens at fast-path execution time.
func (r *Router) Classify(tx types.Transaction) types.PathKind {
	path := r.classify(tx)
	switch path {
	case types.FastPath:
		r.fastCount.Add(1)
	case types.ConsensusPath:
		r.consensusCount.Add(1)
	case types.PrivatePath:
		r.privacyCount.Add(1)
	}
	return path
}

func (r *Router) classify(tx types.Transaction) types.PathKind {
	if tx.Privacy == types.Private {
		return types.PrivatePath
	}

	for _, objID := range tx.Objects {
		meta, err := r.registry.Lookup(objID)
		if err != nil {
			// An object the registry can't resolve cannot be proven owned;
			// route to the consensus lane where revalidation will surface
			// the concrete error.
			return types.ConsensusPath
		}
		if meta.Ownership == types.OwnershipImmutable {
			continue
		}
		if meta.Ownership == types.OwnershipShared {
			return types.ConsensusPath
		}
		// Owned but not owned by tx.From: still attempted on the fast path
		// first. fastpath.Executor.verifyOwnership surfaces the NotOwner
		// error at execution time, which the batch executor's fallback
		// whitelist catches and retries on the consensus lane.
	}
	return types.FastPath
}

// Counts returns the current per-path totals.
func (r *Router) Counts() (fast, consensus, privacy uint64) {
	return r.fastCount.Load(), r.consensusCount.Load(), r.privacyCount.Load()
}
