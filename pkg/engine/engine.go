// Package engine declares the contract transaction execution backends
// must satisfy. WASM, EVM, and GPU-accelerated execution are named by
// spec.md §6 as external collaborators, consumed by interface only; this
// package carries that interface and nothing else.
package engine

import (
	"context"

	"github.com/supervm/txcore/pkg/types"
)

// ExecutionEngine runs a transaction's program against a snapshot of
// object state and returns the resulting write set. Fast path, scheduler,
// and coordinator callers all invoke the same interface regardless of
// which backend is wired in.
type ExecutionEngine interface {
	// Name identifies the backend for logging and metrics labeling, e.g.
	// "wasm", "evm", "gpu".
	Name() string

	// Execute runs tx's program against reads and returns the
	// transaction's output write set. It performs no I/O against the
	// MVCC store itself; callers are responsible for committing the
	// returned writes through a Txn.
	Execute(ctx context.Context, tx types.Transaction, reads map[types.ObjectId][]byte) (writes map[types.ObjectId][]byte, err error)
}
