// Package ownership implements the Ownership Registry: the map from
// object id to {owner, version, kind} that the router and fast path
// consult on every transaction.
package ownership

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/supervm/txcore/pkg/log"
	"github.com/supervm/txcore/pkg/types"
)

// Registry is a read-mostly map of ObjectId to ObjectMetadata. Reads take
// an RLock; every mutation serializes behind a single writer lock. The
// registry must never be held across a suspension point by callers — it
// hands back copies, not pointers into its own state.
type Registry struct {
	mu      sync.RWMutex
	objects map[types.ObjectId]types.ObjectMetadata
	logger  zerolog.Logger
}

// New creates an empty Ownership Registry.
func New() *Registry {
	return &Registry{
		objects: make(map[types.ObjectId]types.ObjectMetadata),
		logger:  log.WithComponent("ownership"),
	}
}

// Register adds a new object. It fails with ErrAlreadyExists if the id is
// already present — including if it was soft-deleted, since a deleted
// record is never re-registered.
func (r *Registry) Register(meta types.ObjectMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.objects[meta.ID]; exists {
		return fmt.Errorf("register %x: %w", meta.ID, types.ErrAlreadyExists)
	}

	now := time.Now()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now
	r.objects[meta.ID] = meta

	r.logger.Debug().
		Str("object_id", fmt.Sprintf("%x", meta.ID)).
		Str("ownership", meta.Ownership.String()).
		Msg("object registered")
	return nil
}

// Lookup returns a copy of the metadata for id, or ErrObjectNotFound if the
// object does not exist or has been soft-deleted.
func (r *Registry) Lookup(id types.ObjectId) (types.ObjectMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.objects[id]
	if !ok || meta.IsDeleted {
		return types.ObjectMetadata{}, fmt.Errorf("lookup %x: %w", id, types.ErrObjectNotFound)
	}
	return meta, nil
}

// OwnershipOf returns just the ownership kind for id.
func (r *Registry) OwnershipOf(id types.ObjectId) (types.OwnershipKind, error) {
	meta, err := r.Lookup(id)
	if err != nil {
		return 0, err
	}
	return meta.Ownership, nil
}

// Transfer reassigns ownership of id to newOwner, bumping its version. The
// caller supplies newVersion so a higher layer (e.g. the MVCC scheduler,
// which already knows the transaction's commit_ts) can keep registry
// versions and store versions correlated; Transfer rejects a version that
// does not strictly increase.
func (r *Registry) Transfer(id types.ObjectId, newOwner types.Address, newVersion types.Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, ok := r.objects[id]
	if !ok || meta.IsDeleted {
		return fmt.Errorf("transfer %x: %w", id, types.ErrObjectNotFound)
	}
	if newVersion <= meta.Version {
		return fmt.Errorf("transfer %x: %w: version %d must exceed current %d", id, types.ErrValidationFailed, newVersion, meta.Version)
	}

	meta.Owner = newOwner
	meta.Ownership = types.OwnershipOwned
	meta.Version = newVersion
	meta.UpdatedAt = time.Now()
	r.objects[id] = meta

	r.logger.Debug().
		Str("object_id", fmt.Sprintf("%x", id)).
		Uint64("version", uint64(newVersion)).
		Msg("ownership transferred")
	return nil
}

// MarkDeleted soft-deletes id. After this call Lookup and OwnershipOf both
// report ErrObjectNotFound, and the id can never be registered again.
func (r *Registry) MarkDeleted(id types.ObjectId) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, ok := r.objects[id]
	if !ok || meta.IsDeleted {
		return fmt.Errorf("mark deleted %x: %w", id, types.ErrObjectNotFound)
	}

	meta.IsDeleted = true
	meta.Version++
	meta.UpdatedAt = time.Now()
	r.objects[id] = meta
	return nil
}

// Len reports the number of live (non-deleted) objects. Used by tests and
// the demo CLI, not on any hot path.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, meta := range r.objects {
		if !meta.IsDeleted {
			n++
		}
	}
	return n
}
