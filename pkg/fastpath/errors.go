package fastpath

import (
	"errors"

	"github.com/supervm/txcore/pkg/types"
)

// errorKind maps an error to the string taxonomy named in spec.md §7, for
// the Receipt.ErrorKind field and for the batch executor's fallback
// whitelist matching.
func errorKind(err error) string {
	var conflictErr *types.ConflictError
	var storageErr *types.StorageError
	var fatalErr *types.FatalUserError

	switch {
	case errors.As(err, &conflictErr):
		if conflictErr.Kind == types.ConflictRead {
			return "read_conflict"
		}
		return "write_conflict"
	case errors.As(err, &storageErr):
		return "storage_error"
	case errors.As(err, &fatalErr):
		return "fatal_user_error"
	case errors.Is(err, types.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, types.ErrObjectDeleted):
		return "object_deleted"
	case errors.Is(err, types.ErrObjectNotFound):
		return "object_not_found"
	case errors.Is(err, types.ErrCongested):
		return "congested"
	case errors.Is(err, types.ErrTimedOut):
		return "timed_out"
	case errors.Is(err, types.ErrInvalidState):
		return "invalid_state"
	default:
		return "unknown"
	}
}
