package types

import (
	"errors"
	"strconv"
)

// Sentinel errors shared by every lane. Components wrap these with %w so
// callers can still errors.Is against the taxonomy in spec.md §7.
var (
	ErrNotOwner       = errors.New("not owner")
	ErrObjectDeleted  = errors.New("object deleted")
	ErrObjectNotFound = errors.New("object not found")
	ErrAlreadyExists  = errors.New("object already exists")
	ErrValidationFailed = errors.New("validation failed")
	ErrCongested      = errors.New("executor congested")
	ErrTimedOut       = errors.New("timed out")
	ErrInvalidState   = errors.New("invalid transaction state")
)

// ConflictKind distinguishes the two optimistic-validation failure modes.
type ConflictKind int

const (
	ConflictRead ConflictKind = iota
	ConflictWrite
)

func (k ConflictKind) String() string {
	if k == ConflictRead {
		return "read"
	}
	return "write"
}

// ConflictError is returned by MVCC commit validation.
type ConflictError struct {
	Kind ConflictKind
	Key  string
}

func (e *ConflictError) Error() string {
	if e.Kind == ConflictRead {
		return "read-write conflict on key " + e.Key
	}
	return "write-write conflict on key " + e.Key
}

// FatalUserError marks an error the retry policy must never retry.
type FatalUserError struct {
	Err error
}

func (e *FatalUserError) Error() string { return "fatal: " + e.Err.Error() }
func (e *FatalUserError) Unwrap() error { return e.Err }

// StorageError wraps a failure bubbled up from the external Storage adapter.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage " + e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

// ZkErrorKind enumerates the ZkVerifier's failure modes.
type ZkErrorKind int

const (
	ZkInvalidProof ZkErrorKind = iota
	ZkInvalidPublicInputs
	ZkUnknownCircuit
)

func (k ZkErrorKind) String() string {
	switch k {
	case ZkInvalidProof:
		return "invalid_proof"
	case ZkInvalidPublicInputs:
		return "invalid_public_inputs"
	case ZkUnknownCircuit:
		return "unknown_circuit"
	default:
		return "unknown"
	}
}

// ZkError is returned by a ZkVerifier implementation.
type ZkError struct {
	Kind ZkErrorKind
}

func (e *ZkError) Error() string { return "zk verify failed: " + e.Kind.String() }

// CoordinatorErrorKind enumerates cross-shard coordinator failure modes.
type CoordinatorErrorKind int

const (
	CoordinatorParticipantUnreachable CoordinatorErrorKind = iota
	CoordinatorPrepareTimeout
	CoordinatorCommitTimeout
	CoordinatorDecisionConflict
)

func (k CoordinatorErrorKind) String() string {
	switch k {
	case CoordinatorParticipantUnreachable:
		return "participant_unreachable"
	case CoordinatorPrepareTimeout:
		return "prepare_timeout"
	case CoordinatorCommitTimeout:
		return "commit_timeout"
	case CoordinatorDecisionConflict:
		return "decision_conflict"
	default:
		return "unknown"
	}
}

// CoordinatorError is returned by the cross-shard coordinator.
type CoordinatorError struct {
	Kind    CoordinatorErrorKind
	ShardID uint16
	Err     error
}

func (e *CoordinatorError) Error() string {
	msg := "coordinator: " + e.Kind.String()
	if e.ShardID != 0 {
		msg += " shard=" + strconv.Itoa(int(e.ShardID))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CoordinatorError) Unwrap() error { return e.Err }
