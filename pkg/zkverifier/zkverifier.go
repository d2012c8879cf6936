// Package zkverifier defines the gate a Private transaction must clear
// before entering the privacy path. Real proof verification lives outside
// this module (GPU/ZK backends are consumed as an interface, per spec.md
// §6); this package only carries the interface contract and a
// fail-closed default so the privacy path never silently admits an
// unverified transaction.
package zkverifier

import "github.com/supervm/txcore/pkg/types"

// Verifier checks a transaction's zero-knowledge proof against its public
// inputs. Implementations must be safe for concurrent use.
type Verifier interface {
	// Verify reports whether proof is valid for publicInput. A non-nil
	// error always means Ok is false; Ok may also be false with a nil
	// error if verification ran cleanly but simply rejected the proof.
	Verify(proof, publicInput []byte) (ok bool, err error)
}

// NoopVerifier never admits a proof. It exists so that wiring a privacy
// path without a real verifier fails closed instead of silently
// accepting every transaction.
type NoopVerifier struct{}

// Verify always rejects, per this package's fail-closed default.
func (NoopVerifier) Verify(proof, publicInput []byte) (bool, error) {
	return false, &types.ZkError{Kind: types.ZkUnknownCircuit}
}

var _ Verifier = NoopVerifier{}
