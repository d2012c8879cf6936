// Package retry implements the exponential-backoff-with-jitter policy
// shared by the MVCC scheduler and the fast path executor, per spec.md
// §4.4 and §8 invariant 7: total attempts <= max_retries+1; sleep between
// attempts within [base*factor^k*(1-j), base*factor^k*(1+j)], clamped by
// max_delay.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/supervm/txcore/pkg/types"
)

// Classification is the outcome of a Classifier applied to an attempt's
// error.
type Classification int

const (
	// Retryable errors are retried subject to the policy's bounds.
	Retryable Classification = iota
	// Fatal errors terminate the retry loop immediately.
	Fatal
)

// Classifier decides whether err should be retried. Classification is
// pure and side-effect-free, per spec.md §9 design notes.
type Classifier func(err error) Classification

// DefaultClassifier treats ConflictError as Retryable and everything else
// (including FatalUserError, ObjectNotFound, ObjectDeleted) as Fatal. A
// component with different retry semantics (e.g. the fast path also
// retrying Congested) supplies its own Classifier.
func DefaultClassifier(err error) Classification {
	var conflictErr *types.ConflictError
	if errors.As(err, &conflictErr) {
		return Retryable
	}
	return Fatal
}

// Policy configures the backoff schedule and error classification for one
// retry loop.
type Policy struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	BackoffFactor  float64
	JitterFraction float64
	Classify       Classifier
}

// Op is a user operation retried by Do. It returns a value and an error;
// Do retries only when Classify(err) == Retryable.
type Op[V any] func(attempt int) (V, error)

// Result reports how many attempts a Do call took, for scheduler metrics.
type Result struct {
	Attempts  int
	Conflicts int
}

// Do runs op up to p.MaxRetries+1 times, sleeping between attempts
// according to the backoff schedule, and returns the first successful
// value or the last error once retries are exhausted or the classifier
// reports Fatal. ctx cancellation aborts the sleep and returns ctx.Err().
func Do[V any](ctx context.Context, p Policy, op Op[V]) (V, Result, error) {
	classify := p.Classify
	if classify == nil {
		classify = DefaultClassifier
	}

	var result Result
	var zero V

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		result.Attempts++
		v, err := op(attempt)
		if err == nil {
			return v, result, nil
		}

		if classify(err) == Fatal {
			return zero, result, err
		}
		result.Conflicts++

		if attempt == p.MaxRetries {
			return zero, result, err
		}

		delay := backoff(p, attempt)
		select {
		case <-ctx.Done():
			return zero, result, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, result, errors.New("retry: unreachable")
}

// backoff computes base*factor^attempt, clamped to maxDelay, then
// perturbed by +/-jitterFraction.
func backoff(p Policy, attempt int) time.Duration {
	base := float64(p.BaseDelay)
	factor := p.BackoffFactor
	if factor <= 0 {
		factor = 1
	}

	scaled := base
	for i := 0; i < attempt; i++ {
		scaled *= factor
	}
	if p.MaxDelay > 0 && scaled > float64(p.MaxDelay) {
		scaled = float64(p.MaxDelay)
	}

	if p.JitterFraction <= 0 {
		return time.Duration(scaled)
	}
	jitter := 1 + (rand.Float64()*2-1)*p.JitterFraction
	jittered := scaled * jitter
	if jittered < 0 {
		jittered = 0
	}
	return time.Duration(jittered)
}
