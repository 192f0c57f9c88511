// Package retry provides failure classification and the retry policy for
// queue items. Failure classification is supplied by the external
// processor via the Transient/Permanent wrappers; executor-level faults
// (panics) are a distinguished third class that is never retried.
package retry

import (
	"errors"
	"fmt"
	"math"
	"time"
)

type class int

const (
	classTransient class = iota
	classPermanent
	classFault
)

// Error wraps a processing failure with its retry classification.
type Error struct {
	cls class
	err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.cls {
	case classPermanent:
		return "permanent: " + e.err.Error()
	case classFault:
		return "worker fault: " + e.err.Error()
	default:
		return "transient: " + e.err.Error()
	}
}

// Unwrap returns the underlying failure.
func (e *Error) Unwrap() error { return e.err }

// Transient marks err as safe to retry. The processing callback must be
// idempotent-safe for failures it marks transient.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &Error{cls: classTransient, err: err}
}

// Permanent marks err as terminal; the item fails without retry.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &Error{cls: classPermanent, err: err}
}

// Fault marks err as an executor-level fault (worker crash). Faulted
// items are forced to failed regardless of remaining retry budget.
func Fault(err error) error {
	if err == nil {
		return nil
	}
	return &Error{cls: classFault, err: err}
}

// Faultf is shorthand for Fault(fmt.Errorf(...)).
func Faultf(format string, args ...any) error {
	return Fault(fmt.Errorf(format, args...))
}

func classify(err error) class {
	var re *Error
	if errors.As(err, &re) {
		return re.cls
	}
	// Unclassified errors are treated as transient: the original bot
	// retried every download failure up to the attempt budget.
	return classTransient
}

// IsTransient reports whether err may be retried.
func IsTransient(err error) bool { return err != nil && classify(err) == classTransient }

// IsPermanent reports whether err is terminal.
func IsPermanent(err error) bool { return err != nil && classify(err) == classPermanent }

// IsFault reports whether err is an executor-level fault.
func IsFault(err error) bool { return err != nil && classify(err) == classFault }

// Policy decides whether and when a failed item is resubmitted.
// The zero value retries nothing.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// Base is the delay before the first retry; it doubles per attempt.
	Base time.Duration

	// Max caps the delay. Zero means uncapped.
	Max time.Duration
}

// ShouldRetry reports whether an item that has failed `attempts` times
// in total is eligible for another attempt.
func (p Policy) ShouldRetry(attempts int, err error) bool {
	if !IsTransient(err) {
		return false
	}
	return attempts <= p.MaxRetries
}

// Delay returns the backoff before retry attempt n (1-indexed):
// Base * 2^(n-1), capped at Max.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(p.Base) * math.Pow(2, float64(attempt-1)))
	if p.Max > 0 && (d > p.Max || d < 0) {
		return p.Max
	}
	return d
}
