package herdcache

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is reported when the pool has zero usable servers.
	// Operations fail before any network call is attempted.
	ErrUnavailable = errors.New("herdcache: no servers in pool")

	// ErrNotOwner is reported by Set when the caller does not hold the key's
	// lock. Writes are gated behind having first taken the lock via a miss.
	ErrNotOwner = errors.New("herdcache: write requires holding the key lock")
)

// TeardownError aggregates failures from Close: lock releases that errored
// and servers that failed to close.
type TeardownError struct {
	ReleaseErrs []error
	CloseErrs   []error
}

func (e *TeardownError) empty() bool {
	return len(e.ReleaseErrs) == 0 && len(e.CloseErrs) == 0
}

func (e *TeardownError) Error() string {
	switch {
	case len(e.ReleaseErrs) > 0 && len(e.CloseErrs) > 0:
		return fmt.Sprintf("teardown: %d lock release failure(s), %d close failure(s): first release=%v; first close=%v",
			len(e.ReleaseErrs), len(e.CloseErrs), e.ReleaseErrs[0], e.CloseErrs[0])
	case len(e.ReleaseErrs) > 0:
		return fmt.Sprintf("teardown: %d lock release failure(s): first=%v", len(e.ReleaseErrs), e.ReleaseErrs[0])
	case len(e.CloseErrs) > 0:
		return fmt.Sprintf("teardown: %d close failure(s): first=%v", len(e.CloseErrs), e.CloseErrs[0])
	default:
		return "teardown: unknown error"
	}
}

func (e *TeardownError) Unwrap() []error {
	errs := make([]error, 0, len(e.ReleaseErrs)+len(e.CloseErrs))
	errs = append(errs, e.ReleaseErrs...)
	errs = append(errs, e.CloseErrs...)
	return errs
}
