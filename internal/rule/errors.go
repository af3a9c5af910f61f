package rule

import "errors"

// DeferredError signals that a rule is not evaluable at the pinned instant:
// the instant falls outside a check window, on a holiday, or similar. It is
// expected control flow, not a failure; callers branch on the reason text.
type DeferredError struct {
	Reason string
}

func (e *DeferredError) Error() string { return e.Reason }

// Deferred constructs a DeferredError with the given reason.
func Deferred(reason string) error { return &DeferredError{Reason: reason} }

// IsDeferred reports whether err is a deferral, returning the reason.
func IsDeferred(err error) (string, bool) {
	var d *DeferredError
	if errors.As(err, &d) {
		return d.Reason, true
	}
	return "", false
}
