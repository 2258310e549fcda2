// Package reconcileerr classifies reconcile-step failures into the four
// kinds the engine recognizes and maps each to a requeue decision.
//
// No prior art in the teacher carries an explicit taxonomy type; the
// session reconciler distinguishes "not found" from "other error" from
// "validation" ad hoc inside each handler. This package generalizes that
// pattern into one reusable classification so every reconciler applies the
// same propagation policy.
package reconcileerr

import (
	"context"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	ctrl "sigs.k8s.io/controller-runtime"
)

// Kind names one of the four error categories from the error handling
// design: not a Go error type, just a classification tag.
type Kind int

const (
	// KindTransientAPI covers server unavailability, throttling and update
	// conflicts. Recovered locally via bounded retry then requeue with
	// backoff.
	KindTransientAPI Kind = iota

	// KindPrecondition covers a missing referenced object (flavor, shared
	// volume claim). Surfaced via a condition; reconcile still returns
	// success with a fixed requeue.
	KindPrecondition

	// KindValidation covers malformed spec fields. Surfaced as phase=Failed
	// and not retried until the object's generation changes.
	KindValidation

	// KindCancelled covers deadline exceeded or shutdown. The item is
	// re-enqueued; no status is written.
	KindCancelled
)

// Error pairs a Kind with the underlying cause and an optional reason
// string suitable for a status condition.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Transient wraps err as a KindTransientAPI error.
func Transient(err error) *Error {
	return &Error{Kind: KindTransientAPI, Message: "transient API error", Cause: err}
}

// Precondition builds a KindPrecondition error with the given status
// condition reason.
func Precondition(reason, message string) *Error {
	return &Error{Kind: KindPrecondition, Reason: reason, Message: message}
}

// Validation builds a KindValidation error with the given status condition
// reason.
func Validation(reason, message string) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Message: message}
}

// Cancelled builds a KindCancelled error, typically from ctx.Err().
func Cancelled(err error) *Error {
	return &Error{Kind: KindCancelled, Message: "reconcile cancelled", Cause: err}
}

// Classify inspects a plain error returned by a client call (not already a
// *Error) and assigns it a Kind. Kubernetes API errors that indicate
// server-side unavailability or optimistic-concurrency conflicts are
// TransientAPI; anything else defaults to TransientAPI as well, since an
// unclassified client error is assumed recoverable by retrying.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*Error); ok {
		return re
	}
	if apierrors.IsConflict(err) || apierrors.IsServerTimeout(err) || apierrors.IsTooManyRequests(err) ||
		apierrors.IsServiceUnavailable(err) || apierrors.IsTimeout(err) {
		return Transient(err)
	}
	return Transient(err)
}

// Result converts a classified error into the ctrl.Result/error pair a
// Reconcile function should return, applying the propagation policy for
// each kind.
func Result(e *Error) (ctrl.Result, error) {
	if e == nil {
		return ctrl.Result{}, nil
	}
	switch e.Kind {
	case KindTransientAPI:
		// Returning the error hands the item back to the workqueue's
		// exponential-backoff rate limiter.
		return ctrl.Result{}, e
	case KindPrecondition:
		return ctrl.Result{RequeueAfter: 5 * time.Minute}, nil
	case KindValidation:
		return ctrl.Result{}, nil
	case KindCancelled:
		return ctrl.Result{Requeue: true}, nil
	default:
		return ctrl.Result{RequeueAfter: 5 * time.Second}, nil
	}
}

// IsDeadlineExceeded reports whether ctx was cancelled by the reconcile
// deadline, for converting that into a KindCancelled error at the call
// site.
func IsDeadlineExceeded(ctx context.Context) bool {
	return ctx.Err() == context.DeadlineExceeded
}
