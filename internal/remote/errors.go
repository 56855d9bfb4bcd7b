package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/af-corp/docai-gateway/internal/router"
	"github.com/af-corp/docai-gateway/internal/router/adapters"
)

// Category classifies a remote failure.
type Category string

const (
	CategoryQuota       Category = "quota_exceeded"
	CategoryAuth        Category = "auth_failure"
	CategoryServer      Category = "server_error"
	CategoryMalformed   Category = "malformed_response"
	CategoryUnavailable Category = "unavailable"
	CategoryTimeout     Category = "timeout"
)

// Error is a remote call that completed without a usable result.
type Error struct {
	Op       string
	Provider string
	Category Category
	Status   int
	// Salvaged holds text recovered from a malformed response, if any.
	Salvaged string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("remote %s: %s", e.Op, e.Category)
	if e.Provider != "" {
		msg += " from " + e.Provider
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether a later attempt could succeed without a
// configuration change.
func (e *Error) Retryable() bool {
	switch e.Category {
	case CategoryQuota, CategoryServer, CategoryUnavailable:
		return true
	default:
		return false
	}
}

// TimeoutError is a remote call that ran past its deadline.
type TimeoutError struct {
	Op       string
	Provider string
	After    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("remote %s: %s did not answer within %s", e.Op, e.Provider, e.After)
}

func (e *TimeoutError) Retryable() bool { return true }

// Retryable reports whether err is a transient remote failure. Errors that
// did not come from Client are treated as permanent.
func Retryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}

// CategoryOf returns the failure category of any error returned by Client.
func CategoryOf(err error) Category {
	var te *TimeoutError
	if errors.As(err, &te) {
		return CategoryTimeout
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return CategoryServer
}

// classify turns an adapter error into *Error or *TimeoutError.
func classify(op, provider string, timeout time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Provider: provider, After: timeout}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Op: op, Provider: provider, After: timeout}
	}

	var se *adapters.StatusError
	if errors.As(err, &se) {
		return &Error{Op: op, Provider: provider, Category: categoryForStatus(se.StatusCode), Status: se.StatusCode, Err: err}
	}

	switch {
	case errors.Is(err, adapters.ErrBadResponse):
		return &Error{Op: op, Provider: provider, Category: CategoryMalformed, Err: err}
	case errors.Is(err, adapters.ErrUnsupported), errors.Is(err, router.ErrNoRoute):
		return &Error{Op: op, Provider: provider, Category: CategoryUnavailable, Err: err}
	default:
		return &Error{Op: op, Provider: provider, Category: CategoryServer, Err: err}
	}
}

func categoryForStatus(status int) Category {
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusPaymentRequired:
		return CategoryQuota
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return CategoryAuth
	default:
		return CategoryServer
	}
}

// countsAgainstProvider reports whether the failure should trip the
// provider's circuit. A malformed body still proves the provider is up.
func countsAgainstProvider(err error) bool {
	switch CategoryOf(err) {
	case CategoryMalformed, CategoryUnavailable:
		return false
	default:
		return true
	}
}
