// Package protoerr defines the typed error kinds shared across the node's
// domain packages, plus the JSON-RPC code each kind maps to.
package protoerr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error so callers can branch on it with errors.Is,
// independent of the human-readable message.
type Kind int

const (
	// KindInternal covers unexpected failures (storage I/O, marshal errors).
	KindInternal Kind = iota
	KindNotFound
	KindPermissionDenied
	KindAlreadyExists
	KindInvalidRequest
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindAlreadyExists:
		return "already_exists"
	case KindInvalidRequest:
		return "invalid_request"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Error is a domain error carrying a Kind for dispatch and a message for
// operators/clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of kind with message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of kind wrapping err, with additional context.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Is lets errors.Is match two *Error values that share a Kind, so callers
// can write errors.Is(err, protoerr.New(protoerr.KindNotFound, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the Kind from err, defaulting to KindInternal when err is
// not a *Error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// ErrNotFound is a sentinel usable directly with errors.Is for the common
// "record does not exist" case, mirroring the storage layer's lookup misses.
var ErrNotFound = New(KindNotFound, "not found")

// RPCCode maps a Kind to a JSON-RPC style error code. Internal uses the
// standard -32603 InternalError code and InvalidRequest the standard -32602
// InvalidParams code; NotFound, PermissionDenied, AlreadyExists and Timeout
// use the custom codes -32001 to -32004.
func RPCCode(k Kind) int {
	switch k {
	case KindNotFound:
		return -32001
	case KindPermissionDenied:
		return -32002
	case KindAlreadyExists:
		return -32003
	case KindInvalidRequest:
		return -32602
	case KindTimeout:
		return -32004
	default:
		return -32603
	}
}
