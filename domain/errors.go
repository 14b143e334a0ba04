package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrAuthentication       = errors.New("authentication failed")
	ErrServerUnreachable    = errors.New("vpn server unreachable")
	ErrUpstream             = errors.New("vpn server error")
	ErrInboundNotFound      = errors.New("inbound not found")
	ErrClientNotFound       = errors.New("client not found")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Error is the failure type returned by every gateway layer.
type Error struct {
	Kind    error
	Message string
	Err     error

	// Upstream diagnostics, set only for ErrUpstream.
	Status  int
	Snippet string
	// Stale marks an empty upstream reply, which usually means the
	// session cookie expired.
	Stale bool
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind error, format string, a ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

func Wrap(kind error, err error, format string, a ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...), Err: err}
}

// IsNotFound reports whether err names a missing inbound or client.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrInboundNotFound) || errors.Is(err, ErrClientNotFound)
}
