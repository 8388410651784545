// SPDX-License-Identifier: MIT

package qtvnc

import (
	"errors"
	"fmt"
)

// ErrorCode classifies client failures. Every error is terminal for the
// current operation: nothing is retried internally and the connection that
// produced it is always closed.
type ErrorCode int

const (
	// ErrNotAnRFBServer indicates the peer did not present an RFB version banner.
	ErrNotAnRFBServer ErrorCode = iota
	// ErrUnsupportedAuth indicates the server requires an authentication
	// scheme other than "none".
	ErrUnsupportedAuth
	// ErrHandshakeAborted indicates the peer closed the connection or a read
	// timed out during connection bring-up. The error carries the last
	// completed handshake phase.
	ErrHandshakeAborted
	// ErrMalformedMessage indicates a message that does not match its
	// declared layout.
	ErrMalformedMessage
	// ErrUnexpectedMessageType indicates a server message other than
	// FramebufferUpdate where one was required.
	ErrUnexpectedMessageType
	// ErrUnsupportedEncoding indicates a rectangle encoding other than Raw,
	// or an update carrying more than one rectangle.
	ErrUnsupportedEncoding
	// ErrUnsupportedPixelFormat indicates a pixel format this client cannot
	// decode (anything but 16- or 32-bit truecolor).
	ErrUnsupportedPixelFormat
	// ErrIncompleteFrame indicates the frame read went idle or the peer
	// closed before the full pixel payload arrived.
	ErrIncompleteFrame
	// ErrProtocolMisuse indicates an internal invariant violation, such as
	// attempting a non-incremental update request or reusing a spent
	// connection.
	ErrProtocolMisuse
	// ErrTransport indicates a connect, read, or write failure.
	ErrTransport
)

// String returns the string representation of the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrNotAnRFBServer:
		return "not an rfb server"
	case ErrUnsupportedAuth:
		return "unsupported authentication"
	case ErrHandshakeAborted:
		return "handshake aborted"
	case ErrMalformedMessage:
		return "malformed message"
	case ErrUnexpectedMessageType:
		return "unexpected message type"
	case ErrUnsupportedEncoding:
		return "unsupported encoding"
	case ErrUnsupportedPixelFormat:
		return "unsupported pixel format"
	case ErrIncompleteFrame:
		return "incomplete frame"
	case ErrProtocolMisuse:
		return "protocol misuse"
	case ErrTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error provides structured error information with operation context, an
// error code from the taxonomy above, and message wrapping.
type Error struct {
	Op      string
	Code    ErrorCode
	Message string

	// Phase is the last completed handshake phase. It is only meaningful
	// when Code is ErrHandshakeAborted.
	Phase Phase

	Err error
}

// Error returns the formatted error message.
func (e *Error) Error() string {
	msg := fmt.Sprintf("qtvnc %s: %s: %s", e.Code, e.Op, e.Message)
	if e.Code == ErrHandshakeAborted {
		msg += fmt.Sprintf(" (after %s)", e.Phase)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the target error.
func (e *Error) Is(target error) bool {
	var qerr *Error
	if errors.As(target, &qerr) {
		return e.Code == qerr.Code && e.Op == qerr.Op
	}
	return false
}

// NewError creates a new Error with the specified parameters.
func NewError(op string, code ErrorCode, message string, err error) *Error {
	return &Error{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsError checks whether err is a qtvnc Error and optionally matches one of
// the given codes. With no codes it reports true for any qtvnc Error.
func IsError(err error, code ...ErrorCode) bool {
	var qerr *Error
	if !errors.As(err, &qerr) {
		return false
	}

	if len(code) == 0 {
		return true
	}

	for _, c := range code {
		if qerr.Code == c {
			return true
		}
	}
	return false
}

// ErrorCodeOf extracts the error code from a qtvnc Error.
// Returns -1 for any other error.
func ErrorCodeOf(err error) ErrorCode {
	var qerr *Error
	if errors.As(err, &qerr) {
		return qerr.Code
	}
	return ErrorCode(-1)
}

// notAnRFBServerError creates a version banner mismatch error.
func notAnRFBServerError(op, message string) error {
	return NewError(op, ErrNotAnRFBServer, message, nil)
}

// unsupportedAuthError creates an unsupported authentication error.
func unsupportedAuthError(op, message string) error {
	return NewError(op, ErrUnsupportedAuth, message, nil)
}

// handshakeAbortedError creates a handshake abort error carrying the last
// completed phase for diagnostics.
func handshakeAbortedError(op string, phase Phase, err error) error {
	return &Error{
		Op:      op,
		Code:    ErrHandshakeAborted,
		Message: "peer closed or timed out during handshake",
		Phase:   phase,
		Err:     err,
	}
}

// malformedMessageError creates a malformed message error.
func malformedMessageError(op, message string, err error) error {
	return NewError(op, ErrMalformedMessage, message, err)
}

// unexpectedMessageTypeError creates an unexpected message type error.
func unexpectedMessageTypeError(op, message string) error {
	return NewError(op, ErrUnexpectedMessageType, message, nil)
}

// unsupportedEncodingError creates an unsupported encoding error.
func unsupportedEncodingError(op, message string) error {
	return NewError(op, ErrUnsupportedEncoding, message, nil)
}

// unsupportedPixelFormatError creates an unsupported pixel format error.
func unsupportedPixelFormatError(op, message string) error {
	return NewError(op, ErrUnsupportedPixelFormat, message, nil)
}

// incompleteFrameError creates an incomplete frame error.
func incompleteFrameError(op, message string, err error) error {
	return NewError(op, ErrIncompleteFrame, message, err)
}

// protocolMisuseError creates an internal invariant violation error.
func protocolMisuseError(op, message string) error {
	return NewError(op, ErrProtocolMisuse, message, nil)
}

// transportError creates a connect/read/write failure error.
func transportError(op, message string, err error) error {
	return NewError(op, ErrTransport, message, err)
}
