// Package errors provides structured error handling for autoassist.
// It defines error types that map to JSON-RPC error codes and carry enough
// context to distinguish wire-level failures from remote and local ones.
package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/motormind/autoassist/pkg/protocol"
)

// Category classifies an error for programmatic handling.
type Category string

const (
	// CategoryProtocol covers malformed frames, bad JSON and missing
	// Content-Length headers. Always fatal to the current connection.
	CategoryProtocol Category = "protocol"

	// CategoryRemote covers error responses returned by the peer.
	CategoryRemote Category = "remote"

	// CategoryConfig covers startup configuration failures such as a
	// missing API credential. Reported before any I/O happens.
	CategoryConfig Category = "config"

	// CategoryTransport covers I/O failures on the underlying stream or
	// child process.
	CategoryTransport Category = "transport"

	// CategoryInternal covers everything else.
	CategoryInternal Category = "internal"
)

// JSON-RPC error codes carried by wire-mapped errors. The code table is
// defined once, in the protocol package; these are the same values as ints.
const (
	CodeParseError     = int(protocol.ParseError)
	CodeInvalidRequest = int(protocol.InvalidRequest)
	CodeMethodNotFound = int(protocol.MethodNotFound)
	CodeInvalidParams  = int(protocol.InvalidParams)
	CodeInternalError  = int(protocol.InternalError)

	// CodeToolError is returned for tool handler failures and unknown
	// tool names.
	CodeToolError = int(protocol.ToolError)
)

// Error is the structured error type used across the module.
type Error struct {
	category Category
	code     int
	message  string
	detail   string
	cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.detail != "" {
		return fmt.Sprintf("%s: %s", e.message, e.detail)
	}
	return e.message
}

// Category returns the error category.
func (e *Error) Category() Category { return e.category }

// Code returns the JSON-RPC error code associated with this error, or 0 if
// the error did not originate from (or map to) a wire error object.
func (e *Error) Code() int { return e.code }

// Message returns the bare message without detail.
func (e *Error) Message() string { return e.message }

// Unwrap returns the underlying cause for errors.Is/As traversal.
func (e *Error) Unwrap() error { return e.cause }

// WithDetail returns a copy of the error with additional detail appended.
func (e *Error) WithDetail(detail string) *Error {
	dup := *e
	if dup.detail != "" {
		dup.detail = fmt.Sprintf("%s; %s", dup.detail, detail)
	} else {
		dup.detail = detail
	}
	return &dup
}

// ProtocolError reports a violation of the framing or JSON-RPC layer.
func ProtocolError(message string) *Error {
	return &Error{category: CategoryProtocol, code: CodeParseError, message: message}
}

// ProtocolErrorf reports a framing violation with a formatted message.
func ProtocolErrorf(format string, args ...interface{}) *Error {
	return ProtocolError(fmt.Sprintf(format, args...))
}

// WrapProtocol wraps a lower-level error as a protocol error.
func WrapProtocol(err error, message string) *Error {
	return &Error{category: CategoryProtocol, code: CodeParseError, message: message, cause: err}
}

// RemoteError reports an error object carried in a peer's response.
func RemoteError(code int, message string) *Error {
	return &Error{category: CategoryRemote, code: code, message: message}
}

// ConfigurationError reports invalid or missing startup configuration.
func ConfigurationError(message string) *Error {
	return &Error{category: CategoryConfig, message: message}
}

// WrapConfig wraps a lower-level error as a configuration error.
func WrapConfig(err error, message string) *Error {
	return &Error{category: CategoryConfig, message: message, cause: err}
}

// TransportError wraps an I/O failure on the byte stream or child process.
func TransportError(operation string, err error) *Error {
	return &Error{
		category: CategoryTransport,
		message:  fmt.Sprintf("transport failure during %s", operation),
		cause:    err,
	}
}

// Internal wraps an unexpected local failure.
func Internal(err error, message string) *Error {
	return &Error{category: CategoryInternal, code: CodeInternalError, message: message, cause: err}
}

// As extracts a structured *Error from any error chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, category Category) bool {
	if e, ok := As(err); ok {
		return e.category == category
	}
	return false
}

// IsCode reports whether err carries the given JSON-RPC error code.
func IsCode(err error, code int) bool {
	if e, ok := As(err); ok {
		return e.code == code
	}
	return false
}
