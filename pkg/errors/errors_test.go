package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodesMatchWireValues(t *testing.T) {
	assert.Equal(t, -32700, CodeParseError)
	assert.Equal(t, -32600, CodeInvalidRequest)
	assert.Equal(t, -32601, CodeMethodNotFound)
	assert.Equal(t, -32602, CodeInvalidParams)
	assert.Equal(t, -32603, CodeInternalError)
	assert.Equal(t, -32000, CodeToolError)
}

func TestProtocolError(t *testing.T) {
	err := ProtocolError("missing Content-Length header")

	assert.Equal(t, "missing Content-Length header", err.Error())
	assert.Equal(t, CategoryProtocol, err.Category())
	assert.Equal(t, CodeParseError, err.Code())
}

func TestProtocolErrorf(t *testing.T) {
	err := ProtocolErrorf("invalid Content-Length %q", "abc")
	assert.Equal(t, `invalid Content-Length "abc"`, err.Error())
	assert.True(t, IsCategory(err, CategoryProtocol))
}

func TestWrapProtocolUnwrap(t *testing.T) {
	err := WrapProtocol(io.ErrUnexpectedEOF, "truncated frame body")

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.True(t, IsCategory(err, CategoryProtocol))
}

func TestRemoteError(t *testing.T) {
	err := RemoteError(CodeToolError, "Unknown tool: telemetry")

	assert.Equal(t, "Unknown tool: telemetry", err.Message())
	assert.True(t, IsCode(err, CodeToolError))
	assert.True(t, IsCategory(err, CategoryRemote))
	assert.False(t, IsCategory(err, CategoryProtocol))
}

func TestConfigurationError(t *testing.T) {
	err := ConfigurationError("OPENAI_API_KEY is required")
	assert.True(t, IsCategory(err, CategoryConfig))
	assert.Equal(t, 0, err.Code())
}

func TestWithDetail(t *testing.T) {
	base := ProtocolError("malformed frame")
	detailed := base.WithDetail("body shorter than Content-Length")

	assert.Equal(t, "malformed frame", base.Error(), "original must be unchanged")
	assert.Equal(t, "malformed frame: body shorter than Content-Length", detailed.Error())

	twice := detailed.WithDetail("read 3 of 42 bytes")
	assert.Equal(t, "malformed frame: body shorter than Content-Length; read 3 of 42 bytes", twice.Error())
}

func TestAsThroughWrapping(t *testing.T) {
	inner := RemoteError(CodeMethodNotFound, "Method not found: tools/reset")
	wrapped := fmt.Errorf("request failed: %w", inner)

	e, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeMethodNotFound, e.Code())
	assert.True(t, IsCategory(wrapped, CategoryRemote))
}

func TestAsOnPlainError(t *testing.T) {
	_, ok := As(io.EOF)
	assert.False(t, ok)
	assert.False(t, IsCategory(io.EOF, CategoryProtocol))
	assert.False(t, IsCode(io.EOF, CodeParseError))
}
