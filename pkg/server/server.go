// Package server implements the stdio MCP server: a single-threaded loop
// that reads framed JSON-RPC messages, dispatches the supported methods and
// writes responses for every frame that carried a request id.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/motormind/autoassist/pkg/errors"
	"github.com/motormind/autoassist/pkg/logging"
	"github.com/motormind/autoassist/pkg/observability"
	"github.com/motormind/autoassist/pkg/protocol"
	"github.com/motormind/autoassist/pkg/tools"
	"github.com/motormind/autoassist/pkg/transport"
)

// Server dispatches MCP requests against an immutable tool registry.
type Server struct {
	registry *tools.Registry
	reader   *transport.FrameReader
	writer   *transport.FrameWriter
	logger   logging.Logger
	metrics  *observability.Metrics
	info     protocol.ServerInfo
}

// Option configures a Server.
type Option func(*Server)

// WithStreams overrides the stdin/stdout defaults, mainly for tests.
func WithStreams(r io.Reader, w io.Writer) Option {
	return func(s *Server) {
		s.reader = transport.NewFrameReader(r)
		s.writer = transport.NewFrameWriter(w)
	}
}

// WithLogger sets the server logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithServerInfo overrides the advertised server identity.
func WithServerInfo(info protocol.ServerInfo) Option {
	return func(s *Server) { s.info = info }
}

// New creates a server over the given registry.
func New(registry *tools.Registry, options ...Option) *Server {
	s := &Server{
		registry: registry,
		reader:   transport.NewFrameReader(os.Stdin),
		writer:   transport.NewFrameWriter(os.Stdout),
		logger:   logging.Default().WithFields(logging.String("component", "server")),
		info:     protocol.ServerInfo{Name: "autoassist", Version: "1.0.0"},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Run processes frames until the peer closes the stream or the context is
// cancelled. A clean end-of-stream returns nil; a framing violation is fatal
// to the connection and returned as an error.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("server loop started",
		logging.String("server", s.info.Name),
		logging.Int("tools", s.registry.Len()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var msg protocol.Message
		if err := s.reader.ReadInto(&msg); err != nil {
			if err == io.EOF {
				s.logger.Info("peer closed the stream, shutting down")
				return nil
			}
			s.logger.Error("failed to read frame", logging.ErrorField(err))
			return err
		}

		if err := s.dispatch(&msg); err != nil {
			return err
		}
	}
}

// dispatch handles one classified message. The returned error is only
// non-nil for write failures, which are fatal.
func (s *Server) dispatch(msg *protocol.Message) error {
	// Responses are only sent for frames that carried an id; a request
	// without one is malformed and silently dropped.
	switch msg.Method {
	case protocol.MethodInitialize:
		if msg.ID == nil {
			return nil
		}
		s.logger.Debug("initialize", logging.Int("id", int(*msg.ID)))
		return s.replyResult(*msg.ID, protocol.InitializeResult{
			ProtocolVersion: protocol.ProtocolVersion,
			Capabilities:    map[string]interface{}{"tools": map[string]interface{}{}},
			ServerInfo:      s.info,
		})

	case protocol.MethodInitialized:
		// A notification; replying would violate the protocol.
		s.logger.Debug("client initialized")
		return nil

	case protocol.MethodListTools:
		if msg.ID == nil {
			return nil
		}
		return s.replyResult(*msg.ID, protocol.ListToolsResult{Tools: s.registry.List()})

	case protocol.MethodCallTool:
		if msg.ID == nil {
			return nil
		}
		return s.handleToolCall(*msg.ID, msg.Params)

	case "":
		// A response or malformed frame; nothing for a server to do.
		s.logger.Warn("dropping frame without method")
		return nil

	default:
		if msg.ID == nil {
			s.logger.Debug("ignoring unknown notification", logging.String("method", msg.Method))
			return nil
		}
		return s.replyError(*msg.ID, protocol.MethodNotFound,
			fmt.Sprintf("Method not found: %s", msg.Method))
	}
}

func (s *Server) handleToolCall(id int64, rawParams []byte) error {
	var params protocol.CallToolParams
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &params); err != nil {
			return s.replyError(id, protocol.InvalidParams, fmt.Sprintf("invalid tools/call params: %v", err))
		}
	}

	started := time.Now()
	result, err := s.callTool(params.Name, params.Arguments)
	status := "ok"
	if err != nil {
		status = "error"
	}
	if s.metrics != nil {
		s.metrics.RecordToolCall(params.Name, status, time.Since(started))
	}

	if err != nil {
		s.logger.Warn("tool call failed",
			logging.String("tool", params.Name),
			logging.ErrorField(err))
		return s.replyError(id, protocol.ToolError, err.Error())
	}

	wrapped, err := protocol.NewTextResult(result)
	if err != nil {
		return s.replyError(id, protocol.InternalError, fmt.Sprintf("failed to encode tool result: %v", err))
	}
	s.logger.Debug("tool call succeeded", logging.String("tool", params.Name))
	return s.replyResult(id, wrapped)
}

// callTool invokes the registry with panic confinement: one misbehaving
// handler must not take down the long-lived server loop.
func (s *Server) callTool(name string, args []byte) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", name, r)
		}
	}()
	return s.registry.Call(name, args)
}

func (s *Server) replyResult(id int64, result interface{}) error {
	resp, err := protocol.NewResponse(id, result)
	if err != nil {
		return errors.Internal(err, "failed to build response")
	}
	return s.writer.WriteFrame(resp)
}

func (s *Server) replyError(id int64, code protocol.ErrorCode, message string) error {
	return s.writer.WriteFrame(protocol.NewErrorResponse(id, code, message))
}
