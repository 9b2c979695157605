// Package client implements the client side of the stdio MCP protocol: a
// blocking request/response endpoint over a child server process.
package client

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/motormind/autoassist/pkg/errors"
	"github.com/motormind/autoassist/pkg/logging"
	"github.com/motormind/autoassist/pkg/observability"
	"github.com/motormind/autoassist/pkg/protocol"
	"github.com/motormind/autoassist/pkg/transport"
)

// Conn is a synchronous JSON-RPC endpoint over a frame stream. Request IDs
// are assigned monotonically starting at 1; notifications do not consume an
// id. Exactly one request is outstanding at a time, so responses are matched
// strictly in send order.
type Conn struct {
	writer  *transport.FrameWriter
	reader  *transport.FrameReader
	logger  logging.Logger
	metrics *observability.Metrics
	tracer  *observability.TracingProvider
	nextID  int64
}

// NewConn creates a Conn over the given streams.
func NewConn(r io.Reader, w io.Writer, logger logging.Logger) *Conn {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Conn{
		writer: transport.NewFrameWriter(w),
		reader: transport.NewFrameReader(r),
		logger: logger,
		nextID: 1,
	}
}

// SetMetrics attaches a metrics collector recording request outcomes.
func (c *Conn) SetMetrics(m *observability.Metrics) { c.metrics = m }

// SetTracer attaches a trace provider spanning each request.
func (c *Conn) SetTracer(tp *observability.TracingProvider) { c.tracer = tp }

// Request sends a request and blocks until its response arrives. A response
// carrying an error object is surfaced as a remote error; the result payload
// is returned otherwise.
//
// The context is honored between operations, not during a blocking read:
// the wire protocol has no cancellation, so teardown is the only way to
// abandon a hung peer.
func (c *Conn) Request(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := c.nextID
	c.nextID++

	if c.tracer != nil {
		_, span := c.tracer.StartSpan(ctx, "rpc.request",
			attribute.String("rpc.method", method),
			attribute.Int64("rpc.id", id))
		result, err := c.exchange(id, method, params)
		observability.EndSpan(span, err)
		return result, err
	}
	return c.exchange(id, method, params)
}

// exchange writes the request frame and blocks for its response.
func (c *Conn) exchange(id int64, method string, params interface{}) (json.RawMessage, error) {
	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return nil, errors.Internal(err, "failed to build request")
	}

	started := time.Now()
	c.logger.Debug("sending request",
		logging.String("method", method),
		logging.Int("id", int(id)))

	if err := c.writer.WriteFrame(req); err != nil {
		c.record(method, "error", started)
		return nil, err
	}

	resp, err := c.readResponse(id)
	if err != nil {
		c.record(method, "error", started)
		return nil, err
	}
	if resp.Error != nil {
		c.record(method, "remote_error", started)
		return nil, errors.RemoteError(int(resp.Error.Code), resp.Error.Message)
	}
	c.record(method, "ok", started)
	return resp.Result, nil
}

// Notify sends a notification. No reply is expected and none is waited for.
func (c *Conn) Notify(ctx context.Context, method string, params interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	notif, err := protocol.NewNotification(method, params)
	if err != nil {
		return errors.Internal(err, "failed to build notification")
	}
	c.logger.Debug("sending notification", logging.String("method", method))
	return c.writer.WriteFrame(notif)
}

// readResponse reads frames until the response for id arrives. Server-sent
// notifications are logged and skipped; a response with a different id means
// the peer violated the in-order contract.
func (c *Conn) readResponse(id int64) (*protocol.Response, error) {
	for {
		var msg protocol.Message
		if err := c.reader.ReadInto(&msg); err != nil {
			if err == io.EOF {
				return nil, errors.ProtocolError("connection closed while awaiting response")
			}
			return nil, err
		}

		if msg.IsNotification() {
			c.logger.Debug("skipping server notification", logging.String("method", msg.Method))
			continue
		}
		if !msg.IsResponse() || msg.ID == nil {
			return nil, errors.ProtocolError("unexpected frame while awaiting response")
		}
		if *msg.ID != id {
			return nil, errors.ProtocolErrorf("response id %d does not match request id %d", *msg.ID, id)
		}
		return &protocol.Response{
			JSONRPCMessage: msg.JSONRPCMessage,
			ID:             *msg.ID,
			Result:         msg.Result,
			Error:          msg.Error,
		}, nil
	}
}

func (c *Conn) record(method, status string, started time.Time) {
	if c.metrics != nil {
		c.metrics.RecordRequest(method, status, time.Since(started))
	}
}
