package client

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/motormind/autoassist/pkg/errors"
	"github.com/motormind/autoassist/pkg/logging"
	"github.com/motormind/autoassist/pkg/observability"
	"github.com/motormind/autoassist/pkg/protocol"
)

// DefaultCloseTimeout bounds how long Close waits for the child server to
// exit after its stdin is closed, before escalating to a kill.
const DefaultCloseTimeout = 2 * time.Second

// Client owns a child MCP server process and the RPC connection to it. No
// other component may write to the child's streams.
type Client struct {
	conn   *Conn
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger logging.Logger

	closeTimeout time.Duration
	group        *errgroup.Group

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		if c.conn != nil {
			c.conn.SetMetrics(m)
		}
	}
}

// WithTracing spans each RPC request on the given provider.
func WithTracing(tp *observability.TracingProvider) Option {
	return func(c *Client) {
		if c.conn != nil {
			c.conn.SetTracer(tp)
		}
	}
}

// WithCloseTimeout overrides the teardown wait.
func WithCloseTimeout(d time.Duration) Option {
	return func(c *Client) { c.closeTimeout = d }
}

// WithEnv appends environment variables to the server process.
func WithEnv(env ...string) Option {
	return func(c *Client) { c.cmd.Env = append(os.Environ(), env...) }
}

// Spawn starts the server command and connects to its stdio streams. The
// command's stderr is drained and forwarded to the logger so a chatty or
// crashing server can never block on a full pipe.
func Spawn(name string, args []string, options ...Option) (*Client, error) {
	cmd := exec.Command(name, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.TransportError("open server stdin", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.TransportError("open server stdout", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.TransportError("open server stderr", err)
	}

	c := &Client{
		cmd:          cmd,
		stdin:        stdin,
		logger:       logging.Default().WithFields(logging.String("component", "client")),
		closeTimeout: DefaultCloseTimeout,
	}
	c.conn = NewConn(stdout, stdin, c.logger)
	for _, opt := range options {
		opt(c)
	}
	c.conn.logger = c.logger

	if err := cmd.Start(); err != nil {
		return nil, errors.TransportError("start server process", err)
	}
	c.logger.Debug("server process started",
		logging.String("command", name),
		logging.Int("pid", cmd.Process.Pid))

	c.group = &errgroup.Group{}
	c.group.Go(func() error {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			c.logger.Debug("server stderr", logging.String("line", scanner.Text()))
		}
		return nil
	})

	return c, nil
}

// Request forwards to the underlying connection.
func (c *Client) Request(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return c.conn.Request(ctx, method, params)
}

// Notify forwards to the underlying connection.
func (c *Client) Notify(ctx context.Context, method string, params interface{}) error {
	return c.conn.Notify(ctx, method, params)
}

// Initialize performs the MCP handshake: an initialize request followed by
// the initialized notification. The server's declared protocol version is
// logged but not enforced.
func (c *Client) Initialize(ctx context.Context) (*protocol.InitializeResult, error) {
	raw, err := c.Request(ctx, protocol.MethodInitialize, protocol.InitializeParams{
		ProtocolVersion: protocol.ProtocolVersion,
		Capabilities:    map[string]interface{}{},
		ClientInfo:      protocol.ClientInfo{Name: "autoassist-cli", Version: "1.0.0"},
	})
	if err != nil {
		return nil, err
	}

	var result protocol.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.WrapProtocol(err, "malformed initialize result")
	}
	if result.ProtocolVersion != protocol.ProtocolVersion {
		c.logger.Debug("server declared a different protocol version",
			logging.String("client", protocol.ProtocolVersion),
			logging.String("server", result.ProtocolVersion))
	}

	if err := c.Notify(ctx, protocol.MethodInitialized, nil); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListTools fetches the server's tool descriptors.
func (c *Client) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	raw, err := c.Request(ctx, protocol.MethodListTools, nil)
	if err != nil {
		return nil, err
	}
	var result protocol.ListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.WrapProtocol(err, "malformed tools/list result")
	}
	return result.Tools, nil
}

// CallTool invokes a named tool with JSON arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments json.RawMessage) (*protocol.CallToolResult, error) {
	raw, err := c.Request(ctx, protocol.MethodCallTool, protocol.CallToolParams{
		Name:      name,
		Arguments: arguments,
	})
	if err != nil {
		return nil, err
	}
	var result protocol.CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.WrapProtocol(err, "malformed tools/call result")
	}
	return &result, nil
}

// Close tears the child process down: close its stdin so the server loop
// sees end-of-stream, wait up to the close timeout, then kill. Closing an
// already-closed client is a no-op.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.shutdown()
	})
	return c.closeErr
}

func (c *Client) shutdown() error {
	if err := c.stdin.Close(); err != nil {
		c.logger.Warn("failed to close server stdin", logging.ErrorField(err))
	}

	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()

	select {
	case err := <-done:
		_ = c.group.Wait()
		if err != nil {
			// A non-zero exit during teardown is expected noise, not a
			// failure of Close.
			c.logger.Debug("server exited", logging.ErrorField(err))
		}
		return nil
	case <-time.After(c.closeTimeout):
		c.logger.Warn("server did not exit in time, killing",
			logging.Duration("timeout", c.closeTimeout))
		if err := c.cmd.Process.Kill(); err != nil {
			return errors.TransportError("kill server process", err)
		}
		<-done
		_ = c.group.Wait()
		return nil
	}
}
