package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/motormind/autoassist/pkg/errors"
	"github.com/motormind/autoassist/pkg/logging"
	"github.com/motormind/autoassist/pkg/observability"
	"github.com/motormind/autoassist/pkg/protocol"
)

const (
	// maxIterations bounds the model/tool exchange so a model that keeps
	// requesting tools cannot spin forever.
	maxIterations = 8

	systemPrompt = "You are an automotive assistant. Use provided tools when needed, and return clear, safe advice."

	capMessage = "Stopped after max tool-call iterations."
)

// ToolCaller executes a named tool and returns its result. Satisfied by
// *client.Client.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, arguments json.RawMessage) (*protocol.CallToolResult, error)
}

// Loop interleaves chat-completion turns with MCP tool invocations until the
// model answers without requesting tools, or the iteration cap is hit.
type Loop struct {
	model   Client
	caller  ToolCaller
	name    string
	logger  logging.Logger
	metrics *observability.Metrics
	tracer  *observability.TracingProvider
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLoopLogger sets the loop logger.
func WithLoopLogger(logger logging.Logger) LoopOption {
	return func(l *Loop) { l.logger = logger }
}

// WithLoopMetrics records iteration counts per run.
func WithLoopMetrics(m *observability.Metrics) LoopOption {
	return func(l *Loop) { l.metrics = m }
}

// WithLoopTracer spans each run and each of its iterations.
func WithLoopTracer(tp *observability.TracingProvider) LoopOption {
	return func(l *Loop) { l.tracer = tp }
}

// NewLoop creates a tool-calling loop over the given model and tool caller.
// modelName selects the chat model, e.g. "gpt-4o-mini".
func NewLoop(model Client, caller ToolCaller, modelName string, options ...LoopOption) *Loop {
	l := &Loop{
		model:  model,
		caller: caller,
		name:   modelName,
		logger: logging.Nop(),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Run drives the conversation for one user prompt. Tool results are fed back
// to the model as role "tool" messages, one per requested call, in the order
// the model requested them.
func (l *Loop) Run(ctx context.Context, prompt string, tools []protocol.Tool) (string, error) {
	answer, iterations, err := l.run(ctx, prompt, tools)
	if l.metrics != nil {
		l.metrics.RecordLoopRun(iterations)
	}
	return answer, err
}

func (l *Loop) run(ctx context.Context, prompt string, tools []protocol.Tool) (string, int, error) {
	var span trace.Span
	if l.tracer != nil {
		ctx, span = l.tracer.StartSpan(ctx, "llm.loop",
			attribute.String("llm.model", l.name),
			attribute.Int("llm.tools", len(tools)))
	}

	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}
	specs := ConvertTools(tools)

	var runErr error
	defer func() {
		if span != nil {
			observability.EndSpan(span, runErr)
		}
	}()

	for iteration := 1; iteration <= maxIterations; iteration++ {
		answer, done, err := l.step(ctx, iteration, &messages, specs)
		if err != nil {
			runErr = err
			return "", iteration, err
		}
		if done {
			return answer, iteration, nil
		}
	}

	l.logger.Warn("tool-call loop hit iteration cap",
		logging.Int("iterations", maxIterations))
	return capMessage, maxIterations, nil
}

// step runs one model turn plus any tool calls it requests, spanned
// individually when tracing is on. done reports that the model answered
// without requesting tools.
func (l *Loop) step(ctx context.Context, iteration int, messages *[]Message, specs []Tool) (answer string, done bool, err error) {
	if l.tracer != nil {
		var span trace.Span
		ctx, span = l.tracer.StartSpan(ctx, "llm.iteration",
			attribute.Int("llm.iteration", iteration))
		defer func() { observability.EndSpan(span, err) }()
	}

	if err = ctx.Err(); err != nil {
		return "", false, err
	}

	reply, chatErr := l.model.Chat(ctx, l.name, *messages, specs)
	if chatErr != nil {
		err = fmt.Errorf("model turn %d: %w", iteration, chatErr)
		return "", false, err
	}
	*messages = append(*messages, *reply)

	if len(reply.ToolCalls) == 0 {
		l.logger.Debug("model answered",
			logging.Int("iteration", iteration),
			logging.Int("messages", len(*messages)))
		return reply.Content, true, nil
	}

	for _, call := range reply.ToolCalls {
		var result string
		result, err = l.invoke(ctx, call)
		if err != nil {
			return "", false, err
		}
		*messages = append(*messages, Message{
			Role:       "tool",
			ToolCallID: call.ID,
			Name:       call.Function.Name,
			Content:    result,
		})
	}
	return "", false, nil
}

func (l *Loop) invoke(ctx context.Context, call ToolCall) (string, error) {
	args := json.RawMessage(call.Function.Arguments)
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if !json.Valid(args) {
		return "", errors.ProtocolErrorf("model produced malformed tool arguments for %s", call.Function.Name)
	}

	l.logger.Debug("invoking tool",
		logging.String("tool", call.Function.Name),
		logging.String("call_id", call.ID))

	result, err := l.caller.CallTool(ctx, call.Function.Name, args)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", call.Function.Name, err)
	}
	return result.JoinText(), nil
}
