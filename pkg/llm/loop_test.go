package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/motormind/autoassist/pkg/errors"
	"github.com/motormind/autoassist/pkg/observability"
	"github.com/motormind/autoassist/pkg/protocol"
)

// scriptedModel replays a fixed sequence of assistant messages and records
// every request it receives.
type scriptedModel struct {
	replies  []Message
	err      error
	requests [][]Message
}

func (m *scriptedModel) Chat(ctx context.Context, model string, messages []Message, tools []Tool) (*Message, error) {
	m.requests = append(m.requests, append([]Message(nil), messages...))
	if m.err != nil {
		return nil, m.err
	}
	turn := len(m.requests) - 1
	if turn >= len(m.replies) {
		turn = len(m.replies) - 1
	}
	reply := m.replies[turn]
	return &reply, nil
}

type recordingCaller struct {
	calls []string
	args  []string
	err   error
}

func (c *recordingCaller) CallTool(ctx context.Context, name string, arguments json.RawMessage) (*protocol.CallToolResult, error) {
	c.calls = append(c.calls, name)
	c.args = append(c.args, string(arguments))
	if c.err != nil {
		return nil, c.err
	}
	return protocol.NewTextResult(map[string]string{"tool": name})
}

func toolCall(id, name, args string) ToolCall {
	return ToolCall{
		ID:   id,
		Type: "function",
		Function: FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

func sampleTools() []protocol.Tool {
	return []protocol.Tool{
		{Name: "get_weather", Description: "Weather lookup", InputSchema: json.RawMessage(`{"type":"object","properties":{}}`)},
	}
}

func TestLoopDirectAnswer(t *testing.T) {
	model := &scriptedModel{replies: []Message{{Role: "assistant", Content: "All clear."}}}
	caller := &recordingCaller{}

	loop := NewLoop(model, caller, "gpt-4o-mini")
	answer, err := loop.Run(context.Background(), "How is the car?", sampleTools())
	require.NoError(t, err)
	assert.Equal(t, "All clear.", answer)
	assert.Empty(t, caller.calls)

	require.Len(t, model.requests, 1)
	first := model.requests[0]
	require.Len(t, first, 2)
	assert.Equal(t, "system", first[0].Role)
	assert.Equal(t, "user", first[1].Role)
	assert.Equal(t, "How is the car?", first[1].Content)
}

func TestLoopSingleToolRound(t *testing.T) {
	model := &scriptedModel{replies: []Message{
		{
			Role: "assistant",
			ToolCalls: []ToolCall{
				toolCall("call_1", "get_weather", `{"location":"Office"}`),
			},
		},
		{Role: "assistant", Content: "Rainy, drive carefully."},
	}}
	caller := &recordingCaller{}

	loop := NewLoop(model, caller, "gpt-4o-mini")
	answer, err := loop.Run(context.Background(), "Weather?", sampleTools())
	require.NoError(t, err)
	assert.Equal(t, "Rainy, drive carefully.", answer)
	assert.Equal(t, []string{"get_weather"}, caller.calls)
	assert.Equal(t, []string{`{"location":"Office"}`}, caller.args)

	// The second request must carry the assistant message verbatim,
	// followed by one tool message per call.
	require.Len(t, model.requests, 2)
	second := model.requests[1]
	require.Len(t, second, 4)
	assert.Equal(t, "assistant", second[2].Role)
	require.Len(t, second[2].ToolCalls, 1)
	assert.Equal(t, "call_1", second[2].ToolCalls[0].ID)
	assert.Equal(t, "tool", second[3].Role)
	assert.Equal(t, "call_1", second[3].ToolCallID)
	assert.Equal(t, "get_weather", second[3].Name)
	assert.Contains(t, second[3].Content, "get_weather")
}

func TestLoopMultipleCallsInOrder(t *testing.T) {
	model := &scriptedModel{replies: []Message{
		{
			Role: "assistant",
			ToolCalls: []ToolCall{
				toolCall("call_1", "run_diagnostics", `{}`),
				toolCall("call_2", "get_weather", `{}`),
				toolCall("call_3", "check_maintenance_schedule", `{}`),
			},
		},
		{Role: "assistant", Content: "done"},
	}}
	caller := &recordingCaller{}

	loop := NewLoop(model, caller, "gpt-4o-mini")
	_, err := loop.Run(context.Background(), "full check", sampleTools())
	require.NoError(t, err)
	assert.Equal(t, []string{"run_diagnostics", "get_weather", "check_maintenance_schedule"}, caller.calls)
}

func TestLoopIterationCap(t *testing.T) {
	// A model that always wants another tool call never terminates on its
	// own; the loop must stop it.
	model := &scriptedModel{replies: []Message{
		{
			Role:      "assistant",
			ToolCalls: []ToolCall{toolCall("call_1", "get_weather", `{}`)},
		},
	}}
	caller := &recordingCaller{}

	loop := NewLoop(model, caller, "gpt-4o-mini")
	answer, err := loop.Run(context.Background(), "loop forever", sampleTools())
	require.NoError(t, err)
	assert.Equal(t, "Stopped after max tool-call iterations.", answer)
	assert.Len(t, model.requests, 8)
	assert.Len(t, caller.calls, 8)
}

func TestLoopMalformedArguments(t *testing.T) {
	model := &scriptedModel{replies: []Message{
		{
			Role:      "assistant",
			ToolCalls: []ToolCall{toolCall("call_1", "get_weather", `{not json`)},
		},
	}}
	caller := &recordingCaller{}

	loop := NewLoop(model, caller, "gpt-4o-mini")
	_, err := loop.Run(context.Background(), "weather", sampleTools())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryProtocol))
	assert.Empty(t, caller.calls)
}

func TestLoopEmptyArgumentsDefaulted(t *testing.T) {
	model := &scriptedModel{replies: []Message{
		{
			Role:      "assistant",
			ToolCalls: []ToolCall{toolCall("call_1", "get_weather", "")},
		},
		{Role: "assistant", Content: "ok"},
	}}
	caller := &recordingCaller{}

	loop := NewLoop(model, caller, "gpt-4o-mini")
	_, err := loop.Run(context.Background(), "weather", sampleTools())
	require.NoError(t, err)
	require.Len(t, caller.args, 1)
	assert.JSONEq(t, `{}`, caller.args[0])
}

func TestLoopModelError(t *testing.T) {
	model := &scriptedModel{err: fmt.Errorf("upstream unavailable")}
	loop := NewLoop(model, &recordingCaller{}, "gpt-4o-mini")

	_, err := loop.Run(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestLoopToolError(t *testing.T) {
	model := &scriptedModel{replies: []Message{
		{
			Role:      "assistant",
			ToolCalls: []ToolCall{toolCall("call_1", "get_weather", `{}`)},
		},
	}}
	caller := &recordingCaller{err: fmt.Errorf("transport closed")}

	loop := NewLoop(model, caller, "gpt-4o-mini")
	_, err := loop.Run(context.Background(), "weather", sampleTools())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get_weather")
	assert.Contains(t, err.Error(), "transport closed")
}

func TestLoopContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model := &scriptedModel{replies: []Message{{Role: "assistant", Content: "never"}}}
	loop := NewLoop(model, &recordingCaller{}, "gpt-4o-mini")

	_, err := loop.Run(ctx, "hello", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, model.requests)
}

func TestLoopIterationSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer, err := observability.NewTracingProvider(context.Background(),
		observability.TracingConfig{ServiceName: "loop-test"},
		sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)

	model := &scriptedModel{replies: []Message{
		{
			Role:      "assistant",
			ToolCalls: []ToolCall{toolCall("call_1", "get_weather", `{}`)},
		},
		{Role: "assistant", Content: "done"},
	}}

	loop := NewLoop(model, &recordingCaller{}, "gpt-4o-mini", WithLoopTracer(tracer))
	_, err = loop.Run(context.Background(), "weather", sampleTools())
	require.NoError(t, err)

	// Child spans end before the enclosing run span.
	spans := recorder.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "llm.iteration", spans[0].Name())
	assert.Equal(t, "llm.iteration", spans[1].Name())
	assert.Equal(t, "llm.loop", spans[2].Name())

	assert.Contains(t, spans[0].Attributes(), attribute.Int("llm.iteration", 1))
	assert.Contains(t, spans[1].Attributes(), attribute.Int("llm.iteration", 2))
	assert.Equal(t, spans[2].SpanContext().SpanID(), spans[0].Parent().SpanID(),
		"iteration spans must be children of the run span")
}

func TestLoopRecordsIterations(t *testing.T) {
	metrics := observability.NewMetrics(observability.MetricsConfig{})
	model := &scriptedModel{replies: []Message{{Role: "assistant", Content: "hi"}}}

	loop := NewLoop(model, &recordingCaller{}, "gpt-4o-mini", WithLoopMetrics(metrics))
	_, err := loop.Run(context.Background(), "hello", nil)
	require.NoError(t, err)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range families {
		if mf.GetName() == "autoassist_loop_iterations" {
			found = true
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, uint64(1), mf.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, found, "loop iterations histogram not registered")
}
