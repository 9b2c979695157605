// Package llm drives an external chat-completion model with tool calling
// and implements the loop that interleaves model turns with MCP tool
// invocations.
package llm

import (
	"context"
	"encoding/json"

	"github.com/motormind/autoassist/pkg/protocol"
)

// Message is one turn of a conversation in the chat-completions format.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is an instruction from the model to invoke a named tool. The
// arguments arrive as a JSON-encoded string and are not trusted to be
// well formed.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and its raw argument string.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool is a tool descriptor in the model's function-calling schema.
type Tool struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

// FunctionSpec describes one callable function to the model.
type FunctionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Client is the interface to a chat-completion provider.
type Client interface {
	// Chat sends the conversation plus tool descriptors and returns the
	// model's next message.
	Chat(ctx context.Context, model string, messages []Message, tools []Tool) (*Message, error)
}

// ConvertTools translates MCP tool descriptors into the model's
// function-calling schema.
func ConvertTools(mcpTools []protocol.Tool) []Tool {
	out := make([]Tool, 0, len(mcpTools))
	for _, t := range mcpTools {
		parameters := t.InputSchema
		if len(parameters) == 0 {
			parameters = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		out = append(out, Tool{
			Type: "function",
			Function: FunctionSpec{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  parameters,
			},
		})
	}
	return out
}
