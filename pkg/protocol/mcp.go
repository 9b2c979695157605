package protocol

import (
	"encoding/json"
	"strings"
)

// ProtocolVersion is the MCP protocol revision implemented by both sides.
// It is advertised during initialize but not validated against the peer's
// declared version; mismatches are tolerated.
const ProtocolVersion = "2024-11-05"

// Method names implemented by the server dispatch loop.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodListTools   = "tools/list"
	MethodCallTool    = "tools/call"
)

// InitializeParams is sent by the client as the first request.
type InitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ClientInfo      ClientInfo             `json:"clientInfo"`
}

// ClientInfo identifies the connecting client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the server's reply to initialize.
type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      ServerInfo             `json:"serverInfo"`
}

// ServerInfo identifies the server.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Tool describes a callable capability advertised via tools/list.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ListToolsResult is the reply to tools/list.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolParams names the tool to invoke and its JSON arguments.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ContentBlock is one element of a tool result's content list.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallToolResult is the reply to tools/call.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError"`
}

// NewTextResult wraps a JSON-encodable tool result as a single text content
// block, the shape expected by tool-calling model APIs.
func NewTextResult(result interface{}) (*CallToolResult, error) {
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &CallToolResult{
		Content: []ContentBlock{{Type: "text", Text: string(encoded)}},
		IsError: false,
	}, nil
}

// JoinText concatenates the text of every text content block, in order.
// Non-text blocks are skipped.
func (r *CallToolResult) JoinText() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}
