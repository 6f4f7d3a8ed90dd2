package models

import (
	"encoding/json"
	"fmt"
)

// ContentItem matches MCP "content" items returned from tools/call.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ToolResult is shaped to be directly usable as an MCP tool result.
// StructuredContent carries the props a widget renders and Meta carries
// host hints such as the widget template to use.
type ToolResult struct {
	Content           []ContentItem  `json:"content"`
	StructuredContent any            `json:"structuredContent,omitempty"`
	Meta              map[string]any `json:"_meta,omitempty"`
	IsError           bool           `json:"isError,omitempty"`
}

func Text(s string) ToolResult {
	return ToolResult{
		Content: []ContentItem{
			{Type: "text", Text: s},
		},
	}
}

// ErrorText is a tool result reporting a user-visible failure.
func ErrorText(s string) ToolResult {
	r := Text(s)
	r.IsError = true
	return r
}

// FirstText returns the text of the first text content item, if any.
func (r ToolResult) FirstText() string {
	for _, c := range r.Content {
		if c.Type == "text" {
			return c.Text
		}
	}
	return ""
}

// --- JSON-RPC types ---

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r JSONRPCRequest) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *JSONRPCError) Error() string {
	if e == nil {
		return "json-rpc error"
	}
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// ToolsCallParams is the params object of a tools/call request.
type ToolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}
