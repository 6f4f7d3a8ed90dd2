package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/worldofchami/medusa-mcp/pkg/cart"
	"github.com/worldofchami/medusa-mcp/pkg/mcp"
	"github.com/worldofchami/medusa-mcp/pkg/models"
	"github.com/worldofchami/medusa-mcp/pkg/utils"
)

const userAgent = "medusa-mcp-assistant/0.1.0"

// MCPClient calls tools on the MCP server over its /rpc endpoint. The cart
// scope of the calling context is forwarded so each chat session gets its
// own cart.
type MCPClient struct {
	URL  string
	HTTP *http.Client

	nextID atomic.Int64
}

// NewMCPClient targets the server at baseURL (without the /rpc suffix).
func NewMCPClient(baseURL string) *MCPClient {
	client := utils.NewHTTPClientWithHeader("User-Agent", userAgent)
	// Placing an order makes several backend calls in one tool call.
	client.Timeout = 60 * time.Second
	return &MCPClient{
		URL:  strings.TrimRight(baseURL, "/") + "/rpc",
		HTTP: client,
	}
}

// toolResult keeps structured content raw so it can be shown to the model
// as is.
type toolResult struct {
	Content           []models.ContentItem `json:"content"`
	StructuredContent json.RawMessage      `json:"structuredContent,omitempty"`
	IsError           bool                 `json:"isError,omitempty"`
}

// CallTool runs a tools/call request and renders the result as text for the
// model. Tool-level failures are returned as text, not as errors.
func (c *MCPClient) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	arguments, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshal MCP arguments: %w", err)
	}
	params, err := json.Marshal(models.ToolsCallParams{Name: name, Arguments: arguments})
	if err != nil {
		return "", fmt.Errorf("marshal MCP params: %w", err)
	}
	body, err := json.Marshal(models.JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      json.RawMessage(fmt.Sprint(c.nextID.Add(1))),
		Method:  "tools/call",
		Params:  params,
	})
	if err != nil {
		return "", fmt.Errorf("marshal MCP request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build MCP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(mcp.CartScopeHeader, cart.ScopeFrom(ctx))

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call MCP server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("MCP server returned status %s", resp.Status)
	}

	var rpcResp models.JSONRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return "", fmt.Errorf("decode MCP response: %w", err)
	}
	if rpcResp.Error != nil {
		return "", fmt.Errorf("MCP error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if len(rpcResp.Result) == 0 {
		return "", fmt.Errorf("MCP response missing result")
	}

	var result toolResult
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return "", fmt.Errorf("decode MCP result: %w", err)
	}
	return result.text(), nil
}

func (r toolResult) text() string {
	var b strings.Builder
	if r.IsError {
		b.WriteString("The tool reported an error.\n")
	}
	n := 0
	for _, c := range r.Content {
		if c.Text == "" {
			continue
		}
		if n > 0 {
			b.WriteString("\n\n")
		}
		n++
		fmt.Fprintf(&b, "Result %d (%s):\n%s", n, c.Type, c.Text)
	}
	if len(r.StructuredContent) > 0 && string(r.StructuredContent) != "null" {
		fmt.Fprintf(&b, "\n\nData:\n%s", r.StructuredContent)
	}
	return b.String()
}
