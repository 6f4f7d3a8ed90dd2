package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/worldofchami/medusa-mcp/pkg/cart"
	"github.com/worldofchami/medusa-mcp/pkg/models"
	"github.com/worldofchami/medusa-mcp/pkg/tools"
)

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// dispatch answers req. ok is false for notifications, which get no reply.
func (s *Server) dispatch(ctx context.Context, req models.JSONRPCRequest) (resp models.JSONRPCResponse, ok bool) {
	if req.IsNotification() {
		if !strings.HasPrefix(req.Method, "notifications/") {
			s.log.WithField("method", req.Method).Debug("ignoring request without id")
		}
		return models.JSONRPCResponse{}, false
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req), true
	case "ping":
		return replyResult(req.ID, map[string]any{}), true
	case "tools/list":
		return s.handleToolsList(req), true
	case "tools/call":
		return s.handleToolsCall(ctx, req), true
	default:
		return replyError(req.ID, codeMethodNotFound, "Method not found", map[string]any{
			"method": req.Method,
		}), true
	}
}

func (s *Server) handleInitialize(req models.JSONRPCRequest) models.JSONRPCResponse {
	return replyResult(req.ID, map[string]any{
		"protocolVersion": ProtocolVersion,
		"serverInfo": map[string]any{
			"name":    ServerName,
			"version": ServerVersion,
		},
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
	})
}

func (s *Server) handleToolsList(req models.JSONRPCRequest) models.JSONRPCResponse {
	list := make([]map[string]any, 0, len(s.tools))
	for _, t := range s.tools {
		entry := map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"inputSchema": t.InputSchema,
		}
		if t.Annotations != nil {
			entry["annotations"] = t.Annotations
		}
		if t.Meta != nil {
			entry["_meta"] = t.Meta
		}
		list = append(list, entry)
	}
	return replyResult(req.ID, map[string]any{"tools": list})
}

func (s *Server) handleToolsCall(ctx context.Context, req models.JSONRPCRequest) models.JSONRPCResponse {
	var p models.ToolsCallParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return replyError(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	log := s.log.WithFields(logrus.Fields{
		"request_id": string(req.ID),
		"tool":       p.Name,
		"scope":      cart.ScopeFrom(ctx),
	})
	log.WithField("arguments", string(p.Arguments)).Info("tool call")

	t, found := tools.Find(s.tools, p.Name)
	if !found {
		log.Warn("unknown tool")
		return replyError(req.ID, codeInvalidParams, "Invalid params", map[string]any{
			"reason": "unknown tool",
			"name":   p.Name,
		})
	}

	start := time.Now()
	result, err := t.Call(ctx, p.Arguments)
	log = log.WithField("duration_ms", time.Since(start).Milliseconds())
	if errors.Is(err, tools.ErrInvalidArguments) {
		log.WithError(err).Warn("tool call rejected")
		return replyError(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}
	if err != nil {
		log.WithError(err).Error("tool call failed")
		return replyError(req.ID, codeInternalError, "Tool execution error", err.Error())
	}

	log.WithFields(logrus.Fields{
		"is_error": result.IsError,
		"output":   result.FirstText(),
	}).Info("tool result")
	return replyResult(req.ID, result)
}

func replyResult(id json.RawMessage, result any) models.JSONRPCResponse {
	return models.JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  mustMarshalRaw(result),
	}
}

func replyError(id json.RawMessage, code int, message string, data any) models.JSONRPCResponse {
	return models.JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &models.JSONRPCError{
			Code:    code,
			Message: message,
			Data:    mustMarshalRaw(data),
		},
	}
}

func mustMarshalRaw(v any) json.RawMessage {
	if v == nil {
		return json.RawMessage("null")
	}
	b, err := json.Marshal(v)
	if err != nil {
		// Only reachable with unmarshalable values, a programming error.
		panic(err)
	}
	return json.RawMessage(b)
}
