// Package mcp serves tools over MCP's JSON-RPC: request/response on /rpc and
// a server-sent event stream on /sse that /rpc requests can be routed to.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/worldofchami/medusa-mcp/pkg/cart"
	"github.com/worldofchami/medusa-mcp/pkg/models"
	"github.com/worldofchami/medusa-mcp/pkg/tools"
)

const (
	ProtocolVersion = "2024-11-05"
	ServerName      = "medusa-mcp"
	ServerVersion   = "0.1.0"

	// ClientIDHeader routes an /rpc request to an open /sse stream.
	ClientIDHeader = "X-Client-ID"
	// CartScopeHeader selects the cart a tool call works on.
	CartScopeHeader = "X-Cart-Scope"

	defaultKeepalive = 30 * time.Second
	clientBuffer     = 10
)

type Server struct {
	tools     []tools.Tool
	clients   map[string]*sseClient
	mu        sync.RWMutex
	log       *logrus.Entry
	keepalive time.Duration
}

type sseClient struct {
	id string
	ch chan models.JSONRPCResponse
}

type Option func(*Server)

// WithKeepalive sets how often an idle /sse stream receives a comment line.
func WithKeepalive(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.keepalive = d
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

func NewServer(ts []tools.Tool, opts ...Option) *Server {
	s := &Server{
		tools:     ts,
		clients:   make(map[string]*sseClient),
		log:       logrus.NewEntry(logrus.StandardLogger()),
		keepalive: defaultKeepalive,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "mcp")
	return s
}

// Mount registers /sse and /rpc on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/sse", s.handleSSE)
	r.Post("/sse", s.handleSSE)
	r.Post("/rpc", s.handleRPC)
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	clientID := strings.TrimSpace(r.Header.Get(ClientIDHeader))
	if clientID == "" {
		clientID = uuid.NewString()
	}
	client := &sseClient{id: clientID, ch: make(chan models.JSONRPCResponse, clientBuffer)}

	s.mu.Lock()
	s.clients[clientID] = client
	s.mu.Unlock()
	log := s.log.WithField("client_id", clientID)
	log.Debug("sse client connected")

	defer func() {
		s.mu.Lock()
		// A later stream may have taken over the id.
		if s.clients[clientID] == client {
			delete(s.clients, clientID)
		}
		s.mu.Unlock()
		log.Debug("sse client disconnected")
	}()

	// Tell the client which id to send with /rpc requests.
	if _, err := fmt.Fprintf(w, "event: endpoint\ndata: /rpc?client_id=%s\n\n", clientID); err != nil {
		return
	}
	flusher.Flush()

	// A POST may carry the first request in its body.
	if r.Method == http.MethodPost {
		body, err := io.ReadAll(r.Body)
		if err == nil && len(body) > 0 {
			var msg models.JSONRPCRequest
			if err := json.Unmarshal(body, &msg); err == nil {
				go s.handleRequest(clientID, detached(r), msg)
			}
		}
	}

	ticker := time.NewTicker(s.keepalive)
	defer ticker.Stop()
	for {
		select {
		case resp := <-client.ch:
			if err := writeSSE(w, resp); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var msg models.JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, replyError(nil, codeParseError, "Parse error", err.Error()))
		return
	}

	clientID := r.Header.Get(ClientIDHeader)
	if clientID == "" {
		clientID = r.URL.Query().Get("client_id")
	}
	s.mu.RLock()
	_, exists := s.clients[clientID]
	s.mu.RUnlock()

	if exists {
		go s.handleRequest(clientID, detached(r), msg)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		return
	}

	// No SSE client, respond directly.
	resp, ok := s.dispatch(requestContext(r), msg)
	if !ok {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRequest answers a request on the client's stream. Responses are
// dropped when the client is gone or not reading.
func (s *Server) handleRequest(clientID string, ctx context.Context, req models.JSONRPCRequest) {
	resp, ok := s.dispatch(ctx, req)
	if !ok {
		return
	}

	s.mu.RLock()
	client, exists := s.clients[clientID]
	s.mu.RUnlock()
	if !exists {
		return
	}
	select {
	case client.ch <- resp:
	default:
		s.log.WithField("client_id", clientID).Warn("sse client buffer full, dropping response")
	}
}

// requestContext carries the cart scope of r.
func requestContext(r *http.Request) context.Context {
	return cart.WithScope(r.Context(), r.Header.Get(CartScopeHeader))
}

// detached is requestContext for requests answered on an SSE stream, after
// the HTTP request that carried them has returned.
func detached(r *http.Request) context.Context {
	return context.WithoutCancel(requestContext(r))
}

func writeSSE(w io.Writer, resp models.JSONRPCResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: message\ndata: %s\n\n", b)
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
