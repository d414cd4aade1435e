package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/port"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/service"
)

// Server implements the Model Context Protocol (MCP) server.
// It exposes the phrase matcher as tools for external AI agents.
type Server struct {
	matcher *service.MatcherService
	port    string
	version string
	audit   port.AuditWriter // nil = tool calls are not audited
}

// NewServer creates a new MCP server.
func NewServer(matcher *service.MatcherService, port, version string) *Server {
	return &Server{
		matcher: matcher,
		port:    port,
		version: version,
	}
}

// WithAudit records every tools/call in the audit log.
func (s *Server) WithAudit(w port.AuditWriter) *Server {
	s.audit = w
	return s
}

// Tool represents an MCP tool definition.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Handler returns the MCP HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleRPC)
	mux.HandleFunc("/mcp/sse", s.handleSSE)
	return mux
}

// Start begins the MCP server on the configured port.
func (s *Server) Start() error {
	slog.Info("MCP server starting", "port", s.port)
	return http.ListenAndServe(":"+s.port, s.Handler())
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, -32700, "parse error")
		return
	}

	var result interface{}
	var err error

	switch req.Method {
	case "tools/list":
		result = s.listTools()
	case "tools/call":
		result, err = s.callTool(r, req.Params)
	case "initialize":
		result = map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]string{
				"name":    "phrasematch",
				"version": s.version,
			},
			"capabilities": map[string]interface{}{
				"tools": map[string]bool{"listChanged": false},
			},
		}
	default:
		writeError(w, req.ID, -32601, "method not found")
		return
	}

	if err != nil {
		writeError(w, req.ID, -32603, err.Error())
		return
	}

	writeResult(w, req.ID, result)
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: endpoint\ndata: /mcp\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	<-r.Context().Done()
}

func (s *Server) listTools() map[string]interface{} {
	tools := []Tool{
		{
			Name:        "match_phrase",
			Description: "Find the reference phrase semantically closest to a sentence",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"text": {"type": "string", "description": "Sentence to match"}
				},
				"required": ["text"]
			}`),
		},
		{
			Name:        "list_references",
			Description: "List the reference phrases the matcher compares against",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {}
			}`),
		},
	}
	return map[string]interface{}{"tools": tools}
}

func (s *Server) callTool(r *http.Request, params json.RawMessage) (interface{}, error) {
	var req struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	result, err := s.runTool(r.Context(), req.Name, req.Arguments)
	s.recordCall(r, req.Name, result, err)
	return result, err
}

func (s *Server) recordCall(r *http.Request, tool string, result interface{}, err error) {
	if s.audit == nil {
		return
	}
	details := map[string]interface{}{"tool": tool, "ok": err == nil}
	if err != nil {
		details["error"] = err.Error()
	}
	if m, ok := result.(map[string]interface{}); ok {
		if label, ok := m["label"]; ok {
			details["label"] = label
			details["score"] = m["score"]
		}
	}
	detailsJSON, _ := json.Marshal(details)

	if werr := s.audit.WriteAudit("mcp", domain.AuditActionMCPCall, "mcp", tool, string(detailsJSON), r.RemoteAddr, r.UserAgent()); werr != nil {
		slog.Error("failed to write audit log", "action", domain.AuditActionMCPCall, "error", werr)
	}
}

func (s *Server) runTool(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error) {
	switch name {
	case "match_phrase":
		var args struct {
			Text string `json:"text"`
		}
		if len(arguments) > 0 {
			if err := json.Unmarshal(arguments, &args); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
		}

		m, err := s.matcher.Query(ctx, args.Text)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": fmt.Sprintf("Most similar phrase: %q\nSimilarity score: %.4f", m.Label, m.Score)},
			},
			"label":       m.Label,
			"score":       m.Score,
			"comparisons": m.Comparisons,
		}, nil

	case "list_references":
		phrases := s.matcher.Phrases()
		return map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": "Reference phrases:\n- " + strings.Join(phrases, "\n- ")},
			},
			"state": s.matcher.State(),
		}, nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
