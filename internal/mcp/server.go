package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"go.klb.dev/clipstage/internal/auth"
	"go.klb.dev/clipstage/internal/clip"
	"go.klb.dev/clipstage/internal/snapshot"
	"go.klb.dev/clipstage/internal/staging"
)

// DefaultAddr is the default listen address for the tool server.
const DefaultAddr = "127.0.0.1:3830"

const sseHeartbeat = 30 * time.Second

// Config tunes a Server.
type Config struct {
	// InlineThreshold caps the inline payload in clipboard.get responses;
	// larger content is staged (images) or marked truncated (text).
	InlineThreshold int
	// AllowWrite gates the clipboard.set tool.
	AllowWrite bool
	// Version is reported by /health and initialize.
	Version string
}

// Server serves JSON-RPC tool calls over HTTP.
type Server struct {
	cfg   Config
	acc   *clip.Accessor
	store *staging.Store
	auth  *auth.Manager
}

// New returns a Server over the core operations.
func New(cfg Config, acc *clip.Accessor, store *staging.Store, am *auth.Manager) *Server {
	return &Server{cfg: cfg, acc: acc, store: store, auth: am}
}

// Router builds the HTTP routes: /health, JSON-RPC on / and /rpc, and the
// /sse heartbeat stream.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(permissiveCORS)
	r.Get("/health", s.handleHealth)
	r.Post("/", s.handleRPC)
	r.Post("/rpc", s.handleRPC)
	r.Get("/sse", s.handleSSE)
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("tool server listening", "addr", addr, "auth", s.auth.Token() != "")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("tool server: %w", err)
	}
}

// permissiveCORS mirrors the open CORS posture of a localhost-only tool
// endpoint.
func permissiveCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"version":       s.cfg.Version,
		"platform":      runtime.GOOS,
		"capabilities":  []string{"text", "image", "watch"},
		"auth_required": s.auth.Token() != "",
	})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !s.auth.Validate(token) {
		writeJSON(w, http.StatusUnauthorized, errorResponse(nil, codeAuthRequired, "authentication required"))
		return
	}

	var body bytes.Buffer
	if _, err := body.ReadFrom(http.MaxBytesReader(w, r.Body, 32<<20)); err != nil {
		writeJSON(w, http.StatusOK, errorResponse(nil, codeParseError, "unreadable request body"))
		return
	}

	raw := bytes.TrimSpace(body.Bytes())
	if len(raw) > 0 && raw[0] == '[' {
		var reqs []Request
		if err := json.Unmarshal(raw, &reqs); err != nil {
			writeJSON(w, http.StatusOK, errorResponse(nil, codeParseError, "invalid JSON-RPC batch"))
			return
		}
		responses := make([]Response, 0, len(reqs))
		for _, req := range reqs {
			responses = append(responses, s.dispatch(req))
		}
		writeJSON(w, http.StatusOK, responses)
		return
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		writeJSON(w, http.StatusOK, errorResponse(nil, codeParseError, "invalid JSON-RPC request"))
		return
	}
	writeJSON(w, http.StatusOK, s.dispatch(req))
}

func (s *Server) dispatch(req Request) Response {
	switch req.Method {
	case methodInitialize:
		return successResponse(req.ID, map[string]any{
			"protocolVersion": "1.0",
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": "clipstage", "version": s.cfg.Version},
		})
	case methodInitialized:
		return successResponse(req.ID, map[string]any{})
	case methodToolsList:
		return successResponse(req.ID, map[string]any{"tools": s.tools()})
	case methodToolsCall:
		return s.handleToolCall(req)
	default:
		return errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (s *Server) tools() []Tool {
	return []Tool{
		{
			Name:        "clipboard.get",
			Description: "Get current clipboard content (text or image; large images are staged to a file)",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"format": map[string]any{
						"type":        "string",
						"enum":        []string{"auto", "text", "image"},
						"description": "Preferred format (auto detects automatically)",
						"default":     "auto",
					},
				},
				"required": []string{},
			},
		},
		{
			Name:        "clipboard.set",
			Description: "Set clipboard content (requires the daemon's --write flag)",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"type": map[string]any{
						"type":        "string",
						"enum":        []string{"text/plain", "image/png"},
						"description": "Content type",
					},
					"data": map[string]any{
						"type":        "string",
						"description": "Content data (text, or base64 for images)",
					},
				},
				"required": []string{"type", "data"},
			},
		},
	}
}

func (s *Server) handleToolCall(req Request) Response {
	if len(req.Params) == 0 {
		return errorResponse(req.ID, codeInvalidParams, "missing parameters")
	}
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("invalid parameters: %v", err))
	}

	switch params.Name {
	case "clipboard.get":
		return s.toolClipboardGet(req.ID)
	case "clipboard.set":
		return s.toolClipboardSet(req.ID, params.Arguments)
	default:
		return errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("unknown tool: %s", params.Name))
	}
}

// contentJSON is the wire form of a snapshot in clipboard.get responses.
type contentJSON struct {
	Type      string `json:"type"`
	Data      string `json:"data,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	File      string `json:"file,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Size      int    `json:"size,omitempty"`
}

func (s *Server) toolClipboardGet(id json.RawMessage) Response {
	snap, err := s.acc.Read()
	if err != nil {
		if errors.Is(err, clip.ErrNoContent) {
			return errorResponse(id, codeInternalError, "no content in clipboard")
		}
		return errorResponse(id, codeInternalError, fmt.Sprintf("clipboard error: %v", err))
	}

	content := s.renderContent(snap)
	payload := map[string]any{
		"content": content,
		"metadata": map[string]any{
			"timestamp": snap.CapturedAt.UTC().Format(time.RFC3339Nano),
			"source":    snap.Source,
		},
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errorResponse(id, codeInternalError, fmt.Sprintf("encode response: %v", err))
	}
	return successResponse(id, textResult(string(out)))
}

// renderContent maps a snapshot to its wire form, applying the inline
// threshold: oversized text is truncated for display, oversized images are
// staged and returned by path.
func (s *Server) renderContent(snap snapshot.Snapshot) contentJSON {
	threshold := s.cfg.InlineThreshold
	if threshold <= 0 {
		threshold = 64 * 1024
	}

	if snap.Kind == snapshot.KindText {
		c := contentJSON{Type: string(snapshot.KindText), Data: string(snap.Text)}
		if len(snap.Text) > threshold {
			c.Data = string(snap.Text[:threshold])
			c.Truncated = true
		}
		return c
	}

	c := contentJSON{
		Type:   string(snap.Kind),
		Width:  snap.Width,
		Height: snap.Height,
		Size:   snap.ByteSize,
	}
	switch {
	case snap.Image != nil && snap.ByteSize <= threshold:
		c.Data = base64.StdEncoding.EncodeToString(snap.Image)
	case snap.Image != nil:
		art, err := s.store.Stage(snap.Image, snap.Kind)
		if err != nil {
			slog.Error("staging for clipboard.get failed", "err", err)
		} else {
			c.File = art.Path
		}
	default:
		c.File = snap.Ref
	}
	return c
}

func (s *Server) toolClipboardSet(id, args json.RawMessage) Response {
	if !s.cfg.AllowWrite {
		return errorResponse(id, codeInvalidRequest, "write operations disabled (start with --write)")
	}

	var set struct {
		Type string `json:"type"`
		Data string `json:"data"`
	}
	if err := json.Unmarshal(args, &set); err != nil || set.Type == "" {
		return errorResponse(id, codeInvalidParams, "invalid arguments")
	}

	switch set.Type {
	case string(snapshot.KindText):
		if err := s.acc.WriteText(set.Data); err != nil {
			return errorResponse(id, codeInternalError, fmt.Sprintf("failed to set clipboard: %v", err))
		}
	case string(snapshot.KindImagePNG):
		raw, err := base64.StdEncoding.DecodeString(set.Data)
		if err != nil {
			return errorResponse(id, codeInvalidParams, fmt.Sprintf("base64 decode: %v", err))
		}
		if err := s.acc.WriteImage(raw); err != nil {
			return errorResponse(id, codeInternalError, fmt.Sprintf("failed to set clipboard: %v", err))
		}
	default:
		return errorResponse(id, codeInvalidParams, fmt.Sprintf("unsupported type: %s", set.Type))
	}

	return successResponse(id, textResult("Clipboard updated successfully"))
}

// handleSSE streams heartbeat pings. Auth travels in the query string
// because EventSource cannot set headers.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Validate(r.URL.Query().Get("token")) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	t := time.NewTicker(sseHeartbeat)
	defer t.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-t.C:
			fmt.Fprint(w, "event: ping\ndata: heartbeat\n\n")
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response write failed", "err", err)
	}
}
