package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"machiavelli-server/internal/history"

	"github.com/coder/websocket"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	statusTimeout       = 2 * time.Second
)

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /history", s.historyHandler)
	mux.HandleFunc("GET /history/{id}", s.gameHandler)
	mux.HandleFunc("/websocket", s.websocketHandler)

	// Wrap the mux with CORS middleware
	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	resp, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(resp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), statusTimeout)
	defer cancel()

	status := http.StatusOK
	resp := map[string]any{
		"status":      "up",
		"connections": s.ConnectionCount(),
		"codec":       s.codec.Name(),
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		status = http.StatusServiceUnavailable
		resp["status"] = "down"
		resp["error"] = err.Error()
	} else {
		resp["table"] = snap
	}

	switch {
	case s.history == nil:
		resp["history"] = "disabled"
	case s.history.Health(ctx) != nil:
		status = http.StatusServiceUnavailable
		resp["status"] = "down"
		resp["history"] = "down"
	default:
		resp["history"] = "up"
	}

	writeJSON(w, status, resp)
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "History is disabled", http.StatusNotFound)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	games, err := s.history.RecentGames(r.Context(), limit)
	if err != nil {
		log.Printf("Failed to load history: %v", err)
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) gameHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "History is disabled", http.StatusNotFound)
		return
	}

	game, err := s.history.LoadGame(r.Context(), r.PathValue("id"))
	if errors.Is(err, history.ErrGameNotFound) {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Failed to load game: %v", err)
		http.Error(w, "Failed to load game", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// websocketHandler attaches a browser to the table. The socket carries the
// same framed commands as a TCP connection.
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("Failed to open websocket: %v", err)
		return
	}

	messageType := websocket.MessageText
	if s.codec.Name() != "json" {
		messageType = websocket.MessageBinary
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := newTrackedConn(websocket.NetConn(ctx, socket, messageType))
	if err := s.attach(r.Context(), conn); err != nil {
		log.Printf("Failed to attach websocket: %v", err)
		return
	}

	// Hold the request open until the session hangs up.
	select {
	case <-conn.closed:
	case <-r.Context().Done():
		conn.Close()
	}
}

// trackedConn reports when the session closes its connection.
type trackedConn struct {
	net.Conn
	closed    chan struct{}
	closeOnce sync.Once
}

func newTrackedConn(conn net.Conn) *trackedConn {
	return &trackedConn{Conn: conn, closed: make(chan struct{})}
}

func (c *trackedConn) Close() error {
	err := c.Conn.Close()
	c.closeOnce.Do(func() { close(c.closed) })
	return err
}
