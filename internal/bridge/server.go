// Package bridge lets an editor extension drive the sorter over a WebSocket.
//
// The extension opens documents and keeps their text in sync; the server
// answers sort requests and pushes edits, highlight decorations and notices
// back as notifications.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/classwind/internal/batch"
	"github.com/zjrosen/classwind/internal/config"
	"github.com/zjrosen/classwind/internal/log"
	"github.com/zjrosen/classwind/internal/ranking"
)

// Path is the WebSocket endpoint.
const Path = "/ws"

// Options configures a Server. Every connection gets its own documents and
// highlight cycle built from them.
type Options struct {
	Config   config.Config
	Rankings ranking.Provider
	// Root is the workspace root used for project sorts and ranking
	// overrides. Empty means no workspace.
	Root   string
	Runner batch.Runner
	Tracer trace.Tracer
	// LoadConfig re-reads configuration on configChanged. When nil the
	// request is acknowledged and nothing changes.
	LoadConfig func() (config.Config, error)
}

// Server serves the editor bridge.
type Server struct {
	opts     Options
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
}

// NewServer creates a bridge server.
func NewServer(opts Options) (*Server, error) {
	if opts.Rankings == nil {
		return nil, errors.New("ranking provider is required")
	}
	if err := config.Validate(opts.Config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Server{
		opts: opts,
		upgrader: websocket.Upgrader{
			// Editors connect from extension hosts with arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != Path {
		http.NotFound(w, r)
		return
	}
	s.handleWebSocket(w, r)
}

// Sessions returns the number of connected editors.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorErr(log.CatBridge, "WebSocket upgrade failed", err, "remote", r.RemoteAddr)
		return
	}

	sess, err := newSession(uuid.NewString(), conn, s.opts)
	if err != nil {
		log.ErrorErr(log.CatBridge, "Session setup failed", err, "remote", r.RemoteAddr)
		_ = conn.Close()
		return
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	log.Info(log.CatBridge, "Editor connected", "session", sess.id, "remote", r.RemoteAddr)

	defer func() {
		sess.close()
		_ = conn.Close()
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
		log.Info(log.CatBridge, "Editor disconnected", "session", sess.id)
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.ErrorErr(log.CatBridge, "Read failed", err, "session", sess.id)
			}
			return
		}

		var req rpcRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			_ = sess.send(rpcResponse{Error: &rpcError{Code: CodeParseError, Message: err.Error()}})
			continue
		}

		if err := sess.dispatch(req); err != nil {
			log.ErrorErr(log.CatBridge, "Write failed", err, "session", sess.id)
			return
		}
	}
}

// Shutdown closes every connection.
func (s *Server) Shutdown() {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.wmu.Lock()
		_ = sess.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		sess.wmu.Unlock()
		_ = sess.conn.Close()
	}
}
