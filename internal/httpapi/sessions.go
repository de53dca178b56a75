package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leanspec/leanspec/internal/session"
)

// handleSessions serves GET /api/sessions (optionally filtered) and POST
// /api/sessions (start a new supervised run).
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := session.ListFilter{
			ProjectPath: r.URL.Query().Get("projectPath"),
			SpecID:      r.URL.Query().Get("specId"),
			Status:      session.Status(r.URL.Query().Get("status")),
		}
		sessions, err := s.sessions.List(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "total": len(sessions)})
	case http.MethodPost:
		var cfg session.Config
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sess, err := s.sessions.Start(r.Context(), cfg)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"session": sess})
	default:
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

// handleSessionScoped routes /api/sessions/:id[/logs|/events|/pause|/resume|/stop].
func (s *Server) handleSessionScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, errors.New("session id is required"))
		return
	}
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	ctx := r.Context()
	switch action {
	case "":
		s.getSession(w, ctx, id)
	case "logs":
		s.getSessionLogs(w, ctx, id)
	case "events":
		s.getSessionEvents(w, ctx, id)
	case "pause":
		s.transitionSession(w, ctx, id, s.sessions.Pause)
	case "resume":
		s.transitionSession(w, ctx, id, s.sessions.Resume)
	case "stop":
		s.transitionSession(w, ctx, id, s.sessions.Stop)
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown session action: "+action))
	}
}

func (s *Server) getSession(w http.ResponseWriter, ctx context.Context, id string) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess})
}

func (s *Server) getSessionLogs(w http.ResponseWriter, ctx context.Context, id string) {
	logs, err := s.sessions.Logs(ctx, id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs, "total": len(logs)})
}

func (s *Server) getSessionEvents(w http.ResponseWriter, ctx context.Context, id string) {
	events, err := s.sessions.Events(ctx, id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "total": len(events)})
}

func (s *Server) transitionSession(w http.ResponseWriter, ctx context.Context, id string, fn func(context.Context, string) error) {
	if err := fn(ctx, id); err != nil {
		writeEngineError(w, err)
		return
	}
	s.getSession(w, ctx, id)
}

// upgrader accepts any origin: the same localhost-or-reverse-proxy trust
// model as the rest of this local-first daemon (see internal/mcp/http.go).
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleSessionLogsWS serves GET /ws/sessions/:id/logs, streaming each new
// log line to the client as it's published on the session's bus.
func (s *Server) handleSessionLogsWS(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/ws/sessions/")
	id := strings.TrimSuffix(rest, "/logs")
	if id == "" || id == rest {
		writeError(w, http.StatusNotFound, errors.New("expected /ws/sessions/:id/logs"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session", id, "error", err)
		return
	}
	defer conn.Close()

	ch, unsubscribe, err := s.sessions.Subscribe(id)
	if err != nil {
		conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}
	defer unsubscribe()

	// Replay history so a client that connects mid-run isn't missing
	// earlier output.
	if history, err := s.sessions.Logs(r.Context(), id); err == nil {
		for _, l := range history {
			if err := conn.WriteJSON(l); err != nil {
				return
			}
		}
	}

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case log, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(log); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
