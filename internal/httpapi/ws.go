package httpapi

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/websocket"

	"chore-assistant-backend/internal/assistant"
	"chore-assistant-backend/internal/auth"
)

const maxWSMessageBytes int64 = 64 << 10

type wsError struct {
	Error string `json:"error"`
}

func (s *server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(s.origins) == 0 || slices.Contains(s.origins, "*") {
				return true
			}
			return slices.Contains(s.origins, origin)
		},
	}
}

// handleWS runs the same dialogue as /ask over one websocket: every inbound
// {message, token} frame is a turn and gets one {reply} frame back.
func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if _, err := s.svc.Lookup(r.Context(), sessionID); err != nil {
		if errors.Is(err, assistant.ErrInvalidSession) {
			writeError(w, http.StatusBadRequest, "Invalid session")
			return
		}
		s.logger.Printf("ws lookup session=%s: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	handshakeToken := auth.TokenFromRequest(r)

	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("ws upgrade session=%s: %v", sessionID, err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxWSMessageBytes)

	for {
		var in askRequest
		if err := conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("ws read session=%s: %v", sessionID, err)
			}
			return
		}
		in.SessionID = sessionID
		if in.Token == "" {
			in.Token = handshakeToken
		}

		out, err := s.ask(r.Context(), in)
		if err != nil {
			msg := "failed to process message"
			if errors.Is(err, assistant.ErrInvalidSession) {
				msg = "Invalid session"
			} else {
				s.logger.Printf("ws ask session=%s: %v", sessionID, err)
			}
			_ = conn.WriteJSON(wsError{Error: msg})
			return
		}
		if err := conn.WriteJSON(out); err != nil {
			s.logger.Printf("ws write session=%s: %v", sessionID, err)
			return
		}
	}
}
