package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"chore-assistant-backend/internal/ai"
	"chore-assistant-backend/internal/analytics"
	"chore-assistant-backend/internal/assistant"
	"chore-assistant-backend/internal/auth"
	"chore-assistant-backend/internal/chores"
)

const maxBodyBytes int64 = 1 << 20

// Directory proxies the chores API lookups the frontend needs to fill the
// icon and member fields.
type Directory interface {
	ListIcons(ctx context.Context, token string) ([]chores.Icon, error)
	ListMembers(ctx context.Context, token string) ([]chores.Member, error)
}

// Chatter answers free-text questions; nil disables /api/chat.
type Chatter interface {
	Chat(ctx context.Context, messages []ai.Message) (string, error)
}

type Deps struct {
	Logger         *log.Logger
	Service        *assistant.Service
	Directory      Directory
	Chatter        Chatter
	AllowedOrigins []string
}

type server struct {
	logger    *log.Logger
	svc       *assistant.Service
	directory Directory
	chatter   Chatter
	origins   []string
}

// NewHandler builds the routes. The /api prefixed paths and the bare paths
// are both served.
func NewHandler(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &server{
		logger:    logger,
		svc:       d.Service,
		directory: d.Directory,
		chatter:   d.Chatter,
		origins:   d.AllowedOrigins,
	}

	tokens := auth.New()
	mux := http.NewServeMux()

	// Health endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	for _, prefix := range []string{"/api", ""} {
		mux.HandleFunc(prefix+"/session", s.handleSession)
		mux.HandleFunc(prefix+"/icons", tokens.Wrap(s.handleIcons))
		mux.HandleFunc(prefix+"/members", tokens.Wrap(s.handleMembers))
		mux.HandleFunc(prefix+"/ask", s.handleAsk)
		mux.HandleFunc(prefix+"/chat", s.handleChat)
		mux.HandleFunc(prefix+"/ws", s.handleWS)
	}

	return withRequestLog(logger, withEnvelope(mux))
}

func (s *server) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, err := s.svc.StartSession(r.Context())
	if err != nil {
		s.logger.Printf("create session: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"session_id": sess.ID})
}

func (s *server) handleIcons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	icons, err := s.directory.ListIcons(r.Context(), auth.TokenFromContext(r.Context()))
	if err != nil {
		s.logger.Printf("list icons: %v", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, icons)
}

func (s *server) handleMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	members, err := s.directory.ListMembers(r.Context(), auth.TokenFromContext(r.Context()))
	if err != nil {
		s.logger.Printf("list members: %v", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, members)
}

type askRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Token     string `json:"token"`
}

type askResponse struct {
	Reply string `json:"reply"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}

func (s *server) handleAsk(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body askRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Token == "" {
		body.Token = auth.TokenFromRequest(r)
	}

	reply, err := s.ask(r.Context(), body)
	if errors.Is(err, assistant.ErrInvalidSession) {
		writeError(w, http.StatusBadRequest, "Invalid session")
		return
	}
	if err != nil {
		s.logger.Printf("ask session=%s: %v", body.SessionID, err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func (s *server) ask(ctx context.Context, body askRequest) (askResponse, error) {
	reply, err := s.svc.Ask(ctx, body.SessionID, body.Message, body.Token)
	if err != nil {
		return askResponse{}, err
	}
	if reply.Kind == assistant.ReplySubmitFailed {
		s.logger.Printf("submit chore session=%s: %v", body.SessionID, reply.Err)
	}
	return askResponse{Reply: reply.Text, Kind: string(reply.Kind), Field: reply.Field}, nil
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.chatter == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}

	var body struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	var slots map[string]string
	if body.SessionID != "" {
		sess, err := s.svc.Lookup(r.Context(), body.SessionID)
		if errors.Is(err, assistant.ErrInvalidSession) {
			writeError(w, http.StatusBadRequest, "Invalid session")
			return
		}
		if err != nil {
			s.logger.Printf("chat lookup session=%s: %v", body.SessionID, err)
			writeError(w, http.StatusInternalServerError, "failed to load session")
			return
		}
		slots = sess.Slots
	}

	text, err := s.chatter.Chat(r.Context(), ai.BuildMessages(slots, body.Message))
	if errors.Is(err, ai.ErrNotConfigured) {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}
	if err != nil {
		s.logger.Printf("chat: %v", err)
		writeError(w, http.StatusBadGateway, "chat request failed")
		return
	}

	writeJSON(w, http.StatusOK, askResponse{Reply: text})
}

func decodeBody(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func withEnvelope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := analytics.WithEnvelope(r.Context(), analytics.FromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
