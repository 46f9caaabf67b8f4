package analytics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type CtxKey string

const ctxEnvelopeKey CtxKey = "analytics_envelope"

const (
	EventSessionCreated    = "session_created"
	EventTurnProcessed     = "turn_processed"
	EventChoreSubmitted    = "chore_submitted"
	EventChoreSubmitFailed = "chore_submit_failed"
	EventResetNotSaved     = "session_reset_not_saved"
)

// Envelope is what we store with every event.
type Envelope struct {
	SessionID  string
	Platform   string
	AppVersion string
}

// FromRequest extracts event envelope fields from request headers.
func FromRequest(r *http.Request) Envelope {
	platform := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Platform")))
	switch platform {
	case "ios", "android", "web", "miniprogram":
	default:
		platform = "unknown"
	}

	return Envelope{
		Platform:   platform,
		AppVersion: strings.TrimSpace(r.Header.Get("X-App-Version")),
	}
}

func WithEnvelope(ctx context.Context, env Envelope) context.Context {
	return context.WithValue(ctx, ctxEnvelopeKey, env)
}

func EnvelopeFromContext(ctx context.Context) Envelope {
	env, ok := ctx.Value(ctxEnvelopeKey).(Envelope)
	if !ok {
		return Envelope{Platform: "unknown"}
	}
	return env
}

// Recorder stores one analytics event. Implementations swallow their own
// failures; a lost event never fails a turn. Props must not carry raw user text.
type Recorder interface {
	Record(ctx context.Context, env Envelope, eventName string, props map[string]any)
}

type Nop struct{}

func (Nop) Record(context.Context, Envelope, string, map[string]any) {}

// LogRecorder prints events as single JSON lines.
type LogRecorder struct {
	Logger *log.Logger
}

func (l LogRecorder) Record(_ context.Context, env Envelope, eventName string, props map[string]any) {
	if eventName == "" {
		return
	}
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	b, err := json.Marshal(map[string]any{
		"event":      eventName,
		"session_id": env.SessionID,
		"platform":   env.Platform,
		"props":      props,
	})
	if err != nil {
		return
	}
	logger.Println(string(b))
}

// SQLRecorder inserts events into analytics_events.
type SQLRecorder struct {
	DB *sqlx.DB
}

func (s SQLRecorder) Record(ctx context.Context, env Envelope, eventName string, props map[string]any) {
	if eventName == "" || s.DB == nil {
		return
	}

	if props == nil {
		props = map[string]any{}
	}
	b, err := json.Marshal(props)
	if err != nil {
		// if props can't marshal, don't break core flow
		return
	}

	platform := env.Platform
	if platform == "" {
		platform = "unknown"
	}

	_, _ = s.DB.ExecContext(ctx, s.DB.Rebind(`
		INSERT INTO analytics_events (
			id, event_name, event_time,
			session_id, platform, app_version,
			properties
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), uuid.NewString(), eventName, time.Now().UTC().Unix(),
		nullIfEmpty(env.SessionID), platform, env.AppVersion,
		string(b),
	)
}

func nullIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
