package assistant

import (
	"context"
	"errors"
	"fmt"

	"chore-assistant-backend/internal/analytics"
	"chore-assistant-backend/internal/chores"
	"chore-assistant-backend/internal/session"
)

// ErrInvalidSession is returned by Ask when the session id is unknown.
var ErrInvalidSession = errors.New("invalid session")

// Service wires the engine to a session store: it loads the session,
// runs one step under the session's lock and writes the result back.
type Service struct {
	store    session.Store
	engine   *Engine
	locks    *session.Locker
	recorder analytics.Recorder
}

func NewService(store session.Store, engine *Engine, recorder analytics.Recorder) *Service {
	if recorder == nil {
		recorder = analytics.Nop{}
	}
	return &Service{
		store:    store,
		engine:   engine,
		locks:    session.NewLocker(),
		recorder: recorder,
	}
}

func (s *Service) StartSession(ctx context.Context) (session.Session, error) {
	sess, err := s.store.Create(ctx)
	if err != nil {
		return session.Session{}, fmt.Errorf("creating session: %w", err)
	}

	env := analytics.EnvelopeFromContext(ctx)
	env.SessionID = sess.ID
	s.recorder.Record(ctx, env, analytics.EventSessionCreated, nil)
	return sess, nil
}

// Ask runs one turn. Only an unknown session or a store failure produce an
// error; every other outcome, including a failed submission, is a Reply.
func (s *Service) Ask(ctx context.Context, sessionID, message, token string) (Reply, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return Reply{}, ErrInvalidSession
	}
	if err != nil {
		return Reply{}, err
	}

	next, reply := s.engine.Step(ctx, sess, message, token)

	if reply.Kind == ReplySubmitted {
		// The chore already exists downstream; a stale pending session
		// would let the next confirmation create it again.
		if err := s.saveReset(ctx, next); err != nil {
			env := analytics.EnvelopeFromContext(ctx)
			env.SessionID = sessionID
			s.recorder.Record(ctx, env, analytics.EventResetNotSaved, map[string]any{
				"attempts": resetWriteAttempts,
				"error":    err.Error(),
			})
		}
		s.record(ctx, sessionID, sess, reply)
		return reply, nil
	}

	if err := s.store.Replace(ctx, next); err != nil {
		return Reply{}, fmt.Errorf("saving session %s: %w", sessionID, err)
	}

	s.record(ctx, sessionID, sess, reply)
	return reply, nil
}

const resetWriteAttempts = 3

func (s *Service) saveReset(ctx context.Context, next session.Session) error {
	var err error
	for attempt := 0; attempt < resetWriteAttempts; attempt++ {
		if err = s.store.Replace(ctx, next); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("saving reset session %s: %w", next.ID, err)
}

func (s *Service) record(ctx context.Context, sessionID string, before session.Session, reply Reply) {
	env := analytics.EnvelopeFromContext(ctx)
	env.SessionID = sessionID

	s.recorder.Record(ctx, env, analytics.EventTurnProcessed, map[string]any{
		"reply_kind":   string(reply.Kind),
		"asked_field":  reply.Field,
		"filled_slots": len(before.Slots),
	})

	switch reply.Kind {
	case ReplySubmitted:
		s.recorder.Record(ctx, env, analytics.EventChoreSubmitted, map[string]any{
			"slots":      len(before.Slots),
			"chore_type": before.Slots[FieldChoreType],
		})
	case ReplySubmitFailed:
		var se *chores.SubmitError
		status := 0
		if errors.As(reply.Err, &se) {
			status = se.Status
		}
		s.recorder.Record(ctx, env, analytics.EventChoreSubmitFailed, map[string]any{
			"status":  status,
			"timeout": chores.IsTimeout(reply.Err),
		})
	}
}

// Lookup returns the current state of a session without advancing it.
func (s *Service) Lookup(ctx context.Context, sessionID string) (session.Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return session.Session{}, ErrInvalidSession
	}
	return sess, err
}
