package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chore-assistant-backend/internal/analytics"
	"chore-assistant-backend/internal/chores"
	"chore-assistant-backend/internal/session"
)

type recordedEvent struct {
	env   analytics.Envelope
	name  string
	props map[string]any
}

type memoryRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (m *memoryRecorder) Record(_ context.Context, env analytics.Envelope, name string, props map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, recordedEvent{env: env, name: name, props: props})
}

func (m *memoryRecorder) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.name
	}
	return out
}

func TestService_UnknownSessionIsInvalid(t *testing.T) {
	svc := NewService(session.NewMemoryStore(), NewEngine(&stubSubmitter{}, Options{}), nil)

	_, err := svc.Ask(context.Background(), "nope", "hi", "")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestService_PersistsEveryTurn(t *testing.T) {
	store := session.NewMemoryStore()
	rec := &memoryRecorder{}
	svc := NewService(store, NewEngine(&stubSubmitter{}, Options{}), rec)
	ctx := context.Background()

	sess, err := svc.StartSession(ctx)
	require.NoError(t, err)

	reply, err := svc.Ask(ctx, sess.ID, "洗碗", "")
	require.NoError(t, err)
	assert.Equal(t, FieldIcon, reply.Field)

	stored, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "洗碗", stored.Slots[FieldChoreName])

	assert.Equal(t, []string{analytics.EventSessionCreated, analytics.EventTurnProcessed}, rec.names())
	assert.Equal(t, sess.ID, rec.events[1].env.SessionID)
}

func TestService_FullConversationSubmitsAndResets(t *testing.T) {
	store := session.NewMemoryStore()
	sub := &stubSubmitter{}
	rec := &memoryRecorder{}
	svc := NewService(store, NewEngine(sub, Options{}), rec)
	ctx := context.Background()

	sess, err := svc.StartSession(ctx)
	require.NoError(t, err)

	for _, a := range plainAnswers {
		_, err := svc.Ask(ctx, sess.ID, a, "tok")
		require.NoError(t, err)
	}
	reply, err := svc.Ask(ctx, sess.ID, "确认", "tok")
	require.NoError(t, err)
	assert.Equal(t, ReplySubmitted, reply.Kind)

	stored, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Slots)
	assert.False(t, stored.ConfirmationPending)
	assert.Contains(t, rec.names(), analytics.EventChoreSubmitted)
}

func TestService_SubmitFailureIsRecorded(t *testing.T) {
	store := session.NewMemoryStore()
	sub := &stubSubmitter{err: &chores.SubmitError{Status: 500, Body: "boom"}}
	rec := &memoryRecorder{}
	svc := NewService(store, NewEngine(sub, Options{}), rec)
	ctx := context.Background()

	sess, err := svc.StartSession(ctx)
	require.NoError(t, err)
	for _, a := range plainAnswers {
		_, err := svc.Ask(ctx, sess.ID, a, "")
		require.NoError(t, err)
	}

	reply, err := svc.Ask(ctx, sess.ID, "确认", "")
	require.NoError(t, err)
	assert.Equal(t, ReplySubmitFailed, reply.Kind)
	assert.Contains(t, reply.Text, "boom")

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, analytics.EventChoreSubmitFailed, last.name)
	assert.Equal(t, 500, last.props["status"])

	stored, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Slots, len(RequiredFields))
}

type failingStore struct {
	session.Store
}

func (failingStore) Replace(context.Context, session.Session) error {
	return errors.New("disk full")
}

func TestService_StoreFailureIsError(t *testing.T) {
	mem := session.NewMemoryStore()
	sess, err := mem.Create(context.Background())
	require.NoError(t, err)

	svc := NewService(failingStore{Store: mem}, NewEngine(&stubSubmitter{}, Options{}), nil)
	_, err = svc.Ask(context.Background(), sess.ID, "洗碗", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidSession)
}

// flakyStore fails the first `failures` writes of an emptied session.
type flakyStore struct {
	session.Store
	mu       sync.Mutex
	failures int
	resets   int
}

func (f *flakyStore) Replace(ctx context.Context, sess session.Session) error {
	f.mu.Lock()
	if len(sess.Slots) == 0 {
		f.resets++
		if f.resets <= f.failures {
			f.mu.Unlock()
			return errors.New("connection reset")
		}
	}
	f.mu.Unlock()
	return f.Store.Replace(ctx, sess)
}

func fillAndConfirm(t *testing.T, svc *Service, id string) Reply {
	t.Helper()
	ctx := context.Background()
	for _, a := range plainAnswers {
		_, err := svc.Ask(ctx, id, a, "")
		require.NoError(t, err)
	}
	reply, err := svc.Ask(ctx, id, "确认", "")
	require.NoError(t, err)
	return reply
}

func TestService_ResetWriteIsRetriedAfterSubmit(t *testing.T) {
	mem := session.NewMemoryStore()
	store := &flakyStore{Store: mem, failures: resetWriteAttempts - 1}
	sub := &stubSubmitter{}
	svc := NewService(store, NewEngine(sub, Options{}), nil)

	sess, err := mem.Create(context.Background())
	require.NoError(t, err)

	reply := fillAndConfirm(t, svc, sess.ID)
	assert.Equal(t, ReplySubmitted, reply.Kind)

	stored, err := mem.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Slots)
	assert.False(t, stored.ConfirmationPending)

	// A second confirmation starts a new chore instead of resubmitting.
	reply, err = svc.Ask(context.Background(), sess.ID, "确认", "")
	require.NoError(t, err)
	assert.Equal(t, ReplyAskField, reply.Kind)
	assert.Equal(t, 1, sub.calls)
}

func TestService_UnsavedResetIsReportedNotFailed(t *testing.T) {
	mem := session.NewMemoryStore()
	store := &flakyStore{Store: mem, failures: resetWriteAttempts}
	rec := &memoryRecorder{}
	svc := NewService(store, NewEngine(&stubSubmitter{}, Options{}), rec)

	sess, err := mem.Create(context.Background())
	require.NoError(t, err)

	reply := fillAndConfirm(t, svc, sess.ID)
	assert.Equal(t, ReplySubmitted, reply.Kind)
	assert.Equal(t, resetWriteAttempts, store.resets)

	names := rec.names()
	assert.Contains(t, names, analytics.EventResetNotSaved)
	assert.Contains(t, names, analytics.EventChoreSubmitted)
}

func TestService_ConcurrentTurnsOnOneSessionDoNotLoseUpdates(t *testing.T) {
	store := session.NewMemoryStore()
	svc := NewService(store, NewEngine(&stubSubmitter{}, Options{}), nil)
	ctx := context.Background()

	sess, err := svc.StartSession(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < len(RequiredFields); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Ask(ctx, sess.ID, "否", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Slots, len(RequiredFields))
	assert.True(t, stored.ConfirmationPending)
}
