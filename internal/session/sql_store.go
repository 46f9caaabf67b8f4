package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SQLStore keeps sessions in the chat_sessions table. It works with any
// driver sqlx knows a bind type for (Postgres and SQLite in practice).
type SQLStore struct {
	db *sqlx.DB
}

type sessionRow struct {
	ID                  string `db:"id"`
	Slots               string `db:"slots"`
	ConfirmationPending bool   `db:"confirmation_pending"`
	CreatedAt           int64  `db:"created_at"`
	UpdatedAt           int64  `db:"updated_at"`
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Create(ctx context.Context) (Session, error) {
	sess := New(uuid.NewString(), time.Now().UTC().Truncate(time.Second))
	if err := s.upsert(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Session{}, ErrNotFound
	}

	var row sessionRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT id, slots, confirmation_pending, created_at, updated_at
		FROM chat_sessions
		WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("loading session %s: %w", id, err)
	}

	slots := map[string]string{}
	if err := json.Unmarshal([]byte(row.Slots), &slots); err != nil {
		return Session{}, fmt.Errorf("decoding slots of session %s: %w", id, err)
	}

	return Session{
		ID:                  row.ID,
		Slots:               slots,
		ConfirmationPending: row.ConfirmationPending,
		CreatedAt:           time.Unix(row.CreatedAt, 0).UTC(),
		UpdatedAt:           time.Unix(row.UpdatedAt, 0).UTC(),
	}, nil
}

func (s *SQLStore) Replace(ctx context.Context, sess Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	sess.UpdatedAt = time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = sess.UpdatedAt
	}
	return s.upsert(ctx, sess)
}

func (s *SQLStore) upsert(ctx context.Context, sess Session) error {
	slots := sess.Slots
	if slots == nil {
		slots = map[string]string{}
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("encoding slots of session %s: %w", sess.ID, err)
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO chat_sessions (id, slots, confirmation_pending, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			slots = EXCLUDED.slots,
			confirmation_pending = EXCLUDED.confirmation_pending,
			updated_at = EXCLUDED.updated_at
	`), sess.ID, string(raw), sess.ConfirmationPending, sess.CreatedAt.Unix(), sess.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("saving session %s: %w", sess.ID, err)
	}
	return nil
}

// Close is a no-op; the database handle belongs to the caller.
func (s *SQLStore) Close() error {
	return nil
}
