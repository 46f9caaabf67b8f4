package session

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("session not found")

// Store keeps sessions by id. Implementations must be safe for concurrent use;
// serializing turns of one session is the caller's job (see Locker).
type Store interface {
	Create(ctx context.Context) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	Replace(ctx context.Context, s Session) error
	Close() error
}
