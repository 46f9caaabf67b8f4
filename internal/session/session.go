package session

import (
	"maps"
	"time"
)

// Session is the per-conversation slot-filling state.
type Session struct {
	ID                  string            `json:"id"`
	Slots               map[string]string `json:"slots"`
	ConfirmationPending bool              `json:"confirmation_pending"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// New returns an empty session with the given id.
func New(id string, now time.Time) Session {
	return Session{
		ID:        id,
		Slots:     map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a copy that shares no slot map with s.
func (s Session) Clone() Session {
	out := s
	out.Slots = make(map[string]string, len(s.Slots))
	maps.Copy(out.Slots, s.Slots)
	return out
}

// Reset drops every slot and the pending flag, keeping the identifier.
func (s Session) Reset() Session {
	out := s
	out.Slots = map[string]string{}
	out.ConfirmationPending = false
	return out
}
