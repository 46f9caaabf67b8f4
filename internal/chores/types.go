package chores

import "encoding/json"

// Icon and Member are upstream objects relayed to the frontend exactly as
// received. Their shape belongs to the chores API.
type Icon json.RawMessage

type Member json.RawMessage

func (i Icon) MarshalJSON() ([]byte, error) {
	return rawOrNull(i), nil
}

func (i *Icon) UnmarshalJSON(b []byte) error {
	*i = append((*i)[:0], b...)
	return nil
}

func (m Member) MarshalJSON() ([]byte, error) {
	return rawOrNull(m), nil
}

func (m *Member) UnmarshalJSON(b []byte) error {
	*m = append((*m)[:0], b...)
	return nil
}

func rawOrNull(b []byte) []byte {
	if len(b) == 0 {
		return []byte("null")
	}
	return b
}

// envelope is the {"data": ...} wrapper the chores API puts around lists.
type envelope[T any] struct {
	Data []T `json:"data"`
}
