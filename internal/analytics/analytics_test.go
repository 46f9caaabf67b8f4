package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chore-assistant-backend/internal/db"
)

func TestFromRequestNormalizesPlatform(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/ask", nil)
	r.Header.Set("X-Platform", " iOS ")
	r.Header.Set("X-App-Version", "1.2.0")

	env := FromRequest(r)
	assert.Equal(t, "ios", env.Platform)
	assert.Equal(t, "1.2.0", env.AppVersion)

	r.Header.Set("X-Platform", "fridge")
	assert.Equal(t, "unknown", FromRequest(r).Platform)
}

func TestEnvelopeRoundTripsThroughContext(t *testing.T) {
	ctx := WithEnvelope(context.Background(), Envelope{SessionID: "s1", Platform: "web"})
	assert.Equal(t, "s1", EnvelopeFromContext(ctx).SessionID)
	assert.Equal(t, "unknown", EnvelopeFromContext(context.Background()).Platform)
}

func TestSQLRecorderInsertsEvent(t *testing.T) {
	sqlDB, err := db.Connect(db.DriverSQLite, filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	rec := SQLRecorder{DB: sqlDB}
	rec.Record(context.Background(), Envelope{SessionID: "s-9", Platform: "web"}, EventTurnProcessed, map[string]any{"kind": "summary"})
	rec.Record(context.Background(), Envelope{}, "", nil)

	var rows []struct {
		Name       string  `db:"event_name"`
		SessionID  *string `db:"session_id"`
		Properties string  `db:"properties"`
	}
	require.NoError(t, sqlDB.Select(&rows, "SELECT event_name, session_id, properties FROM analytics_events"))
	require.Len(t, rows, 1)
	assert.Equal(t, EventTurnProcessed, rows[0].Name)
	require.NotNil(t, rows[0].SessionID)
	assert.Equal(t, "s-9", *rows[0].SessionID)
	assert.JSONEq(t, `{"kind":"summary"}`, rows[0].Properties)
}

func TestLogRecorderWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	rec := LogRecorder{Logger: log.New(&buf, "", 0)}
	rec.Record(context.Background(), Envelope{SessionID: "s-1"}, EventChoreSubmitted, map[string]any{"slots": 8})

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, EventChoreSubmitted, line["event"])
	assert.Equal(t, "s-1", line["session_id"])
}
