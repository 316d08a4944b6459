package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("parses a well-formed event", func(t *testing.T) {
		data := []byte(`{
			"id": "ev-7",
			"run_id": "run-42",
			"agent_id": "researcher",
			"timestamp": "2026-08-23T10:00:00Z",
			"kind": "run_started",
			"payload": {"task": "summarize"}
		}`)

		ev, err := Parse(data)
		require.NoError(t, err)
		assert.Equal(t, "ev-7", ev.ID)
		assert.Equal(t, "run-42", ev.RunID)
		assert.Equal(t, "researcher", ev.AgentID)
		assert.Equal(t, "run_started", ev.Kind)
		assert.Equal(t, time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC), ev.Timestamp)
		assert.JSONEq(t, `{"task": "summarize"}`, string(ev.Payload))
	})

	t.Run("accepts unrecognized kinds", func(t *testing.T) {
		ev, err := Parse([]byte(`{"id": "e1", "run_id": "r1", "kind": "telemetry_blob"}`))
		require.NoError(t, err)
		assert.Equal(t, "telemetry_blob", ev.Kind)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		_, err := Parse([]byte(`{not json`))
		assert.Error(t, err)
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		_, err := Parse([]byte(`{"run_id": "r1", "kind": "run_started"}`))
		assert.ErrorIs(t, err, ErrEmptyID)

		_, err = Parse([]byte(`{"id": "e1", "kind": "run_started"}`))
		assert.ErrorIs(t, err, ErrEmptyRunID)

		_, err = Parse([]byte(`{"id": "e1", "run_id": "r1"}`))
		assert.ErrorIs(t, err, ErrEmptyKind)
	})
}

func TestEventKey(t *testing.T) {
	// IDs are only unique within a run, so the key must include both.
	a := Event{ID: "e1", RunID: "run-a"}
	b := Event{ID: "e1", RunID: "run-b"}
	assert.NotEqual(t, a.Key(), b.Key())
}
