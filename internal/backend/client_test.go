package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientAgents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/agents", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"agents": []map[string]string{
				{"id": "researcher", "name": "Researcher"},
				{"id": "reviewer", "name": "Reviewer"},
			},
		})
	}))
	defer srv.Close()

	agents, err := NewClient(srv.URL).Agents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "researcher", agents[0].ID)
}

func TestClientRuns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/runs", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"runs": []map[string]interface{}{
				{"run_id": "r1", "event_count": 4, "status": "active"},
			},
		})
	}))
	defer srv.Close()

	runs, err := NewClient(srv.URL).Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].RunID)
	assert.Equal(t, 4, runs[0].EventCount)
	assert.Equal(t, "active", runs[0].Status)
}

func TestClientRunSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/runs/r1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"events": []map[string]string{
				{"id": "e1", "run_id": "r1", "kind": "run_started"},
			},
			"status": "active",
		})
	}))
	defer srv.Close()

	snap, err := NewClient(srv.URL).RunSnapshot(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "active", snap.Status)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "run_started", snap.Events[0].Kind)
}

func TestClientCommands(t *testing.T) {
	t.Run("trigger run", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/agents/researcher/run", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		require.NoError(t, NewClient(srv.URL).TriggerRun(context.Background(), "researcher"))
	})

	t.Run("cancel run", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/runs/r1/cancel", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		require.NoError(t, NewClient(srv.URL).CancelRun(context.Background(), "r1"))
	})

	t.Run("submit input posts the body contract", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/runs/r1/input", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "use staging", body["input"])
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		require.NoError(t, NewClient(srv.URL).SubmitInput(context.Background(), "r1", "use staging"))
	})

	t.Run("empty IDs rejected locally", func(t *testing.T) {
		c := NewClient("http://localhost:1")
		assert.Error(t, c.TriggerRun(context.Background(), ""))
		assert.Error(t, c.CancelRun(context.Background(), ""))
		assert.Error(t, c.SubmitInput(context.Background(), "", "x"))
		_, err := c.RunSnapshot(context.Background(), "")
		assert.Error(t, err)
	})
}

func TestClientSurfacesErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "run is not awaiting input", http.StatusConflict)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).SubmitInput(context.Background(), "r1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "not awaiting input")
}

func TestClientStreamURL(t *testing.T) {
	assert.Equal(t, "ws://host:3001/api/ws", NewClient("http://host:3001").StreamURL())
	assert.Equal(t, "wss://host/api/ws", NewClient("https://host/").StreamURL())
}

func TestClientPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	assert.NoError(t, NewClient(srv.URL).Ping(context.Background()))
}
