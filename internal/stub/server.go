// Package stub implements an in-process stand-in for the orchestration
// backend, speaking the same REST and WebSocket surface the console
// expects. It backs integration tests and the `lookout stub` command for
// local development; it is not the real backend and keeps everything in
// memory.
package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/meridian-labs/lookout/internal/event"
	"github.com/meridian-labs/lookout/internal/logger"
	"github.com/meridian-labs/lookout/internal/runstate"
)

// subscriberBuffer is the per-connection outbound queue; slow consumers
// drop events rather than stall the broadcaster.
const subscriberBuffer = 32

type run struct {
	id      string
	agentID string
	status  runstate.State
	events  []event.Event
}

type subscriber struct {
	send chan []byte
}

// Server is the in-memory stub backend.
type Server struct {
	echo     *echo.Echo
	upgrader websocket.Upgrader
	log      *logger.Logger

	mu     sync.Mutex
	agents []event.Agent
	runs   map[string]*run
	order  []string
	subs   map[*subscriber]struct{}
}

// NewServer creates a stub backend. With no agents given, a small default
// directory is provided so the console has something to list.
func NewServer(agents ...event.Agent) *Server {
	if len(agents) == 0 {
		agents = []event.Agent{
			{ID: "researcher", Name: "Researcher", Description: "Gathers and summarizes sources"},
			{ID: "reviewer", Name: "Reviewer", Description: "Reviews changes and asks for guidance"},
		}
	}

	s := &Server{
		echo: echo.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:    logger.WithField("component", "stub"),
		agents: agents,
		runs:   make(map[string]*run),
		subs:   make(map[*subscriber]struct{}),
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/api/health", s.handleHealth)
	s.echo.GET("/api/agents", s.handleAgents)
	s.echo.POST("/api/agents/:id/run", s.handleTriggerRun)
	s.echo.GET("/api/runs", s.handleRuns)
	s.echo.GET("/api/runs/:id", s.handleRunSnapshot)
	s.echo.POST("/api/runs/:id/cancel", s.handleCancel)
	s.echo.POST("/api/runs/:id/input", s.handleInput)
	s.echo.GET("/api/ws", s.handleStream)
}

// Handler exposes the server as an http.Handler for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.log.WithField("addr", addr).Info("Stub backend listening")
	return s.echo.Start(addr)
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "lookout-stub"})
}

func (s *Server) handleAgents(c echo.Context) error {
	s.mu.Lock()
	agents := make([]event.Agent, len(s.agents))
	copy(agents, s.agents)
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]interface{}{"agents": agents})
}

func (s *Server) handleTriggerRun(c echo.Context) error {
	agentID := c.Param("id")

	s.mu.Lock()
	known := false
	for _, a := range s.agents {
		if a.ID == agentID {
			known = true
			break
		}
	}
	s.mu.Unlock()

	if !known {
		return echo.NewHTTPError(http.StatusNotFound, "unknown agent: "+agentID)
	}

	runID := s.TriggerRun(agentID)
	return c.JSON(http.StatusOK, map[string]string{"run_id": runID})
}

func (s *Server) handleRuns(c echo.Context) error {
	s.mu.Lock()
	summaries := make([]event.RunSummary, 0, len(s.order))
	for _, id := range s.order {
		r := s.runs[id]
		summaries = append(summaries, event.RunSummary{
			RunID:      r.id,
			EventCount: len(r.events),
			Status:     string(r.status),
		})
	}
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]interface{}{"runs": summaries})
}

func (s *Server) handleRunSnapshot(c echo.Context) error {
	runID := c.Param("id")

	s.mu.Lock()
	r, ok := s.runs[runID]
	if !ok {
		s.mu.Unlock()
		return echo.NewHTTPError(http.StatusNotFound, "unknown run: "+runID)
	}
	events := make([]event.Event, len(r.events))
	copy(events, r.events)
	status := string(r.status)
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
		"status": status,
	})
}

func (s *Server) handleCancel(c echo.Context) error {
	runID := c.Param("id")

	s.mu.Lock()
	r, ok := s.runs[runID]
	terminal := ok && r.status.Terminal()
	s.mu.Unlock()

	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown run: "+runID)
	}
	// A second cancel, or a cancel racing run completion, is acknowledged
	// without emitting anything.
	if !terminal {
		s.Emit(runID, event.KindRunCancelled, nil)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "acknowledged"})
}

func (s *Server) handleInput(c echo.Context) error {
	runID := c.Param("id")

	var body struct {
		Input string `json:"input"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid input body")
	}

	s.mu.Lock()
	r, ok := s.runs[runID]
	awaiting := ok && r.status == runstate.StateAwaitingInput
	s.mu.Unlock()

	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown run: "+runID)
	}
	if !awaiting {
		return echo.NewHTTPError(http.StatusConflict, "run is not awaiting input")
	}

	payload, _ := json.Marshal(map[string]string{"input": body.Input})
	s.Emit(runID, event.KindInputReceived, payload)
	return c.JSON(http.StatusOK, map[string]string{"status": "acknowledged"})
}

// handleStream upgrades to WebSocket and fans every emitted event out to
// the connection, one self-contained JSON event per message.
func (s *Server) handleStream(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	sub := &subscriber{send: make(chan []byte, subscriberBuffer)}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
		ws.Close()
	}()

	// Reader goroutine only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg := <-sub.send:
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return nil
			}
		case <-closed:
			return nil
		}
	}
}

// TriggerRun creates a run for the agent and emits its run_started event.
// It returns the new run ID.
func (s *Server) TriggerRun(agentID string) string {
	runID := "run-" + uuid.New().String()[:8]

	s.mu.Lock()
	s.runs[runID] = &run{id: runID, agentID: agentID, status: runstate.StateUnknown}
	s.order = append(s.order, runID)
	s.mu.Unlock()

	s.Emit(runID, event.KindRunStarted, nil)
	s.log.WithFields(map[string]interface{}{
		"run_id":   runID,
		"agent_id": agentID,
	}).Info("Run triggered")
	return runID
}

// Emit appends an event to the run's log, advances the run's status with
// the same transition table the console uses, and broadcasts the event to
// every stream subscriber. Unknown runs are ignored.
func (s *Server) Emit(runID, kind string, payload json.RawMessage) {
	s.mu.Lock()
	r, ok := s.runs[runID]
	if !ok {
		s.mu.Unlock()
		return
	}

	ev := event.Event{
		ID:        fmt.Sprintf("ev-%d", len(r.events)+1),
		RunID:     runID,
		AgentID:   r.agentID,
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Payload:   payload,
	}
	r.events = append(r.events, ev)
	r.status = runstate.Next(r.status, kind)

	data, err := json.Marshal(ev)
	if err != nil {
		s.mu.Unlock()
		s.log.WithError(err).Error("Failed to marshal event")
		return
	}

	for sub := range s.subs {
		select {
		case sub.send <- data:
		default:
			// Slow subscriber; drop rather than block the emitter.
		}
	}
	s.mu.Unlock()
}

// Subscribers reports how many stream connections are attached.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// RunStatus returns a run's current status for assertions in tests.
func (s *Server) RunStatus(runID string) (runstate.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[runID]
	if !ok {
		return runstate.StateUnknown, false
	}
	return r.status, true
}
