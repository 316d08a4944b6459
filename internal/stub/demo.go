package stub

import (
	"context"
	"encoding/json"
	"time"
)

// demoStep is one scripted event in the demo run.
type demoStep struct {
	kind    string
	payload map[string]string
	pause   time.Duration
}

var demoScript = []demoStep{
	{kind: "action_taken", payload: map[string]string{"action": "fetching sources"}, pause: 2 * time.Second},
	{kind: "action_taken", payload: map[string]string{"action": "summarizing"}, pause: 2 * time.Second},
	{kind: "request_input", payload: map[string]string{"prompt": "Approve the draft summary?"}, pause: 6 * time.Second},
	{kind: "resume", pause: 2 * time.Second},
	{kind: "run_completed", payload: map[string]string{"result": "summary published"}},
}

// RunDemo repeatedly triggers a scripted run against the stub so the
// console has live traffic to show. It blocks until ctx is cancelled.
// If the operator answers the request_input step via the API before the
// script resumes, the extra resume is harmless: the run is already active
// and the transition table leaves it there.
func (s *Server) RunDemo(ctx context.Context) {
	for {
		runID := s.TriggerRun("researcher")
		for _, step := range demoScript {
			var payload json.RawMessage
			if step.payload != nil {
				payload, _ = json.Marshal(step.payload)
			}
			s.Emit(runID, step.kind, payload)

			select {
			case <-ctx.Done():
				return
			case <-time.After(step.pause):
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}
