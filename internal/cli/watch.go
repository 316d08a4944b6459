package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridian-labs/lookout/internal/backend"
	"github.com/meridian-labs/lookout/internal/config"
	"github.com/meridian-labs/lookout/internal/event"
	"github.com/meridian-labs/lookout/internal/output"
	"github.com/meridian-labs/lookout/internal/poller"
	"github.com/meridian-labs/lookout/internal/runstate"
	"github.com/meridian-labs/lookout/internal/stream"
	"github.com/meridian-labs/lookout/internal/view"
)

// renderInterval is how often the watch loop re-reads the controller.
const renderInterval = 250 * time.Millisecond

// disconnectedSource stands in for the stream client when the live
// connection could not be established: an empty, disconnected feed.
type disconnectedSource struct{}

func (disconnectedSource) Events() []event.Event { return nil }
func (disconnectedSource) Connected() bool       { return false }

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [run-id]",
		Short: "Watch events live, or follow one run's history",
		Long: `Watch events live, or follow one run's history.

Without arguments, watch streams the backend's global live feed. With a
run ID, it follows that single run: the full event log is polled on a
fixed cadence and merged with any live events for the run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return runWatch(ctx, cfg, runID, output.NewPrinter())
		},
	}
}

// runWatch drives the console loop until ctx is cancelled.
func runWatch(ctx context.Context, cfg *config.Config, runID string, printer *output.Printer) error {
	client := newBackendClient(cfg)

	sc, err := stream.DialWithRetry(ctx, client.StreamURL(), stream.DefaultBackoff(cfg.StreamRetries), stream.Options{
		BufferSize: cfg.BufferSize,
	})

	var live view.LiveSource
	switch {
	case err == nil:
		live = sc
		defer sc.Close()
	case runID != "":
		// History mode still works from the poll path alone.
		printer.Warning("Live stream unavailable: %v", err)
		live = disconnectedSource{}
	default:
		return err
	}

	controller := view.NewController(live, func(runID string) *poller.Poller {
		return poller.Start(ctx, runID, cfg.PollInterval, func(ctx context.Context, runID string) (backend.RunSnapshot, error) {
			return client.RunSnapshot(ctx, runID)
		})
	})
	defer controller.Close()

	control := view.NewControlChannel(client, controller.RunState)

	if runID != "" {
		controller.SelectRun(runID)
		printer.Info("Following run %s (poll every %s). Ctrl+C to stop.", runID, cfg.PollInterval)
	} else {
		printer.Info("Watching live feed. Ctrl+C to stop.")
	}

	ticker := time.NewTicker(renderInterval)
	defer ticker.Stop()

	printed := make(map[string]struct{})
	lastState := runstate.StateUnknown
	connected := controller.Connected()
	prompted := false

	for {
		select {
		case <-ctx.Done():
			printer.Info("Stopped.")
			return nil
		case <-ticker.C:
		}

		for _, ev := range controller.Feed() {
			if _, seen := printed[ev.Key()]; seen {
				continue
			}
			printed[ev.Key()] = struct{}{}
			printer.Event(ev)
		}

		if now := controller.Connected(); now != connected {
			connected = now
			if connected {
				printer.Success("Stream connected")
			} else {
				printer.Warning("Stream disconnected; view may be stale")
			}
		}

		if runID == "" {
			continue
		}

		if state := controller.RunState(runID); state != lastState {
			lastState = state
			printer.Info("state: %s", state)
			if state.Terminal() {
				printer.Success("Run %s reached terminal state %s", runID, state)
				return nil
			}
		}

		if pending := control.PromptPending(runID); pending && !prompted {
			prompted = true
			printer.Warning("Run is awaiting input: answer with `lookout input %s <text>`", runID)
		} else if !pending {
			prompted = false
		}
	}
}
