package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/meridian-labs/lookout/internal/backend"
	"github.com/meridian-labs/lookout/internal/output"
	"github.com/meridian-labs/lookout/internal/runstate"
	"github.com/meridian-labs/lookout/internal/view"
)

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <run-id>",
		Short: "Request cancellation of a run",
		Long: `Request cancellation of a run.

The displayed state does not change until the backend confirms with a
run_cancelled event. Cancelling a run already in a terminal state is a
no-op.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			runID := args[0]

			client := newBackendClient(cfg)
			control := view.NewControlChannel(client, snapshotState(cmd.Context(), client))

			if err := control.Cancel(cmd.Context(), runID); err != nil {
				return err
			}

			output.NewPrinter().Success("Cancel requested for run %s", runID)
			return nil
		},
	}
}

// snapshotClient is the slice of the backend client the one-shot command
// gate needs.
type snapshotClient interface {
	RunSnapshot(ctx context.Context, runID string) (backend.RunSnapshot, error)
}

// snapshotState gates one-shot commands on the run's current derived
// state, fetched fresh from the snapshot endpoint. An unreachable run
// resolves to unknown, which is non-terminal, so the command is still
// attempted and the backend has the final word.
func snapshotState(ctx context.Context, client snapshotClient) view.StateFunc {
	return func(runID string) runstate.State {
		snap, err := client.RunSnapshot(ctx, runID)
		if err != nil {
			return runstate.StateUnknown
		}
		return runstate.Resolve(snap.Events)
	}
}
