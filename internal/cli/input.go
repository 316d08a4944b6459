package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meridian-labs/lookout/internal/output"
	"github.com/meridian-labs/lookout/internal/view"
)

func newInputCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "input <run-id> <text>",
		Short: "Answer a run's request for input",
		Long: `Answer a run's request for input.

The input is only sent when the run's derived state is awaiting_input;
otherwise the command is rejected locally without contacting the backend.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			runID, value := args[0], args[1]

			client := newBackendClient(cfg)
			control := view.NewControlChannel(client, snapshotState(cmd.Context(), client))

			if err := control.SubmitInput(cmd.Context(), runID, value); err != nil {
				if errors.Is(err, view.ErrNotAwaitingInput) {
					return fmt.Errorf("run %s is not awaiting input", runID)
				}
				return err
			}

			output.NewPrinter().Success("Input submitted to run %s", runID)
			return nil
		},
	}
}
