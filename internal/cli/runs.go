package cli

import (
	"github.com/spf13/cobra"

	"github.com/meridian-labs/lookout/internal/output"
	"github.com/meridian-labs/lookout/internal/runstate"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List and inspect runs",
	}

	cmd.AddCommand(newRunsListCmd(), newRunsShowCmd())
	return cmd
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List runs with their backend-reported status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client := newBackendClient(cfg)
			runs, err := client.Runs(cmd.Context())
			if err != nil {
				return err
			}

			printer := output.NewPrinter()
			if len(runs) == 0 {
				printer.Info("No runs.")
				return nil
			}
			for _, r := range runs {
				printer.Info("%-24s %-16s %d events", r.RunID, r.Status, r.EventCount)
			}
			return nil
		},
	}
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run's full event log and derived state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client := newBackendClient(cfg)
			snap, err := client.RunSnapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printer := output.NewPrinter()
			derived := runstate.Resolve(snap.Events)
			printer.Info("run:     %s", args[0])
			printer.Info("status:  %s (backend), %s (derived)", snap.Status, derived)
			printer.Info("events:  %d", len(snap.Events))
			printer.Info("")
			for _, ev := range snap.Events {
				printer.Event(ev)
			}
			return nil
		},
	}
}
