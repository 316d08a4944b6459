package cli

import (
	"github.com/spf13/cobra"

	"github.com/meridian-labs/lookout/internal/output"
)

func newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List agents and trigger runs",
	}

	cmd.AddCommand(newAgentsListCmd(), newAgentsRunCmd())
	return cmd
}

func newAgentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the agents known to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client := newBackendClient(cfg)
			agents, err := client.Agents(cmd.Context())
			if err != nil {
				return err
			}

			printer := output.NewPrinter()
			if len(agents) == 0 {
				printer.Info("No agents registered.")
				return nil
			}
			for _, a := range agents {
				if a.Description != "" {
					printer.Info("%-20s %-24s %s", a.ID, a.Name, a.Description)
				} else {
					printer.Info("%-20s %s", a.ID, a.Name)
				}
			}
			return nil
		},
	}
}

func newAgentsRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <agent-id>",
		Short: "Trigger a run of an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client := newBackendClient(cfg)
			if err := client.TriggerRun(cmd.Context(), args[0]); err != nil {
				return err
			}

			output.NewPrinter().Success("Run triggered for agent %s", args[0])
			return nil
		},
	}
}
