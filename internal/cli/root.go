// Package cli wires the Lookout commands together: the agent directory,
// run inspection, the live watch console, and the control surface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meridian-labs/lookout/internal/backend"
	"github.com/meridian-labs/lookout/internal/config"
)

const version = "0.1.0"

// Execute runs the CLI.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	var showVersion bool
	var backendURL string

	cmd := &cobra.Command{
		Use:   "lookout",
		Short: "Lookout - operator console for agent runs",
		Long: `Lookout - operator console for agent runs

Lookout observes and controls autonomous agent runs on a remote
orchestration backend: list agents and runs, stream run events live,
inspect run history, cancel runs, and answer requests for input.

Examples:
  lookout agents list
  lookout watch                     # global live feed
  lookout watch run-1a2b3c4d       # one run, history mode
  lookout cancel run-1a2b3c4d
  lookout input run-1a2b3c4d "use the staging dataset"`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "lookout version "+version)
				return err
			}
			return cmd.Help()
		},
	}

	cmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version information")
	cmd.PersistentFlags().StringVar(&backendURL, "backend-url", "", "Backend base URL (overrides LOOKOUT_BACKEND_URL)")

	cmd.AddCommand(
		newAgentsCmd(),
		newRunsCmd(),
		newWatchCmd(),
		newCancelCmd(),
		newInputCmd(),
		newStubCmd(),
	)

	return cmd
}

// loadConfig builds the configuration, letting the --backend-url flag win
// over environment and file values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	if url, _ := cmd.Flags().GetString("backend-url"); url != "" {
		cfg.BackendURL = url
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newBackendClient builds the REST client from configuration.
func newBackendClient(cfg *config.Config) *backend.Client {
	return backend.NewClient(cfg.BackendURL, backend.WithTimeout(cfg.HTTPTimeout))
}

// signalContext derives a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
