package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridian-labs/lookout/internal/output"
	"github.com/meridian-labs/lookout/internal/stub"
)

func newStubCmd() *cobra.Command {
	var port int
	var demo bool

	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Run a local stub backend for development",
		Long: `Run a local stub backend for development.

The stub speaks the same REST and WebSocket surface as the real backend
and keeps everything in memory. With --demo it continuously runs a
scripted agent so the watch console has traffic to show.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if port == 0 {
				port = cfg.StubPort
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			server := stub.NewServer()
			printer := output.NewPrinter()

			if demo {
				go server.RunDemo(ctx)
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start(fmt.Sprintf(":%d", port))
			}()

			printer.Info("Stub backend on http://localhost:%d (Ctrl+C to stop)", port)

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (defaults to LOOKOUT_STUB_PORT)")
	cmd.Flags().BoolVar(&demo, "demo", false, "Continuously run a scripted demo agent")
	return cmd
}
