package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/depscout/depscout/internal/server"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	configFile string
	listenAddr string // overrides the configured listen address
}

// serveCommand creates the serve command exposing the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scan and library HTTP API",
		Long: `Serve starts the HTTP API: scan submission and retrieval under
/api/scans and two-tier library search under /api/libraries.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			comps, err := c.newComponents(ctx, opts.configFile, false)
			if err != nil {
				return err
			}
			defer comps.Close()

			addr := opts.listenAddr
			if addr == "" {
				addr = comps.Config.ListenAddr
			}

			srv := server.New(comps.Scanner, comps.Lookup, comps.Store, c.Logger)
			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				c.Logger.Info("http api listening", "addr", addr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			c.Logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return ctx.Err()
		},
	}

	cmd.Flags().StringVar(&opts.configFile, "config", "", "config file (default depscout.yaml)")
	cmd.Flags().StringVar(&opts.listenAddr, "listen", "", "listen address (overrides configuration)")

	return cmd
}
