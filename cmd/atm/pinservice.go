// cmd/atm/pinservice.go

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"atm/internal/server"
)

func newPINServiceCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "pinservice",
		Short: "Run the stub bank PIN service (POST /api/pin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.newBank()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Listen.PINService
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runHTTP(ctx, a.logger, "pin service", addr, server.NewPINService(b, a.logger).Router(), nil)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides listen.pin_service)")
	return cmd
}
