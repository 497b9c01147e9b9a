// cmd/atm/serve.go

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"atm/internal/display"
	"atm/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ATM HTTP API (keypad, display, inventory)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.newMachine()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Listen.ATM
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s := server.NewServer(m, display.New(a.cfg.Display.Currency), a.logger)
			err = runHTTP(ctx, a.logger, "atm", addr, s.Router(), nil)
			// 等背景的 PIN 驗證結束再離開
			m.Wait()
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides listen.atm)")
	return cmd
}
