// cmd/atm/version.go

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version 於建置時以 -ldflags "-X main.version=..." 覆寫。
var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// 不需要設定檔或 logger
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "atm %s\n", version)
		},
	}
}
