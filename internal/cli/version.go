package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X github.com/CTAG07/cmarkov/internal/cli.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func init() {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No config is needed, so the root's loader is skipped.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("cmarkov %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		},
	}

	RootCmd.AddCommand(cmd)
}
