package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus statistics",
		Args:  cobra.NoArgs,
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, _ []string) {
	db, s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()
	defer s.Close()

	stats, err := s.GetStats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}
