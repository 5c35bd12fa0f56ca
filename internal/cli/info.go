package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CTAG07/cmarkov/pkg/nhmm"
)

func init() {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the shape of the constrained model",
		Long: "Train the constrained model and print its layer sizes and how many words\n" +
			"constraints and arc consistency removed at each position.",
		Args: cobra.NoArgs,
		Run:  runInfo,
	}

	cmd.Flags().Bool("removed", false, "Also list the removed words per position")
	cmd.Flags().Bool("log", false, "Also write the model shape to the log")
	addModelFlags(cmd)

	RootCmd.AddCommand(cmd)
}

type removedWords struct {
	Position       int      `json:"position"`
	Constraint     []string `json:"constraint"`
	ArcConsistency []string `json:"arc_consistency"`
}

func runInfo(cmd *cobra.Command, _ []string) {
	removed, _ := cmd.Flags().GetBool("removed")
	logIt, _ := cmd.Flags().GetBool("log")

	m, _, err := loadModel(cmd.Context(), 0)
	if err != nil {
		exitErr("build model", err)
	}
	if err = m.Verify(); err != nil {
		exitErr("verify", err)
	}
	if logIt {
		m.LogDebugInfo(cmd.Context())
	}

	out := struct {
		Info    nhmm.DebugInfo `json:"info"`
		Removed []removedWords `json:"removed,omitempty"`
	}{Info: m.DebugInfo()}
	if removed {
		for i := range m.SentenceLength() {
			out.Removed = append(out.Removed, removedWords{
				Position:       i,
				Constraint:     m.RemovedByConstraint(i),
				ArcConsistency: m.RemovedByArcConsistency(i),
			})
		}
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
