package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CTAG07/cmarkov/pkg/markov"
	"github.com/CTAG07/cmarkov/pkg/nhmm"
)

func init() {
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count the sentences the constrained model can generate",
		Long: "Print the exact number of distinct sentences the constrained model can\n" +
			"generate. With --list, also print up to --limit of them in model order.",
		Args: cobra.NoArgs,
		Run:  runCount,
	}

	cmd.Flags().Bool("list", false, "Print the sentences too")
	cmd.Flags().Int("limit", 100, "Maximum sentences printed with --list, 0 for all")
	addModelFlags(cmd)

	RootCmd.AddCommand(cmd)
}

func runCount(cmd *cobra.Command, _ []string) {
	list, _ := cmd.Flags().GetBool("list")
	limit, _ := cmd.Flags().GetInt("limit")

	m, tok, err := loadModel(cmd.Context(), 0)
	if err != nil {
		exitErr("build model", err)
	}

	count, err := m.SolutionCount()
	if err != nil {
		exitErr("count", err)
	}
	fmt.Println(count.String())

	if !list {
		return
	}
	printed := 0
	err = m.WalkSolutions(cmd.Context(), func(seq []string) error {
		if limit > 0 && printed >= limit {
			return nhmm.ErrStopWalk
		}
		fmt.Println(markov.Join(tok, seq))
		printed++
		return nil
	})
	if err != nil && !errors.Is(err, nhmm.ErrStopWalk) {
		exitErr("list", err)
	}
}
