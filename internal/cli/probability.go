package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CTAG07/cmarkov/internal/api"
	"github.com/CTAG07/cmarkov/pkg/markov"
)

func init() {
	cmd := &cobra.Command{
		Use:   "probability <sentence>",
		Short: "Score a sentence under the constrained model",
		Long: "Tokenize the sentence and print the probability the constrained model\n" +
			"generates exactly it. Sentences the model cannot produce score 0.",
		Args: cobra.MinimumNArgs(1),
		Run:  runProbability,
	}
	addModelFlags(cmd)

	RootCmd.AddCommand(cmd)
}

func runProbability(cmd *cobra.Command, args []string) {
	m, tok, err := loadModel(cmd.Context(), 0)
	if err != nil {
		exitErr("build model", err)
	}

	words, err := markov.Split(tok, strings.Join(args, " "))
	if err != nil {
		exitErr("tokenize", err)
	}
	p, err := m.Probability(words)
	if err != nil {
		exitErr("probability", err)
	}

	b, _ := json.MarshalIndent(api.ProbabilityResponse{Words: words, Probability: p}, "", "  ")
	fmt.Println(string(b))
}
