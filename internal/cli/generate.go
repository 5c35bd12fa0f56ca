package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/CTAG07/cmarkov/internal/api"
	"github.com/CTAG07/cmarkov/pkg/markov"
	"github.com/CTAG07/cmarkov/pkg/nhmm"
)

func init() {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate constrained sentences",
		Long: "Train the constrained model from the corpus and draw sentences from it.\n" +
			"Every sentence has the model's length and satisfies its constraint tags.",
		Args: cobra.NoArgs,
		Run:  runGenerate,
	}

	cmd.Flags().IntP("count", "n", 0, "Number of sentences (default: from config)")
	cmd.Flags().Uint64("seed", 0, "Random seed for reproducible output (default: from config)")
	cmd.Flags().StringP("format", "f", "text", "Output format: text or json")
	addModelFlags(cmd)

	RootCmd.AddCommand(cmd)
}

// loadModel builds the configured constrained model from the corpus database.
func loadModel(ctx context.Context, seed uint64) (*nhmm.Model, markov.Tokenizer, error) {
	db, s, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()
	defer s.Close()

	m, err := buildModel(ctx, s, cfg.Model, seed, logger)
	if err != nil {
		return nil, nil, err
	}
	return m, s.Tokenizer(), nil
}

func runGenerate(cmd *cobra.Command, _ []string) {
	count, _ := cmd.Flags().GetInt("count")
	format, _ := cmd.Flags().GetString("format")
	seed := cfg.Generate.Seed
	if cmd.Flags().Changed("seed") {
		seed, _ = cmd.Flags().GetUint64("seed")
	}
	if !cmd.Flags().Changed("count") {
		count = cfg.Generate.Count
	}
	if format != "text" && format != "json" {
		exitErr("generate", fmt.Errorf("unknown format %q", format))
	}

	m, tok, err := loadModel(cmd.Context(), seed)
	if err != nil {
		exitErr("build model", err)
	}

	var opts []nhmm.GenerateOption
	if seed != 0 {
		opts = append(opts, nhmm.WithRand(rand.New(rand.NewPCG(seed, seed))))
	}
	seqs, err := m.GenerateN(count, opts...)
	if err != nil {
		exitErr("generate", err)
	}

	if format == "text" {
		for _, seq := range seqs {
			fmt.Println(markov.Join(tok, seq))
		}
		return
	}

	out := api.GenerateResponse{Sentences: make([]api.Sentence, 0, len(seqs))}
	for _, seq := range seqs {
		p, err := m.Probability(seq)
		if err != nil {
			exitErr("probability", err)
		}
		out.Sentences = append(out.Sentences, api.Sentence{Words: seq, Text: markov.Join(tok, seq), Probability: p})
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
