package cli

import (
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"

	"github.com/CTAG07/cmarkov/pkg/templating"
)

func init() {
	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template with generated sentences",
		Long: "Render a template from the template directory with the constrained model.\n" +
			"With --inline the argument is the template text itself.",
		Args: cobra.ExactArgs(1),
		Run:  runRender,
	}

	cmd.Flags().String("dir", "", "Template directory (default: from config)")
	cmd.Flags().Bool("inline", false, "Treat the argument as template text")
	cmd.Flags().Uint64("seed", 0, "Random seed for reproducible output (default: from config)")
	addModelFlags(cmd)

	RootCmd.AddCommand(cmd)
}

func runRender(cmd *cobra.Command, args []string) {
	dir, _ := cmd.Flags().GetString("dir")
	inline, _ := cmd.Flags().GetBool("inline")
	if dir == "" {
		dir = cfg.Render.Dir
	}
	seed := cfg.Generate.Seed
	if cmd.Flags().Changed("seed") {
		seed, _ = cmd.Flags().GetUint64("seed")
	}

	tm, err := templating.NewManager(dir, logger)
	if err != nil {
		exitErr("load templates", err)
	}
	m, tok, err := loadModel(cmd.Context(), seed)
	if err != nil {
		exitErr("build model", err)
	}

	src := &templating.Source{Model: m, Tokenizer: tok}
	if seed != 0 {
		src.Rand = rand.New(rand.NewPCG(seed, seed))
	}
	if inline {
		err = tm.ExecuteString(os.Stdout, args[0], src)
	} else {
		err = tm.Execute(os.Stdout, args[0], src)
	}
	if err != nil {
		exitErr("render", err)
	}
}
