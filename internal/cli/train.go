package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "train [file...]",
		Short: "Add text to the corpus model",
		Long: "Tokenize text into sentences and store them in the configured corpus model.\n" +
			"Reads the named files in order, or stdin when none are given. The model is\n" +
			"created with the configured order if it does not exist.",
		Run: runTrain,
	}

	RootCmd.AddCommand(cmd)
}

func runTrain(cmd *cobra.Command, args []string) {
	db, s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()
	defer s.Close()

	ctx := cmd.Context()
	info, err := s.EnsureModel(ctx, cfg.Model.Name, cfg.Model.Order)
	if err != nil {
		exitErr("load model", err)
	}

	if len(args) == 0 {
		if err = s.Train(ctx, info, os.Stdin); err != nil {
			exitErr("train from stdin", err)
		}
		return
	}
	for _, path := range args {
		if err = trainFile(cmd, path, func(r io.Reader) error { return s.Train(ctx, info, r) }); err != nil {
			exitErr("train "+path, err)
		}
	}
}

func trainFile(cmd *cobra.Command, path string, train func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err = train(f); err != nil {
		return err
	}
	logger.InfoContext(cmd.Context(), "Trained file", "path", path, "model", cfg.Model.Name)
	return nil
}
