package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/CTAG07/cmarkov/pkg/markov"
)

func init() {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Manage corpus models",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List corpus models",
		Args:  cobra.NoArgs,
		Run:   runModelsList,
	}

	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a corpus model",
		Args:  cobra.ExactArgs(1),
		Run:   runModelsAdd,
	}
	addCmd.Flags().IntP("order", "o", 0, "Markov order (default: from config)")

	rmCmd := &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a corpus model with its chains and sentences",
		Args:  cobra.ExactArgs(1),
		Run:   runModelsRm,
	}

	exportCmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Write a corpus model's sentences as JSON",
		Args:  cobra.ExactArgs(1),
		Run:   runModelsExport,
	}
	exportCmd.Flags().StringP("output", "O", "", "Write to this file instead of stdout")

	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Merge an exported corpus model into the database",
		Long: "Read a model written by 'models export' from the file, or stdin when none is\n" +
			"given. A missing model is created; an existing one gains the sentences.",
		Args: cobra.MaximumNArgs(1),
		Run:  runModelsImport,
	}

	modelsCmd.AddCommand(listCmd, addCmd, rmCmd, exportCmd, importCmd)
	RootCmd.AddCommand(modelsCmd)
}

func runModelsList(cmd *cobra.Command, _ []string) {
	db, s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()
	defer s.Close()

	infos, err := s.GetModelInfos(cmd.Context())
	if err != nil {
		exitErr("list models", err)
	}
	models := make([]markov.ModelInfo, 0, len(infos))
	for _, info := range infos {
		models = append(models, info)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })

	b, _ := json.MarshalIndent(models, "", "  ")
	fmt.Println(string(b))
}

func runModelsAdd(cmd *cobra.Command, args []string) {
	order, _ := cmd.Flags().GetInt("order")
	if order == 0 {
		order = cfg.Model.Order
	}

	db, s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()
	defer s.Close()

	if err = s.InsertModel(cmd.Context(), markov.ModelInfo{Name: args[0], Order: order}); err != nil {
		exitErr("add model", err)
	}
	logger.Info("Model created", "name", args[0], "order", order)
}

func runModelsRm(cmd *cobra.Command, args []string) {
	db, s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()
	defer s.Close()

	info, err := s.GetModelInfo(cmd.Context(), args[0])
	if err != nil {
		exitErr("find model", err)
	}
	if err = s.RemoveModel(cmd.Context(), info); err != nil {
		exitErr("remove model", err)
	}
	logger.Info("Model removed", "name", info.Name)
}

func runModelsExport(cmd *cobra.Command, args []string) {
	output, _ := cmd.Flags().GetString("output")

	db, s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()
	defer s.Close()

	info, err := s.GetModelInfo(cmd.Context(), args[0])
	if err != nil {
		exitErr("find model", err)
	}

	if output == "" {
		if err = s.ExportModel(cmd.Context(), info, os.Stdout); err != nil {
			exitErr("export model", err)
		}
		return
	}
	var buf bytes.Buffer
	if err = s.ExportModel(cmd.Context(), info, &buf); err != nil {
		exitErr("export model", err)
	}
	if err = atomic.WriteFile(output, &buf); err != nil {
		exitErr("write export", err)
	}
	logger.Info("Model exported", "name", info.Name, "path", output)
}

func runModelsImport(cmd *cobra.Command, args []string) {
	var r io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open import file", err)
		}
		defer f.Close()
		r = f
	}

	db, s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()
	defer s.Close()

	info, err := s.ImportModel(cmd.Context(), r)
	if err != nil {
		exitErr("import model", err)
	}
	logger.Info("Model imported", "name", info.Name, "order", info.Order)
}
