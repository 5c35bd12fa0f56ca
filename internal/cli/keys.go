package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/CTAG07/cmarkov/internal/auth"
)

func init() {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys for serve",
		Long: "Manage the keys the HTTP API requires once at least one exists. The first\n" +
			"key always gets every scope.",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a key and print it once",
		Args:  cobra.NoArgs,
		Run:   runKeysCreate,
	}
	createCmd.Flags().StringSlice("scopes", []string{auth.ScopeModelRead}, "Scopes: *, model:read, model:write, corpus:read, corpus:write, auth:manage")
	createCmd.Flags().String("description", "", "What the key is for")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List keys",
		Args:  cobra.NoArgs,
		Run:   runKeysList,
	}

	rmCmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		Run:   runKeysRm,
	}

	keysCmd.AddCommand(createCmd, listCmd, rmCmd)
	RootCmd.AddCommand(keysCmd)
}

func openKeys() (*auth.KeyStore, func(), error) {
	if err := ensureDir(cfg.Database.Path); err != nil {
		return nil, nil, err
	}
	db, err := initDB(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	ks, err := auth.NewKeyStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	ks.SetLogger(logger)
	return ks, func() {
		ks.Close()
		_ = db.Close()
	}, nil
}

func runKeysCreate(cmd *cobra.Command, _ []string) {
	scopes, _ := cmd.Flags().GetStringSlice("scopes")
	description, _ := cmd.Flags().GetString("description")

	ks, closeKeys, err := openKeys()
	if err != nil {
		exitErr("open keys", err)
	}
	defer closeKeys()

	key, raw, err := ks.Create(cmd.Context(), scopes, description)
	if err != nil {
		exitErr("create key", err)
	}
	b, _ := json.MarshalIndent(map[string]any{"id": key.ID, "scopes": key.Scopes, "raw_key": raw}, "", "  ")
	fmt.Println(string(b))
}

func runKeysList(cmd *cobra.Command, _ []string) {
	ks, closeKeys, err := openKeys()
	if err != nil {
		exitErr("open keys", err)
	}
	defer closeKeys()

	keys, err := ks.List(cmd.Context())
	if err != nil {
		exitErr("list keys", err)
	}
	b, _ := json.MarshalIndent(keys, "", "  ")
	fmt.Println(string(b))
}

func runKeysRm(cmd *cobra.Command, args []string) {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		exitErr("parse id", err)
	}
	ks, closeKeys, err := openKeys()
	if err != nil {
		exitErr("open keys", err)
	}
	defer closeKeys()

	if err = ks.Delete(cmd.Context(), id); err != nil {
		exitErr("delete key", err)
	}
}
