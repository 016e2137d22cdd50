package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillmesh/skillmesh/pkg/auth"
	"github.com/skillmesh/skillmesh/pkg/presenter"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys",
	Long: `Manage the API keys that scope MCP clients to skill subtrees. Keys
are stored hashed next to the skill graph; the plaintext is printed once
at creation and cannot be recovered.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
		os.Exit(1)
	},
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key",
	Run: func(cmd *cobra.Command, _ []string) {
		runAPIKeyCreateCommand(cmd.Context(), cmd)
	},
}

var apikeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys",
	Run: func(cmd *cobra.Command, _ []string) {
		runAPIKeyListCommand(cmd.Context())
	},
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke [key-id]",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runAPIKeyRevokeCommand(cmd.Context(), args[0])
	},
}

func init() {
	apikeyCreateCmd.Flags().String("name", "", "Key name, used as the principal name (required)")
	apikeyCreateCmd.Flags().StringSlice("grants", nil, "Root skill ids the key is granted")
	apikeyCreateCmd.Flags().Bool("wildcard", false, "Grant access to every skill")
	apikeyCreateCmd.MarkFlagRequired("name")

	apikeyCmd.AddCommand(apikeyCreateCmd)
	apikeyCmd.AddCommand(apikeyListCmd)
	apikeyCmd.AddCommand(apikeyRevokeCmd)
}

func runAPIKeyCreateCommand(ctx context.Context, cmd *cobra.Command) {
	name, _ := cmd.Flags().GetString("name")
	grants, _ := cmd.Flags().GetStringSlice("grants")
	wildcard, _ := cmd.Flags().GetBool("wildcard")
	if wildcard {
		grants = append(grants, auth.WildcardGrant)
	}

	eng, err := newEngine(ctx)
	if err != nil {
		presenter.Error(err, "failed to initialize engine")
		os.Exit(1)
	}
	defer eng.Close()

	keys, err := eng.apiKeys()
	if err != nil {
		presenter.Error(err, "api keys unavailable")
		os.Exit(1)
	}

	key, plaintext, err := keys.Create(ctx, name, grants)
	if err != nil {
		presenter.Error(err, "failed to create api key")
		os.Exit(1)
	}

	presenter.Success(fmt.Sprintf("created api key %s (%s)", key.KeyID, key.Name))
	presenter.Warning("store the key now; it cannot be shown again")
	fmt.Println(plaintext)
}

func runAPIKeyListCommand(ctx context.Context) {
	eng, err := newEngine(ctx)
	if err != nil {
		presenter.Error(err, "failed to initialize engine")
		os.Exit(1)
	}
	defer eng.Close()

	keys, err := eng.apiKeys()
	if err != nil {
		presenter.Error(err, "api keys unavailable")
		os.Exit(1)
	}

	all, err := keys.List(ctx)
	if err != nil {
		presenter.Error(err, "failed to list api keys")
		os.Exit(1)
	}
	if len(all) == 0 {
		presenter.Info("no api keys")
		return
	}

	presenter.Section(fmt.Sprintf("API keys (%d)", len(all)))
	for _, key := range all {
		status := "active"
		if key.Revoked {
			status = "revoked"
		}
		presenter.Info(fmt.Sprintf("%-36s %-20s %-10s %-8s grants=%v",
			key.KeyID, key.Name, key.Prefix+"...", status, key.Grants))
	}
}

func runAPIKeyRevokeCommand(ctx context.Context, keyID string) {
	eng, err := newEngine(ctx)
	if err != nil {
		presenter.Error(err, "failed to initialize engine")
		os.Exit(1)
	}
	defer eng.Close()

	keys, err := eng.apiKeys()
	if err != nil {
		presenter.Error(err, "api keys unavailable")
		os.Exit(1)
	}

	if err := keys.Revoke(ctx, keyID); err != nil {
		presenter.Error(err, "failed to revoke api key")
		os.Exit(1)
	}
	presenter.Success(fmt.Sprintf("revoked api key %s", keyID))
}
