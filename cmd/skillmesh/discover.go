package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skillmesh/skillmesh/pkg/orchestrator"
	"github.com/skillmesh/skillmesh/pkg/presenter"
)

type DiscoverConfig struct {
	TopK      int
	APIKey    string
	Token     string
	Anonymous bool
}

func NewDiscoverConfig() *DiscoverConfig {
	return &DiscoverConfig{
		TopK: orchestrator.DefaultK,
	}
}

var discoverCmd = &cobra.Command{
	Use:   "discover [query]",
	Short: "Semantically search the skill graph",
	Long: `Run the discovery phase from the command line: embed the query, rank
skills by similarity, and print the accessible results. Like the MCP
tool, this never prints instruction content.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runDiscoverCommand(cmd.Context(), getDiscoverConfigFromFlags(cmd), strings.Join(args, " "))
	},
}

func init() {
	defaults := NewDiscoverConfig()
	discoverCmd.Flags().Int("top-k", defaults.TopK, "How many results to return")
	discoverCmd.Flags().String("api-key", defaults.APIKey, "API key to discover as")
	discoverCmd.Flags().String("token", defaults.Token, "JWT to discover as")
	discoverCmd.Flags().Bool("anonymous", defaults.Anonymous, "Discover with no grants")
}

func getDiscoverConfigFromFlags(cmd *cobra.Command) *DiscoverConfig {
	config := NewDiscoverConfig()
	if topK, err := cmd.Flags().GetInt("top-k"); err == nil {
		config.TopK = topK
	}
	if apiKey, err := cmd.Flags().GetString("api-key"); err == nil {
		config.APIKey = apiKey
	}
	if token, err := cmd.Flags().GetString("token"); err == nil {
		config.Token = token
	}
	if anonymous, err := cmd.Flags().GetBool("anonymous"); err == nil {
		config.Anonymous = anonymous
	}
	return config
}

func runDiscoverCommand(ctx context.Context, config *DiscoverConfig, query string) {
	eng, err := newEngine(ctx)
	if err != nil {
		presenter.Error(err, "failed to initialize engine")
		os.Exit(1)
	}
	defer eng.Close()

	principal, err := eng.resolvePrincipal(ctx, config.APIKey, config.Token, config.Anonymous)
	if err != nil {
		presenter.Error(err, "failed to authenticate")
		os.Exit(1)
	}

	hits, err := eng.orch.Discover(ctx, query, config.TopK, principal)
	if err != nil {
		presenter.Error(err, "discovery failed")
		os.Exit(1)
	}
	if len(hits) == 0 {
		presenter.Info("no accessible skills matched")
		return
	}

	presenter.Section(fmt.Sprintf("Results for %q", query))
	for i, hit := range hits {
		kind := "skill"
		if hit.IsFolder {
			kind = "folder"
		}
		presenter.Info(fmt.Sprintf("%d. %-30s %-8s %.3f  %s", i+1, hit.ID, kind, hit.Score, hit.Summary.Summary))
	}
}
