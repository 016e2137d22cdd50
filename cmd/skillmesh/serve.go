package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillmesh/skillmesh/pkg/logger"
	"github.com/skillmesh/skillmesh/pkg/mcpserver"
	"github.com/skillmesh/skillmesh/pkg/presenter"
	"github.com/skillmesh/skillmesh/pkg/telemetry"
	"github.com/skillmesh/skillmesh/pkg/version"
)

type ServeConfig struct {
	APIKey    string
	Token     string
	Anonymous bool
}

func NewServeConfig() *ServeConfig {
	return &ServeConfig{}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the skill graph over MCP on stdio",
	Long: `Start the MCP server on stdin/stdout. The connected client gets the
find_relevant_skill, list_sub_skills, and load_instruction tools.

The client's identity is fixed at startup: pass --api-key or --token to
scope it to granted skill subtrees, or --anonymous to deny everything.
With no credential the client acts as the local administrator.`,
	Run: func(cmd *cobra.Command, _ []string) {
		runServeCommand(cmd.Context(), getServeConfigFromFlags(cmd))
	},
}

func init() {
	defaults := NewServeConfig()
	serveCmd.Flags().String("api-key", defaults.APIKey, "API key identifying the connected client")
	serveCmd.Flags().String("token", defaults.Token, "JWT identifying the connected client")
	serveCmd.Flags().Bool("anonymous", defaults.Anonymous, "Serve with no grants (deny all access)")
}

func getServeConfigFromFlags(cmd *cobra.Command) *ServeConfig {
	config := NewServeConfig()
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

func runServeCommand(ctx context.Context, config *ServeConfig) {
	eng, err := newEngine(ctx)
	if err != nil {
		presenter.Error(err, "failed to initialize engine")
		os.Exit(1)
	}
	defer eng.Close()

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.Config{
		Enabled:        eng.cfg.Tracing.Enabled,
		ServiceName:    "skillmesh",
		ServiceVersion: version.Get().Version,
		SamplerType:    eng.cfg.Tracing.SamplerType,
		SamplerRatio:   eng.cfg.Tracing.SamplerRatio,
	})
	if err != nil {
		presenter.Error(err, "failed to initialize tracing")
		os.Exit(1)
	}
	defer shutdownTracer(context.Background())

	principal, err := eng.resolvePrincipal(ctx, config.APIKey, config.Token, config.Anonymous)
	if err != nil {
		presenter.Error(err, "failed to authenticate client")
		os.Exit(1)
	}
	logger.G(ctx).WithField("principal", principal.Name).
		WithField("wildcard", principal.Wildcard).
		WithField("grants", len(principal.GrantedRootIDs)).
		Info("starting MCP server on stdio")

	server := mcpserver.New(eng.orch, principal)
	if err := mcpserver.ServeStdio(server); err != nil {
		presenter.Error(err, "MCP server failed")
		os.Exit(1)
	}
}
