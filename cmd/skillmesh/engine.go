package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/skillmesh/skillmesh/pkg/access"
	"github.com/skillmesh/skillmesh/pkg/auth"
	"github.com/skillmesh/skillmesh/pkg/config"
	"github.com/skillmesh/skillmesh/pkg/discovery"
	"github.com/skillmesh/skillmesh/pkg/embeddings"
	"github.com/skillmesh/skillmesh/pkg/graph"
	"github.com/skillmesh/skillmesh/pkg/graph/sqlite"
	"github.com/skillmesh/skillmesh/pkg/logger"
	"github.com/skillmesh/skillmesh/pkg/orchestrator"
	"github.com/skillmesh/skillmesh/pkg/traversal"
	"github.com/skillmesh/skillmesh/pkg/vectorindex"
)

// engine bundles the orchestrator with the handles commands need:
// the raw store for closing and the sqlite handle for api keys.
type engine struct {
	cfg    config.Config
	orch   *orchestrator.Orchestrator
	store  graph.Store
	sqlite *sqlite.Store
}

// newEngine builds the full stack from viper configuration and syncs
// the vector index from the store.
func newEngine(ctx context.Context) (*engine, error) {
	cfg, err := config.FromViper()
	if err != nil {
		return nil, err
	}

	var (
		store       graph.Store
		sqliteStore *sqlite.Store
	)
	switch cfg.Store.Backend {
	case config.StoreSQLite:
		sqliteStore, err = sqlite.NewStore(ctx, cfg.Store.DBPath)
		if err != nil {
			return nil, err
		}
		store = sqliteStore
	case config.StoreMemory:
		store = graph.NewMemoryStore()
	default:
		return nil, errors.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	provider, err := embeddings.NewFromConfig(cfg.Embedding)
	if err != nil {
		store.Close()
		return nil, err
	}

	index, err := vectorindex.NewMemoryIndex(provider.Dimensions())
	if err != nil {
		store.Close()
		return nil, err
	}

	opts := []orchestrator.Option{
		orchestrator.WithTraversalOptions(traversal.WithMaxDepth(cfg.Graph.MaxDepth)),
		orchestrator.WithDiscoveryOptions(discovery.WithCandidateMultiplier(cfg.Graph.CandidateMultiplier)),
	}
	if cfg.Graph.AccessCacheTTL > 0 {
		opts = append(opts, orchestrator.WithAccessOptions(access.WithCacheTTL(cfg.Graph.AccessCacheTTL)))
	}

	orch, err := orchestrator.New(store, provider, index, opts...)
	if err != nil {
		store.Close()
		return nil, err
	}

	indexed, err := orch.SyncIndex(ctx)
	if err != nil {
		store.Close()
		return nil, errors.Wrap(err, "failed to sync vector index")
	}
	logger.G(ctx).WithField("indexed", indexed).Debug("engine ready")

	return &engine{cfg: cfg, orch: orch, store: store, sqlite: sqliteStore}, nil
}

func (e *engine) Close() error {
	return e.store.Close()
}

// apiKeys returns the key store, which needs the sqlite backend.
func (e *engine) apiKeys() (*auth.APIKeyStore, error) {
	if e.sqlite == nil {
		return nil, errors.New("api keys require the sqlite store backend")
	}
	return auth.NewAPIKeyStore(e.sqlite.DB()), nil
}

// resolvePrincipal maps the credential flags to a principal. Precedence:
// explicit token, then api key, then anonymous flag, then local admin.
// The default is deliberate: a stdio server is run by the graph's owner.
func (e *engine) resolvePrincipal(ctx context.Context, apiKey, token string, anonymous bool) (graph.Principal, error) {
	switch {
	case token != "":
		issuer, err := auth.NewTokenIssuer(e.cfg.Auth.JWTSecret, e.cfg.Auth.TokenTTL)
		if err != nil {
			return graph.Principal{}, errors.Wrap(err, "token auth requires auth.jwt_secret")
		}
		return issuer.Verify(token)
	case apiKey != "":
		keys, err := e.apiKeys()
		if err != nil {
			return graph.Principal{}, err
		}
		return keys.Resolve(ctx, apiKey)
	case anonymous:
		return graph.Anonymous, nil
	default:
		return graph.Principal{Name: "local-admin", Wildcard: true}, nil
	}
}
