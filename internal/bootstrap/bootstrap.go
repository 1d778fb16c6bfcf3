// Package bootstrap wires the pieces both binaries share: providers, the
// optional Postgres pool and the vector store.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"supportbot/internal/config"
	"supportbot/internal/logging"
	"supportbot/internal/providers"
	"supportbot/internal/rag"
	"supportbot/internal/storage"
	"supportbot/internal/vector"
)

type Runtime struct {
	Config   config.Config
	LLM      providers.LLMProvider
	Embed    providers.EmbeddingProvider
	DB       *storage.DB
	Store    vector.Store
	Embedder *rag.Embedder
	Logger   *logging.Logger
}

// Open connects everything the config asks for. Postgres is mandatory for
// the pgvector backend; for the others it only backs the LLM call audit and
// a failed connection is logged and skipped.
func Open(ctx context.Context, cfg config.Config, log *logging.Logger) (*Runtime, error) {
	mgr, err := providers.NewManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("build providers: %w", err)
	}
	llm, llmRef := mgr.LLM()
	embed, embedRef := mgr.Embedder()
	log.Info("providers selected",
		"llm", llmRef.Raw, "llm_configured", len(mgr.LLMRefs()),
		"embed", embedRef.Raw, "embed_configured", len(mgr.EmbedRefs()))

	rt := &Runtime{Config: cfg, LLM: llm, Embed: embed, Logger: log}

	pgBackend := strings.EqualFold(cfg.VectorBackend, "pgvector") || cfg.VectorBackend == ""
	if pgBackend || strings.TrimSpace(cfg.PostgresURL) != "" {
		dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		db, err := storage.NewDB(dbCtx, cfg.PostgresURL)
		cancel()
		switch {
		case err != nil && pgBackend:
			return nil, err
		case err != nil:
			log.Warn("postgres unavailable, llm call audit disabled", "error", err)
		default:
			rt.DB = db
		}
	}
	if rt.DB != nil && cfg.AutoMigrate {
		if err := rt.DB.EnsureSchema(ctx, cfg.EmbedDim); err != nil {
			rt.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		log.Info("schema ready", "embed_dim", cfg.EmbedDim)
	}

	store, err := vector.Open(ctx, cfg, rt.DB)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	rt.Store = store
	rt.Embedder = rag.NewEmbedder(embed, cfg)
	return rt, nil
}

// Recorder returns the LLM call audit sink, or nil without Postgres.
func (r *Runtime) Recorder() rag.CallRecorder {
	if r.DB == nil {
		return nil
	}
	return storage.NewLLMAuditRepo(r.DB)
}

func (r *Runtime) Close() {
	if c, ok := r.Store.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			r.Logger.Warn("close vector store", "error", err)
		}
	}
	r.DB.Close()
}
