package main

import (
	"context"
	"log"
	"net/http"

	"supportbot/internal/api"
	"supportbot/internal/bootstrap"
	"supportbot/internal/config"
	"supportbot/internal/ingest"
	"supportbot/internal/logging"
	"supportbot/internal/rag"

	"github.com/joho/godotenv"
	tclient "go.temporal.io/sdk/client"
)

func main() {
	_ = godotenv.Load(".env")
	cfg, err := config.LoadWithFile()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogMode)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	rt, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", "error", err)
	}
	defer rt.Close()

	deps := api.Deps{
		Config: cfg,
		Chat: rag.NewService(rag.ServiceDeps{
			Config:   cfg,
			LLM:      rt.LLM,
			Embed:    rt.Embed,
			Store:    rt.Store,
			Recorder: rt.Recorder(),
			Logger:   logger,
		}),
		Ingest: ingest.NewService(rt.Embedder, rt.Store, cfg.RAG, logger),
		Logger: logger,
	}

	// Durable ingestion is optional; the synchronous routes work without it.
	c, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Warn("temporal unavailable, /ingest-jobs disabled", "address", cfg.TemporalAddress, "error", err)
	} else {
		defer c.Close()
		deps.Temporal = c
	}

	h := api.NewServer(deps)
	logger.Info("supportbot api listening", "addr", cfg.APIAddr, "vector_backend", cfg.VectorBackend, "llm_providers", cfg.LLMProviders, "embed_providers", cfg.EmbedProviders)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		logger.Fatal("api server stopped", "error", err)
	}
}
