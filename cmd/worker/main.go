package main

import (
	"context"
	"log"
	"path/filepath"

	"supportbot/internal/activities"
	"supportbot/internal/bootstrap"
	"supportbot/internal/config"
	"supportbot/internal/extract"
	"supportbot/internal/logging"
	"supportbot/internal/util"
	"supportbot/internal/watcher"
	"supportbot/internal/workflows"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
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

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal("dial temporal", "address", cfg.TemporalAddress, "error", err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", "error", err)
	}
	defer rt.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(cfg, rt.Embedder, rt.Store, logger))

	if cfg.WatchDir != "" {
		startWatcher(ctx, c, cfg, logger)
	}

	logger.Info("supportbot worker listening", "temporal", cfg.TemporalAddress, "queue", cfg.TemporalTaskQueue, "vector_backend", cfg.VectorBackend)
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("worker stopped", "error", err)
	}
}

// startWatcher starts one DocumentIngestWorkflow per file dropped into
// cfg.WatchDir.
func startWatcher(ctx context.Context, c client.Client, cfg config.Config, logger *logging.Logger) {
	if err := util.EnsureDir(cfg.WatchDir); err != nil {
		logger.Fatal("watch dir", "error", err)
	}
	supported := func(path string) bool { return extract.Supported(extract.DetectMIME("", path)) }
	wt := watcher.New(cfg.WatchDir, cfg.WatchSettle, supported, logger)
	go func() {
		err := wt.Run(ctx, func(ctx context.Context, path string) {
			run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
				ID:        "ingest-" + uuid.NewString(),
				TaskQueue: cfg.TemporalTaskQueue,
			}, workflows.DocumentIngestWorkflow, workflows.DocumentIngestInput{
				FilePath:     path,
				Filename:     filepath.Base(path),
				MIMEType:     extract.DetectMIME("", path),
				ChunkSize:    cfg.RAG.ChunkSize,
				ChunkOverlap: cfg.RAG.ChunkOverlap,
				BatchSize:    cfg.RAG.BatchSize,
			})
			if err != nil {
				logger.Error("start ingest for dropped file", "path", path, "error", err)
				return
			}
			logger.Info("ingest started for dropped file", "path", path, "workflow_id", run.GetID())
		})
		if err != nil {
			logger.Error("watcher stopped", "error", err)
		}
	}()
}
