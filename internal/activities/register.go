package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ListDocumentFilesActivity)
	w.RegisterActivity(a.ExtractTextActivity)
	w.RegisterActivity(a.CreateDocumentActivity)
	w.RegisterActivity(a.ChunkTextActivity)
	w.RegisterActivity(a.EmbedBatchActivity)
	w.RegisterActivity(a.StoreChunksActivity)
	w.RegisterActivity(a.WriteDocumentArtifactsActivity)
	w.RegisterActivity(a.WriteIngestSummaryActivity)
}
