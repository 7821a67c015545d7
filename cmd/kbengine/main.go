// Command kbengine is the knowledge engine CLI: it manages data sources,
// runs syncs, and serves semantic search over the indexed content.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/kb-engine/internal/adapters/driven/config/file"
	ollamaembed "github.com/custodia-labs/kb-engine/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/kb-engine/internal/adapters/driven/parser"
	"github.com/custodia-labs/kb-engine/internal/adapters/driven/storage/sqlite"
	ollamatag "github.com/custodia-labs/kb-engine/internal/adapters/driven/tagging/ollama"
	"github.com/custodia-labs/kb-engine/internal/adapters/driving/cli"
	"github.com/custodia-labs/kb-engine/internal/chunker"
	"github.com/custodia-labs/kb-engine/internal/connectors"
	"github.com/custodia-labs/kb-engine/internal/connectors/document"
	"github.com/custodia-labs/kb-engine/internal/connectors/drive"
	"github.com/custodia-labs/kb-engine/internal/connectors/dropbox"
	"github.com/custodia-labs/kb-engine/internal/connectors/github"
	"github.com/custodia-labs/kb-engine/internal/connectors/highspot"
	"github.com/custodia-labs/kb-engine/internal/connectors/notion"
	"github.com/custodia-labs/kb-engine/internal/connectors/website"
	"github.com/custodia-labs/kb-engine/internal/core/services"
	"github.com/custodia-labs/kb-engine/internal/pipeline"
)

func main() {
	cfg, err := file.NewConfigStore("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		os.Exit(1)
	}

	store, err := sqlite.NewStore(cfg.GetString(file.KeyDataDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	embedder := ollamaembed.NewEmbedder(ollamaembed.Config{
		BaseURL: cfg.GetString(file.KeyEmbeddingBaseURL),
		Model:   cfg.GetString(file.KeyEmbeddingModel),
	})
	tagger := ollamatag.NewTagger(ollamatag.Config{
		BaseURL: cfg.GetString(file.KeyEmbeddingBaseURL),
		Model:   cfg.GetString(file.KeyTaggingModel),
	})

	annotator := pipeline.New(embedder, tagger)
	ingestor := connectors.NewIngestor(store.ChunkStore(), chunker.New(), annotator)
	creds := store.CredentialStore()

	var websiteOpts []website.Option
	if agent := cfg.GetString(file.KeyCrawlerUserAgent); agent != "" {
		websiteOpts = append(websiteOpts, website.WithUserAgent(agent))
	}

	registry := services.NewConnectorRegistry(
		document.New(ingestor, parser.New()),
		website.New(ingestor, websiteOpts...),
		drive.New(ingestor, creds),
		dropbox.New(ingestor, creds),
		notion.New(ingestor, creds),
		github.New(ingestor, creds),
		highspot.New(ingestor, creds),
	)

	var orchOpts []services.OrchestratorOption
	if workers := cfg.GetInt(file.KeySyncWorkers); workers > 0 {
		orchOpts = append(orchOpts, services.WithWorkers(workers))
	}
	if queue := cfg.GetInt(file.KeySyncQueueSize); queue > 0 {
		orchOpts = append(orchOpts, services.WithQueueSize(queue))
	}
	orchestrator := services.NewSyncOrchestrator(
		store.SourceStore(), store.SyncLogStore(), registry, orchOpts...)
	defer orchestrator.Close()

	search := services.NewSearchService(store.ChunkStore(), embedder)
	knowledge := services.NewKnowledgeService(
		store.SourceStore(),
		store.ChunkStore(),
		store.SyncLogStore(),
		creds,
		registry,
		orchestrator,
		search,
	)

	cli.SetDefaultTenant(cfg.GetString(file.KeyDefaultTenant))
	cli.SetServices(knowledge, registry)
	cli.Execute()
}
