package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mediquery/mediquery-core/internal/adapters/driven/ai"
	"github.com/mediquery/mediquery-core/internal/adapters/driven/elastic"
	"github.com/mediquery/mediquery-core/internal/adapters/driven/mimiccsv"
	"github.com/mediquery/mediquery-core/internal/adapters/driven/postgres"
	redisadapter "github.com/mediquery/mediquery-core/internal/adapters/driven/redis"
	"github.com/mediquery/mediquery-core/internal/core/domain"
	"github.com/mediquery/mediquery-core/internal/core/ports/driven"
	"github.com/mediquery/mediquery-core/internal/core/ports/driving"
	"github.com/mediquery/mediquery-core/internal/core/services"
	"github.com/mediquery/mediquery-core/internal/enrichers"
	"github.com/mediquery/mediquery-core/internal/runtime"
)

var version = "dev"

func main() {
	// Get run mode from environment (RUN_MODE) or command line arg
	mode := getEnv("RUN_MODE", "query")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	log.Printf("mediquery-core %s starting in %s mode", version, mode)

	// Configuration from environment
	elasticURL := getEnv("ELASTICSEARCH_URL", "http://localhost:9200")
	databaseURL := getEnv("DATABASE_URL", "")
	redisURL := getEnv("REDIS_URL", "")
	embeddingURL := getEnv("EMBEDDING_URL", "")
	dataPath := getEnv("MIMIC_DATA_PATH", "./data")

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// ===== Initialize PostgreSQL (optional) =====
	var db *postgres.DB
	if databaseURL != "" {
		log.Println("Connecting to PostgreSQL...")
		dbConfig := postgres.Config{
			URL:             databaseURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300)) * time.Second,
			ConnMaxIdleTime: time.Duration(getEnvInt("DB_CONN_MAX_IDLE_SEC", 60)) * time.Second,
		}
		var err error
		db, err = postgres.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		// Initialize schema (idempotent)
		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		log.Println("PostgreSQL connected and schema initialized")
	} else {
		log.Println("DATABASE_URL not set, running without ingest-run ledger")
	}

	// ===== Initialize Redis (optional) =====
	var redisClient *redis.Client
	if redisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	// ===== Initialize Elasticsearch =====
	log.Println("Connecting to Elasticsearch...")
	searchIndex := elastic.NewSearchIndex(elastic.DefaultConfig(elasticURL))
	if err := searchIndex.HealthCheck(ctx); err != nil {
		log.Printf("Warning: Elasticsearch health check failed: %v (search may not work)", err)
	} else {
		log.Println("Elasticsearch connected")
	}

	// ===== Clinical Vocabulary (PostgreSQL if seeded, otherwise built-in) =====
	var vocab driven.Vocabulary = enrichers.NewStaticVocabulary()
	if db != nil {
		store, err := postgres.LoadVocabulary(ctx, db)
		switch {
		case err != nil:
			log.Printf("Warning: vocabulary load failed: %v (using built-in vocabulary)", err)
		case store.Empty():
			log.Println("Vocabulary tables unseeded, using built-in vocabulary")
		default:
			vocab = store
			log.Println("Using PostgreSQL vocabulary")
		}
	}

	// ===== Result Cache (Redis if available) =====
	var resultCache driven.ResultCache
	if redisClient != nil {
		resultCache = redisadapter.NewResultCache(redisClient)
		log.Println("Using Redis result cache")
	}

	// ===== Ingest-Run Ledger (PostgreSQL if available) =====
	var stateStore driven.IngestStateStore
	if db != nil {
		stateStore = postgres.NewIngestStateStore(db)
	}

	// ===== Embedding Service (optional) =====
	runtimeServices := runtime.NewServices()
	defer runtimeServices.Close()
	if embeddingURL != "" {
		embedder, err := ai.NewHTTPEmbedding(embeddingURL, getEnv("EMBEDDING_MODEL", ""))
		if err != nil {
			log.Fatalf("Failed to create embedding client: %v", err)
		}
		if err := runtimeServices.ValidateAndSetEmbedding(ctx, embedder); err != nil {
			log.Printf("Warning: embedding service unavailable: %v (semantic search disabled)", err)
		} else {
			log.Println("Embedding service connected")
		}
	} else {
		log.Println("EMBEDDING_URL not set, semantic search disabled")
	}

	// ===== Enrichment and query understanding =====
	extractors := enrichers.NewExtractorSet(vocab)
	enricher := enrichers.New(enrichers.Config{
		Vocabulary: vocab,
		Extractors: extractors,
		Logger:     slog.Default(),
	})

	// ===== Services (core business logic) =====
	indexer := services.NewBatchIndexer(services.IndexerConfig{
		Index:         searchIndex,
		BatchSize:     getEnvInt("BATCH_SIZE", 500),
		MaxRetries:    getEnvInt("BULK_MAX_RETRIES", 3),
		BulkPerSecond: float64(getEnvInt("BULK_PER_SECOND", 0)),
		Logger:        slog.Default(),
	})

	orchestrator := services.NewIngestOrchestrator(services.IngestConfig{
		Source:   mimiccsv.NewSource(dataPath, slog.Default()),
		Enricher: enricher,
		Indexer:  indexer,
		State:    stateStore,
		Logger:   slog.Default(),
	})

	planner := services.NewQueryPlanner(extractors, runtimeServices, slog.Default())
	fanout := services.NewFanOut(searchIndex,
		time.Duration(getEnvInt("SEARCH_TIMEOUT_MS", 5000))*time.Millisecond,
		slog.Default())
	searchService := services.NewSearchService(services.SearchConfig{
		Planner:  planner,
		FanOut:   fanout,
		Cache:    resultCache,
		CacheTTL: time.Duration(getEnvInt("CACHE_TTL_SEC", 300)) * time.Second,
		Logger:   slog.Default(),
	})

	switch mode {
	case "setup":
		// Setup mode: create indices and schema, then exit
		runSetup(ctx, searchIndex)

	case "ingest":
		// Ingest mode: one full corpus ingestion run
		runSetup(ctx, searchIndex)
		runIngest(ctx, orchestrator)

	case "query":
		// Query mode: execute one search from the command line
		runQuery(ctx, searchService, strings.Join(os.Args[2:], " "))

	default:
		log.Fatalf("Unknown mode: %s (use: setup, ingest, or query)", mode)
	}
}

// runSetup creates the per-kind indices with their mappings.
func runSetup(ctx context.Context, index *elastic.SearchIndex) {
	log.Println("Ensuring indices exist...")
	if err := index.EnsureIndices(ctx); err != nil {
		log.Fatalf("Failed to create indices: %v", err)
	}
	log.Println("Indices ready")
}

// runIngest executes one ingestion run and reports per-kind stats.
func runIngest(ctx context.Context, orchestrator driving.IngestService) {
	log.Println("Starting ingestion run...")
	run, err := orchestrator.Run(ctx)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	for _, kind := range domain.AllKinds() {
		stats := run.Stats[kind]
		log.Printf("  %-15s indexed=%d failed=%d skipped=%d",
			kind, stats.Succeeded, stats.Failed, stats.Skipped)
	}
	log.Printf("Ingestion run %s finished with status %s", run.ID, run.Status)
	if run.Error != "" {
		log.Printf("Run errors: %s", run.Error)
	}
}

// runQuery executes a single search and prints the response as JSON.
func runQuery(ctx context.Context, searcher driving.SearchService, query string) {
	resp, err := searcher.Search(ctx, domain.SearchRequest{
		Query: query,
		Size:  getEnvInt("SEARCH_SIZE", 10),
	})
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode response: %v", err)
	}
	fmt.Println(string(out))
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
