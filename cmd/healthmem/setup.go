package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/config"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/providers/llm"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/providers/rag"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/providers/vector"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/service/memory"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/storage/badger"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/storage/postgres"
	redisstore "github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/storage/redis"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/storage/sqlite"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// app is everything a command needs, built from the environment.
type app struct {
	appCfg *config.AppConfig
	extCfg *config.ExtractionConfig

	store    core.MemoryStore
	semantic core.SemanticStore
	redis    *redis.Client
	metrics  *memory.Metrics
	pipeline *memory.Pipeline

	cleanups []func() error
}

type appOptions struct {
	// withOracle builds the extraction oracle; read-only commands skip it
	// so they work without provider keys.
	withOracle bool
	// withRedis fails setup when REDIS_URL is missing.
	withRedis bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		return nil, fmt.Errorf("init env: %w", err)
	}

	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close(ctx)
		}
	}()

	var err error
	if a.appCfg, err = config.ParseAppConfig(); err != nil {
		return nil, err
	}
	if a.extCfg, err = config.ParseExtractionConfig(); err != nil {
		return nil, err
	}
	ragCfg, err := config.ParseRAGConfig()
	if err != nil {
		return nil, err
	}

	tokenizer, err := rag.NewTokenizer(ragCfg.Tokenizer)
	if err != nil {
		return nil, err
	}

	// 1. Storage
	var pool *pgxpool.Pool
	if a.appCfg.DatabaseURL != "" && (a.appCfg.StorageDriver == config.StoragePostgres || a.appCfg.SemanticStore == config.SemanticPgvector) {
		if pool, err = postgres.NewPool(ctx, a.appCfg.DatabaseURL); err != nil {
			return nil, err
		}
		a.cleanups = append(a.cleanups, func() error { pool.Close(); return nil })
	}
	if a.store, err = initStorage(ctx, a.appCfg, pool); err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	a.cleanups = append(a.cleanups, a.store.Close)
	schemas := []core.SchemaInitializer{a.store}

	// 2. Semantic index
	if a.appCfg.SemanticStore != config.SemanticNone {
		model, err := rag.NewEmbeddingModel(ctx, ragCfg)
		if err != nil {
			return nil, fmt.Errorf("init embedding model: %w", err)
		}
		embedder := rag.NewEmbedder(model, tokenizer)
		a.cleanups = append(a.cleanups, embedder.Shutdown)

		switch a.appCfg.SemanticStore {
		case config.SemanticChromem:
			if a.semantic, err = vector.NewStore(a.appCfg.GetVectorPath(), embedder); err != nil {
				return nil, err
			}
		case config.SemanticPgvector:
			dims := embedder.Dims()
			if dims == 0 {
				dims = ragCfg.EmbeddingDims
			}
			pg := postgres.NewSemanticStore(pool, embedder, dims)
			a.semantic = pg
			schemas = append(schemas, pg)
		}
	}

	// 3. Coordination
	var locker core.UserLocker
	if a.appCfg.RedisURL != "" {
		if a.redis, err = redisstore.NewClient(ctx, a.appCfg.RedisURL); err != nil {
			return nil, err
		}
		a.cleanups = append(a.cleanups, a.redis.Close)
		locker = redisstore.NewLocker(a.redis)
	} else if opts.withRedis {
		return nil, errors.New("REDIS_URL is required for this command")
	}

	// 4. Oracle
	var oracle core.AIProvider
	if opts.withOracle {
		provCfg, err := config.ParseProviderConfig()
		if err != nil {
			return nil, err
		}
		if oracle, err = llm.NewProvider(ctx, provCfg); err != nil {
			return nil, fmt.Errorf("init llm provider: %w", err)
		}
	}

	// 5. Pipeline
	a.metrics = memory.NewMetrics()
	aggregator := memory.NewAggregator(a.store, a.semantic, memory.AggregatorOptions{
		BucketCap:        a.extCfg.ContextBucketCap,
		SummaryMaxTokens: a.extCfg.SummaryMaxTokens,
		Tokenizer:        tokenizer,
		Metrics:          a.metrics,
	})
	a.pipeline = memory.NewPipeline(a.extCfg, memory.PipelineDeps{
		Chunker:    memory.NewChunker(tokenizer),
		Extractor:  memory.NewExtractor(oracle, a.metrics),
		Aggregator: aggregator,
		Locker:     locker,
		Metrics:    a.metrics,
		Schemas:    schemas,
	})

	ok = true
	return a, nil
}

func initStorage(ctx context.Context, cfg *config.AppConfig, pool *pgxpool.Pool) (core.MemoryStore, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		return postgres.NewStore(pool), nil
	case config.StorageBadger:
		return badger.NewStore(ctx, badger.Config{Path: cfg.GetBadgerPath()})
	default:
		db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
		if err != nil {
			return nil, err
		}
		return sqlite.NewStore(db), nil
	}
}

// ensureSchema prepares storage for read-only commands, which never go
// through a pipeline run.
func (a *app) ensureSchema(ctx context.Context) error {
	if err := a.store.EnsureSchema(ctx); err != nil {
		return &core.SchemaInitError{Cause: err}
	}
	return nil
}

// Close runs cleanups in reverse order of acquisition.
func (a *app) Close(ctx context.Context) {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("cleanup failed")
		}
	}
	a.cleanups = nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
