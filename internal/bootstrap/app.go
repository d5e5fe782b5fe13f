package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"doctutor/internal/ai"
	"doctutor/internal/config"
	"doctutor/internal/embedding"
	"doctutor/internal/ingest"
	"doctutor/internal/model"
	mysqlClient "doctutor/internal/platform/mysql"
	rabbitmqClient "doctutor/internal/platform/rabbitmq"
	redisClient "doctutor/internal/platform/redis"
	"doctutor/internal/repository"
	"doctutor/internal/storage"
	"doctutor/internal/vectorindex"
)

type App struct {
	Config       *config.Config
	MySQL        *gorm.DB
	Redis        *redis.Client
	MQConn       *amqp.Connection
	Blobs        storage.BlobStore
	AI           *ai.OpenAICompatibleClient
	Embedder     *embedding.Gateway
	VectorIndex  *vectorindex.Client
	IngestWorker *ingest.Worker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.User{},
		&model.Document{},
		&model.Chunk{},
		&model.QuizSession{},
		&model.Question{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.IngestQueue)
	if err != nil {
		return nil, err
	}

	blobs, err := storage.NewFSStore(cfg.Storage.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("init blob store failed: %w", err)
	}

	aiClient := ai.NewOpenAICompatibleClient()
	// Embeddings always go to the fallback (OpenAI-compatible) endpoint;
	// the primary chat provider has no embedding API.
	embedder := embedding.NewGateway(aiClient, ai.EmbeddingConfig{
		BaseURL: cfg.LLM.FallbackBaseURL,
		APIKey:  cfg.LLM.FallbackAPIKey,
		Model:   cfg.LLM.EmbeddingModel,
	})

	vecIndex := vectorindex.NewClient(vectorindex.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
	})
	if err := vecIndex.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensure vector collection failed: %w", err)
	}

	documentRepo := repository.NewDocumentRepository(mysqlDB)
	chunkRepo := repository.NewChunkRepository(mysqlDB)
	pipeline := ingest.NewPipeline(documentRepo, chunkRepo, blobs, embedder, vecIndex)
	guard := ingest.NewGuard(redisCli, 10*time.Minute)
	ingestWorker := ingest.NewWorker(mqConn, pipeline, guard, cfg.RabbitMQ.IngestQueue)
	if err := ingestWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ingest worker failed: %w", err)
	}

	return &App{
		Config:       cfg,
		MySQL:        mysqlDB,
		Redis:        redisCli,
		MQConn:       mqConn,
		Blobs:        blobs,
		AI:           aiClient,
		Embedder:     embedder,
		VectorIndex:  vecIndex,
		IngestWorker: ingestWorker,
		StartedAt:    time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
