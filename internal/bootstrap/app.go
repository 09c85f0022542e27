package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"dairydesk/internal/ai"
	"dairydesk/internal/config"
	applog "dairydesk/internal/log"
	"dairydesk/internal/model"
	mysqlClient "dairydesk/internal/platform/mysql"
	rabbitmqClient "dairydesk/internal/platform/rabbitmq"
	redisClient "dairydesk/internal/platform/redis"
	"dairydesk/internal/rag"
	"dairydesk/internal/repository"
	"dairydesk/internal/worker"
)

// App wires the process-wide dependencies: config, datastores, the broker
// connection, the Gemini client, the document index, and the transcript
// worker. The HTTP router builds services and handlers on top of it.
type App struct {
	Config           *config.Config
	Logger           applog.Logger
	MySQL            *gorm.DB
	Redis            *redis.Client
	MQConn           *amqp.Connection
	AI               *ai.Client
	Index            *rag.Index
	TranscriptWorker *worker.TranscriptWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	// A missing .env is fine; env vars may come from the shell.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logger := applog.New(applog.Config{
		Level: logLevel(cfg.App.Env),
		JSON:  cfg.App.Env == "prod",
	})

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.User{},
		&model.Customer{},
		&model.MilkRecord{},
		&model.Payment{},
		&model.Product{},
		&model.ChatLog{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	chatLogRepo := repository.NewChatLogRepository(mysqlDB)
	transcriptWorker := worker.NewTranscriptWorker(
		mqConn,
		chatLogRepo,
		cfg.RabbitMQ.TranscriptPersistQueue,
		logger.With("component", "transcript_worker"),
	)
	if err := transcriptWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start transcript worker failed: %w", err)
	}

	aiClient := ai.NewClient(ai.Config{
		BaseURL:        cfg.Gemini.BaseURL,
		APIKey:         cfg.Gemini.APIKey,
		Model:          cfg.Gemini.Model,
		EmbeddingModel: cfg.Gemini.EmbeddingModel,
		RequestsPerSec: cfg.Gemini.RequestsPerSec,
	})
	if cfg.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, model calls will fail")
	} else {
		logger.Info("using model", "model", aiClient.ResolveModel(ctx))
	}

	index := rag.NewIndex(
		aiClient,
		cfg.RAG.KnowledgeDir,
		cfg.RAG.SnapshotFile,
		time.Duration(cfg.RAG.TimeoutSeconds)*time.Second,
		logger.With("component", "rag"),
	)

	if err := os.MkdirAll(cfg.App.StaticDir, 0o755); err != nil {
		return nil, fmt.Errorf("create static dir failed: %w", err)
	}

	return &App{
		Config:           cfg,
		Logger:           logger,
		MySQL:            mysqlDB,
		Redis:            redisCli,
		MQConn:           mqConn,
		AI:               aiClient,
		Index:            index,
		TranscriptWorker: transcriptWorker,
		StartedAt:        time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.TranscriptWorker != nil {
		a.TranscriptWorker.Close()
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

func logLevel(env string) slog.Level {
	if env == "prod" {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
