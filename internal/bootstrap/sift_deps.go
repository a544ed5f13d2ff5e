package bootstrap

import (
	"context"
	"fmt"
	"os"

	"sift_server/adapter/out/aliasstore"
	"sift_server/adapter/out/mongodb"
	"sift_server/adapter/out/persistence"
	"sift_server/config"
	"sift_server/core/port/out"
	"sift_server/core/service/inference"
	"sift_server/infra/database"
	"sift_server/pkg/logger"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
)

type Dependencies struct {
	Config  *config.Config
	SQLDB   *sqlx.DB
	MongoDB *mongo.Client
	Redis   *redis.Client

	// Repositories
	AccountRepo   out.AccountRepository
	EvidenceRepo  out.EvidenceRepository
	InventoryRepo out.InventoryRepository
	AliasStore    out.AliasStore

	// Services
	Classifier       *inference.Classifier
	InferenceService *inference.Service
	Pipeline         *inference.Pipeline
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Redis (dynamic alias store). Optional: without it the canonicalizer
	// runs on the static table alone.
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis connection failed, alias store disabled: %v", err)
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })
			deps.AliasStore = aliasstore.NewRedisAliasStore(redisClient)
			logger.Info("Redis alias store initialized")
		}
	}

	// Account storage backend
	switch cfg.AccountStore {
	case "postgres":
		if cfg.DatabaseURL == "" {
			cleanup()
			return nil, nil, fmt.Errorf("ACCOUNT_STORE=postgres requires DATABASE_URL")
		}
		sqlDB, err := database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		deps.SQLDB = sqlDB
		cleanups = append(cleanups, func() { sqlDB.Close() })

		if err := persistence.EnsureSchema(context.Background(), sqlDB); err != nil {
			cleanup()
			return nil, nil, err
		}

		deps.AccountRepo = persistence.NewAccountAdapter(sqlDB)
		deps.EvidenceRepo = persistence.NewEvidenceAdapter(sqlDB)
		deps.InventoryRepo = persistence.NewInventoryAdapter(sqlDB)
		logger.Info("PostgreSQL adapters initialized")

	case "mongo":
		if cfg.MongoDBURL == "" {
			cleanup()
			return nil, nil, fmt.Errorf("ACCOUNT_STORE=mongo requires MONGODB_URL")
		}
		mongoClient, err := mongodb.NewClient(cfg.MongoDBURL, cfg.MongoDBName)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("mongodb connection failed: %w", err)
		}
		deps.MongoDB = mongoClient
		cleanups = append(cleanups, func() {
			mongoClient.Disconnect(context.Background())
		})

		mongoDB := mongoClient.Database(cfg.MongoDBName)
		accountAdapter := mongodb.NewAccountAdapter(mongoDB)
		evidenceAdapter := mongodb.NewEvidenceAdapter(mongoDB)
		inventoryAdapter := mongodb.NewInventoryAdapter(mongoDB)

		ctx := context.Background()
		if err := accountAdapter.EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to ensure account indexes: %v", err)
		}
		if err := evidenceAdapter.EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to ensure evidence indexes: %v", err)
		}
		if err := inventoryAdapter.EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to ensure inventory indexes: %v", err)
		}

		deps.AccountRepo = accountAdapter
		deps.EvidenceRepo = evidenceAdapter
		deps.InventoryRepo = inventoryAdapter
		logger.Info("MongoDB adapters initialized")

	default:
		cleanup()
		return nil, nil, fmt.Errorf("unknown ACCOUNT_STORE: %s", cfg.AccountStore)
	}

	// Inference core
	canonicalizer := inference.NewCanonicalizer(deps.AliasStore)
	deps.Classifier = inference.NewClassifier()
	deps.InferenceService = inference.NewService(
		deps.AccountRepo,
		deps.EvidenceRepo,
		canonicalizer,
		inference.ServiceConfig{ClampInitialConfidence: cfg.ClampInitialConfidence},
	)

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "pipeline").Logger()
	deps.Pipeline = inference.NewPipeline(deps.Classifier, deps.InferenceService, deps.InventoryRepo, zlog)

	return deps, cleanup, nil
}

func (d *Dependencies) HealthCheck(ctx context.Context) error {
	if d.SQLDB != nil {
		if err := d.SQLDB.PingContext(ctx); err != nil {
			return err
		}
	}

	if d.MongoDB != nil {
		if err := d.MongoDB.Ping(ctx, nil); err != nil {
			return err
		}
	}

	if d.Redis != nil {
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	return nil
}
