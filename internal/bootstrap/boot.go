// Package bootstrap provides shared cold-start initialization.
//
// Every entry point needs some subset of: AWS config, S3, SSM secret
// fetches, Postgres, Redis, and the wired service graph. This package
// extracts the common init patterns so each main is a short composition of
// helpers.
package bootstrap

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/sourcedapp/sourced-backend/internal/api"
	"github.com/sourcedapp/sourced-backend/internal/auth"
	"github.com/sourcedapp/sourced-backend/internal/catalog"
	"github.com/sourcedapp/sourced-backend/internal/feed"
	"github.com/sourcedapp/sourced-backend/internal/logging"
	"github.com/sourcedapp/sourced-backend/internal/moderation"
	"github.com/sourcedapp/sourced-backend/internal/pipeline"
	"github.com/sourcedapp/sourced-backend/internal/relay"
	"github.com/sourcedapp/sourced-backend/internal/search"
	"github.com/sourcedapp/sourced-backend/internal/store"
)

// AWSClients holds the core AWS SDK clients shared across entry points.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and returns it with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitObjectStore creates the S3-backed asset store. Fatals if the bucket
// env var is empty; the public base URL falls back to the bucket website
// endpoint layout when unset.
func InitObjectStore(cfg aws.Config) *relay.S3Store {
	bucket := os.Getenv("SOURCED_MEDIA_BUCKET")
	if bucket == "" {
		log.Fatal().Str("envVar", "SOURCED_MEDIA_BUCKET").Msg("Bucket environment variable is required")
	}
	baseURL := logging.EnvOrDefault("SOURCED_MEDIA_BASE_URL", "https://"+bucket+".s3.amazonaws.com")
	return relay.NewS3Store(s3.NewFromConfig(cfg), bucket, baseURL)
}

// loadSecret resolves a secret from env, falling back to SSM Parameter
// Store. Returns "" when neither source has it.
func loadSecret(ssmClient *ssm.Client, envVar, paramEnvVar, defaultParam string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	if ssmClient == nil {
		return ""
	}
	param := logging.EnvOrDefault(paramEnvVar, defaultParam)
	start := time.Now()
	result, err := ssmClient.GetParameter(context.Background(), &ssm.GetParameterInput{
		Name:           &param,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		log.Warn().Err(err).Str("param", param).Msg("Secret not found in SSM")
		return ""
	}
	log.Debug().Str("param", param).Dur("elapsed", time.Since(start)).Msg("Secret loaded from SSM")
	return *result.Parameter.Value
}

// LoadOpenAIKey resolves the OpenAI API key. Fatals if missing: moderation
// fails closed without a classifier, so the service is useless without it.
func LoadOpenAIKey(ssmClient *ssm.Client) string {
	key := loadSecret(ssmClient, "OPENAI_API_KEY", "SSM_OPENAI_KEY_PARAM", "/sourced/prod/openai-api-key")
	if key == "" {
		log.Fatal().Msg("OpenAI API key is required")
	}
	return key
}

// LoadSerpAPIKey resolves the SerpAPI key. Non-fatal: search is disabled
// without it.
func LoadSerpAPIKey(ssmClient *ssm.Client) string {
	key := loadSecret(ssmClient, "SERPAPI_API_KEY", "SSM_SERPAPI_KEY_PARAM", "/sourced/prod/serpapi-api-key")
	if key == "" {
		log.Warn().Msg("SerpAPI key not configured — visual search disabled")
	}
	return key
}

// LoadJWTSecret resolves the hosted-auth JWT secret. Non-fatal: all
// callers are anonymous without it.
func LoadJWTSecret(ssmClient *ssm.Client) string {
	secret := loadSecret(ssmClient, "SUPABASE_JWT_SECRET", "SSM_JWT_SECRET_PARAM", "/sourced/prod/jwt-secret")
	if secret == "" {
		log.Warn().Msg("JWT secret not configured — all callers treated as anonymous")
	}
	return secret
}

// InitPostgres connects to Postgres from DATABASE_URL. Returns nil (with a
// warning) when not configured; catalog and feed routes then respond 503.
func InitPostgres(ctx context.Context) *pgxpool.Pool {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		log.Warn().Msg("DATABASE_URL not set — catalogs and feed disabled")
		return nil
	}
	pool, err := store.NewPool(ctx, url)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	return pool
}

// InitRedis connects to Redis from REDIS_ADDR. Returns nil when not
// configured; moderation verdicts are then not cached.
func InitRedis() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Warn().Msg("REDIS_ADDR not set — moderation verdict cache disabled")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
}

// BuildServer wires the full service graph behind the HTTP surface.
func BuildServer(ctx context.Context, clients AWSClients) *api.Server {
	openaiKey := LoadOpenAIKey(clients.SSM)
	openaiClient := openai.NewClient(openaiKey)

	var image moderation.ImageClassifier = moderation.NewOpenAIImageClassifier(openaiKey)
	if rdb := InitRedis(); rdb != nil {
		image = moderation.NewCachedImageClassifier(image, rdb, moderation.DefaultVerdictTTL)
	}
	gate := moderation.NewGate(moderation.NewOpenAITextClassifier(openaiClient), image)

	r := relay.NewRelay(InitObjectStore(clients.Config))

	var searcher search.Searcher
	if serpKey := LoadSerpAPIKey(clients.SSM); serpKey != "" {
		searcher = search.NewEngine(
			search.NewQueryGenerator(openaiClient, ""),
			search.NewSerpAPIProvider(serpKey),
			0,
		)
	}

	srv := &api.Server{
		Pipeline:           pipeline.New(gate, r, searcher),
		Gate:               gate,
		Auth:               auth.NewVerifier(LoadJWTSecret(clients.SSM)),
		OriginVerifySecret: os.Getenv("ORIGIN_VERIFY_SECRET"),
	}

	if pool := InitPostgres(ctx); pool != nil {
		st := store.New(pool)
		srv.Catalog = catalog.NewService(st, gate, catalog.NewCategorizer(openaiClient, ""))
		srv.Feed = feed.NewService(st)
		srv.Profiles = st
	}

	return srv
}
