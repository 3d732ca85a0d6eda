package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"feedback-agent/handler"
	"feedback-agent/internal/config"
	"feedback-agent/internal/integrations/dispatch"
	"feedback-agent/internal/integrations/inference"
	"feedback-agent/internal/integrations/paramstore"
	"feedback-agent/internal/repository"
	"feedback-agent/internal/usecase"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadWorker()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	settings, err := config.ForEnvironment(cfg.Environment)
	if err != nil {
		slog.Error("failed to resolve environment settings", "err", err)
		os.Exit(1)
	}
	level := settings.LogLevel
	if cfg.LogLevel != "" {
		level = config.ParseLogLevel(cfg.LogLevel)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		slog.Error("failed to create paramstore client", "err", err)
		os.Exit(1)
	}
	model, err := inference.NewClient(params, cfg.ParamPrefix, cfg.Model, cfg.MaxOutputTokens)
	if err != nil {
		slog.Error("failed to create inference client", "err", err)
		os.Exit(1)
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.RecommendationTable)
	if err != nil {
		slog.Error("failed to create repository", "err", err)
		os.Exit(1)
	}

	enrichService, err := usecase.NewEnrichService(store, model)
	if err != nil {
		slog.Error("failed to create enrich service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewWorkerHandler(enrichService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	policy := dispatch.DefaultPolicy()
	slog.Info("worker starting",
		"model", cfg.Model,
		"maxBatchSize", policy.MaxBatchSize,
		"maxReceives", policy.MaxReceives,
		"visibilityTimeout", policy.VisibilityTimeout.String(),
	)

	lambda.Start(h.Handle)
}
