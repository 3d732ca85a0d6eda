package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"

	"feedback-agent/handler"
	"feedback-agent/internal/config"
	"feedback-agent/internal/integrations/dispatch"
	"feedback-agent/internal/repository"
	"feedback-agent/internal/usecase"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadAPI()
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

	publisher, err := dispatch.NewPublisher(awssns.NewFromConfig(awsCfg), cfg.FeedbackTopicARN)
	if err != nil {
		slog.Error("failed to create publisher", "err", err)
		os.Exit(1)
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.RecommendationTable)
	if err != nil {
		slog.Error("failed to create repository", "err", err)
		os.Exit(1)
	}

	submitService, err := usecase.NewSubmitService(publisher, cfg.MaxFeedbackLength)
	if err != nil {
		slog.Error("failed to create submit service", "err", err)
		os.Exit(1)
	}
	queryService, err := usecase.NewQueryService(store)
	if err != nil {
		slog.Error("failed to create query service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewAPIHandler(submitService, queryService, settings)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
