package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"line-chat-agent/handler"
	"line-chat-agent/internal/config"
	"line-chat-agent/internal/integrations/line"
	"line-chat-agent/internal/integrations/openai"
	"line-chat-agent/internal/integrations/paramstore"
	"line-chat-agent/internal/repository"
	"line-chat-agent/internal/usecase"
)

func main() {
	ctx := context.Background()
	log := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		log.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}

	// Channel credentials are fetched once at startup; the OpenAI key is
	// fetched lazily inside its client.
	channelSecret, err := ssmClient.GetParameter(ctx, cfg.ParamPrefix+"/line-channel-secret")
	if err != nil {
		log.Error("failed to load channel secret", "err", err)
		os.Exit(1)
	}
	channelToken, err := ssmClient.GetParameter(ctx, cfg.ParamPrefix+"/line-channel-token")
	if err != nil {
		log.Error("failed to load channel access token", "err", err)
		os.Exit(1)
	}

	lineClient, err := line.NewClient(channelToken)
	if err != nil {
		log.Error("failed to create LINE client", "err", err)
		os.Exit(1)
	}

	openaiClient, err := openai.NewClient(ssmClient, cfg.ParamPrefix)
	if err != nil {
		log.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}

	repo, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.ChatLogTable, cfg.UserInfoTable)
	if err != nil {
		log.Error("failed to create repository", "err", err)
		os.Exit(1)
	}
	store := repository.NewBestEffort(repo, log)

	// ---- Dispatcher + handler ----
	dispatcher, err := usecase.NewDispatchService(lineClient, openaiClient, store, ssmClient, cfg.ParamPrefix, cfg.OpenAIModel, cfg.HistoryLimit, log)
	if err != nil {
		log.Error("failed to create dispatch service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(dispatcher, channelSecret, log)
	if err != nil {
		log.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
