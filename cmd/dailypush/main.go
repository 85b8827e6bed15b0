package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"

	"lineops/handler"
	"lineops/internal/config"
	"lineops/internal/domain"
	"lineops/internal/integrations/line"
	"lineops/internal/integrations/paramstore"
	"lineops/internal/repository"
	"lineops/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Configuration (read only here) ----
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Error("failed to load .env", "err", err)
		os.Exit(1)
	}
	cfg, err := config.LoadDispatch(nil)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	loc, err := cfg.Location()
	if err != nil {
		fail("invalid timezone", err)
	}

	// ---- AWS SDK config (only when SSM or DynamoDB are used) ----
	var awsCfg *aws.Config
	loadAWS := func() aws.Config {
		if awsCfg == nil {
			c, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				fail("failed to load AWS config", err)
			}
			awsCfg = &c
		}
		return *awsCfg
	}

	// ---- Clients ----
	var tokens usecase.TokenSource
	if cfg.Token == "" && cfg.TokenParam != "" {
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(loadAWS()))
		if err != nil {
			fail("failed to create SSM client", err)
		}
		tokens = ssmClient
	}
	token, err := usecase.ResolveToken(ctx, cfg.Token, cfg.TokenParam, tokens)
	if err != nil {
		fail("channel access token unavailable", err)
	}

	lineClient, err := line.NewClient(token,
		line.WithBaseURL(cfg.BaseURL),
		line.WithDataBaseURL(cfg.DataBaseURL),
		line.WithLogger(logger),
	)
	if err != nil {
		fail("failed to create LINE client", err)
	}

	var ledger usecase.DispatchLedger
	if cfg.DispatchTable != "" {
		l, err := repository.New(awsdynamodb.NewFromConfig(loadAWS()), cfg.DispatchTable)
		if err != nil {
			fail("failed to create dispatch ledger", err)
		}
		ledger = l
	}

	// ---- Handler ----
	svc, err := usecase.NewDispatchService(lineClient, ledger, usecase.NewPacer(cfg.MulticastRate), logger)
	if err != nil {
		fail("failed to create dispatch service", err)
	}
	h, err := handler.NewHandler(svc, usecase.DispatchInput{
		Mode:     domain.SendMode(cfg.Mode),
		Text:     cfg.Text,
		Message:  cfg.Message,
		Location: loc,
		Thresholds: usecase.Thresholds{
			StopPercent: cfg.StopPercent,
			MinRemain:   cfg.MinRemain,
		},
		Recipients:       cfg.UserIDs,
		EstimateAudience: cfg.EstimateAudience,
		DryRun:           cfg.DryRun,
	}, logger)
	if err != nil {
		fail("failed to create handler", err)
	}

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		lambda.Start(h.Handle)
		return
	}
	// The handler has already logged the failure.
	if _, err := h.Handle(ctx, events.CloudWatchEvent{ID: "cli"}); err != nil {
		stop()
		os.Exit(1)
	}
}

func fail(msg string, err error) {
	attrs := []any{"outcome", "ERROR", "err", err}
	if code := usecase.CodeOf(err); code != "" {
		attrs = append(attrs, "code", code)
	}
	slog.Error(msg, attrs...)
	os.Exit(1)
}
