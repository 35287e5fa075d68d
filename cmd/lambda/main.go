package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"tourism-chat/internal/app"
	"tourism-chat/internal/config"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := app.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	level, _ := cfg.LogLevel()

	// Lambda ships stderr to CloudWatch; a log file would not survive the container.
	logger, _ := config.SetupLogger("", level)
	slog.SetDefault(logger)

	// ---- Wiring ----
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire service", "err", err)
		os.Exit(1)
	}

	lambda.Start(a.Handler.HandleLambda)
}
