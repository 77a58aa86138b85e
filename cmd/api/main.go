package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/community-soap/user-service/internal/adapter/dev"
	"github.com/community-soap/user-service/internal/infra/app"
	"github.com/community-soap/user-service/internal/infra/config"
	"github.com/community-soap/user-service/internal/infra/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ports := app.Ports{
		Users:     dev.NewUserRepository(),
		Passwords: dev.NewPasswordVerifier(),
		Sender:    dev.NewEmailSender(lg),
	}

	application, err := app.New(ctx, cfg, ports)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		lg.Error("application stopped", zap.Error(err))
		os.Exit(1)
	}
}
