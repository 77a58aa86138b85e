package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/community-soap/user-service/internal/core/port"
	"github.com/community-soap/user-service/internal/infra/config"
	"github.com/community-soap/user-service/internal/infra/idgen"
	"github.com/community-soap/user-service/internal/infra/logger"
	redisinfra "github.com/community-soap/user-service/internal/infra/redis"
	"github.com/community-soap/user-service/internal/infra/security"
	"github.com/community-soap/user-service/internal/infra/telemetry"
	redisrepo "github.com/community-soap/user-service/internal/repository/redis"
	"github.com/community-soap/user-service/internal/usecase"
)

// Ports bundles the external collaborators the host must supply: account
// storage, password hashing, and code delivery live outside this service.
type Ports struct {
	Users     port.UserRepository
	Passwords port.PasswordVerifier
	Sender    port.EmailSender
}

// Application wires configuration, infrastructure, and the auth services for
// an embedding host.
type Application struct {
	cfg          *config.AppConfig
	logger       *zap.Logger
	redis        *redisinfra.Client
	Sessions     *usecase.SessionService
	Verification *usecase.VerificationService
	Users        *usecase.UserService
}

// New builds the application graph.
func New(ctx context.Context, cfg *config.AppConfig, ports Ports) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	provider, err := security.NewTokenProvider(cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("init token provider: %w", err)
	}
	hasher, err := security.NewTokenHasher(cfg.JWT.TokenPepper)
	if err != nil {
		return nil, fmt.Errorf("init token hasher: %w", err)
	}
	ids, err := idgen.NewSnowflake(0)
	if err != nil {
		return nil, fmt.Errorf("init id generator: %w", err)
	}

	metrics, err := telemetry.NewMetrics(telemetry.MetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	tokens := redisrepo.NewTokenRepository(redisClient.Client(), cfg.Redis.KeyPrefix)
	verificationStore := redisrepo.NewEmailVerificationRepository(redisClient.Client(), "EV")

	sessions := usecase.NewSessionService(ports.Users, ports.Passwords, tokens, provider, hasher, metrics, log)
	verification := usecase.NewVerificationService(verificationStore, ports.Users, ports.Sender, hasher, cfg.Email, metrics, log)
	users := usecase.NewUserService(ports.Users, ports.Passwords, verification, sessions, ids, log)

	return &Application{
		cfg:          cfg,
		logger:       log,
		redis:        redisClient,
		Sessions:     sessions,
		Verification: verification,
		Users:        users,
	}, nil
}

// Run blocks until the context is cancelled, keeping a periodic store health
// check alive, then releases infrastructure.
func (a *Application) Run(ctx context.Context) error {
	a.logger.Info("user service started",
		zap.String("env", a.cfg.App.Env),
		zap.String("key_prefix", a.cfg.Redis.KeyPrefix))

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down")
			return a.redis.Close()
		case <-ticker.C:
			if err := a.redis.HealthCheck(ctx); err != nil {
				a.logger.Warn("redis health check failed", zap.Error(err))
			}
		}
	}
}
