package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/community-soap/user-service/internal/core/domain"
	"github.com/community-soap/user-service/internal/core/port"
	"github.com/community-soap/user-service/internal/infra/config"
	"github.com/community-soap/user-service/internal/infra/logger"
	"github.com/community-soap/user-service/internal/infra/security"
	"github.com/community-soap/user-service/internal/infra/telemetry"
	"github.com/community-soap/user-service/internal/repository"
)

var (
	// ErrEmailDuplicated indicates the email already belongs to an account.
	ErrEmailDuplicated = errors.New("email already registered")
	// ErrVerificationBlocked indicates the email exhausted its attempts and is blocked.
	ErrVerificationBlocked = errors.New("email verification blocked")
	// ErrVerificationCooltime indicates a resend was requested within the cooldown window.
	ErrVerificationCooltime = errors.New("email verification cooltime")
	// ErrVerificationNotRequested indicates no code is pending for the email.
	ErrVerificationNotRequested = errors.New("email verification not requested")
	// ErrVerificationMismatch indicates the submitted code does not match the pending one.
	ErrVerificationMismatch = errors.New("email verification code mismatch")
)

// VerificationService runs the per-email code state machine:
// None -> CodeIssued -> (Verified | Blocked) -> None, with every state bounded
// by a TTL in the store.
type VerificationService struct {
	store   port.VerificationStore
	users   port.UserRepository
	sender  port.EmailSender
	hasher  *security.TokenHasher
	policy  config.EmailSettings
	metrics *telemetry.Metrics
	logger  *zap.Logger
}

// NewVerificationService constructs a VerificationService instance.
func NewVerificationService(
	store port.VerificationStore,
	users port.UserRepository,
	sender port.EmailSender,
	hasher *security.TokenHasher,
	policy config.EmailSettings,
	metrics *telemetry.Metrics,
	lg *zap.Logger,
) *VerificationService {
	if metrics == nil {
		metrics = telemetry.Nop()
	}
	if lg == nil {
		lg = zap.NewNop()
	}

	return &VerificationService{
		store:   store,
		users:   users,
		sender:  sender,
		hasher:  hasher,
		policy:  policy,
		metrics: metrics,
		logger:  lg,
	}
}

// RequestCode issues a 6-digit code for the email and hands it to the
// delivery port. Rejected when the email already has an account, is blocked,
// or is inside the resend cooldown. The response carries the code lifetime,
// never the code.
func (s *VerificationService) RequestCode(ctx context.Context, email string) (*domain.CodeIssued, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email existence: %w", err)
	}
	if exists {
		return nil, ErrEmailDuplicated
	}

	blocked, err := s.store.IsBlocked(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check block: %w", err)
	}
	if blocked {
		s.metrics.VerificationFails.WithLabelValues("blocked").Inc()
		return nil, ErrVerificationBlocked
	}

	cooling, err := s.store.InCooltime(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check cooltime: %w", err)
	}
	if cooling {
		s.metrics.VerificationFails.WithLabelValues("cooltime").Inc()
		return nil, ErrVerificationCooltime
	}

	code, err := security.GenerateVerificationCode()
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveCodeHash(ctx, email, s.hasher.Sum(code), s.policy.CodeTTL); err != nil {
		return nil, fmt.Errorf("store code hash: %w", err)
	}
	if err := s.store.SetCooltime(ctx, email, s.policy.Cooltime); err != nil {
		return nil, fmt.Errorf("set cooltime: %w", err)
	}

	if err := s.sender.SendVerificationCode(ctx, email, code, s.policy.CodeTTL, s.policy.BrandName); err != nil {
		return nil, fmt.Errorf("send verification code: %w", err)
	}

	s.metrics.VerificationSent.Inc()
	s.logger.Info("verification code issued",
		zap.String("email", logger.MaskEmail(email)))

	return &domain.CodeIssued{
		Email:      email,
		ExpireInMs: s.policy.CodeTTL.Milliseconds(),
	}, nil
}

// VerifyCode checks the submitted code against the pending hash. A mismatch
// counts an attempt; reaching the maximum blocks the email and discards the
// code, so a blocked user cannot keep guessing against the same code after
// the block elapses. A match clears the pending state and installs a fresh
// verified marker for the grace window.
func (s *VerificationService) VerifyCode(ctx context.Context, email, submittedCode string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}

	blocked, err := s.store.IsBlocked(ctx, email)
	if err != nil {
		return fmt.Errorf("check block: %w", err)
	}
	if blocked {
		s.metrics.VerificationFails.WithLabelValues("blocked").Inc()
		return ErrVerificationBlocked
	}

	storedHash, err := s.store.GetCodeHash(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVerificationNotRequested
		}
		return fmt.Errorf("lookup code hash: %w", err)
	}

	if storedHash != s.hasher.Sum(submittedCode) {
		attempts, err := s.store.IncrementAttempts(ctx, email, s.policy.CodeTTL)
		if err != nil {
			return fmt.Errorf("increment attempts: %w", err)
		}
		if attempts >= s.policy.MaxAttempts {
			if err := s.store.Block(ctx, email, s.policy.BlockTTL); err != nil {
				return fmt.Errorf("block email: %w", err)
			}
			if err := s.store.DeleteCode(ctx, email); err != nil {
				return fmt.Errorf("discard code: %w", err)
			}
			s.logger.Warn("email verification blocked after repeated mismatches",
				zap.String("email", logger.MaskEmail(email)),
				zap.Int64("attempts", attempts))
		}
		s.metrics.VerificationFails.WithLabelValues("mismatch").Inc()
		return ErrVerificationMismatch
	}

	if err := s.store.DeleteCode(ctx, email); err != nil {
		return fmt.Errorf("delete code: %w", err)
	}
	if err := s.store.ResetAttempts(ctx, email); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	if err := s.store.ClearVerified(ctx, email); err != nil {
		return fmt.Errorf("clear verified marker: %w", err)
	}
	if err := s.store.MarkVerified(ctx, email, s.policy.VerifiedTTL); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}

	return nil
}

// IsVerified reports whether the email holds a live verified marker.
func (s *VerificationService) IsVerified(ctx context.Context, email string) (bool, error) {
	verified, err := s.store.IsVerified(ctx, email)
	if err != nil {
		return false, fmt.Errorf("check verified marker: %w", err)
	}
	return verified, nil
}
