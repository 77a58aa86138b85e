package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/community-soap/user-service/internal/core/domain"
	"github.com/community-soap/user-service/internal/core/port"
	"github.com/community-soap/user-service/internal/infra/idgen"
	"github.com/community-soap/user-service/internal/infra/logger"
	"github.com/community-soap/user-service/internal/repository"
)

// ErrEmailNotVerified indicates signup was attempted without a live verified marker.
var ErrEmailNotVerified = errors.New("email not verified")

// UserService covers account lifecycle around the session core: signup after
// email verification, profile lookup, and account deletion with full session
// revocation.
type UserService struct {
	users        port.UserRepository
	passwords    port.PasswordVerifier
	verification *VerificationService
	sessions     *SessionService
	ids          *idgen.Snowflake
	logger       *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(
	users port.UserRepository,
	passwords port.PasswordVerifier,
	verification *VerificationService,
	sessions *SessionService,
	ids *idgen.Snowflake,
	lg *zap.Logger,
) *UserService {
	if lg == nil {
		lg = zap.NewNop()
	}

	return &UserService{
		users:        users,
		passwords:    passwords,
		verification: verification,
		sessions:     sessions,
		ids:          ids,
		logger:       lg,
	}
}

// SignUp registers a new account. The email must be unclaimed and carry a
// live verified marker from a completed code verification.
func (s *UserService) SignUp(ctx context.Context, email, password, nickname string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email existence: %w", err)
	}
	if exists {
		return nil, ErrEmailDuplicated
	}

	verified, err := s.verification.IsVerified(ctx, email)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, ErrEmailNotVerified
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           s.ids.NextID(),
		Email:        email,
		PasswordHash: hash,
		Nickname:     nickname,
		Role:         domain.RoleUser,
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.logger.Info("account created",
		zap.Int64("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)))

	sanitized := user
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

// Me returns the caller's profile without the password hash.
func (s *UserService) Me(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.findByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sanitized := *user
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

// DeleteMe soft-deletes the caller's account: the supplied access token is
// blacklisted best-effort, every refresh session is revoked, and the record
// is marked deleted.
func (s *UserService) DeleteMe(ctx context.Context, accessHeader string, userID int64) error {
	user, err := s.findByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.sessions.BlacklistAccessIfOwner(ctx, accessHeader, user.ID); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllSessions(ctx, user.ID); err != nil {
		return err
	}

	return s.softDelete(ctx, user)
}

// DeleteUserAsAdmin force-deactivates an account. The user's access token is
// unknown here, so only the refresh sessions are revoked; outstanding access
// tokens die on their own short TTL.
func (s *UserService) DeleteUserAsAdmin(ctx context.Context, targetUserID int64) error {
	user, err := s.findByID(ctx, targetUserID)
	if err != nil {
		return err
	}

	if err := s.sessions.RevokeAllSessions(ctx, user.ID); err != nil {
		return err
	}

	return s.softDelete(ctx, user)
}

func (s *UserService) findByID(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.IsDeleted() {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) softDelete(ctx context.Context, user *domain.User) error {
	deleted := *user
	if !deleted.SoftDelete(nowUTC()) {
		return nil
	}
	if err := s.users.Save(ctx, deleted); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	s.logger.Info("account deactivated", zap.Int64("user_id", user.ID))
	return nil
}
