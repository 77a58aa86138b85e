package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/community-soap/user-service/internal/core/domain"
	"github.com/community-soap/user-service/internal/core/port"
	"github.com/community-soap/user-service/internal/infra/security"
	"github.com/community-soap/user-service/internal/infra/telemetry"
	"github.com/community-soap/user-service/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailNotFound indicates no account exists for the email.
	ErrEmailNotFound = errors.New("email not found")
	// ErrUserNotFound indicates no account exists for the user id.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidRefreshToken indicates the refresh token is unknown, expired,
	// blacklisted, or already rotated.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// SessionService orchestrates the refresh-token lineage: sign-in issuance,
// rotation-on-use refresh, single-session logout, and bulk revocation.
type SessionService struct {
	users     port.UserRepository
	passwords port.PasswordVerifier
	tokens    port.TokenStore
	provider  *security.TokenProvider
	hasher    *security.TokenHasher
	metrics   *telemetry.Metrics
	logger    *zap.Logger
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(
	users port.UserRepository,
	passwords port.PasswordVerifier,
	tokens port.TokenStore,
	provider *security.TokenProvider,
	hasher *security.TokenHasher,
	metrics *telemetry.Metrics,
	logger *zap.Logger,
) *SessionService {
	if metrics == nil {
		metrics = telemetry.Nop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		provider:  provider,
		hasher:    hasher,
		metrics:   metrics,
		logger:    logger,
	}
}

// SignIn verifies credentials and issues a fresh access/refresh pair.
// Existing sessions are untouched: concurrent sessions per user are allowed.
func (s *SessionService) SignIn(ctx context.Context, email, password string) (*domain.SessionTokens, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.IsDeleted() {
		return nil, ErrEmailNotFound
	}

	ok, err := s.passwords.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return s.issueAndPersist(ctx, user)
}

// Refresh rotates a refresh token: the presented token is validated against
// its stored hash, revoked, and replaced with a brand-new pair. A refresh
// token is single-use; reuse after rotation fails on the blacklist check.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*domain.SessionTokens, error) {
	refreshToken = security.StripBearer(refreshToken)
	if refreshToken == "" {
		return nil, security.ErrTokenInvalid
	}

	claims, err := s.provider.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	jti := claims.JTI()

	blacklisted, err := s.tokens.IsRefreshJTIBlacklisted(ctx, jti)
	if err != nil {
		return nil, fmt.Errorf("check refresh blacklist: %w", err)
	}
	if blacklisted {
		return nil, ErrInvalidRefreshToken
	}

	storedHash, err := s.tokens.GetRefreshTokenHash(ctx, jti)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if storedHash != s.hasher.Sum(refreshToken) {
		s.metrics.TamperDetected.Inc()
		s.logger.Warn("refresh token hash mismatch, possible theft or replay",
			zap.String("jti", jti))
		return nil, security.ErrTokenTampered
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.IsDeleted() {
		return nil, ErrInvalidRefreshToken
	}

	// Detection passed; only now mutate. Blacklist before delete so a raced
	// second presentation of this jti is rejected either way.
	if ttl := s.provider.RemainingTTL(claims); ttl > 0 {
		if err := s.tokens.BlacklistRefreshJTI(ctx, jti, ttl); err != nil {
			return nil, fmt.Errorf("blacklist refresh token: %w", err)
		}
	}
	if err := s.tokens.DeleteRefreshToken(ctx, jti); err != nil {
		return nil, fmt.Errorf("delete refresh token: %w", err)
	}
	if err := s.tokens.RemoveUserRefreshIndex(ctx, userID, jti); err != nil {
		return nil, fmt.Errorf("remove refresh index: %w", err)
	}

	pair, err := s.issueAndPersist(ctx, user)
	if err != nil {
		return nil, err
	}

	s.metrics.TokensRotated.Inc()
	return pair, nil
}

// Logout revokes the single refresh session named by the presented token.
// The token must belong to the caller and be present in the caller's session
// index. A supplied access token is blacklisted best-effort: parse failures
// and ownership mismatches are ignored, since revoking the refresh session is
// the controlling objective. Logout is idempotent: a session that is already
// gone counts as success.
func (s *SessionService) Logout(ctx context.Context, accessHeader, refreshToken string, callerUserID int64) error {
	refreshToken = security.StripBearer(refreshToken)
	if refreshToken == "" {
		return security.ErrTokenInvalid
	}

	claims, err := s.provider.ParseRefresh(refreshToken)
	if err != nil {
		return err
	}
	userID, err := claims.UserID()
	if err != nil {
		return err
	}
	if userID != callerUserID {
		return security.ErrTokenInvalid
	}

	jti := claims.JTI()
	member, err := s.tokens.HasUserRefreshJTI(ctx, callerUserID, jti)
	if err != nil {
		return fmt.Errorf("check refresh index: %w", err)
	}
	if !member {
		return security.ErrTokenInvalid
	}

	if err := s.BlacklistAccessIfOwner(ctx, accessHeader, callerUserID); err != nil {
		return err
	}

	if err := s.revokeRefreshByJTI(ctx, callerUserID, jti, s.hasher.Sum(refreshToken), s.provider.RemainingTTL(claims)); err != nil {
		return err
	}

	s.metrics.SessionsRevoked.WithLabelValues("single").Inc()
	return nil
}

// RevokeAllSessions drains the user's session index atomically and revokes
// every refresh session it held: batch TTL lookup, batch blacklist of the
// still-live entries, batch delete of the hash records. The post-drain batch
// steps are idempotent and retried on transient store failures.
func (s *SessionService) RevokeAllSessions(ctx context.Context, userID int64) error {
	jtis, err := s.tokens.PopAllUserRefreshJTIs(ctx, userID)
	if err != nil {
		return fmt.Errorf("pop refresh index: %w", err)
	}
	if len(jtis) == 0 {
		return nil
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(100*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		jtiToTTL, err := s.tokens.RemainingRefreshTTLs(ctx, jtis)
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := s.tokens.BlacklistRefreshJTIs(ctx, jtiToTTL); err != nil {
			return retry.RetryableError(err)
		}
		if err := s.tokens.DeleteRefreshTokens(ctx, jtis); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("revoke all sessions: %w", err)
	}

	s.metrics.SessionsRevoked.WithLabelValues("all").Inc()
	return nil
}

// BlacklistAccessIfOwner blacklists the access token carried by the
// Authorization header when it parses and belongs to targetUserID. Expired or
// malformed access tokens are ignored: an unusable token needs no marker.
func (s *SessionService) BlacklistAccessIfOwner(ctx context.Context, accessHeader string, targetUserID int64) error {
	if strings.TrimSpace(accessHeader) == "" {
		return nil
	}

	claims, err := s.provider.ParseAccess(accessHeader)
	if err != nil {
		return nil
	}
	uid, err := claims.UserID()
	if err != nil || uid != targetUserID {
		return nil
	}

	if ttl := s.provider.RemainingTTL(claims); ttl > 0 {
		if err := s.tokens.BlacklistAccessJTI(ctx, claims.JTI(), ttl); err != nil {
			return fmt.Errorf("blacklist access token: %w", err)
		}
	}
	return nil
}

// IsAccessTokenActive reports whether the access token parses and its jti is
// not blacklisted, for callers gating API access.
func (s *SessionService) IsAccessTokenActive(ctx context.Context, accessToken string) (*security.TokenClaims, error) {
	claims, err := s.provider.ParseAccess(accessToken)
	if err != nil {
		return nil, err
	}

	blacklisted, err := s.tokens.IsAccessJTIBlacklisted(ctx, claims.JTI())
	if err != nil {
		return nil, fmt.Errorf("check access blacklist: %w", err)
	}
	if blacklisted {
		return nil, security.ErrTokenInvalid
	}

	return claims, nil
}

// revokeRefreshByJTI revokes a single refresh session. A record that is
// already gone is treated as success; a stored hash that disagrees with the
// presented token is rejected as tampered before anything mutates.
func (s *SessionService) revokeRefreshByJTI(ctx context.Context, userID int64, jti, inputHash string, remaining time.Duration) error {
	storedHash, err := s.tokens.GetRefreshTokenHash(ctx, jti)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lookup refresh token: %w", err)
	}
	if err == nil && storedHash != inputHash {
		s.metrics.TamperDetected.Inc()
		s.logger.Warn("refresh token hash mismatch during revoke",
			zap.String("jti", jti))
		return security.ErrTokenTampered
	}

	if remaining > 0 {
		if err := s.tokens.BlacklistRefreshJTI(ctx, jti, remaining); err != nil {
			return fmt.Errorf("blacklist refresh token: %w", err)
		}
	}
	if err := s.tokens.DeleteRefreshToken(ctx, jti); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	if err := s.tokens.RemoveUserRefreshIndex(ctx, userID, jti); err != nil {
		return fmt.Errorf("remove refresh index: %w", err)
	}
	return nil
}

func (s *SessionService) issueAndPersist(ctx context.Context, user *domain.User) (*domain.SessionTokens, error) {
	accessToken, err := s.provider.GenerateAccessToken(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.provider.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	accessClaims, err := s.provider.ParseAccess(accessToken)
	if err != nil {
		return nil, fmt.Errorf("parse issued access token: %w", err)
	}
	refreshClaims, err := s.provider.ParseRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("parse issued refresh token: %w", err)
	}

	refreshTTL := s.provider.RemainingTTL(refreshClaims)
	if err := s.tokens.SaveRefreshToken(ctx, refreshClaims.JTI(), user.ID, s.hasher.Sum(refreshToken), refreshTTL); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	s.metrics.TokensIssued.WithLabelValues("access").Inc()
	s.metrics.TokensIssued.WithLabelValues("refresh").Inc()

	return &domain.SessionTokens{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenType:    domain.TokenType,
		AccessToken:  accessToken,
		AccessTTLMs:  s.provider.RemainingTTL(accessClaims).Milliseconds(),
		RefreshToken: refreshToken,
		RefreshTTLMs: refreshTTL.Milliseconds(),
	}, nil
}
