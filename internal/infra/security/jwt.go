package security

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/community-soap/user-service/internal/infra/config"
)

const (
	claimUserRole    = "USER_ROLE"
	bearerPrefix     = "Bearer "
	defaultClockSkew = 120 * time.Second
)

var (
	// ErrTokenExpired indicates the token is past its expiry beyond the allowed skew.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed indicates the token is not a parseable compact JWT.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenTampered indicates the signature did not verify against the expected key.
	ErrTokenTampered = errors.New("token signature invalid")
	// ErrTokenInvalid covers every other validation failure, including a missing token.
	ErrTokenInvalid = errors.New("invalid token")
)

// TokenClaims carries the registered claims plus the role embedded into
// access tokens. Refresh tokens leave Role empty.
type TokenClaims struct {
	Role string `json:"USER_ROLE,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject of the token.
func (c *TokenClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Subject), 10, 64)
	if err != nil {
		return 0, ErrTokenMalformed
	}
	return id, nil
}

// JTI returns the unique token identifier.
func (c *TokenClaims) JTI() string {
	return c.RegisteredClaims.ID
}

// TokenProvider signs and verifies access and refresh tokens with two
// independent HMAC keys.
type TokenProvider struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	clockSkew  time.Duration
	now        func() time.Time
}

// NewTokenProvider constructs a TokenProvider from base64-encoded secrets.
func NewTokenProvider(cfg config.JWTSettings) (*TokenProvider, error) {
	accessKey, err := base64.StdEncoding.DecodeString(cfg.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("decode access secret: %w", err)
	}
	refreshKey, err := base64.StdEncoding.DecodeString(cfg.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("decode refresh secret: %w", err)
	}
	if len(accessKey) == 0 || len(refreshKey) == 0 {
		return nil, fmt.Errorf("token secrets must not be empty")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("token ttls must be positive")
	}

	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = defaultClockSkew
	}

	provider := &TokenProvider{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		clockSkew:  skew,
	}
	provider.now = func() time.Time { return time.Now().UTC() }
	return provider, nil
}

// WithClock overrides the provider clock for deterministic tests.
func (p *TokenProvider) WithClock(clock func() time.Time) {
	if clock != nil {
		p.now = clock
	}
}

// AccessTokenTTL returns the configured access token lifetime.
func (p *TokenProvider) AccessTokenTTL() time.Duration { return p.accessTTL }

// RefreshTokenTTL returns the configured refresh token lifetime.
func (p *TokenProvider) RefreshTokenTTL() time.Duration { return p.refreshTTL }

// GenerateAccessToken issues a signed access token embedding the user role.
func (p *TokenProvider) GenerateAccessToken(userID int64, role string) (string, error) {
	now := p.now()
	claims := TokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.accessTTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.accessKey)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// GenerateRefreshToken issues a signed refresh token without a role claim.
func (p *TokenProvider) GenerateRefreshToken(userID int64) (string, error) {
	now := p.now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.refreshTTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.refreshKey)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// ParseAccess verifies an access token (optionally carrying a Bearer prefix)
// and returns its claims.
func (p *TokenProvider) ParseAccess(tokenOrBearer string) (*TokenClaims, error) {
	return p.parse(tokenOrBearer, p.accessKey)
}

// ParseRefresh verifies a refresh token and returns its claims.
func (p *TokenProvider) ParseRefresh(tokenOrBearer string) (*TokenClaims, error) {
	return p.parse(tokenOrBearer, p.refreshKey)
}

// RemainingTTL returns the time left until the claims expire, floored at zero.
func (p *TokenProvider) RemainingTTL(claims *TokenClaims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	remaining := claims.ExpiresAt.Time.Sub(p.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (p *TokenProvider) parse(tokenOrBearer string, key []byte) (*TokenClaims, error) {
	token := StripBearer(tokenOrBearer)
	if token == "" {
		return nil, ErrTokenInvalid
	}

	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(p.clockSkew),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenTampered
		default:
			return nil, ErrTokenInvalid
		}
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.JTI() == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// StripBearer removes a case-insensitive "Bearer " prefix and surrounding
// whitespace. An empty result means no token was supplied.
func StripBearer(tokenOrBearer string) string {
	t := strings.TrimSpace(tokenOrBearer)
	if len(t) >= len(bearerPrefix) && strings.EqualFold(t[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(t[len(bearerPrefix):])
	}
	return t
}
