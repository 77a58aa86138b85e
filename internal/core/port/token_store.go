package port

import (
	"context"
	"time"
)

// TokenStore manages refresh-token records, the per-user session index, and
// the access/refresh JTI blacklists over a TTL-aware key-value store.
//
// Lookups signal a missing record with repository.ErrNotFound; any other error
// means the store itself failed and the caller must not treat the record as
// absent.
type TokenStore interface {
	// SaveRefreshToken writes the refresh token hash under its JTI with the
	// supplied TTL and adds the JTI to the owner's session index. The index
	// add is idempotent.
	SaveRefreshToken(ctx context.Context, jti string, userID int64, tokenHash string, ttl time.Duration) error
	GetRefreshTokenHash(ctx context.Context, jti string) (string, error)
	// DeleteRefreshToken removes the hash record only. Index membership is
	// removed separately once the owning user is known.
	DeleteRefreshToken(ctx context.Context, jti string) error

	AddUserRefreshIndex(ctx context.Context, userID int64, jti string) error
	RemoveUserRefreshIndex(ctx context.Context, userID int64, jti string) error
	HasUserRefreshJTI(ctx context.Context, userID int64, jti string) (bool, error)
	GetUserRefreshJTIs(ctx context.Context, userID int64) ([]string, error)
	// PopAllUserRefreshJTIs atomically returns every JTI in the user's index
	// and clears the index in the same step.
	PopAllUserRefreshJTIs(ctx context.Context, userID int64) ([]string, error)

	// BlacklistAccessJTI and BlacklistRefreshJTI are set-if-absent: a marker
	// already present keeps its original TTL.
	BlacklistAccessJTI(ctx context.Context, jti string, ttl time.Duration) error
	BlacklistRefreshJTI(ctx context.Context, jti string, ttl time.Duration) error
	IsAccessJTIBlacklisted(ctx context.Context, jti string) (bool, error)
	IsRefreshJTIBlacklisted(ctx context.Context, jti string) (bool, error)

	RemainingRefreshTTL(ctx context.Context, jti string) (time.Duration, error)

	// Batch variants execute as a single pipelined round trip.
	RemainingRefreshTTLs(ctx context.Context, jtis []string) (map[string]time.Duration, error)
	DeleteRefreshTokens(ctx context.Context, jtis []string) error
	BlacklistRefreshJTIs(ctx context.Context, jtiToTTL map[string]time.Duration) error
}
