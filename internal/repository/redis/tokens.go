package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/community-soap/user-service/internal/core/port"
	"github.com/community-soap/user-service/internal/repository"
)

const defaultTokenPrefix = "user-service"

// popAllScript drains a session index set and deletes the key in one atomic
// server-side step, so a concurrent SADD either lands before the drain (and is
// returned) or after it (and survives).
var popAllScript = red.NewScript(
	"local k=KEYS[1]; local m=redis.call('SMEMBERS',k); redis.call('DEL',k); return m;",
)

// TokenRepository persists refresh-token hashes, the per-user session index,
// and the access/refresh JTI blacklists in Redis.
//
// Key layout:
//
//	<prefix>:RT:<jti>        refresh token hash, TTL = remaining refresh lifetime
//	<prefix>:USER:<id>:RT    set of live refresh JTIs, no TTL
//	<prefix>:BL:A:<jti>      access blacklist marker, SET NX PX
//	<prefix>:BL:R:<jti>      refresh blacklist marker, SET NX PX
type TokenRepository struct {
	client *red.Client
	prefix string
}

// NewTokenRepository wires a Redis client into a token repository.
func NewTokenRepository(client *red.Client, keyPrefix string) *TokenRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultTokenPrefix
	}

	return &TokenRepository{client: client, prefix: prefix}
}

func (r *TokenRepository) refreshKey(jti string) string {
	return fmt.Sprintf("%s:RT:%s", r.prefix, jti)
}

func (r *TokenRepository) indexKey(userID int64) string {
	return fmt.Sprintf("%s:USER:%d:RT", r.prefix, userID)
}

func (r *TokenRepository) accessBlacklistKey(jti string) string {
	return fmt.Sprintf("%s:BL:A:%s", r.prefix, jti)
}

func (r *TokenRepository) refreshBlacklistKey(jti string) string {
	return fmt.Sprintf("%s:BL:R:%s", r.prefix, jti)
}

// SaveRefreshToken stores the token hash with its TTL and adds the JTI to the
// owner's session index in a single transactional pipeline.
func (r *TokenRepository) SaveRefreshToken(ctx context.Context, jti string, userID int64, tokenHash string, ttl time.Duration) error {
	switch {
	case strings.TrimSpace(jti) == "":
		return errors.New("jti is required")
	case strings.TrimSpace(tokenHash) == "":
		return errors.New("token hash is required")
	case ttl <= 0:
		return errors.New("ttl must be positive")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.refreshKey(jti), tokenHash, ttl)
	pipe.SAdd(ctx, r.indexKey(userID), jti)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save refresh token: %w", err)
	}

	return nil
}

// GetRefreshTokenHash returns the stored hash for a JTI.
// A missing key surfaces as repository.ErrNotFound.
func (r *TokenRepository) GetRefreshTokenHash(ctx context.Context, jti string) (string, error) {
	value, err := r.client.Get(ctx, r.refreshKey(jti)).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("redis get refresh token: %w", err)
	}

	return value, nil
}

// DeleteRefreshToken removes the hash record. Deleting an absent key is a no-op.
func (r *TokenRepository) DeleteRefreshToken(ctx context.Context, jti string) error {
	if err := r.client.Del(ctx, r.refreshKey(jti)).Err(); err != nil {
		return fmt.Errorf("redis delete refresh token: %w", err)
	}
	return nil
}

// AddUserRefreshIndex adds the JTI to the user's session index.
func (r *TokenRepository) AddUserRefreshIndex(ctx context.Context, userID int64, jti string) error {
	if err := r.client.SAdd(ctx, r.indexKey(userID), jti).Err(); err != nil {
		return fmt.Errorf("redis add refresh index: %w", err)
	}
	return nil
}

// RemoveUserRefreshIndex removes the JTI from the user's session index.
func (r *TokenRepository) RemoveUserRefreshIndex(ctx context.Context, userID int64, jti string) error {
	if err := r.client.SRem(ctx, r.indexKey(userID), jti).Err(); err != nil {
		return fmt.Errorf("redis remove refresh index: %w", err)
	}
	return nil
}

// HasUserRefreshJTI reports whether the JTI belongs to the user's session index.
func (r *TokenRepository) HasUserRefreshJTI(ctx context.Context, userID int64, jti string) (bool, error) {
	member, err := r.client.SIsMember(ctx, r.indexKey(userID), jti).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember refresh index: %w", err)
	}
	return member, nil
}

// GetUserRefreshJTIs lists the user's live refresh JTIs.
func (r *TokenRepository) GetUserRefreshJTIs(ctx context.Context, userID int64) ([]string, error) {
	members, err := r.client.SMembers(ctx, r.indexKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers refresh index: %w", err)
	}
	return members, nil
}

// PopAllUserRefreshJTIs drains the user's session index atomically via a
// server-side script and returns the members it held.
func (r *TokenRepository) PopAllUserRefreshJTIs(ctx context.Context, userID int64) ([]string, error) {
	result, err := popAllScript.Run(ctx, r.client, []string{r.indexKey(userID)}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis pop refresh index: %w", err)
	}

	raw, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("redis pop refresh index: unexpected reply type %T", result)
	}

	jtis := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			jtis = append(jtis, s)
		}
	}
	return jtis, nil
}

// BlacklistAccessJTI marks an access JTI as revoked for its remaining
// lifetime. Set-if-absent: an existing marker keeps its TTL. Non-positive
// TTLs are a no-op since the token is already dead.
func (r *TokenRepository) BlacklistAccessJTI(ctx context.Context, jti string, ttl time.Duration) error {
	return r.blacklist(ctx, r.accessBlacklistKey(jti), ttl)
}

// BlacklistRefreshJTI marks a refresh JTI as revoked for its remaining lifetime.
func (r *TokenRepository) BlacklistRefreshJTI(ctx context.Context, jti string, ttl time.Duration) error {
	return r.blacklist(ctx, r.refreshBlacklistKey(jti), ttl)
}

func (r *TokenRepository) blacklist(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.SetNX(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis blacklist jti: %w", err)
	}
	return nil
}

// IsAccessJTIBlacklisted reports whether the access JTI carries a blacklist marker.
func (r *TokenRepository) IsAccessJTIBlacklisted(ctx context.Context, jti string) (bool, error) {
	return r.exists(ctx, r.accessBlacklistKey(jti))
}

// IsRefreshJTIBlacklisted reports whether the refresh JTI carries a blacklist marker.
func (r *TokenRepository) IsRefreshJTIBlacklisted(ctx context.Context, jti string) (bool, error) {
	return r.exists(ctx, r.refreshBlacklistKey(jti))
}

func (r *TokenRepository) exists(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return count > 0, nil
}

// RemainingRefreshTTL returns the time left on a refresh record. A missing key
// or one without an expiry surfaces as repository.ErrNotFound.
func (r *TokenRepository) RemainingRefreshTTL(ctx context.Context, jti string) (time.Duration, error) {
	ttl, err := r.client.PTTL(ctx, r.refreshKey(jti)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis pttl refresh token: %w", err)
	}
	// PTTL reports -2 for a missing key and -1 for a key without expiry.
	if ttl <= 0 {
		return 0, repository.ErrNotFound
	}
	return ttl, nil
}

// RemainingRefreshTTLs fetches the remaining TTLs for many JTIs in one
// pipelined round trip. Entries without a positive TTL are omitted.
func (r *TokenRepository) RemainingRefreshTTLs(ctx context.Context, jtis []string) (map[string]time.Duration, error) {
	if len(jtis) == 0 {
		return map[string]time.Duration{}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make(map[string]*red.DurationCmd, len(jtis))
	for _, jti := range jtis {
		cmds[jti] = pipe.PTTL(ctx, r.refreshKey(jti))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis pipeline pttl: %w", err)
	}

	out := make(map[string]time.Duration, len(jtis))
	for jti, cmd := range cmds {
		if ttl := cmd.Val(); ttl > 0 {
			out[jti] = ttl
		}
	}
	return out, nil
}

// DeleteRefreshTokens deletes many hash records in one pipelined round trip.
func (r *TokenRepository) DeleteRefreshTokens(ctx context.Context, jtis []string) error {
	if len(jtis) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, jti := range jtis {
		pipe.Del(ctx, r.refreshKey(jti))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline delete refresh tokens: %w", err)
	}
	return nil
}

// BlacklistRefreshJTIs registers many refresh JTIs in one pipelined round
// trip, skipping entries without a positive TTL. SET NX keeps existing
// markers' TTLs intact.
func (r *TokenRepository) BlacklistRefreshJTIs(ctx context.Context, jtiToTTL map[string]time.Duration) error {
	if len(jtiToTTL) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	queued := 0
	for jti, ttl := range jtiToTTL {
		if ttl <= 0 {
			continue
		}
		pipe.SetNX(ctx, r.refreshBlacklistKey(jti), "1", ttl)
		queued++
	}
	if queued == 0 {
		return nil
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline blacklist refresh jtis: %w", err)
	}
	return nil
}

var _ port.TokenStore = (*TokenRepository)(nil)
