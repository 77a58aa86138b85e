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

const defaultVerificationPrefix = "EV"

// EmailVerificationRepository keeps the per-email verification state machine
// in Redis: code hash, attempt counter, cooltime, block and verified markers.
// Every key is scoped by email and expires on its own TTL.
type EmailVerificationRepository struct {
	client *red.Client
	prefix string
}

// NewEmailVerificationRepository wires a Redis client into a verification repository.
func NewEmailVerificationRepository(client *red.Client, keyPrefix string) *EmailVerificationRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultVerificationPrefix
	}

	return &EmailVerificationRepository{client: client, prefix: prefix}
}

func (r *EmailVerificationRepository) codeKey(email string) string {
	return fmt.Sprintf("%s:code:%s", r.prefix, email)
}

func (r *EmailVerificationRepository) attemptsKey(email string) string {
	return fmt.Sprintf("%s:attempts:%s", r.prefix, email)
}

func (r *EmailVerificationRepository) coolKey(email string) string {
	return fmt.Sprintf("%s:cool:%s", r.prefix, email)
}

func (r *EmailVerificationRepository) blockKey(email string) string {
	return fmt.Sprintf("%s:block:%s", r.prefix, email)
}

func (r *EmailVerificationRepository) verifiedKey(email string) string {
	return fmt.Sprintf("%s:verified:%s", r.prefix, email)
}

// SaveCodeHash stores the hashed code for the code lifetime.
func (r *EmailVerificationRepository) SaveCodeHash(ctx context.Context, email, codeHash string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}
	if err := r.client.Set(ctx, r.codeKey(email), codeHash, ttl).Err(); err != nil {
		return fmt.Errorf("redis set code hash: %w", err)
	}
	return nil
}

// GetCodeHash returns the stored code hash.
// A missing key surfaces as repository.ErrNotFound.
func (r *EmailVerificationRepository) GetCodeHash(ctx context.Context, email string) (string, error) {
	value, err := r.client.Get(ctx, r.codeKey(email)).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("redis get code hash: %w", err)
	}
	return value, nil
}

// DeleteCode removes the pending code, if any.
func (r *EmailVerificationRepository) DeleteCode(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, r.codeKey(email)).Err(); err != nil {
		return fmt.Errorf("redis delete code: %w", err)
	}
	return nil
}

// IncrementAttempts bumps the attempt counter and installs the TTL window on
// the first increment, so the counter cannot outlive the code it protects.
func (r *EmailVerificationRepository) IncrementAttempts(ctx context.Context, email string, windowTTL time.Duration) (int64, error) {
	count, err := r.client.Incr(ctx, r.attemptsKey(email)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr attempts: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, r.attemptsKey(email), windowTTL).Err(); err != nil {
			return count, fmt.Errorf("redis expire attempts: %w", err)
		}
	}
	return count, nil
}

// ResetAttempts clears the attempt counter.
func (r *EmailVerificationRepository) ResetAttempts(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, r.attemptsKey(email)).Err(); err != nil {
		return fmt.Errorf("redis reset attempts: %w", err)
	}
	return nil
}

// SetCooltime installs the resend cooldown marker.
func (r *EmailVerificationRepository) SetCooltime(ctx context.Context, email string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.coolKey(email), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set cooltime: %w", err)
	}
	return nil
}

// InCooltime reports whether the resend cooldown is still active.
func (r *EmailVerificationRepository) InCooltime(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, r.coolKey(email))
}

// Block installs the block marker for the block duration.
func (r *EmailVerificationRepository) Block(ctx context.Context, email string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.blockKey(email), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set block: %w", err)
	}
	return nil
}

// IsBlocked reports whether the email is currently blocked.
func (r *EmailVerificationRepository) IsBlocked(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, r.blockKey(email))
}

// MarkVerified installs the verified marker for the grace window.
func (r *EmailVerificationRepository) MarkVerified(ctx context.Context, email string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.verifiedKey(email), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis mark verified: %w", err)
	}
	return nil
}

// IsVerified reports whether the email holds a live verified marker.
func (r *EmailVerificationRepository) IsVerified(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, r.verifiedKey(email))
}

// ClearVerified removes a stale verified marker.
func (r *EmailVerificationRepository) ClearVerified(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, r.verifiedKey(email)).Err(); err != nil {
		return fmt.Errorf("redis clear verified: %w", err)
	}
	return nil
}

func (r *EmailVerificationRepository) exists(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return count > 0, nil
}

var _ port.VerificationStore = (*EmailVerificationRepository)(nil)
