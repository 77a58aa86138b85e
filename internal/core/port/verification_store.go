package port

import (
	"context"
	"time"
)

// VerificationStore keeps the per-email verification state machine in a
// TTL-aware key-value store: code hash, attempt counter, cooltime, block and
// verified markers.
type VerificationStore interface {
	SaveCodeHash(ctx context.Context, email, codeHash string, ttl time.Duration) error
	GetCodeHash(ctx context.Context, email string) (string, error)
	DeleteCode(ctx context.Context, email string) error

	// IncrementAttempts bumps the attempt counter and installs the TTL window
	// when the counter is created by this increment. Returns the new value.
	IncrementAttempts(ctx context.Context, email string, windowTTL time.Duration) (int64, error)
	ResetAttempts(ctx context.Context, email string) error

	SetCooltime(ctx context.Context, email string, ttl time.Duration) error
	InCooltime(ctx context.Context, email string) (bool, error)

	Block(ctx context.Context, email string, ttl time.Duration) error
	IsBlocked(ctx context.Context, email string) (bool, error)

	MarkVerified(ctx context.Context, email string, ttl time.Duration) error
	IsVerified(ctx context.Context, email string) (bool, error)
	ClearVerified(ctx context.Context, email string) error
}
