package port

import (
	"context"
	"time"
)

// EmailSender delivers verification codes. Rendering and transport are
// external collaborators.
type EmailSender interface {
	SendVerificationCode(ctx context.Context, email, code string, ttl time.Duration, brandName string) error
}
