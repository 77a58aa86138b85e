package dev

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/community-soap/user-service/internal/core/port"
	"github.com/community-soap/user-service/internal/infra/logger"
)

// EmailSender logs outbound verification codes instead of delivering them.
type EmailSender struct {
	logger *zap.Logger
}

// NewEmailSender constructs the logging sender.
func NewEmailSender(lg *zap.Logger) *EmailSender {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &EmailSender{logger: lg}
}

// SendVerificationCode records the delivery request. The code itself is not
// logged.
func (s *EmailSender) SendVerificationCode(_ context.Context, email, _ string, ttl time.Duration, brandName string) error {
	s.logger.Info("verification code dispatched",
		zap.String("email", logger.MaskEmail(email)),
		zap.Duration("ttl", ttl),
		zap.String("brand", brandName))
	return nil
}

var _ port.EmailSender = (*EmailSender)(nil)
