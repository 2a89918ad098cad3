package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/member-registry/internal/config"
	"github.com/spec-kit/member-registry/internal/events"
)

// NotificationService listens for registration events and sends a welcome SMS.
// Delivery is stubbed: messages are logged with the configured sender id so a
// real gateway integration can slot in behind the same subscription.
type NotificationService struct {
	cfg    config.NotificationConfig
	logger *zap.Logger
}

// NewNotificationService wires the service into the dispatcher.
func NewNotificationService(cfg config.NotificationConfig, dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	svc := &NotificationService{cfg: cfg, logger: logger}
	dispatcher.Subscribe(events.EventMemberRegistered, svc.handleMemberRegistered)
	dispatcher.Subscribe(events.EventSessionCompleted, svc.handleSessionCompleted)
	return svc
}

func (s *NotificationService) handleMemberRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MemberRegisteredPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type for %s", event.Type)
	}

	message := fmt.Sprintf("Welcome %s, your registration is complete.", payload.FullName)
	s.logger.Info("sending welcome sms",
		zap.String("sender_id", s.cfg.SMSSenderID),
		zap.String("phone", payload.Phone),
		zap.Int64("member_id", payload.MemberID),
		zap.String("channel", string(payload.Channel)),
		zap.String("message", message),
	)

	if s.cfg.WebhookURL != "" {
		s.logger.Info("notifying registration webhook",
			zap.String("url", s.cfg.WebhookURL),
			zap.Int64("member_id", payload.MemberID),
		)
	}
	return nil
}

func (s *NotificationService) handleSessionCompleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SessionCompletedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type for %s", event.Type)
	}
	s.logger.Info("ussd session completed",
		zap.String("session_id", payload.SessionID),
		zap.String("phone", payload.Phone),
	)
	return nil
}
