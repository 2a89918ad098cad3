package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/member-registry/internal/api/dto"
	"github.com/spec-kit/member-registry/internal/config"
	"github.com/spec-kit/member-registry/internal/events"
	"github.com/spec-kit/member-registry/internal/observability"
	"github.com/spec-kit/member-registry/internal/repository"
	"github.com/spec-kit/member-registry/internal/ussd"
)

// USSDHandler translates gateway envelopes to flow-engine calls. It owns no
// flow logic: session state is read and written through the store under a
// per-phone lock, and the engine decides everything in between.
type USSDHandler struct {
	engine     *ussd.Engine
	store      ussd.SessionStore
	logs       repository.SessionLogRepository
	cfg        config.USSDConfig
	metrics    *observability.Metrics
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewUSSDHandler constructs handler.
func NewUSSDHandler(engine *ussd.Engine, store ussd.SessionStore, logs repository.SessionLogRepository, cfg config.USSDConfig, metrics *observability.Metrics, dispatcher events.Dispatcher, logger *zap.Logger) *USSDHandler {
	return &USSDHandler{engine: engine, store: store, logs: logs, cfg: cfg, metrics: metrics, dispatcher: dispatcher, logger: logger}
}

// Handle processes POST /ussd. Gateways send JSON or form bodies with the
// same field names; BodyParser covers both.
func (h *USSDHandler) Handle(c *fiber.Ctx) error {
	var req dto.USSDRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.SessionID == "" || req.MSISDN == "" {
		return fiber.NewError(http.StatusBadRequest, "sessionId and msisdn required")
	}

	phone := ussd.NormalizePhone(req.MSISDN)
	input := ussd.LastFragment(req.Text)

	var result ussd.Result
	err := h.store.WithPhoneLock(c.UserContext(), phone, func(ctx context.Context) error {
		session, err := h.store.FindActiveByPhone(ctx, phone)
		if errors.Is(err, ussd.ErrNoActiveSession) {
			session, err = h.store.Create(ctx, req.SessionID, phone)
		}
		if err != nil {
			return err
		}

		engineCtx, cancel := context.WithTimeout(ctx, h.cfg.BackendTimeout())
		defer cancel()
		result = h.engine.Handle(engineCtx, session, input)

		return h.store.Save(ctx, result.Session)
	})
	if err != nil {
		h.logger.Error("ussd request failed",
			zap.String("session_id", req.SessionID),
			zap.String("phone", phone),
			zap.Error(err),
		)
		return c.JSON(dto.USSDResponse{
			ResponseString:  "Service temporarily unavailable.\nPlease try again later.",
			ContinueSession: false,
			SessionID:       req.SessionID,
		})
	}

	h.audit(c.UserContext(), req.SessionID, phone, input, result)
	if h.metrics != nil {
		h.metrics.RecordUSSD(string(result.Session.CurrentStep), string(result.Outcome))
	}
	if result.Outcome == ussd.OutcomeCompleted && h.dispatcher != nil {
		_ = h.dispatcher.Publish(c.UserContext(), events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventSessionCompleted,
			Timestamp: time.Now(),
			Payload: events.SessionCompletedPayload{
				SessionID: result.Session.ID,
				Phone:     phone,
			},
		})
	}

	return c.JSON(dto.USSDResponse{
		ResponseString:  result.Text,
		ContinueSession: result.Continue,
		SessionID:       result.Session.ID,
	})
}

// ActiveSessions handles GET /sessions/active.
func (h *USSDHandler) ActiveSessions(c *fiber.Ctx) error {
	sessions, err := h.store.ActiveSessions(c.UserContext())
	if err != nil {
		return err
	}

	out := make([]dto.ActiveSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, dto.ActiveSessionResponse{
			SessionID:       s.ID,
			Phone:           s.Phone,
			CurrentStep:     string(s.CurrentStep),
			InvalidAttempts: s.InvalidAttempts,
			StartedAt:       s.CreatedAt,
			UpdatedAt:       s.UpdatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}

// SessionLogs handles GET /sessions/:id/logs, replaying the audit trail of
// one gateway conversation.
func (h *USSDHandler) SessionLogs(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if sessionID == "" {
		return fiber.NewError(http.StatusBadRequest, "session id required")
	}
	if h.logs == nil {
		return c.JSON(fiber.Map{"data": []repository.SessionLogEntry{}})
	}
	entries, err := h.logs.ListBySession(c.UserContext(), sessionID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entries})
}

// audit writes one log row per processed request. Best effort: an audit
// failure never affects the gateway reply.
func (h *USSDHandler) audit(ctx context.Context, sessionID, phone, input string, result ussd.Result) {
	if h.logs == nil {
		return
	}
	entry := &repository.SessionLogEntry{
		SessionID:     sessionID,
		Msisdn:        phone,
		Step:          string(result.Session.CurrentStep),
		UserInput:     input,
		Succeeded:     result.Outcome != ussd.OutcomeInvalid && result.Outcome != ussd.OutcomeUnavailable,
		StatusMessage: string(result.Outcome),
	}
	if err := h.logs.Append(ctx, entry); err != nil {
		h.logger.Warn("ussd audit write failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}
