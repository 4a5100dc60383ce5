package httpapi

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/internal/observer"
	"gitlab.com/timkado/api/lead-outreach-service/internal/usecase"
	"gitlab.com/timkado/api/lead-outreach-service/internal/webhook"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/utils"
)

// maxWebhookBody caps the size of a provider callback.
const maxWebhookBody = 1 << 20

// WebhookHandler serves the Mailgun engagement callback.
type WebhookHandler struct {
	leads    *usecase.LeadService
	verifier webhook.Verifier
}

// NewWebhookHandler creates the webhook handler.
func NewWebhookHandler(leads *usecase.LeadService, verifier webhook.Verifier) *WebhookHandler {
	return &WebhookHandler{leads: leads, verifier: verifier}
}

// Register mounts the Mailgun webhook route.
func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/api/webhooks/mailgun", h.Mailgun)
}

// Mailgun verifies the signature before looking at the event.
func (h *WebhookHandler) Mailgun(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return fmt.Errorf("%w: unreadable webhook body", apperrors.ErrBadRequest)
	}
	payload, err := webhook.ParsePayload(body)
	if err != nil {
		observer.IncWebhookEvent("", "malformed")
		return err
	}

	if !payload.Signature.Complete() {
		observer.IncWebhookEvent(payload.EventName(), "unsigned")
		log.Warn("Mailgun webhook missing signature data")
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Webhook signature data missing."})
	}
	if err := h.verifier.Verify(payload.Signature); err != nil {
		observer.IncWebhookEvent(payload.EventName(), "rejected")
		log.Warn("Mailgun webhook signature rejected", zap.String("mode", h.verifier.Mode()), zap.Error(err))
		return c.JSON(http.StatusForbidden, ErrorResponse{Message: "Invalid webhook signature."})
	}

	event, err := payload.Engagement(utils.Now())
	if err != nil {
		observer.IncWebhookEvent(payload.EventName(), "invalid")
		return err
	}

	outcome, err := h.leads.ReconcileEngagement(ctx, event)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Message: "No matching contact or email history entry found."})
		}
		return err
	}
	if outcome == usecase.EngagementIgnored {
		return c.JSON(http.StatusOK, map[string]string{"message": "Webhook received, event not processed."})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Webhook processed successfully for event: %s", event.Event),
	})
}
