package httpapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/internal/integration/openai"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
	"gitlab.com/timkado/api/lead-outreach-service/internal/usecase"
)

// EmailHandler serves email dispatch and draft polishing.
type EmailHandler struct {
	leads    *usecase.LeadService
	polisher openai.Polisher
}

// NewEmailHandler creates the email handler.
func NewEmailHandler(leads *usecase.LeadService, polisher openai.Polisher) *EmailHandler {
	return &EmailHandler{leads: leads, polisher: polisher}
}

// SendEmailResponse is returned by POST /api/email/send. A history_status
// other than "recorded" means the email was sent but not recorded.
type SendEmailResponse struct {
	Message       string              `json:"message"`
	MailgunID     string              `json:"mailgunId"`
	HistoryStatus model.HistoryStatus `json:"history_status"`
}

// PolishRequest is the body of POST /api/email/polish.
type PolishRequest struct {
	TextToPolish string `json:"textToPolish"`
}

// PolishResponse is returned by POST /api/email/polish.
type PolishResponse struct {
	PolishedText string `json:"polishedText"`
}

var historyMessages = map[model.HistoryStatus]string{
	model.HistoryRecorded:        "Email sent successfully! Contact history updated with sent email.",
	model.HistoryContactNotFound: "Email sent successfully! Contact history not updated (contact not found).",
	model.HistoryFailed:          "Email sent successfully! Error updating contact history.",
}

// Register mounts the email routes.
func (h *EmailHandler) Register(e *echo.Echo) {
	group := e.Group("/api/email")
	group.POST("/send", h.Send)
	group.POST("/polish", h.Polish)
}

// Send handles POST /api/email/send.
func (h *EmailHandler) Send(c echo.Context) error {
	var req usecase.SendEmailInput
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid request body", apperrors.ErrBadRequest)
	}
	result, err := h.leads.SendEmail(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SendEmailResponse{
		Message:       historyMessages[result.HistoryStatus],
		MailgunID:     result.ProviderID,
		HistoryStatus: result.HistoryStatus,
	})
}

// Polish handles POST /api/email/polish.
func (h *EmailHandler) Polish(c echo.Context) error {
	var req PolishRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid request body", apperrors.ErrBadRequest)
	}
	polished, err := h.polisher.Polish(c.Request().Context(), req.TextToPolish)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PolishResponse{PolishedText: polished})
}
