//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/labstack/echo/v4"

	"gitlab.com/timkado/api/lead-outreach-service/internal/httpapi"
	"gitlab.com/timkado/api/lead-outreach-service/internal/jetstream"
	"gitlab.com/timkado/api/lead-outreach-service/internal/mailgun"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
	"gitlab.com/timkado/api/lead-outreach-service/internal/usecase"
	"gitlab.com/timkado/api/lead-outreach-service/internal/webhook"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
)

const (
	flowSecret     = "integration-secret"
	flowSigningKey = "integration-signing-key"
)

// WebhookFlowTestSuite drives the HTTP API against a real database:
// account signup, email dispatch and engagement reconciliation.
type WebhookFlowTestSuite struct {
	BaseIntegrationSuite
	echo *echo.Echo
}

func (s *WebhookFlowTestSuite) SetupTest() {
	s.BaseIntegrationSuite.SetupTest()

	leads := usecase.NewLeadService(s.Repo, mailgun.NewLoggingMailer("mg.example.com"), jetstream.NoopPublisher{})
	accounts := usecase.NewAccountService(s.Repo, flowSecret, time.Hour)
	srv := httpapi.NewServer(logger.Log, httpapi.Options{JWTSecret: flowSecret},
		httpapi.NewAuthHandler(accounts),
		httpapi.NewContactsHandler(leads, nil, httpapi.PagingOptions{DefaultLimit: 10, MapLimit: 5, MaxLimit: 100}),
		httpapi.NewEmailHandler(leads, nil),
		httpapi.NewWebhookHandler(leads, webhook.NewHMACVerifier(flowSigningKey)),
	)
	s.echo = srv.Echo()
}

func (s *WebhookFlowTestSuite) call(method, path, token string, body interface{}, out interface{}) int {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	if out != nil {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func (s *WebhookFlowTestSuite) TestSendThenOpen() {
	s.Equal(http.StatusCreated, s.call(http.MethodPost, "/auth/signup", "", map[string]string{
		"name": "Rep", "email": "rep@example.com", "password": "hunter22",
	}, nil))
	var login usecase.LoginResult
	s.Require().Equal(http.StatusOK, s.call(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "rep@example.com", "password": "hunter22",
	}, &login))

	contact := model.NewContact(&model.Contact{Email: "Lead@Example.com"})
	s.Require().NoError(seedContacts(s.Ctx, s.DB, contact))

	var sent httpapi.SendEmailResponse
	s.Require().Equal(http.StatusOK, s.call(http.MethodPost, "/api/email/send", login.AccessToken, map[string]string{
		"to": contact.Email, "from": "rep@example.com", "subject": "Hi", "textBody": "Hello", "contactId": contact.ID,
	}, &sent))
	s.Equal(model.HistoryRecorded, sent.HistoryStatus)

	data := &webhook.EventData{Event: "opened", Timestamp: float64(time.Now().Unix()), Recipient: "lead@example.com"}
	data.Message.Headers.MessageID = sent.MailgunID
	payload := webhook.NewSignedPayload(flowSigningKey, "token-123", time.Now(), data)
	s.Equal(http.StatusOK, s.call(http.MethodPost, "/api/webhooks/mailgun", "", payload, nil))

	var stored model.Contact
	s.Require().Equal(http.StatusOK, s.call(http.MethodGet, "/api/contacts/"+contact.ID, login.AccessToken, nil, &stored))
	s.Require().Len(stored.EmailHistory, 1)
	s.Equal(model.EmailStatusOpened, stored.EmailHistory[0].Status)
	s.NotNil(stored.LastEmailOpenedTimestamp)

	// Same callback with a bad signature changes nothing.
	payload.Signature.Signature = "forged"
	s.Equal(http.StatusForbidden, s.call(http.MethodPost, "/api/webhooks/mailgun", "", payload, nil))
}
