//go:build integration

package integration_test

import (
	"encoding/json"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"gitlab.com/timkado/api/lead-outreach-service/internal/jetstream"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
)

const (
	testStream        = "lead_activity_test"
	testSubjectPrefix = "test.leads"
)

type ActivityStreamTestSuite struct {
	BaseIntegrationSuite
}

func (s *ActivityStreamTestSuite) TestPublishLandsOnStream() {
	client, err := jetstream.NewClient(s.NATSURL)
	s.Require().NoError(err)
	defer client.Close()

	streamCfg := jetstream.ActivityStreamConfig(testStream, testSubjectPrefix, 1)
	s.Require().NoError(client.SetupStream(s.Ctx, streamCfg))
	// A second setup with the same config is a no-op.
	s.Require().NoError(client.SetupStream(s.Ctx, streamCfg))

	nc, err := natsgo.Connect(s.NATSURL)
	s.Require().NoError(err)
	defer nc.Close()
	js, err := nc.JetStream()
	s.Require().NoError(err)
	sub, err := js.SubscribeSync(testSubjectPrefix+".>", natsgo.BindStream(testStream), natsgo.DeliverAll())
	s.Require().NoError(err)

	publisher := jetstream.NewLeadActivityPublisher(client, testSubjectPrefix)
	publisher.PublishActivity(s.Ctx, model.LeadActivityEvent{
		EventID:   "evt-1",
		Type:      model.ActivityEmailSent,
		ContactID: "c-1",
		MailgunID: "abc@mg.example.com",
	})
	// Same event id again is deduplicated by the stream.
	publisher.PublishActivity(s.Ctx, model.LeadActivityEvent{EventID: "evt-1", Type: model.ActivityEmailSent})

	msg, err := sub.NextMsg(5 * time.Second)
	s.Require().NoError(err)
	s.Equal(testSubjectPrefix+".email.sent", msg.Subject)

	var event model.LeadActivityEvent
	s.Require().NoError(json.Unmarshal(msg.Data, &event))
	s.Equal("c-1", event.ContactID)
	s.Equal("abc@mg.example.com", event.MailgunID)
	s.False(event.OccurredAt.IsZero())

	info, err := js.StreamInfo(testStream)
	s.Require().NoError(err)
	s.Equal(uint64(1), info.State.Msgs)
}
