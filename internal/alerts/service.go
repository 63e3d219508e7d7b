package alerts

import (
	"context"
	"encoding/json"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/Mnabil10/fasket-backend/pkg/enums"
	pkgerrors "github.com/Mnabil10/fasket-backend/pkg/errors"
	"github.com/Mnabil10/fasket-backend/pkg/logger"
)

// Sender delivers a raw alert payload to the transport. Kept narrow so tests
// can swap the Pub/Sub publisher for a stub.
type Sender interface {
	Send(ctx context.Context, data []byte, attributes map[string]string) (string, error)
}

// Service emits admin alert events. Delivery mechanics (push, SMS, webhooks)
// belong to the consumer on the other side of the topic.
type Service interface {
	PayoutFailed(ctx context.Context, event PayoutFailureEvent) error
}

// PayoutFailureEvent carries the facts an operator needs when a payout fails.
type PayoutFailureEvent struct {
	PayoutID    uuid.UUID
	ProviderID  uuid.UUID
	AmountCents int
	Currency    enums.Currency
	Reason      string
}

type payoutFailureData struct {
	PayoutID    uuid.UUID      `json:"payoutId"`
	ProviderID  uuid.UUID      `json:"providerId"`
	AmountCents int            `json:"amountCents"`
	Currency    enums.Currency `json:"currency"`
	Reason      string         `json:"reason"`
}

type envelope struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Type  string            `json:"type"`
	Data  payoutFailureData `json:"data"`
}

type service struct {
	sender Sender
	logg   *logger.Logger
}

// NewService builds the alert emitter. A nil sender disables emission, which
// is how deployments without Pub/Sub configured run.
func NewService(sender Sender, logg *logger.Logger) Service {
	return &service{sender: sender, logg: logg}
}

func (s *service) PayoutFailed(ctx context.Context, event PayoutFailureEvent) error {
	if s.sender == nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithPayoutID(ctx, event.PayoutID.String()), "alerts disabled, dropping payout failure alert")
		}
		return nil
	}

	payload, err := json.Marshal(envelope{
		Title: "Payout failed",
		Body:  "A vendor payout failed and its funds were returned to the balance.",
		Type:  "payment_failure",
		Data: payoutFailureData{
			PayoutID:    event.PayoutID,
			ProviderID:  event.ProviderID,
			AmountCents: event.AmountCents,
			Currency:    event.Currency,
			Reason:      event.Reason,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding payout failure alert")
	}

	id, err := s.sender.Send(ctx, payload, map[string]string{
		"event_type":  "payment_failure",
		"provider_id": event.ProviderID.String(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publishing payout failure alert")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"payout_id":  event.PayoutID.String(),
			"message_id": id,
		}), "payout failure alert published")
	}
	return nil
}

// PubSubSender adapts a Pub/Sub publisher to the Sender interface.
type PubSubSender struct {
	Publisher *pubsub.Publisher
}

func (p PubSubSender) Send(ctx context.Context, data []byte, attributes map[string]string) (string, error) {
	result := p.Publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attributes,
	})
	return result.Get(ctx)
}
