package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/plan-assistant-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// MessageCreator is the slice of the Twilio REST API we use.
// *twilioApi.ApiService satisfies it; tests inject a fake.
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// WhatsAppNotifier envia mensagens de WhatsApp via Twilio.
// O assunto vira a primeira linha, em negrito.
type WhatsAppNotifier struct {
	api  MessageCreator
	from string
	cb   *gobreaker.CircuitBreaker
}

// NewTwilioClient builds the Twilio REST client.
func NewTwilioClient(accountSID, authToken string) *twilio.RestClient {
	return twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
}

// NewWhatsAppNotifier creates the notifier. from must be a Twilio WhatsApp
// sender, with or without the "whatsapp:" prefix.
func NewWhatsAppNotifier(api MessageCreator, from string, cb *gobreaker.CircuitBreaker) *WhatsAppNotifier {
	if cb == nil {
		cb = resilience.NewCircuitBreaker("twilio")
	}
	return &WhatsAppNotifier{api: api, from: whatsappAddress(from), cb: cb}
}

// Send posts one message. The Twilio SDK has no context support, so the
// call runs in a goroutine and ctx only bounds the wait.
func (n *WhatsAppNotifier) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("whatsapp: empty recipient")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(whatsappAddress(to))
	params.SetFrom(n.from)
	params.SetBody(formatWhatsApp(subject, body))

	done := make(chan error, 1)
	go func() {
		_, err := n.cb.Execute(func() (any, error) {
			return n.api.CreateMessage(params)
		})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return resilience.MapBreakerError("twilio", err)
		}
		return nil
	case <-ctx.Done():
		return resilience.MapBreakerError("twilio", ctx.Err())
	}
}

func whatsappAddress(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

func formatWhatsApp(subject, body string) string {
	if subject == "" {
		return body
	}
	return "*" + subject + "*\n\n" + body
}
