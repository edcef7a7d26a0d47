package notify

import (
	"context"
	"time"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/port"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// Recorder receives one call per delivery attempt.
type Recorder interface {
	IncrNotification(channel, result string)
}

type channel struct {
	name     string
	notifier port.Notifier
	address  func(domain.Customer) string
}

// Dispatcher envia a mesma mensagem por todos os canais em que o cliente
// tem endereço, em paralelo e com prazo limitado.
type Dispatcher struct {
	channels []channel
	timeout  time.Duration
	metrics  Recorder
	logger   *zap.Logger
}

// NewDispatcher wires the e-mail and WhatsApp notifiers. Either may be nil.
func NewDispatcher(email, whatsapp port.Notifier, timeout time.Duration, metrics Recorder, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{timeout: timeout, metrics: metrics, logger: logger}
	if email != nil {
		d.channels = append(d.channels, channel{ChannelEmail, email, func(c domain.Customer) string { return c.Email }})
	}
	if whatsapp != nil {
		d.channels = append(d.channels, channel{ChannelWhatsApp, whatsapp, func(c domain.Customer) string { return c.Phone }})
	}
	if d.timeout <= 0 {
		d.timeout = 5 * time.Second
	}
	return d
}

// Notify fans out msg and waits for every channel. It never returns an
// error; it reports how many deliveries succeeded.
func (d *Dispatcher) Notify(ctx context.Context, customer domain.Customer, msg Message) int {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	results := make([]bool, len(d.channels))
	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range d.channels {
		to := ch.address(customer)
		if to == "" {
			continue
		}
		g.Go(func() error {
			err := ch.notifier.Send(gctx, to, msg.Subject, msg.Body)
			if err != nil {
				d.logger.Warn("notification failed",
					zap.String("channel", ch.name),
					zap.String("subject", msg.Subject),
					zap.Error(err),
				)
				d.record(ch.name, "failed")
				return nil
			}
			results[i] = true
			d.record(ch.name, "sent")
			return nil
		})
	}
	_ = g.Wait()

	sent := 0
	for _, ok := range results {
		if ok {
			sent++
		}
	}
	return sent
}

func (d *Dispatcher) record(channel, result string) {
	if d.metrics != nil {
		d.metrics.IncrNotification(channel, result)
	}
}
