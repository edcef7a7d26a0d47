// Package notify entrega notificações de pagamento ao cliente por e-mail
// (SMTP) e WhatsApp (Twilio). Falhas nunca chegam ao chamador: são
// registradas em log e em métricas.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Message é uma notificação pronta para envio.
type Message struct {
	Subject string
	Body    string
}

// LogNotifier só registra a mensagem. É o canal padrão quando SMTP ou
// Twilio não estão configurados.
type LogNotifier struct {
	channel string
	logger  *zap.Logger
}

// NewLogNotifier creates a notifier that logs instead of sending.
func NewLogNotifier(channel string, logger *zap.Logger) *LogNotifier {
	return &LogNotifier{channel: channel, logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, to, subject, body string) error {
	n.logger.Info("notification (log only)",
		zap.String("channel", n.channel),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_length", len(body)),
	)
	return nil
}
