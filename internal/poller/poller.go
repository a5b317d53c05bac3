package poller

import (
	"context"
	"encoding/json"

	"github.com/fjod/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// CartDropper forgets a session's cart.
type CartDropper interface {
	Drop(ctx context.Context, sessionID string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Poller consumes checkout-completed events and drops the cart of the session that checked out, so
// every instance forgets it, not only the one that served the checkout.
type Poller struct {
	carts  CartDropper
	reader messageReader
	log    logrus.FieldLogger
}

func NewPoller(carts CartDropper, log logrus.FieldLogger, topic string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "storefront-cart-consumer",
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{carts: carts, reader: reader, log: log}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.dropCheckedOutCart(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.WithError(err).Error("error closing reader")
	}
}

func (p *Poller) dropCheckedOutCart(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.WithError(err).Error("error reading message")
		}
		return
	}

	var event domain.CheckoutCompletedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.log.WithError(err).WithField("offset", m.Offset).Error("error parsing message")
		return
	}
	if event.SessionID == "" {
		p.log.WithField("checkout_id", event.CheckoutID).Warn("missing session_id")
		return
	}

	if err := p.carts.Drop(ctx, event.SessionID); err != nil {
		p.log.WithError(err).WithField("session_id", event.SessionID).Error("failed to drop cart")
		return
	}
	p.log.WithFields(logrus.Fields{
		"checkout_id": event.CheckoutID,
		"session_id":  event.SessionID,
	}).Info("cart dropped after checkout")
}
