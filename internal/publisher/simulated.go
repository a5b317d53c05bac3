package publisher

import (
	"context"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/sirupsen/logrus"
)

// SimulatedSubmitter accepts every order after a fixed delay. It is used when no broker is configured.
type SimulatedSubmitter struct {
	delay time.Duration
	log   logrus.FieldLogger
}

func NewSimulatedSubmitter(delay time.Duration, log logrus.FieldLogger) *SimulatedSubmitter {
	return &SimulatedSubmitter{delay: delay, log: log}
}

func (s *SimulatedSubmitter) Submit(ctx context.Context, c domain.CompletedCheckout) error {
	t := time.NewTimer(s.delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	s.log.WithFields(logrus.Fields{
		"checkout_id": c.CheckoutID,
		"session_id":  c.SessionID,
		"items":       len(c.Items),
	}).Info("checkout accepted without a broker")
	return nil
}

func (s *SimulatedSubmitter) Close() error {
	return nil
}
