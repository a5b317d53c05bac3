// Package publisher hands completed checkouts to order fulfilment.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

const EventCheckoutCompleted = "CheckoutCompleted"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSubmitter publishes a checkout-completed event per order. Consecutive broker failures open a
// circuit breaker, after which submissions fail immediately until it half-opens again.
type KafkaSubmitter struct {
	writer messageWriter
	cb     *gobreaker.CircuitBreaker[struct{}]
	log    logrus.FieldLogger
}

func NewKafkaSubmitter(brokers []string, topic string, log logrus.FieldLogger) *KafkaSubmitter {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	return newKafkaSubmitter(w, log)
}

func newKafkaSubmitter(w messageWriter, log logrus.FieldLogger) *KafkaSubmitter {
	s := &KafkaSubmitter{writer: w, log: log}
	s.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "checkout-publisher",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
		},
	})
	return s
}

func (s *KafkaSubmitter) Submit(ctx context.Context, c domain.CompletedCheckout) error {
	event := domain.NewCheckoutCompletedEvent(c)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.CheckoutID),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventCheckoutCompleted)},
		},
	}

	_, err = s.cb.Execute(func() (struct{}, error) {
		return struct{}{}, s.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to publish checkout %s: %w", event.CheckoutID, err)
	}

	s.log.WithFields(logrus.Fields{
		"checkout_id": event.CheckoutID,
		"session_id":  event.SessionID,
		"total":       event.TotalAmount.String(),
	}).Info("checkout published")
	return nil
}

func (s *KafkaSubmitter) Close() error {
	return s.writer.Close()
}
