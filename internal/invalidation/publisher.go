package invalidation

import (
	"fmt"

	"github.com/IBM/sarama"
)

// Publisher sends events keyed by source, so all events for one source land
// on one partition in order.
type Publisher struct {
	topic string
	prod  sarama.SyncProducer
}

func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("invalidation: create producer: %w", err)
	}
	return NewPublisherWith(prod, topic), nil
}

// NewPublisherWith wraps an existing producer.
func NewPublisherWith(prod sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{topic: topic, prod: prod}
}

func (p *Publisher) Publish(ev Event) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("invalidation: %w", err)
	}
	b, err := ev.Encode()
	if err != nil {
		return err
	}
	_, _, err = p.prod.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.Source),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return fmt.Errorf("invalidation: publish %s %q: %w", ev.Op, ev.Source, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("invalidation: close producer: %w", err)
	}
	return nil
}
