package kafka

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/rzzdr/option-pricing-engine/pkg/utils/circuit"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// Producer is a wrapper around the Kafka writer
type Producer struct {
	writer  *kafkago.Writer
	breaker *circuit.CircuitBreaker
	topic   string
	log     *logger.Logger
}

// ProduceMessage produces a message to the topic
func (p *Producer) ProduceMessage(ctx context.Context, key, value []byte, headers []MessageHeader) error {
	msg := kafkago.Message{
		Key:     key,
		Value:   value,
		Headers: toKafkaHeaders(headers),
	}

	_, err := p.breaker.ExecuteWithContext(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		p.log.Errorf("Failed to produce message to %s: %v", p.topic, err)
		return errors.Wrapf(err, "failed to produce message to %s", p.topic)
	}
	return nil
}

// ProduceJSON produces a JSON-serialized message to the topic
func (p *Producer) ProduceJSON(ctx context.Context, key []byte, value interface{}, headers []MessageHeader) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to serialize message to JSON")
	}

	allHeaders := append(headers, MessageHeader{Key: "content-type", Value: []byte("application/json")})
	return p.ProduceMessage(ctx, key, jsonValue, allHeaders)
}

// ProduceBatch produces a batch of messages to the topic in one write
func (p *Producer) ProduceBatch(ctx context.Context, messages []*Message) error {
	if len(messages) == 0 {
		return nil
	}

	batch := make([]kafkago.Message, len(messages))
	for i, m := range messages {
		batch[i] = kafkago.Message{
			Key:     m.Key,
			Value:   m.Value,
			Headers: toKafkaHeaders(m.Headers),
		}
	}

	_, err := p.breaker.ExecuteWithContext(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, batch...)
	})
	if err != nil {
		p.log.Errorf("Failed to produce batch of %d messages to %s: %v", len(messages), p.topic, err)
		return errors.Wrapf(err, "failed to produce batch to %s", p.topic)
	}
	return nil
}

// Breaker exposes the producer's circuit breaker for health reporting
func (p *Producer) Breaker() *circuit.CircuitBreaker {
	return p.breaker
}

// Close closes the producer
func (p *Producer) Close() error {
	p.log.Infof("Closing producer for topic %s", p.topic)
	return p.writer.Close()
}
