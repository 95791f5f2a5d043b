package kafka

import (
	"context"
	"io"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// MessageHandler is a function that processes Kafka messages
type MessageHandler func(ctx context.Context, msg *Message) error

// Consumer wraps a Kafka reader with a handler loop
type Consumer struct {
	reader  *kafkago.Reader
	topic   string
	groupID string
	log     *logger.Logger
	wg      sync.WaitGroup
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// ConsumeMessage reads and commits a single message
func (c *Consumer) ConsumeMessage(ctx context.Context) (*Message, error) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read message from %s", c.topic)
	}
	return fromKafkaMessage(m), nil
}

// Start launches the handler loop. Messages whose handler fails are not
// committed, so they are delivered again after a restart or rebalance.
func (c *Consumer) Start(ctx context.Context, handler MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return errors.AlreadyExistsError("consumer already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.run(ctx, handler)
	return nil
}

func (c *Consumer) run(ctx context.Context, handler MessageHandler) {
	defer c.wg.Done()
	c.log.Infof("Consumer started for topic %s, group %s", c.topic, c.groupID)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || err == io.EOF {
				c.log.Infof("Consumer for topic %s stopped", c.topic)
				return
			}
			c.log.Errorf("Failed to fetch message: %v", err)
			continue
		}

		if err := handler(ctx, fromKafkaMessage(m)); err != nil {
			c.log.Errorf("Failed to handle message at offset %d: %v", m.Offset, err)
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.log.Errorf("Failed to commit offset %d: %v", m.Offset, err)
		}
	}
}

// Stop cancels the handler loop and closes the reader
func (c *Consumer) Stop() error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	err := c.reader.Close()
	c.wg.Wait()
	if err != nil {
		return errors.Wrapf(err, "failed to close reader for %s", c.topic)
	}
	return nil
}

// Lag returns the consumer's lag behind the head of the topic
func (c *Consumer) Lag() int64 {
	return c.reader.Stats().Lag
}
