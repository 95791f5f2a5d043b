package kafka

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/rzzdr/option-pricing-engine/pkg/utils/circuit"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// Client configuration options
type Config struct {
	Brokers        []string
	GroupID        string
	StartOffset    string
	MinBytes       int
	MaxBytes       int
	MaxWait        time.Duration
	CommitInterval time.Duration
	RequiredAcks   string
	Compression    string
	BatchSize      int
	BatchTimeout   time.Duration
	MaxAttempts    int
	DefaultTimeout time.Duration
}

// ConsumerConfig overrides per-consumer settings
type ConsumerConfig struct {
	GroupID     string
	StartOffset string
}

// Message represents a Kafka message
type Message struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Headers   []MessageHeader
}

// MessageHeader represents a Kafka message header
type MessageHeader struct {
	Key   string
	Value []byte
}

// Client builds producers and consumers that share one broker configuration
type Client struct {
	config   *Config
	breakers *circuit.Manager
	log      *logger.Logger
}

// NewClient creates a new Kafka client
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if len(config.Brokers) == 0 {
		return nil, errors.InvalidParameterError("at least one Kafka broker is required")
	}

	return &Client{
		config:   config,
		breakers: circuit.NewManager(),
		log:      logger.GetLogger("kafka.client"),
	}, nil
}

// BreakerStats reports the state of every producer circuit breaker.
func (c *Client) BreakerStats() map[string]circuit.Stats {
	return c.breakers.GetBreakerStats()
}

// NewProducer creates a producer for one topic. Writes go through a
// circuit breaker so a dead broker sheds load fast instead of blocking
// every caller for the full write timeout.
func (c *Client) NewProducer(topic string) (*Producer, error) {
	if topic == "" {
		return nil, errors.InvalidParameterError("producer topic cannot be empty")
	}

	log := logger.GetLogger("kafka.producer")
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(c.config.Brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: parseRequiredAcks(c.config.RequiredAcks),
		Compression:  parseCompression(c.config.Compression),
		BatchSize:    c.config.BatchSize,
		BatchTimeout: c.config.BatchTimeout,
		MaxAttempts:  c.config.MaxAttempts,
		WriteTimeout: c.config.DefaultTimeout,
		ErrorLogger:  kafkago.LoggerFunc(log.Errorf),
	}

	// Producers for the same topic share one breaker
	breaker := c.breakers.GetBreaker(fmt.Sprintf("kafka-producer-%s", topic), circuit.DefaultConfig())

	return &Producer{
		writer:  writer,
		breaker: breaker,
		topic:   topic,
		log:     log,
	}, nil
}

// NewConsumer creates a group consumer for one topic
func (c *Client) NewConsumer(topic string, overrides *ConsumerConfig) (*Consumer, error) {
	if topic == "" {
		return nil, errors.InvalidParameterError("consumer topic cannot be empty")
	}

	groupID := c.config.GroupID
	startOffset := c.config.StartOffset
	if overrides != nil {
		if overrides.GroupID != "" {
			groupID = overrides.GroupID
		}
		if overrides.StartOffset != "" {
			startOffset = overrides.StartOffset
		}
	}

	log := logger.GetLogger("kafka.consumer")
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        c.config.Brokers,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       c.config.MinBytes,
		MaxBytes:       c.config.MaxBytes,
		MaxWait:        c.config.MaxWait,
		CommitInterval: c.config.CommitInterval,
		StartOffset:    parseStartOffset(startOffset),
		ErrorLogger:    kafkago.LoggerFunc(log.Errorf),
	})

	return &Consumer{
		reader:  reader,
		topic:   topic,
		groupID: groupID,
		log:     log,
	}, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Brokers:        []string{"localhost:9092"},
		GroupID:        "option-pricing-group",
		StartOffset:    "earliest",
		MinBytes:       1,
		MaxBytes:       10 << 20,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: time.Second,
		RequiredAcks:   "all",
		Compression:    "snappy",
		BatchSize:      100,
		BatchTimeout:   5 * time.Millisecond,
		MaxAttempts:    3,
		DefaultTimeout: 10 * time.Second,
	}
}

// EnsureTopicExists creates a topic on the controller broker if it does
// not exist yet. Existing topics are left untouched.
func (c *Client) EnsureTopicExists(ctx context.Context, topic string, partitions, replicationFactor int) error {
	conn, err := kafkago.DialContext(ctx, "tcp", c.config.Brokers[0])
	if err != nil {
		return errors.Wrapf(err, "failed to dial broker %s", c.config.Brokers[0])
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return errors.Wrap(err, "failed to resolve controller broker")
	}

	controllerConn, err := kafkago.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return errors.Wrap(err, "failed to dial controller broker")
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create topic %s", topic)
	}

	c.log.Infof("Ensured topic %s exists with %d partitions", topic, partitions)
	return nil
}

// Close closes the client. Producers and consumers created from the
// client hold their own connections and are closed separately.
func (c *Client) Close() error {
	c.log.Info("Closing Kafka client")
	return nil
}

func parseRequiredAcks(s string) kafkago.RequiredAcks {
	switch strings.ToLower(s) {
	case "none", "0":
		return kafkago.RequireNone
	case "one", "1", "leader":
		return kafkago.RequireOne
	default:
		return kafkago.RequireAll
	}
}

func parseCompression(s string) kafkago.Compression {
	switch strings.ToLower(s) {
	case "gzip":
		return kafkago.Gzip
	case "lz4":
		return kafkago.Lz4
	case "zstd":
		return kafkago.Zstd
	case "none", "":
		return 0
	default:
		return kafkago.Snappy
	}
}

func parseStartOffset(s string) int64 {
	if strings.ToLower(s) == "latest" {
		return kafkago.LastOffset
	}
	return kafkago.FirstOffset
}

func toKafkaHeaders(headers []MessageHeader) []kafkago.Header {
	if len(headers) == 0 {
		return nil
	}
	converted := make([]kafkago.Header, len(headers))
	for i, h := range headers {
		converted[i] = kafkago.Header{Key: h.Key, Value: h.Value}
	}
	return converted
}

func fromKafkaMessage(m kafkago.Message) *Message {
	msg := &Message{
		Key:       m.Key,
		Value:     m.Value,
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Timestamp: m.Time,
	}
	if len(m.Headers) > 0 {
		msg.Headers = make([]MessageHeader, len(m.Headers))
		for i, h := range m.Headers {
			msg.Headers[i] = MessageHeader{Key: h.Key, Value: h.Value}
		}
	}
	return msg
}
