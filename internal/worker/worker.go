package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rzzdr/option-pricing-engine/internal/kafka"
	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/internal/store"
	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// MetricsRecorder defines the interface for recording worker telemetry
type MetricsRecorder interface {
	RecordKafkaMessage(topic, status string)
	RecordKafkaLag(topic, groupID string, lag int64)
	SetResultStoreSize(size int)
}

// ResultBroadcaster pushes finished results to streaming subscribers
type ResultBroadcaster interface {
	BroadcastResult(result *models.PricingResult)
}

// resultPublisher is the slice of the Kafka producer the worker needs
type resultPublisher interface {
	ProduceJSON(ctx context.Context, key []byte, value interface{}, headers []kafka.MessageHeader) error
}

// ResultEnvelope is the message published on the results topic. Exactly
// one of Result and Error is set.
type ResultEnvelope struct {
	RequestID string                `json:"request_id"`
	Result    *models.PricingResult `json:"result,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// Config contains configuration for the pricing worker
type Config struct {
	RequestTopic string
	ResultTopic  string
	GroupID      string
	LagInterval  time.Duration
}

// Worker consumes pricing requests from the request topic, prices them
// on a pool of engines, and fans the results out to the result topic,
// the in-memory store and the websocket hub.
type Worker struct {
	kafkaClient *kafka.Client
	config      Config
	engines     *pricing.BatchEngine
	store       *store.InMemoryResultStore
	broadcaster ResultBroadcaster
	recorder    MetricsRecorder
	consumer    *kafka.Consumer
	producer    resultPublisher
	closer      interface{ Close() error }
	log         *logger.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewWorker creates a pricing worker. The broadcaster and recorder may
// be nil.
func NewWorker(
	kafkaClient *kafka.Client,
	config Config,
	engines *pricing.BatchEngine,
	resultStore *store.InMemoryResultStore,
	broadcaster ResultBroadcaster,
	recorder MetricsRecorder,
) *Worker {
	if config.LagInterval <= 0 {
		config.LagInterval = 15 * time.Second
	}

	return &Worker{
		kafkaClient: kafkaClient,
		config:      config,
		engines:     engines,
		store:       resultStore,
		broadcaster: broadcaster,
		recorder:    recorder,
		log:         logger.GetLogger("worker"),
	}
}

// Start creates the consumer and producer and launches the handler loop.
// The worker runs until ctx is canceled or Stop is called.
func (w *Worker) Start(ctx context.Context) error {
	w.log.Infof("Starting pricing worker on topic %s", w.config.RequestTopic)
	w.ctx, w.cancel = context.WithCancel(ctx)

	consumer, err := w.kafkaClient.NewConsumer(w.config.RequestTopic, &kafka.ConsumerConfig{
		GroupID: w.config.GroupID,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create request consumer")
	}

	producer, err := w.kafkaClient.NewProducer(w.config.ResultTopic)
	if err != nil {
		return errors.Wrap(err, "failed to create result producer")
	}

	w.consumer = consumer
	w.producer = producer
	w.closer = producer

	if err := consumer.Start(w.ctx, w.handleMessage); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.reportLag()

	return nil
}

// Stop shuts the worker down and waits for in-flight requests
func (w *Worker) Stop() error {
	w.log.Info("Stopping pricing worker")
	if w.cancel != nil {
		w.cancel()
	}

	if w.consumer != nil {
		if err := w.consumer.Stop(); err != nil {
			w.log.Errorf("Failed to stop consumer: %v", err)
		}
	}
	if w.closer != nil {
		if err := w.closer.Close(); err != nil {
			w.log.Errorf("Failed to close producer: %v", err)
		}
	}

	w.wg.Wait()
	return nil
}

// handleMessage prices one request message. Malformed and rejected
// requests are answered with an error envelope and committed; only a
// failed publish leaves the message uncommitted so it can be retried.
func (w *Worker) handleMessage(ctx context.Context, msg *kafka.Message) error {
	var req models.PricingRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		w.log.Errorf("Dropping malformed pricing request at offset %d: %v", msg.Offset, err)
		w.recordMessage("invalid")
		return nil
	}

	result, err := w.engines.Price(req)
	if err != nil {
		w.log.Warnf("Rejected pricing request %s: %v", req.ID, err)
		w.recordMessage("rejected")
		return w.publish(ctx, ResultEnvelope{RequestID: req.ID, Error: err.Error()})
	}

	if w.store != nil {
		if err := w.store.Save(result); err != nil {
			w.log.Errorf("Failed to store result %s: %v", result.RequestID, err)
		} else if w.recorder != nil {
			w.recorder.SetResultStoreSize(w.store.Len())
		}
	}

	if err := w.publish(ctx, ResultEnvelope{RequestID: result.RequestID, Result: result}); err != nil {
		return err
	}

	if w.broadcaster != nil {
		w.broadcaster.BroadcastResult(result)
	}

	w.recordMessage("success")
	return nil
}

func (w *Worker) publish(ctx context.Context, envelope ResultEnvelope) error {
	err := w.producer.ProduceJSON(ctx, []byte(envelope.RequestID), envelope, nil)
	if err != nil {
		w.recordMessage("publish_failed")
	}
	return err
}

func (w *Worker) recordMessage(status string) {
	if w.recorder != nil {
		w.recorder.RecordKafkaMessage(w.config.RequestTopic, status)
	}
}

// reportLag periodically records consumer lag and store size
func (w *Worker) reportLag() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.LagInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if w.recorder == nil {
				continue
			}
			if w.consumer != nil {
				w.recorder.RecordKafkaLag(w.config.RequestTopic, w.config.GroupID, w.consumer.Lag())
			}
			if w.store != nil {
				w.recorder.SetResultStoreSize(w.store.Len())
			}
		}
	}
}
