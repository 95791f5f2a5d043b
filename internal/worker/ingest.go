package worker

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/rzzdr/option-pricing-engine/internal/kafka"
	"github.com/rzzdr/option-pricing-engine/internal/store"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// IngestConfig contains configuration for a result ingest
type IngestConfig struct {
	ResultTopic string
	GroupID     string
}

// ResultIngest consumes the result topic and feeds the local result
// store and websocket hub. API instances run one each so results
// computed by remote workers become visible to their clients. Every
// instance must see every result, so each gets its own consumer group
// unless one is configured explicitly.
type ResultIngest struct {
	kafkaClient *kafka.Client
	config      IngestConfig
	store       *store.InMemoryResultStore
	broadcaster ResultBroadcaster
	recorder    MetricsRecorder
	consumer    *kafka.Consumer
	log         *logger.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewResultIngest creates a result ingest. The store, broadcaster and
// recorder may each be nil.
func NewResultIngest(
	kafkaClient *kafka.Client,
	config IngestConfig,
	resultStore *store.InMemoryResultStore,
	broadcaster ResultBroadcaster,
	recorder MetricsRecorder,
) *ResultIngest {
	if config.GroupID == "" {
		config.GroupID = "result-ingest-" + uuid.New().String()
	}

	return &ResultIngest{
		kafkaClient: kafkaClient,
		config:      config,
		store:       resultStore,
		broadcaster: broadcaster,
		recorder:    recorder,
		log:         logger.GetLogger("worker.ingest"),
	}
}

// Start begins consuming results. The ingest runs until ctx is canceled
// or Stop is called.
func (in *ResultIngest) Start(ctx context.Context) error {
	in.ctx, in.cancel = context.WithCancel(ctx)

	consumer, err := in.kafkaClient.NewConsumer(in.config.ResultTopic, &kafka.ConsumerConfig{
		GroupID: in.config.GroupID,
		// Old results are replayed from the store, not from the log
		StartOffset: "latest",
	})
	if err != nil {
		return err
	}
	in.consumer = consumer

	if err := consumer.Start(in.ctx, in.handleMessage); err != nil {
		return err
	}

	in.log.Infof("Result ingest started on topic %s (group %s)", in.config.ResultTopic, in.config.GroupID)
	return nil
}

// Stop stops consuming
func (in *ResultIngest) Stop() {
	if in.cancel != nil {
		in.cancel()
	}
	if in.consumer != nil {
		in.consumer.Stop()
	}
	in.log.Info("Result ingest stopped")
}

// handleMessage stores and pushes one result envelope. Error envelopes
// carry no result, so there is nothing to keep.
func (in *ResultIngest) handleMessage(ctx context.Context, msg *kafka.Message) error {
	var envelope ResultEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		in.log.Errorf("Dropping malformed result payload: %v", err)
		in.recordMessage("invalid")
		return nil
	}

	if envelope.Result == nil {
		in.recordMessage("skipped")
		return nil
	}

	if in.store != nil {
		if err := in.store.Save(envelope.Result); err != nil {
			in.log.Errorf("Failed to store result %s: %v", envelope.RequestID, err)
		} else if in.recorder != nil {
			in.recorder.SetResultStoreSize(in.store.Len())
		}
	}

	if in.broadcaster != nil {
		in.broadcaster.BroadcastResult(envelope.Result)
	}

	in.recordMessage("ingested")
	return nil
}

func (in *ResultIngest) recordMessage(status string) {
	if in.recorder != nil {
		in.recorder.RecordKafkaMessage(in.config.ResultTopic, status)
	}
}
