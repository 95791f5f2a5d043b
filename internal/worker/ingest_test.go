package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/option-pricing-engine/internal/kafka"
	"github.com/rzzdr/option-pricing-engine/internal/store"
	"github.com/rzzdr/option-pricing-engine/pkg/models"
)

func newTestIngest(t *testing.T, resultStore *store.InMemoryResultStore, bc *fakeBroadcaster) *ResultIngest {
	t.Helper()

	var broadcaster ResultBroadcaster
	if bc != nil {
		broadcaster = bc
	}
	return NewResultIngest(nil, IngestConfig{ResultTopic: "pricing.results"}, resultStore, broadcaster, nil)
}

func envelopeMessage(t *testing.T, envelope ResultEnvelope) *kafka.Message {
	t.Helper()

	payload, err := json.Marshal(envelope)
	require.NoError(t, err)
	return &kafka.Message{Topic: "pricing.results", Value: payload}
}

func TestIngestStoresAndBroadcastsResult(t *testing.T) {
	resultStore := store.NewInMemoryResultStore(10, 0)
	bc := &fakeBroadcaster{}
	ingest := newTestIngest(t, resultStore, bc)

	result := &models.PricingResult{RequestID: "req-1", Price: 4.2}
	msg := envelopeMessage(t, ResultEnvelope{RequestID: "req-1", Result: result})

	require.NoError(t, ingest.handleMessage(context.Background(), msg))

	stored, err := resultStore.Get("req-1")
	require.NoError(t, err)
	assert.InDelta(t, 4.2, stored.Price, 1e-12)

	require.Len(t, bc.results, 1)
	assert.Equal(t, "req-1", bc.results[0].RequestID)
}

func TestIngestSkipsErrorEnvelopes(t *testing.T) {
	resultStore := store.NewInMemoryResultStore(10, 0)
	bc := &fakeBroadcaster{}
	ingest := newTestIngest(t, resultStore, bc)

	msg := envelopeMessage(t, ResultEnvelope{RequestID: "req-2", Error: "spot must be positive"})

	require.NoError(t, ingest.handleMessage(context.Background(), msg))
	assert.Equal(t, 0, resultStore.Len())
	assert.Empty(t, bc.results)
}

func TestIngestDropsMalformedPayload(t *testing.T) {
	resultStore := store.NewInMemoryResultStore(10, 0)
	ingest := newTestIngest(t, resultStore, nil)

	msg := &kafka.Message{Topic: "pricing.results", Value: []byte("{not json")}

	require.NoError(t, ingest.handleMessage(context.Background(), msg))
	assert.Equal(t, 0, resultStore.Len())
}

func TestIngestGeneratesUniqueGroupIDs(t *testing.T) {
	first := NewResultIngest(nil, IngestConfig{ResultTopic: "pricing.results"}, nil, nil, nil)
	second := NewResultIngest(nil, IngestConfig{ResultTopic: "pricing.results"}, nil, nil, nil)

	assert.NotEmpty(t, first.config.GroupID)
	assert.NotEqual(t, first.config.GroupID, second.config.GroupID,
		"each ingest must get its own consumer group so every instance sees every result")
}

func TestIngestKeepsConfiguredGroupID(t *testing.T) {
	ingest := NewResultIngest(nil, IngestConfig{ResultTopic: "pricing.results", GroupID: "fixed"}, nil, nil, nil)
	assert.Equal(t, "fixed", ingest.config.GroupID)
}
