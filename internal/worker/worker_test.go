package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/option-pricing-engine/internal/kafka"
	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/internal/store"
	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
)

type fakePublisher struct {
	envelopes []ResultEnvelope
	err       error
}

func (f *fakePublisher) ProduceJSON(ctx context.Context, key []byte, value interface{}, headers []kafka.MessageHeader) error {
	if f.err != nil {
		return f.err
	}
	f.envelopes = append(f.envelopes, value.(ResultEnvelope))
	return nil
}

type fakeBroadcaster struct {
	results []*models.PricingResult
}

func (f *fakeBroadcaster) BroadcastResult(result *models.PricingResult) {
	f.results = append(f.results, result)
}

func newTestWorker(pub *fakePublisher, bc *fakeBroadcaster) (*Worker, *store.InMemoryResultStore) {
	resultStore := store.NewInMemoryResultStore(100, 0)
	engines := pricing.NewBatchEngine(pricing.BatchConfig{Workers: 2}, nil)

	var broadcaster ResultBroadcaster
	if bc != nil {
		broadcaster = bc
	}

	cfg := Config{RequestTopic: "pricing.requests", ResultTopic: "pricing.results", GroupID: "test"}
	w := NewWorker(nil, cfg, engines, resultStore, broadcaster, nil)
	w.producer = pub
	return w, resultStore
}

func requestMessage(t *testing.T, req models.PricingRequest) *kafka.Message {
	t.Helper()
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	return &kafka.Message{Value: payload, Topic: "pricing.requests"}
}

func TestWorkerHandlesValidRequest(t *testing.T) {
	pub := &fakePublisher{}
	bc := &fakeBroadcaster{}
	w, resultStore := newTestWorker(pub, bc)

	req := models.PricingRequest{
		ID:    "req-1",
		Style: models.StyleEuropean, Side: models.SideCall,
		Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
	}

	err := w.handleMessage(context.Background(), requestMessage(t, req))
	require.NoError(t, err)

	require.Len(t, pub.envelopes, 1)
	env := pub.envelopes[0]
	assert.Equal(t, "req-1", env.RequestID)
	require.NotNil(t, env.Result)
	assert.Greater(t, env.Result.Price, 0.0)
	assert.Empty(t, env.Error)

	stored, err := resultStore.Get("req-1")
	require.NoError(t, err)
	assert.Equal(t, env.Result.Price, stored.Price)

	require.Len(t, bc.results, 1)
	assert.Equal(t, "req-1", bc.results[0].RequestID)
}

func TestWorkerAnswersRejectedRequestWithErrorEnvelope(t *testing.T) {
	pub := &fakePublisher{}
	w, resultStore := newTestWorker(pub, nil)

	req := models.PricingRequest{
		ID:    "bad-1",
		Style: models.StyleEuropean, Side: models.SideCall,
		Spot: -5, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
	}

	err := w.handleMessage(context.Background(), requestMessage(t, req))
	require.NoError(t, err, "rejected requests are committed, not retried")

	require.Len(t, pub.envelopes, 1)
	env := pub.envelopes[0]
	assert.Equal(t, "bad-1", env.RequestID)
	assert.Nil(t, env.Result)
	assert.Contains(t, env.Error, "spot")

	_, err = resultStore.Get("bad-1")
	assert.True(t, errors.IsType(err, errors.NotFound))
}

func TestWorkerDropsMalformedPayload(t *testing.T) {
	pub := &fakePublisher{}
	w, _ := newTestWorker(pub, nil)

	err := w.handleMessage(context.Background(), &kafka.Message{Value: []byte("{not json")})
	require.NoError(t, err)
	assert.Empty(t, pub.envelopes)
}

func TestWorkerLeavesMessageUncommittedOnPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.NetworkError("broker down")}
	w, _ := newTestWorker(pub, nil)

	req := models.PricingRequest{
		ID:    "req-2",
		Style: models.StyleEuropean, Side: models.SidePut,
		Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
	}

	err := w.handleMessage(context.Background(), requestMessage(t, req))
	require.Error(t, err)
}
