package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
)

func result(id string, price float64) *models.PricingResult {
	return &models.PricingResult{RequestID: id, Price: price, ComputedAt: time.Now()}
}

func TestStoreSaveAndGet(t *testing.T) {
	s := NewInMemoryResultStore(10, 0)

	require.NoError(t, s.Save(result("a", 1.5)))

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 1.5, got.Price)
	assert.Equal(t, 1, s.Len())
}

func TestStoreGetMissing(t *testing.T) {
	s := NewInMemoryResultStore(10, 0)

	got, err := s.Get("nope")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.IsType(err, errors.NotFound))
}

func TestStoreRejectsBadResults(t *testing.T) {
	s := NewInMemoryResultStore(10, 0)

	err := s.Save(nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.InvalidParameter))

	err = s.Save(&models.PricingResult{Price: 1})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.InvalidParameter))
}

func TestStoreEvictsOldestBeyondCapacity(t *testing.T) {
	s := NewInMemoryResultStore(3, 0)

	for i := 0; i < 4; i++ {
		require.NoError(t, s.Save(result(fmt.Sprintf("r%d", i), float64(i))))
	}

	assert.Equal(t, 3, s.Len())

	_, err := s.Get("r0")
	assert.True(t, errors.IsType(err, errors.NotFound), "oldest result must be evicted")

	got, err := s.Get("r3")
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.Price)
}

func TestStoreOverwriteDoesNotGrow(t *testing.T) {
	s := NewInMemoryResultStore(10, 0)

	require.NoError(t, s.Save(result("a", 1)))
	require.NoError(t, s.Save(result("a", 2)))

	assert.Equal(t, 1, s.Len())
	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Price)
}

func TestStoreTTLExpiry(t *testing.T) {
	s := NewInMemoryResultStore(10, 10*time.Millisecond)

	require.NoError(t, s.Save(result("a", 1)))
	time.Sleep(25 * time.Millisecond)

	_, err := s.Get("a")
	assert.True(t, errors.IsType(err, errors.NotFound))

	// the next write sweeps the expired entry out of the store
	require.NoError(t, s.Save(result("b", 2)))
	assert.Equal(t, 1, s.Len())
}

func TestStoreGetRecentNewestFirst(t *testing.T) {
	s := NewInMemoryResultStore(10, 0)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Save(result(fmt.Sprintf("r%d", i), float64(i))))
	}

	recent := s.GetRecent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "r4", recent[0].RequestID)
	assert.Equal(t, "r3", recent[1].RequestID)
	assert.Equal(t, "r2", recent[2].RequestID)
}

func TestStoreDelete(t *testing.T) {
	s := NewInMemoryResultStore(10, 0)

	require.NoError(t, s.Save(result("a", 1)))
	require.NoError(t, s.Delete("a"))
	assert.Equal(t, 0, s.Len())

	err := s.Delete("a")
	assert.True(t, errors.IsType(err, errors.NotFound))
}

func TestStoreDeleteThenResaveListsOnce(t *testing.T) {
	s := NewInMemoryResultStore(10, 0)

	require.NoError(t, s.Save(result("a", 1)))
	require.NoError(t, s.Delete("a"))
	require.NoError(t, s.Save(result("a", 2)))

	recent := s.GetRecent(10)
	require.Len(t, recent, 1)
	assert.Equal(t, 2.0, recent[0].Price)
}
