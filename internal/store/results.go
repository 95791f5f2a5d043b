package store

import (
	"sync"
	"time"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// DefaultCapacity bounds the store when no capacity is configured
const DefaultCapacity = 10000

// InMemoryResultStore keeps recently computed pricing results so they
// can be fetched again by request ID. The store is bounded: once the
// capacity is reached the oldest results are evicted, and results older
// than the TTL expire. A TTL of zero disables expiry.
type InMemoryResultStore struct {
	results  map[string]storedResult
	order    []string
	capacity int
	ttl      time.Duration
	mu       sync.RWMutex
	log      *logger.Logger
}

type storedResult struct {
	result   *models.PricingResult
	storedAt time.Time
}

// NewInMemoryResultStore creates a new in-memory result store
func NewInMemoryResultStore(capacity int, ttl time.Duration) *InMemoryResultStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &InMemoryResultStore{
		results:  make(map[string]storedResult),
		capacity: capacity,
		ttl:      ttl,
		log:      logger.GetLogger("store.results"),
	}
}

// Save stores a result under its request ID
func (s *InMemoryResultStore) Save(result *models.PricingResult) error {
	if result == nil {
		return errors.InvalidParameterError("cannot save nil result")
	}
	if result.RequestID == "" {
		return errors.InvalidParameterError("result request ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpired()

	if _, exists := s.results[result.RequestID]; !exists {
		s.order = append(s.order, result.RequestID)
	}
	s.results[result.RequestID] = storedResult{result: result, storedAt: time.Now()}

	for len(s.results) > s.capacity {
		s.evictOldest()
	}
	return nil
}

// Get retrieves a result by request ID
func (s *InMemoryResultStore) Get(requestID string) (*models.PricingResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.results[requestID]
	if !exists || s.expired(entry) {
		return nil, errors.NotFoundErrorf("result not found: %s", requestID)
	}
	return entry.result, nil
}

// GetRecent returns up to limit results, newest first
func (s *InMemoryResultStore) GetRecent(limit int) []*models.PricingResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*models.PricingResult, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(results) < limit; i-- {
		entry, exists := s.results[s.order[i]]
		if !exists || s.expired(entry) {
			continue
		}
		results = append(results, entry.result)
	}
	return results
}

// Delete removes a result by request ID
func (s *InMemoryResultStore) Delete(requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.results[requestID]; !exists {
		return errors.NotFoundErrorf("result not found: %s", requestID)
	}
	delete(s.results, requestID)
	for i, id := range s.order {
		if id == requestID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored results
func (s *InMemoryResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

func (s *InMemoryResultStore) expired(entry storedResult) bool {
	return s.ttl > 0 && time.Since(entry.storedAt) > s.ttl
}

// purgeExpired drops expired entries from the front of the insertion
// order; callers must hold the write lock
func (s *InMemoryResultStore) purgeExpired() {
	if s.ttl <= 0 {
		return
	}
	for len(s.order) > 0 {
		id := s.order[0]
		entry, exists := s.results[id]
		if exists && !s.expired(entry) {
			break
		}
		if exists {
			delete(s.results, id)
		}
		s.order = s.order[1:]
	}
}

// evictOldest removes the oldest stored result; callers must hold the
// write lock
func (s *InMemoryResultStore) evictOldest() {
	for len(s.order) > 0 {
		id := s.order[0]
		s.order = s.order[1:]
		if _, exists := s.results[id]; exists {
			delete(s.results, id)
			s.log.Debugf("Evicted result %s", id)
			return
		}
	}
}
