package history

import (
	"context"
	"sync"

	"github.com/yanqian/content-digest/internal/domain/digest"
)

const defaultCapacity = 500

// MemoryRepository keeps the most recent results in process memory.
// The oldest entry is evicted once capacity is reached.
type MemoryRepository struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	records  map[string]digest.Result
}

// NewMemoryRepository constructs a bounded repository.
func NewMemoryRepository(capacity int) *MemoryRepository {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryRepository{
		capacity: capacity,
		order:    make([]string, 0, capacity),
		records:  make(map[string]digest.Result, capacity),
	}
}

// Save implements digest.HistoryRepository.
func (r *MemoryRepository) Save(_ context.Context, result digest.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[result.ID]; exists {
		r.records[result.ID] = result
		return nil
	}
	if len(r.order) >= r.capacity {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.records, oldest)
	}
	r.order = append(r.order, result.ID)
	r.records[result.ID] = result
	return nil
}

// Get implements digest.HistoryRepository.
func (r *MemoryRepository) Get(_ context.Context, id string) (digest.Result, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.records[id]
	return result, ok, nil
}

// ListRecent returns up to limit results, newest first.
func (r *MemoryRepository) ListRecent(_ context.Context, limit int) ([]digest.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.order) {
		limit = len(r.order)
	}
	out := make([]digest.Result, 0, limit)
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.records[r.order[i]])
	}
	return out, nil
}

var _ digest.HistoryRepository = (*MemoryRepository)(nil)
