package cart

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain"
)

type memoryRepo struct {
	mu  sync.Mutex
	ops map[string]domain.CartOperation
}

// NewMemory keeps the journal in process, for runs without a database.
func NewMemory() Repository {
	return &memoryRepo{ops: make(map[string]domain.CartOperation)}
}

func (r *memoryRepo) Record(_ context.Context, op domain.CartOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ops[op.ID]; ok {
		return nil
	}
	r.ops[op.ID] = op
	return nil
}

func (r *memoryRepo) Complete(_ context.Context, id string, status domain.OperationStatus, errText string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	op, ok := r.ops[id]
	if !ok {
		return domain.ErrNotFound
	}
	op.Status = status
	op.Error = errText
	op.CompletedAt = &at
	r.ops[id] = op
	return nil
}

func (r *memoryRepo) ListByCart(_ context.Context, cartID string, limit int) ([]domain.CartOperation, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.CartOperation
	for _, op := range r.ops {
		if op.CartID == cartID {
			result = append(result, op)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
