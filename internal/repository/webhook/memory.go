package webhook

import (
	"context"
	"sync"

	"storefront/internal/domain"
)

type memoryRepo struct {
	mu     sync.Mutex
	nextID int64
	events []domain.WebhookEvent
}

func NewMemory() Repository {
	return &memoryRepo{}
}

func (r *memoryRepo) Record(_ context.Context, event domain.WebhookEvent) (domain.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	event.ID = r.nextID
	r.events = append(r.events, event)
	return event, nil
}

func (r *memoryRepo) ListRecent(_ context.Context, limit int) ([]domain.WebhookEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.WebhookEvent, 0, limit)
	for i := len(r.events) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, r.events[i])
	}
	return result, nil
}
