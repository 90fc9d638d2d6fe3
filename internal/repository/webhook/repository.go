package webhook

import (
	"context"

	"storefront/internal/domain"
)

// Repository stores deliveries to the revalidation webhook.
type Repository interface {
	Record(ctx context.Context, event domain.WebhookEvent) (domain.WebhookEvent, error)
	ListRecent(ctx context.Context, limit int) ([]domain.WebhookEvent, error)
}
