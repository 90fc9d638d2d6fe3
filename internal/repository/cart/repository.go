package cart

import (
	"context"
	"time"

	"storefront/internal/domain"
)

// Repository journals the remote operations issued for cart sessions.
type Repository interface {
	Record(ctx context.Context, op domain.CartOperation) error
	Complete(ctx context.Context, id string, status domain.OperationStatus, errText string, at time.Time) error
	ListByCart(ctx context.Context, cartID string, limit int) ([]domain.CartOperation, error)
}
