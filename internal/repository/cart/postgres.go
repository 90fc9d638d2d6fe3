package cart

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

func NewPostgres(pool *pgxpool.Pool, log *logger.Logger) Repository {
	if log == nil {
		log = logger.Nop()
	}
	return &postgresRepo{pool: pool, logger: log}
}

func (r *postgresRepo) Record(ctx context.Context, op domain.CartOperation) error {
	const q = `
INSERT INTO cart_operations (id, cart_id, merchandise_id, kind, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING
`
	if _, err := r.pool.Exec(ctx, q, op.ID, op.CartID, op.MerchandiseID, string(op.Kind), string(op.Status), op.CreatedAt); err != nil {
		r.logger.Error("cart operation repo: record", "operation_id", op.ID, "error", err)
		return err
	}
	return nil
}

func (r *postgresRepo) Complete(ctx context.Context, id string, status domain.OperationStatus, errText string, at time.Time) error {
	const q = `
UPDATE cart_operations
SET status = $1,
    error = NULLIF($2, ''),
    completed_at = $3
WHERE id = $4
`
	cmd, err := r.pool.Exec(ctx, q, string(status), errText, at, id)
	if err != nil {
		r.logger.Error("cart operation repo: complete", "operation_id", id, "error", err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) ListByCart(ctx context.Context, cartID string, limit int) ([]domain.CartOperation, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id::text, cart_id, merchandise_id, kind, status, COALESCE(error, ''), created_at, completed_at
FROM cart_operations
WHERE cart_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.pool.Query(ctx, q, cartID, limit)
	if err != nil {
		r.logger.Error("cart operation repo: list", "cart_id", cartID, "error", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.CartOperation
	for rows.Next() {
		var op domain.CartOperation
		var kind, status string
		if err := rows.Scan(&op.ID, &op.CartID, &op.MerchandiseID, &kind, &status, &op.Error, &op.CreatedAt, &op.CompletedAt); err != nil {
			return nil, err
		}
		op.Kind = domain.OperationKind(kind)
		op.Status = domain.OperationStatus(status)
		result = append(result, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("cart operation repo: list", "cart_id", cartID, "count", len(result))
	return result, nil
}
