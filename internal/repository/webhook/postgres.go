package webhook

import (
	"context"

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

func (r *postgresRepo) Record(ctx context.Context, event domain.WebhookEvent) (domain.WebhookEvent, error) {
	const q = `
INSERT INTO webhook_events (topic, authorized, revalidated, received_at)
VALUES ($1, $2, $3, $4)
RETURNING id
`
	if err := r.pool.QueryRow(ctx, q, event.Topic, event.Authorized, event.Revalidated, event.ReceivedAt).Scan(&event.ID); err != nil {
		r.logger.Error("webhook repo: record", "topic", event.Topic, "error", err)
		return domain.WebhookEvent{}, err
	}
	return event, nil
}

func (r *postgresRepo) ListRecent(ctx context.Context, limit int) ([]domain.WebhookEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, topic, authorized, revalidated, received_at
FROM webhook_events
ORDER BY received_at DESC, id DESC
LIMIT $1
`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WebhookEvent
	for rows.Next() {
		var e domain.WebhookEvent
		if err := rows.Scan(&e.ID, &e.Topic, &e.Authorized, &e.Revalidated, &e.ReceivedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
