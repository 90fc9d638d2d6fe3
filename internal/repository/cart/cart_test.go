package cart

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
	"storefront/internal/migrate"
)

func TestMemoryRecordCompleteList(t *testing.T) {
	exerciseRepository(t, NewMemory())
}

func TestMemoryCompleteUnknown(t *testing.T) {
	repo := NewMemory()
	err := repo.Complete(context.Background(), "nope", domain.OperationConfirmed, "", time.Now())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresRecordCompleteList(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE cart_operations`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	exerciseRepository(t, NewPostgres(pool, nil))
}

func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	first := domain.CartOperation{
		ID: uuid.NewString(), CartID: "c1", MerchandiseID: "v1",
		Kind: domain.OperationAdd, Status: domain.OperationPending, CreatedAt: base,
	}
	second := domain.CartOperation{
		ID: uuid.NewString(), CartID: "c1", MerchandiseID: "v1",
		Kind: domain.OperationMinus, Status: domain.OperationPending, CreatedAt: base.Add(time.Second),
	}
	other := domain.CartOperation{
		ID: uuid.NewString(), CartID: "c2", MerchandiseID: "v9",
		Kind: domain.OperationDelete, Status: domain.OperationPending, CreatedAt: base,
	}
	for _, op := range []domain.CartOperation{first, second, other} {
		if err := repo.Record(ctx, op); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := repo.Complete(ctx, first.ID, domain.OperationConfirmed, "", base.Add(2*time.Second)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := repo.Complete(ctx, second.ID, domain.OperationFailed, "boom", base.Add(3*time.Second)); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	ops, err := repo.ListByCart(ctx, "c1", 10)
	if err != nil {
		t.Fatalf("ListByCart: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(ops))
	}
	if ops[0].ID != second.ID || ops[0].Status != domain.OperationFailed || ops[0].Error != "boom" {
		t.Fatalf("unexpected newest operation %+v", ops[0])
	}
	if ops[1].Status != domain.OperationConfirmed || ops[1].CompletedAt == nil {
		t.Fatalf("unexpected oldest operation %+v", ops[1])
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return pool
}
