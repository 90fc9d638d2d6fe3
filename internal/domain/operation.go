package domain

import "time"

// OperationKind is the cart mutation a journal entry records.
type OperationKind string

const (
	OperationAdd    OperationKind = "add"
	OperationPlus   OperationKind = "plus"
	OperationMinus  OperationKind = "minus"
	OperationDelete OperationKind = "delete"
)

func OperationKindFor(t UpdateType) OperationKind {
	return OperationKind(t)
}

type OperationStatus string

const (
	OperationPending   OperationStatus = "pending"
	OperationConfirmed OperationStatus = "confirmed"
	OperationFailed    OperationStatus = "failed"
)

// CartOperation is one remote mutation issued on behalf of an optimistic change.
type CartOperation struct {
	ID            string          `json:"id"`
	CartID        string          `json:"cartId"`
	MerchandiseID string          `json:"merchandiseId"`
	Kind          OperationKind   `json:"kind"`
	Status        OperationStatus `json:"status"`
	Error         string          `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
}

// WebhookEvent records one delivery to the revalidation endpoint.
type WebhookEvent struct {
	ID          int64     `json:"id"`
	Topic       string    `json:"topic"`
	Authorized  bool      `json:"authorized"`
	Revalidated bool      `json:"revalidated"`
	ReceivedAt  time.Time `json:"receivedAt"`
}
