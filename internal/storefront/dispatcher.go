package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

var ErrDispatcherClosed = errors.New("dispatcher closed")

// Remote performs the platform side of each cart change.
type Remote interface {
	AddItem(ctx context.Context, cartID, merchandiseID string) (*domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, cartID, merchandiseID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, cartID, merchandiseID string) (*domain.Cart, error)
	Cart(ctx context.Context, cartID string) (*domain.Cart, error)
}

type Journal interface {
	Record(ctx context.Context, op domain.CartOperation) error
	Complete(ctx context.Context, id string, status domain.OperationStatus, errText string, at time.Time) error
}

type Publisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
}

type Recorder interface {
	ObserveCartOperation(kind, status string, elapsed time.Duration)
}

// OperationEvent is published once per finished remote operation.
type OperationEvent struct {
	Type          string    `json:"type"`
	OperationID   string    `json:"operationId"`
	CartID        string    `json:"cartId"`
	MerchandiseID string    `json:"merchandiseId"`
	Kind          string    `json:"kind"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	At            time.Time `json:"at"`
}

type DispatcherConfig struct {
	// Merge reconciles each remote response into the session. When unset the
	// response is dropped and the next authoritative read wins.
	Merge bool
	// RollbackOnFailure reloads the authoritative cart after a failed operation.
	RollbackOnFailure bool
}

type job struct {
	store *Store
	op    PendingOp
}

type cartQueue struct {
	jobs []job
}

// Dispatcher runs the remote counterpart of every optimistic change. Each cart
// gets its own worker so remote calls for one cart happen in submission order;
// the caller never waits for them.
type Dispatcher struct {
	remote   Remote
	journal  Journal
	events   Publisher
	metrics  Recorder
	logger   *logger.Logger
	cfg      DispatcherConfig
	now      func() time.Time
	mu       sync.Mutex
	queues   map[string]*cartQueue
	inflight sync.WaitGroup
	closed   bool
}

func NewDispatcher(remote Remote, journal Journal, events Publisher, metrics Recorder, log *logger.Logger, cfg DispatcherConfig) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		remote:  remote,
		journal: journal,
		events:  events,
		metrics: metrics,
		logger:  log,
		cfg:     cfg,
		now:     time.Now,
		queues:  make(map[string]*cartQueue),
	}
}

// Submit queues op for the cart held by store.
func (d *Dispatcher) Submit(store *Store, op PendingOp) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	q, running := d.queues[op.CartID]
	if !running {
		q = &cartQueue{}
		d.queues[op.CartID] = q
	}
	q.jobs = append(q.jobs, job{store: store, op: op})
	if !running {
		d.inflight.Add(1)
		go d.drain(op.CartID, q)
	}
	return nil
}

// Close stops accepting work and waits for queued operations until ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) drain(cartID string, q *cartQueue) {
	defer d.inflight.Done()
	for {
		d.mu.Lock()
		if len(q.jobs) == 0 {
			delete(d.queues, cartID)
			d.mu.Unlock()
			return
		}
		next := q.jobs[0]
		q.jobs = q.jobs[1:]
		d.mu.Unlock()

		d.execute(next)
	}
}

func (d *Dispatcher) execute(j job) {
	// Remote calls outlive the request that caused them.
	ctx := context.Background()
	op := j.op
	log := d.logger.With("cart_id", op.CartID, "operation_id", op.ID, "kind", string(op.Kind), "merchandise_id", op.MerchandiseID)
	start := d.now()

	d.record(ctx, log, domain.CartOperation{
		ID:            op.ID,
		CartID:        op.CartID,
		MerchandiseID: op.MerchandiseID,
		Kind:          op.Kind,
		Status:        domain.OperationPending,
		CreatedAt:     op.SubmittedAt,
	})

	cart, err := d.call(ctx, op)
	j.store.Settle(op.ID)

	status := domain.OperationConfirmed
	errText := ""
	if err != nil {
		status = domain.OperationFailed
		errText = err.Error()
		log.Warn("cart operation failed", "error", err)
		if d.cfg.RollbackOnFailure {
			d.rollback(ctx, log, j.store, op.CartID)
		}
	} else {
		log.Debug("cart operation confirmed")
		if d.cfg.Merge && cart != nil {
			_, diff := j.store.Reconcile(*cart)
			if !diff.IsEmpty() {
				log.Debug("cart reconciled", "added", len(diff.ToAdd), "updated", len(diff.ToUpdate), "removed", len(diff.ToRemove))
			}
		}
	}

	finished := d.now()
	if d.journal != nil {
		if jerr := d.journal.Complete(ctx, op.ID, status, errText, finished); jerr != nil {
			log.Error("journal complete failed", "error", jerr)
		}
	}
	if d.metrics != nil {
		d.metrics.ObserveCartOperation(string(op.Kind), string(status), finished.Sub(start))
	}
	if d.events != nil {
		event := OperationEvent{
			Type:          "cart.operation." + string(status),
			OperationID:   op.ID,
			CartID:        op.CartID,
			MerchandiseID: op.MerchandiseID,
			Kind:          string(op.Kind),
			Status:        string(status),
			Error:         errText,
			At:            finished,
		}
		if perr := d.events.Publish(ctx, op.CartID, event); perr != nil {
			log.Warn("publish cart event failed", "error", perr)
		}
	}
}

func (d *Dispatcher) call(ctx context.Context, op PendingOp) (*domain.Cart, error) {
	switch op.Kind {
	case domain.OperationAdd:
		return d.remote.AddItem(ctx, op.CartID, op.MerchandiseID)
	case domain.OperationPlus, domain.OperationMinus:
		return d.remote.UpdateItemQuantity(ctx, op.CartID, op.MerchandiseID, op.Quantity)
	case domain.OperationDelete:
		return d.remote.RemoveItem(ctx, op.CartID, op.MerchandiseID)
	default:
		return nil, domain.ErrUnknownUpdateType
	}
}

func (d *Dispatcher) rollback(ctx context.Context, log *logger.Logger, store *Store, cartID string) {
	cart, err := d.remote.Cart(ctx, cartID)
	if err != nil {
		log.Error("rollback reload failed", "error", err)
		return
	}
	if cart == nil {
		log.Warn("rollback skipped, cart no longer exists")
		return
	}
	store.Reconcile(*cart)
	log.Info("cart rolled back to authoritative state")
}

func (d *Dispatcher) record(ctx context.Context, log *logger.Logger, op domain.CartOperation) {
	if d.journal == nil {
		return
	}
	if err := d.journal.Record(ctx, op); err != nil {
		log.Error("journal record failed", "error", err)
	}
}
