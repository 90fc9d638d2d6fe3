package storefront

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

// PendingOp is an optimistic change whose remote counterpart has not finished.
type PendingOp struct {
	ID            string
	CartID        string
	MerchandiseID string
	Kind          domain.OperationKind
	// Quantity is the line quantity the change leads to (plus and minus only).
	Quantity    int
	Variant     domain.ProductVariant
	Product     domain.Product
	SubmittedAt time.Time
}

func (op PendingOp) apply(cart domain.Cart) domain.Cart {
	if op.Kind == domain.OperationAdd {
		return AddCartItem(&cart, op.Variant, op.Product)
	}
	return UpdateCartItem(&cart, op.MerchandiseID, domain.UpdateType(op.Kind))
}

// Store owns the snapshot of one cart session. Writers are serialized and each
// change is published as a whole new snapshot.
type Store struct {
	mu       sync.Mutex
	cart     domain.Cart
	pending  []PendingOp
	subs     map[int]chan domain.Cart
	nextSub  int
	lastUsed time.Time
	now      func() time.Time
}

// NewStore starts a session from an authoritative cart.
func NewStore(cart domain.Cart) *Store {
	s := &Store{
		cart: cart.Clone(),
		subs: make(map[int]chan domain.Cart),
		now:  time.Now,
	}
	s.lastUsed = s.now()
	return s
}

func (s *Store) CartID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.ID
}

func (s *Store) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.now()
	return s.cart.Clone()
}

// Pending returns the in-flight operations in submission order.
func (s *Store) Pending() []PendingOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PendingOp(nil), s.pending...)
}

// AddCartItem applies an optimistic add and queues it as pending.
func (s *Store) AddCartItem(variant domain.ProductVariant, product domain.Product) (domain.Cart, PendingOp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op := PendingOp{
		ID:            uuid.NewString(),
		CartID:        s.cart.ID,
		MerchandiseID: variant.ID,
		Kind:          domain.OperationAdd,
		Variant:       variant,
		Product:       product,
		SubmittedAt:   s.now(),
	}
	s.cart = AddCartItem(&s.cart, variant, product)
	s.pending = append(s.pending, op)
	s.touchAndPublishLocked()
	return s.cart.Clone(), op
}

// UpdateCartItem applies an optimistic plus, minus or delete. ok is false when
// no line holds merchandiseID; nothing is queued then.
func (s *Store) UpdateCartItem(merchandiseID string, updateType domain.UpdateType) (cart domain.Cart, op PendingOp, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart.LineIndex(merchandiseID) < 0 {
		return s.cart.Clone(), PendingOp{}, false
	}
	op = PendingOp{
		ID:            uuid.NewString(),
		CartID:        s.cart.ID,
		MerchandiseID: merchandiseID,
		Kind:          domain.OperationKindFor(updateType),
		Quantity:      TargetQuantity(s.cart, merchandiseID, updateType),
		SubmittedAt:   s.now(),
	}
	s.cart = UpdateCartItem(&s.cart, merchandiseID, updateType)
	s.pending = append(s.pending, op)
	s.touchAndPublishLocked()
	return s.cart.Clone(), op, true
}

// Settle drops a finished operation from the pending queue.
func (s *Store) Settle(opID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, op := range s.pending {
		if op.ID == opID {
			s.pending = append(s.pending[:i:i], s.pending[i+1:]...)
			return
		}
	}
}

// Replace installs an authoritative cart wholesale. Local changes not yet
// reflected by the platform are discarded from the snapshot.
func (s *Store) Replace(cart domain.Cart) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = cart.Clone()
	s.touchAndPublishLocked()
	return s.cart.Clone()
}

// Reconcile installs an authoritative cart with the still pending operations
// replayed on top of it.
func (s *Store) Reconcile(cart domain.Cart) (domain.Cart, LineDiff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, diff := Reconcile(s.cart, cart, s.pending)
	s.cart = next
	s.touchAndPublishLocked()
	return s.cart.Clone(), diff
}

// Subscribe delivers the current snapshot and then every new one until ctx
// ends. A slow reader only ever sees the newest snapshot.
func (s *Store) Subscribe(ctx context.Context) <-chan domain.Cart {
	ch := make(chan domain.Cart, 1)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.cart.Clone()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

func (s *Store) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed, len(s.pending) > 0 || len(s.subs) > 0
}

func (s *Store) touchAndPublishLocked() {
	s.lastUsed = s.now()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.cart.Clone()
	}
}
