package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/shopify"
	"storefront/internal/storefront"
)

type stubCatalog struct {
	mu            sync.Mutex
	products      map[string]*domain.Product
	list          []domain.Product
	listErr       error
	lastQuery     shopify.ProductsQuery
	revalidated   []string
	revalidateErr error
}

func (s *stubCatalog) List(_ context.Context, q shopify.ProductsQuery) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = q
	return s.list, s.listErr
}

func (s *stubCatalog) Get(_ context.Context, handle string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[handle]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *stubCatalog) Recommendations(_ context.Context, productID string) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Product
	for _, p := range s.products {
		if p.ID != productID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubCatalog) Revalidate(_ context.Context, tag string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revalidateErr != nil {
		return 0, s.revalidateErr
	}
	s.revalidated = append(s.revalidated, tag)
	return 3, nil
}

func (s *stubCatalog) Warm(context.Context, ...shopify.ProductsQuery) error {
	return nil
}

type stubCarts struct {
	mu      sync.Mutex
	carts   map[string]*domain.Cart
	created int
	reads   int
	err     error
	// onRead runs before each remote read, outside the lock.
	onRead func(cartID string)
}

func newStubCarts(carts ...domain.Cart) *stubCarts {
	s := &stubCarts{carts: make(map[string]*domain.Cart)}
	for i := range carts {
		s.carts[carts[i].ID] = &carts[i]
	}
	return s
}

func (s *stubCarts) Cart(_ context.Context, cartID string) (*domain.Cart, error) {
	if s.onRead != nil {
		s.onRead(cartID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	cart, ok := s.carts[cartID]
	if !ok {
		return nil, nil
	}
	clone := cart.Clone()
	return &clone, nil
}

func (s *stubCarts) CreateCart(_ context.Context) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.created++
	cart := domain.EmptyCart()
	cart.ID = fmt.Sprintf("cart-new-%d", s.created)
	cart.CheckoutURL = "https://shop.example.com/checkouts/" + cart.ID
	s.carts[cart.ID] = &cart
	clone := cart.Clone()
	return &clone, nil
}

func (s *stubCarts) Open(ctx context.Context, cartID string) (*domain.Cart, bool, error) {
	if cartID != "" {
		cart, err := s.Cart(ctx, cartID)
		if err != nil {
			return nil, false, err
		}
		if cart != nil {
			return cart, false, nil
		}
	}
	cart, err := s.CreateCart(ctx)
	return cart, err == nil, err
}

func (s *stubCarts) CheckoutURL(ctx context.Context, cartID string) (string, error) {
	if cartID == "" {
		return "", domain.ErrMissingCartID
	}
	cart, err := s.Cart(ctx, cartID)
	if err != nil {
		return "", err
	}
	if cart == nil {
		return "", domain.ErrNotFound
	}
	return cart.CheckoutURL, nil
}

type stubDispatcher struct {
	mu  sync.Mutex
	ops []storefront.PendingOp
	err error
}

func (s *stubDispatcher) Submit(_ *storefront.Store, op storefront.PendingOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.ops = append(s.ops, op)
	return nil
}

func (s *stubDispatcher) kinds() []domain.OperationKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.OperationKind
	for _, op := range s.ops {
		out = append(out, op.Kind)
	}
	return out
}

type stubOperations struct {
	ops       []domain.CartOperation
	lastCart  string
	lastLimit int
}

func (s *stubOperations) ListByCart(_ context.Context, cartID string, limit int) ([]domain.CartOperation, error) {
	s.lastCart = cartID
	s.lastLimit = limit
	return s.ops, nil
}

type stubWebhooks struct {
	mu     sync.Mutex
	events []domain.WebhookEvent
}

func (s *stubWebhooks) Record(_ context.Context, event domain.WebhookEvent) (domain.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.ID = int64(len(s.events) + 1)
	s.events = append(s.events, event)
	return event, nil
}

type stubEvents struct {
	mu   sync.Mutex
	keys []string
}

func (s *stubEvents) Publish(_ context.Context, key string, _ interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return nil
}

type testEnv struct {
	router     *gin.Engine
	catalog    *stubCatalog
	carts      *stubCarts
	sessions   *storefront.Registry
	dispatcher *stubDispatcher
	operations *stubOperations
	webhooks   *stubWebhooks
	events     *stubEvents
}

func newTestEnv(t *testing.T, log *logger.Logger, carts ...domain.Cart) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if log == nil {
		log = logger.Nop()
	}
	env := &testEnv{
		catalog: &stubCatalog{products: map[string]*domain.Product{
			"tee":    testProduct("p-tee", "tee", true, testVariant("v1", "10.00", true)),
			"mug":    testProduct("p-mug", "mug", true, testVariant("v2", "5.00", true)),
			"hoodie": testProduct("p-hoodie", "hoodie", true, testVariant("v3", "40.00", true), testVariant("v4", "40.00", false)),
			"cap":    testProduct("p-cap", "cap", false, testVariant("v5", "15.00", false)),
		}},
		carts:      newStubCarts(carts...),
		sessions:   storefront.NewRegistry(time.Hour),
		dispatcher: &stubDispatcher{},
		operations: &stubOperations{},
		webhooks:   &stubWebhooks{},
		events:     &stubEvents{},
	}
	router, err := buildRouter(log, Deps{
		Catalog:            env.catalog,
		Carts:              env.carts,
		Sessions:           env.sessions,
		Dispatcher:         env.dispatcher,
		Operations:         env.operations,
		Webhooks:           env.webhooks,
		Events:             env.events,
		RevalidationSecret: "s3cret",
	})
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}
	env.router = router
	return env
}

func (e *testEnv) do(method, path, cartID string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cartID != "" {
		req.AddCookie(&http.Cookie{Name: cartCookie, Value: cartID})
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func testProduct(id, handle string, available bool, variants ...domain.ProductVariant) *domain.Product {
	return &domain.Product{
		ID:               id,
		Handle:           handle,
		Title:            handle,
		AvailableForSale: available,
		Variants:         variants,
	}
}

func testVariant(id, price string, available bool) domain.ProductVariant {
	return domain.ProductVariant{
		ID:               id,
		Title:            "Default Title",
		AvailableForSale: available,
		Price:            domain.MustMoney(price, "USD"),
	}
}

func storedCart(id string) domain.Cart {
	cart := domain.EmptyCart()
	cart.ID = id
	cart.CheckoutURL = "https://shop.example.com/checkouts/" + id
	return cart
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var resp cartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode cart response: %v (%s)", err, rec.Body.String())
	}
	return resp
}
