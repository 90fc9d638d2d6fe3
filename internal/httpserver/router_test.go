package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"storefront/internal/logger"
	"storefront/internal/shopify"
	"storefront/internal/storefront"
)

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/healthz", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestReadyzReportsFailingCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/readyz", readyHandler([]ReadinessCheck{
		{Name: "postgres", Ping: func(context.Context) error { return nil }},
		{Name: "redis", Ping: func(context.Context) error { return errors.New("connection refused") }},
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["reason"] != "redis not reachable" {
		t.Fatalf("expected redis reason, got %q", body["reason"])
	}
}

func TestReadyzWithoutChecks(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/readyz", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestBuildRouterRequiresCoreDeps(t *testing.T) {
	if _, err := buildRouter(logger.Nop(), Deps{Sessions: storefront.NewRegistry(0)}); err == nil {
		t.Fatalf("expected error for missing deps")
	}
}

func TestProductsListPassesQuery(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/products?sortKey=PRICE&reverse=true&query=tee", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	q := env.catalog.lastQuery
	if q.SortKey != "PRICE" || !q.Reverse || q.Query != "tee" {
		t.Fatalf("unexpected query %+v", q)
	}
	var body productListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Products == nil {
		t.Fatalf("expected empty list, got null")
	}
}

func TestProductsListRejectsBadReverse(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/products?reverse=sometimes", "", nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestProductsListRemoteErrorIsBadGateway(t *testing.T) {
	env := newTestEnv(t, nil)
	env.catalog.listErr = &shopify.Error{Cause: "transport", Status: 500, Message: "dial tcp: refused"}

	rec := env.do(http.MethodGet, "/products", "", nil)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rec.Code)
	}
}

func TestProductNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/products/missing", "", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestProductWithRecommendations(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/products/tee", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body productResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Product == nil || body.Product.Handle != "tee" {
		t.Fatalf("expected tee, got %+v", body.Product)
	}
	if len(body.Recommendations) != 3 {
		t.Fatalf("expected 3 recommendations, got %d", len(body.Recommendations))
	}
}
