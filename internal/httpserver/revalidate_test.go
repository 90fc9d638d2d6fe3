package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"storefront/internal/logger"
	"storefront/internal/observability"
	"storefront/internal/shopify"
)

func postWebhook(env *testEnv, query, topic string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/revalidate"+query, nil)
	if topic != "" {
		req.Header.Set("X-Shopify-Topic", topic)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestRevalidateProductTopic(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := postWebhook(env, "?secret=s3cret", "products/update")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != float64(200) || body["revalidated"] != true {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["now"].(float64); !ok {
		t.Fatalf("expected now timestamp, got %v", body["now"])
	}
	if len(env.catalog.revalidated) != 1 || env.catalog.revalidated[0] != shopify.TagProducts {
		t.Fatalf("expected products tag invalidated, got %v", env.catalog.revalidated)
	}
	if len(env.events.keys) != 1 || env.events.keys[0] != shopify.TagProducts {
		t.Fatalf("expected invalidation event, got %v", env.events.keys)
	}
	if len(env.webhooks.events) != 1 {
		t.Fatalf("expected journaled delivery, got %d", len(env.webhooks.events))
	}
	if ev := env.webhooks.events[0]; !ev.Authorized || !ev.Revalidated || ev.Topic != "products/update" {
		t.Fatalf("unexpected journal entry %+v", ev)
	}
}

func TestRevalidateWrongSecret(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	env := newTestEnv(t, logger.FromCore(core))

	rec := postWebhook(env, "?secret=guess", "products/update")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if len(body) != 1 || body["status"] != float64(200) {
		t.Fatalf("expected status only, got %v", body)
	}
	if len(env.catalog.revalidated) != 0 {
		t.Fatalf("expected no invalidation, got %v", env.catalog.revalidated)
	}
	if logs.FilterMessage("invalid revalidation secret").Len() != 1 {
		t.Fatalf("expected a warning, got %v", logs.All())
	}
	if ev := env.webhooks.events[0]; ev.Authorized || ev.Revalidated {
		t.Fatalf("unexpected journal entry %+v", ev)
	}
}

func TestRevalidateMissingSecret(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := postWebhook(env, "", "products/create")

	if body := decodeBody(t, rec); body["revalidated"] != nil {
		t.Fatalf("expected no revalidation, got %v", body)
	}
	if len(env.catalog.revalidated) != 0 {
		t.Fatalf("expected no invalidation")
	}
}

func TestRevalidateAcknowledgesOtherTopics(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := postWebhook(env, "?secret=s3cret", "orders/create")

	body := decodeBody(t, rec)
	if body["status"] != float64(200) || body["revalidated"] != true || body["now"] == nil {
		t.Fatalf("expected acknowledged delivery, got %v", body)
	}
	if len(env.catalog.revalidated) != 0 {
		t.Fatalf("expected no invalidation")
	}
	if len(env.events.keys) != 0 {
		t.Fatalf("expected no invalidation event")
	}
	if env.webhooks.events[0].Revalidated {
		t.Fatalf("expected journal to record untouched cache")
	}
	if env.webhooks.events[0].Topic != "orders/create" || !env.webhooks.events[0].Authorized {
		t.Fatalf("unexpected journal entry %+v", env.webhooks.events[0])
	}
}

func TestRevalidateCacheFailureStillOK(t *testing.T) {
	env := newTestEnv(t, nil)
	env.catalog.revalidateErr = errors.New("redis down")

	rec := postWebhook(env, "?secret=s3cret", "products/delete")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["revalidated"] != nil {
		t.Fatalf("expected no revalidated flag, got %v", body)
	}
	if len(env.events.keys) != 0 {
		t.Fatalf("expected no event on failure")
	}
}

func TestRevalidateCountsOutcome(t *testing.T) {
	metrics := observability.NewMetrics()
	h := &revalidateHandler{
		catalog: &stubCatalog{},
		metrics: metrics,
		secret:  "s3cret",
		logger:  logger.Nop(),
		now:     time.Now,
	}
	env := newTestEnv(t, nil)
	env.router.POST("/test/revalidate", h.revalidate)

	req := httptest.NewRequest(http.MethodPost, "/test/revalidate?secret=nope", nil)
	env.router.ServeHTTP(httptest.NewRecorder(), req)

	if got := testutil.ToFloat64(metrics.Webhooks.WithLabelValues("unauthorized")); got != 1 {
		t.Fatalf("expected 1 unauthorized delivery, got %v", got)
	}
}
