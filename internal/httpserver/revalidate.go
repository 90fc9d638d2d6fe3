package httpserver

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/logger"
	"storefront/internal/observability"
	"storefront/internal/shopify"
)

const warmTimeout = 30 * time.Second

var productTopics = map[string]bool{
	"products/create": true,
	"products/update": true,
	"products/delete": true,
}

type revalidateHandler struct {
	catalog     catalogService
	journal     webhookJournal
	events      eventPublisher
	metrics     *observability.Metrics
	secret      string
	warmQueries []shopify.ProductsQuery
	logger      *logger.Logger
	now         func() time.Time
}

// revalidate always answers 200 so the platform does not retry the delivery.
func (h *revalidateHandler) revalidate(c *gin.Context) {
	ctx := c.Request.Context()
	topic := c.GetHeader("X-Shopify-Topic")
	if topic == "" {
		topic = "unknown"
	}
	event := domain.WebhookEvent{Topic: topic, ReceivedAt: h.now().UTC()}

	if !h.authorized(c.Query("secret")) {
		h.logger.Warn("invalid revalidation secret", "topic", topic)
		h.finish(ctx, event, "unauthorized")
		c.JSON(http.StatusOK, gin.H{"status": http.StatusOK})
		return
	}
	event.Authorized = true

	// Other topics are acknowledged like product ones but leave the cache alone.
	if !productTopics[topic] {
		h.finish(ctx, event, "ignored")
		h.acknowledge(c)
		return
	}

	keys, err := h.catalog.Revalidate(ctx, shopify.TagProducts)
	if err != nil {
		h.logger.Error("catalog revalidation failed", "topic", topic, "error", err)
		h.finish(ctx, event, "failed")
		c.JSON(http.StatusOK, gin.H{"status": http.StatusOK})
		return
	}
	event.Revalidated = true
	h.finish(ctx, event, "revalidated")
	h.publish(ctx, events.Invalidation{
		Type:  "catalog.invalidated",
		Tag:   shopify.TagProducts,
		Topic: topic,
		Keys:  keys,
		At:    event.ReceivedAt,
	})
	h.warm()
	h.acknowledge(c)
}

func (h *revalidateHandler) acknowledge(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "revalidated": true, "now": h.now().UnixMilli()})
}

func (h *revalidateHandler) authorized(secret string) bool {
	if h.secret == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) == 1
}

func (h *revalidateHandler) finish(ctx context.Context, event domain.WebhookEvent, outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveWebhook(outcome)
	}
	if h.journal == nil {
		return
	}
	if _, err := h.journal.Record(ctx, event); err != nil {
		h.logger.Warn("webhook journal failed", "topic", event.Topic, "error", err)
	}
}

func (h *revalidateHandler) publish(ctx context.Context, inv events.Invalidation) {
	if h.events == nil {
		return
	}
	if err := h.events.Publish(ctx, inv.Tag, inv); err != nil {
		h.logger.Warn("publish invalidation failed", "tag", inv.Tag, "error", err)
	}
}

// warm refills the configured listings in the background.
func (h *revalidateHandler) warm() {
	if len(h.warmQueries) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
		defer cancel()
		if err := h.catalog.Warm(ctx, h.warmQueries...); err != nil {
			h.logger.Warn("catalog warm failed", "error", err)
		}
	}()
}
