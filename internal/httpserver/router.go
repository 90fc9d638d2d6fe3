package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/observability"
	"storefront/internal/shopify"
	"storefront/internal/storefront"
)

const requestIDHeader = "X-Request-ID"

type catalogService interface {
	List(ctx context.Context, q shopify.ProductsQuery) ([]domain.Product, error)
	Get(ctx context.Context, handle string) (*domain.Product, error)
	Recommendations(ctx context.Context, productID string) ([]domain.Product, error)
	Revalidate(ctx context.Context, tag string) (int, error)
	Warm(ctx context.Context, queries ...shopify.ProductsQuery) error
}

type cartService interface {
	Cart(ctx context.Context, cartID string) (*domain.Cart, error)
	CreateCart(ctx context.Context) (*domain.Cart, error)
	Open(ctx context.Context, cartID string) (*domain.Cart, bool, error)
	CheckoutURL(ctx context.Context, cartID string) (string, error)
}

type cartDispatcher interface {
	Submit(store *storefront.Store, op storefront.PendingOp) error
}

type operationLister interface {
	ListByCart(ctx context.Context, cartID string, limit int) ([]domain.CartOperation, error)
}

type webhookJournal interface {
	Record(ctx context.Context, event domain.WebhookEvent) (domain.WebhookEvent, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
}

// Deps bundles services for HTTP handlers.
type Deps struct {
	Catalog    catalogService
	Carts      cartService
	Sessions   *storefront.Registry
	Dispatcher cartDispatcher
	Operations operationLister
	Webhooks   webhookJournal
	Events     eventPublisher
	Metrics    *observability.Metrics
	Checks     []ReadinessCheck

	// MergeOnLoad reconciles authoritative reads with pending changes instead
	// of replacing the session snapshot.
	MergeOnLoad        bool
	RevalidationSecret string
	CookieSecure       bool
	CORSAllowOrigins   []string
	ServiceName        string
	// WarmQueries are refilled in the background after a catalog invalidation.
	WarmQueries []shopify.ProductsQuery
}

// buildRouter wires routes for the API.
func buildRouter(log *logger.Logger, deps Deps) (*gin.Engine, error) {
	if deps.Catalog == nil || deps.Carts == nil || deps.Sessions == nil || deps.Dispatcher == nil {
		return nil, errors.New("httpserver: catalog, carts, sessions and dispatcher are required")
	}

	router := gin.New()
	router.Use(requestID(), accessLog(log), gin.Recovery())
	if deps.ServiceName != "" {
		router.Use(otelgin.Middleware(deps.ServiceName))
	}
	if len(deps.CORSAllowOrigins) > 0 {
		router.Use(corsMiddleware(deps.CORSAllowOrigins))
	}
	if deps.Metrics != nil {
		router.Use(deps.Metrics.GinMiddleware())
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Checks))

	products := &productHandler{catalog: deps.Catalog, logger: log}
	router.GET("/products", products.list)
	router.GET("/products/:handle", products.get)

	carts := &cartHandler{
		catalog:    deps.Catalog,
		carts:      deps.Carts,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		operations: deps.Operations,
		merge:      deps.MergeOnLoad,
		secure:     deps.CookieSecure,
		logger:     log,
	}
	cart := router.Group("/cart")
	cart.GET("", carts.get)
	cart.POST("", carts.create)
	cart.GET("/snapshot", carts.snapshot)
	cart.GET("/stream", carts.stream)
	cart.POST("/lines", carts.addLine)
	cart.PATCH("/lines/:merchandiseId", carts.updateLine)
	cart.DELETE("/lines/:merchandiseId", carts.deleteLine)
	cart.GET("/operations", carts.listOperations)
	cart.GET("/checkout", carts.checkout)

	webhook := &revalidateHandler{
		catalog:     deps.Catalog,
		journal:     deps.Webhooks,
		events:      deps.Events,
		metrics:     deps.Metrics,
		secret:      deps.RevalidationSecret,
		warmQueries: deps.WarmQueries,
		logger:      log,
		now:         time.Now,
	}
	router.POST("/api/revalidate", webhook.revalidate)

	return router, nil
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// accessLog logs the path without its query so webhook secrets stay out of logs.
func accessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(requestIDHeader),
		)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
