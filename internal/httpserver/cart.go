package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/storefront"
)

const (
	cartCookie             = "cartId"
	defaultOperationsLimit = 50
	maxOperationsLimit     = 200
)

type cartHandler struct {
	catalog    catalogService
	carts      cartService
	sessions   *storefront.Registry
	dispatcher cartDispatcher
	operations operationLister
	merge      bool
	secure     bool
	logger     *logger.Logger
}

type cartResponse struct {
	Cart              domain.Cart `json:"cart"`
	PendingOperations int         `json:"pendingOperations"`
}

type addLineRequest struct {
	Handle    string `json:"handle" binding:"required"`
	VariantID string `json:"variantId"`
}

type updateLineRequest struct {
	Type string `json:"type" binding:"required"`
}

type operationsResponse struct {
	Operations []domain.CartOperation `json:"operations"`
}

// get is the authoritative read. It creates the cart when the cookie is
// missing or points at a consumed cart, and replaces the session snapshot.
func (h *cartHandler) get(c *gin.Context) {
	cartID := cartIDFromCookie(c)
	cart, created, err := h.carts.Open(c.Request.Context(), cartID)
	if err != nil {
		writeError(c, err)
		return
	}
	if created {
		h.adopt(c, cartID, cart.ID)
	}
	store := h.sessions.Load(*cart, h.merge)
	c.JSON(http.StatusOK, h.response(store, store.Snapshot()))
}

func (h *cartHandler) create(c *gin.Context) {
	cart, err := h.carts.CreateCart(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	h.adopt(c, cartIDFromCookie(c), cart.ID)
	store := h.sessions.Load(*cart, false)
	c.JSON(http.StatusCreated, h.response(store, store.Snapshot()))
}

// snapshot returns the optimistic state without calling the platform.
func (h *cartHandler) snapshot(c *gin.Context) {
	cartID := cartIDFromCookie(c)
	if cartID == "" {
		writeError(c, domain.ErrMissingCartID)
		return
	}
	store, ok := h.sessions.Get(cartID)
	if !ok {
		writeError(c, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, h.response(store, store.Snapshot()))
}

// stream sends every new snapshot of the session as a server-sent event.
func (h *cartHandler) stream(c *gin.Context) {
	cartID := cartIDFromCookie(c)
	if cartID == "" {
		writeError(c, domain.ErrMissingCartID)
		return
	}
	store, err := h.session(c.Request.Context(), cartID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	for cart := range store.Subscribe(c.Request.Context()) {
		c.SSEvent("cart", cart)
		c.Writer.Flush()
	}
}

func (h *cartHandler) addLine(c *gin.Context) {
	var req addLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "handle is required"})
		return
	}
	product, err := h.catalog.Get(c.Request.Context(), req.Handle)
	if err != nil {
		writeError(c, err)
		return
	}
	variant, err := resolveVariant(product, req.VariantID)
	if err != nil {
		writeError(c, err)
		return
	}

	store, err := h.open(c)
	if err != nil {
		writeError(c, err)
		return
	}
	cart, op := store.AddCartItem(variant, *product)
	h.dispatch(c, store, op, cart)
}

func (h *cartHandler) updateLine(c *gin.Context) {
	var req updateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type is required"})
		return
	}
	updateType, err := domain.ParseUpdateType(req.Type)
	if err != nil {
		writeError(c, err)
		return
	}
	h.applyUpdate(c, updateType)
}

func (h *cartHandler) deleteLine(c *gin.Context) {
	h.applyUpdate(c, domain.UpdateDelete)
}

func (h *cartHandler) applyUpdate(c *gin.Context, updateType domain.UpdateType) {
	cartID := cartIDFromCookie(c)
	if cartID == "" {
		writeError(c, domain.ErrMissingCartID)
		return
	}
	store, err := h.session(c.Request.Context(), cartID)
	if err != nil {
		writeError(c, err)
		return
	}
	cart, op, ok := store.UpdateCartItem(c.Param("merchandiseId"), updateType)
	if !ok {
		writeError(c, domain.ErrItemNotInCart)
		return
	}
	h.dispatch(c, store, op, cart)
}

func (h *cartHandler) listOperations(c *gin.Context) {
	cartID := cartIDFromCookie(c)
	if cartID == "" {
		writeError(c, domain.ErrMissingCartID)
		return
	}
	limit := defaultOperationsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxOperationsLimit)
	}
	ops := []domain.CartOperation{}
	if h.operations != nil {
		listed, err := h.operations.ListByCart(c.Request.Context(), cartID, limit)
		if err != nil {
			writeError(c, err)
			return
		}
		ops = append(ops, listed...)
	}
	c.JSON(http.StatusOK, operationsResponse{Operations: ops})
}

// checkout hands the shopper over to the platform's hosted checkout.
func (h *cartHandler) checkout(c *gin.Context) {
	url, err := h.carts.CheckoutURL(c.Request.Context(), cartIDFromCookie(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, url)
}

func (h *cartHandler) dispatch(c *gin.Context, store *storefront.Store, op storefront.PendingOp, cart domain.Cart) {
	if err := h.dispatcher.Submit(store, op); err != nil {
		store.Settle(op.ID)
		h.logger.Error("cart dispatch rejected", "cart_id", op.CartID, "operation_id", op.ID, "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, h.response(store, cart))
}

// session returns the held store for cartID, loading the authoritative cart
// when the session is not held. A consumed cart is not found.
func (h *cartHandler) session(ctx context.Context, cartID string) (*storefront.Store, error) {
	if store, ok := h.sessions.Get(cartID); ok {
		return store, nil
	}
	cart, err := h.carts.Cart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, domain.ErrNotFound
	}
	return h.sessions.GetOrLoad(*cart), nil
}

// open is session with lazy cart creation.
func (h *cartHandler) open(c *gin.Context) (*storefront.Store, error) {
	cartID := cartIDFromCookie(c)
	if cartID != "" {
		if store, ok := h.sessions.Get(cartID); ok {
			return store, nil
		}
	}
	cart, created, err := h.carts.Open(c.Request.Context(), cartID)
	if err != nil {
		return nil, err
	}
	if created {
		h.adopt(c, cartID, cart.ID)
	}
	return h.sessions.GetOrLoad(*cart), nil
}

// adopt points the cookie at a new cart and forgets the session of the old one.
func (h *cartHandler) adopt(c *gin.Context, oldID, newID string) {
	if oldID != "" && oldID != newID {
		h.sessions.Drop(oldID)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cartCookie, newID, 0, "/", "", h.secure, true)
}

func (h *cartHandler) response(store *storefront.Store, cart domain.Cart) cartResponse {
	return cartResponse{Cart: cart, PendingOperations: len(store.Pending())}
}

func cartIDFromCookie(c *gin.Context) string {
	id, err := c.Cookie(cartCookie)
	if err != nil {
		return ""
	}
	return id
}

// resolveVariant picks the variant to add. A product with a single variant
// needs no explicit choice.
func resolveVariant(product *domain.Product, variantID string) (domain.ProductVariant, error) {
	if variantID == "" {
		if len(product.Variants) != 1 {
			return domain.ProductVariant{}, errSelectOption
		}
		variantID = product.Variants[0].ID
	}
	variant, ok := product.Variant(variantID)
	if !ok {
		return domain.ProductVariant{}, domain.ErrNotFound
	}
	if !product.AvailableForSale || !variant.AvailableForSale {
		return domain.ProductVariant{}, domain.ErrOutOfStock
	}
	return variant, nil
}
