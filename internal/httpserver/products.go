package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/shopify"
)

type productHandler struct {
	catalog catalogService
	logger  *logger.Logger
}

type productListResponse struct {
	Products []domain.Product `json:"products"`
}

type productResponse struct {
	Product         *domain.Product  `json:"product"`
	Recommendations []domain.Product `json:"recommendations"`
}

func (h *productHandler) list(c *gin.Context) {
	q := shopify.ProductsQuery{
		SortKey: c.Query("sortKey"),
		Query:   c.Query("query"),
	}
	if raw := c.Query("reverse"); raw != "" {
		reverse, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reverse must be a boolean"})
			return
		}
		q.Reverse = reverse
	}

	products, err := h.catalog.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	c.JSON(http.StatusOK, productListResponse{Products: products})
}

// get returns the product page: the product and, best effort, its recommendations.
func (h *productHandler) get(c *gin.Context) {
	product, err := h.catalog.Get(c.Request.Context(), c.Param("handle"))
	if err != nil {
		writeError(c, err)
		return
	}
	recommendations, err := h.catalog.Recommendations(c.Request.Context(), product.ID)
	if err != nil {
		h.logger.Warn("product recommendations failed", "product_id", product.ID, "error", err)
	}
	if recommendations == nil {
		recommendations = []domain.Product{}
	}
	c.JSON(http.StatusOK, productResponse{Product: product, Recommendations: recommendations})
}
