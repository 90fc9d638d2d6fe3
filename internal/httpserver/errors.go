package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/shopify"
	"storefront/internal/storefront"
)

var errSelectOption = errors.New("please select an option")

func writeError(c *gin.Context, err error) {
	var remote *shopify.Error
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrItemNotInCart):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrMissingCartID), errors.Is(err, domain.ErrUnknownUpdateType), errors.Is(err, errSelectOption):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrOutOfStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, storefront.ErrDispatcherClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.As(err, &remote):
		c.JSON(http.StatusBadGateway, gin.H{"error": remote.Message, "cause": remote.Cause})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
