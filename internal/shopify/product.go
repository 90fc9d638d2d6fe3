package shopify

import (
	"context"

	"storefront/internal/domain"
)

// ProductsQuery selects and orders a product listing. Query is passed through
// to the platform's search syntax untouched.
type ProductsQuery struct {
	SortKey string
	Query   string
	Reverse bool
}

func (c *Client) GetProducts(ctx context.Context, q ProductsQuery) ([]domain.Product, error) {
	vars := map[string]interface{}{
		"reverse": q.Reverse,
	}
	if q.SortKey != "" {
		vars["sortKey"] = q.SortKey
	}
	if q.Query != "" {
		vars["query"] = q.Query
	}
	var data struct {
		Products connection[*rawProduct] `json:"products"`
	}
	if err := c.Fetch(ctx, Request{
		Operation: "getProducts",
		Query:     getProductsQuery,
		Variables: vars,
		Tags:      []string{TagProducts},
	}, &data); err != nil {
		return nil, err
	}
	return reshapeProducts(removeEdgesAndNodes(data.Products)), nil
}

// GetProduct returns nil when the handle is unknown or the product is hidden.
func (c *Client) GetProduct(ctx context.Context, handle string) (*domain.Product, error) {
	var data struct {
		Product *rawProduct `json:"product"`
	}
	if err := c.Fetch(ctx, Request{
		Operation: "getProduct",
		Query:     getProductQuery,
		Variables: map[string]interface{}{"handle": handle},
		Tags:      []string{TagProducts},
	}, &data); err != nil {
		return nil, err
	}
	return reshapeProduct(data.Product, true), nil
}

func (c *Client) GetProductRecommendations(ctx context.Context, productID string) ([]domain.Product, error) {
	var data struct {
		ProductRecommendations []*rawProduct `json:"productRecommendations"`
	}
	if err := c.Fetch(ctx, Request{
		Operation: "getProductRecommendations",
		Query:     getProductRecommendationsQuery,
		Variables: map[string]interface{}{"productId": productID},
		Tags:      []string{TagProducts},
	}, &data); err != nil {
		return nil, err
	}
	return reshapeProducts(data.ProductRecommendations), nil
}
