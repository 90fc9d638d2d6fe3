package shopify

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

// LineInput adds merchandise to a cart.
type LineInput struct {
	MerchandiseID string `json:"merchandiseId"`
	Quantity      int    `json:"quantity"`
}

// LineUpdate sets the quantity of an existing cart line.
type LineUpdate struct {
	ID            string `json:"id"`
	MerchandiseID string `json:"merchandiseId"`
	Quantity      int    `json:"quantity"`
}

type cartPayload struct {
	Cart *rawCart `json:"cart"`
}

// GetCart returns nil without calling the platform when cartID is empty, and
// nil when the platform no longer knows the cart (it was checked out).
func (c *Client) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	if cartID == "" {
		return nil, nil
	}
	var data struct {
		Cart *rawCart `json:"cart"`
	}
	if err := c.Fetch(ctx, Request{
		Operation: "getCart",
		Query:     getCartQuery,
		Variables: map[string]interface{}{"cartId": cartID},
		Tags:      []string{TagCart},
	}, &data); err != nil {
		return nil, err
	}
	return reshapeCart(data.Cart), nil
}

func (c *Client) CreateCart(ctx context.Context) (*domain.Cart, error) {
	var data struct {
		CartCreate cartPayload `json:"cartCreate"`
	}
	if err := c.Fetch(ctx, Request{
		Operation: "createCart",
		Query:     createCartMutation,
		Tags:      []string{TagCart},
	}, &data); err != nil {
		return nil, err
	}
	return mutatedCart(data.CartCreate, createCartMutation)
}

func (c *Client) AddToCart(ctx context.Context, cartID string, lines []LineInput) (*domain.Cart, error) {
	var data struct {
		CartLinesAdd cartPayload `json:"cartLinesAdd"`
	}
	if err := c.Fetch(ctx, Request{
		Operation: "addToCart",
		Query:     addToCartMutation,
		Variables: map[string]interface{}{"cartId": cartID, "lines": lines},
		Tags:      []string{TagCart},
	}, &data); err != nil {
		return nil, err
	}
	return mutatedCart(data.CartLinesAdd, addToCartMutation)
}

func (c *Client) RemoveFromCart(ctx context.Context, cartID string, lineIDs []string) (*domain.Cart, error) {
	var data struct {
		CartLinesRemove cartPayload `json:"cartLinesRemove"`
	}
	if err := c.Fetch(ctx, Request{
		Operation: "removeFromCart",
		Query:     removeFromCartMutation,
		Variables: map[string]interface{}{"cartId": cartID, "lineIds": lineIDs},
		Tags:      []string{TagCart},
	}, &data); err != nil {
		return nil, err
	}
	return mutatedCart(data.CartLinesRemove, removeFromCartMutation)
}

func (c *Client) UpdateCart(ctx context.Context, cartID string, lines []LineUpdate) (*domain.Cart, error) {
	var data struct {
		CartLinesUpdate cartPayload `json:"cartLinesUpdate"`
	}
	if err := c.Fetch(ctx, Request{
		Operation: "updateCart",
		Query:     editCartItemsMutation,
		Variables: map[string]interface{}{"cartId": cartID, "lines": lines},
		Tags:      []string{TagCart},
	}, &data); err != nil {
		return nil, err
	}
	return mutatedCart(data.CartLinesUpdate, editCartItemsMutation)
}

func mutatedCart(payload cartPayload, query string) (*domain.Cart, error) {
	cart := reshapeCart(payload.Cart)
	if cart == nil {
		return nil, &Error{Cause: "empty_cart", Status: 500, Message: "mutation returned no cart", Query: query, Err: errors.New("nil cart")}
	}
	return cart, nil
}
