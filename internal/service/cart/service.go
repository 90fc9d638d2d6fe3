package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/shopify"
)

var (
	ErrAddItem        = errors.New("error adding item to cart")
	ErrFetchCart      = errors.New("error fetching cart")
	ErrRemoveItem     = errors.New("error removing item from cart")
	ErrUpdateQuantity = errors.New("error updating item quantity")
)

type commerceClient interface {
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	CreateCart(ctx context.Context) (*domain.Cart, error)
	AddToCart(ctx context.Context, cartID string, lines []shopify.LineInput) (*domain.Cart, error)
	RemoveFromCart(ctx context.Context, cartID string, lineIDs []string) (*domain.Cart, error)
	UpdateCart(ctx context.Context, cartID string, lines []shopify.LineUpdate) (*domain.Cart, error)
}

// Service performs cart changes against the commerce platform.
type Service struct {
	client commerceClient
}

func New(client commerceClient) *Service {
	return &Service{client: client}
}

// Cart is the authoritative read. A missing or checked out cart is nil.
func (s *Service) Cart(ctx context.Context, cartID string) (*domain.Cart, error) {
	return s.client.GetCart(ctx, cartID)
}

func (s *Service) CreateCart(ctx context.Context) (*domain.Cart, error) {
	return s.client.CreateCart(ctx)
}

// Open reads the cart behind cartID and creates a fresh one when there is none.
// created reports whether a new cart id must be handed back to the client.
func (s *Service) Open(ctx context.Context, cartID string) (cart *domain.Cart, created bool, err error) {
	if cartID != "" {
		cart, err = s.client.GetCart(ctx, cartID)
		if err != nil {
			return nil, false, err
		}
		if cart != nil {
			return cart, false, nil
		}
	}
	cart, err = s.client.CreateCart(ctx)
	if err != nil {
		return nil, false, err
	}
	return cart, true, nil
}

func (s *Service) AddItem(ctx context.Context, cartID, merchandiseID string) (*domain.Cart, error) {
	if strings.TrimSpace(cartID) == "" || strings.TrimSpace(merchandiseID) == "" {
		return nil, ErrAddItem
	}
	cart, err := s.client.AddToCart(ctx, cartID, []shopify.LineInput{{MerchandiseID: merchandiseID, Quantity: 1}})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAddItem, err)
	}
	return cart, nil
}

func (s *Service) RemoveItem(ctx context.Context, cartID, merchandiseID string) (*domain.Cart, error) {
	if strings.TrimSpace(cartID) == "" {
		return nil, domain.ErrMissingCartID
	}
	current, err := s.client.GetCart(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchCart, err)
	}
	if current == nil {
		return nil, ErrFetchCart
	}
	line, ok := current.Line(merchandiseID)
	if !ok || line.ID == "" {
		return nil, domain.ErrItemNotInCart
	}
	cart, err := s.client.RemoveFromCart(ctx, cartID, []string{line.ID})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoveItem, err)
	}
	return cart, nil
}

// UpdateItemQuantity sets the quantity of merchandiseID: zero removes the line,
// a line the platform does not hold yet is added.
func (s *Service) UpdateItemQuantity(ctx context.Context, cartID, merchandiseID string, quantity int) (*domain.Cart, error) {
	if strings.TrimSpace(cartID) == "" {
		return nil, domain.ErrMissingCartID
	}
	current, err := s.client.GetCart(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpdateQuantity, err)
	}
	if current == nil {
		return nil, fmt.Errorf("%w: %w", ErrUpdateQuantity, ErrFetchCart)
	}

	var cart *domain.Cart
	line, ok := current.Line(merchandiseID)
	switch {
	case ok && line.ID != "" && quantity <= 0:
		cart, err = s.client.RemoveFromCart(ctx, cartID, []string{line.ID})
	case ok && line.ID != "":
		cart, err = s.client.UpdateCart(ctx, cartID, []shopify.LineUpdate{{
			ID:            line.ID,
			MerchandiseID: merchandiseID,
			Quantity:      quantity,
		}})
	case quantity > 0:
		cart, err = s.client.AddToCart(ctx, cartID, []shopify.LineInput{{MerchandiseID: merchandiseID, Quantity: quantity}})
	default:
		return current, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpdateQuantity, err)
	}
	return cart, nil
}

// CheckoutURL returns where the platform's hosted checkout for cartID lives.
func (s *Service) CheckoutURL(ctx context.Context, cartID string) (string, error) {
	if strings.TrimSpace(cartID) == "" {
		return "", domain.ErrMissingCartID
	}
	cart, err := s.client.GetCart(ctx, cartID)
	if err != nil {
		return "", err
	}
	if cart == nil || cart.CheckoutURL == "" {
		return "", domain.ErrNotFound
	}
	return cart.CheckoutURL, nil
}
