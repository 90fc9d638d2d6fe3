package domain

import (
	"fmt"
	"strings"
)

type Cart struct {
	ID            string     `json:"id,omitempty"`
	CheckoutURL   string     `json:"checkoutUrl"`
	Cost          CartCost   `json:"cost"`
	Lines         []CartLine `json:"lines"`
	TotalQuantity int        `json:"totalQuantity"`
}

type CartCost struct {
	SubtotalAmount Money `json:"subtotalAmount"`
	TotalAmount    Money `json:"totalAmount"`
	TotalTaxAmount Money `json:"totalTaxAmount"`
}

// CartLine is one merchandise entry. ID is a local placeholder until the
// platform confirms the line.
type CartLine struct {
	ID          string      `json:"id,omitempty"`
	Quantity    int         `json:"quantity"`
	Cost        LineCost    `json:"cost"`
	Merchandise Merchandise `json:"merchandise"`
}

// LineCost carries the line total and, when known, the price of one unit.
// Discounted lines may have a total that is not an exact multiple of it.
type LineCost struct {
	TotalAmount       Money  `json:"totalAmount"`
	AmountPerQuantity *Money `json:"amountPerQuantity,omitempty"`
}

type Merchandise struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	SelectedOptions []SelectedOption   `json:"selectedOptions"`
	Product         MerchandiseProduct `json:"product"`
}

type MerchandiseProduct struct {
	ID            string `json:"id"`
	Handle        string `json:"handle"`
	Title         string `json:"title"`
	FeaturedImage Image  `json:"featuredImage"`
}

// EmptyCart returns a cart with no lines and zero costs.
func EmptyCart() Cart {
	zero := ZeroMoney(DefaultCurrency)
	return Cart{
		Lines: []CartLine{},
		Cost: CartCost{
			SubtotalAmount: zero,
			TotalAmount:    zero,
			TotalTaxAmount: zero,
		},
	}
}

// Clone deep-copies the cart so snapshots never share line storage.
func (c Cart) Clone() Cart {
	out := c
	out.Lines = make([]CartLine, len(c.Lines))
	for i, line := range c.Lines {
		line.Merchandise.SelectedOptions = append([]SelectedOption(nil), line.Merchandise.SelectedOptions...)
		if line.Cost.AmountPerQuantity != nil {
			unit := *line.Cost.AmountPerQuantity
			line.Cost.AmountPerQuantity = &unit
		}
		out.Lines[i] = line
	}
	return out
}

// LineIndex returns the position of the line holding merchandiseID, or -1.
func (c Cart) LineIndex(merchandiseID string) int {
	for i, line := range c.Lines {
		if line.Merchandise.ID == merchandiseID {
			return i
		}
	}
	return -1
}

func (c Cart) Line(merchandiseID string) (CartLine, bool) {
	idx := c.LineIndex(merchandiseID)
	if idx < 0 {
		return CartLine{}, false
	}
	return c.Lines[idx], true
}

// UpdateType names a quantity change on an existing cart line.
type UpdateType string

const (
	UpdatePlus   UpdateType = "plus"
	UpdateMinus  UpdateType = "minus"
	UpdateDelete UpdateType = "delete"
)

func ParseUpdateType(raw string) (UpdateType, error) {
	switch t := UpdateType(strings.ToLower(strings.TrimSpace(raw))); t {
	case UpdatePlus, UpdateMinus, UpdateDelete:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownUpdateType, raw)
	}
}
