// Package storefront holds the optimistic cart engine: pure cart transitions,
// the per-session snapshot store, and the dispatcher that replays each local
// change against the commerce platform.
package storefront

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

const placeholderPrefix = "optimistic-"

var newPlaceholderID = func(kind string) string {
	return placeholderPrefix + kind + "-" + uuid.NewString()
}

// IsPlaceholder reports whether id was generated locally rather than by the platform.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, placeholderPrefix)
}

// AddCartItem returns cart with one more unit of variant. A nil cart starts as
// an empty cart with a placeholder id. The input is never modified.
func AddCartItem(cart *domain.Cart, variant domain.ProductVariant, product domain.Product) domain.Cart {
	var next domain.Cart
	if cart == nil {
		next = domain.EmptyCart()
		next.ID = newPlaceholderID("cart")
	} else {
		next = cart.Clone()
	}

	if idx := next.LineIndex(variant.ID); idx >= 0 {
		line := next.Lines[idx]
		line.Quantity++
		line.Cost.TotalAmount = line.Cost.TotalAmount.Add(variant.Price)
		if line.Cost.AmountPerQuantity == nil {
			price := variant.Price
			line.Cost.AmountPerQuantity = &price
		}
		next.Lines[idx] = line
	} else {
		next.Lines = append(next.Lines, newLine(variant, product))
	}
	return withTotals(next)
}

// UpdateCartItem applies a plus, minus or delete to the line holding
// merchandiseID. Unknown merchandise leaves the lines as they are. A line whose
// quantity reaches zero is removed; the cart itself always survives.
func UpdateCartItem(cart *domain.Cart, merchandiseID string, updateType domain.UpdateType) domain.Cart {
	var next domain.Cart
	if cart == nil {
		next = domain.EmptyCart()
	} else {
		next = cart.Clone()
	}

	idx := next.LineIndex(merchandiseID)
	if idx < 0 {
		return withTotals(next)
	}
	line := next.Lines[idx]

	switch updateType {
	case domain.UpdateDelete:
		next.Lines = removeLine(next.Lines, idx)
	case domain.UpdatePlus, domain.UpdateMinus:
		quantity := line.Quantity + 1
		if updateType == domain.UpdateMinus {
			quantity = line.Quantity - 1
		}
		if quantity <= 0 {
			next.Lines = removeLine(next.Lines, idx)
			break
		}
		unit := unitPrice(line)
		if updateType == domain.UpdatePlus {
			line.Cost.TotalAmount = line.Cost.TotalAmount.Add(unit)
		} else {
			line.Cost.TotalAmount = line.Cost.TotalAmount.Sub(unit)
		}
		line.Quantity = quantity
		next.Lines[idx] = line
	}
	return withTotals(next)
}

// TargetQuantity is the quantity the line for merchandiseID will hold after updateType.
func TargetQuantity(cart domain.Cart, merchandiseID string, updateType domain.UpdateType) int {
	line, ok := cart.Line(merchandiseID)
	if !ok {
		return 0
	}
	switch updateType {
	case domain.UpdatePlus:
		return line.Quantity + 1
	case domain.UpdateMinus:
		if line.Quantity <= 1 {
			return 0
		}
		return line.Quantity - 1
	default:
		return 0
	}
}

func newLine(variant domain.ProductVariant, product domain.Product) domain.CartLine {
	price := variant.Price
	return domain.CartLine{
		ID:       newPlaceholderID("line"),
		Quantity: 1,
		Cost: domain.LineCost{
			TotalAmount:       variant.Price,
			AmountPerQuantity: &price,
		},
		Merchandise: domain.Merchandise{
			ID:              variant.ID,
			Title:           variant.Title,
			SelectedOptions: append([]domain.SelectedOption(nil), variant.SelectedOptions...),
			Product: domain.MerchandiseProduct{
				ID:            product.ID,
				Handle:        product.Handle,
				Title:         product.Title,
				FeaturedImage: product.FeaturedImage,
			},
		},
	}
}

// unitPrice is the amount one unit adds to or removes from the line. The
// platform's per-unit amount wins; otherwise the total is split evenly and
// rounded to cents.
func unitPrice(line domain.CartLine) domain.Money {
	if line.Cost.AmountPerQuantity != nil {
		return *line.Cost.AmountPerQuantity
	}
	if line.Quantity <= 0 {
		return line.Cost.TotalAmount
	}
	return domain.Money{
		Amount:       line.Cost.TotalAmount.Amount.DivRound(decimal.NewFromInt(int64(line.Quantity)), 2),
		CurrencyCode: line.Cost.TotalAmount.CurrencyCode,
	}
}

func removeLine(lines []domain.CartLine, idx int) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines)-1)
	out = append(out, lines[:idx]...)
	return append(out, lines[idx+1:]...)
}

// withTotals recomputes totalQuantity and the aggregate cost from the lines.
func withTotals(cart domain.Cart) domain.Cart {
	currency := domain.DefaultCurrency
	if len(cart.Lines) > 0 && cart.Lines[0].Cost.TotalAmount.CurrencyCode != "" {
		currency = cart.Lines[0].Cost.TotalAmount.CurrencyCode
	}
	total := domain.ZeroMoney(currency)
	quantity := 0
	for _, line := range cart.Lines {
		quantity += line.Quantity
		total = total.Add(line.Cost.TotalAmount)
	}
	if cart.Lines == nil {
		cart.Lines = []domain.CartLine{}
	}
	cart.TotalQuantity = quantity
	cart.Cost.SubtotalAmount = total
	cart.Cost.TotalAmount = total
	if cart.Cost.TotalTaxAmount.CurrencyCode == "" {
		cart.Cost.TotalTaxAmount = domain.ZeroMoney(currency)
	}
	return cart
}
