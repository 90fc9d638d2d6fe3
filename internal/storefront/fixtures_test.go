package storefront

import "storefront/internal/domain"

func testProduct(id, handle, title string) domain.Product {
	return domain.Product{ID: id, Handle: handle, Title: title, AvailableForSale: true}
}

func testVariant(id, price string) domain.ProductVariant {
	return domain.ProductVariant{
		ID:               id,
		Title:            "Default",
		AvailableForSale: true,
		SelectedOptions:  []domain.SelectedOption{{Name: "Size", Value: "M"}},
		Price:            domain.MustMoney(price, "USD"),
	}
}

func authoritativeCart(id string, lines ...domain.CartLine) domain.Cart {
	cart := domain.EmptyCart()
	cart.ID = id
	cart.CheckoutURL = "https://shop.example.com/checkout/" + id
	cart.Lines = lines
	return withTotals(cart)
}

func remoteLine(lineID, merchandiseID string, quantity int, total string) domain.CartLine {
	return domain.CartLine{
		ID:       lineID,
		Quantity: quantity,
		Cost:     domain.LineCost{TotalAmount: domain.MustMoney(total, "USD")},
		Merchandise: domain.Merchandise{
			ID:      merchandiseID,
			Product: domain.MerchandiseProduct{ID: "p-" + merchandiseID, Title: merchandiseID},
		},
	}
}

func sumLines(cart domain.Cart) domain.Money {
	total := domain.ZeroMoney("USD")
	for _, line := range cart.Lines {
		total = total.Add(line.Cost.TotalAmount)
	}
	return total
}
