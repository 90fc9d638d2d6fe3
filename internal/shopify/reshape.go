package shopify

import (
	"regexp"
	"time"

	"storefront/internal/domain"
)

type connection[T any] struct {
	Edges []struct {
		Node T `json:"node"`
	} `json:"edges"`
}

func removeEdgesAndNodes[T any](c connection[T]) []T {
	out := make([]T, 0, len(c.Edges))
	for _, edge := range c.Edges {
		out = append(out, edge.Node)
	}
	return out
}

type rawProduct struct {
	ID               string                            `json:"id"`
	Handle           string                            `json:"handle"`
	AvailableForSale bool                              `json:"availableForSale"`
	Title            string                            `json:"title"`
	Description      string                            `json:"description"`
	DescriptionHTML  string                            `json:"descriptionHtml"`
	Options          []domain.ProductOption            `json:"options"`
	PriceRange       domain.PriceRange                 `json:"priceRange"`
	Variants         connection[domain.ProductVariant] `json:"variants"`
	FeaturedImage    *domain.Image                     `json:"featuredImage"`
	Images           connection[domain.Image]          `json:"images"`
	SEO              domain.SEO                        `json:"seo"`
	Tags             []string                          `json:"tags"`
	UpdatedAt        time.Time                         `json:"updatedAt"`
}

type rawCart struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkoutUrl"`
	Cost        struct {
		SubtotalAmount domain.Money  `json:"subtotalAmount"`
		TotalAmount    domain.Money  `json:"totalAmount"`
		TotalTaxAmount *domain.Money `json:"totalTaxAmount"`
	} `json:"cost"`
	Lines         connection[domain.CartLine] `json:"lines"`
	TotalQuantity int                         `json:"totalQuantity"`
}

var imageFilename = regexp.MustCompile(`.*/(.*)\..*`)

func reshapeImages(images connection[domain.Image], productTitle string) []domain.Image {
	flattened := removeEdgesAndNodes(images)
	for i, image := range flattened {
		if image.AltText != "" {
			continue
		}
		filename := "undefined"
		if m := imageFilename.FindStringSubmatch(image.URL); m != nil {
			filename = m[1]
		}
		flattened[i].AltText = productTitle + " - " + filename
	}
	return flattened
}

// reshapeProduct returns nil for a missing product or one carrying the hidden tag.
func reshapeProduct(p *rawProduct, filterHidden bool) *domain.Product {
	if p == nil {
		return nil
	}
	product := domain.Product{
		ID:               p.ID,
		Handle:           p.Handle,
		AvailableForSale: p.AvailableForSale,
		Title:            p.Title,
		Description:      p.Description,
		DescriptionHTML:  p.DescriptionHTML,
		Options:          p.Options,
		PriceRange:       p.PriceRange,
		Variants:         removeEdgesAndNodes(p.Variants),
		Images:           reshapeImages(p.Images, p.Title),
		SEO:              p.SEO,
		Tags:             p.Tags,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.FeaturedImage != nil {
		product.FeaturedImage = *p.FeaturedImage
	}
	if filterHidden && product.Hidden() {
		return nil
	}
	return &product
}

func reshapeProducts(products []*rawProduct) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if reshaped := reshapeProduct(p, true); reshaped != nil {
			out = append(out, *reshaped)
		}
	}
	return out
}

func reshapeCart(c *rawCart) *domain.Cart {
	if c == nil {
		return nil
	}
	cart := &domain.Cart{
		ID:            c.ID,
		CheckoutURL:   c.CheckoutURL,
		Lines:         removeEdgesAndNodes(c.Lines),
		TotalQuantity: c.TotalQuantity,
	}
	cart.Cost.SubtotalAmount = c.Cost.SubtotalAmount
	cart.Cost.TotalAmount = c.Cost.TotalAmount
	if c.Cost.TotalTaxAmount != nil {
		cart.Cost.TotalTaxAmount = *c.Cost.TotalTaxAmount
	} else {
		cart.Cost.TotalTaxAmount = domain.MustMoney("0.0", domain.DefaultCurrency)
	}
	return cart
}
