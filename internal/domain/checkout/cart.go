package checkout

import (
	"fmt"
	"strings"

	"github.com/streamvault/backend/internal/domain/catalog"
	"github.com/streamvault/backend/internal/domain/shared"
	"github.com/streamvault/backend/internal/domain/shared/valueobject"
)

// CartItem is a single client-submitted cart line. It carries no price;
// prices are always resolved from the catalog.
type CartItem struct {
	ProductCode string
	Quantity    int64
}

// CartRequest is the ephemeral client-submitted cart. It is validated,
// resolved against the catalog, and discarded - never persisted.
type CartRequest struct {
	Items         []CartItem
	CustomerEmail string
	CustomerName  string
}

// ResolvedLineItem is a server-computed order line. UnitPriceMinor is the
// authoritative catalog price in minor units; nothing in it originates
// from the client except the product code and quantity.
type ResolvedLineItem struct {
	ProductCode    string `json:"product_code"`
	Name           string `json:"name"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	Quantity       int64  `json:"quantity"`
	LineTotalMinor int64  `json:"line_total_minor"`
}

// ResolvedCart is the outcome of validating a CartRequest against the catalog
type ResolvedCart struct {
	LineItems        []ResolvedLineItem
	TotalAmountMinor int64
	Currency         valueobject.Currency
	// Products holds the catalog entries backing each line, keyed by code.
	// Fulfillment consults them for credential flags without a second lookup.
	Products map[string]catalog.Product
}

// UnresolvableProductError reports the cart lines that did not resolve to a
// purchasable catalog entry. The whole cart is rejected; a mixed
// valid/invalid cart is never partially fulfilled.
type UnresolvableProductError struct {
	domainErr    *shared.DomainError
	ProductCodes []string
}

// NewUnresolvableProductError creates an error for the given product codes
func NewUnresolvableProductError(codes []string) *UnresolvableProductError {
	return &UnresolvableProductError{
		domainErr: shared.NewDomainError("UNRESOLVABLE_PRODUCT",
			fmt.Sprintf("Products not available for purchase: %s", strings.Join(codes, ", "))),
		ProductCodes: codes,
	}
}

// Error implements the error interface
func (e *UnresolvableProductError) Error() string {
	return e.domainErr.Message
}

// Unwrap exposes the underlying domain error for errors.As chains
func (e *UnresolvableProductError) Unwrap() error {
	return e.domainErr
}

// NormalizeQuantity coerces a client quantity to a positive integer.
// Zero and negative values become 1; a line item can never silently drop
// below one unit.
func NormalizeQuantity(q int64) int64 {
	if q < 1 {
		return 1
	}
	return q
}

// ResolveCart validates a cart request against the given catalog entries and
// computes the authoritative order total.
//
// products must be the result of a purchasable-filtered catalog lookup for
// the cart's product codes. Every requested code must resolve or the whole
// cart is rejected. Line totals are rounded half-up to minor units per line,
// then summed; the sum itself is not re-rounded.
func ResolveCart(req CartRequest, products []catalog.Product) (*ResolvedCart, error) {
	if len(req.Items) == 0 {
		return nil, shared.ErrEmptyCart
	}

	index := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		if p.IsPurchasable() {
			index[p.Code] = p
		}
	}

	var missing []string
	lineItems := make([]ResolvedLineItem, 0, len(req.Items))
	var total int64

	for _, item := range req.Items {
		code := strings.TrimSpace(strings.ToLower(item.ProductCode))
		product, ok := index[code]
		if !ok {
			missing = append(missing, item.ProductCode)
			continue
		}

		qty := NormalizeQuantity(item.Quantity)
		unitPrice := product.EffectivePrice()
		lineTotal := unitPrice.MultiplyByInt(qty)

		lineItems = append(lineItems, ResolvedLineItem{
			ProductCode:    product.Code,
			Name:           product.Name,
			UnitPriceMinor: unitPrice.MinorUnits(),
			Quantity:       qty,
			LineTotalMinor: lineTotal.MinorUnits(),
		})
		total += lineTotal.MinorUnits()
	}

	if len(missing) > 0 {
		return nil, NewUnresolvableProductError(missing)
	}

	if total <= 0 {
		return nil, shared.ErrInvalidTotal
	}

	return &ResolvedCart{
		LineItems:        lineItems,
		TotalAmountMinor: total,
		Currency:         valueobject.DefaultCurrency,
		Products:         index,
	}, nil
}
