package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamvault/backend/internal/domain/shared"
	"github.com/streamvault/backend/internal/domain/shared/valueobject"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

// PurchasableStatuses is the allow-list of statuses a product must hold to
// be accepted at checkout. Anything outside this list is treated as
// unresolvable by the cart validator.
var PurchasableStatuses = []ProductStatus{ProductStatusActive}

// ProductKind classifies what the storefront sells
type ProductKind string

const (
	ProductKindSubscription ProductKind = "subscription" // IPTV service plans
	ProductKindDevice       ProductKind = "device"       // pre-configured streaming devices
	ProductKindTrial        ProductKind = "trial"        // time-boxed free trials
)

// Product represents a sellable item in the catalog.
// The checkout pipeline consumes products read-only; catalog administration
// happens outside this service.
type Product struct {
	shared.BaseEntity
	Code                string           `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name                string           `gorm:"type:varchar(200);not null"`
	Description         string           `gorm:"type:text"`
	Kind                ProductKind      `gorm:"type:varchar(20);not null;default:'subscription'"`
	Price               decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	SalePrice           *decimal.Decimal `gorm:"type:decimal(18,4)"` // discounted price, takes precedence when set
	Status              ProductStatus    `gorm:"type:varchar(20);not null;default:'active'"`
	RequiresCredentials bool             `gorm:"not null;default:false"` // subscription/trial products grant service access
	TrialHours          int              `gorm:"not null;default:0"`     // credential lifetime for trial products
	ServiceURL          string           `gorm:"type:varchar(500)"`      // service entry point handed out with credentials
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product
func NewProduct(code, name string, kind ProductKind, price decimal.Decimal) (*Product, error) {
	code = strings.TrimSpace(strings.ToLower(code))
	if code == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_CODE", "Product code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Product price cannot be negative")
	}

	return &Product{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       name,
		Kind:       kind,
		Price:      price,
		Status:     ProductStatusActive,
	}, nil
}

// EffectivePrice returns the price a buyer actually pays: the sale price
// when one is set, otherwise the base price.
func (p *Product) EffectivePrice() valueobject.Money {
	if p.SalePrice != nil {
		return valueobject.NewMoneyUSD(*p.SalePrice)
	}
	return valueobject.NewMoneyUSD(p.Price)
}

// IsPurchasable returns true if the product may be bought at checkout
func (p *Product) IsPurchasable() bool {
	for _, s := range PurchasableStatuses {
		if p.Status == s {
			return true
		}
	}
	return false
}

// IsFreeTrial returns true if the product is a zero-priced trial offering
func (p *Product) IsFreeTrial() bool {
	return p.Kind == ProductKindTrial && p.EffectivePrice().IsZero()
}

// SetSalePrice sets a discounted price
func (p *Product) SetSalePrice(salePrice decimal.Decimal) error {
	if salePrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Sale price cannot be negative")
	}
	p.SalePrice = &salePrice
	p.UpdatedAt = time.Now()
	return nil
}

// ClearSalePrice removes the discounted price
func (p *Product) ClearSalePrice() {
	p.SalePrice = nil
	p.UpdatedAt = time.Now()
}

// Deactivate takes the product off sale
func (p *Product) Deactivate() {
	p.Status = ProductStatusInactive
	p.UpdatedAt = time.Now()
}
