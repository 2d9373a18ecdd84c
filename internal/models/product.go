// internal/models/product.go
package models

import "fmt"

// ProductType identifies one of the credit products offered to subjects.
type ProductType string

const (
	ProductConsumption    ProductType = "consumption"
	ProductInvestment     ProductType = "investment"
	ProductInvoiceAdvance ProductType = "invoice_advance"
	ProductOrderAdvance   ProductType = "order_advance"
	ProductSavingsCircle  ProductType = "savings_circle"
	ProductPensionAdvance ProductType = "pension_advance"
	ProductSpotEmergency  ProductType = "spot_emergency"
)

// AllProducts lists the product types in a stable order.
func AllProducts() []ProductType {
	return []ProductType{
		ProductConsumption,
		ProductInvestment,
		ProductInvoiceAdvance,
		ProductOrderAdvance,
		ProductSavingsCircle,
		ProductPensionAdvance,
		ProductSpotEmergency,
	}
}

func (p ProductType) Valid() bool {
	switch p {
	case ProductConsumption, ProductInvestment, ProductInvoiceAdvance, ProductOrderAdvance,
		ProductSavingsCircle, ProductPensionAdvance, ProductSpotEmergency:
		return true
	}
	return false
}

// ParseProductType returns the consumption product for an empty string.
func ParseProductType(s string) (ProductType, error) {
	if s == "" {
		return ProductConsumption, nil
	}
	p := ProductType(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown product type %q", s)
	}
	return p, nil
}

// ProductLimits holds the hard caps of a product.
type ProductLimits struct {
	MaxDurationMonths int
	// MaxAmount is 0 when the product has no principal cap.
	MaxAmount float64
	// AmountCeiling bounds the eligible amount derived from income.
	AmountCeiling int64
}

var productLimits = map[ProductType]ProductLimits{
	ProductConsumption:    {MaxDurationMonths: 48, MaxAmount: 0, AmountCeiling: 2_000_000},
	ProductInvestment:     {MaxDurationMonths: 36, MaxAmount: 100_000_000, AmountCeiling: 100_000_000},
	ProductInvoiceAdvance: {MaxDurationMonths: 12, MaxAmount: 100_000_000, AmountCeiling: 100_000_000},
	ProductOrderAdvance:   {MaxDurationMonths: 12, MaxAmount: 100_000_000, AmountCeiling: 100_000_000},
	ProductSavingsCircle:  {MaxDurationMonths: 24, MaxAmount: 5_000_000, AmountCeiling: 5_000_000},
	ProductPensionAdvance: {MaxDurationMonths: 12, MaxAmount: 0, AmountCeiling: 2_000_000},
	ProductSpotEmergency:  {MaxDurationMonths: 3, MaxAmount: 100_000_000, AmountCeiling: 2_000_000},
}

// Limits returns the caps for p. Unknown products get the consumption caps.
func (p ProductType) Limits() ProductLimits {
	if l, ok := productLimits[p]; ok {
		return l
	}
	return productLimits[ProductConsumption]
}
