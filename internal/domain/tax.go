package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TaxCategory identifies a GST slab
type TaxCategory string

const (
	TaxCategoryGST18  TaxCategory = "gst_18"
	TaxCategoryGST12  TaxCategory = "gst_12"
	TaxCategoryGST5   TaxCategory = "gst_5"
	TaxCategoryExempt TaxCategory = "gst_0"
)

var taxRates = map[TaxCategory]decimal.Decimal{
	TaxCategoryGST18:  decimal.NewFromInt(18),
	TaxCategoryGST12:  decimal.NewFromInt(12),
	TaxCategoryGST5:   decimal.NewFromInt(5),
	TaxCategoryExempt: decimal.Zero,
}

// legacy product tags carried on storefront products
var legacyTaxTags = map[string]TaxCategory{
	"tax_18": TaxCategoryGST18,
	"tax_12": TaxCategoryGST12,
	"tax_5":  TaxCategoryGST5,
	"tax_0":  TaxCategoryExempt,
}

// Rate returns the percentage rate. Unknown categories are treated as exempt.
func (c TaxCategory) Rate() decimal.Decimal {
	if r, ok := taxRates[c]; ok {
		return r
	}
	return decimal.Zero
}

// IsValid checks if the category has a rate.
func (c TaxCategory) IsValid() bool {
	_, ok := taxRates[c]
	return ok
}

// TaxCategoryFromTags maps legacy "tax_NN" product tags to a category.
// It only exists for products that predate the tax category field.
func TaxCategoryFromTags(tags []string) (TaxCategory, bool) {
	for _, t := range tags {
		if c, ok := legacyTaxTags[strings.ToLower(strings.TrimSpace(t))]; ok {
			return c, true
		}
	}
	return TaxCategoryExempt, false
}

// InclusiveTax back-calculates the tax contained in a tax-inclusive amount:
// tax = amount - amount*100/(100+rate), rounded to 2 places.
func InclusiveTax(amount decimal.Decimal, category TaxCategory) decimal.Decimal {
	rate := category.Rate()
	if rate.IsZero() {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	net := amount.Mul(hundred).Div(hundred.Add(rate))
	return amount.Sub(net).Round(2)
}
