package models

import "github.com/shopspring/decimal"

// PricingMode is carried on cart lines for display; it does not change the price.
type PricingMode string

const (
	PricingLaborOnly PricingMode = "LABOR_ONLY"
	PricingFull      PricingMode = "FULL"
)

type CartLine struct {
	ID          string      `json:"id"`
	Service     Service     `json:"service"`
	VariantID   string      `json:"variant_id,omitempty"`
	OptionIDs   []string    `json:"option_ids"`
	Quantity    int         `json:"quantity"`
	PricingMode PricingMode `json:"pricing_mode"`
}

// LineBreakdown is the priced view of a single cart line.
type LineBreakdown struct {
	BasePrice    decimal.Decimal `json:"base_price"`
	VariantPrice decimal.Decimal `json:"variant_price"`
	OptionsPrice decimal.Decimal `json:"options_price"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	LineTotal    decimal.Decimal `json:"line_total"`
}
