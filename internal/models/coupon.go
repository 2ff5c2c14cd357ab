package models

import "github.com/shopspring/decimal"

type DiscountType string

const (
	DiscountPercent DiscountType = "PERCENT"
	DiscountFixed   DiscountType = "FIXED"
)

type Coupon struct {
	ID           string          `json:"id" yaml:"id"`
	Code         string          `json:"code" yaml:"code"`
	DiscountType DiscountType    `json:"discount_type" yaml:"discount_type"`
	Value        decimal.Decimal `json:"value" yaml:"value"`
	Active       bool            `json:"active" yaml:"active"`
}
