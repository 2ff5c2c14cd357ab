package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderPaid      OrderStatus = "PAID"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPaid: {OrderCompleted, OrderCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPaid, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// COMPLETED and CANCELLED are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderBreakdown is the full monetary composition of a checkout.
type OrderBreakdown struct {
	Subtotal    decimal.Decimal `json:"subtotal_ht"`
	TravelFee   decimal.Decimal `json:"travel_fees"`
	Surcharge   decimal.Decimal `json:"surcharge_amount"`
	Insurance   decimal.Decimal `json:"insurance_amount"`
	Discount    decimal.Decimal `json:"discount_amount"`
	TaxableBase decimal.Decimal `json:"taxable_base"`
	TaxRate     decimal.Decimal `json:"tva_rate"`
	Tax         decimal.Decimal `json:"tva_amount"`
	Total       decimal.Decimal `json:"total_ttc"`
	CouponCode  string          `json:"coupon_used,omitempty"`
}

// OrderItem is the snapshot of a cart line stored on an order.
type OrderItem struct {
	LineID      string        `json:"line_id"`
	Service     Service       `json:"service"`
	VariantID   string        `json:"variant_id,omitempty"`
	OptionIDs   []string      `json:"option_ids"`
	Quantity    int           `json:"quantity"`
	PricingMode PricingMode   `json:"pricing_mode"`
	Price       LineBreakdown `json:"price"`
}

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID            string          `bun:"id,pk" json:"id"`
	UserID        string          `bun:"user_id" json:"user_id"`
	Items         []OrderItem     `bun:"items,type:json" json:"items"`
	Subtotal      decimal.Decimal `bun:"subtotal_ht,type:varchar(32)" json:"subtotal_ht"`
	TaxAmount     decimal.Decimal `bun:"tva_amount,type:varchar(32)" json:"tva_amount"`
	TaxRate       decimal.Decimal `bun:"tva_rate,type:varchar(32)" json:"tva_rate"`
	TravelFee     decimal.Decimal `bun:"travel_fees,type:varchar(32)" json:"travel_fees"`
	Surcharge     decimal.Decimal `bun:"surcharge_amount,type:varchar(32)" json:"surcharge_amount"`
	Discount      decimal.Decimal `bun:"discount_amount,type:varchar(32)" json:"discount_amount"`
	CouponCode    string          `bun:"coupon_used" json:"coupon_used,omitempty"`
	Insurance     decimal.Decimal `bun:"insurance_amount,type:varchar(32)" json:"insurance_amount"`
	Total         decimal.Decimal `bun:"total_ttc,type:varchar(32)" json:"total_ttc"`
	Status        OrderStatus     `bun:"status" json:"status"`
	CreatedAt     time.Time       `bun:"created_at" json:"created_at"`
	PaymentMethod string          `bun:"payment_method" json:"payment_method"`
	BookingDate   string          `bun:"booking_date" json:"booking_date"`
	BookingSlot   string          `bun:"booking_slot" json:"booking_slot"`
	Address       string          `bun:"address" json:"address"`
}

// ApplyBreakdown copies the monetary fields of b onto the order.
func (o *Order) ApplyBreakdown(b OrderBreakdown) {
	o.Subtotal = b.Subtotal
	o.TaxAmount = b.Tax
	o.TaxRate = b.TaxRate
	o.TravelFee = b.TravelFee
	o.Surcharge = b.Surcharge
	o.Discount = b.Discount
	o.CouponCode = b.CouponCode
	o.Insurance = b.Insurance
	o.Total = b.Total
}

// TransitionTo moves the order along the lifecycle, rejecting anything the
// state machine does not allow.
func (o *Order) TransitionTo(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return errors.Wrapf(ErrInvalidTransition, "order %s: %s -> %s", o.ID, o.Status, next)
	}
	o.Status = next
	return nil
}
