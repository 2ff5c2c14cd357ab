// Package pricing turns catalog selections and booking inputs into itemized
// amounts. Every function here is free of side effects.
package pricing

import (
	"time"

	"ms-booking/internal/models"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// PriceLine computes unit = base + variant + sum(options) and line = unit * quantity.
// An empty variantID and an empty option set contribute nothing; ids that do not
// belong to the service are rejected rather than priced at zero.
func (e *Engine) PriceLine(service *models.Service, variantID string, optionIDs []string, quantity int) (models.LineBreakdown, error) {
	if service == nil {
		return models.LineBreakdown{}, errors.Wrap(models.ErrInvalidSelection, "no service selected")
	}
	if quantity < 1 {
		return models.LineBreakdown{}, errors.Wrapf(models.ErrInvalidSelection, "quantity %d for service %s", quantity, service.ID)
	}

	variantPrice := decimal.Zero
	if variantID != "" {
		v, ok := service.Variant(variantID)
		if !ok {
			return models.LineBreakdown{}, errors.Wrapf(models.ErrInvalidSelection, "variant %s is not offered by service %s", variantID, service.ID)
		}
		variantPrice = v.Price
	}

	optionsPrice := decimal.Zero
	seen := make(map[string]struct{}, len(optionIDs))
	for _, id := range optionIDs {
		if _, dup := seen[id]; dup {
			return models.LineBreakdown{}, errors.Wrapf(models.ErrInvalidSelection, "option %s selected twice", id)
		}
		seen[id] = struct{}{}

		o, ok := service.Option(id)
		if !ok {
			return models.LineBreakdown{}, errors.Wrapf(models.ErrInvalidSelection, "option %s is not offered by service %s", id, service.ID)
		}
		optionsPrice = optionsPrice.Add(o.Price)
	}

	unit := service.BasePrice.Add(variantPrice).Add(optionsPrice)
	return models.LineBreakdown{
		BasePrice:    service.BasePrice,
		VariantPrice: variantPrice,
		OptionsPrice: optionsPrice,
		UnitPrice:    unit,
		Quantity:     quantity,
		LineTotal:    unit.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}

// PriceCart sums the line totals of every line.
func (e *Engine) PriceCart(lines []models.CartLine) (decimal.Decimal, error) {
	subtotal := decimal.Zero
	for i := range lines {
		line := &lines[i]
		b, err := e.PriceLine(&line.Service, line.VariantID, line.OptionIDs, line.Quantity)
		if err != nil {
			return decimal.Zero, errors.WithMessagef(err, "cart line %s", line.ID)
		}
		subtotal = subtotal.Add(b.LineTotal)
	}
	return subtotal, nil
}

// OrderInputs gathers everything ComputeOrderTotals needs besides the subtotal
// source. Rates follow the settings conventions: TaxRatePercent is a percentage
// (20 means 20%) while InsuranceRate is a fraction (0.03 means 3%).
type OrderInputs struct {
	Subtotal         decimal.Decimal
	DistanceKm       decimal.Decimal
	PricePerKm       decimal.Decimal
	Coupon           *models.Coupon
	IsWeekend        bool
	WeekendSurcharge decimal.Decimal
	IncludeInsurance bool
	InsuranceRate    decimal.Decimal
	TaxRatePercent   decimal.Decimal
}

// ComputeOrderTotals builds the order breakdown.
//
// The discount only applies to the service subtotal. Insurance covers
// subtotal + travel and leaves the weekend surcharge out, while the taxable
// base includes it. A taxable base below zero is clamped to zero.
func (e *Engine) ComputeOrderTotals(in OrderInputs) (models.OrderBreakdown, error) {
	if in.DistanceKm.IsNegative() {
		return models.OrderBreakdown{}, errors.Wrapf(models.ErrInvalidSelection, "negative distance %s km", in.DistanceKm)
	}

	travel := in.DistanceKm.Mul(in.PricePerKm)

	surcharge := decimal.Zero
	if in.IsWeekend {
		surcharge = in.WeekendSurcharge
	}

	discount, err := Discount(in.Subtotal, in.Coupon)
	if err != nil {
		return models.OrderBreakdown{}, err
	}

	insurance := decimal.Zero
	if in.IncludeInsurance {
		insurance = in.Subtotal.Add(travel).Mul(in.InsuranceRate)
	}

	base := in.Subtotal.Add(travel).Add(surcharge).Add(insurance).Sub(discount)
	if base.IsNegative() {
		base = decimal.Zero
	}

	tax := base.Mul(in.TaxRatePercent).Div(hundred)

	b := models.OrderBreakdown{
		Subtotal:    in.Subtotal,
		TravelFee:   travel,
		Surcharge:   surcharge,
		Insurance:   insurance,
		Discount:    discount,
		TaxableBase: base,
		TaxRate:     in.TaxRatePercent,
		Tax:         tax,
		Total:       base.Add(tax),
	}
	if in.Coupon != nil {
		b.CouponCode = in.Coupon.Code
	}
	return b, nil
}

// Discount returns the amount a coupon takes off the subtotal. A nil coupon
// yields zero.
func Discount(subtotal decimal.Decimal, coupon *models.Coupon) (decimal.Decimal, error) {
	if coupon == nil {
		return decimal.Zero, nil
	}
	switch coupon.DiscountType {
	case models.DiscountPercent:
		return subtotal.Mul(coupon.Value).Div(hundred), nil
	case models.DiscountFixed:
		return coupon.Value, nil
	default:
		return decimal.Zero, errors.Wrapf(models.ErrInvalidCoupon, "unsupported discount type %q", coupon.DiscountType)
	}
}

// IsWeekend reports whether the booking day falls on a Saturday or Sunday.
func IsWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Installments splits total into n payments rounded to cents. The last payment
// absorbs the rounding remainder so the parts always add up to the rounded total.
func Installments(total decimal.Decimal, n int) []decimal.Decimal {
	if n < 1 {
		n = 1
	}
	rounded := total.Round(2)
	part := rounded.Div(decimal.NewFromInt(int64(n))).RoundDown(2)

	out := make([]decimal.Decimal, n)
	remaining := rounded
	for i := 0; i < n-1; i++ {
		out[i] = part
		remaining = remaining.Sub(part)
	}
	out[n-1] = remaining
	return out
}

// Rounded returns the breakdown with every amount rounded half-up to cents,
// the precision used for display and receipts.
func Rounded(b models.OrderBreakdown) models.OrderBreakdown {
	r := b
	r.Subtotal = b.Subtotal.Round(2)
	r.TravelFee = b.TravelFee.Round(2)
	r.Surcharge = b.Surcharge.Round(2)
	r.Insurance = b.Insurance.Round(2)
	r.Discount = b.Discount.Round(2)
	r.TaxableBase = b.TaxableBase.Round(2)
	r.Tax = b.Tax.Round(2)
	r.Total = b.Total.Round(2)
	return r
}
