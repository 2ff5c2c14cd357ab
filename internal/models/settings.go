package models

import "github.com/shopspring/decimal"

type TaxRate struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

type PaymentMethod struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// Settings are the operator-editable values the pricing engine and checkout
// read at computation time.
type Settings struct {
	CompanyName      string          `json:"company_name"`
	Currency         string          `json:"currency"`
	PricePerKm       decimal.Decimal `json:"price_per_km"`
	TaxRateDefault   decimal.Decimal `json:"tva_rate_default"`
	TaxRates         []TaxRate       `json:"tva_rates"`
	SurchargeWeekend decimal.Decimal `json:"surcharge_weekend"`
	SurchargeEvening decimal.Decimal `json:"surcharge_evening"`
	InsuranceRate    decimal.Decimal `json:"insurance_rate"`
	PaymentMethods   []PaymentMethod `json:"payment_methods"`
	BookingSlots     []string        `json:"booking_slots"`
	MinLeadDays      int             `json:"min_lead_days"`
	Installments     int             `json:"installments"`
}

func (s Settings) PaymentMethodEnabled(id string) bool {
	for _, m := range s.PaymentMethods {
		if m.ID == id {
			return m.Enabled
		}
	}
	return false
}

func (s Settings) HasSlot(slot string) bool {
	for _, candidate := range s.BookingSlots {
		if candidate == slot {
			return true
		}
	}
	return false
}

// Clone copies the slice fields so callers cannot mutate shared settings.
func (s Settings) Clone() Settings {
	c := s
	c.TaxRates = append([]TaxRate(nil), s.TaxRates...)
	c.PaymentMethods = append([]PaymentMethod(nil), s.PaymentMethods...)
	c.BookingSlots = append([]string(nil), s.BookingSlots...)
	return c
}
