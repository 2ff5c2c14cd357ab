// Package settings holds the operator-editable pricing and checkout values.
package settings

import (
	"sync"

	"ms-booking/internal/config"
	"ms-booking/internal/models"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Recorder interface {
	Record(actor, action, details string, severity models.Severity) models.AuditLogEntry
}

var paymentLabels = map[string][2]string{
	"CARD":      {"Carte Bancaire", "Visa, Mastercard, CB"},
	"APPLE_PAY": {"Apple Pay", "Paiement mobile sécurisé"},
	"SPLIT":     {"Paiement 3x sans frais", "Réglez en plusieurs fois"},
}

// Defaults builds the initial settings from configuration.
func Defaults(cfg *config.Config) models.Settings {
	methods := make([]models.PaymentMethod, 0, len(cfg.Checkout.PaymentMethods))
	for _, id := range cfg.Checkout.PaymentMethods {
		label := paymentLabels[id]
		if label[0] == "" {
			label[0] = id
		}
		methods = append(methods, models.PaymentMethod{ID: id, Label: label[0], Description: label[1], Enabled: true})
	}

	return models.Settings{
		CompanyName:    "Artipol Services",
		Currency:       cfg.Pricing.Currency,
		PricePerKm:     cfg.Pricing.PricePerKm,
		TaxRateDefault: cfg.Pricing.TaxRateDefault,
		TaxRates: []models.TaxRate{
			{Label: "Normal", Value: decimal.NewFromInt(20)},
			{Label: "Intermédiaire (Travaux)", Value: decimal.NewFromInt(10)},
			{Label: "Réduit (Rénovation énergétique)", Value: decimal.RequireFromString("5.5")},
		},
		SurchargeWeekend: cfg.Pricing.SurchargeWeekend,
		SurchargeEvening: cfg.Pricing.SurchargeEvening,
		InsuranceRate:    cfg.Pricing.InsuranceRate,
		PaymentMethods:   methods,
		BookingSlots:     append([]string(nil), cfg.Checkout.BookingSlots...),
		MinLeadDays:      cfg.Checkout.MinLeadDays,
		Installments:     cfg.Checkout.Installments,
	}
}

type Provider struct {
	mu       sync.RWMutex
	settings models.Settings
	audit    Recorder
}

func NewProvider(initial models.Settings, audit Recorder) *Provider {
	return &Provider{settings: initial.Clone(), audit: audit}
}

func (p *Provider) Get() models.Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings.Clone()
}

func (p *Provider) PaymentMethodEnabled(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings.PaymentMethodEnabled(id)
}

// Update replaces the settings. Values read by an in-flight computation are
// not affected; the next computation sees the new ones.
func (p *Provider) Update(actor string, next models.Settings) (models.Settings, error) {
	if err := validate(next); err != nil {
		return models.Settings{}, err
	}

	p.mu.Lock()
	p.settings = next.Clone()
	p.mu.Unlock()

	p.audit.Record(actor, models.ActionConfiguration, "Global configuration updated", models.SeverityWarning)
	return next.Clone(), nil
}

func validate(s models.Settings) error {
	for name, v := range map[string]decimal.Decimal{
		"price per km":      s.PricePerKm,
		"tax rate":          s.TaxRateDefault,
		"weekend surcharge": s.SurchargeWeekend,
		"evening surcharge": s.SurchargeEvening,
		"insurance rate":    s.InsuranceRate,
	} {
		if v.IsNegative() {
			return errors.Wrapf(models.ErrInvalidSelection, "%s must not be negative", name)
		}
	}
	if s.InsuranceRate.GreaterThan(decimal.NewFromInt(1)) {
		return errors.Wrap(models.ErrInvalidSelection, "insurance rate is a fraction and must not exceed 1")
	}
	if s.MinLeadDays < 0 {
		return errors.Wrap(models.ErrInvalidSelection, "minimum lead time must not be negative")
	}
	if s.Installments < 1 {
		return errors.Wrap(models.ErrInvalidSelection, "installments must be at least 1")
	}
	return nil
}
