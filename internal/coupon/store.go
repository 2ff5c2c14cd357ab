package coupon

import (
	"fmt"
	"strings"
	"sync"

	"ms-booking/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Recorder interface {
	Record(actor, action, details string, severity models.Severity) models.AuditLogEntry
}

type Store struct {
	mu      sync.RWMutex
	coupons []models.Coupon
	audit   Recorder
}

func NewStore(audit Recorder, seed []models.Coupon) *Store {
	return &Store{audit: audit, coupons: append([]models.Coupon(nil), seed...)}
}

func (s *Store) List() []models.Coupon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Coupon(nil), s.coupons...)
}

// Resolve looks the code up among the current coupons.
func (s *Store) Resolve(code string) (models.Coupon, error) {
	return Resolve(code, s.List())
}

func (s *Store) Add(actor string, c models.Coupon) (models.Coupon, error) {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if c.Code == "" {
		return models.Coupon{}, errors.Wrap(models.ErrInvalidCoupon, "code is required")
	}
	switch c.DiscountType {
	case models.DiscountPercent:
		if c.Value.LessThan(decimal.Zero) || c.Value.GreaterThan(decimal.NewFromInt(100)) {
			return models.Coupon{}, errors.Wrapf(models.ErrInvalidCoupon, "percent value %s out of range", c.Value)
		}
	case models.DiscountFixed:
		if c.Value.LessThan(decimal.Zero) {
			return models.Coupon{}, errors.Wrapf(models.ErrInvalidCoupon, "negative fixed value %s", c.Value)
		}
	default:
		return models.Coupon{}, errors.Wrapf(models.ErrInvalidCoupon, "unknown discount type %q", c.DiscountType)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	s.mu.Lock()
	for _, existing := range s.coupons {
		if strings.EqualFold(existing.Code, c.Code) {
			s.mu.Unlock()
			return models.Coupon{}, errors.Wrapf(models.ErrInvalidCoupon, "code %s already exists", c.Code)
		}
	}
	s.coupons = append(s.coupons, c)
	s.mu.Unlock()

	s.audit.Record(actor, models.ActionCoupon, fmt.Sprintf("Coupon created: %s", c.Code), models.SeverityInfo)
	return c, nil
}

func (s *Store) SetActive(actor, id string, active bool) (models.Coupon, error) {
	s.mu.Lock()
	var updated *models.Coupon
	for i := range s.coupons {
		if s.coupons[i].ID == id {
			s.coupons[i].Active = active
			updated = &s.coupons[i]
			break
		}
	}
	if updated == nil {
		s.mu.Unlock()
		return models.Coupon{}, errors.Wrapf(models.ErrNotFound, "coupon %s", id)
	}
	c := *updated
	s.mu.Unlock()

	state := "disabled"
	if active {
		state = "enabled"
	}
	s.audit.Record(actor, models.ActionCoupon, fmt.Sprintf("Coupon %s %s", c.Code, state), models.SeverityInfo)
	return c, nil
}
