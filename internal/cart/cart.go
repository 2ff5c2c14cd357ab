// Package cart holds the visitor's pending selections and the coupon applied
// to them until checkout.
package cart

import (
	"strings"
	"sync"

	"ms-booking/internal/models"
	"ms-booking/internal/pricing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// CouponResolver looks up an active coupon by code.
type CouponResolver interface {
	Resolve(code string) (models.Coupon, error)
}

// PricedLine is a cart line together with its computed prices.
type PricedLine struct {
	models.CartLine
	Price models.LineBreakdown `json:"price"`
}

type Cart struct {
	mu      sync.RWMutex
	lines   []models.CartLine
	coupon  *models.Coupon
	engine  *pricing.Engine
	coupons CouponResolver
}

func New(engine *pricing.Engine, coupons CouponResolver) *Cart {
	return &Cart{engine: engine, coupons: coupons}
}

// Add validates the selection against the service snapshot and appends it
// under a fresh line id.
func (c *Cart) Add(line models.CartLine) (models.CartLine, error) {
	if _, err := c.engine.PriceLine(&line.Service, line.VariantID, line.OptionIDs, line.Quantity); err != nil {
		return models.CartLine{}, err
	}
	if line.PricingMode == "" {
		line.PricingMode = models.PricingLaborOnly
	}
	line.ID = uuid.NewString()
	line.Service = line.Service.Clone()
	line.OptionIDs = append([]string{}, line.OptionIDs...)

	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()
	return line, nil
}

// UpdateQuantity sets the quantity of a line; values below one are clamped to one.
func (c *Cart) UpdateQuantity(id string, quantity int) (models.CartLine, error) {
	if quantity < 1 {
		quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ID == id {
			c.lines[i].Quantity = quantity
			return cloneLine(c.lines[i]), nil
		}
	}
	return models.CartLine{}, errors.Wrapf(models.ErrLineNotFound, "line %s", id)
}

func (c *Cart) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ID == id {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return nil
		}
	}
	return errors.Wrapf(models.ErrLineNotFound, "line %s", id)
}

// Clear empties the cart and always drops the applied coupon.
func (c *Cart) Clear() {
	c.mu.Lock()
	c.lines = nil
	c.coupon = nil
	c.mu.Unlock()
}

// Consume removes the given lines and drops the active coupon when it is the
// one named by couponCode. Lines and coupons added after the snapshot stay.
func (c *Cart) Consume(lineIDs []string, couponCode string) {
	used := make(map[string]struct{}, len(lineIDs))
	for _, id := range lineIDs {
		used[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.lines[:0]
	for _, l := range c.lines {
		if _, ok := used[l.ID]; !ok {
			kept = append(kept, l)
		}
	}
	c.lines = kept
	if c.coupon != nil && couponCode != "" && strings.EqualFold(c.coupon.Code, couponCode) {
		c.coupon = nil
	}
}

func (c *Cart) Lines() []models.CartLine {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.CartLine, len(c.lines))
	for i, l := range c.lines {
		out[i] = cloneLine(l)
	}
	return out
}

func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lines)
}

// Priced returns every line with its breakdown.
func (c *Cart) Priced() ([]PricedLine, error) {
	lines := c.Lines()
	out := make([]PricedLine, 0, len(lines))
	for _, l := range lines {
		b, err := c.engine.PriceLine(&l.Service, l.VariantID, l.OptionIDs, l.Quantity)
		if err != nil {
			return nil, errors.WithMessagef(err, "cart line %s", l.ID)
		}
		out = append(out, PricedLine{CartLine: l, Price: b})
	}
	return out, nil
}

func (c *Cart) Subtotal() (decimal.Decimal, error) {
	return c.engine.PriceCart(c.Lines())
}

// ApplyCoupon replaces the active coupon. On failure the previous coupon,
// if any, stays applied.
func (c *Cart) ApplyCoupon(code string) (models.Coupon, error) {
	coupon, err := c.coupons.Resolve(code)
	if err != nil {
		return models.Coupon{}, err
	}

	c.mu.Lock()
	c.coupon = &coupon
	c.mu.Unlock()
	return coupon, nil
}

func (c *Cart) RemoveCoupon() {
	c.mu.Lock()
	c.coupon = nil
	c.mu.Unlock()
}

func (c *Cart) ActiveCoupon() *models.Coupon {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.coupon == nil {
		return nil
	}
	cp := *c.coupon
	return &cp
}

func cloneLine(l models.CartLine) models.CartLine {
	l.Service = l.Service.Clone()
	l.OptionIDs = append([]string{}, l.OptionIDs...)
	return l
}
