// Package coupon resolves promotional codes against the known coupon set.
package coupon

import (
	"strings"

	"ms-booking/internal/models"

	"github.com/pkg/errors"
)

// Resolve finds the active coupon whose code matches, ignoring case and
// surrounding whitespace.
func Resolve(code string, known []models.Coupon) (models.Coupon, error) {
	needle := strings.TrimSpace(code)
	if needle == "" {
		return models.Coupon{}, errors.Wrap(models.ErrInvalidCoupon, "empty code")
	}
	for _, c := range known {
		if c.Active && strings.EqualFold(c.Code, needle) {
			return c, nil
		}
	}
	return models.Coupon{}, errors.Wrapf(models.ErrInvalidCoupon, "code %q", needle)
}
