package models

import "github.com/pkg/errors"

// Error kinds shared by the booking core. Callers wrap them with context and
// test for them with errors.Is.
var (
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrInvalidCoupon      = errors.New("invalid coupon")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrSettlementFailure  = errors.New("settlement failed")
	ErrNotFound           = errors.New("not found")
	ErrLineNotFound       = errors.New("cart line not found")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidBooking     = errors.New("invalid booking details")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrInvalidVoucher     = errors.New("invalid voucher")
)
