package order

import (
	"context"
	"time"

	"ms-booking/internal/models"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Settler decides the fate of a PROCESSING transaction. A nil error means the
// payment was captured; an error wrapping models.ErrSettlementFailure means it
// was declined; a context error means the wait was abandoned.
type Settler interface {
	Settle(ctx context.Context, tx models.Transaction) error
}

// DelaySettler simulates a gateway that answers after a fixed delay.
type DelaySettler struct {
	Delay time.Duration
	// MaxAmount, when positive, declines transactions above it.
	MaxAmount decimal.Decimal
}

func (d DelaySettler) Settle(ctx context.Context, tx models.Transaction) error {
	if d.Delay > 0 {
		timer := time.NewTimer(d.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	if d.MaxAmount.IsPositive() && tx.Amount.GreaterThan(d.MaxAmount) {
		return errors.Wrapf(models.ErrSettlementFailure, "amount %s exceeds limit %s", tx.Amount.StringFixed(2), d.MaxAmount.StringFixed(2))
	}
	return nil
}
