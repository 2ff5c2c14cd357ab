package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type TransactionStatus string

const (
	TransactionProcessing TransactionStatus = "PROCESSING"
	TransactionSuccess    TransactionStatus = "SUCCESS"
	TransactionFailed     TransactionStatus = "FAILED"
)

func (s TransactionStatus) Terminal() bool {
	return s == TransactionSuccess || s == TransactionFailed
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionProcessing, TransactionSuccess, TransactionFailed:
		return true
	}
	return false
}

type Transaction struct {
	bun.BaseModel `bun:"table:transactions"`

	ID        string            `bun:"id,pk" json:"id"`
	OrderID   string            `bun:"order_id" json:"order_id"`
	Amount    decimal.Decimal   `bun:"amount,type:varchar(32)" json:"amount"`
	Method    string            `bun:"method" json:"method"`
	Status    TransactionStatus `bun:"status" json:"status"`
	UserName  string            `bun:"user_name" json:"user_name"`
	Timestamp time.Time         `bun:"timestamp" json:"timestamp"`
}

// TransitionTo only allows PROCESSING -> SUCCESS and PROCESSING -> FAILED.
func (t *Transaction) TransitionTo(next TransactionStatus) error {
	if t.Status != TransactionProcessing || !next.Terminal() {
		return errors.Wrapf(ErrInvalidTransition, "transaction %s: %s -> %s", t.ID, t.Status, next)
	}
	t.Status = next
	return nil
}
