package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type ChargeRepository interface {
	Create(ctx context.Context, c *Charge) error
	GetByID(ctx context.Context, dir Direction, id int64) (*Charge, error)
	// GetForUpdate row-locks the charge for the current transaction.
	GetForUpdate(ctx context.Context, dir Direction, id int64) (*Charge, error)
	ApplyPayment(ctx context.Context, dir Direction, id int64, paid decimal.Decimal, status ChargeStatus, paidOn time.Time) error
	AttachReceipt(ctx context.Context, dir Direction, id int64, uploadID string) error
	List(ctx context.Context, dir Direction) ([]*Charge, error)
}

type CashLedger interface {
	Append(ctx context.Context, e *CashEntry) error
	List(ctx context.Context, limit int) ([]*CashEntry, error)
}
