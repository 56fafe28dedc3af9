// Package ledger records confirmed transfer submissions for audit display.
// Rows are insert-only: a Transaction never exists without a successfully
// submitted chain call, and is never updated or deleted afterwards.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one recorded transfer from a sender's wallet.
type Transaction struct {
	ID          string
	UserID      string // sending user
	TxHash      string
	Amount      decimal.Decimal // display units
	Beneficiary string          // recipient's username or phone, denormalized
	CreatedAt   time.Time
}

// Repository persists transactions.
type Repository interface {
	Create(ctx context.Context, tx Transaction) error
	ListByUser(ctx context.Context, userID string) ([]Transaction, error)
}
