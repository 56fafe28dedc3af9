package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores transactions in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a transaction record.
func (r *PostgresRepository) Create(ctx context.Context, tx Transaction) error {
	txID, err := uuid.Parse(tx.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(tx.UserID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO transactions (id, user_id, tx_hash, amount, beneficiary, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		txID, userID, tx.TxHash, tx.Amount, tx.Beneficiary, tx.CreatedAt.UTC())
	return err
}

// ListByUser returns a user's transactions, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Transaction, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, user_id, tx_hash, amount, beneficiary, created_at
        FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var (
			id        uuid.UUID
			owner     uuid.UUID
			createdAt time.Time
			tx        Transaction
		)
		if err := rows.Scan(&id, &owner, &tx.TxHash, &tx.Amount, &tx.Beneficiary, &createdAt); err != nil {
			return nil, err
		}
		tx.ID = id.String()
		tx.UserID = owner.String()
		tx.CreatedAt = createdAt.UTC()
		out = append(out, tx)
	}
	return out, rows.Err()
}
