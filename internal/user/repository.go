package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates no user matches the lookup key.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicate indicates a uniqueness constraint (phone, username or
	// wallet address) rejected the write. Concurrent double-registration
	// races surface as this error rather than a second row.
	ErrDuplicate = errors.New("user already exists")
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByPhone(ctx context.Context, phone string) (User, error)
	// FindActiveByUsernameOrPhone resolves a transfer recipient: the
	// identifier may be either key, and only deployed wallets match.
	FindActiveByUsernameOrPhone(ctx context.Context, identifier string) (User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	SetActive(ctx context.Context, id string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, full_name, phone_number, safiri_username, wallet_address, encrypted_private_key, pin, active, created_at`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		userID, user.FullName, user.PhoneNumber, user.Username, user.WalletAddress,
		user.EncryptedPrivateKey, user.PIN, user.Active, user.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// FindByPhone fetches a user by phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE phone_number = $1`, phone)
	return scanUser(row)
}

// FindActiveByUsernameOrPhone fetches a deployed user by either identifier.
func (r *PostgresRepository) FindActiveByUsernameOrPhone(ctx context.Context, identifier string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users
        WHERE (safiri_username = $1 OR phone_number = $1) AND active`, identifier)
	return scanUser(row)
}

// UsernameTaken reports whether a username is already allocated.
func (r *PostgresRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE safiri_username = $1)`, username).Scan(&exists)
	return exists, err
}

// SetActive marks the user's wallet as deployed.
func (r *PostgresRepository) SetActive(ctx context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET active = TRUE WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		user      User
	)
	err := row.Scan(&id, &user.FullName, &user.PhoneNumber, &user.Username, &user.WalletAddress,
		&user.EncryptedPrivateKey, &user.PIN, &user.Active, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = createdAt.UTC()
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
