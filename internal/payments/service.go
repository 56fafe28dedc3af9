// Package payments answers balance queries and executes authenticated
// peer-to-peer transfers, recording ledger rows for submitted transfers.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/safiri-wallet/safiri/internal/chain"
	"github.com/safiri-wallet/safiri/internal/custody"
	"github.com/safiri-wallet/safiri/internal/ledger"
	"github.com/safiri-wallet/safiri/internal/notify"
	"github.com/safiri-wallet/safiri/internal/tasks"
	"github.com/safiri-wallet/safiri/internal/token"
	"github.com/safiri-wallet/safiri/internal/user"
)

var (
	// ErrNoAccount indicates no wallet exists for the phone number.
	ErrNoAccount = errors.New("no account for phone number")

	// ErrAccountNotActive indicates the wallet has not been deployed yet.
	ErrAccountNotActive = errors.New("wallet not yet active")

	// ErrInvalidPin indicates the supplied PIN does not match.
	ErrInvalidPin = errors.New("incorrect pin")

	// ErrRecipientNotFound indicates no active wallet matches the recipient
	// identifier.
	ErrRecipientNotFound = errors.New("recipient not found or wallet not active")

	// ErrSelfTransfer rejects transfers to the sender's own wallet.
	ErrSelfTransfer = errors.New("cannot transfer to own account")

	// ErrInvalidAmount rejects non-positive or non-numeric amounts.
	ErrInvalidAmount = errors.New("invalid transfer amount")

	// ErrInsufficientBalance indicates the on-chain balance cannot cover the
	// requested amount. Checked before submission.
	ErrInsufficientBalance = errors.New("insufficient balance for transfer")
)

// Config carries the token contract and fee constants for transfers.
type Config struct {
	Token string // STRK contract balances and transfers run against
	Fee   chain.FeeConfig
}

// Service orchestrates balance queries and transfers.
type Service struct {
	users    user.Repository
	ledger   ledger.Repository
	chain    chain.Client
	notifier notify.Notifier
	runner   *tasks.Runner
	cfg      Config
	logger   *slog.Logger
}

// NewService builds the orchestrator.
func NewService(users user.Repository, ledgerRepo ledger.Repository, chainClient chain.Client, notifier notify.Notifier, runner *tasks.Runner, cfg Config, logger *slog.Logger) *Service {
	return &Service{users: users, ledger: ledgerRepo, chain: chainClient, notifier: notifier, runner: runner, cfg: cfg, logger: logger}
}

// Balance returns the display-unit balance for the user's wallet and mirrors
// it to SMS. Inactive wallets are rejected regardless of on-chain balance.
func (s *Service) Balance(ctx context.Context, phoneNumber string) (decimal.Decimal, error) {
	u, err := s.users.FindByPhone(ctx, phoneNumber)
	if errors.Is(err, user.ErrNotFound) {
		return decimal.Zero, ErrNoAccount
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("lookup phone: %w", err)
	}
	if !u.Active {
		return decimal.Zero, ErrAccountNotActive
	}

	base, err := s.chain.Balance(ctx, u.WalletAddress, s.cfg.Token)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query balance: %w", err)
	}
	amount := token.FromBaseUnits(base)

	// SMS copy is best effort.
	if err := s.notifier.Send(ctx, u.PhoneNumber, notify.BalanceMessage(u.WalletAddress, amount)); err != nil {
		s.logger.Warn("balance notification failed", "to", u.PhoneNumber, "error", err)
	}
	return amount, nil
}

// History returns the user's recorded transfers, newest first, capped at
// limit. Works for inactive wallets too: the rows are the user's own audit
// trail, not a chain query.
func (s *Service) History(ctx context.Context, phoneNumber string, limit int) ([]ledger.Transaction, error) {
	u, err := s.users.FindByPhone(ctx, phoneNumber)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrNoAccount
	}
	if err != nil {
		return nil, fmt.Errorf("lookup phone: %w", err)
	}

	rows, err := s.ledger.ListByUser(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// TransferInput captures one authenticated transfer request.
type TransferInput struct {
	SenderPhone string
	Recipient   string // username or phone number
	Amount      string // display units as typed
	PIN         string
}

// Transfer validates the request synchronously and, on success, schedules
// the chain submission as a detached task. The caller can therefore answer
// "transfer initiated" immediately; the final outcome arrives by SMS.
func (s *Service) Transfer(ctx context.Context, input TransferInput) error {
	sender, err := s.users.FindByPhone(ctx, input.SenderPhone)
	if errors.Is(err, user.ErrNotFound) {
		return ErrNoAccount
	}
	if err != nil {
		return fmt.Errorf("lookup sender: %w", err)
	}

	// Verbatim comparison against the stored PIN: the documented (weak)
	// contract. See the custody package note on known defects.
	if sender.PIN != input.PIN {
		return ErrInvalidPin
	}

	recipient, err := s.users.FindActiveByUsernameOrPhone(ctx, input.Recipient)
	if errors.Is(err, user.ErrNotFound) {
		return ErrRecipientNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup recipient: %w", err)
	}

	if sender.PhoneNumber == recipient.PhoneNumber {
		return ErrSelfTransfer
	}

	amount, err := token.ParseDisplayAmount(input.Amount)
	if err != nil {
		return ErrInvalidAmount
	}

	s.runner.Go("transfer", func(taskCtx context.Context) error {
		return s.execute(taskCtx, sender, recipient, amount)
	})
	return nil
}

// execute runs the chain-facing half of a transfer. A ledger row is written
// iff the submission succeeded; confirmation only affects which notification
// the sender receives.
func (s *Service) execute(ctx context.Context, sender, recipient user.User, amount decimal.Decimal) error {
	key, err := custody.Open(sender.EncryptedPrivateKey)
	if err != nil {
		s.send(ctx, sender.PhoneNumber, notify.TransferFailed("wallet key unavailable"))
		return fmt.Errorf("open custody blob: %w", err)
	}

	baseAmount := token.ToBaseUnits(amount)
	balance, err := s.chain.Balance(ctx, sender.WalletAddress, s.cfg.Token)
	if err != nil {
		s.send(ctx, sender.PhoneNumber, notify.TransferFailed("could not reach the network"))
		return fmt.Errorf("sender balance: %w", err)
	}
	if balance.Cmp(baseAmount) < 0 {
		s.send(ctx, sender.PhoneNumber, notify.TransferFailed("insufficient balance"))
		return ErrInsufficientBalance
	}

	signer := chain.Account{Address: sender.WalletAddress, PrivateKey: key}
	call := token.TransferCall(s.cfg.Token, recipient.WalletAddress, baseAmount)
	txHash, err := s.chain.Submit(ctx, signer, call, s.cfg.Fee)
	if err != nil {
		s.send(ctx, sender.PhoneNumber, notify.TransferFailed("transaction was rejected"))
		return fmt.Errorf("submit transfer: %w", err)
	}

	beneficiary := recipient.Username
	if beneficiary == "" {
		beneficiary = recipient.PhoneNumber
	}
	row := ledger.Transaction{
		ID:          uuid.NewString(),
		UserID:      sender.ID,
		TxHash:      txHash,
		Amount:      amount,
		Beneficiary: beneficiary,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.ledger.Create(ctx, row); err != nil {
		// The chain effect has landed; keep going but leave a trace.
		s.logger.Error("ledger record failed", "tx_hash", txHash, "error", err)
	}

	status, err := s.chain.AwaitConfirmation(ctx, txHash)
	if err != nil || status == chain.StatusUnconfirmed {
		s.send(ctx, sender.PhoneNumber, notify.TransferUnconfirmed(txHash, amount, beneficiary))
		if err != nil {
			return fmt.Errorf("await transfer confirmation: %w", err)
		}
		return nil
	}

	s.logger.Info("transfer confirmed", "user_id", sender.ID, "tx_hash", txHash, "amount", amount.String())
	s.send(ctx, sender.PhoneNumber, notify.TransferSuccess(txHash, amount, beneficiary))
	return nil
}

func (s *Service) send(ctx context.Context, phone, message string) {
	if err := s.notifier.Send(ctx, phone, message); err != nil {
		s.logger.Warn("notification failed", "to", phone, "error", err)
	}
}
