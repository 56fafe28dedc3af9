// Package deployer funds freshly provisioned addresses from the admin
// account and deploys the on-chain account contract. It runs as a detached
// follow-up to provisioning; outcomes reach the user by SMS, never through
// the session that triggered it.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/safiri-wallet/safiri/internal/chain"
	"github.com/safiri-wallet/safiri/internal/notify"
	"github.com/safiri-wallet/safiri/internal/token"
	"github.com/safiri-wallet/safiri/internal/user"
	"github.com/safiri-wallet/safiri/internal/wallet"
)

var (
	// ErrAdminFundsInsufficient indicates the admin account cannot cover the
	// configured funding amount. User state is left untouched.
	ErrAdminFundsInsufficient = errors.New("admin account has insufficient funds")

	// ErrFundingUnconfirmed indicates the funding transfer was submitted but
	// its effect was not observed after the settling delay. Distinct from an
	// outright failure: the transfer may still land.
	ErrFundingUnconfirmed = errors.New("funding submitted but balance not yet observed")

	// ErrDeploymentFailed indicates the account deployment call failed.
	ErrDeploymentFailed = errors.New("account deployment failed")
)

// Config is the explicitly constructed admin/fee state injected at startup.
// A zero-value Admin means no funding account is configured and provisioned
// wallets stay undeployed.
type Config struct {
	Admin         chain.Account
	FundingAmount *big.Int // base units of the gas token
	GasToken      string   // ETH contract funding and deployment fees are paid in
	ClassHash     string
	Fee           chain.FeeConfig
	SettleDelay   time.Duration
}

// Worker executes the two-phase fund-and-deploy flow.
type Worker struct {
	chain    chain.Client
	users    user.Repository
	notifier notify.Notifier
	cfg      Config
	logger   *slog.Logger

	// adminMu serializes submissions from the admin account: at most one
	// in-flight funding transfer at a time, so concurrent provisionings
	// cannot race on the account nonce.
	adminMu sync.Mutex
}

// NewWorker builds a deployment worker.
func NewWorker(chainClient chain.Client, users user.Repository, notifier notify.Notifier, cfg Config, logger *slog.Logger) *Worker {
	return &Worker{chain: chainClient, users: users, notifier: notifier, cfg: cfg, logger: logger}
}

// FundAndDeploy funds the user's precomputed address from the admin account,
// deploys the account contract with the provisioning-time constructor data,
// and activates the user on confirmed deployment. Any failure leaves
// Active=false; the outcome is always reported through the notifier.
func (w *Worker) FundAndDeploy(ctx context.Context, prov wallet.Provisioned) error {
	u := prov.User

	if w.cfg.Admin.Address == "" {
		w.logger.Warn("no admin account configured, wallet left undeployed", "user_id", u.ID)
		w.send(ctx, u.PhoneNumber, notify.AccountRequiresFunding(u.WalletAddress))
		return nil
	}

	adminBalance, err := w.chain.Balance(ctx, w.cfg.Admin.Address, w.cfg.GasToken)
	if err != nil {
		w.send(ctx, u.PhoneNumber, notify.AccountCreationFailed())
		return fmt.Errorf("admin balance: %w", err)
	}
	if adminBalance.Cmp(w.cfg.FundingAmount) < 0 {
		w.send(ctx, u.PhoneNumber, notify.AccountCreationFailed())
		return ErrAdminFundsInsufficient
	}

	fundingHash, err := w.submitFunding(ctx, u.WalletAddress)
	if err != nil {
		w.send(ctx, u.PhoneNumber, notify.AccountCreationFailed())
		return fmt.Errorf("funding transfer: %w", err)
	}
	w.logger.Info("funding submitted", "user_id", u.ID, "tx_hash", fundingHash)

	if status, err := w.chain.AwaitConfirmation(ctx, fundingHash); err != nil {
		w.send(ctx, u.PhoneNumber, notify.AccountCreationFailed())
		return fmt.Errorf("await funding confirmation: %w", err)
	} else if status == chain.StatusUnconfirmed {
		// The transfer may still settle; the balance recheck below decides.
		w.logger.Warn("funding confirmation exhausted, rechecking balance", "tx_hash", fundingHash)
	}

	if err := w.settle(ctx); err != nil {
		return err
	}

	funded, err := w.chain.Balance(ctx, u.WalletAddress, w.cfg.GasToken)
	if err != nil {
		w.send(ctx, u.PhoneNumber, notify.AccountCreationFailed())
		return fmt.Errorf("funded balance: %w", err)
	}
	if funded.Cmp(w.cfg.FundingAmount) < 0 {
		w.send(ctx, u.PhoneNumber, notify.AccountFundingPending(fundingHash))
		return ErrFundingUnconfirmed
	}

	deployHash, err := w.chain.DeployAccount(ctx,
		chain.Account{Address: u.WalletAddress, PrivateKey: prov.Keys.PrivateKey},
		chain.DeployPayload{
			ClassHash:           w.cfg.ClassHash,
			ConstructorCalldata: prov.ConstructorCalldata,
			Address:             u.WalletAddress,
			Salt:                prov.Keys.PublicKey,
		},
		w.cfg.Fee,
	)
	if err != nil {
		w.send(ctx, u.PhoneNumber, notify.AccountCreationFailed())
		return fmt.Errorf("%w: %v", ErrDeploymentFailed, err)
	}
	w.logger.Info("deployment submitted", "user_id", u.ID, "tx_hash", deployHash)

	status, err := w.chain.AwaitConfirmation(ctx, deployHash)
	if err != nil {
		w.send(ctx, u.PhoneNumber, notify.AccountCreationFailed())
		return fmt.Errorf("await deploy confirmation: %w", err)
	}
	if status == chain.StatusUnconfirmed {
		w.send(ctx, u.PhoneNumber, notify.AccountActivationPending(deployHash))
		return nil
	}

	if err := w.users.SetActive(ctx, u.ID); err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	w.logger.Info("wallet deployed", "user_id", u.ID, "address", u.WalletAddress)
	w.send(ctx, u.PhoneNumber, notify.AccountCreated(u.WalletAddress))
	return nil
}

func (w *Worker) submitFunding(ctx context.Context, address string) (string, error) {
	w.adminMu.Lock()
	defer w.adminMu.Unlock()
	call := token.TransferCall(w.cfg.GasToken, address, w.cfg.FundingAmount)
	return w.chain.Submit(ctx, w.cfg.Admin, call, w.cfg.Fee)
}

func (w *Worker) settle(ctx context.Context) error {
	if w.cfg.SettleDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(w.cfg.SettleDelay):
		return nil
	}
}

func (w *Worker) send(ctx context.Context, phone, message string) {
	if err := w.notifier.Send(ctx, phone, message); err != nil {
		w.logger.Warn("notification failed", "to", phone, "error", err)
	}
}
