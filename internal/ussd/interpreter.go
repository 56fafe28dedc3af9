// Package ussd maps accumulated session text to wallet actions. Every
// terminal response is produced synchronously within the gateway round-trip;
// chain work too slow for that is dispatched as a detached task and reported
// later by SMS.
package ussd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/safiri-wallet/safiri/internal/deployer"
	"github.com/safiri-wallet/safiri/internal/notify"
	"github.com/safiri-wallet/safiri/internal/payments"
	"github.com/safiri-wallet/safiri/internal/tasks"
	"github.com/safiri-wallet/safiri/internal/token"
	"github.com/safiri-wallet/safiri/internal/user"
	"github.com/safiri-wallet/safiri/internal/wallet"
)

const (
	msgMainMenu = "Welcome to Safiri Wallet\n1. Create an account\n2. Check wallet balance\n3. Transfer\n4. My transactions"

	msgNamePrompt      = "Enter full name"
	msgPasscodePrompt  = "Enter your passcode"
	msgCreating        = "Creating account, you will receive an SMS when complete"
	msgAlreadyHave     = "You already have an account"
	msgIncompleteInput = "Incomplete signup details"

	msgNoAccount     = "You do not have an account. Please create one"
	msgNotActive     = "Your wallet is not yet active. Please wait for deployment."
	msgBalanceFailed = "Could not check balance at the moment"

	msgRecipientPrompt  = "Enter recipient username or phone number"
	msgRecipientMissing = "Recipient not found or wallet not active"
	msgAmountInvalid    = "Please enter a valid amount"
	msgPinPrompt        = "Enter your PIN to confirm transfer"
	msgPinIncorrect     = "Incorrect PIN"
	msgSelfTransfer     = "You cannot transfer to your own account"
	msgTransferStarted  = "Transfer initiated. You will receive an SMS confirmation."
	msgTransferFailed   = "Could not process transfer"

	msgNoTransactions = "No transactions yet"
	msgHistoryFailed  = "Could not fetch transactions at the moment"

	msgInvalidInput = "Invalid input"
)

// Interpreter is the top-level session state machine.
type Interpreter struct {
	users       user.Repository
	provisioner *wallet.Service
	deployer    *deployer.Worker
	payments    *payments.Service
	notifier    notify.Notifier
	runner      *tasks.Runner
	logger      *slog.Logger
}

// NewInterpreter wires the interpreter over its downstream actions.
func NewInterpreter(users user.Repository, provisioner *wallet.Service, deployWorker *deployer.Worker, paymentsSvc *payments.Service, notifier notify.Notifier, runner *tasks.Runner, logger *slog.Logger) *Interpreter {
	return &Interpreter{
		users:       users,
		provisioner: provisioner,
		deployer:    deployWorker,
		payments:    paymentsSvc,
		notifier:    notifier,
		runner:      runner,
		logger:      logger,
	}
}

// Handle maps one gateway callback to a response. No fault escapes to the
// transport: unknown states and internal errors degrade to a terminal END.
func (i *Interpreter) Handle(ctx context.Context, req Request) Response {
	s := parseSession(req.Text)
	switch s.menu {
	case menuRoot:
		return con(msgMainMenu)
	case menuCreate:
		return i.create(ctx, req.Phone, s)
	case menuBalance:
		return i.balance(ctx, req.Phone, s)
	case menuTransfer:
		return i.transfer(ctx, req.Phone, s)
	case menuHistory:
		return i.history(ctx, req.Phone, s)
	default:
		return end(msgInvalidInput)
	}
}

func (i *Interpreter) create(ctx context.Context, phone string, s session) Response {
	switch s.step() {
	case 0:
		return con(msgNamePrompt)
	case 1:
		if s.input(0) == "" {
			return end(msgIncompleteInput)
		}
		return con(msgPasscodePrompt)
	case 2:
		fullName, passcode := s.input(0), s.input(1)
		if fullName == "" || passcode == "" || phone == "" {
			return end(msgIncompleteInput)
		}

		// Pre-check so the session can answer synchronously; the
		// provisioner re-checks before any chain work.
		if _, err := i.users.FindByPhone(ctx, phone); err == nil {
			return end(msgAlreadyHave)
		} else if !errors.Is(err, user.ErrNotFound) {
			i.logger.Error("registration lookup failed", "error", err)
			return end(msgInvalidInput)
		}

		i.runner.Go("provision", func(taskCtx context.Context) error {
			return i.provisionAndDeploy(taskCtx, fullName, phone, passcode)
		})
		return end(msgCreating)
	default:
		return end(msgInvalidInput)
	}
}

// provisionAndDeploy is the detached registration task: create the wallet,
// then fund and deploy it. Failures are reported by SMS only; the session
// has already ended.
func (i *Interpreter) provisionAndDeploy(ctx context.Context, fullName, phone, passcode string) error {
	prov, err := i.provisioner.Provision(ctx, fullName, phone, passcode)
	if err != nil {
		if !errors.Is(err, wallet.ErrDuplicateRegistration) {
			if sendErr := i.notifier.Send(ctx, phone, notify.AccountCreationFailed()); sendErr != nil {
				i.logger.Warn("notification failed", "to", phone, "error", sendErr)
			}
		}
		return fmt.Errorf("provision: %w", err)
	}
	return i.deployer.FundAndDeploy(ctx, prov)
}

func (i *Interpreter) balance(ctx context.Context, phone string, s session) Response {
	if s.step() != 0 {
		return end(msgInvalidInput)
	}
	amount, err := i.payments.Balance(ctx, phone)
	switch {
	case errors.Is(err, payments.ErrNoAccount):
		return end(msgNoAccount)
	case errors.Is(err, payments.ErrAccountNotActive):
		return end(msgNotActive)
	case err != nil:
		i.logger.Error("balance check failed", "error", err)
		return end(msgBalanceFailed)
	}
	return end(fmt.Sprintf("Your wallet balance: %s STRK", amount.String()))
}

// historyLimit caps the terminal listing; USSD screens hold very little.
const historyLimit = 3

func (i *Interpreter) history(ctx context.Context, phone string, s session) Response {
	if s.step() != 0 {
		return end(msgInvalidInput)
	}
	rows, err := i.payments.History(ctx, phone, historyLimit)
	switch {
	case errors.Is(err, payments.ErrNoAccount):
		return end(msgNoAccount)
	case err != nil:
		i.logger.Error("history lookup failed", "error", err)
		return end(msgHistoryFailed)
	}
	if len(rows) == 0 {
		return end(msgNoTransactions)
	}

	var b strings.Builder
	b.WriteString("Recent transfers:")
	for _, row := range rows {
		fmt.Fprintf(&b, "\n%s STRK to %s", row.Amount.String(), row.Beneficiary)
	}
	return end(b.String())
}

func (i *Interpreter) transfer(ctx context.Context, phone string, s session) Response {
	switch s.step() {
	case 0:
		u, err := i.users.FindByPhone(ctx, phone)
		if errors.Is(err, user.ErrNotFound) {
			return end(msgNoAccount)
		}
		if err != nil {
			i.logger.Error("transfer initiation failed", "error", err)
			return end(msgTransferFailed)
		}
		if !u.Active {
			return end(msgNotActive)
		}
		return con(msgRecipientPrompt)
	case 1:
		recipient, err := i.users.FindActiveByUsernameOrPhone(ctx, s.input(0))
		if errors.Is(err, user.ErrNotFound) {
			return end(msgRecipientMissing)
		}
		if err != nil {
			i.logger.Error("recipient lookup failed", "error", err)
			return end(msgTransferFailed)
		}
		return con(fmt.Sprintf("Enter amount to transfer (STRK) to %s", recipient.FullName))
	case 2:
		if _, err := token.ParseDisplayAmount(s.input(1)); err != nil {
			return end(msgAmountInvalid)
		}
		return con(msgPinPrompt)
	case 3:
		err := i.payments.Transfer(ctx, payments.TransferInput{
			SenderPhone: phone,
			Recipient:   s.input(0),
			Amount:      s.input(1),
			PIN:         s.input(2),
		})
		switch {
		case errors.Is(err, payments.ErrNoAccount):
			return end(msgNoAccount)
		case errors.Is(err, payments.ErrInvalidPin):
			return end(msgPinIncorrect)
		case errors.Is(err, payments.ErrRecipientNotFound):
			return end(msgRecipientMissing)
		case errors.Is(err, payments.ErrSelfTransfer):
			return end(msgSelfTransfer)
		case errors.Is(err, payments.ErrInvalidAmount):
			return end(msgAmountInvalid)
		case err != nil:
			i.logger.Error("transfer validation failed", "error", err)
			return end(msgTransferFailed)
		}
		return end(msgTransferStarted)
	default:
		return end(msgInvalidInput)
	}
}
