package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/safiri-wallet/safiri/internal/chain"
	"github.com/safiri-wallet/safiri/internal/config"
	"github.com/safiri-wallet/safiri/internal/deployer"
	"github.com/safiri-wallet/safiri/internal/ledger"
	"github.com/safiri-wallet/safiri/internal/middleware"
	"github.com/safiri-wallet/safiri/internal/notify"
	"github.com/safiri-wallet/safiri/internal/payments"
	"github.com/safiri-wallet/safiri/internal/tasks"
	"github.com/safiri-wallet/safiri/internal/token"
	"github.com/safiri-wallet/safiri/internal/user"
	"github.com/safiri-wallet/safiri/internal/ussd"
	"github.com/safiri-wallet/safiri/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. Chain and
// Notifier may be pre-built (tests, local development); nil selects the
// production implementations.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Runner   *tasks.Runner
	Chain    chain.Client
	Notifier notify.Notifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app)

	chainClient := d.Chain
	if chainClient == nil {
		var err error
		chainClient, err = chain.NewStarknetClient(d.Cfg.Chain.NodeURL, chain.PollPolicy{
			Interval:    d.Cfg.Chain.PollInterval,
			MaxAttempts: d.Cfg.Chain.MaxPollAttempts,
		})
		if err != nil {
			return err
		}
	}

	notifier := d.Notifier
	if notifier == nil {
		if d.Cfg.SMS.APIKey != "" {
			notifier = notify.NewAfricasTalking(d.Cfg.SMS.BaseURL, d.Cfg.SMS.APIKey, d.Cfg.SMS.Username)
		} else {
			notifier = notify.NewLoggerNotifier(d.Logger)
		}
	}

	var userRepo user.Repository
	var ledgerRepo ledger.Repository
	if d.DB != nil {
		userRepo = user.NewPostgresRepository(d.DB)
		ledgerRepo = ledger.NewPostgresRepository(d.DB)
	} else {
		userRepo = user.NewMemoryRepository()
		ledgerRepo = ledger.NewMemoryRepository()
	}

	fundingDisplay, err := token.ParseDisplayAmount(d.Cfg.Chain.FundingAmount)
	if err != nil {
		return fmt.Errorf("invalid FUNDING_AMOUNT %q", d.Cfg.Chain.FundingAmount)
	}
	fee := chain.FeeConfig{MaxFee: d.Cfg.Chain.MaxFee, Version: d.Cfg.Chain.TxVersion}

	allocator := user.NewUsernameAllocator(userRepo)
	provisioner := wallet.NewService(userRepo, chainClient, allocator, d.Cfg.Chain.AccountClassHash, d.Logger)

	deployCfg := deployer.Config{
		FundingAmount: token.ToBaseUnits(fundingDisplay),
		GasToken:      d.Cfg.Chain.EthContract,
		ClassHash:     d.Cfg.Chain.AccountClassHash,
		Fee:           fee,
		SettleDelay:   d.Cfg.Chain.SettleDelay,
	}
	if d.Cfg.Chain.HasAdminAccount() {
		deployCfg.Admin = chain.Account{Address: d.Cfg.Chain.AdminAddress, PrivateKey: d.Cfg.Chain.AdminPrivateKey}
	}
	deployWorker := deployer.NewWorker(chainClient, userRepo, notifier, deployCfg, d.Logger)

	paymentsSvc := payments.NewService(userRepo, ledgerRepo, chainClient, notifier, d.Runner,
		payments.Config{Token: d.Cfg.Chain.StrkContract, Fee: fee}, d.Logger)

	interpreter := ussd.NewInterpreter(userRepo, provisioner, deployWorker, paymentsSvc, notifier, d.Runner, d.Logger)
	handler := ussd.NewHandler(interpreter)

	sessionHandlers := []fiber.Handler{}
	if d.Cache != nil {
		sessionHandlers = append(sessionHandlers,
			middleware.SessionRateLimit(d.Cache, d.Cfg.SessionRateLimit),
			middleware.SessionReplay(d.Cache, d.Cfg.SessionReplayTTL, d.Logger),
		)
	}
	sessionHandlers = append(sessionHandlers, handler.Callback)
	app.Post("/ussd", sessionHandlers...)

	return nil
}
