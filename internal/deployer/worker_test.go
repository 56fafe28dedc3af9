package deployer

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/safiri-wallet/safiri/internal/chain"
	"github.com/safiri-wallet/safiri/internal/logging"
	"github.com/safiri-wallet/safiri/internal/user"
	"github.com/safiri-wallet/safiri/internal/wallet"
)

const (
	testClassHash = "0xclass"
	testGasToken  = "0xeth"
	testAdminAddr = "0xadmin"
)

var testFunding = big.NewInt(100_000_000_000_000) // 0.0001 in base units

type captureNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *captureNotifier) Send(_ context.Context, _, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func (n *captureNotifier) last(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		t.Fatal("expected at least one notification")
	}
	return n.messages[len(n.messages)-1]
}

type fixture struct {
	worker   *Worker
	repo     user.Repository
	sim      *chain.SimulatedClient
	notifier *captureNotifier
	prov     wallet.Provisioned
}

func newFixture(t *testing.T, withAdmin bool) *fixture {
	t.Helper()
	repo := user.NewMemoryRepository()
	sim := chain.NewSimulated()
	notifier := &captureNotifier{}
	logger := logging.Discard()

	provisioner := wallet.NewService(repo, sim, user.NewUsernameAllocator(repo), testClassHash, logger)
	prov, err := provisioner.Provision(context.Background(), "Jane Doe", "+254700000001", "4321")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	cfg := Config{
		FundingAmount: testFunding,
		GasToken:      testGasToken,
		ClassHash:     testClassHash,
		Fee:           chain.FeeConfig{MaxFee: "100000000000000", Version: "0x3"},
	}
	if withAdmin {
		cfg.Admin = chain.Account{Address: testAdminAddr, PrivateKey: "0xadminkey"}
	}

	return &fixture{
		worker:   NewWorker(sim, repo, notifier, cfg, logger),
		repo:     repo,
		sim:      sim,
		notifier: notifier,
		prov:     prov,
	}
}

func (f *fixture) userState(t *testing.T) user.User {
	t.Helper()
	u, err := f.repo.FindByPhone(context.Background(), f.prov.User.PhoneNumber)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	return u
}

func TestFundAndDeploy(t *testing.T) {
	f := newFixture(t, true)
	f.sim.SetBalance(testGasToken, testAdminAddr, new(big.Int).Mul(testFunding, big.NewInt(10)))

	if err := f.worker.FundAndDeploy(context.Background(), f.prov); err != nil {
		t.Fatalf("fund and deploy: %v", err)
	}

	if !f.userState(t).Active {
		t.Fatal("expected user to be active after deployment")
	}
	if !f.sim.Deployed(f.prov.User.WalletAddress) {
		t.Fatal("expected account contract to be deployed")
	}
	funded, _ := f.sim.Balance(context.Background(), f.prov.User.WalletAddress, testGasToken)
	if funded.Cmp(testFunding) != 0 {
		t.Fatalf("expected funded balance %s, got %s", testFunding, funded)
	}
	if msg := f.notifier.last(t); !strings.Contains(msg, "created successfully") {
		t.Fatalf("expected success notification, got %q", msg)
	}
}

func TestFundAndDeployWithoutAdmin(t *testing.T) {
	f := newFixture(t, false)

	if err := f.worker.FundAndDeploy(context.Background(), f.prov); err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}

	if f.userState(t).Active {
		t.Fatal("expected user to stay inactive without a funding account")
	}
	if len(f.sim.Submissions()) != 0 {
		t.Fatal("expected no chain submissions without a funding account")
	}
	if msg := f.notifier.last(t); !strings.Contains(msg, "requires funding") {
		t.Fatalf("expected requires-funding notification, got %q", msg)
	}
}

func TestFundAndDeployAdminFundsInsufficient(t *testing.T) {
	f := newFixture(t, true)
	f.sim.SetBalance(testGasToken, testAdminAddr, big.NewInt(1))

	err := f.worker.FundAndDeploy(context.Background(), f.prov)
	if !errors.Is(err, ErrAdminFundsInsufficient) {
		t.Fatalf("expected ErrAdminFundsInsufficient, got %v", err)
	}
	if f.userState(t).Active {
		t.Fatal("expected user to stay inactive")
	}
	if len(f.sim.Submissions()) != 0 {
		t.Fatal("expected no funding submission")
	}
}

func TestFundAndDeployFundingNotObserved(t *testing.T) {
	f := newFixture(t, true)
	f.sim.SetBalance(testGasToken, testAdminAddr, new(big.Int).Mul(testFunding, big.NewInt(10)))
	f.sim.HoldEffects()

	err := f.worker.FundAndDeploy(context.Background(), f.prov)
	if !errors.Is(err, ErrFundingUnconfirmed) {
		t.Fatalf("expected ErrFundingUnconfirmed, got %v", err)
	}
	if f.userState(t).Active {
		t.Fatal("expected user to stay inactive")
	}
	if f.sim.Deployed(f.prov.User.WalletAddress) {
		t.Fatal("expected no deployment after unobserved funding")
	}
	// Pending, not failed: the transfer may still settle.
	if msg := f.notifier.last(t); !strings.Contains(msg, "awaiting confirmation") {
		t.Fatalf("expected funding-pending notification, got %q", msg)
	}
}

func TestFundAndDeploySubmissionRejected(t *testing.T) {
	f := newFixture(t, true)
	f.sim.SetBalance(testGasToken, testAdminAddr, new(big.Int).Mul(testFunding, big.NewInt(10)))
	f.sim.FailSubmissions(chain.ErrRejected)

	err := f.worker.FundAndDeploy(context.Background(), f.prov)
	if !errors.Is(err, chain.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if msg := f.notifier.last(t); !strings.Contains(msg, "encountered an issue") {
		t.Fatalf("expected failure notification, got %q", msg)
	}
}

func TestFundAndDeployDeploymentUnconfirmed(t *testing.T) {
	f := newFixture(t, true)
	f.sim.SetBalance(testGasToken, testAdminAddr, new(big.Int).Mul(testFunding, big.NewInt(10)))
	f.sim.MarkUnconfirmed()

	// Funding effects still apply, so the balance recheck passes; only the
	// deployment confirmation runs out of polling budget.
	if err := f.worker.FundAndDeploy(context.Background(), f.prov); err != nil {
		t.Fatalf("expected pending outcome without error, got %v", err)
	}
	if f.userState(t).Active {
		t.Fatal("expected user to stay inactive until deployment confirms")
	}
	if msg := f.notifier.last(t); !strings.Contains(msg, "once confirmed") {
		t.Fatalf("expected activation-pending notification, got %q", msg)
	}
}
