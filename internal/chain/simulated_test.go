package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
)

func TestDeriveAddressIsDeterministic(t *testing.T) {
	c := NewSimulated()

	keys, err := c.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	calldata := AccountConstructorCalldata(keys.PublicKey)

	first, err := c.DeriveAddress(keys.PublicKey, "0xclass", calldata)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	second, err := c.DeriveAddress(keys.PublicKey, "0xclass", calldata)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if first != second {
		t.Fatalf("expected stable address, got %s then %s", first, second)
	}

	other, _ := c.GenerateKeyPair()
	different, err := c.DeriveAddress(other.PublicKey, "0xclass", AccountConstructorCalldata(other.PublicKey))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if different == first {
		t.Fatal("expected distinct keys to derive distinct addresses")
	}
}

func TestSubmitTransferMovesBalances(t *testing.T) {
	c := NewSimulated()
	ctx := context.Background()
	c.SetBalance("0xtoken", "0xalice", big.NewInt(100))

	call := Call{
		ContractAddress: "0xtoken",
		EntryPoint:      "transfer",
		Calldata:        []string{"0xbob", "0x1e", "0x0"}, // 30
	}
	txHash, err := c.Submit(ctx, Account{Address: "0xalice"}, call, FeeConfig{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if txHash == "" {
		t.Fatal("expected a transaction hash")
	}

	alice, _ := c.Balance(ctx, "0xalice", "0xtoken")
	bob, _ := c.Balance(ctx, "0xbob", "0xtoken")
	if alice.Cmp(big.NewInt(70)) != 0 {
		t.Fatalf("expected sender balance 70, got %s", alice)
	}
	if bob.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("expected recipient balance 30, got %s", bob)
	}
}

func TestHoldEffectsAcceptsWithoutApplying(t *testing.T) {
	c := NewSimulated()
	ctx := context.Background()
	c.SetBalance("0xtoken", "0xalice", big.NewInt(100))
	c.HoldEffects()

	call := Call{ContractAddress: "0xtoken", EntryPoint: "transfer", Calldata: []string{"0xbob", "0xa", "0x0"}}
	if _, err := c.Submit(ctx, Account{Address: "0xalice"}, call, FeeConfig{}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	bob, _ := c.Balance(ctx, "0xbob", "0xtoken")
	if bob.Sign() != 0 {
		t.Fatalf("expected held transfer to leave recipient at 0, got %s", bob)
	}
	if len(c.Submissions()) != 1 {
		t.Fatalf("expected the submission to be recorded, got %d", len(c.Submissions()))
	}
}

func TestFailSubmissions(t *testing.T) {
	c := NewSimulated()
	c.FailSubmissions(ErrRejected)

	_, err := c.Submit(context.Background(), Account{}, Call{}, FeeConfig{})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if len(c.Submissions()) != 0 {
		t.Fatal("expected no recorded submissions")
	}
}

func TestDeployAccountMarksDeployed(t *testing.T) {
	c := NewSimulated()
	payload := DeployPayload{ClassHash: "0xclass", Address: "0xnew", Salt: "0xpub"}

	if _, err := c.DeployAccount(context.Background(), Account{Address: "0xnew"}, payload, FeeConfig{}); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if !c.Deployed("0xnew") {
		t.Fatal("expected address to be deployed")
	}
	if c.Deployed("0xother") {
		t.Fatal("expected other address to remain undeployed")
	}
}

func TestAwaitConfirmation(t *testing.T) {
	c := NewSimulated()
	ctx := context.Background()

	status, err := c.AwaitConfirmation(ctx, "0xtx")
	if err != nil || status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %v %v", status, err)
	}

	c.MarkUnconfirmed()
	status, err = c.AwaitConfirmation(ctx, "0xtx")
	if err != nil || status != StatusUnconfirmed {
		t.Fatalf("expected unconfirmed, got %v %v", status, err)
	}
}
