package notify

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestShortHex(t *testing.T) {
	long := "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d"
	got := shortHex(long)
	if got != "0x04718f...7c938d" {
		t.Fatalf("unexpected shortened hex: %s", got)
	}
	if short := shortHex("0xabc"); short != "0xabc" {
		t.Fatalf("expected short values untouched, got %s", short)
	}
}

func TestTransferTemplates(t *testing.T) {
	amount := decimal.RequireFromString("2.5")
	hash := "0x00aabbccddeeff00112233445566778899aabbccddeeff001122334455667788"

	success := TransferSuccess(hash, amount, "bob.eth.safiri")
	if !strings.Contains(success, "2.5 STRK") || !strings.Contains(success, "bob.eth.safiri") {
		t.Fatalf("unexpected success message: %s", success)
	}
	if strings.Contains(success, hash) {
		t.Fatal("expected the hash to be shortened")
	}

	pending := TransferUnconfirmed(hash, amount, "bob.eth.safiri")
	if !strings.Contains(pending, "awaiting confirmation") {
		t.Fatalf("unexpected pending message: %s", pending)
	}

	failed := TransferFailed("insufficient balance")
	if !strings.Contains(failed, "insufficient balance") {
		t.Fatalf("unexpected failure message: %s", failed)
	}
}

func TestBalanceMessage(t *testing.T) {
	msg := BalanceMessage("0x00aabbccddeeff00112233445566778899aabbccddeeff001122334455667788", decimal.RequireFromString("5"))
	if !strings.Contains(msg, "balance: 5 STRK") {
		t.Fatalf("unexpected balance message: %s", msg)
	}
}
