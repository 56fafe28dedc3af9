package notify

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Message templates. Addresses and hashes are shortened for the 160-char SMS
// budget.

// AccountCreated announces a successfully deployed wallet.
func AccountCreated(address string) string {
	return fmt.Sprintf("Your Safiri wallet has been created successfully! Your wallet address: %s", shortHex(address))
}

// AccountCreationFailed is sent when provisioning or deployment failed.
func AccountCreationFailed() string {
	return "Your wallet creation encountered an issue. Our team will look into it and get back to you."
}

// AccountRequiresFunding is sent when no admin funding account is configured
// and the wallet was created but not deployed.
func AccountRequiresFunding(address string) string {
	return fmt.Sprintf("Your wallet %s was created but is not yet active. It requires funding before deployment.", shortHex(address))
}

// AccountFundingPending reports a funding transfer that was submitted but
// whose effect was not observed within the settling window. Distinct from
// outright failure: the transfer may still land.
func AccountFundingPending(txHash string) string {
	return fmt.Sprintf("Your wallet funding was submitted (tx %s) and is awaiting confirmation before activation.", shortHex(txHash))
}

// AccountActivationPending reports a deployment that was submitted but not
// confirmed within the polling budget.
func AccountActivationPending(txHash string) string {
	return fmt.Sprintf("Your wallet deployment was submitted (tx %s) and will become active once confirmed.", shortHex(txHash))
}

// BalanceMessage mirrors a balance query to SMS.
func BalanceMessage(address string, amount decimal.Decimal) string {
	return fmt.Sprintf("Wallet %s balance: %s STRK", shortHex(address), amount.String())
}

// TransferSuccess confirms a completed transfer.
func TransferSuccess(txHash string, amount decimal.Decimal, recipient string) string {
	return fmt.Sprintf("Transfer of %s STRK to %s completed successfully. Hash: %s", amount.String(), recipient, shortHex(txHash))
}

// TransferUnconfirmed reports a transfer submitted but not yet confirmed.
func TransferUnconfirmed(txHash string, amount decimal.Decimal, recipient string) string {
	return fmt.Sprintf("Transfer of %s STRK to %s was submitted (tx %s) and is awaiting confirmation.", amount.String(), recipient, shortHex(txHash))
}

// TransferFailed reports a failed transfer.
func TransferFailed(reason string) string {
	return fmt.Sprintf("Transfer failed. Error: %s. Please try again later.", reason)
}

func shortHex(s string) string {
	if len(s) <= 16 {
		return s
	}
	return s[:8] + "..." + s[len(s)-6:]
}
