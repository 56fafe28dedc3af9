// Package token converts between human display amounts and the chain's base
// unit (1 token = 10^18 base units) and builds ERC-20 transfer calls.
package token

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/safiri-wallet/safiri/internal/chain"
)

// Decimals is the fixed scale shared by the STRK and ETH contracts.
const Decimals = 18

// ErrInvalidAmount rejects non-numeric, zero or negative display amounts.
var ErrInvalidAmount = errors.New("invalid amount")

var base = decimal.New(1, Decimals)

// ParseDisplayAmount parses user input such as "0.5" into a positive decimal.
func ParseDisplayAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ToBaseUnits scales a display amount to base units, truncating any precision
// beyond the token's 18 decimals.
func ToBaseUnits(d decimal.Decimal) *big.Int {
	return d.Mul(base).Truncate(0).BigInt()
}

// FromBaseUnits scales a base-unit integer to a display amount. Exact: the
// scale shift never rounds, so a single base unit survives the conversion.
func FromBaseUnits(b *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(b, -Decimals)
}

// TransferCall builds the ERC-20 transfer invocation with the amount split
// into a u256 (low, high) pair.
func TransferCall(tokenContract, recipient string, amount *big.Int) chain.Call {
	low, high := U256(amount)
	return chain.Call{
		ContractAddress: tokenContract,
		EntryPoint:      "transfer",
		Calldata:        []string{recipient, low, high},
	}
}

// U256 splits an unsigned integer into 128-bit low and high hex halves.
func U256(amount *big.Int) (low, high string) {
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	l := new(big.Int).And(amount, mask)
	h := new(big.Int).Rsh(amount, 128)
	return "0x" + l.Text(16), "0x" + h.Text(16)
}
