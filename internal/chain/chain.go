package chain

import (
	"context"
	"errors"
	"math/big"
	"time"
)

var (
	// ErrUnavailable indicates the RPC node could not be reached or answered
	// with a transport-level failure.
	ErrUnavailable = errors.New("chain unavailable")

	// ErrRejected indicates the node rejected a submission outright
	// (signature, fee or nonce validation failed).
	ErrRejected = errors.New("submission rejected")
)

// Status is the outcome of a bounded confirmation wait.
type Status int

const (
	// StatusUnconfirmed means polling exhausted without observing acceptance.
	// The transaction may still land; callers must not resubmit.
	StatusUnconfirmed Status = iota
	// StatusConfirmed means the transaction was accepted on the chain.
	StatusConfirmed
)

func (s Status) String() string {
	if s == StatusConfirmed {
		return "confirmed"
	}
	return "unconfirmed"
}

// KeyPair is freshly generated signing material. The private key exists in
// plaintext only between generation and custody sealing.
type KeyPair struct {
	PrivateKey string
	PublicKey  string
}

// Account identifies a signer: a deployed (or precomputed) account address
// and its private key.
type Account struct {
	Address    string
	PrivateKey string
}

// Call is a single contract invocation.
type Call struct {
	ContractAddress string
	EntryPoint      string
	Calldata        []string
}

// DeployPayload activates a precomputed account address as a contract.
type DeployPayload struct {
	ClassHash           string
	ConstructorCalldata []string
	Address             string
	Salt                string
}

// FeeConfig carries the fixed fee ceiling and protocol version constant used
// for every submission. Both come from configuration, never computed.
type FeeConfig struct {
	MaxFee  string
	Version string
}

// PollPolicy bounds confirmation waits: a fixed interval and a maximum number
// of attempts. Waits are never unbounded.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// Client is the capability boundary to the remote ledger. Implementations
// supply key generation, address derivation and transaction signing; nothing
// above this interface touches cryptographic primitives.
type Client interface {
	GenerateKeyPair() (KeyPair, error)
	DeriveAddress(publicKey, classHash string, constructorCalldata []string) (string, error)
	Balance(ctx context.Context, address, tokenContract string) (*big.Int, error)
	Submit(ctx context.Context, signer Account, call Call, fee FeeConfig) (string, error)
	DeployAccount(ctx context.Context, signer Account, payload DeployPayload, fee FeeConfig) (string, error)
	AwaitConfirmation(ctx context.Context, txHash string) (Status, error)
}

// AccountConstructorCalldata builds the Argent account constructor calldata
// for an owner signer with no guardian. It is a pure function of the public
// key so the address derived at provisioning time is reproducible at
// deployment time.
func AccountConstructorCalldata(publicKey string) []string {
	// owner: Signer::Starknet(pubkey), guardian: Option::None
	return []string{"0x0", publicKey, "0x1"}
}
