// Package wallet provisions custodial wallets: key material, the derived
// account address and the user record. Deployment is handed off to the
// deployer worker afterwards; it is not part of provisioning.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/safiri-wallet/safiri/internal/chain"
	"github.com/safiri-wallet/safiri/internal/custody"
	"github.com/safiri-wallet/safiri/internal/user"
)

var (
	// ErrDuplicateRegistration indicates the phone number already has a
	// wallet.
	ErrDuplicateRegistration = errors.New("phone number already registered")

	// ErrIncompleteInput indicates missing registration details.
	ErrIncompleteInput = errors.New("incomplete registration details")
)

// Service creates custodial key material and user records.
type Service struct {
	users     user.Repository
	chain     chain.Client
	allocator *user.UsernameAllocator
	classHash string
	logger    *slog.Logger
}

// NewService builds a provisioner.
func NewService(users user.Repository, chainClient chain.Client, allocator *user.UsernameAllocator, classHash string, logger *slog.Logger) *Service {
	return &Service{users: users, chain: chainClient, allocator: allocator, classHash: classHash, logger: logger}
}

// Provisioned carries the created user plus the material the deployer needs.
// Keys holds the only plaintext copy of the private key; it must not be
// persisted or logged.
type Provisioned struct {
	User                user.User
	Keys                chain.KeyPair
	ConstructorCalldata []string
}

// Provision generates a key pair, derives the deterministic account address,
// seals the key with the custody scheme, allocates a username and persists
// the user with Active=false.
//
// The duplicate check runs before any chain work to avoid wasted key
// generation. It is not transactionally guarded: a concurrent registration
// for the same phone lands on the store's uniqueness constraint instead.
func (s *Service) Provision(ctx context.Context, fullName, phoneNumber, pin string) (Provisioned, error) {
	if fullName == "" || phoneNumber == "" || pin == "" {
		return Provisioned{}, ErrIncompleteInput
	}

	if _, err := s.users.FindByPhone(ctx, phoneNumber); err == nil {
		return Provisioned{}, ErrDuplicateRegistration
	} else if !errors.Is(err, user.ErrNotFound) {
		return Provisioned{}, fmt.Errorf("lookup phone: %w", err)
	}

	keys, err := s.chain.GenerateKeyPair()
	if err != nil {
		return Provisioned{}, fmt.Errorf("generate key pair: %w", err)
	}

	calldata := chain.AccountConstructorCalldata(keys.PublicKey)
	address, err := s.chain.DeriveAddress(keys.PublicKey, s.classHash, calldata)
	if err != nil {
		return Provisioned{}, fmt.Errorf("derive address: %w", err)
	}

	sealed, err := custody.Seal(keys.PrivateKey)
	if err != nil {
		return Provisioned{}, fmt.Errorf("seal private key: %w", err)
	}

	username, err := s.allocator.Allocate(ctx, fullName)
	if err != nil {
		return Provisioned{}, fmt.Errorf("allocate username: %w", err)
	}

	u := user.User{
		ID:                  uuid.NewString(),
		FullName:            fullName,
		PhoneNumber:         phoneNumber,
		Username:            username,
		WalletAddress:       address,
		EncryptedPrivateKey: sealed,
		PIN:                 pin,
		Active:              false,
		CreatedAt:           time.Now().UTC(),
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return Provisioned{}, ErrDuplicateRegistration
		}
		return Provisioned{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("wallet provisioned", "user_id", u.ID, "username", username, "address", address)

	return Provisioned{User: u, Keys: keys, ConstructorCalldata: calldata}, nil
}
