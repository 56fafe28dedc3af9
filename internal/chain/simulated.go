package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"
)

// SimulatedClient is a deterministic in-process chain used by tests and local
// development. Key pairs are sequential, address derivation hashes its
// inputs, and ERC-20 transfer submissions move balances in an internal map so
// post-funding balance checks behave like the real chain.
type SimulatedClient struct {
	mu          sync.Mutex
	seq         int
	balances    map[string]map[string]*big.Int // token contract -> address -> balance
	deployed    map[string]bool
	submissions []Call

	submitErr   error
	holdEffects bool
	unconfirmed bool
}

// NewSimulated builds an empty simulated chain.
func NewSimulated() *SimulatedClient {
	return &SimulatedClient{
		balances: make(map[string]map[string]*big.Int),
		deployed: make(map[string]bool),
	}
}

// SetBalance seeds an address balance for a token contract.
func (c *SimulatedClient) SetBalance(tokenContract, address string, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenBalances(tokenContract)[address] = new(big.Int).Set(amount)
}

// FailSubmissions makes every Submit/DeployAccount call return err.
func (c *SimulatedClient) FailSubmissions(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitErr = err
}

// HoldEffects accepts submissions but does not apply their balance effects,
// mimicking a transaction that was accepted into the mempool but has not
// settled.
func (c *SimulatedClient) HoldEffects() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holdEffects = true
}

// MarkUnconfirmed makes AwaitConfirmation report exhausted polling.
func (c *SimulatedClient) MarkUnconfirmed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unconfirmed = true
}

// Submissions returns a copy of every call accepted so far.
func (c *SimulatedClient) Submissions() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.submissions))
	copy(out, c.submissions)
	return out
}

// Deployed reports whether an account address was deployed.
func (c *SimulatedClient) Deployed(address string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deployed[address]
}

func (c *SimulatedClient) GenerateKeyPair() (KeyPair, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	priv := fmt.Sprintf("0x%064x", c.seq)
	sum := sha256.Sum256([]byte("pub:" + priv))
	return KeyPair{PrivateKey: priv, PublicKey: "0x" + hex.EncodeToString(sum[:])}, nil
}

func (c *SimulatedClient) DeriveAddress(publicKey, classHash string, constructorCalldata []string) (string, error) {
	h := sha256.New()
	h.Write([]byte(publicKey))
	h.Write([]byte(classHash))
	h.Write([]byte(strings.Join(constructorCalldata, ",")))
	return "0x" + hex.EncodeToString(h.Sum(nil)), nil
}

func (c *SimulatedClient) Balance(_ context.Context, address, tokenContract string) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bal, ok := c.tokenBalances(tokenContract)[address]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (c *SimulatedClient) Submit(_ context.Context, signer Account, call Call, _ FeeConfig) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitErr != nil {
		return "", c.submitErr
	}
	c.submissions = append(c.submissions, call)
	if call.EntryPoint == "transfer" && !c.holdEffects {
		c.applyTransfer(signer.Address, call)
	}
	c.seq++
	return fmt.Sprintf("0xtx%08x", c.seq), nil
}

func (c *SimulatedClient) DeployAccount(_ context.Context, _ Account, payload DeployPayload, _ FeeConfig) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitErr != nil {
		return "", c.submitErr
	}
	c.deployed[payload.Address] = true
	c.seq++
	return fmt.Sprintf("0xdeploy%08x", c.seq), nil
}

func (c *SimulatedClient) AwaitConfirmation(_ context.Context, _ string) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unconfirmed {
		return StatusUnconfirmed, nil
	}
	return StatusConfirmed, nil
}

// applyTransfer interprets ERC-20 transfer calldata: [recipient, low, high].
func (c *SimulatedClient) applyTransfer(from string, call Call) {
	if len(call.Calldata) < 3 {
		return
	}
	recipient := call.Calldata[0]
	amount := u256FromParts(call.Calldata[1], call.Calldata[2])
	balances := c.tokenBalances(call.ContractAddress)
	src := balances[from]
	if src == nil {
		src = big.NewInt(0)
	}
	balances[from] = new(big.Int).Sub(src, amount)
	dst := balances[recipient]
	if dst == nil {
		dst = big.NewInt(0)
	}
	balances[recipient] = new(big.Int).Add(dst, amount)
}

func (c *SimulatedClient) tokenBalances(tokenContract string) map[string]*big.Int {
	m, ok := c.balances[tokenContract]
	if !ok {
		m = make(map[string]*big.Int)
		c.balances[tokenContract] = m
	}
	return m
}

func u256FromParts(low, high string) *big.Int {
	l, _ := new(big.Int).SetString(strings.TrimPrefix(low, "0x"), 16)
	h, _ := new(big.Int).SetString(strings.TrimPrefix(high, "0x"), 16)
	if l == nil {
		l = big.NewInt(0)
	}
	if h == nil {
		h = big.NewInt(0)
	}
	return new(big.Int).Add(new(big.Int).Lsh(h, 128), l)
}
