package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/NethermindEth/starknet.go/account"
	"github.com/NethermindEth/starknet.go/contracts"
	"github.com/NethermindEth/starknet.go/curve"
	"github.com/NethermindEth/starknet.go/rpc"
	"github.com/NethermindEth/starknet.go/utils"
)

// StarknetClient implements Client against a Starknet JSON-RPC node using
// starknet.go for key generation, address precomputation and transaction
// signing.
type StarknetClient struct {
	provider *rpc.Provider
	poll     PollPolicy
}

// NewStarknetClient connects a provider to the given node URL.
func NewStarknetClient(nodeURL string, poll PollPolicy) (*StarknetClient, error) {
	provider, err := rpc.NewProvider(nodeURL)
	if err != nil {
		return nil, fmt.Errorf("starknet provider: %w", err)
	}
	if poll.Interval <= 0 {
		poll.Interval = 2 * time.Second
	}
	if poll.MaxAttempts <= 0 {
		poll.MaxAttempts = 10
	}
	return &StarknetClient{provider: provider, poll: poll}, nil
}

func (c *StarknetClient) GenerateKeyPair() (KeyPair, error) {
	priv, err := curve.Curve.GetRandomPrivateKey()
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate private key: %w", err)
	}
	pubX, _, err := curve.Curve.PrivateToPoint(priv)
	if err != nil {
		return KeyPair{}, fmt.Errorf("derive public key: %w", err)
	}
	return KeyPair{
		PrivateKey: "0x" + priv.Text(16),
		PublicKey:  "0x" + pubX.Text(16),
	}, nil
}

func (c *StarknetClient) DeriveAddress(publicKey, classHash string, constructorCalldata []string) (string, error) {
	pub, err := utils.HexToFelt(publicKey)
	if err != nil {
		return "", fmt.Errorf("public key: %w", err)
	}
	class, err := utils.HexToFelt(classHash)
	if err != nil {
		return "", fmt.Errorf("class hash: %w", err)
	}
	calldata, err := feltSlice(constructorCalldata)
	if err != nil {
		return "", err
	}
	// Salted by the public key with a zero deployer, matching the payload
	// used at deployment time.
	addr := contracts.PrecomputeAddress(&felt.Zero, pub, class, calldata)
	return addr.String(), nil
}

func (c *StarknetClient) Balance(ctx context.Context, address, tokenContract string) (*big.Int, error) {
	owner, err := utils.HexToFelt(address)
	if err != nil {
		return nil, fmt.Errorf("address: %w", err)
	}
	contract, err := utils.HexToFelt(tokenContract)
	if err != nil {
		return nil, fmt.Errorf("token contract: %w", err)
	}
	res, err := c.provider.Call(ctx, rpc.FunctionCall{
		ContractAddress:    contract,
		EntryPointSelector: utils.GetSelectorFromNameFelt("balanceOf"),
		Calldata:           []*felt.Felt{owner},
	}, rpc.WithBlockTag("latest"))
	if err != nil {
		return nil, fmt.Errorf("%w: balanceOf: %v", ErrUnavailable, err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%w: empty balanceOf response", ErrUnavailable)
	}
	balance := res[0].BigInt(new(big.Int))
	if len(res) > 1 {
		high := res[1].BigInt(new(big.Int))
		balance = balance.Add(balance, new(big.Int).Lsh(high, 128))
	}
	return balance, nil
}

func (c *StarknetClient) Submit(ctx context.Context, signer Account, call Call, fee FeeConfig) (string, error) {
	acc, err := c.account(signer)
	if err != nil {
		return "", err
	}
	contract, err := utils.HexToFelt(call.ContractAddress)
	if err != nil {
		return "", fmt.Errorf("call contract: %w", err)
	}
	calldata, err := feltSlice(call.Calldata)
	if err != nil {
		return "", err
	}
	formatted, err := acc.FmtCalldata([]rpc.FunctionCall{{
		ContractAddress:    contract,
		EntryPointSelector: utils.GetSelectorFromNameFelt(call.EntryPoint),
		Calldata:           calldata,
	}})
	if err != nil {
		return "", fmt.Errorf("format calldata: %w", err)
	}
	nonce, err := acc.Nonce(ctx, rpc.WithBlockTag("latest"), acc.AccountAddress)
	if err != nil {
		return "", fmt.Errorf("%w: nonce: %v", ErrUnavailable, err)
	}

	version, err := submissionVersion(fee)
	if err != nil {
		return "", err
	}
	switch version {
	case rpc.TransactionV3:
		tx, err := invokeTxnV3(acc.AccountAddress, nonce, formatted, fee)
		if err != nil {
			return "", err
		}
		hash, err := acc.TransactionHashInvoke(tx)
		if err != nil {
			return "", fmt.Errorf("%w: hash invoke: %v", ErrRejected, err)
		}
		tx.Signature, err = acc.Sign(ctx, hash)
		if err != nil {
			return "", fmt.Errorf("%w: sign invoke: %v", ErrRejected, err)
		}
		resp, err := c.provider.AddInvokeTransaction(ctx, rpc.BroadcastInvokev3Txn{InvokeTxnV3: tx})
		if err != nil {
			return "", classifySubmitErr(err)
		}
		return resp.TransactionHash.String(), nil
	default:
		maxFee, err := utils.HexToFelt(hexify(fee.MaxFee))
		if err != nil {
			return "", fmt.Errorf("max fee: %w", err)
		}
		tx := invokeTxnV1(acc.AccountAddress, nonce, formatted, maxFee)
		if err := acc.SignInvokeTransaction(ctx, &tx); err != nil {
			return "", fmt.Errorf("%w: sign invoke: %v", ErrRejected, err)
		}
		resp, err := c.provider.AddInvokeTransaction(ctx, rpc.BroadcastInvokev1Txn{InvokeTxnV1: tx})
		if err != nil {
			return "", classifySubmitErr(err)
		}
		return resp.TransactionHash.String(), nil
	}
}

func (c *StarknetClient) DeployAccount(ctx context.Context, signer Account, payload DeployPayload, fee FeeConfig) (string, error) {
	acc, err := c.account(signer)
	if err != nil {
		return "", err
	}
	class, err := utils.HexToFelt(payload.ClassHash)
	if err != nil {
		return "", fmt.Errorf("class hash: %w", err)
	}
	salt, err := utils.HexToFelt(payload.Salt)
	if err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	calldata, err := feltSlice(payload.ConstructorCalldata)
	if err != nil {
		return "", err
	}
	address, err := utils.HexToFelt(payload.Address)
	if err != nil {
		return "", fmt.Errorf("address: %w", err)
	}

	version, err := submissionVersion(fee)
	if err != nil {
		return "", err
	}
	switch version {
	case rpc.TransactionV3:
		tx, err := deployAccountTxnV3(class, salt, calldata, fee)
		if err != nil {
			return "", err
		}
		hash, err := acc.TransactionHashDeployAccount(tx, address)
		if err != nil {
			return "", fmt.Errorf("%w: hash deploy: %v", ErrRejected, err)
		}
		tx.Signature, err = acc.Sign(ctx, hash)
		if err != nil {
			return "", fmt.Errorf("%w: sign deploy: %v", ErrRejected, err)
		}
		resp, err := c.provider.AddDeployAccountTransaction(ctx, rpc.BroadcastDeployAccountTxnV3{DeployAccountTxnV3: tx})
		if err != nil {
			return "", classifySubmitErr(err)
		}
		return resp.TransactionHash.String(), nil
	default:
		maxFee, err := utils.HexToFelt(hexify(fee.MaxFee))
		if err != nil {
			return "", fmt.Errorf("max fee: %w", err)
		}
		tx := deployAccountTxnV1(class, salt, calldata, maxFee)
		if err := acc.SignDeployAccountTransaction(ctx, &tx, address); err != nil {
			return "", fmt.Errorf("%w: sign deploy: %v", ErrRejected, err)
		}
		resp, err := c.provider.AddDeployAccountTransaction(ctx, rpc.BroadcastDeployAccountTxn{DeployAccountTxn: tx})
		if err != nil {
			return "", classifySubmitErr(err)
		}
		return resp.TransactionHash.String(), nil
	}
}

// AwaitConfirmation polls the receipt with the fixed interval and attempt
// budget. Exhausting the budget is not an error: the transaction may still
// land and must not be resubmitted.
func (c *StarknetClient) AwaitConfirmation(ctx context.Context, txHash string) (Status, error) {
	hash, err := utils.HexToFelt(txHash)
	if err != nil {
		return StatusUnconfirmed, fmt.Errorf("tx hash: %w", err)
	}
	for attempt := 0; attempt < c.poll.MaxAttempts; attempt++ {
		receipt, err := c.provider.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return StatusConfirmed, nil
		}
		select {
		case <-ctx.Done():
			return StatusUnconfirmed, ctx.Err()
		case <-time.After(c.poll.Interval):
		}
	}
	return StatusUnconfirmed, nil
}

func (c *StarknetClient) account(signer Account) (*account.Account, error) {
	address, err := utils.HexToFelt(signer.Address)
	if err != nil {
		return nil, fmt.Errorf("signer address: %w", err)
	}
	priv, ok := new(big.Int).SetString(strings.TrimPrefix(signer.PrivateKey, "0x"), 16)
	if !ok {
		return nil, fmt.Errorf("signer private key is not hex")
	}
	pubX, _, err := curve.Curve.PrivateToPoint(priv)
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	pub := "0x" + pubX.Text(16)
	ks := account.NewMemKeystore()
	ks.Put(pub, priv)
	acc, err := account.NewAccount(c.provider, address, pub, ks, 2)
	if err != nil {
		return nil, fmt.Errorf("build account: %w", err)
	}
	return acc, nil
}

// submissionVersion maps the configured protocol version onto the transaction
// family every submission is built with.
func submissionVersion(fee FeeConfig) (rpc.TransactionVersion, error) {
	if fee.Version == "" {
		return rpc.TransactionV1, nil
	}
	n, ok := new(big.Int).SetString(strings.TrimPrefix(hexify(fee.Version), "0x"), 16)
	if !ok {
		return "", fmt.Errorf("unsupported transaction version %q", fee.Version)
	}
	switch n.Int64() {
	case 1:
		return rpc.TransactionV1, nil
	case 3:
		return rpc.TransactionV3, nil
	default:
		return "", fmt.Errorf("unsupported transaction version %q", fee.Version)
	}
}

func invokeTxnV1(sender, nonce *felt.Felt, calldata []*felt.Felt, maxFee *felt.Felt) rpc.InvokeTxnV1 {
	return rpc.InvokeTxnV1{
		Type:          rpc.TransactionType_Invoke,
		Version:       rpc.TransactionV1,
		MaxFee:        maxFee,
		Nonce:         nonce,
		SenderAddress: sender,
		Calldata:      calldata,
	}
}

func invokeTxnV3(sender, nonce *felt.Felt, calldata []*felt.Felt, fee FeeConfig) (rpc.InvokeTxnV3, error) {
	bounds, err := feeBounds(fee.MaxFee)
	if err != nil {
		return rpc.InvokeTxnV3{}, err
	}
	return rpc.InvokeTxnV3{
		Type:                  rpc.TransactionType_Invoke,
		Version:               rpc.TransactionV3,
		Nonce:                 nonce,
		SenderAddress:         sender,
		Calldata:              calldata,
		ResourceBounds:        bounds,
		Tip:                   "0x0",
		PayMasterData:         []*felt.Felt{},
		AccountDeploymentData: []*felt.Felt{},
		NonceDataMode:         rpc.DAModeL1,
		FeeMode:               rpc.DAModeL1,
	}, nil
}

func deployAccountTxnV1(class, salt *felt.Felt, calldata []*felt.Felt, maxFee *felt.Felt) rpc.DeployAccountTxn {
	return rpc.DeployAccountTxn{
		Type:                rpc.TransactionType_DeployAccount,
		Version:             rpc.TransactionV1,
		MaxFee:              maxFee,
		Nonce:               &felt.Zero,
		ClassHash:           class,
		ContractAddressSalt: salt,
		ConstructorCalldata: calldata,
	}
}

func deployAccountTxnV3(class, salt *felt.Felt, calldata []*felt.Felt, fee FeeConfig) (rpc.DeployAccountTxnV3, error) {
	bounds, err := feeBounds(fee.MaxFee)
	if err != nil {
		return rpc.DeployAccountTxnV3{}, err
	}
	return rpc.DeployAccountTxnV3{
		Type:                rpc.TransactionType_DeployAccount,
		Version:             rpc.TransactionV3,
		Nonce:               &felt.Zero,
		ClassHash:           class,
		ContractAddressSalt: salt,
		ConstructorCalldata: calldata,
		ResourceBounds:      bounds,
		Tip:                 "0x0",
		PayMasterData:       []*felt.Felt{},
		NonceDataMode:       rpc.DAModeL1,
		FeeMode:             rpc.DAModeL1,
	}, nil
}

// l1GasAllowance is the gas amount the configured fee ceiling is spread over
// when expressed as v3 resource bounds: amount times price never exceeds the
// ceiling.
const l1GasAllowance = 100_000

func feeBounds(maxFee string) (rpc.ResourceBoundsMapping, error) {
	budget, ok := new(big.Int).SetString(strings.TrimPrefix(hexify(maxFee), "0x"), 16)
	if !ok || budget.Sign() <= 0 {
		return rpc.ResourceBoundsMapping{}, fmt.Errorf("invalid max fee %q", maxFee)
	}
	amount := big.NewInt(l1GasAllowance)
	price := new(big.Int).Div(budget, amount)
	if price.Sign() == 0 {
		amount = big.NewInt(1)
		price = budget
	}
	return rpc.ResourceBoundsMapping{
		L1Gas: rpc.ResourceBounds{
			MaxAmount:       rpc.U64("0x" + amount.Text(16)),
			MaxPricePerUnit: rpc.U128("0x" + price.Text(16)),
		},
		L2Gas: rpc.ResourceBounds{MaxAmount: "0x0", MaxPricePerUnit: "0x0"},
	}, nil
}

func feltSlice(values []string) ([]*felt.Felt, error) {
	out := make([]*felt.Felt, 0, len(values))
	for _, v := range values {
		f, err := utils.HexToFelt(hexify(v))
		if err != nil {
			return nil, fmt.Errorf("calldata %q: %w", v, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// hexify accepts decimal or hex string constants from configuration.
func hexify(v string) string {
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		return v
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return v
	}
	return "0x" + n.Text(16)
}

func classifySubmitErr(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "signature"), strings.Contains(msg, "nonce"), strings.Contains(msg, "fee"):
		return fmt.Errorf("%w: %v", ErrRejected, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
