package treasury

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const receiptPollInterval = 2 * time.Second

// TransferError wraps any fault on the settlement path — address
// resolution, signing, submission, or finality — with the stage it
// occurred in. Callers see either a confirmed tx hash or this error;
// no partial state escapes.
type TransferError struct {
	Stage string
	Cause error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("treasury transfer failed (%s): %v", e.Stage, e.Cause)
}

func (e *TransferError) Unwrap() error { return e.Cause }

func transferErr(stage string, cause error) *TransferError {
	return &TransferError{Stage: stage, Cause: cause}
}

// Client submits USDC transfers from the fee-collection wallet and
// blocks until the ledger reports finality.
type Client struct {
	rpc        *ethclient.Client
	privateKey *ecdsa.PrivateKey
	wallet     common.Address
	network    Network
	usdc       common.Address
	treasury   common.Address
	gasLimit   uint64
	erc20ABI   abi.ABI
}

func NewClient(networkName, rpcURL, privateKeyHex, treasuryAddr string, gasLimit int) (*Client, error) {
	network, err := ResolveNetwork(networkName)
	if err != nil {
		return nil, err
	}
	if rpcURL == "" {
		rpcURL = network.DefaultRPC
	}
	if !common.IsHexAddress(treasuryAddr) {
		return nil, fmt.Errorf("invalid treasury address %q", treasuryAddr)
	}

	rpc, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial RPC: %w", err)
	}

	pkHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := crypto.HexToECDSA(pkHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	eABI, err := abi.JSON(mustERC20ABI())
	if err != nil {
		return nil, fmt.Errorf("parse ERC20 ABI: %w", err)
	}

	return &Client{
		rpc:        rpc,
		privateKey: pk,
		wallet:     crypto.PubkeyToAddress(pk.PublicKey),
		network:    network,
		usdc:       common.HexToAddress(network.USDCContract),
		treasury:   common.HexToAddress(treasuryAddr),
		gasLimit:   uint64(gasLimit),
		erc20ABI:   eABI,
	}, nil
}

func (c *Client) WalletAddress() common.Address   { return c.wallet }
func (c *Client) TreasuryAddress() common.Address { return c.treasury }
func (c *Client) Close()                          { c.rpc.Close() }

// Transfer sends amountUSD of USDC to the destination address and waits
// for the transaction to be mined. Returns the confirmed tx hash, or a
// *TransferError describing exactly where the attempt died.
func (c *Client) Transfer(ctx context.Context, amountUSD float64, destination common.Address) (string, error) {
	if amountUSD <= 0 {
		return "", transferErr("validate", fmt.Errorf("amount must be positive, got %.6f", amountUSD))
	}

	data, err := c.erc20ABI.Pack("transfer", destination, toTokenUnits(amountUSD, usdcDecimals))
	if err != nil {
		return "", transferErr("encode", err)
	}

	txHash, err := c.signAndSend(ctx, c.usdc, data)
	if err != nil {
		return "", transferErr("submit", err)
	}

	if err := c.awaitFinality(ctx, txHash); err != nil {
		return "", transferErr("finality", err)
	}

	return txHash.Hex(), nil
}

// TransferToTreasury is Transfer with the configured treasury wallet as
// the destination.
func (c *Client) TransferToTreasury(ctx context.Context, amountUSD float64) (string, error) {
	return c.Transfer(ctx, amountUSD, c.treasury)
}

// Balance returns the fee-collection wallet's USDC balance in USD.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	data, err := c.erc20ABI.Pack("balanceOf", c.wallet)
	if err != nil {
		return 0, err
	}
	result, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &c.usdc, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("balanceOf call: %w", err)
	}
	bal := new(big.Int).SetBytes(result)
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(bal),
		new(big.Float).SetFloat64(math.Pow10(usdcDecimals)),
	).Float64()
	return f, nil
}

func (c *Client) signAndSend(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	nonce, err := c.rpc.PendingNonceAt(ctx, c.wallet)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get nonce: %w", err)
	}
	gasPrice, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      c.gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signer := types.NewEIP155Signer(big.NewInt(c.network.ChainID))
	signed, err := types.SignTx(tx, signer, c.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}

	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}
	return signed.Hash(), nil
}

// awaitFinality polls for the transaction receipt until the ledger
// confirms or the context expires. A reverted receipt is a terminal
// failure, never a success with caveats.
func (c *Client) awaitFinality(ctx context.Context, txHash common.Hash) error {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.rpc.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("transaction %s reverted", txHash.Hex())
			}
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return fmt.Errorf("fetch receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for confirmation of %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// toTokenUnits converts a USD amount to USDC base units.
func toTokenUnits(amount float64, decimals int) *big.Int {
	f := new(big.Float).Mul(
		new(big.Float).SetFloat64(amount),
		new(big.Float).SetFloat64(math.Pow10(decimals)),
	)
	i, _ := f.Int(nil)
	return i
}
