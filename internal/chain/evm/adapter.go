// Package evm implements the chain adapter for account/nonce EVM chains.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/Sonic-Vault/scout-api/internal/amount"
	"github.com/Sonic-Vault/scout-api/internal/chain"
	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
	"github.com/Sonic-Vault/scout-api/internal/keys"
)

const transferGasLimit = 21000

// Adapter talks to one EVM chain over a shared ethclient connection. The
// client is safe for concurrent use and is reused across requests.
type Adapter struct {
	client         *ethclient.Client
	chainID        *big.Int
	explorerURL    string
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

type Options struct {
	ExplorerURL    string
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// Dial connects to the chain RPC endpoint and verifies the configured chain
// id against the node.
func Dial(ctx context.Context, rpcURL string, chainID int64, opts Options) (*Adapter, error) {
	if strings.TrimSpace(rpcURL) == "" {
		return nil, scouterr.New(scouterr.KindUnavailable, "evm rpc url is not configured")
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, scouterr.Wrap(scouterr.KindUnavailable, "connect evm rpc", err)
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 2 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &Adapter{
		client:         client,
		chainID:        big.NewInt(chainID),
		explorerURL:    strings.TrimRight(opts.ExplorerURL, "/"),
		confirmTimeout: opts.ConfirmTimeout,
		pollInterval:   opts.PollInterval,
	}, nil
}

func (a *Adapter) Close() {
	if a != nil && a.client != nil {
		a.client.Close()
	}
}

func (a *Adapter) Balance(ctx context.Context, address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", scouterr.Newf(scouterr.KindInvalidInput, "invalid evm address %q", address)
	}
	balance, err := a.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return "", scouterr.Wrap(scouterr.KindUnavailable, "query balance", err)
	}
	return balance.String(), nil
}

func (a *Adapter) Transfer(ctx context.Context, secret, recipient, amt string) (string, error) {
	if !common.IsHexAddress(recipient) {
		return "", scouterr.Newf(scouterr.KindInvalidInput, "invalid recipient address %q", recipient)
	}
	value, err := amount.ParseBaseUnits(amt)
	if err != nil {
		return "", err
	}

	pk, err := keys.DecodeEVM(secret)
	if err != nil {
		return "", err
	}
	from := crypto.PubkeyToAddress(pk.PublicKey)
	to := common.HexToAddress(recipient)

	balance, err := a.client.BalanceAt(ctx, from, nil)
	if err != nil {
		return "", scouterr.Wrap(scouterr.KindUnavailable, "query sender balance", err)
	}
	if balance.Cmp(value) < 0 {
		return "", scouterr.New(scouterr.KindInsufficientFunds, "insufficient funds for transfer")
	}

	tipCap, err := a.client.SuggestGasTipCap(ctx)
	if err != nil {
		tipCap = big.NewInt(2_000_000_000) // 2 gwei fallback
	}
	header, err := a.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", scouterr.Wrap(scouterr.KindUnavailable, "fetch latest header", err)
	}
	baseFee := header.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(1_000_000_000)
	}
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	feeCap.Add(feeCap, tipCap)

	nonce, err := a.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", scouterr.Wrap(scouterr.KindUnavailable, "fetch nonce", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   a.chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       transferGasLimit,
		To:        &to,
		Value:     value,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(a.chainID), pk)
	if err != nil {
		return "", scouterr.Wrap(scouterr.KindFatal, "sign transaction", err)
	}
	if err := a.client.SendTransaction(ctx, signed); err != nil {
		if isInsufficientFunds(err) {
			return "", scouterr.Wrap(scouterr.KindInsufficientFunds, "insufficient funds for transfer", err)
		}
		return "", scouterr.Wrap(scouterr.KindUnavailable, "broadcast transaction", err)
	}
	hash := signed.Hash().Hex()
	zap.L().Info("transfer broadcast",
		zap.String("from", from.Hex()),
		zap.String("to", recipient),
		zap.String("tx_hash", hash))

	if err := a.waitConfirmed(ctx, signed.Hash()); err != nil {
		return "", err
	}
	return a.reference(hash), nil
}

// waitConfirmed polls for the receipt until the bounded wait elapses. A
// timeout reports confirmation-unknown carrying the hash: the funds may have
// moved even though the outcome is not yet observable.
func (a *Adapter) waitConfirmed(ctx context.Context, hash common.Hash) error {
	waitCtx, cancel := context.WithTimeout(ctx, a.confirmTimeout)
	defer cancel()
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := a.client.TransactionReceipt(waitCtx, hash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return nil
			}
			return scouterr.New(scouterr.KindInternal, "transaction reverted on-chain")
		}
		// Transient polling failures are ignored until the deadline.
		select {
		case <-waitCtx.Done():
			return scouterr.Newf(scouterr.KindConfirmationUnknown,
				"broadcast accepted but confirmation unknown (tx %s)", hash.Hex())
		case <-ticker.C:
		}
	}
}

func (a *Adapter) Status(ctx context.Context, ref string) (chain.TxStatus, error) {
	hash, err := parseTxRef(ref)
	if err != nil {
		return "", err
	}
	receipt, err := a.client.TransactionReceipt(ctx, hash)
	if err != nil {
		// Unresolvable references are pending, never failed: nodes prune
		// history and a missing receipt proves nothing.
		return chain.TxPending, nil
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		return chain.TxSuccess, nil
	}
	return chain.TxFailed, nil
}

// reference formats the confirmation reference as an explorer link when an
// explorer is configured, mirroring the transfer response shape callers
// already consume.
func (a *Adapter) reference(hash string) string {
	if a.explorerURL == "" {
		return hash
	}
	return fmt.Sprintf("%s/tx/%s", a.explorerURL, hash)
}

func parseTxRef(ref string) (common.Hash, error) {
	clean := strings.TrimSpace(ref)
	if i := strings.LastIndex(clean, "/"); i >= 0 {
		clean = clean[i+1:]
	}
	if !strings.HasPrefix(clean, "0x") || len(clean) != 66 {
		return common.Hash{}, scouterr.Newf(scouterr.KindInvalidInput, "invalid transaction reference %q", ref)
	}
	return common.HexToHash(clean), nil
}

func isInsufficientFunds(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "insufficient funds")
}
