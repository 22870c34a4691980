// Package solana implements the chain adapter for instruction/program
// chains, together with the RPC client and native transaction encoding it
// is built on.
package solana

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/Sonic-Vault/scout-api/internal/amount"
	"github.com/Sonic-Vault/scout-api/internal/chain"
	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
	"github.com/Sonic-Vault/scout-api/internal/keys"
)

// Adapter talks to one Solana-style chain over a shared RPC client.
type Adapter struct {
	rpc *Client
}

func NewAdapter(rpc *Client) *Adapter {
	return &Adapter{rpc: rpc}
}

// RPC exposes the underlying client for components that need raw chain
// queries (the on-chain swap backend shares the connection).
func (a *Adapter) RPC() *Client { return a.rpc }

func (a *Adapter) Balance(ctx context.Context, address string) (string, error) {
	if !IsValidAddress(address) {
		return "", scouterr.Newf(scouterr.KindInvalidInput, "invalid solana address %q", address)
	}
	lamports, err := a.rpc.GetBalance(ctx, address)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(lamports, 10), nil
}

// Transfer broadcasts a native transfer and returns the signature without
// waiting for confirmation; callers poll Status separately. The chain's
// blockhash-recency check is the anti-replay mechanism.
func (a *Adapter) Transfer(ctx context.Context, secret, recipient, amt string) (string, error) {
	to, err := PubkeyFromBase58(recipient)
	if err != nil {
		return "", scouterr.Newf(scouterr.KindInvalidInput, "invalid recipient address %q", recipient)
	}
	value, err := amount.ParseBaseUnits(amt)
	if err != nil {
		return "", err
	}
	if !value.IsUint64() {
		return "", scouterr.New(scouterr.KindInvalidInput, "amount exceeds the lamport range")
	}

	priv, err := keys.DecodeSolana(secret)
	if err != nil {
		return "", err
	}
	defer keys.Zero(priv)
	from, err := PubkeyFromBase58(keys.SolanaAddress(priv))
	if err != nil {
		return "", err
	}

	balance, err := a.rpc.GetBalance(ctx, from.String())
	if err != nil {
		return "", err
	}
	if balance < value.Uint64() {
		return "", scouterr.New(scouterr.KindInsufficientFunds, "insufficient funds for transfer")
	}

	blockhash, err := a.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", err
	}
	tx, err := NewTransaction(from, blockhash, TransferInstruction(from, to, value.Uint64()))
	if err != nil {
		return "", err
	}
	wire, _, err := tx.Sign(priv)
	if err != nil {
		return "", err
	}
	signature, err := a.rpc.SendTransaction(ctx, wire)
	if err != nil {
		if _, isRPC := err.(*RPCError); isRPC {
			return "", scouterr.Wrap(scouterr.KindUnavailable, "broadcast rejected", err)
		}
		return "", err
	}
	zap.L().Info("transfer broadcast",
		zap.String("from", from.String()),
		zap.String("to", recipient),
		zap.String("signature", signature))
	return signature, nil
}

func (a *Adapter) Status(ctx context.Context, ref string) (chain.TxStatus, error) {
	status, err := a.rpc.GetSignatureStatus(ctx, ref)
	if err != nil {
		if _, isRPC := err.(*RPCError); isRPC {
			return "", scouterr.Newf(scouterr.KindInvalidInput, "invalid transaction reference %q", ref)
		}
		return "", err
	}
	return MapSignatureStatus(status), nil
}

// MapSignatureStatus folds a node status into the uniform tri-state. An
// unknown signature is pending, never failed: the node may simply have
// pruned it.
func MapSignatureStatus(status *SignatureStatus) chain.TxStatus {
	if status == nil {
		return chain.TxPending
	}
	if status.Err != nil {
		return chain.TxFailed
	}
	switch status.ConfirmationStatus {
	case "confirmed", "finalized":
		return chain.TxSuccess
	default:
		return chain.TxPending
	}
}
