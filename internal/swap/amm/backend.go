package amm

import (
	"context"
	"encoding/binary"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sonic-Vault/scout-api/internal/amount"
	"github.com/Sonic-Vault/scout-api/internal/chain"
	"github.com/Sonic-Vault/scout-api/internal/chain/solana"
	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
	"github.com/Sonic-Vault/scout-api/internal/keys"
	"github.com/Sonic-Vault/scout-api/internal/model"
	"github.com/Sonic-Vault/scout-api/internal/swap"
	"github.com/Sonic-Vault/scout-api/internal/swap/quotestore"
)

const (
	quoteIDPrefix      = "amm"
	defaultFeeBps      = 200
	defaultSlippageBps = 50
	defaultQuoteTTL    = 10 * time.Minute
	statusHistoryLimit = 50
)

// Options tunes the backend. Zero values fall back to the defaults.
type Options struct {
	FeeBps      int64
	SlippageBps int64
	QuoteTTL    time.Duration
}

// Backend quotes and executes swaps against the configured on-chain pools.
// It satisfies swap.Backend.
type Backend struct {
	rpc         *solana.Client
	pools       *Registry
	quotes      quotestore.Store
	feeBps      int64
	slippageBps int64
	quoteTTL    time.Duration
	now         func() time.Time
}

func New(rpc *solana.Client, pools *Registry, quotes quotestore.Store, opts Options) *Backend {
	b := &Backend{
		rpc:         rpc,
		pools:       pools,
		quotes:      quotes,
		feeBps:      opts.FeeBps,
		slippageBps: opts.SlippageBps,
		quoteTTL:    opts.QuoteTTL,
		now:         time.Now,
	}
	if b.feeBps <= 0 {
		b.feeBps = defaultFeeBps
	}
	if b.slippageBps <= 0 {
		b.slippageBps = defaultSlippageBps
	}
	if b.quoteTTL <= 0 {
		b.quoteTTL = defaultQuoteTTL
	}
	return b
}

// Quote prices a swap with the fixed fee-rate approximation
// out = in * (10000 - feeBps) / 10000 and registers the offer for one
// later execute within the validity window.
func (b *Backend) Quote(ctx context.Context, req model.QuoteRequest) (*model.Quote, error) {
	if !solana.IsValidAddress(req.FromToken) || !solana.IsValidAddress(req.ToToken) {
		return nil, scouterr.New(scouterr.KindInvalidInput, "quote requires valid token mint addresses")
	}
	in, err := amount.ParseBaseUnits(req.Amount)
	if err != nil {
		return nil, err
	}
	if in.Sign() <= 0 {
		return nil, scouterr.New(scouterr.KindInvalidInput, "amount must be positive")
	}

	pool, err := b.pools.Resolve(req.FromToken, req.ToToken)
	if err != nil {
		return nil, err
	}

	out := applyFee(in, b.feeBps)
	quote := &model.Quote{
		QuoteID:    quoteIDPrefix + ":" + pool.Address.String() + ":" + uuid.NewString(),
		FromToken:  model.TokenInfo{Address: req.FromToken, Decimals: amount.SolanaDecimals},
		ToToken:    model.TokenInfo{Address: req.ToToken, Decimals: amount.SolanaDecimals},
		FromAmount: in.String(),
		ToAmount:   out.String(),
		Route: []model.RouteStep{{
			Protocol:         "token-swap",
			Percent:          100,
			FromTokenAddress: req.FromToken,
			ToTokenAddress:   req.ToToken,
		}},
		ValidUntil: b.now().UTC().Add(b.quoteTTL).Format(time.RFC3339),
	}
	if err := b.quotes.Put(ctx, quote, b.quoteTTL); err != nil {
		return nil, err
	}
	return quote, nil
}

func applyFee(in *big.Int, feeBps int64) *big.Int {
	out := new(big.Int).Mul(in, big.NewInt(10000-feeBps))
	return out.Quo(out, big.NewInt(10000))
}

// Execute consumes the quote and submits one atomic transaction: an
// idempotent create of the destination token account followed by the pool
// swap. The quote cannot be executed twice.
func (b *Backend) Execute(ctx context.Context, quoteID string, opts swap.ExecuteOptions) (*model.SwapResult, error) {
	poolAddress, err := parseQuoteID(quoteID)
	if err != nil {
		return nil, err
	}
	quote, err := b.quotes.Consume(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	pool, err := b.pools.ByAddress(poolAddress)
	if err != nil {
		return nil, err
	}

	priv, err := keys.DecodeSolana(opts.Secret)
	if err != nil {
		return nil, err
	}
	defer keys.Zero(priv)
	owner, err := solana.PubkeyFromBase58(keys.SolanaAddress(priv))
	if err != nil {
		return nil, err
	}

	fromMint, err := solana.PubkeyFromBase58(quote.FromToken.Address)
	if err != nil {
		return nil, err
	}
	toMint, err := solana.PubkeyFromBase58(quote.ToToken.Address)
	if err != nil {
		return nil, err
	}

	amountIn, err := parseUint64Amount(quote.FromAmount)
	if err != nil {
		return nil, err
	}
	quotedOut, err := parseUint64Amount(quote.ToAmount)
	if err != nil {
		return nil, err
	}
	minOut := applyFee(new(big.Int).SetUint64(quotedOut), b.slippageBps).Uint64()

	userSource, err := solana.AssociatedTokenAddress(owner, fromMint)
	if err != nil {
		return nil, err
	}
	userDestination, err := solana.AssociatedTokenAddress(owner, toMint)
	if err != nil {
		return nil, err
	}
	createDest, err := solana.CreateAssociatedTokenAccountIdempotent(owner, owner, toMint)
	if err != nil {
		return nil, err
	}

	poolSource, poolDestination := pool.TokenAReserve, pool.TokenBReserve
	if quote.FromToken.Address == pool.TokenBMint.String() {
		poolSource, poolDestination = pool.TokenBReserve, pool.TokenAReserve
	}
	swapIns := swapInstruction(pool, owner, userSource, poolSource, poolDestination, userDestination, amountIn, minOut)

	blockhash, err := b.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := solana.NewTransaction(owner, blockhash, createDest, swapIns)
	if err != nil {
		return nil, err
	}
	wire, _, err := tx.Sign(priv)
	if err != nil {
		return nil, err
	}
	signature, err := b.rpc.SendTransaction(ctx, wire)
	if err != nil {
		if _, isRPC := err.(*solana.RPCError); isRPC {
			return nil, scouterr.Wrap(scouterr.KindUnavailable, "swap broadcast rejected", err)
		}
		return nil, err
	}

	zap.L().Info("swap submitted",
		zap.String("pool", poolAddress),
		zap.String("owner", owner.String()),
		zap.String("signature", signature))
	return &model.SwapResult{
		SwapID: signature,
		Status: model.SwapStatusSubmitted,
		TxHash: signature,
	}, nil
}

func parseQuoteID(quoteID string) (poolAddress string, err error) {
	parts := strings.SplitN(quoteID, ":", 3)
	if len(parts) != 3 || parts[0] != quoteIDPrefix || !solana.IsValidAddress(parts[1]) || parts[2] == "" {
		return "", scouterr.Newf(scouterr.KindInvalidInput, "invalid quote id %q", quoteID)
	}
	return parts[1], nil
}

func parseUint64Amount(s string) (uint64, error) {
	n, err := amount.ParseBaseUnits(s)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, scouterr.New(scouterr.KindInvalidInput, "amount exceeds the u64 range")
	}
	return n.Uint64(), nil
}

// swapInstruction builds the pool program's swap invocation. The owner acts
// as its own transfer authority.
func swapInstruction(pool *Pool, owner, userSource, poolSource, poolDestination, userDestination solana.Pubkey, amountIn, minOut uint64) solana.Instruction {
	program, _ := solana.PubkeyFromBase58(solana.TokenSwapProgramID)
	token, _ := solana.PubkeyFromBase58(solana.TokenProgramID)

	data := make([]byte, 17)
	data[0] = 1 // Swap
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minOut)

	return solana.Instruction{
		ProgramID: program,
		Accounts: []solana.AccountMeta{
			{Pubkey: pool.Address},
			{Pubkey: pool.Authority},
			{Pubkey: owner, IsSigner: true},
			{Pubkey: userSource, IsWritable: true},
			{Pubkey: poolSource, IsWritable: true},
			{Pubkey: poolDestination, IsWritable: true},
			{Pubkey: userDestination, IsWritable: true},
			{Pubkey: pool.PoolMint, IsWritable: true},
			{Pubkey: pool.FeeAccount, IsWritable: true},
			{Pubkey: token},
		},
		Data: data,
	}
}

// StatusCounts derives the wallet's swap tallies from its recent signature
// history at query time; nothing is cached.
func (b *Backend) StatusCounts(ctx context.Context, walletAddress string) (*model.SwapStatusCounts, error) {
	if !solana.IsValidAddress(walletAddress) {
		return nil, scouterr.Newf(scouterr.KindInvalidInput, "invalid wallet address %q", walletAddress)
	}
	sigs, err := b.rpc.GetSignaturesForAddress(ctx, walletAddress, statusHistoryLimit)
	if err != nil {
		return nil, err
	}

	counts := &model.SwapStatusCounts{}
	for _, sig := range sigs {
		status := model.SwapStatusSuccess
		if sig.Err != nil {
			status = model.SwapStatusFailed
			counts.Failed++
		} else {
			counts.Completed++
		}
		item := model.SwapStatusItem{
			SwapID: sig.Signature,
			Status: status,
			TxHash: sig.Signature,
		}
		if sig.BlockTime != nil {
			item.CreatedAt = time.Unix(*sig.BlockTime, 0).UTC().Format(time.RFC3339)
		}
		counts.Swaps = append(counts.Swaps, item)
	}
	return counts, nil
}

// Details resolves one swap by its transaction signature. A signature the
// node no longer serves reports as pending with the chain metadata left
// empty, never as failed.
func (b *Backend) Details(ctx context.Context, swapRef string) (*model.SwapDetails, error) {
	if swapRef == "" {
		return nil, scouterr.New(scouterr.KindInvalidInput, "swap id is required")
	}
	status, err := b.rpc.GetSignatureStatus(ctx, swapRef)
	if err != nil {
		if _, isRPC := err.(*solana.RPCError); isRPC {
			return nil, scouterr.Newf(scouterr.KindInvalidInput, "invalid swap reference %q", swapRef)
		}
		return nil, err
	}

	details := &model.SwapDetails{
		SwapID: swapRef,
		TxHash: swapRef,
		Status: swapStatusFromChain(solana.MapSignatureStatus(status)),
	}
	tx, err := b.rpc.GetTransaction(ctx, swapRef)
	if err != nil || tx == nil {
		return details, nil
	}
	details.BlockHeight = tx.Slot
	if tx.BlockTime != nil {
		details.Timestamp = *tx.BlockTime
		details.CompletedAt = time.Unix(*tx.BlockTime, 0).UTC().Format(time.RFC3339)
	}
	return details, nil
}

func swapStatusFromChain(status chain.TxStatus) model.SwapStatus {
	switch status {
	case chain.TxSuccess:
		return model.SwapStatusSuccess
	case chain.TxFailed:
		return model.SwapStatusFailed
	default:
		return model.SwapStatusPending
	}
}

// Distributions reports the single-pool route: one leg at 100%.
func (b *Backend) Distributions(_ context.Context, quoteID string) (*model.Distributions, error) {
	if _, err := parseQuoteID(quoteID); err != nil {
		return nil, err
	}
	return &model.Distributions{
		QuoteID: quoteID,
		Distributions: []model.DistributionItem{
			{Protocol: "token-swap", Percent: 100},
		},
	}, nil
}
