// Package amm implements the swap backend for on-chain constant-product
// token-swap pools. Quoting uses a fixed fee-rate approximation; execution
// submits a native transaction against the pool program.
package amm

import (
	"context"
	"encoding/base64"

	"go.uber.org/zap"

	"github.com/Sonic-Vault/scout-api/internal/chain/solana"
	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
)

// PoolSeed is the configured identity of one pool: the swap account address
// and its two token mints. Everything else is resolved from chain state.
type PoolSeed struct {
	Address    string
	TokenAMint string
	TokenBMint string
}

// Pool is a fully resolved pool. Reserve and fee accounts come from the
// on-chain swap account when it is readable, or from deterministic
// derivation when it is not.
type Pool struct {
	Address       solana.Pubkey
	Authority     solana.Pubkey
	TokenAMint    solana.Pubkey
	TokenBMint    solana.Pubkey
	TokenAReserve solana.Pubkey
	TokenBReserve solana.Pubkey
	PoolMint      solana.Pubkey
	FeeAccount    solana.Pubkey
}

// Registry is the pool lookup table, built once at startup and read-only
// afterwards. Keys are unordered token pairs: Resolve(a, b) == Resolve(b, a).
type Registry struct {
	byPair    map[[2]string]*Pool
	byAddress map[string]*Pool
}

func pairKey(mintA, mintB string) [2]string {
	if mintB < mintA {
		mintA, mintB = mintB, mintA
	}
	return [2]string{mintA, mintB}
}

// Token-swap account layout offsets (version, initialized, bump, then seven
// 32-byte keys starting with the token program).
const (
	swapLayoutTokenAccountA = 35
	swapLayoutTokenAccountB = 67
	swapLayoutPoolMint      = 99
	swapLayoutFeeAccount    = 195
	swapLayoutMinLen        = 227
)

// BuildRegistry resolves each seed against chain state. An unreadable pool
// account degrades to derived placeholder accounts with a warning instead of
// failing startup; swaps against such a pool fail on-chain, not here.
func BuildRegistry(ctx context.Context, rpc *solana.Client, seeds []PoolSeed) (*Registry, error) {
	r := &Registry{
		byPair:    make(map[[2]string]*Pool, len(seeds)),
		byAddress: make(map[string]*Pool, len(seeds)),
	}
	for _, seed := range seeds {
		pool, err := resolvePool(ctx, rpc, seed)
		if err != nil {
			return nil, err
		}
		r.byPair[pairKey(seed.TokenAMint, seed.TokenBMint)] = pool
		r.byAddress[seed.Address] = pool
	}
	return r, nil
}

func resolvePool(ctx context.Context, rpc *solana.Client, seed PoolSeed) (*Pool, error) {
	address, err := solana.PubkeyFromBase58(seed.Address)
	if err != nil {
		return nil, scouterr.Newf(scouterr.KindInvalidInput, "invalid pool address %q", seed.Address)
	}
	mintA, err := solana.PubkeyFromBase58(seed.TokenAMint)
	if err != nil {
		return nil, scouterr.Newf(scouterr.KindInvalidInput, "invalid token mint %q", seed.TokenAMint)
	}
	mintB, err := solana.PubkeyFromBase58(seed.TokenBMint)
	if err != nil {
		return nil, scouterr.Newf(scouterr.KindInvalidInput, "invalid token mint %q", seed.TokenBMint)
	}

	program, _ := solana.PubkeyFromBase58(solana.TokenSwapProgramID)
	authority, _, err := solana.FindProgramAddress([][]byte{address[:]}, program)
	if err != nil {
		return nil, err
	}

	pool := &Pool{
		Address:    address,
		Authority:  authority,
		TokenAMint: mintA,
		TokenBMint: mintB,
	}

	info, err := rpc.GetAccountInfo(ctx, seed.Address)
	if err != nil {
		return nil, err
	}
	if info != nil {
		if raw, decErr := base64.StdEncoding.DecodeString(info.Data); decErr == nil && len(raw) >= swapLayoutMinLen {
			copy(pool.TokenAReserve[:], raw[swapLayoutTokenAccountA:swapLayoutTokenAccountA+32])
			copy(pool.TokenBReserve[:], raw[swapLayoutTokenAccountB:swapLayoutTokenAccountB+32])
			copy(pool.PoolMint[:], raw[swapLayoutPoolMint:swapLayoutPoolMint+32])
			copy(pool.FeeAccount[:], raw[swapLayoutFeeAccount:swapLayoutFeeAccount+32])
			return pool, nil
		}
	}

	zap.L().Warn("pool account unreadable, deriving placeholder accounts",
		zap.String("pool", seed.Address))
	if pool.TokenAReserve, err = solana.AssociatedTokenAddress(authority, mintA); err != nil {
		return nil, err
	}
	if pool.TokenBReserve, err = solana.AssociatedTokenAddress(authority, mintB); err != nil {
		return nil, err
	}
	if pool.PoolMint, _, err = solana.FindProgramAddress([][]byte{address[:], []byte("mint")}, program); err != nil {
		return nil, err
	}
	pool.FeeAccount = pool.TokenAReserve
	return pool, nil
}

// Resolve finds the pool serving a token pair in either order.
func (r *Registry) Resolve(fromMint, toMint string) (*Pool, error) {
	pool, ok := r.byPair[pairKey(fromMint, toMint)]
	if !ok {
		return nil, scouterr.Newf(scouterr.KindNotFound, "no pool for pair %s / %s", fromMint, toMint)
	}
	return pool, nil
}

// ByAddress finds a pool by its swap account address.
func (r *Registry) ByAddress(address string) (*Pool, error) {
	pool, ok := r.byAddress[address]
	if !ok {
		return nil, scouterr.Newf(scouterr.KindNotFound, "unknown pool %q", address)
	}
	return pool, nil
}
