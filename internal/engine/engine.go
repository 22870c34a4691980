// Package engine orchestrates the operation surface: profile and wallet
// resolution, balance and transfer on the active chain, and the swap
// lifecycle against the configured backend.
package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Sonic-Vault/scout-api/internal/amount"
	"github.com/Sonic-Vault/scout-api/internal/chain"
	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
	"github.com/Sonic-Vault/scout-api/internal/keys"
	"github.com/Sonic-Vault/scout-api/internal/model"
	"github.com/Sonic-Vault/scout-api/internal/swap"
)

// ProfileStore is the persistence surface the engine needs.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (model.Profile, bool, error)
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	GetWallet(ctx context.Context, address string) (model.Wallet, bool, error)
	CreateWalletProfile(ctx context.Context, w model.Wallet, p model.Profile) (int64, error)
}

// Options configures an Engine for one chain family.
type Options struct {
	// Decimals is the chain's base-unit exponent, used only at the
	// decimal-string boundary.
	Decimals int32
	// Generate produces key material for new profiles.
	Generate func() (keys.Keypair, error)
}

type Engine struct {
	store    ProfileStore
	chain    chain.Adapter
	backend  swap.Backend
	decimals int32
	generate func() (keys.Keypair, error)
}

func New(store ProfileStore, adapter chain.Adapter, backend swap.Backend, opts Options) *Engine {
	e := &Engine{
		store:    store,
		chain:    adapter,
		backend:  backend,
		decimals: opts.Decimals,
		generate: opts.Generate,
	}
	if e.decimals == 0 {
		e.decimals = amount.EVMDecimals
	}
	return e
}

// GetProfile resolves a user's profile.
func (e *Engine) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	profile, found, err := e.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, scouterr.Newf(scouterr.KindNotFound, "no profile for user %q", userID)
	}
	return &profile, nil
}

// ListProfiles returns every stored profile.
func (e *Engine) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	return e.store.ListProfiles(ctx)
}

// CreateProfile provisions a custodial wallet and the profile referencing it.
// The wallet is persisted before the profile; a profile never points at
// unpersisted key material.
func (e *Engine) CreateProfile(ctx context.Context, userID, username, displayName string) (*model.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, scouterr.New(scouterr.KindInvalidInput, "user id is required")
	}
	if existing, found, err := e.store.GetProfile(ctx, userID); err != nil {
		return nil, err
	} else if found {
		return &existing, nil
	}

	kp, err := e.generate()
	if err != nil {
		return nil, err
	}
	profile := model.Profile{
		UserID:        userID,
		Username:      username,
		DisplayName:   displayName,
		WalletAddress: kp.Address,
	}
	id, err := e.store.CreateWalletProfile(ctx,
		model.Wallet{Address: kp.Address, Private: kp.Secret}, profile)
	if err != nil {
		return nil, err
	}
	profile.ID = id
	zap.L().Info("profile created", zap.String("user_id", userID), zap.String("wallet", kp.Address))
	return &profile, nil
}

// GetBalance reports the user's balance as a decimal string. A user with no
// profile or wallet has balance "0"; that is not an error.
func (e *Engine) GetBalance(ctx context.Context, userID string) (*model.BalanceResponse, error) {
	profile, found, err := e.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found || strings.TrimSpace(profile.WalletAddress) == "" {
		return &model.BalanceResponse{Balance: "0"}, nil
	}

	base, err := e.chain.Balance(ctx, profile.WalletAddress)
	if err != nil {
		return nil, err
	}
	human, err := amount.FromBaseUnits(base, e.decimals)
	if err != nil {
		return nil, err
	}
	return &model.BalanceResponse{Balance: human}, nil
}

// Transfer moves native value from the user's wallet to a recipient. The
// amount is a decimal string; conversion happens here, at the boundary.
func (e *Engine) Transfer(ctx context.Context, userID, recipient, decimalAmount string) (*model.TransferResponse, error) {
	wallet, err := e.walletFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	base, err := amount.ToBaseUnits(decimalAmount, e.decimals)
	if err != nil {
		return nil, err
	}
	ref, err := e.chain.Transfer(ctx, wallet.Private, recipient, base)
	if err != nil {
		return nil, err
	}
	return &model.TransferResponse{Trx: ref}, nil
}

// GetQuote prices a swap through the active backend.
func (e *Engine) GetQuote(ctx context.Context, req model.QuoteRequest) (*model.Quote, error) {
	return e.backend.Quote(ctx, req)
}

// ExecuteSwap resolves the user's signing material and executes a previously
// issued quote. The decoded key's scope ends with the backend call.
func (e *Engine) ExecuteSwap(ctx context.Context, userID, quoteID string) (*model.SwapResult, error) {
	wallet, err := e.walletFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.backend.Execute(ctx, quoteID, swap.ExecuteOptions{
		WalletAddress: wallet.Address,
		Secret:        wallet.Private,
	})
}

// GetSwapStatus aggregates swap outcomes for a wallet.
func (e *Engine) GetSwapStatus(ctx context.Context, walletAddress string) (*model.SwapStatusCounts, error) {
	return e.backend.StatusCounts(ctx, walletAddress)
}

// GetSwapDetails resolves one swap.
func (e *Engine) GetSwapDetails(ctx context.Context, swapID string) (*model.SwapDetails, error) {
	return e.backend.Details(ctx, swapID)
}

// GetDistributions reports the route split for a quote.
func (e *Engine) GetDistributions(ctx context.Context, quoteID string) (*model.Distributions, error) {
	return e.backend.Distributions(ctx, quoteID)
}

func (e *Engine) walletFor(ctx context.Context, userID string) (model.Wallet, error) {
	profile, found, err := e.store.GetProfile(ctx, userID)
	if err != nil {
		return model.Wallet{}, err
	}
	if !found {
		return model.Wallet{}, scouterr.Newf(scouterr.KindNotFound, "no profile for user %q", userID)
	}
	wallet, found, err := e.store.GetWallet(ctx, profile.WalletAddress)
	if err != nil {
		return model.Wallet{}, err
	}
	if !found {
		return model.Wallet{}, scouterr.Newf(scouterr.KindNotFound, "no wallet for address %q", profile.WalletAddress)
	}
	return wallet, nil
}
