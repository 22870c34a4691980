// Package swap defines the backend contract shared by the aggregator and the
// on-chain AMM implementations.
package swap

import (
	"context"

	"github.com/Sonic-Vault/scout-api/internal/model"
)

// ExecuteOptions carries the signer-side inputs of an execute call. Secret is
// the wallet's text-encoded private key; it stays in scope only for the call.
type ExecuteOptions struct {
	WalletAddress string
	Secret        string

	// Gasless delegation fields, aggregator backend only.
	Gasless         bool
	NetworkName     string
	SwapSignature   string
	PermitDeadline  string
	PermitSignature string
}

// Backend is the swap lifecycle surface. Quote issues a time-bounded offer,
// Execute consumes it exactly once, the read operations derive state at query
// time.
type Backend interface {
	Quote(ctx context.Context, req model.QuoteRequest) (*model.Quote, error)
	Execute(ctx context.Context, quoteID string, opts ExecuteOptions) (*model.SwapResult, error)
	StatusCounts(ctx context.Context, walletAddress string) (*model.SwapStatusCounts, error)
	Details(ctx context.Context, swapRef string) (*model.SwapDetails, error)
	Distributions(ctx context.Context, quoteID string) (*model.Distributions, error)
}
