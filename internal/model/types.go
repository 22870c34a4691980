// Package model defines the JSON-serializable types exchanged across the
// engine's operation surface.
package model

// Profile maps an external user identity to a custodial wallet address.
type Profile struct {
	ID            int64  `json:"id,omitempty"`
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	DisplayName   string `json:"name"`
	WalletAddress string `json:"wallet"`
}

// Wallet holds a custodial keypair. Private is the chain-specific reversible
// text encoding of the secret (hex for EVM, base58 for Solana) and must never
// leave the store layer except as a transient signing copy.
type Wallet struct {
	ID      int64  `json:"id,omitempty"`
	Address string `json:"address"`
	Private string `json:"-"`
}

// TokenInfo describes one side of a swap.
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Decimals int32  `json:"decimals"`
	LogoURI  string `json:"logo_uri,omitempty"`
}

// RouteStep is one hop of a swap route.
type RouteStep struct {
	Protocol         string  `json:"protocol"`
	Percent          float64 `json:"percent"`
	FromTokenAddress string  `json:"from_token_address"`
	ToTokenAddress   string  `json:"to_token_address"`
}

// QuoteRequest is the canonical quote request shape accepted by both swap
// backends. Slippage is optional; backends apply their default when zero.
type QuoteRequest struct {
	FromToken        string  `json:"from_token"`
	ToToken          string  `json:"to_token"`
	Amount           string  `json:"amount"`
	SlippageBps      int64   `json:"slippage_bps,omitempty"`
	FromAddress      string  `json:"from_address,omitempty"`
	ToAddress        string  `json:"to_address,omitempty"`
	Gasless          bool    `json:"gasless,omitempty"`
	AffiliateAddress string  `json:"affiliate_address,omitempty"`
	AffiliateFee     float64 `json:"affiliate_fee,omitempty"`
}

// Quote is a time-bounded, immutable price and route offer. Amounts are
// base-unit integer strings. The id is opaque to callers and must be echoed
// back unchanged on execute.
type Quote struct {
	QuoteID      string      `json:"quote_id"`
	FromToken    TokenInfo   `json:"from_token"`
	ToToken      TokenInfo   `json:"to_token"`
	FromAmount   string      `json:"from_amount"`
	ToAmount     string      `json:"to_amount"`
	EstimatedGas string      `json:"estimated_gas,omitempty"`
	Route        []RouteStep `json:"route,omitempty"`
	ValidUntil   string      `json:"valid_until"`
}

// SwapStatus is derived from chain confirmation state at query time.
type SwapStatus string

const (
	SwapStatusPending   SwapStatus = "PENDING"
	SwapStatusSuccess   SwapStatus = "SUCCESS"
	SwapStatusFailed    SwapStatus = "FAILED"
	SwapStatusConfirmed SwapStatus = "CONFIRMED"
	SwapStatusSubmitted SwapStatus = "SUBMITTED"
)

// SwapResult is the normalized outcome of an execute-swap call.
type SwapResult struct {
	SwapID string     `json:"swap_id"`
	Status SwapStatus `json:"status"`
	TxHash string     `json:"tx_hash,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// SwapStatusItem is one swap in an aggregate status listing.
type SwapStatusItem struct {
	SwapID     string     `json:"swap_id"`
	Status     SwapStatus `json:"status"`
	CreatedAt  string     `json:"created_at,omitempty"`
	FromToken  TokenInfo  `json:"from_token"`
	ToToken    TokenInfo  `json:"to_token"`
	FromAmount string     `json:"from_amount"`
	ToAmount   string     `json:"to_amount"`
	TxHash     string     `json:"tx_hash,omitempty"`
}

// SwapStatusCounts aggregates swap outcomes for a wallet.
type SwapStatusCounts struct {
	Swaps     []SwapStatusItem `json:"swaps"`
	Pending   int              `json:"pending"`
	Failed    int              `json:"error"`
	Completed int              `json:"completed"`
}

// SwapDetails is the per-swap detail view. Chain metadata that the RPC no
// longer serves (pruned history, absent block time) is left zero-valued
// rather than failing the call.
type SwapDetails struct {
	SwapID      string     `json:"swap_id"`
	Status      SwapStatus `json:"status"`
	TxHash      string     `json:"tx_hash,omitempty"`
	FromToken   TokenInfo  `json:"from_token"`
	ToToken     TokenInfo  `json:"to_token"`
	FromAmount  string     `json:"from_amount"`
	ToAmount    string     `json:"to_amount"`
	Timestamp   int64      `json:"timestamp,omitempty"`
	CreatedAt   string     `json:"created_at,omitempty"`
	CompletedAt string     `json:"completed_at,omitempty"`
	BlockHeight int64      `json:"block_number,omitempty"`
	GasUsed     string     `json:"gas_used,omitempty"`
	GasPrice    string     `json:"gas_price,omitempty"`
}

// DistributionItem is one leg of a route split. Percent values sum to 100
// (modulo rounding).
type DistributionItem struct {
	Protocol string  `json:"protocol"`
	Amount   string  `json:"amount"`
	Percent  float64 `json:"percent"`
}

// Distributions reports how a quote's input is split across route legs.
type Distributions struct {
	QuoteID       string             `json:"quote_id,omitempty"`
	Distributions []DistributionItem `json:"distributions"`
}

// BalanceResponse is the balance surface result. Balance is a human decimal
// string formatted at the boundary.
type BalanceResponse struct {
	Balance string `json:"balance"`
}

// TransferResponse carries the confirmation reference of a transfer.
type TransferResponse struct {
	Trx string `json:"trx"`
}

// ErrorBody is the structured error shape returned across the surface.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
