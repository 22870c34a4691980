// Package aggregator implements the swap backend backed by an external
// aggregation service. All pricing, routing, and submission happen on the
// service side; this client shapes requests and normalizes responses.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
	"github.com/Sonic-Vault/scout-api/internal/httpx"
	"github.com/Sonic-Vault/scout-api/internal/model"
	"github.com/Sonic-Vault/scout-api/internal/swap"
)

const defaultSlippageBps = 50

// Client talks to the aggregator REST API. It satisfies swap.Backend.
type Client struct {
	http     *httpx.Client
	baseURL  string
	quoteTTL time.Duration
	now      func() time.Time
}

func New(httpClient *httpx.Client, baseURL string, quoteTTL time.Duration) *Client {
	return &Client{
		http:     httpClient,
		baseURL:  strings.TrimRight(baseURL, "/"),
		quoteTTL: quoteTTL,
		now:      time.Now,
	}
}

type wireToken struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int32  `json:"decimals"`
	LogoURI  string `json:"logoUri"`
}

func (t wireToken) toModel() model.TokenInfo {
	return model.TokenInfo{
		Address:  t.Address,
		Symbol:   t.Symbol,
		Name:     t.Name,
		Decimals: t.Decimals,
		LogoURI:  t.LogoURI,
	}
}

type wireQuote struct {
	ID           string    `json:"id"`
	FromToken    wireToken `json:"fromToken"`
	ToToken      wireToken `json:"toToken"`
	AmountIn     string    `json:"amountIn"`
	AmountOut    string    `json:"amountOut"`
	EstimatedGas string    `json:"estimatedGas"`
	ExpiresAt    string    `json:"expiresAt"`
	Route        []struct {
		Protocol         string  `json:"protocol"`
		Percent          float64 `json:"percent"`
		FromTokenAddress string  `json:"fromTokenAddress"`
		ToTokenAddress   string  `json:"toTokenAddress"`
	} `json:"route"`
}

func (c *Client) Quote(ctx context.Context, req model.QuoteRequest) (*model.Quote, error) {
	if req.FromToken == "" || req.ToToken == "" || req.Amount == "" {
		return nil, scouterr.New(scouterr.KindInvalidInput, "quote requires from token, to token, and amount")
	}
	slippage := req.SlippageBps
	if slippage == 0 {
		slippage = defaultSlippageBps
	}

	vals := url.Values{}
	vals.Set("fromTokenAddress", req.FromToken)
	vals.Set("toTokenAddress", req.ToToken)
	vals.Set("amount", req.Amount)
	vals.Set("slippage", strconv.FormatFloat(float64(slippage)/10000, 'f', -1, 64))
	if req.FromAddress != "" {
		vals.Set("fromAddress", req.FromAddress)
	}
	if req.ToAddress != "" {
		vals.Set("toAddress", req.ToAddress)
	}
	vals.Set("gasless", strconv.FormatBool(req.Gasless))
	if req.AffiliateAddress != "" {
		vals.Set("affiliateAddress", req.AffiliateAddress)
		vals.Set("affiliateFeeInPercentage", strconv.FormatFloat(req.AffiliateFee, 'f', -1, 64))
	}

	var resp wireQuote
	if err := c.get(ctx, "/aggregator/quote", vals, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.ID) == "" || strings.TrimSpace(resp.AmountOut) == "" {
		return nil, scouterr.New(scouterr.KindUnavailable, "aggregator quote missing id or output amount")
	}

	validUntil := resp.ExpiresAt
	if validUntil == "" {
		validUntil = c.now().UTC().Add(c.quoteTTL).Format(time.RFC3339)
	}
	quote := &model.Quote{
		QuoteID:      resp.ID,
		FromToken:    resp.FromToken.toModel(),
		ToToken:      resp.ToToken.toModel(),
		FromAmount:   resp.AmountIn,
		ToAmount:     resp.AmountOut,
		EstimatedGas: resp.EstimatedGas,
		ValidUntil:   validUntil,
	}
	if quote.FromAmount == "" {
		quote.FromAmount = req.Amount
	}
	for _, hop := range resp.Route {
		quote.Route = append(quote.Route, model.RouteStep{
			Protocol:         hop.Protocol,
			Percent:          hop.Percent,
			FromTokenAddress: hop.FromTokenAddress,
			ToTokenAddress:   hop.ToTokenAddress,
		})
	}
	return quote, nil
}

// TransactionData is the calldata the aggregator prepares for a quote, for
// callers that submit the transaction themselves.
type TransactionData struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	GasLimit string `json:"gasLimit"`
	ChainID  int64  `json:"chainId"`
}

func (c *Client) Transaction(ctx context.Context, quoteID string) (*TransactionData, error) {
	if quoteID == "" {
		return nil, scouterr.New(scouterr.KindInvalidInput, "quote id is required")
	}
	vals := url.Values{}
	vals.Set("quoteId", quoteID)
	var resp TransactionData
	if err := c.get(ctx, "/aggregator/transaction", vals, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type executeRequest struct {
	QuoteID         string `json:"quoteId"`
	WalletAddress   string `json:"walletAddress"`
	NetworkName     string `json:"networkName,omitempty"`
	Gasless         bool   `json:"gasless"`
	SwapSignature   string `json:"swapSignature,omitempty"`
	PermitDeadline  string `json:"permitDeadline,omitempty"`
	PermitSignature string `json:"permitSignature,omitempty"`
}

type executeResponse struct {
	SwapID string `json:"swapId"`
	Status string `json:"status"`
	TxHash string `json:"txHash"`
	Error  string `json:"error"`
}

func (c *Client) Execute(ctx context.Context, quoteID string, opts swap.ExecuteOptions) (*model.SwapResult, error) {
	if quoteID == "" {
		return nil, scouterr.New(scouterr.KindInvalidInput, "quote id is required")
	}
	body, err := json.Marshal(executeRequest{
		QuoteID:         quoteID,
		WalletAddress:   opts.WalletAddress,
		NetworkName:     opts.NetworkName,
		Gasless:         opts.Gasless,
		SwapSignature:   opts.SwapSignature,
		PermitDeadline:  opts.PermitDeadline,
		PermitSignature: opts.PermitSignature,
	})
	if err != nil {
		return nil, scouterr.Wrap(scouterr.KindInternal, "encode execute request", err)
	}

	var resp executeResponse
	if _, err := httpx.DoBodyJSON(ctx, c.http, http.MethodPost, c.baseURL+"/user-manager/execute-swap", body, &resp); err != nil {
		return nil, err
	}
	if resp.SwapID == "" {
		return nil, scouterr.New(scouterr.KindUnavailable, "aggregator execute returned no swap id")
	}
	return &model.SwapResult{
		SwapID: resp.SwapID,
		Status: mapStatus(resp.Status),
		TxHash: resp.TxHash,
		Error:  resp.Error,
	}, nil
}

type wireSwapItem struct {
	SwapID     string    `json:"swapId"`
	Status     string    `json:"status"`
	CreatedAt  string    `json:"createdAt"`
	FromToken  wireToken `json:"fromToken"`
	ToToken    wireToken `json:"toToken"`
	FromAmount string    `json:"fromAmount"`
	ToAmount   string    `json:"toAmount"`
	TxHash     string    `json:"txHash"`
}

type statusCountsResponse struct {
	Swaps     []wireSwapItem `json:"swaps"`
	Pending   int            `json:"pending"`
	Error     int            `json:"error"`
	Completed int            `json:"completed"`
}

func (c *Client) StatusCounts(ctx context.Context, walletAddress string) (*model.SwapStatusCounts, error) {
	if walletAddress == "" {
		return nil, scouterr.New(scouterr.KindInvalidInput, "wallet address is required")
	}
	vals := url.Values{}
	vals.Set("walletAddress", walletAddress)
	var resp statusCountsResponse
	if err := c.get(ctx, "/user-manager/status-counts", vals, &resp); err != nil {
		return nil, err
	}

	counts := &model.SwapStatusCounts{
		Pending:   resp.Pending,
		Failed:    resp.Error,
		Completed: resp.Completed,
	}
	for _, item := range resp.Swaps {
		counts.Swaps = append(counts.Swaps, model.SwapStatusItem{
			SwapID:     item.SwapID,
			Status:     mapStatus(item.Status),
			CreatedAt:  item.CreatedAt,
			FromToken:  item.FromToken.toModel(),
			ToToken:    item.ToToken.toModel(),
			FromAmount: item.FromAmount,
			ToAmount:   item.ToAmount,
			TxHash:     item.TxHash,
		})
	}
	return counts, nil
}

type wireSwapDetails struct {
	wireSwapItem
	CompletedAt string `json:"completedAt"`
	Timestamp   int64  `json:"timestamp"`
	BlockNumber int64  `json:"blockNumber"`
	GasUsed     string `json:"gasUsed"`
	GasPrice    string `json:"gasPrice"`
}

func (c *Client) Details(ctx context.Context, swapRef string) (*model.SwapDetails, error) {
	if swapRef == "" {
		return nil, scouterr.New(scouterr.KindInvalidInput, "swap id is required")
	}
	vals := url.Values{}
	vals.Set("swapId", swapRef)
	var resp wireSwapDetails
	if err := c.get(ctx, "/user-manager/swap", vals, &resp); err != nil {
		return nil, err
	}
	return &model.SwapDetails{
		SwapID:      resp.SwapID,
		Status:      mapStatus(resp.Status),
		TxHash:      resp.TxHash,
		FromToken:   resp.FromToken.toModel(),
		ToToken:     resp.ToToken.toModel(),
		FromAmount:  resp.FromAmount,
		ToAmount:    resp.ToAmount,
		Timestamp:   resp.Timestamp,
		CreatedAt:   resp.CreatedAt,
		CompletedAt: resp.CompletedAt,
		BlockHeight: resp.BlockNumber,
		GasUsed:     resp.GasUsed,
		GasPrice:    resp.GasPrice,
	}, nil
}

func (c *Client) Distributions(ctx context.Context, quoteID string) (*model.Distributions, error) {
	if quoteID == "" {
		return nil, scouterr.New(scouterr.KindInvalidInput, "quote id is required")
	}
	vals := url.Values{}
	vals.Set("quote-id", quoteID)
	var resp []struct {
		Protocol string  `json:"protocol"`
		Amount   string  `json:"amount"`
		Percent  float64 `json:"percent"`
	}
	if err := c.get(ctx, "/aggregator/distributions", vals, &resp); err != nil {
		return nil, err
	}
	out := &model.Distributions{QuoteID: quoteID}
	for _, item := range resp {
		out.Distributions = append(out.Distributions, model.DistributionItem{
			Protocol: item.Protocol,
			Amount:   item.Amount,
			Percent:  item.Percent,
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, vals url.Values, out any) error {
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, vals.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return scouterr.Wrap(scouterr.KindInternal, "build aggregator request", err)
	}
	_, err = c.http.DoJSON(ctx, req, out)
	return err
}

// mapStatus folds the service's status vocabulary into the engine's.
func mapStatus(s string) model.SwapStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUCCESS", "COMPLETED", "COMPLETE":
		return model.SwapStatusSuccess
	case "CONFIRMED":
		return model.SwapStatusConfirmed
	case "FAILED", "ERROR":
		return model.SwapStatusFailed
	case "SUBMITTED":
		return model.SwapStatusSubmitted
	default:
		return model.SwapStatusPending
	}
}
