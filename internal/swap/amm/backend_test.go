package amm

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	"github.com/Sonic-Vault/scout-api/internal/chain/solana"
	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
	"github.com/Sonic-Vault/scout-api/internal/keys"
	"github.com/Sonic-Vault/scout-api/internal/model"
	"github.com/Sonic-Vault/scout-api/internal/swap"
	"github.com/Sonic-Vault/scout-api/internal/swap/quotestore"
)

const (
	testPool  = "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2"
	testMintA = "So11111111111111111111111111111111111111112"
	testMintB = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// mockNode answers the subset of RPC methods the backend uses. Pool accounts
// read as absent, so registries built against it use derived accounts.
func mockNode(t *testing.T) *httptest.Server {
	t.Helper()
	blockhash := base58.Encode(make([]byte, 32))
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result interface{}
		switch req.Method {
		case "getAccountInfo":
			result = map[string]interface{}{"value": nil}
		case "getLatestBlockhash":
			result = map[string]interface{}{"value": map[string]string{"blockhash": blockhash}}
		case "sendTransaction":
			result = "5Signature1111111111111111111111111111111111"
		case "getSignatureStatuses":
			result = map[string]interface{}{"value": []interface{}{nil}}
		case "getTransaction":
			result = nil
		case "getSignaturesForAddress":
			result = []map[string]interface{}{
				{"signature": "sigOK", "slot": 10, "blockTime": 1756700000, "err": nil},
				{"signature": "sigBad", "slot": 9, "err": map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
			}
		default:
			t.Fatalf("unexpected method %s", req.Method)
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID, "result": result,
		}))
	}))
}

func testBackend(t *testing.T) (*Backend, *quotestore.Memory, func()) {
	t.Helper()
	srv := mockNode(t)
	rpc := solana.NewClient(srv.URL)
	registry, err := BuildRegistry(context.Background(), rpc, []PoolSeed{
		{Address: testPool, TokenAMint: testMintA, TokenBMint: testMintB},
	})
	require.NoError(t, err)
	quotes := quotestore.NewMemory()
	return New(rpc, registry, quotes, Options{}), quotes, srv.Close
}

func TestResolveIgnoresTokenOrder(t *testing.T) {
	b, _, done := testBackend(t)
	defer done()

	ab, err := b.pools.Resolve(testMintA, testMintB)
	require.NoError(t, err)
	ba, err := b.pools.Resolve(testMintB, testMintA)
	require.NoError(t, err)
	require.Equal(t, ab, ba)

	_, err = b.pools.Resolve(testMintA, testPool)
	require.True(t, scouterr.IsKind(err, scouterr.KindNotFound))
}

func TestQuoteAppliesExactFee(t *testing.T) {
	b, _, done := testBackend(t)
	defer done()

	start := time.Now().UTC()
	quote, err := b.Quote(context.Background(), model.QuoteRequest{
		FromToken: testMintA,
		ToToken:   testMintB,
		Amount:    "1000000000",
	})
	require.NoError(t, err)
	require.Equal(t, "1000000000", quote.FromAmount)
	require.Equal(t, "980000000", quote.ToAmount)
	require.True(t, strings.HasPrefix(quote.QuoteID, "amm:"+testPool+":"))

	validUntil, err := time.Parse(time.RFC3339, quote.ValidUntil)
	require.NoError(t, err)
	require.WithinDuration(t, start.Add(10*time.Minute), validUntil, 5*time.Second)
}

func TestQuoteRejectsBadInput(t *testing.T) {
	b, _, done := testBackend(t)
	defer done()
	ctx := context.Background()

	_, err := b.Quote(ctx, model.QuoteRequest{FromToken: "0xevm", ToToken: testMintB, Amount: "1"})
	require.True(t, scouterr.IsKind(err, scouterr.KindInvalidInput))

	_, err = b.Quote(ctx, model.QuoteRequest{FromToken: testMintA, ToToken: testMintB, Amount: "0"})
	require.True(t, scouterr.IsKind(err, scouterr.KindInvalidInput))

	_, err = b.Quote(ctx, model.QuoteRequest{FromToken: testMintA, ToToken: testMintB, Amount: "1.5"})
	require.True(t, scouterr.IsKind(err, scouterr.KindInvalidInput))
}

func TestExecuteRejectsMalformedQuoteID(t *testing.T) {
	b, _, done := testBackend(t)
	defer done()

	for _, id := range []string{"", "q-123", "amm:not-base58:uuid", "aggregator:" + testPool + ":x"} {
		_, err := b.Execute(context.Background(), id, swap.ExecuteOptions{})
		require.True(t, scouterr.IsKind(err, scouterr.KindInvalidInput), "id %q", id)
	}
}

func TestExecuteConsumesQuoteExactlyOnce(t *testing.T) {
	b, _, done := testBackend(t)
	defer done()
	ctx := context.Background()

	wallet, err := keys.GenerateSolana()
	require.NoError(t, err)

	quote, err := b.Quote(ctx, model.QuoteRequest{
		FromToken: testMintA,
		ToToken:   testMintB,
		Amount:    "1000000000",
	})
	require.NoError(t, err)

	opts := swap.ExecuteOptions{WalletAddress: wallet.Address, Secret: wallet.Secret}
	result, err := b.Execute(ctx, quote.QuoteID, opts)
	require.NoError(t, err)
	require.Equal(t, model.SwapStatusSubmitted, result.Status)
	require.NotEmpty(t, result.TxHash)
	require.Equal(t, result.TxHash, result.SwapID)

	_, err = b.Execute(ctx, quote.QuoteID, opts)
	require.True(t, scouterr.IsKind(err, scouterr.KindNotFound))
}

func TestExecuteExpiredQuote(t *testing.T) {
	b, quotes, done := testBackend(t)
	defer done()
	ctx := context.Background()

	quote := &model.Quote{
		QuoteID:    "amm:" + testPool + ":stale",
		FromToken:  model.TokenInfo{Address: testMintA},
		ToToken:    model.TokenInfo{Address: testMintB},
		FromAmount: "1000000000",
		ToAmount:   "980000000",
	}
	require.NoError(t, quotes.Put(ctx, quote, -time.Second))

	_, err := b.Execute(ctx, quote.QuoteID, swap.ExecuteOptions{})
	require.True(t, scouterr.IsKind(err, scouterr.KindQuoteExpired))
}

func TestStatusCountsTalliesHistory(t *testing.T) {
	b, _, done := testBackend(t)
	defer done()

	counts, err := b.StatusCounts(context.Background(), testMintA)
	require.NoError(t, err)
	require.Equal(t, 1, counts.Completed)
	require.Equal(t, 1, counts.Failed)
	require.Len(t, counts.Swaps, 2)
	require.Equal(t, model.SwapStatusSuccess, counts.Swaps[0].Status)
	require.Equal(t, model.SwapStatusFailed, counts.Swaps[1].Status)
	require.NotEmpty(t, counts.Swaps[0].CreatedAt)

	_, err = b.StatusCounts(context.Background(), "bogus")
	require.True(t, scouterr.IsKind(err, scouterr.KindInvalidInput))
}

func TestDetailsUnknownSignatureIsPending(t *testing.T) {
	b, _, done := testBackend(t)
	defer done()

	details, err := b.Details(context.Background(), "5Signature1111111111111111111111111111111111")
	require.NoError(t, err)
	require.Equal(t, model.SwapStatusPending, details.Status)
	require.Zero(t, details.BlockHeight)
}

func TestDistributionsSingleLeg(t *testing.T) {
	b, _, done := testBackend(t)
	defer done()

	dist, err := b.Distributions(context.Background(), "amm:"+testPool+":abc")
	require.NoError(t, err)
	require.Len(t, dist.Distributions, 1)
	require.Equal(t, float64(100), dist.Distributions[0].Percent)

	_, err = b.Distributions(context.Background(), "garbage")
	require.True(t, scouterr.IsKind(err, scouterr.KindInvalidInput))
}

func TestApplyFeeMonotonic(t *testing.T) {
	small := applyFee(big.NewInt(1_000), 200)
	large := applyFee(big.NewInt(1_000_000), 200)
	require.Equal(t, int64(980), small.Int64())
	require.Equal(t, int64(980_000), large.Int64())
	require.True(t, large.Cmp(small) > 0)
}
