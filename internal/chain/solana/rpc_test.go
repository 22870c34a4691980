package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
)

func rpcServer(t *testing.T, handler func(method string, params []json.RawMessage) (interface{}, *RPCError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JSONRPC string            `json:"jsonrpc"`
			ID      uint64            `json:"id"`
			Method  string            `json:"method"`
			Params  []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "2.0", req.JSONRPC)

		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestGetBalance(t *testing.T) {
	srv := rpcServer(t, func(method string, _ []json.RawMessage) (interface{}, *RPCError) {
		require.Equal(t, "getBalance", method)
		return map[string]interface{}{"context": map[string]int{"slot": 1}, "value": 2_500_000_000}, nil
	})
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.GetBalance(context.Background(), SystemProgramID)
	require.NoError(t, err)
	require.Equal(t, uint64(2_500_000_000), got)
}

func TestRPCErrorIsNotRetried(t *testing.T) {
	calls := 0
	srv := rpcServer(t, func(string, []json.RawMessage) (interface{}, *RPCError) {
		calls++
		return nil, &RPCError{Code: -32602, Message: "invalid params"}
	})
	defer srv.Close()

	c := NewClient(srv.URL, WithMaxRetries(3))
	_, err := c.GetBalance(context.Background(), "bogus")
	require.Error(t, err)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, -32602, rpcErr.Code)
	require.Equal(t, 1, calls)
}

func TestTransportFailureRetriesThenUnavailable(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithMaxRetries(2))
	c.retryDelay = 0
	_, err := c.GetLatestBlockhash(context.Background())
	require.True(t, scouterr.IsKind(err, scouterr.KindUnavailable))
	require.Equal(t, 3, calls)
}

func TestGetSignatureStatusUnknownSignature(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (interface{}, *RPCError) {
		require.Equal(t, "getSignatureStatuses", method)
		var cfg map[string]interface{}
		require.NoError(t, json.Unmarshal(params[1], &cfg))
		require.Equal(t, true, cfg["searchTransactionHistory"])
		return map[string]interface{}{"value": []interface{}{nil}}, nil
	})
	defer srv.Close()

	c := NewClient(srv.URL)
	status, err := c.GetSignatureStatus(context.Background(), "5VERv8NMvzbJMEkV8xnrLkEaWRt")
	require.NoError(t, err)
	require.Nil(t, status)
}

func TestGetSignatureStatusFinalized(t *testing.T) {
	srv := rpcServer(t, func(string, []json.RawMessage) (interface{}, *RPCError) {
		return map[string]interface{}{"value": []interface{}{
			map[string]interface{}{"slot": 42, "confirmationStatus": "finalized", "err": nil},
		}}, nil
	})
	defer srv.Close()

	c := NewClient(srv.URL)
	status, err := c.GetSignatureStatus(context.Background(), "sig")
	require.NoError(t, err)
	require.NotNil(t, status)
	require.Equal(t, "finalized", status.ConfirmationStatus)
	require.Nil(t, status.Err)
}

func TestGetTransactionPruned(t *testing.T) {
	srv := rpcServer(t, func(string, []json.RawMessage) (interface{}, *RPCError) {
		return nil, nil
	})
	defer srv.Close()

	c := NewClient(srv.URL)
	tx, err := c.GetTransaction(context.Background(), "sig")
	require.NoError(t, err)
	require.Nil(t, tx)
}

func TestGetAccountInfoAbsent(t *testing.T) {
	srv := rpcServer(t, func(string, []json.RawMessage) (interface{}, *RPCError) {
		return map[string]interface{}{"value": nil}, nil
	})
	defer srv.Close()

	c := NewClient(srv.URL)
	info, err := c.GetAccountInfo(context.Background(), SystemProgramID)
	require.NoError(t, err)
	require.Nil(t, info)
}

func TestGetSignaturesForAddress(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (interface{}, *RPCError) {
		require.Equal(t, "getSignaturesForAddress", method)
		var cfg map[string]interface{}
		require.NoError(t, json.Unmarshal(params[1], &cfg))
		require.Equal(t, float64(25), cfg["limit"])
		return []map[string]interface{}{
			{"signature": "sigA", "slot": 10, "err": nil},
			{"signature": "sigB", "slot": 9, "err": map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
		}, nil
	})
	defer srv.Close()

	c := NewClient(srv.URL)
	sigs, err := c.GetSignaturesForAddress(context.Background(), SystemProgramID, 25)
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	require.Equal(t, "sigA", sigs[0].Signature)
	require.Nil(t, sigs[0].Err)
	require.NotNil(t, sigs[1].Err)
}
