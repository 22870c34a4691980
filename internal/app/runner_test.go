package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sonic-Vault/scout-api/internal/model"
)

// mockSolanaRPC answers the node methods the AMM-backed engine touches
// during startup and balance reads.
func mockSolanaRPC(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result interface{}
		switch req.Method {
		case "getAccountInfo":
			result = map[string]interface{}{"value": nil}
		case "getBalance":
			result = map[string]interface{}{"value": 2_500_000_000}
		default:
			t.Fatalf("unexpected method %s", req.Method)
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID, "result": result,
		}))
	}))
}

func isolateState(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestVersionCommand(t *testing.T) {
	var out, errBuf bytes.Buffer
	code := NewRunnerWithWriters(&out, &errBuf).Run([]string{"version"})
	require.Equal(t, 0, code)
	require.Contains(t, out.String(), cliVersion)
}

func TestUnknownFlagIsInvalidInput(t *testing.T) {
	var out, errBuf bytes.Buffer
	code := NewRunnerWithWriters(&out, &errBuf).Run([]string{"balance", "--bogus"})
	require.Equal(t, 2, code)

	var body model.ErrorBody
	require.NoError(t, json.Unmarshal(errBuf.Bytes(), &body))
	require.Equal(t, "invalid_input", body.Kind)
}

func TestSchemaCommandDescribesSubtree(t *testing.T) {
	isolateState(t)
	var out, errBuf bytes.Buffer
	code := NewRunnerWithWriters(&out, &errBuf).Run([]string{"schema", "swap", "execute"})
	require.Equal(t, 0, code, "stderr: %s", errBuf.String())

	var tree struct {
		Path  string `json:"path"`
		Flags []struct {
			Name     string `json:"name"`
			Required bool   `json:"required"`
		} `json:"flags"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &tree))
	require.Equal(t, "scout swap execute", tree.Path)

	names := map[string]bool{}
	for _, f := range tree.Flags {
		names[f.Name] = f.Required
	}
	require.True(t, names["quote-id"])
	require.True(t, names["user"])
}

func TestCreateProfileThenBalance(t *testing.T) {
	isolateState(t)
	srv := mockSolanaRPC(t)
	defer srv.Close()

	var out, errBuf bytes.Buffer
	code := NewRunnerWithWriters(&out, &errBuf).Run([]string{
		"profile", "create",
		"--user", "u1", "--username", "alice", "--name", "Alice",
		"--backend", "amm", "--solana-rpc", srv.URL,
	})
	require.Equal(t, 0, code, "stderr: %s", errBuf.String())

	var profile model.Profile
	require.NoError(t, json.Unmarshal(out.Bytes(), &profile))
	require.Equal(t, "u1", profile.UserID)
	require.NotEmpty(t, profile.WalletAddress)

	out.Reset()
	code = NewRunnerWithWriters(&out, &errBuf).Run([]string{
		"balance", "--user", "u1",
		"--backend", "amm", "--solana-rpc", srv.URL,
	})
	require.Equal(t, 0, code, "stderr: %s", errBuf.String())

	var balance model.BalanceResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &balance))
	require.Equal(t, "2.5", balance.Balance)
}

func TestBalanceForUnknownUserIsZero(t *testing.T) {
	isolateState(t)
	srv := mockSolanaRPC(t)
	defer srv.Close()

	var out, errBuf bytes.Buffer
	code := NewRunnerWithWriters(&out, &errBuf).Run([]string{
		"balance", "--user", "nobody",
		"--backend", "amm", "--solana-rpc", srv.URL,
	})
	require.Equal(t, 0, code, "stderr: %s", errBuf.String())

	var balance model.BalanceResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &balance))
	require.Equal(t, "0", balance.Balance)
}

func TestProfileGetUnknownUserExitsNotFound(t *testing.T) {
	isolateState(t)
	srv := mockSolanaRPC(t)
	defer srv.Close()

	var out, errBuf bytes.Buffer
	code := NewRunnerWithWriters(&out, &errBuf).Run([]string{
		"profile", "get", "--user", "nobody",
		"--backend", "amm", "--solana-rpc", srv.URL,
	})
	require.Equal(t, 3, code)

	var body model.ErrorBody
	require.NoError(t, json.Unmarshal(errBuf.Bytes(), &body))
	require.Equal(t, "not_found", body.Kind)
}
