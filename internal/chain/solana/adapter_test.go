package solana

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sonic-Vault/scout-api/internal/chain"
	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
)

func TestAdapterBalanceRejectsMalformedAddress(t *testing.T) {
	a := NewAdapter(NewClient("http://127.0.0.1:0"))
	_, err := a.Balance(context.Background(), "0xdeadbeef")
	require.True(t, scouterr.IsKind(err, scouterr.KindInvalidInput))
}

func TestAdapterBalanceFormatsLamports(t *testing.T) {
	srv := rpcServer(t, func(string, []json.RawMessage) (interface{}, *RPCError) {
		return map[string]interface{}{"value": 1_500_000_000}, nil
	})
	defer srv.Close()

	a := NewAdapter(NewClient(srv.URL))
	got, err := a.Balance(context.Background(), SystemProgramID)
	require.NoError(t, err)
	require.Equal(t, "1500000000", got)
}

func TestAdapterTransferRejectsBadInputs(t *testing.T) {
	a := NewAdapter(NewClient("http://127.0.0.1:0"))

	_, err := a.Transfer(context.Background(), "secret", "bad-address", "1000")
	require.True(t, scouterr.IsKind(err, scouterr.KindInvalidInput))

	_, err = a.Transfer(context.Background(), "secret", SystemProgramID, "1.5")
	require.True(t, scouterr.IsKind(err, scouterr.KindInvalidInput))

	_, err = a.Transfer(context.Background(), "not-base58-!!", SystemProgramID, "1000")
	require.True(t, scouterr.IsKind(err, scouterr.KindFatal))
}

func TestMapSignatureStatus(t *testing.T) {
	require.Equal(t, chain.TxPending, MapSignatureStatus(nil))
	require.Equal(t, chain.TxFailed, MapSignatureStatus(&SignatureStatus{Err: map[string]interface{}{"InstructionError": 0}}))
	require.Equal(t, chain.TxSuccess, MapSignatureStatus(&SignatureStatus{ConfirmationStatus: "confirmed"}))
	require.Equal(t, chain.TxSuccess, MapSignatureStatus(&SignatureStatus{ConfirmationStatus: "finalized"}))
	require.Equal(t, chain.TxPending, MapSignatureStatus(&SignatureStatus{ConfirmationStatus: "processed"}))
}
