package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sonic-Vault/scout-api/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scout.db"), filepath.Join(dir, "scout.lock"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestProfileUpsertPreservesSurrogateID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertProfile(ctx, model.Profile{
		UserID: "user-1", Username: "alice", DisplayName: "Alice", WalletAddress: "0xabc",
	})
	require.NoError(t, err)

	id2, err := s.UpsertProfile(ctx, model.Profile{
		UserID: "user-1", Username: "alice2", DisplayName: "Alice", WalletAddress: "0xdef",
	})
	require.NoError(t, err)
	require.Equal(t, id, id2)

	got, found, err := s.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "alice2", got.Username)
	require.Equal(t, "0xdef", got.WalletAddress)
}

func TestGetProfileMissingIsNotAnError(t *testing.T) {
	s := openTestStore(t)
	_, found, err := s.GetProfile(context.Background(), "nobody")
	require.NoError(t, err)
	require.False(t, found)
}

func TestProfileKeysAreCaseSensitive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertProfile(ctx, model.Profile{UserID: "User-1", Username: "u", DisplayName: "U", WalletAddress: "w"})
	require.NoError(t, err)

	_, found, err := s.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestWalletCreateGetDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateWallet(ctx, model.Wallet{Address: "addr-1", Private: "secret"})
	require.NoError(t, err)

	got, found, err := s.GetWallet(ctx, "addr-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "secret", got.Private)

	require.NoError(t, s.DeleteWallet(ctx, "addr-1"))
	_, found, err = s.GetWallet(ctx, "addr-1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestWalletAddressesAreUnique(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateWallet(ctx, model.Wallet{Address: "addr-1", Private: "a"})
	require.NoError(t, err)
	_, err = s.CreateWallet(ctx, model.Wallet{Address: "addr-1", Private: "b"})
	require.Error(t, err)
}

func TestCreateWalletProfileOrdersWalletFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateWalletProfile(ctx,
		model.Wallet{Address: "addr-9", Private: "secret"},
		model.Profile{UserID: "user-9", Username: "bob", DisplayName: "Bob", WalletAddress: "addr-9"},
	)
	require.NoError(t, err)

	p, found, err := s.GetProfile(ctx, "user-9")
	require.NoError(t, err)
	require.True(t, found)

	_, walletFound, err := s.GetWallet(ctx, p.WalletAddress)
	require.NoError(t, err)
	require.True(t, walletFound)
}

func TestCreateWalletProfileRejectsMismatch(t *testing.T) {
	s := openTestStore(t)
	_, err := s.CreateWalletProfile(context.Background(),
		model.Wallet{Address: "addr-1", Private: "secret"},
		model.Profile{UserID: "user-1", WalletAddress: "addr-2"},
	)
	require.Error(t, err)
}

func TestListProfiles(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, uid := range []string{"a", "b", "c"} {
		_, err := s.UpsertProfile(ctx, model.Profile{UserID: uid, Username: uid, DisplayName: uid, WalletAddress: uid})
		require.NoError(t, err)
	}
	profiles, err := s.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 3)
}
