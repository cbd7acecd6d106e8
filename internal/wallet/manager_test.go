package wallet_test

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3sale/internal/wallet"
)

const hardhatKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func newManager() *wallet.Manager {
	return wallet.NewManager(wallet.WithInMemoryStore(), wallet.WithKeystore(wallet.NewInMemoryKeystore()))
}

func TestAddWatchOnlyWallet(t *testing.T) {
	mgr := newManager()
	require.NoError(t, mgr.AddWatchOnly("watcher", "0x1234567890abcdef1234567890abcdef12345678"))

	w, err := mgr.Get("watcher")
	require.NoError(t, err)
	assert.Equal(t, wallet.TypeWatchOnly, w.Type)
	assert.False(t, w.CanSign())
	// Stored checksummed.
	assert.Equal(t, common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678").Hex(), w.Address)
}

func TestAddWatchOnlyInvalidAddress(t *testing.T) {
	err := newManager().AddWatchOnly("bad", "0x123")
	assert.ErrorIs(t, err, wallet.ErrInvalidAddress)
}

func TestAddSigningWallet(t *testing.T) {
	mgr := newManager()
	require.NoError(t, mgr.AddWithKey("signer", hardhatKey))

	w, err := mgr.Get("signer")
	require.NoError(t, err)
	assert.True(t, w.CanSign())
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", w.Address)
	assert.Equal(t, "w3sale.signer", w.KeyRef)

	key, err := mgr.Keystore().Retrieve(w.KeyRef)
	require.NoError(t, err)
	assert.Equal(t, hardhatKey[2:], key)
}

func TestAddSigningWalletInvalidKey(t *testing.T) {
	err := newManager().AddWithKey("bad", "0xnothex")
	assert.ErrorIs(t, err, wallet.ErrInvalidKey)
}

func TestAddSigningWalletWithoutKeystore(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	assert.ErrorIs(t, mgr.AddWithKey("k", hardhatKey), wallet.ErrNoKeystore)
}

func TestAddDuplicateWalletErrors(t *testing.T) {
	mgr := newManager()
	require.NoError(t, mgr.AddWithKey("dup", hardhatKey))
	assert.ErrorIs(t, mgr.AddWithKey("dup", hardhatKey), wallet.ErrWalletExists)
	assert.ErrorIs(t, mgr.AddWatchOnly("dup", "0x1234567890abcdef1234567890abcdef12345678"), wallet.ErrWalletExists)
}

func TestFirstWalletIsDefault(t *testing.T) {
	mgr := newManager()
	require.NoError(t, mgr.AddWithKey("first", hardhatKey))
	require.NoError(t, mgr.AddWatchOnly("second", "0x1234567890abcdef1234567890abcdef12345678"))

	def := mgr.Default()
	require.NotNil(t, def)
	assert.Equal(t, "first", def.Name)

	require.NoError(t, mgr.SetDefault("second"))
	assert.Equal(t, "second", mgr.Default().Name)
	assert.ErrorIs(t, mgr.SetDefault("nope"), wallet.ErrWalletNotFound)
}

func TestResolve(t *testing.T) {
	mgr := newManager()
	_, err := mgr.Resolve("")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)

	require.NoError(t, mgr.AddWithKey("main", hardhatKey))
	w, err := mgr.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "main", w.Name)

	_, err = mgr.Resolve("other")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}

func TestRemoveDeletesKey(t *testing.T) {
	mgr := newManager()
	require.NoError(t, mgr.AddWithKey("gone", hardhatKey))
	w, err := mgr.Get("gone")
	require.NoError(t, err)

	require.NoError(t, mgr.Remove("gone"))
	_, err = mgr.Get("gone")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
	_, err = mgr.Keystore().Retrieve(w.KeyRef)
	assert.Error(t, err)

	assert.ErrorIs(t, mgr.Remove("gone"), wallet.ErrWalletNotFound)
}

func TestListSortedByName(t *testing.T) {
	mgr := newManager()
	require.NoError(t, mgr.AddWatchOnly("zed", "0x1234567890abcdef1234567890abcdef12345678"))
	require.NoError(t, mgr.AddWatchOnly("amy", "0x1234567890abcdef1234567890abcdef12345679"))

	list, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "amy", list[0].Name)
	assert.Equal(t, "zed", list[1].Name)
}

func TestManagerPersistsToJSONStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	ks := wallet.NewInMemoryKeystore()

	mgr := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)), wallet.WithKeystore(ks))
	require.NoError(t, mgr.AddWithKey("persisted", hardhatKey))

	reloaded := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)), wallet.WithKeystore(ks))
	w, err := reloaded.Get("persisted")
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", w.Address)
	assert.True(t, w.IsDefault)
}
