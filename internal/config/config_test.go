package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mohsinsiddi/w3sale/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	saleAddr  = "0x2222222222222222222222222222222222222222"
	tokenAddr = "0x3333333333333333333333333333333333333333"
)

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvConfigDir, config.EnvRPCURL, config.EnvSaleContract,
		config.EnvTokenContract, config.EnvWallet, config.EnvLogLevel,
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "sepolia", cfg.Network)
	assert.Equal(t, "fastest", cfg.RPCAlgorithm)
	assert.Len(t, cfg.RPCURLs, 1)
	assert.Equal(t, 18, cfg.TokenDecimals)
	assert.Equal(t, "TOKEN", cfg.TokenSymbol)
	assert.Equal(t, "0.001", cfg.FallbackPrice)
	assert.Equal(t, "1000000", cfg.FallbackAvailable)
	assert.Equal(t, []uint64{11155111, 31337}, cfg.AllowedChains)
	assert.Equal(t, "10", cfg.MinPurchase)
	assert.Equal(t, "10000", cfg.MaxPurchase)
	assert.Equal(t, time.Second, cfg.PollInterval())
	assert.Equal(t, 180, cfg.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Refresh())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestSaveAndReloadConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.SaleContract = saleAddr
	cfg.TokenContract = tokenAddr
	cfg.DefaultWallet = "mywallet"
	cfg.RPCAlgorithm = "failover"
	cfg.AllowedChains = []uint64{1}
	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, saleAddr, reloaded.SaleContract)
	assert.Equal(t, tokenAddr, reloaded.TokenContract)
	assert.Equal(t, "mywallet", reloaded.DefaultWallet)
	assert.Equal(t, "failover", reloaded.RPCAlgorithm)
	assert.Equal(t, []uint64{1}, reloaded.AllowedChains)
}

func TestConfigFilePermissions(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	require.NoError(t, cfg.Save())

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadCorruptConfigErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{nope"), 0o600))
	_, err := config.Load(dir)
	assert.Error(t, err)
}

func TestZeroedFieldsFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	raw := `{"poll_interval_ms": 0, "max_attempts": -1, "refresh_interval": 0, "token_symbol": ""}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(raw), 0o600))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.PollIntervalMS)
	assert.Equal(t, 180, cfg.MaxAttempts)
	assert.Equal(t, 30, cfg.RefreshInterval)
	assert.Equal(t, "TOKEN", cfg.TokenSymbol)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv(config.EnvRPCURL, " https://a.example , wss://b.example ,")
	t.Setenv(config.EnvSaleContract, saleAddr)
	t.Setenv(config.EnvTokenContract, tokenAddr)
	t.Setenv(config.EnvWallet, "ci")
	t.Setenv(config.EnvLogLevel, "debug")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "wss://b.example"}, cfg.RPCURLs)
	assert.Equal(t, saleAddr, cfg.SaleContract)
	assert.Equal(t, tokenAddr, cfg.TokenContract)
	assert.Equal(t, "ci", cfg.DefaultWallet)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestConfigDirFromEnv(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "nested")
	t.Setenv(config.EnvConfigDir, dir)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir())
	assert.Equal(t, filepath.Join(dir, "wallets.json"), cfg.WalletsPath())
	assert.Equal(t, filepath.Join(dir, "keys"), cfg.KeysDir())
	assert.DirExists(t, dir)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("W3SALE_SALE_CONTRACT="+saleAddr+"\n"), 0o600))

	// An empty value counts as set for godotenv, so unset it first.
	require.NoError(t, os.Unsetenv(config.EnvSaleContract))
	t.Cleanup(func() { os.Unsetenv(config.EnvSaleContract) })

	require.NoError(t, config.LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, saleAddr, os.Getenv(config.EnvSaleContract))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, saleAddr, cfg.SaleContract)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	valid := func() *config.Config {
		cfg, err := config.Load(t.TempDir())
		require.NoError(t, err)
		cfg.SaleContract = saleAddr
		cfg.TokenContract = tokenAddr
		return cfg
	}

	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.SaleContract = ""
	assert.ErrorIs(t, cfg.Validate(), config.ErrMissingContract)

	cfg = valid()
	cfg.TokenContract = "0x123"
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidContract)

	cfg = valid()
	cfg.AllowedChains = nil
	assert.ErrorIs(t, cfg.Validate(), config.ErrNoChains)

	cfg = valid()
	cfg.RPCURLs = nil
	assert.ErrorIs(t, cfg.Validate(), config.ErrNoRPC)

	cfg = valid()
	cfg.TokenDecimals = 80
	assert.Error(t, cfg.Validate())
}

func TestAddRemoveRPC(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cfg.AddRPC("https://rpc2.example"))
	assert.Error(t, cfg.AddRPC("https://rpc2.example"))
	assert.Contains(t, cfg.RPCURLs, "https://rpc2.example")

	require.NoError(t, cfg.RemoveRPC("https://rpc2.example"))
	assert.NotContains(t, cfg.RPCURLs, "https://rpc2.example")
	assert.Error(t, cfg.RemoveRPC("https://nonexistent.rpc"))
}

func TestParseChainIDs(t *testing.T) {
	ids, err := config.ParseChainIDs("11155111, 0x7a69,,1")
	require.NoError(t, err)
	assert.Equal(t, []uint64{11155111, 31337, 1}, ids)

	_, err = config.ParseChainIDs("sepolia")
	assert.Error(t, err)
}
