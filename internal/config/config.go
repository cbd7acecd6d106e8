package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

const (
	defaultNetwork           = "sepolia"
	defaultRPC               = "https://ethereum-sepolia-rpc.publicnode.com"
	defaultAlgorithm         = "fastest"
	defaultDecimals          = 18
	defaultSymbol            = "TOKEN"
	defaultFallbackPrice     = "0.001"
	defaultFallbackAvailable = "1000000"
	defaultMinPurchase       = "10"
	defaultMaxPurchase       = "10000"
	defaultPollIntervalMS    = 1000
	defaultMaxAttempts       = 180
	defaultRefreshInterval   = 30
	defaultLogLevel          = "info"

	configFile  = "config.json"
	walletsFile = "wallets.json"
	keysDir     = "keys"
)

// Environment variables that override file values.
const (
	EnvConfigDir     = "W3SALE_CONFIG_DIR"
	EnvRPCURL        = "W3SALE_RPC_URL" // comma separated
	EnvSaleContract  = "W3SALE_SALE_CONTRACT"
	EnvTokenContract = "W3SALE_TOKEN_CONTRACT"
	EnvWallet        = "W3SALE_WALLET"
	EnvLogLevel      = "W3SALE_LOG_LEVEL"
)

var (
	ErrMissingContract = errors.New("contract address not configured")
	ErrInvalidContract = errors.New("invalid contract address")
	ErrNoChains        = errors.New("no allowed chains configured")
	ErrNoRPC           = errors.New("no RPC URL configured")
)

// LoadDotEnv loads KEY=VALUE pairs from files (default ".env") into the
// process environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load reads config from dir (or creates defaults), then applies environment
// overrides. dir defaults to $W3SALE_CONFIG_DIR, then ~/.w3sale.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(EnvConfigDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".w3sale")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	data, err := os.ReadFile(filepath.Join(dir, configFile))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.configDir = dir
	cfg.applyEnv()
	cfg.fillZeroes()
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Validate reports the first problem that would stop the sale flow.
func (c *Config) Validate() error {
	if len(c.RPCURLs) == 0 {
		return ErrNoRPC
	}
	for _, f := range [...]struct{ name, addr string }{
		{"sale_contract", c.SaleContract},
		{"token_contract", c.TokenContract},
	} {
		name, addr := f.name, f.addr
		if addr == "" {
			return fmt.Errorf("%s: %w", name, ErrMissingContract)
		}
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%s %q: %w", name, addr, ErrInvalidContract)
		}
	}
	if len(c.AllowedChains) == 0 {
		return ErrNoChains
	}
	if c.TokenDecimals < 0 || c.TokenDecimals > 36 {
		return fmt.Errorf("token_decimals %d out of range", c.TokenDecimals)
	}
	return nil
}

// AddRPC adds an RPC URL.
func (c *Config) AddRPC(url string) error {
	if slices.Contains(c.RPCURLs, url) {
		return fmt.Errorf("RPC %s already configured", url)
	}
	c.RPCURLs = append(c.RPCURLs, url)
	return nil
}

// RemoveRPC removes an RPC URL.
func (c *Config) RemoveRPC(url string) error {
	idx := slices.Index(c.RPCURLs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found", url)
	}
	c.RPCURLs = slices.Delete(c.RPCURLs, idx, idx+1)
	return nil
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is the wallet manager's JSON store.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// KeysDir holds the file keyring when no OS keychain is available.
func (c *Config) KeysDir() string {
	return filepath.Join(c.configDir, keysDir)
}

// PollInterval is the receipt poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Refresh is the dashboard's sale-state refresh period.
func (c *Config) Refresh() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Second
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		Network:           defaultNetwork,
		RPCURLs:           []string{defaultRPC},
		RPCAlgorithm:      defaultAlgorithm,
		TokenDecimals:     defaultDecimals,
		TokenSymbol:       defaultSymbol,
		FallbackPrice:     defaultFallbackPrice,
		FallbackAvailable: defaultFallbackAvailable,
		AllowedChains:     []uint64{11155111, 31337},
		MinPurchase:       defaultMinPurchase,
		MaxPurchase:       defaultMaxPurchase,
		PollIntervalMS:    defaultPollIntervalMS,
		MaxAttempts:       defaultMaxAttempts,
		RefreshInterval:   defaultRefreshInterval,
		LogLevel:          defaultLogLevel,
		configDir:         dir,
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRPCURL); v != "" {
		var urls []string
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		c.RPCURLs = urls
	}
	if v := os.Getenv(EnvSaleContract); v != "" {
		c.SaleContract = v
	}
	if v := os.Getenv(EnvTokenContract); v != "" {
		c.TokenContract = v
	}
	if v := os.Getenv(EnvWallet); v != "" {
		c.DefaultWallet = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// fillZeroes restores defaults for numeric fields a hand-edited file zeroed.
func (c *Config) fillZeroes() {
	if c.PollIntervalMS <= 0 {
		c.PollIntervalMS = defaultPollIntervalMS
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = defaultRefreshInterval
	}
	if c.TokenSymbol == "" {
		c.TokenSymbol = defaultSymbol
	}
	if c.RPCAlgorithm == "" {
		c.RPCAlgorithm = defaultAlgorithm
	}
}

// ParseChainIDs parses a comma separated list of decimal or 0x chain ids.
func ParseChainIDs(s string) ([]uint64, error) {
	var out []uint64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q: %w", part, err)
		}
		out = append(out, id)
	}
	return out, nil
}
