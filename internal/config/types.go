package config

// Config holds all w3sale configuration.
type Config struct {
	Network      string   `json:"network"`       // registry name, used for explorer links
	RPCURLs      []string `json:"rpc_urls"`      // http(s):// or ws(s)://
	RPCAlgorithm string   `json:"rpc_algorithm"` // "fastest" | "failover"

	SaleContract      string   `json:"sale_contract"`
	TokenContract     string   `json:"token_contract"`
	TokenDecimals     int      `json:"token_decimals"`
	TokenSymbol       string   `json:"token_symbol"`
	FallbackPrice     string   `json:"fallback_price"`     // native units per token
	FallbackAvailable string   `json:"fallback_available"` // whole tokens
	AllowedChains     []uint64 `json:"allowed_chains"`

	MinPurchase string `json:"min_purchase,omitempty"` // "" or "0" disables
	MaxPurchase string `json:"max_purchase,omitempty"`

	PollIntervalMS  int `json:"poll_interval_ms"`
	MaxAttempts     int `json:"max_attempts"`
	RefreshInterval int `json:"refresh_interval"` // seconds

	DefaultWallet string `json:"default_wallet"`
	LogLevel      string `json:"log_level"` // "debug" | "info" | "warn" | "error"

	// internal: config dir path used for Save()
	configDir string
}
