package chain

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// ErrNetworkNotFound is returned when a network is not in the registry.
var ErrNetworkNotFound = errors.New("network not found")

// Network holds display metadata for one EVM network. Each testnet is its own
// entry because the sale's allow-list is expressed in chain IDs.
type Network struct {
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	ChainID        uint64 `json:"chain_id"`
	NativeCurrency string `json:"native_currency"`
	Explorer       string `json:"explorer"`
	Testnet        bool   `json:"testnet"`
}

// TxURL returns the explorer link for a transaction hash, or "" without an explorer.
func (n *Network) TxURL(hash string) string {
	if n.Explorer == "" {
		return ""
	}
	return n.Explorer + "/tx/" + hash
}

// Registry indexes the known networks by slug and chain ID.
type Registry struct {
	networks []Network
	byName   map[string]*Network
	byID     map[uint64]*Network
}

// NewRegistry returns the registry of known networks.
func NewRegistry() *Registry {
	nets := allNetworks()
	r := &Registry{
		networks: nets,
		byName:   make(map[string]*Network, len(nets)),
		byID:     make(map[uint64]*Network, len(nets)),
	}
	for i := range r.networks {
		n := &r.networks[i]
		r.byName[n.Name] = n
		r.byID[n.ChainID] = n
	}
	return r
}

// All returns every network ordered by chain ID.
func (r *Registry) All() []Network {
	out := make([]Network, len(r.networks))
	copy(out, r.networks)
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

// GetByName finds a network by slug (e.g. "sepolia").
func (r *Registry) GetByName(name string) (*Network, error) {
	n, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrNetworkNotFound
	}
	return n, nil
}

// GetByChainID finds a network by chain ID.
func (r *Registry) GetByChainID(id uint64) (*Network, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, ErrNetworkNotFound
	}
	return n, nil
}

// DisplayName returns a network's display name, falling back to "chain <id>".
func (r *Registry) DisplayName(id uint64) string {
	if n, err := r.GetByChainID(id); err == nil {
		return n.DisplayName
	}
	return "chain " + strconv.FormatUint(id, 10)
}

// --- network data ---

func allNetworks() []Network {
	return []Network{
		{Name: "ethereum", DisplayName: "Ethereum", ChainID: 1, NativeCurrency: "ETH", Explorer: "https://etherscan.io"},
		{Name: "sepolia", DisplayName: "Sepolia", ChainID: 11155111, NativeCurrency: "ETH", Explorer: "https://sepolia.etherscan.io", Testnet: true},
		{Name: "holesky", DisplayName: "Holesky", ChainID: 17000, NativeCurrency: "ETH", Explorer: "https://holesky.etherscan.io", Testnet: true},
		{Name: "base", DisplayName: "Base", ChainID: 8453, NativeCurrency: "ETH", Explorer: "https://basescan.org"},
		{Name: "base-sepolia", DisplayName: "Base Sepolia", ChainID: 84532, NativeCurrency: "ETH", Explorer: "https://sepolia.basescan.org", Testnet: true},
		{Name: "polygon", DisplayName: "Polygon", ChainID: 137, NativeCurrency: "POL", Explorer: "https://polygonscan.com"},
		{Name: "amoy", DisplayName: "Polygon Amoy", ChainID: 80002, NativeCurrency: "POL", Explorer: "https://amoy.polygonscan.com", Testnet: true},
		{Name: "arbitrum", DisplayName: "Arbitrum", ChainID: 42161, NativeCurrency: "ETH", Explorer: "https://arbiscan.io"},
		{Name: "optimism", DisplayName: "Optimism", ChainID: 10, NativeCurrency: "ETH", Explorer: "https://optimistic.etherscan.io"},
		{Name: "bnb", DisplayName: "BNB Chain", ChainID: 56, NativeCurrency: "BNB", Explorer: "https://bscscan.com"},
		{Name: "bnb-testnet", DisplayName: "BSC Testnet", ChainID: 97, NativeCurrency: "tBNB", Explorer: "https://testnet.bscscan.com", Testnet: true},
		{Name: "localhost", DisplayName: "Localhost", ChainID: 31337, NativeCurrency: "ETH", Testnet: true},
	}
}
