package config

import "time"

// Gas limits used as EstimateGas fallbacks when the node cannot simulate the tx.
// These are conservative upper bounds; actual gas used will be lower.
const (
	GasLimitETHTransfer  = uint64(21_000)  // native transfer
	GasLimitERC20Approve = uint64(60_000)  // ERC-20 approve
	GasLimitContractCall = uint64(200_000) // generic contract state-change call, including buyTokens
)

// Timeouts used by the cmd package.
const (
	RPCSelectTimeout = 10 * time.Second // endpoint benchmark / selection
	ReadTimeout      = 15 * time.Second // a single snapshot or balance read
	TxConfirmTimeout = 3 * time.Minute  // outer bound on a purchase or approval
	WalletPollEvery  = 4 * time.Second  // terminal wallet chain/session watcher
)
