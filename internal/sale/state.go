package sale

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3sale/internal/provider"
)

// State is the sale flow's position in its lifecycle.
type State int

const (
	Disconnected State = iota
	Connected
	Approving
	Buying
	Settled
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Approving:
		return "approving"
	case Buying:
		return "buying"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// Writing reports whether a transaction is in flight.
func (s State) Writing() bool { return s == Approving || s == Buying }

var stateNames = []string{
	Disconnected.String(), Connected.String(), Approving.String(), Buying.String(), Settled.String(),
}

// Outcome is the result recorded when the flow settles.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return ""
	}
}

// Status is a snapshot of the flow for the presentation layer.
type Status struct {
	State   State
	Account common.Address
	Chain   provider.ChainID
	Outcome Outcome
	Message string
	LastTx  common.Hash
}

// Connected reports whether an account is available for reads and writes.
func (s Status) Connected() bool { return s.State != Disconnected }

// ChangeKind names the wallet event behind a Change.
type ChangeKind int

const (
	AccountsChanged ChangeKind = iota
	ChainChanged
)

// Change is delivered to Watch subscribers after a wallet event was applied.
type Change struct {
	Kind   ChangeKind
	Status Status
}
