package sale

import (
	"context"
	"errors"

	"github.com/Mohsinsiddi/w3sale/internal/contract"
	"github.com/Mohsinsiddi/w3sale/internal/monitor"
	"github.com/Mohsinsiddi/w3sale/internal/provider"
	"github.com/Mohsinsiddi/w3sale/internal/units"
)

var (
	ErrUnsupportedNetwork = errors.New("unsupported network")
	ErrNotConnected       = errors.New("wallet not connected")
	ErrBusy               = errors.New("another transaction is in progress")
	ErrSettled            = errors.New("flow settled; reset before starting a new transaction")
	ErrTransactionFailed  = errors.New("transaction failed")
	ErrPurchaseLimit      = errors.New("amount outside purchase limits")
)

// Message returns the user-facing text for err. Cancellation yields "".
func Message(err error) string {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return ""
	case errors.Is(err, provider.ErrProviderUnavailable):
		return "No wallet provider found. Configure a wallet to continue."
	case errors.Is(err, provider.ErrConnectionRejected):
		return "Wallet connection was rejected."
	case errors.Is(err, ErrUnsupportedNetwork):
		return "Unsupported network. Please switch to a supported network."
	case errors.Is(err, provider.ErrSubmissionRejected):
		return "Transaction was rejected in the wallet."
	case errors.Is(err, provider.ErrSubmissionError):
		return "Transaction could not be submitted."
	case errors.Is(err, monitor.ErrReceiptTimeout):
		return "Timed out waiting for confirmation. The transaction may still be mined."
	case errors.Is(err, provider.ErrReceiptNoStatus):
		return "Transaction was mined but the node did not report its status. Check it in the explorer."
	case errors.Is(err, monitor.ErrReceiptPollError):
		return "Lost contact with the network while waiting for confirmation."
	case errors.Is(err, ErrTransactionFailed):
		return "Transaction failed on chain."
	case errors.Is(err, provider.ErrReadCallFailed):
		return "Could not read the contract state."
	case errors.Is(err, units.ErrInvalidAmount):
		return "Enter a valid amount greater than zero."
	case errors.Is(err, ErrPurchaseLimit):
		return "Amount is outside the purchase limits."
	case errors.Is(err, contract.ErrEncodingOverflow):
		return "Amount is too large."
	case errors.Is(err, ErrBusy):
		return "Another transaction is in progress."
	case errors.Is(err, ErrNotConnected):
		return "Connect your wallet first."
	case errors.Is(err, ErrSettled):
		return "The previous transaction has finished. Reset to start another."
	default:
		return err.Error()
	}
}
