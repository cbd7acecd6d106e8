package provider_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3sale/internal/provider"
	"github.com/Mohsinsiddi/w3sale/internal/provider/providertest"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
	token = "0x3333333333333333333333333333333333333333"
)

var txHash = "0x" + strings.Repeat("ab", 32)

func TestUnavailableProvider(t *testing.T) {
	g := provider.New(nil)
	ctx := context.Background()

	assert.False(t, g.IsAvailable())

	_, err := g.RequestAccounts(ctx)
	assert.ErrorIs(t, err, provider.ErrProviderUnavailable)
	_, err = g.Accounts(ctx)
	assert.ErrorIs(t, err, provider.ErrProviderUnavailable)
	_, err = g.ChainID(ctx)
	assert.ErrorIs(t, err, provider.ErrProviderUnavailable)
	_, err = g.SendTransaction(ctx, provider.TxRequest{})
	assert.ErrorIs(t, err, provider.ErrProviderUnavailable)
	_, err = g.TransactionReceipt(ctx, common.Hash{})
	assert.ErrorIs(t, err, provider.ErrProviderUnavailable)

	// Read failures are always reported as read failures.
	_, err = g.ReadCall(ctx, common.HexToAddress(token), []byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, provider.ErrReadCallFailed)
	assert.ErrorIs(t, err, provider.ErrProviderUnavailable)

	unsub := g.OnAccountsChanged(func([]common.Address) {})
	unsub()
}

func TestRequestAccounts(t *testing.T) {
	f := providertest.New()
	f.Respond("eth_requestAccounts", []string{alice, bob})

	accounts, err := provider.New(f).RequestAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, common.HexToAddress(alice), accounts[0])
}

func TestRequestAccountsRejected(t *testing.T) {
	f := providertest.New()
	f.Fail("eth_requestAccounts", provider.UserRejected(""))

	_, err := provider.New(f).RequestAccounts(context.Background())
	assert.ErrorIs(t, err, provider.ErrConnectionRejected)
	assert.True(t, provider.IsUserRejection(err))
}

func TestRequestAccountsEmpty(t *testing.T) {
	f := providertest.New()
	f.Respond("eth_requestAccounts", []string{})

	_, err := provider.New(f).RequestAccounts(context.Background())
	assert.ErrorIs(t, err, provider.ErrConnectionRejected)
}

func TestAccountsNoPrompt(t *testing.T) {
	f := providertest.New()
	f.Respond("eth_accounts", []string{})

	accounts, err := provider.New(f).Accounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
	assert.Empty(t, f.Calls("eth_requestAccounts"))
}

func TestChainID(t *testing.T) {
	f := providertest.New()
	f.Respond("eth_chainId", "0xaa36a7")

	id, err := provider.New(f).ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, provider.ChainID(11155111), id)
}

func TestChainIDMalformed(t *testing.T) {
	f := providertest.New()
	f.Respond("eth_chainId", "sepolia")

	_, err := provider.New(f).ChainID(context.Background())
	assert.Error(t, err)
}

func TestReadCall(t *testing.T) {
	f := providertest.New()
	f.Respond("eth_call", "0x00000000000000000000000000000000000000000000000000000000000003e8")

	ret, err := provider.New(f).ReadCall(context.Background(), common.HexToAddress(token), []byte{0x31, 0x3c, 0xe5, 0x67})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), new(big.Int).SetBytes(ret).Int64())

	calls := f.Calls("eth_call")
	require.Len(t, calls, 1)
	args, err := calls[0].CallArgs()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(token), args.To)
	assert.Equal(t, []byte{0x31, 0x3c, 0xe5, 0x67}, []byte(args.Data))
	assert.Equal(t, "latest", calls[0].Params[1])
}

func TestReadCallFailure(t *testing.T) {
	f := providertest.New()
	f.Fail("eth_call", errors.New("execution reverted"))

	_, err := provider.New(f).ReadCall(context.Background(), common.HexToAddress(token), []byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, provider.ErrReadCallFailed)
	assert.Contains(t, err.Error(), "execution reverted")
}

func TestSendTransaction(t *testing.T) {
	f := providertest.New()
	f.Respond("eth_sendTransaction", txHash)

	h, err := provider.New(f).SendTransaction(context.Background(), provider.TxRequest{
		From:  common.HexToAddress(alice),
		To:    common.HexToAddress(token),
		Data:  []byte{0xde, 0xad, 0xbe, 0xef},
		Value: big.NewInt(50_000_000_000_000_000),
	})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(txHash), h)

	args, err := f.Calls("eth_sendTransaction")[0].CallArgs()
	require.NoError(t, err)
	require.NotNil(t, args.From)
	assert.Equal(t, common.HexToAddress(alice), *args.From)
	require.NotNil(t, args.Value)
	assert.Equal(t, "50000000000000000", args.Value.ToInt().String())
}

func TestSendTransactionZeroValueOmitted(t *testing.T) {
	f := providertest.New()
	f.Respond("eth_sendTransaction", txHash)

	_, err := provider.New(f).SendTransaction(context.Background(), provider.TxRequest{
		From: common.HexToAddress(alice),
		To:   common.HexToAddress(token),
		Data: []byte{1},
	})
	require.NoError(t, err)
	args, err := f.Calls("eth_sendTransaction")[0].CallArgs()
	require.NoError(t, err)
	assert.Nil(t, args.Value)
}

func TestSendTransactionRejected(t *testing.T) {
	f := providertest.New()
	f.Fail("eth_sendTransaction", provider.UserRejected(""))

	_, err := provider.New(f).SendTransaction(context.Background(), provider.TxRequest{})
	assert.ErrorIs(t, err, provider.ErrSubmissionRejected)
	assert.NotErrorIs(t, err, provider.ErrSubmissionError)
}

func TestSendTransactionError(t *testing.T) {
	f := providertest.New()
	f.Fail("eth_sendTransaction", &provider.Error{Code: -32000, Message: "insufficient funds"})

	_, err := provider.New(f).SendTransaction(context.Background(), provider.TxRequest{})
	assert.ErrorIs(t, err, provider.ErrSubmissionError)
	assert.NotErrorIs(t, err, provider.ErrSubmissionRejected)
}

func TestSendTransactionMalformedHash(t *testing.T) {
	f := providertest.New()
	f.Respond("eth_sendTransaction", "0x1234")

	_, err := provider.New(f).SendTransaction(context.Background(), provider.TxRequest{})
	assert.ErrorIs(t, err, provider.ErrSubmissionError)
}

func TestTransactionReceiptPending(t *testing.T) {
	f := providertest.New()
	f.Respond("eth_getTransactionReceipt", nil)

	r, err := provider.New(f).TransactionReceipt(context.Background(), common.HexToHash(txHash))
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestTransactionReceiptMined(t *testing.T) {
	f := providertest.New()
	f.Respond("eth_getTransactionReceipt", map[string]string{
		"transactionHash": txHash,
		"status":          "0x1",
		"blockNumber":     "0x10",
		"gasUsed":         "0x5208",
	})

	r, err := provider.New(f).TransactionReceipt(context.Background(), common.HexToHash(txHash))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.Succeeded())
	assert.Equal(t, uint64(16), r.BlockNumber)
	assert.Equal(t, uint64(21000), r.GasUsed)
	assert.Equal(t, txHash, f.Calls("eth_getTransactionReceipt")[0].Params[0])
}

func TestTransactionReceiptReverted(t *testing.T) {
	f := providertest.New()
	f.Respond("eth_getTransactionReceipt", map[string]string{"transactionHash": txHash, "status": "0x0"})

	r, err := provider.New(f).TransactionReceipt(context.Background(), common.HexToHash(txHash))
	require.NoError(t, err)
	assert.False(t, r.Succeeded())
}

func TestTransactionReceiptWithoutStatus(t *testing.T) {
	for name, status := range map[string]any{"missing": nil, "garbage": "0xzz"} {
		t.Run(name, func(t *testing.T) {
			receipt := map[string]any{"transactionHash": txHash, "blockNumber": "0x10"}
			if status != nil {
				receipt["status"] = status
			}
			f := providertest.New()
			f.Respond("eth_getTransactionReceipt", receipt)

			r, err := provider.New(f).TransactionReceipt(context.Background(), common.HexToHash(txHash))
			assert.ErrorIs(t, err, provider.ErrReceiptNoStatus)
			assert.Nil(t, r)
		})
	}
}

func TestEventSubscriptions(t *testing.T) {
	f := providertest.New()
	g := provider.New(f)

	var gotAccounts []common.Address
	var gotChain provider.ChainID
	unsubA := g.OnAccountsChanged(func(a []common.Address) { gotAccounts = a })
	unsubC := g.OnChainChanged(func(id provider.ChainID) { gotChain = id })

	f.Emit(provider.EventAccountsChanged, []string{bob})
	f.Emit(provider.EventChainChanged, "0x1")
	assert.Equal(t, []common.Address{common.HexToAddress(bob)}, gotAccounts)
	assert.Equal(t, provider.ChainID(1), gotChain)

	// Malformed payloads are dropped.
	f.Emit(provider.EventChainChanged, "mainnet")
	assert.Equal(t, provider.ChainID(1), gotChain)

	unsubA()
	unsubC()
	assert.Zero(t, f.Subscribers(provider.EventAccountsChanged))
	assert.Zero(t, f.Subscribers(provider.EventChainChanged))
}
