package model

import (
	"testing"

	"github.com/arcsign/walletkit/primitives"
	"github.com/stretchr/testify/require"
)

var (
	testETH     = Currency{UIDS: "ethereum-mainnet:eth", Name: "Ether", Code: "ETH", Type: CurrencyTypeNative}
	testETHUnit = NewBaseUnit(testETH, "wei", "wei")

	testUSDC     = Currency{UIDS: "ethereum-mainnet:usdc", Name: "USD Coin", Code: "USDC", Type: CurrencyTypeToken, Issuer: "0xusdc"}
	testUSDCUnit = NewBaseUnit(testUSDC, "usdc-base", "usdc")
)

func mustAmount(t *testing.T, currency Currency, unit Unit, v int64) Amount {
	t.Helper()
	a, err := NewAmount(currency, unit, primitives.Int256FromInt64(v))
	require.NoError(t, err)
	return a
}

func includedTransfer(source, target Address, amount Amount, direction TransferDirection, basis FeeBasis) *Transfer {
	tr := NewTransfer(source, target, amount, direction, basis)
	tr.State = TransferState{Kind: TransferStateIncluded, IncludedSuccess: true}
	return tr
}

// TestWalletBalanceSameCurrencyFee covers spec.md §3's balance invariant for
// a sent transfer whose fee is paid in the same currency it moves: the
// wallet's balance is -(amount+fee).
func TestWalletBalanceSameCurrencyFee(t *testing.T) {
	wallet := NewWallet(testETH, testETHUnit, testETHUnit, nil)

	basis := NewGasFeeBasis(primitives.Int256FromInt64(21000), mustAmount(t, testETH, testETHUnit, 2))
	source := Address{Family: ChainFamilyEthereum, Scheme: SchemeEthereum, Bytes: make(primitives.Hash, 20)}
	target := Address{Family: ChainFamilyEthereum, Scheme: SchemeEthereum, Bytes: make(primitives.Hash, 20)}

	transfer := includedTransfer(source, target, mustAmount(t, testETH, testETHUnit, 100), DirectionSent, basis)
	require.NoError(t, wallet.AddOwnedTransfer(transfer))

	fee, err := transfer.Fee()
	require.NoError(t, err)
	require.Equal(t, int64(21000*2), fee.Value.BigInt().Int64())

	want := int64(-(100 + 21000*2))
	require.Equal(t, want, wallet.Balance().Value.BigInt().Int64())
}

// TestWalletBalanceCrossCurrencyFee covers spec.md §3's "native wallet
// receives a weak appearance" rule: a token transfer's own wallet loses
// only the transferred amount, while the native currency wallet it pays gas
// in loses only the fee, via AddWeakTransfer.
func TestWalletBalanceCrossCurrencyFee(t *testing.T) {
	tokenWallet := NewWallet(testUSDC, testUSDCUnit, testETHUnit, nil)
	nativeWallet := NewWallet(testETH, testETHUnit, testETHUnit, nil)

	basis := NewGasFeeBasis(primitives.Int256FromInt64(21000), mustAmount(t, testETH, testETHUnit, 3))
	source := Address{Family: ChainFamilyEthereum, Scheme: SchemeEthereum, Bytes: make(primitives.Hash, 20)}
	target := Address{Family: ChainFamilyEthereum, Scheme: SchemeEthereum, Bytes: make(primitives.Hash, 20)}

	transfer := includedTransfer(source, target, mustAmount(t, testUSDC, testUSDCUnit, 500), DirectionSent, basis)

	require.NoError(t, tokenWallet.AddOwnedTransfer(transfer))
	require.NoError(t, nativeWallet.AddWeakTransfer(transfer))

	require.Equal(t, int64(-500), tokenWallet.Balance().Value.BigInt().Int64())
	require.Equal(t, int64(-(21000*3)), nativeWallet.Balance().Value.BigInt().Int64())
}

// TestWalletBalanceReceivedTransfer covers the simple +amount case.
func TestWalletBalanceReceivedTransfer(t *testing.T) {
	wallet := NewWallet(testETH, testETHUnit, testETHUnit, nil)
	source := Address{Family: ChainFamilyEthereum, Scheme: SchemeEthereum, Bytes: make(primitives.Hash, 20)}
	target := Address{Family: ChainFamilyEthereum, Scheme: SchemeEthereum, Bytes: make(primitives.Hash, 20)}

	transfer := includedTransfer(source, target, mustAmount(t, testETH, testETHUnit, 250), DirectionReceived, FeeBasis{})
	require.NoError(t, wallet.AddOwnedTransfer(transfer))

	require.Equal(t, int64(250), wallet.Balance().Value.BigInt().Int64())
}

// TestWalletBalanceIgnoresUnresolvedAndErroredTransfers covers spec.md §3's
// "Balance equals the signed sum of every resolved transfer's effect":
// transfers still in flight, and transfers that errored out, contribute
// zero regardless of their amount or fee.
func TestWalletBalanceIgnoresUnresolvedAndErroredTransfers(t *testing.T) {
	wallet := NewWallet(testETH, testETHUnit, testETHUnit, nil)
	source := Address{Family: ChainFamilyEthereum, Scheme: SchemeEthereum, Bytes: make(primitives.Hash, 20)}
	target := Address{Family: ChainFamilyEthereum, Scheme: SchemeEthereum, Bytes: make(primitives.Hash, 20)}
	basis := NewGasFeeBasis(primitives.Int256FromInt64(21000), mustAmount(t, testETH, testETHUnit, 1))

	pending := NewTransfer(source, target, mustAmount(t, testETH, testETHUnit, 999), DirectionSent, basis)
	require.NoError(t, wallet.AddOwnedTransfer(pending))
	require.True(t, wallet.Balance().IsZero())

	require.NoError(t, pending.SetState(TransferState{Kind: TransferStateSigned}))
	require.NoError(t, wallet.NotifyTransferChanged(pending))
	require.True(t, wallet.Balance().IsZero())

	errored := NewTransfer(source, target, mustAmount(t, testETH, testETHUnit, 777), DirectionSent, basis)
	require.NoError(t, wallet.AddOwnedTransfer(errored))
	require.NoError(t, errored.SetState(TransferState{Kind: TransferStateErrored, ErrorKind: "submit-unknown"}))
	require.NoError(t, wallet.NotifyTransferChanged(errored))
	require.True(t, wallet.Balance().IsZero())
}

// TestWalletListenersNotifiedOnAddAndChange exercises AddListener's
// OnWalletTransferAdded/OnWalletBalanceChanged/OnWalletTransferChanged hooks.
func TestWalletListenersNotifiedOnAddAndChange(t *testing.T) {
	wallet := NewWallet(testETH, testETHUnit, testETHUnit, nil)
	rec := &recordingListener{}
	wallet.AddListener(rec)

	source := Address{Family: ChainFamilyEthereum, Scheme: SchemeEthereum, Bytes: make(primitives.Hash, 20)}
	target := Address{Family: ChainFamilyEthereum, Scheme: SchemeEthereum, Bytes: make(primitives.Hash, 20)}
	transfer := includedTransfer(source, target, mustAmount(t, testETH, testETHUnit, 10), DirectionReceived, FeeBasis{})

	require.NoError(t, wallet.AddOwnedTransfer(transfer))
	require.Equal(t, 1, rec.added)
	require.Equal(t, 1, rec.balanceChanges)

	require.NoError(t, wallet.NotifyTransferChanged(transfer))
	require.Equal(t, 1, rec.changed)
	require.Equal(t, 2, rec.balanceChanges)
}

type recordingListener struct {
	added          int
	changed        int
	balanceChanges int
}

func (r *recordingListener) OnWalletBalanceChanged(wallet *Wallet, balance Amount) { r.balanceChanges++ }
func (r *recordingListener) OnWalletTransferAdded(wallet *Wallet, transfer *Transfer) { r.added++ }
func (r *recordingListener) OnWalletTransferChanged(wallet *Wallet, transfer *Transfer) { r.changed++ }
