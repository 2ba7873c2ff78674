package ethhandler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcsign/walletkit/account"
	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/model"
)

var testETH = model.Currency{UIDS: "ethereum-mainnet:eth", Name: "Ether", Code: "ETH", Type: model.CurrencyTypeNative}

func testNetwork(uids string) *model.Network {
	return model.NewNetwork(model.ChainFamilyEthereum, uids, true, testETH)
}

// TestFamilyIsEthereum covers the handler's chainhandler.Registry key.
func TestFamilyIsEthereum(t *testing.T) {
	require.Equal(t, model.ChainFamilyEthereum, New().Family())
}

// TestCreateManagerResolvesKnownNetwork covers spec.md op 3's per-family
// manager construction for a recognized Network.UIDS.
func TestCreateManagerResolvesKnownNetwork(t *testing.T) {
	h := New()
	handle, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("ethereum-mainnet")})
	require.NoError(t, err)
	require.Equal(t, model.ChainFamilyEthereum, handle.Family)
}

// TestCreateManagerRejectsUnknownNetwork covers the ERR_UNKNOWN_NETWORK
// non-retryable error path for a Network.UIDS this handler doesn't know.
func TestCreateManagerRejectsUnknownNetwork(t *testing.T) {
	h := New()
	_, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("ethereum-nonexistent")})
	require.Error(t, err)
	var hErr *chainhandler.HandlerError
	require.ErrorAs(t, err, &hErr)
	require.Equal(t, "ERR_UNKNOWN_NETWORK", hErr.Code)
	require.Equal(t, chainhandler.ClassNonRetryable, hErr.Class)
}

// TestManagerStateOfRejectsForeignHandle covers the ERR_BAD_HANDLE guard a
// ManagerHandle built by a different handler must trip.
func TestManagerStateOfRejectsForeignHandle(t *testing.T) {
	_, err := managerStateOf(&chainhandler.ManagerHandle{Impl: "not-a-managerState"})
	require.Error(t, err)
	var hErr *chainhandler.HandlerError
	require.ErrorAs(t, err, &hErr)
	require.Equal(t, "ERR_BAD_HANDLE", hErr.Code)
}

// TestDeriveAddressesIsDeterministicAndWellFormed covers op 2's address
// derivation contract: DeriveAddresses is a pure function of the public key,
// producing one 20-byte Ethereum-scheme address every time it's called with
// the same input. go-ethereum's Keccak256-based derivation has no
// pre-existing known test vector in this corpus, so this sticks to
// structural and determinism assertions rather than an exact expected byte
// sequence.
func TestDeriveAddressesIsDeterministicAndWellFormed(t *testing.T) {
	keySource, err := account.NewMnemonicKeySource("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", "")
	require.NoError(t, err)
	pub, err := keySource.DerivePublicKey("m/44'/60'/0'/0/0", account.CurveSecp256k1)
	require.NoError(t, err)

	addrs1, err := DeriveAddresses(pub)
	require.NoError(t, err)
	require.Len(t, addrs1, 1)
	require.Equal(t, model.ChainFamilyEthereum, addrs1[0].Family)
	require.Equal(t, model.SchemeEthereum, addrs1[0].Scheme)
	require.Len(t, addrs1[0].Bytes, 20)

	addrs2, err := DeriveAddresses(pub)
	require.NoError(t, err)
	require.True(t, addrs1[0].Equal(addrs2[0]))
}

// TestDeriveAddressesRejectsMalformedPublicKey covers DeriveAddresses'
// error path for a public key go-ethereum can't decompress.
func TestDeriveAddressesRejectsMalformedPublicKey(t *testing.T) {
	_, err := DeriveAddresses([]byte{0x01, 0x02, 0x03})
	require.Error(t, err)
}

// TestRecoverTransferFromTransferBundleRoundTripsSentTransfer covers op 13
// end to end: an indexer-reported transfer bundle whose source matches the
// account's own address resolves to an owned, Included transfer with the
// bundle's amount, fee, and hash carried over.
func TestRecoverTransferFromTransferBundleRoundTripsSentTransfer(t *testing.T) {
	h := New()
	handle, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("ethereum-mainnet")})
	require.NoError(t, err)

	owned := model.Address{Family: model.ChainFamilyEthereum, Scheme: model.SchemeEthereum, Bytes: make([]byte, 20)}
	owned.Bytes[19] = 0x01
	other := model.Address{Family: model.ChainFamilyEthereum, Scheme: model.SchemeEthereum, Bytes: make([]byte, 20)}
	other.Bytes[19] = 0x02
	handle.Account = &account.Account{Family: model.ChainFamilyEthereum, Addresses: []model.Address{owned}}

	wallet := model.NewWallet(testETH, model.NewBaseUnit(testETH, "wei", "wei"), model.NewBaseUnit(testETH, "wei", "wei"), handle.Account)

	bundle := model.TransferBundle{
		UIDS:              "0xabc",
		Hash:              "0xabc",
		Source:            owned.String(),
		Target:            other.String(),
		Amount:            "1000",
		Currency:          testETH.UIDS,
		Fee:               "21",
		BlockNumber:       100,
		TransferStateType: "included",
	}

	transfer, err := h.RecoverTransferFromTransferBundle(handle, wallet, bundle)
	require.NoError(t, err)
	require.Equal(t, model.DirectionSent, transfer.Direction)
	require.Equal(t, model.TransferStateIncluded, transfer.State.Kind)
	require.Equal(t, "0xabc", transfer.Hash)
	require.True(t, transfer.State.IncludedSuccess)
}

// TestRecoverTransferFromTransferBundleRejectsUnownedAddresses covers the
// ERR_UNOWNED_TRANSFER guard: a bundle touching neither of the account's
// addresses can't be attributed to this wallet.
func TestRecoverTransferFromTransferBundleRejectsUnownedAddresses(t *testing.T) {
	h := New()
	handle, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("ethereum-mainnet")})
	require.NoError(t, err)

	owned := model.Address{Family: model.ChainFamilyEthereum, Scheme: model.SchemeEthereum, Bytes: make([]byte, 20)}
	owned.Bytes[19] = 0x01
	a := model.Address{Family: model.ChainFamilyEthereum, Scheme: model.SchemeEthereum, Bytes: make([]byte, 20)}
	a.Bytes[19] = 0x02
	b := model.Address{Family: model.ChainFamilyEthereum, Scheme: model.SchemeEthereum, Bytes: make([]byte, 20)}
	b.Bytes[19] = 0x03
	handle.Account = &account.Account{Family: model.ChainFamilyEthereum, Addresses: []model.Address{owned}}

	wallet := model.NewWallet(testETH, model.NewBaseUnit(testETH, "wei", "wei"), model.NewBaseUnit(testETH, "wei", "wei"), handle.Account)

	bundle := model.TransferBundle{
		Source:            a.String(),
		Target:            b.String(),
		Amount:            "1000",
		Currency:          testETH.UIDS,
		Fee:               "21",
		TransferStateType: "created",
	}

	_, err = h.RecoverTransferFromTransferBundle(handle, wallet, bundle)
	require.Error(t, err)
	var hErr *chainhandler.HandlerError
	require.ErrorAs(t, err, &hErr)
	require.Equal(t, "ERR_UNOWNED_TRANSFER", hErr.Code)
}

// TestCreateWalletReplaysPreloadedTransfersAndRejectsTransactionBundles
// covers CreateWallet's bundle-shape contract: Ethereum is transfer-bundle
// only (spec.md's "ethereum wallets are recovered from transfer bundles,
// not transaction bundles").
func TestCreateWalletReplaysPreloadedTransfersAndRejectsTransactionBundles(t *testing.T) {
	h := New()
	handle, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("ethereum-mainnet")})
	require.NoError(t, err)

	owned := model.Address{Family: model.ChainFamilyEthereum, Scheme: model.SchemeEthereum, Bytes: make([]byte, 20)}
	owned.Bytes[19] = 0x01
	other := model.Address{Family: model.ChainFamilyEthereum, Scheme: model.SchemeEthereum, Bytes: make([]byte, 20)}
	other.Bytes[19] = 0x02
	handle.Account = &account.Account{Family: model.ChainFamilyEthereum, Addresses: []model.Address{owned}}

	bundle := model.TransferBundle{
		UIDS: "0xdef", Hash: "0xdef",
		Source: owned.String(), Target: other.String(),
		Amount: "500", Currency: testETH.UIDS, Fee: "10",
		TransferStateType: "created",
	}

	wallet, err := h.CreateWallet(handle, testETH, nil, []model.TransferBundle{bundle})
	require.NoError(t, err)
	require.Len(t, wallet.Transfers(), 1)

	_, err = h.CreateWallet(handle, testETH, []model.TransactionBundle{{Hash: "0x1"}}, nil)
	require.Error(t, err)
	var hErr *chainhandler.HandlerError
	require.ErrorAs(t, err, &hErr)
	require.Equal(t, "ERR_UNSUPPORTED_BUNDLE", hErr.Code)
}
