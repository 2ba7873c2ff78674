package tezoshandler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcsign/walletkit/account"
	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/model"
)

var testXTZ = model.Currency{UIDS: "tezos-mainnet:xtz", Name: "Tezos", Code: "XTZ", Type: model.CurrencyTypeNative}

func testNetwork(uids string) *model.Network {
	return model.NewNetwork(model.ChainFamilyTezos, uids, true, testXTZ)
}

// TestFamilyIsTezos covers the handler's chainhandler.Registry key.
func TestFamilyIsTezos(t *testing.T) {
	require.Equal(t, model.ChainFamilyTezos, New().Family())
}

// TestCreateManagerResolvesKnownNetwork covers spec.md op 3 for Tezos, whose
// network table is a mainnet-bool rather than a numeric chain id since
// Tezos anchors operations to a branch hash instead.
func TestCreateManagerResolvesKnownNetwork(t *testing.T) {
	h := New()
	handle, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("tezos-ghostnet")})
	require.NoError(t, err)
	require.Equal(t, model.ChainFamilyTezos, handle.Family)
}

// TestCreateManagerRejectsUnknownNetwork covers the ERR_UNKNOWN_NETWORK
// non-retryable error path.
func TestCreateManagerRejectsUnknownNetwork(t *testing.T) {
	h := New()
	_, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("tezos-nonexistent")})
	require.Error(t, err)
	var hErr *chainhandler.HandlerError
	require.ErrorAs(t, err, &hErr)
	require.Equal(t, "ERR_UNKNOWN_NETWORK", hErr.Code)
	require.Equal(t, chainhandler.ClassNonRetryable, hErr.Class)
}

// TestCreateP2PManagerReturnsNone covers spec.md op 5's API-only case:
// Tezos has no embedded P2P client in this handler.
func TestCreateP2PManagerReturnsNone(t *testing.T) {
	h := New()
	handle, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("tezos-mainnet")})
	require.NoError(t, err)

	p2p, err := h.CreateP2PManager(handle)
	require.NoError(t, err)
	require.Nil(t, p2p)
}

// TestDeriveAddressesIsDeterministicAndWellFormed covers op 2's Blake2b-160
// derivation over a raw Ed25519 public key. There is no pre-existing known
// test vector for this hash in the corpus, so this sticks to structural
// and determinism assertions.
func TestDeriveAddressesIsDeterministicAndWellFormed(t *testing.T) {
	keySource, err := account.NewMnemonicKeySource("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", "")
	require.NoError(t, err)
	pub, err := keySource.DerivePublicKey("m/44'/1729'/0'/0'", account.CurveEd25519)
	require.NoError(t, err)

	addrs1, err := DeriveAddresses(pub)
	require.NoError(t, err)
	require.Len(t, addrs1, 1)
	require.Equal(t, model.ChainFamilyTezos, addrs1[0].Family)
	require.Equal(t, model.SchemeTezos, addrs1[0].Scheme)
	require.Len(t, addrs1[0].Bytes, 20)

	addrs2, err := DeriveAddresses(pub)
	require.NoError(t, err)
	require.True(t, addrs1[0].Equal(addrs2[0]))
}

// TestRecoverTransferFromTransferBundleHandlesBurnLeg covers the
// empty-Target case: a synthetic burn leg with no counterparty address is
// recorded against the zero address rather than dropped, since it still
// affects wallet balance.
func TestRecoverTransferFromTransferBundleHandlesBurnLeg(t *testing.T) {
	h := New()
	handle, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("tezos-mainnet")})
	require.NoError(t, err)

	owned := model.Address{Family: model.ChainFamilyTezos, Scheme: model.SchemeTezos, Bytes: make([]byte, 20)}
	owned.Bytes[19] = 0x01
	handle.Account = &account.Account{Family: model.ChainFamilyTezos, Addresses: []model.Address{owned}}

	wallet := model.NewWallet(testXTZ, model.NewBaseUnit(testXTZ, "mutez", "mutez"), model.NewBaseUnit(testXTZ, "mutez", "mutez"), handle.Account)

	bundle := model.TransferBundle{
		UIDS:              "op1",
		Hash:              "op1",
		Source:            owned.String(),
		Target:            "",
		Amount:            "100",
		Currency:          testXTZ.UIDS,
		Fee:               "5",
		TransferStateType: "created",
	}

	transfer, err := h.RecoverTransferFromTransferBundle(handle, wallet, bundle)
	require.NoError(t, err)
	require.Equal(t, model.DirectionSent, transfer.Direction)
	require.Equal(t, make([]byte, 20), []byte(transfer.Target.Bytes))
}

// TestRecoverTransferFromTransferBundleMarksRevealed covers the
// reveal-operation bookkeeping: an included bundle whose "kind" attribute
// is "reveal" flips this manager's revealed state, so a later
// EstimateFeeBasis stops padding in a reveal sub-operation.
func TestRecoverTransferFromTransferBundleMarksRevealed(t *testing.T) {
	h := New()
	handle, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("tezos-mainnet")})
	require.NoError(t, err)

	owned := model.Address{Family: model.ChainFamilyTezos, Scheme: model.SchemeTezos, Bytes: make([]byte, 20)}
	owned.Bytes[19] = 0x01
	handle.Account = &account.Account{Family: model.ChainFamilyTezos, Addresses: []model.Address{owned}}

	wallet := model.NewWallet(testXTZ, model.NewBaseUnit(testXTZ, "mutez", "mutez"), model.NewBaseUnit(testXTZ, "mutez", "mutez"), handle.Account)

	bundle := model.TransferBundle{
		UIDS:              "op-reveal",
		Hash:              "op-reveal",
		Source:            owned.String(),
		Target:            "",
		Amount:            "0",
		Currency:          testXTZ.UIDS,
		Fee:               "1",
		TransferStateType: "included",
		Attributes:        []model.BundleAttribute{{Key: "kind", Value: "reveal"}},
	}

	_, err = h.RecoverTransferFromTransferBundle(handle, wallet, bundle)
	require.NoError(t, err)

	state, err := managerStateOf(handle)
	require.NoError(t, err)
	require.True(t, state.revealed)
}

// TestCreateWalletRejectsTransactionBundles covers CreateWallet's
// bundle-shape contract: Tezos is account-based and resolves transfers
// from transfer bundles only.
func TestCreateWalletRejectsTransactionBundles(t *testing.T) {
	h := New()
	handle, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("tezos-mainnet")})
	require.NoError(t, err)
	handle.Account = &account.Account{Family: model.ChainFamilyTezos}

	_, err = h.CreateWallet(handle, testXTZ, []model.TransactionBundle{{Hash: "x"}}, nil)
	require.Error(t, err)
	var hErr *chainhandler.HandlerError
	require.ErrorAs(t, err, &hErr)
	require.Equal(t, "ERR_UNSUPPORTED_BUNDLE", hErr.Code)
}

// TestRecoverTransfersFromTransactionBundleAlwaysUnsupported covers the
// UTXO-style recovery path Tezos never implements, matching
// wkWalletManagerRecoverTransfersFromTransactionBundlesXTZ's assert(0).
func TestRecoverTransfersFromTransactionBundleAlwaysUnsupported(t *testing.T) {
	h := New()
	handle, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("tezos-mainnet")})
	require.NoError(t, err)

	_, err = h.RecoverTransfersFromTransactionBundle(handle, nil, model.TransactionBundle{})
	require.Error(t, err)
	var hErr *chainhandler.HandlerError
	require.ErrorAs(t, err, &hErr)
	require.Equal(t, "ERR_UNSUPPORTED_BUNDLE", hErr.Code)
}
