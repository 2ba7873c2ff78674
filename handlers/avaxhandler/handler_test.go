package avaxhandler

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcsign/walletkit/account"
	"github.com/arcsign/walletkit/avaxtx"
	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/model"
)

var testAVAX = model.Currency{UIDS: "avalanche-mainnet:avax", Name: "Avalanche", Code: "AVAX", Type: model.CurrencyTypeNative}

func testNetwork(uids string) *model.Network {
	return model.NewNetwork(model.ChainFamilyAvalanche, uids, true, testAVAX)
}

// TestFamilyIsAvalanche covers the handler's chainhandler.Registry key.
func TestFamilyIsAvalanche(t *testing.T) {
	require.Equal(t, model.ChainFamilyAvalanche, New().Family())
}

// TestCreateManagerResolvesKnownNetwork covers spec.md op 3: CreateManager
// decodes the CB58-encoded blockchain id for a recognized network.
func TestCreateManagerResolvesKnownNetwork(t *testing.T) {
	h := New()
	handle, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("avalanche-mainnet")})
	require.NoError(t, err)
	require.Equal(t, model.ChainFamilyAvalanche, handle.Family)
}

// TestCreateManagerRejectsUnknownNetwork covers the ERR_UNKNOWN_NETWORK
// non-retryable error path.
func TestCreateManagerRejectsUnknownNetwork(t *testing.T) {
	h := New()
	_, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("avalanche-nonexistent")})
	require.Error(t, err)
	var hErr *chainhandler.HandlerError
	require.ErrorAs(t, err, &hErr)
	require.Equal(t, "ERR_UNKNOWN_NETWORK", hErr.Code)
	require.Equal(t, chainhandler.ClassNonRetryable, hErr.Class)
}

// TestCreateP2PManagerReturnsP2PManager covers spec.md op 5's
// api-with-p2p-send case: unlike ethhandler/tezoshandler, Avalanche wires a
// non-nil P2P manager handle.
func TestCreateP2PManagerReturnsP2PManager(t *testing.T) {
	h := New()
	handle, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("avalanche-mainnet")})
	require.NoError(t, err)

	p2p, err := h.CreateP2PManager(handle)
	require.NoError(t, err)
	require.NotNil(t, p2p)
}

// TestDeriveAddressesMatchesKnownVector pins DeriveAddresses to an exact
// expected value: RIPEMD160(SHA256(publicKey)), the same hashing
// account_test.go's own test vector exercises for a fixed paper key and
// derivation path, confirmed identical to primitives.ShortAddressHash.
func TestDeriveAddressesMatchesKnownVector(t *testing.T) {
	pub, err := hex.DecodeString("029dc79308883267bb49f3924e9eb58d60bcecd17ad3f2f53681ecc5c668b2ba5f")
	require.NoError(t, err)

	addrs, err := DeriveAddresses(pub)
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	require.Equal(t, model.ChainFamilyAvalanche, addrs[0].Family)
	require.Equal(t, model.SchemeAvalancheXChain, addrs[0].Scheme)
	require.Equal(t, "cc30e2015780a6c72efaef2280e3de4a954e770c", hex.EncodeToString(addrs[0].Bytes))
}

// TestDeriveAddressesNeverProducesCChain documents that this handler has no
// C-chain derivation path: every address it returns is X-chain scheme.
func TestDeriveAddressesNeverProducesCChain(t *testing.T) {
	pub, err := hex.DecodeString("029dc79308883267bb49f3924e9eb58d60bcecd17ad3f2f53681ecc5c668b2ba5f")
	require.NoError(t, err)

	addrs, err := DeriveAddresses(pub)
	require.NoError(t, err)
	for _, a := range addrs {
		require.NotEqual(t, model.SchemeAvalancheCChain, a.Scheme)
	}
}

// TestCreateWalletRejectsTransferBundlesAndReplaysTransactionBundles covers
// CreateWallet's bundle-shape contract: Avalanche is UTXO-style and resolves
// transfers from transaction bundles only.
func TestCreateWalletRejectsTransferBundlesAndReplaysTransactionBundles(t *testing.T) {
	h := New()
	handle, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("avalanche-mainnet")})
	require.NoError(t, err)

	owned := [20]byte{19: 0x01}
	other := [20]byte{19: 0x02}
	ownedAddr := modelAddress(model.ChainFamilyAvalanche, model.SchemeAvalancheXChain, owned)
	handle.Account = &account.Account{Family: model.ChainFamilyAvalanche, Addresses: []model.Address{ownedAddr}}

	txid := make([]byte, 32)
	txid[31] = 0x01
	tx := avaxTransaction(t, owned, other, 1000, 1)
	bundle := model.TransactionBundle{
		Hash:        hex.EncodeToString(txid),
		BlockNumber: 42,
		Status:      "confirmed",
		Raw:         tx,
	}

	wallet, err := h.CreateWallet(handle, testAVAX, []model.TransactionBundle{bundle}, nil)
	require.NoError(t, err)
	require.Len(t, wallet.Transfers(), 1)
	require.Equal(t, model.TransferStateIncluded, wallet.Transfers()[0].State.Kind)

	_, err = h.CreateWallet(handle, testAVAX, nil, []model.TransferBundle{{UIDS: "x"}})
	require.Error(t, err)
	var hErr *chainhandler.HandlerError
	require.ErrorAs(t, err, &hErr)
	require.Equal(t, "ERR_UNSUPPORTED_BUNDLE", hErr.Code)
}

// TestRecoverTransferFromTransferBundleAlwaysUnsupported covers the
// account-style recovery path Avalanche never implements, per
// spec.md op 13's per-chain bundle shape.
func TestRecoverTransferFromTransferBundleAlwaysUnsupported(t *testing.T) {
	h := New()
	handle, err := h.CreateManager(chainhandler.ManagerConfig{Network: testNetwork("avalanche-mainnet")})
	require.NoError(t, err)

	_, err = h.RecoverTransferFromTransferBundle(handle, nil, model.TransferBundle{})
	require.Error(t, err)
	var hErr *chainhandler.HandlerError
	require.ErrorAs(t, err, &hErr)
	require.Equal(t, "ERR_UNSUPPORTED_BUNDLE", hErr.Code)
}

// avaxTransaction json-encodes a minimal avaxtx.Transaction for use as a
// TransactionBundle.Raw payload in tests.
func avaxTransaction(t *testing.T, source, target [20]byte, amount, fee uint64) []byte {
	t.Helper()
	tx := avaxtx.Transaction{Source: source, Target: target, Amount: amount, FeeAmount: fee}
	data, err := json.Marshal(tx)
	require.NoError(t, err)
	return data
}
