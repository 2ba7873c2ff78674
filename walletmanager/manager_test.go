package walletmanager

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcsign/walletkit/account"
	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/client"
	"github.com/arcsign/walletkit/fileservice"
	"github.com/arcsign/walletkit/listener"
	"github.com/arcsign/walletkit/model"
	"github.com/arcsign/walletkit/primitives"
)

// fakeHandler is a configurable chainhandler.ChainHandler stub; every
// method this package's tests don't drive panics, so an unexpected call
// surfaces immediately instead of silently returning a zero value.
type fakeHandler struct {
	family model.ChainFamily

	createWalletFn func(currency model.Currency, transactions []model.TransactionBundle, transfers []model.TransferBundle) (*model.Wallet, error)

	mu              sync.Mutex
	releasedManager bool

	// fileService, when set, is returned by CreateFileService in place of a
	// fresh service with no registered types.
	fileService *fileservice.Service
}

func (f *fakeHandler) Family() model.ChainFamily { return f.family }
func (f *fakeHandler) CreateManager(cfg chainhandler.ManagerConfig) (*chainhandler.ManagerHandle, error) {
	return &chainhandler.ManagerHandle{Family: f.family, Account: cfg.Account, Network: cfg.Network}, nil
}
func (f *fakeHandler) ReleaseManager(handle *chainhandler.ManagerHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releasedManager = true
	return nil
}
func (f *fakeHandler) CreateFileService(handle *chainhandler.ManagerHandle, basePath, currencyName, networkName string) (chainhandler.FileServiceHandle, error) {
	if f.fileService != nil {
		return f.fileService, nil
	}
	return fileservice.New(basePath, currencyName, networkName), nil
}
func (f *fakeHandler) EventTypes() []chainhandler.EventDescriptor { return nil }
func (f *fakeHandler) CreateP2PManager(handle *chainhandler.ManagerHandle) (chainhandler.P2PManagerHandle, error) {
	return nil, nil
}
func (f *fakeHandler) CreateWallet(handle *chainhandler.ManagerHandle, currency model.Currency, preloadedTransactions []model.TransactionBundle, preloadedTransfers []model.TransferBundle) (*model.Wallet, error) {
	return f.createWalletFn(currency, preloadedTransactions, preloadedTransfers)
}
func (f *fakeHandler) SignTransactionWithSeed(handle *chainhandler.ManagerHandle, wallet *model.Wallet, transfer *model.Transfer, seed []byte) (bool, error) {
	panic("not used")
}
func (f *fakeHandler) SignTransactionWithKey(handle *chainhandler.ManagerHandle, wallet *model.Wallet, transfer *model.Transfer, key account.Keypair) (bool, error) {
	panic("not used")
}
func (f *fakeHandler) EstimateLimit(handle *chainhandler.ManagerHandle, wallet *model.Wallet, asMaximum bool, target model.Address, networkFee model.NetworkFee, unit model.Unit) (model.Amount, bool, bool, error) {
	panic("not used")
}
func (f *fakeHandler) EstimateFeeBasis(handle *chainhandler.ManagerHandle, wallet *model.Wallet, cookie string, target model.Address, amount model.Amount, networkFee model.NetworkFee, attributes []model.TransferAttribute) (*model.FeeBasis, bool, error) {
	panic("not used")
}
func (f *fakeHandler) SaveTransactionBundle(handle *chainhandler.ManagerHandle, bundle model.TransactionBundle) error {
	panic("not used")
}
func (f *fakeHandler) SaveTransferBundle(handle *chainhandler.ManagerHandle, bundle model.TransferBundle) error {
	panic("not used")
}
func (f *fakeHandler) RecoverTransfersFromTransactionBundle(handle *chainhandler.ManagerHandle, wallet *model.Wallet, bundle model.TransactionBundle) ([]*model.Transfer, error) {
	panic("not used")
}
func (f *fakeHandler) RecoverTransferFromTransferBundle(handle *chainhandler.ManagerHandle, wallet *model.Wallet, bundle model.TransferBundle) (*model.Transfer, error) {
	panic("not used")
}
func (f *fakeHandler) RecoverFeeBasisFromFeeEstimate(handle *chainhandler.ManagerHandle, transfer *model.Transfer, networkFee model.NetworkFee, costUnits map[string]uint64, attributes []model.TransferAttribute) (model.FeeBasis, error) {
	panic("not used")
}
func (f *fakeHandler) ValidateSweeperSupported(handle *chainhandler.ManagerHandle, importedKeyFamily model.ChainFamily) chainhandler.SweeperSupport {
	panic("not used")
}
func (f *fakeHandler) CreateSweeper(handle *chainhandler.ManagerHandle, wallet *model.Wallet, importedKey account.Keypair) (chainhandler.Sweeper, error) {
	panic("not used")
}

// fakeClient records SubmitTransaction calls; every other method is a no-op
// since these tests never drive the sync engine's tick path.
type fakeClient struct {
	mu        sync.Mutex
	submitted []string
}

func (c *fakeClient) GetBlockNumber(state client.CallbackState) error { return nil }
func (c *fakeClient) GetTransfers(state client.CallbackState, addresses []string, begBlock, endBlock uint64) error {
	return nil
}
func (c *fakeClient) GetTransactions(state client.CallbackState, addresses []string, begBlock, endBlock uint64) error {
	return nil
}
func (c *fakeClient) SubmitTransaction(state client.CallbackState, identifier string, serialization []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitted = append(c.submitted, identifier)
	return nil
}
func (c *fakeClient) EstimateTransactionFee(state client.CallbackState, serialization []byte, hashHex string) error {
	return nil
}

// recordingListener counts manager lifecycle events this package's tests
// care about.
type recordingListener struct {
	mu     sync.Mutex
	states []listener.ManagerState
}

func (l *recordingListener) OnNetworkEvent(listener.NetworkEvent) {}
func (l *recordingListener) OnWalletEvent(listener.WalletEvent)   {}
func (l *recordingListener) OnTransferEvent(listener.TransferEvent) {}
func (l *recordingListener) OnManagerEvent(event listener.ManagerEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, event.State)
}
func (l *recordingListener) OnSystemEvent(listener.SystemEvent) {}

var (
	testETH     = model.Currency{UIDS: "ethereum-mainnet:eth", Name: "Ether", Code: "ETH", Type: model.CurrencyTypeNative}
	testETHUnit = model.NewBaseUnit(testETH, "wei", "wei")

	testUSDC     = model.Currency{UIDS: "ethereum-mainnet:usdc", Name: "USD Coin", Code: "USDC", Type: model.CurrencyTypeToken, Issuer: "0xusdc"}
	testUSDCUnit = model.NewBaseUnit(testUSDC, "usdc-base", "usdc")
)

func testAccount(t *testing.T) *account.Account {
	t.Helper()
	return &account.Account{
		Family:    model.ChainFamilyEthereum,
		Path:      "m/44'/60'/0'/0/0",
		Keypair:   account.Keypair{Curve: account.CurveSecp256k1, PublicKey: []byte{1, 2, 3}},
		Addresses: []model.Address{{Family: model.ChainFamilyEthereum, Scheme: model.SchemeEthereum, Bytes: make(primitives.Hash, 20)}},
	}
}

func newTestManager(t *testing.T, handler *fakeHandler, l listener.Listener, c client.Client) *Manager {
	t.Helper()
	registry, err := chainhandler.NewRegistry(handler)
	require.NoError(t, err)

	network := model.NewNetwork(model.ChainFamilyEthereum, "ethereum-mainnet", true, testETH)
	m, err := New(Config{
		Registry:      registry,
		Account:       testAccount(t),
		Network:       network,
		SyncMode:      model.SyncModeAPIOnly,
		AddressScheme: model.SchemeEthereum,
		Path:          t.TempDir(),
		Client:        c,
		Listener:      l,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Release() })
	return m
}

// TestNewWiresHandlerAndEmitsCreatedEvent covers spec.md §4.1 op 1: New
// looks up the handler for the account's family, builds its manager handle,
// and fires a created manager-lifecycle event.
func TestNewWiresHandlerAndEmitsCreatedEvent(t *testing.T) {
	handler := &fakeHandler{family: model.ChainFamilyEthereum}
	l := &recordingListener{}
	m := newTestManager(t, handler, l, &fakeClient{})

	require.Equal(t, model.ChainFamilyEthereum, m.Account().Family)
	require.Equal(t, "ethereum-mainnet", m.Network().UIDS)
	require.Contains(t, l.states, listener.ManagerStateCreated)
}

// TestNewFailsForUnregisteredFamily covers the no-handler error path.
func TestNewFailsForUnregisteredFamily(t *testing.T) {
	handler := &fakeHandler{family: model.ChainFamilyTezos}
	registry, err := chainhandler.NewRegistry(handler)
	require.NoError(t, err)

	_, err = New(Config{
		Registry: registry,
		Account:  testAccount(t), // family Ethereum, no Tezos handler registered
		Network:  model.NewNetwork(model.ChainFamilyEthereum, "ethereum-mainnet", true, testETH),
		Path:     t.TempDir(),
	})
	require.Error(t, err)
}

// TestCreateWalletCachesByCurrency covers spec.md §4.1 op 6's idempotence:
// a second CreateWallet call for the same currency returns the already
// built wallet rather than invoking the handler again.
func TestCreateWalletCachesByCurrency(t *testing.T) {
	calls := 0
	handler := &fakeHandler{
		family: model.ChainFamilyEthereum,
		createWalletFn: func(currency model.Currency, transactions []model.TransactionBundle, transfers []model.TransferBundle) (*model.Wallet, error) {
			calls++
			return model.NewWallet(currency, testETHUnit, testETHUnit, nil), nil
		},
	}
	m := newTestManager(t, handler, &recordingListener{}, &fakeClient{})

	w1, err := m.CreateWallet(testETH)
	require.NoError(t, err)
	w2, err := m.CreateWallet(testETH)
	require.NoError(t, err)

	require.Same(t, w1, w2)
	require.Equal(t, 1, calls)
}

// TestCreateWalletReplaysPersistedBundles covers spec.md §4.1 op 6's
// replay-on-create behavior: bundles a prior run saved through the file
// service are handed back to the handler's CreateWallet call.
func TestCreateWalletReplaysPersistedBundles(t *testing.T) {
	handler := &fakeHandler{family: model.ChainFamilyEthereum}
	m := newTestManager(t, handler, &recordingListener{}, &fakeClient{})

	fsHandle, err := handler.CreateFileService(m.handle, m.basePath, testETH.UIDS, m.network.UIDS)
	require.NoError(t, err)
	svc := fsHandle.(*fileservice.Service)
	require.NoError(t, svc.RegisterType(fileservice.TypeRegistration{
		Name:           transferBundleTypeName,
		CurrentVersion: 1,
		Readers: map[uint32]fileservice.Reader{
			1: func(data []byte) (interface{}, error) {
				return model.TransferBundle{UIDS: "persisted-1", Currency: testETH.UIDS}, nil
			},
		},
		Encode:         func(entity interface{}) ([]byte, error) { return []byte("{}"), nil },
		IdentifierSeed: func(entity interface{}) []byte { return []byte("persisted-1") },
	}))
	require.NoError(t, svc.Save(transferBundleTypeName, model.TransferBundle{UIDS: "persisted-1", Currency: testETH.UIDS}))
	handler.fileService = svc

	var gotTransfers []model.TransferBundle
	handler.createWalletFn = func(currency model.Currency, transactions []model.TransactionBundle, transfers []model.TransferBundle) (*model.Wallet, error) {
		gotTransfers = transfers
		return model.NewWallet(currency, testETHUnit, testETHUnit, nil), nil
	}

	_, err = m.CreateWallet(testETH)
	require.NoError(t, err)
	require.Len(t, gotTransfers, 1)
	require.Equal(t, "persisted-1", gotTransfers[0].UIDS)
}

// TestFeeWalletForCrossCurrencyResolvesNativeWallet covers feeWalletFor:
// a transfer whose fee is paid in a currency different from its own
// wallet's resolves to the wallet already registered for that currency.
func TestFeeWalletForCrossCurrencyResolvesNativeWallet(t *testing.T) {
	handler := &fakeHandler{
		family: model.ChainFamilyEthereum,
		createWalletFn: func(currency model.Currency, transactions []model.TransactionBundle, transfers []model.TransferBundle) (*model.Wallet, error) {
			if currency.Equal(testETH) {
				return model.NewWallet(currency, testETHUnit, testETHUnit, nil), nil
			}
			return model.NewWallet(currency, testUSDCUnit, testETHUnit, nil), nil
		},
	}
	m := newTestManager(t, handler, &recordingListener{}, &fakeClient{})

	nativeWallet, err := m.CreateWallet(testETH)
	require.NoError(t, err)
	tokenWallet, err := m.CreateWallet(testUSDC)
	require.NoError(t, err)

	gasPrice, err := model.NewAmount(testETH, testETHUnit, primitives.Int256FromInt64(2))
	require.NoError(t, err)
	basis := model.NewGasFeeBasis(primitives.Int256FromInt64(21000), gasPrice)
	amount, err := model.NewAmount(testUSDC, testUSDCUnit, primitives.Int256FromInt64(500))
	require.NoError(t, err)
	addr := model.Address{Family: model.ChainFamilyEthereum, Scheme: model.SchemeEthereum, Bytes: make(primitives.Hash, 20)}
	transfer := model.NewTransfer(addr, addr, amount, model.DirectionSent, basis)

	feeWallet, err := m.feeWalletFor(tokenWallet, transfer)
	require.NoError(t, err)
	require.Same(t, nativeWallet, feeWallet)
}

// TestFeeWalletForSameCurrencyReturnsNil covers feeWalletFor's no-op case:
// a transfer whose fee currency matches its own wallet's needs no separate
// fee wallet.
func TestFeeWalletForSameCurrencyReturnsNil(t *testing.T) {
	handler := &fakeHandler{
		family: model.ChainFamilyEthereum,
		createWalletFn: func(currency model.Currency, transactions []model.TransactionBundle, transfers []model.TransferBundle) (*model.Wallet, error) {
			return model.NewWallet(currency, testETHUnit, testETHUnit, nil), nil
		},
	}
	m := newTestManager(t, handler, &recordingListener{}, &fakeClient{})
	wallet, err := m.CreateWallet(testETH)
	require.NoError(t, err)

	gasPrice, err := model.NewAmount(testETH, testETHUnit, primitives.Int256FromInt64(2))
	require.NoError(t, err)
	basis := model.NewGasFeeBasis(primitives.Int256FromInt64(21000), gasPrice)
	amount, err := model.NewAmount(testETH, testETHUnit, primitives.Int256FromInt64(100))
	require.NoError(t, err)
	addr := model.Address{Family: model.ChainFamilyEthereum, Scheme: model.SchemeEthereum, Bytes: make(primitives.Hash, 20)}
	transfer := model.NewTransfer(addr, addr, amount, model.DirectionSent, basis)

	feeWallet, err := m.feeWalletFor(wallet, transfer)
	require.NoError(t, err)
	require.Nil(t, feeWallet)
}

// TestSubmitDispatchesThroughClientAndAttachesWallets covers Manager.Submit
// end to end: it resolves the fee wallet, attaches the transfer to both
// wallets, and dispatches it to the client through the sync engine's
// dispatch goroutine.
func TestSubmitDispatchesThroughClientAndAttachesWallets(t *testing.T) {
	handler := &fakeHandler{
		family: model.ChainFamilyEthereum,
		createWalletFn: func(currency model.Currency, transactions []model.TransactionBundle, transfers []model.TransferBundle) (*model.Wallet, error) {
			if currency.Equal(testETH) {
				return model.NewWallet(currency, testETHUnit, testETHUnit, nil), nil
			}
			return model.NewWallet(currency, testUSDCUnit, testETHUnit, nil), nil
		},
	}
	c := &fakeClient{}
	m := newTestManager(t, handler, &recordingListener{}, c)

	nativeWallet, err := m.CreateWallet(testETH)
	require.NoError(t, err)
	tokenWallet, err := m.CreateWallet(testUSDC)
	require.NoError(t, err)

	gasPrice, err := model.NewAmount(testETH, testETHUnit, primitives.Int256FromInt64(2))
	require.NoError(t, err)
	basis := model.NewGasFeeBasis(primitives.Int256FromInt64(21000), gasPrice)
	amount, err := model.NewAmount(testUSDC, testUSDCUnit, primitives.Int256FromInt64(500))
	require.NoError(t, err)
	addr := model.Address{Family: model.ChainFamilyEthereum, Scheme: model.SchemeEthereum, Bytes: make(primitives.Hash, 20)}
	transfer := model.NewTransfer(addr, addr, amount, model.DirectionSent, basis)
	transfer.Hash = "0xabc"
	transfer.OriginatingData = []byte{0x01, 0x02}
	require.NoError(t, transfer.SetState(model.TransferState{Kind: model.TransferStateSigned}))

	require.NoError(t, m.Submit(tokenWallet, transfer))

	require.Contains(t, c.submitted, "0xabc")
	require.Contains(t, tokenWallet.Transfers(), transfer)
	require.Contains(t, nativeWallet.Transfers(), transfer)
}

// TestReleaseStopsEngineAndReleasesHandler covers spec.md §4.1 op 2.
func TestReleaseStopsEngineAndReleasesHandler(t *testing.T) {
	handler := &fakeHandler{family: model.ChainFamilyEthereum}
	l := &recordingListener{}
	registry, err := chainhandler.NewRegistry(handler)
	require.NoError(t, err)
	m, err := New(Config{
		Registry: registry,
		Account:  testAccount(t),
		Network:  model.NewNetwork(model.ChainFamilyEthereum, "ethereum-mainnet", true, testETH),
		Path:     t.TempDir(),
		Client:   &fakeClient{},
		Listener: l,
	})
	require.NoError(t, err)

	require.NoError(t, m.Release())
	require.True(t, handler.releasedManager)
	require.Contains(t, l.states, listener.ManagerStateDeleted)
}
