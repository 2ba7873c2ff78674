// Package walletmanager implements spec.md §4.1/§4.3's top-level
// orchestrator: one Manager per account/network pair, owning the wallet
// list, the chain handler's opaque state, and a sync engine, and
// dispatching every operation through the chain-family vtable
// (chainhandler.Registry) spec.md §4.1 describes.
package walletmanager

import (
	"fmt"
	"sync"
	"time"

	"github.com/arcsign/walletkit/account"
	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/client"
	"github.com/arcsign/walletkit/fileservice"
	"github.com/arcsign/walletkit/listener"
	"github.com/arcsign/walletkit/model"
	"github.com/arcsign/walletkit/submit"
	"github.com/arcsign/walletkit/syncengine"
)

// transferBundleTypeName/transactionBundleTypeName match the literal type
// names every handlers/* package registers with its fileservice.Service
// (ethhandler/avaxhandler/tezoshandler's bundle.go); CreateWallet uses them
// to replay whatever either handler has already persisted before this
// process started.
const (
	transferBundleTypeName    = "transfer-bundle"
	transactionBundleTypeName = "transaction-bundle"
)

// utxoFamilies names the chain families whose transfers are recovered from
// transaction bundles rather than transfer bundles (spec.md §4.1 ops
// 12-13); avaxhandler is the only one this module implements.
var utxoFamilies = map[model.ChainFamily]bool{
	model.ChainFamilyAvalanche: true,
}

// defaultBlockOffset is the look-back window (spec.md §4.2: "at least 100
// blocks") used when Config.BlockOffset is left at zero.
const defaultBlockOffset = 100

// Config carries every construction-time parameter a Manager needs, in
// place of the original codebase's global handler registry and
// environment-sourced configuration (spec.md §9: "global mutable state →
// explicit context").
type Config struct {
	Registry      *chainhandler.Registry
	Account       *account.Account
	Network       *model.Network
	SyncMode      model.SyncMode
	AddressScheme model.AddressScheme
	Path          string

	Client   client.Client
	Listener listener.Listener

	// BlockOffset overrides the sync engine's look-back window; zero
	// selects defaultBlockOffset.
	BlockOffset uint64
}

// Manager is the per-account, per-network orchestrator spec.md §3 calls
// "Ownership": it holds the Network and Account references, the wallet
// list, the chain vtable lookup, and the sync engine, for exactly as long
// as it is itself reachable. WalletKitCore's manual Take/Give reference
// counting (WKWalletManagerRecord's `ref`) is superseded here by Go's
// garbage collector: Manager holds plain *model.Network/*account.Account
// pointers with no counter field, since the GC keeps them alive for
// exactly as long as the Manager is reachable.
type Manager struct {
	handler chainhandler.ChainHandler
	handle  *chainhandler.ManagerHandle

	account *account.Account
	network *model.Network

	client   client.Client
	listener listener.Listener

	basePath string

	mu      sync.RWMutex
	wallets map[string]*model.Wallet // keyed by Currency.UIDS
	primary *model.Wallet            // the network's native-currency wallet, once created

	engine *syncengine.Engine

	// p2pHandle is tracked only informationally: spec.md §4.1 op 5 is
	// optional and none of this module's handlers implement a real P2P
	// transport (avaxhandler's CreateP2PManager comment: "transaction
	// relay happens through the submit package's own transport, not
	// through the handler"). syncengine.Engine.Connect/Disconnect is the
	// manager's actual sync transport regardless of this handle's value.
	p2pHandle chainhandler.P2PManagerHandle
}

// New constructs a Manager for cfg.Account.Family, wiring its chain
// handler, sync engine, and listener bridges, and fires the created
// manager-lifecycle event.
func New(cfg Config) (*Manager, error) {
	handler, ok := cfg.Registry.Lookup(cfg.Account.Family)
	if !ok {
		return nil, fmt.Errorf("walletmanager: no handler registered for chain family %q", cfg.Account.Family)
	}

	handle, err := handler.CreateManager(chainhandler.ManagerConfig{
		Account:       cfg.Account,
		Network:       cfg.Network,
		SyncMode:      cfg.SyncMode,
		AddressScheme: cfg.AddressScheme,
		Path:          cfg.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("walletmanager: creating chain handler manager: %w", err)
	}

	p2pHandle, err := handler.CreateP2PManager(handle)
	if err != nil {
		return nil, fmt.Errorf("walletmanager: creating p2p manager: %w", err)
	}

	m := &Manager{
		handler:   handler,
		handle:    handle,
		account:   cfg.Account,
		network:   cfg.Network,
		client:    cfg.Client,
		listener:  cfg.Listener,
		basePath:  cfg.Path,
		wallets:   make(map[string]*model.Wallet),
		p2pHandle: p2pHandle,
	}

	blockOffset := cfg.BlockOffset
	if blockOffset == 0 {
		blockOffset = defaultBlockOffset
	}

	m.engine = syncengine.NewEngine(syncengine.Config{
		Network:                cfg.Network,
		Handler:                handler,
		HandlerHandle:          handle,
		Client:                 cfg.Client,
		Listener:               cfg.Listener,
		BlockOffset:            blockOffset,
		UsesTransactionBundles: utxoFamilies[handler.Family()],
		Addresses:              m.addressStrings,
		WalletForCurrency:      m.walletForCurrency,
		PrimaryWallet:          m.primaryWallet,
	})
	m.engine.Start()

	cfg.Network.AddListener(networkBridge{listener: cfg.Listener})
	m.emitManagerEvent(listener.ManagerStateCreated)

	return m, nil
}

func (m *Manager) addressStrings() []string {
	out := make([]string, len(m.account.Addresses))
	for i, a := range m.account.Addresses {
		out[i] = a.String()
	}
	return out
}

func (m *Manager) walletForCurrency(currencyUIDS string) (*model.Wallet, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.wallets[currencyUIDS]
	return w, ok
}

func (m *Manager) primaryWallet() *model.Wallet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.primary
}

// Account returns the manager's account.
func (m *Manager) Account() *account.Account { return m.account }

// Network returns the manager's network.
func (m *Manager) Network() *model.Network { return m.network }

// Wallets returns a snapshot of every wallet this manager has created.
func (m *Manager) Wallets() []*model.Wallet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		out = append(out, w)
	}
	return out
}

// CreateWallet builds (or returns the already-built) wallet for currency,
// replaying whatever bundles the file service has already persisted for it
// from a previous run (spec.md §4.1 op 6). The first wallet created for
// the network's native currency becomes this manager's primary wallet,
// used for UTXO-style recovery and as the fee wallet for cross-currency
// transfers.
func (m *Manager) CreateWallet(currency model.Currency) (*model.Wallet, error) {
	m.mu.RLock()
	if w, ok := m.wallets[currency.UIDS]; ok {
		m.mu.RUnlock()
		return w, nil
	}
	m.mu.RUnlock()

	fsHandle, err := m.handler.CreateFileService(m.handle, m.basePath, currency.UIDS, m.network.UIDS)
	if err != nil {
		return nil, fmt.Errorf("walletmanager: creating file service for currency %q: %w", currency.UIDS, err)
	}

	preloadedTransfers, preloadedTransactions := loadPreloadedBundles(fsHandle)

	wallet, err := m.handler.CreateWallet(m.handle, currency, preloadedTransactions, preloadedTransfers)
	if err != nil {
		return nil, fmt.Errorf("walletmanager: creating wallet for currency %q: %w", currency.UIDS, err)
	}
	wallet.AddListener(newWalletBridge(m.listener))

	m.mu.Lock()
	m.wallets[currency.UIDS] = wallet
	if currency.Equal(m.network.NativeCurrency) && m.primary == nil {
		m.primary = wallet
	}
	m.mu.Unlock()

	return wallet, nil
}

// loadPreloadedBundles reads back whatever transfer/transaction bundles a
// prior run persisted through fsHandle, so CreateWallet can hand them to
// the chain handler for replay. Handlers that only ever save one of the
// two bundle shapes simply never populate the other file-service type, so
// this is safe to call unconditionally.
func loadPreloadedBundles(fsHandle chainhandler.FileServiceHandle) ([]model.TransferBundle, []model.TransactionBundle) {
	svc, ok := fsHandle.(*fileservice.Service)
	if !ok {
		return nil, nil
	}
	var transfers []model.TransferBundle
	if entries, err := svc.LoadAll(transferBundleTypeName); err == nil {
		for _, e := range entries {
			if b, ok := e.(model.TransferBundle); ok {
				transfers = append(transfers, b)
			}
		}
	}
	var transactions []model.TransactionBundle
	if entries, err := svc.LoadAll(transactionBundleTypeName); err == nil {
		for _, e := range entries {
			if b, ok := e.(model.TransactionBundle); ok {
				transactions = append(transactions, b)
			}
		}
	}
	return transfers, transactions
}

// EstimateLimit dispatches spec.md §4.1 op 9.
func (m *Manager) EstimateLimit(wallet *model.Wallet, asMaximum bool, target model.Address, networkFee model.NetworkFee, unit model.Unit) (model.Amount, bool, bool, error) {
	return m.handler.EstimateLimit(m.handle, wallet, asMaximum, target, networkFee, unit)
}

// EstimateFeeBasis dispatches spec.md §4.1 op 10.
func (m *Manager) EstimateFeeBasis(wallet *model.Wallet, cookie string, target model.Address, amount model.Amount, networkFee model.NetworkFee, attributes []model.TransferAttribute) (*model.FeeBasis, bool, error) {
	return m.handler.EstimateFeeBasis(m.handle, wallet, cookie, target, amount, networkFee, attributes)
}

// CreateTransfer builds a Created-state transfer to target for amount,
// carrying basis as its estimated fee basis (from a prior EstimateFeeBasis
// call). It is not yet attached to any wallet — Submit does that, per
// spec.md §4.3 step 2.
func (m *Manager) CreateTransfer(target model.Address, amount model.Amount, basis model.FeeBasis, attributes []model.TransferAttribute) (*model.Transfer, error) {
	if len(m.account.Addresses) == 0 {
		return nil, fmt.Errorf("walletmanager: account has no addresses to send from")
	}
	transfer := model.NewTransfer(m.account.Addresses[0], target, amount, model.DirectionSent, basis)
	transfer.Attributes = append(transfer.Attributes, attributes...)
	return transfer, nil
}

// Sign implements spec.md §4.3 step 1 with a host-supplied paper key.
func (m *Manager) Sign(wallet *model.Wallet, transfer *model.Transfer, paperKey string) error {
	return submit.Sign(m.handler, m.handle, wallet, transfer, paperKey)
}

// SignWithKey implements spec.md op 8, signing with an externally-imported
// key instead of the manager's own derived account.
func (m *Manager) SignWithKey(wallet *model.Wallet, transfer *model.Transfer, key account.Keypair) error {
	return submit.SignWithKey(m.handler, m.handle, wallet, transfer, key)
}

// Submit implements spec.md §4.3 steps 2-3. It is dispatched through the
// sync engine's single dispatch goroutine so it serializes with sync
// callbacks, per spec.md §5's per-manager ordering guarantee.
func (m *Manager) Submit(wallet *model.Wallet, transfer *model.Transfer) error {
	feeWallet, err := m.feeWalletFor(wallet, transfer)
	if err != nil {
		return err
	}
	result := make(chan error, 1)
	m.engine.Post(func() {
		state := client.CallbackState{Addresses: m.addressStrings()}
		result <- submit.Submit(m.client, state, wallet, feeWallet, transfer)
	})
	return <-result
}

// HandleSubmitReply applies spec.md §4.3 step 4 once the host learns
// client.Client.SubmitTransaction's asynchronous outcome. It is posted
// through the sync engine's dispatch goroutine for the same ordering
// reason as Submit.
func (m *Manager) HandleSubmitReply(wallet *model.Wallet, transfer *model.Transfer, success bool, hashHex string) {
	feeWallet, err := m.feeWalletFor(wallet, transfer)
	if err != nil {
		m.emitSystemEvent(listener.SeverityWarning, "resolving fee wallet for submit reply: "+err.Error())
		feeWallet = nil
	}
	m.engine.Post(func() {
		if err := submit.HandleSubmitReply(wallet, feeWallet, transfer, success, hashHex); err != nil {
			m.emitSystemEvent(listener.SeverityWarning, "handling submit reply: "+err.Error())
		}
	})
}

// feeWalletFor resolves the native wallet a cross-currency-fee transfer
// needs a weak appearance in, or nil if the fee is paid in wallet's own
// currency or no such wallet has been created.
func (m *Manager) feeWalletFor(wallet *model.Wallet, transfer *model.Transfer) (*model.Wallet, error) {
	fee, err := transfer.Fee()
	if err != nil {
		return nil, fmt.Errorf("walletmanager: computing transfer fee: %w", err)
	}
	if fee.Currency.Equal(wallet.Currency) {
		return nil, nil
	}
	native, ok := m.walletForCurrency(fee.Currency.UIDS)
	if !ok {
		return nil, nil
	}
	return native, nil
}

// EventTypes dispatches spec.md §4.1 op 4.
func (m *Manager) EventTypes() []chainhandler.EventDescriptor {
	return m.handler.EventTypes()
}

// ValidateSweeperSupported dispatches spec.md §4.1 op 15.
func (m *Manager) ValidateSweeperSupported(importedKeyFamily model.ChainFamily) chainhandler.SweeperSupport {
	return m.handler.ValidateSweeperSupported(m.handle, importedKeyFamily)
}

// CreateSweeper dispatches spec.md §4.1 op 15.
func (m *Manager) CreateSweeper(wallet *model.Wallet, importedKey account.Keypair) (chainhandler.Sweeper, error) {
	return m.handler.CreateSweeper(m.handle, wallet, importedKey)
}

// Connect marks the sync engine connected, so the host's PostTick calls
// issue requests, and fires a connected manager-lifecycle event.
func (m *Manager) Connect() {
	m.engine.Connect()
	m.emitManagerEvent(listener.ManagerStateConnected)
}

// Disconnect stops the sync engine immediately (spec.md §4.2
// "Cancellation") and fires a disconnected manager-lifecycle event.
func (m *Manager) Disconnect() {
	m.engine.Disconnect()
	m.emitManagerEvent(listener.ManagerStateDisconnected)
}

// Connected reports whether the sync engine currently considers itself
// connected.
func (m *Manager) Connected() bool {
	return m.engine.Connected()
}

// TickPeriod returns the sync engine's timer period, for the host to drive
// PostTick on a schedule (spec.md §4.2).
func (m *Manager) TickPeriod() time.Duration {
	return m.engine.TickPeriod()
}

// Engine exposes the sync engine directly so the host can feed it timer
// ticks and indexer replies (PostTick, PostAnnounceBlockNumber,
// PostAnnounceTransfers, PostAnnounceTransactions).
func (m *Manager) Engine() *syncengine.Engine {
	return m.engine
}

// Release tears down the sync engine and the chain handler's per-manager
// state (spec.md §4.1 op 2). The Manager itself, along with its
// Network/Account references, is then reclaimed by the garbage collector
// once unreachable — there is no explicit refcount to decrement.
func (m *Manager) Release() error {
	m.engine.Stop()
	if err := m.handler.ReleaseManager(m.handle); err != nil {
		return fmt.Errorf("walletmanager: releasing chain handler manager: %w", err)
	}
	m.emitManagerEvent(listener.ManagerStateDeleted)
	return nil
}

func (m *Manager) emitManagerEvent(state listener.ManagerState) {
	if m.listener == nil {
		return
	}
	m.listener.OnManagerEvent(listener.ManagerEvent{State: state})
}

func (m *Manager) emitSystemEvent(severity listener.SystemEventSeverity, message string) {
	if m.listener == nil {
		return
	}
	m.listener.OnSystemEvent(listener.SystemEvent{Severity: severity, Message: message})
}
