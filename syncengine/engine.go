// Package syncengine implements the bounded-polling indexer sync loop of
// spec.md §4.2: a periodic timer tick that asks the indexer for the
// current block height and, on change, for transfer/transaction bundles
// covering the wallet's addresses since the last safe checkpoint, with
// monotone request-id (rid) filtering of stale replies and an
// address-discovery fixpoint loop.
package syncengine

import (
	"sort"
	"time"

	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/client"
	"github.com/arcsign/walletkit/listener"
	"github.com/arcsign/walletkit/model"
)

// syncState mirrors spec.md §4.2's `sync: { rid, beg_block, end_block,
// completed, success, unbounded }`.
type syncState struct {
	rid       uint64
	begBlock  uint64
	endBlock  uint64
	completed bool
	success   bool
	unbounded bool
}

// Config wires an Engine to its manager's network, chain handler, and
// host callbacks. AllWallets/WalletForCurrency/Addresses are supplied by
// the walletmanager, which alone owns the wallet list (spec.md §3
// ownership rule); syncengine never keeps its own copy.
type Config struct {
	Network       *model.Network
	Handler       chainhandler.ChainHandler
	HandlerHandle *chainhandler.ManagerHandle
	Client        client.Client
	Listener      listener.Listener

	// BlockOffset is a chain-specific constant, at least 100 blocks (spec.md
	// §4.2: "otherwise ≈ 3 days of blocks"), used as a conservative
	// look-back from the last successful sync boundary.
	BlockOffset uint64

	// UsesTransactionBundles selects GetTransactions/AnnounceTransactions
	// (UTXO-style chains) over GetTransfers/AnnounceTransfers
	// (account-style chains).
	UsesTransactionBundles bool

	// Addresses returns the combined address set of every wallet this
	// network's manager owns, recomputed on each call.
	Addresses func() []string

	// WalletForCurrency resolves the wallet a transfer bundle's currency
	// belongs to (account-style chains).
	WalletForCurrency func(currencyUIDS string) (*model.Wallet, bool)

	// PrimaryWallet resolves the one wallet a UTXO-style manager's
	// transaction bundles are recovered against.
	PrimaryWallet func() *model.Wallet
}

// Engine is one sync engine per walletmanager.Manager. Every method that
// mutates engine state is executed on a single dispatch goroutine via
// Post, so no separate lock is needed — this is the Go rendering of
// spec.md §5's reentrant manager lock: instead of recursive locking,
// anything that needs to run during dispatch is posted as a new closure
// and runs after the current one finishes, preserving per-manager
// ordering without recursion.
type Engine struct {
	cfg Config

	events chan func()
	done   chan struct{}

	connected bool
	requestID uint64
	sync      syncState
}

// NewEngine constructs an Engine in the disconnected state.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:    cfg,
		events: make(chan func(), 256),
		done:   make(chan struct{}),
		// completed/success start true so the first syncRequest is free to
		// run rather than thinking a sync is already in flight.
		sync: syncState{completed: true, success: true},
	}
}

// TickPeriod computes this engine's timer period from its network's
// confirmation period, per spec.md §4.2.
func (e *Engine) TickPeriod() time.Duration {
	return chainhandler.ConfirmationTimerPeriod(time.Duration(e.cfg.Network.ConfirmationPeriodMS) * time.Millisecond)
}

// Start launches the dispatch goroutine. Must be called once before any
// Post* method is used.
func (e *Engine) Start() {
	go e.loop()
}

// Stop terminates the dispatch goroutine after draining any events
// already posted.
func (e *Engine) Stop() {
	close(e.events)
}

func (e *Engine) loop() {
	for fn := range e.events {
		fn()
	}
	close(e.done)
}

// Post enqueues fn to run on the dispatch goroutine, after every
// previously posted closure and before any posted afterward. Exposed so
// the submit path can serialize its own callbacks through this engine's
// single thread, preserving spec.md §5's per-manager ordering guarantee
// across components.
func (e *Engine) Post(fn func()) {
	e.events <- fn
}

// Connect flips the engine to connected, so that each later PostTick issues
// a block-number request; the engine runs no timer of its own.
func (e *Engine) Connect() {
	e.Post(func() { e.connected = true })
}

// Disconnect is immediate (spec.md §4.2 "Cancellation"): it flips
// connected off; any in-flight reply whose rid no longer matches the
// current sync.rid is discarded when it arrives, since Announce* methods
// check the rid unconditionally.
func (e *Engine) Disconnect() {
	e.Post(func() { e.connected = false })
}

// Connected reports the engine's connectedness. Safe to call from any
// goroutine; posts itself through the loop to avoid a data race with the
// dispatch goroutine's own reads/writes of e.connected.
func (e *Engine) Connected() bool {
	result := make(chan bool, 1)
	e.Post(func() { result <- e.connected })
	return <-result
}

// PostTick enqueues one timer tick (spec.md §4.2 "Tick algorithm").
func (e *Engine) PostTick() {
	e.Post(e.tick)
}

func (e *Engine) tick() {
	if !e.connected {
		return
	}
	if err := e.cfg.Client.GetBlockNumber(client.CallbackState{}); err != nil {
		e.emitSystemEvent(listener.SeverityWarning, "get-block-number request failed: "+err.Error())
	}
}

// PostAnnounceBlockNumber enqueues the indexer's block-number reply.
func (e *Engine) PostAnnounceBlockNumber(height uint64) {
	e.Post(func() { e.announceBlockNumber(height) })
}

func (e *Engine) announceBlockNumber(height uint64) {
	e.cfg.Network.SetHeight(height)
	e.syncRequest(height)
}

// syncRequest implements spec.md §4.2's "Sync-request" algorithm.
func (e *Engine) syncRequest(currentHeight uint64) {
	if e.sync.success && e.sync.completed {
		begBlock := int64(e.sync.endBlock) - int64(e.cfg.BlockOffset)
		if begBlock < 0 {
			begBlock = 0
		}
		e.sync.begBlock = uint64(begBlock)
	}
	e.sync.endBlock = maxU64(e.sync.begBlock, currentHeight)

	if !e.sync.completed {
		return // last sync still running
	}
	if e.sync.begBlock == e.sync.endBlock {
		return
	}

	span := e.sync.endBlock - e.sync.begBlock
	if span > 2*e.cfg.BlockOffset {
		e.emitSystemEvent(listener.SeverityInfo, "sync-syncing")
	}

	e.requestID++
	e.sync.rid = e.requestID
	e.sync.completed = false
	e.sync.success = false

	addresses := e.cfg.Addresses()
	state := client.CallbackState{RequestID: e.sync.rid, Addresses: addresses}
	e.issueBundleRequest(state, e.sync.begBlock, e.sync.endBlock)
}

func (e *Engine) issueBundleRequest(state client.CallbackState, begBlock, endBlock uint64) {
	var err error
	if e.cfg.UsesTransactionBundles {
		err = e.cfg.Client.GetTransactions(state, state.Addresses, begBlock, endBlock)
	} else {
		err = e.cfg.Client.GetTransfers(state, state.Addresses, begBlock, endBlock)
	}
	if err != nil {
		e.emitSystemEvent(listener.SeverityWarning, "bundle request failed: "+err.Error())
	}
}

// PostAnnounceTransfers enqueues an account-style transfer-bundles reply.
func (e *Engine) PostAnnounceTransfers(state client.CallbackState, bundles []model.TransferBundle, success bool) {
	e.Post(func() { e.announceTransfers(state, bundles, success) })
}

func (e *Engine) announceTransfers(state client.CallbackState, bundles []model.TransferBundle, success bool) {
	if state.RequestID != e.sync.rid {
		return // stale reply, spec.md §4.2 step 1
	}
	if !success {
		e.sync.completed = true
		e.sync.success = false
		e.emitSystemEvent(listener.SeverityWarning, "sync-stopped(unknown)")
		return
	}

	sort.SliceStable(bundles, func(i, j int) bool {
		if bundles[i].BlockNumber != bundles[j].BlockNumber {
			return bundles[i].BlockNumber < bundles[j].BlockNumber
		}
		return bundles[i].Index < bundles[j].Index
	})

	seenAddresses := make(map[string]struct{}, len(state.Addresses))
	for _, a := range state.Addresses {
		seenAddresses[a] = struct{}{}
	}

	for _, bundle := range bundles {
		if err := e.cfg.Handler.SaveTransferBundle(e.cfg.HandlerHandle, bundle); err != nil {
			e.emitSystemEvent(listener.SeverityWarning, "persisting transfer bundle: "+err.Error())
			continue
		}
		wallet, ok := e.cfg.WalletForCurrency(bundle.Currency)
		if !ok {
			continue
		}
		transfer, err := e.cfg.Handler.RecoverTransferFromTransferBundle(e.cfg.HandlerHandle, wallet, bundle)
		if err != nil {
			e.emitSystemEvent(listener.SeverityWarning, "recovering transfer bundle: "+err.Error())
			continue
		}
		e.registerRecoveredTransfer(wallet, transfer)
	}

	e.finishBundleRound(state, seenAddresses)
}

// PostAnnounceTransactions enqueues a UTXO-style transaction-bundles reply.
func (e *Engine) PostAnnounceTransactions(state client.CallbackState, bundles []model.TransactionBundle, success bool) {
	e.Post(func() { e.announceTransactions(state, bundles, success) })
}

func (e *Engine) announceTransactions(state client.CallbackState, bundles []model.TransactionBundle, success bool) {
	if state.RequestID != e.sync.rid {
		return
	}
	if !success {
		e.sync.completed = true
		e.sync.success = false
		e.emitSystemEvent(listener.SeverityWarning, "sync-stopped(unknown)")
		return
	}

	sort.SliceStable(bundles, func(i, j int) bool {
		return bundles[i].BlockNumber < bundles[j].BlockNumber
	})

	seenAddresses := make(map[string]struct{}, len(state.Addresses))
	for _, a := range state.Addresses {
		seenAddresses[a] = struct{}{}
	}

	wallet := e.cfg.PrimaryWallet()
	for _, bundle := range bundles {
		if err := e.cfg.Handler.SaveTransactionBundle(e.cfg.HandlerHandle, bundle); err != nil {
			e.emitSystemEvent(listener.SeverityWarning, "persisting transaction bundle: "+err.Error())
			continue
		}
		if wallet == nil {
			continue
		}
		transfers, err := e.cfg.Handler.RecoverTransfersFromTransactionBundle(e.cfg.HandlerHandle, wallet, bundle)
		if err != nil {
			e.emitSystemEvent(listener.SeverityWarning, "recovering transaction bundle: "+err.Error())
			continue
		}
		for _, transfer := range transfers {
			e.registerRecoveredTransfer(wallet, transfer)
		}
	}

	e.finishBundleRound(state, seenAddresses)
}

// registerRecoveredTransfer adds a freshly recovered transfer to the wallet
// whose currency it moves, then — for a sent transfer whose fee is paid in a
// different currency — adds a weak appearance of just the fee leg to that fee
// currency's wallet (spec.md §3's native-wallet weak appearance), mirroring
// wkWalletManagerSubmitSigned's walletForFee split. Resolution failures are
// reported as system events rather than propagated, matching this method's
// callers (which continue the bundle loop either way).
func (e *Engine) registerRecoveredTransfer(wallet *model.Wallet, transfer *model.Transfer) {
	if err := wallet.AddOwnedTransfer(transfer); err != nil {
		e.emitSystemEvent(listener.SeverityWarning, "adding recovered transfer to wallet: "+err.Error())
		return
	}
	if transfer.Direction != model.DirectionSent {
		return
	}
	fee, err := transfer.Fee()
	if err != nil {
		e.emitSystemEvent(listener.SeverityWarning, "computing recovered transfer fee: "+err.Error())
		return
	}
	if fee.Currency.Equal(wallet.Currency) {
		return
	}
	feeWallet, ok := e.cfg.WalletForCurrency(fee.Currency.UIDS)
	if !ok || feeWallet == wallet {
		return
	}
	if err := feeWallet.AddWeakTransfer(transfer); err != nil {
		e.emitSystemEvent(listener.SeverityWarning, "adding weak fee appearance: "+err.Error())
	}
}

// finishBundleRound implements the address-discovery fixpoint (spec.md
// §4.2 step 3-4): if the wallet's address set strictly grew while
// processing this round's bundles, issue an additional-request for just
// the newly discovered addresses under the same rid; otherwise the sync
// completes.
func (e *Engine) finishBundleRound(state client.CallbackState, previouslySeen map[string]struct{}) {
	current := e.cfg.Addresses()
	var fresh []string
	for _, a := range current {
		if _, ok := previouslySeen[a]; !ok {
			fresh = append(fresh, a)
		}
	}
	if len(fresh) > 0 {
		nextState := client.CallbackState{RequestID: e.sync.rid, Addresses: fresh}
		e.issueBundleRequest(nextState, e.sync.begBlock, e.sync.endBlock)
		return
	}
	e.sync.completed = true
	e.sync.success = true
	e.emitSystemEvent(listener.SeverityInfo, "sync-continues 100%")
	e.emitSystemEvent(listener.SeverityInfo, "sync-stopped(complete)")
}

func (e *Engine) emitSystemEvent(severity listener.SystemEventSeverity, message string) {
	if e.cfg.Listener == nil {
		return
	}
	e.cfg.Listener.OnSystemEvent(listener.SystemEvent{Severity: severity, Message: message})
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
