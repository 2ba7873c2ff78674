// Package listener defines the notification shapes a Wallet Manager's
// handler thread produces: wallet, transfer, manager, network, and system
// events (spec.md §5 "Ordering guarantees"). Listener is an external
// collaborator (spec.md §1's "Out of scope": "the listener/event-dispatch
// glue to host UIs") — this package specifies only the interface the core
// calls into, not a concrete UI dispatcher.
package listener

import "github.com/arcsign/walletkit/model"

// ManagerState is the coarse lifecycle state a ManagerEvent reports.
type ManagerState string

const (
	ManagerStateCreated     ManagerState = "created"
	ManagerStateConnected   ManagerState = "connected"
	ManagerStateDisconnected ManagerState = "disconnected"
	ManagerStateDeleted     ManagerState = "deleted"
	ManagerStateSyncing     ManagerState = "syncing"
)

// NetworkEvent reports a change to a Network's mutable state.
type NetworkEvent struct {
	Network *model.Network
	Height  *uint64 // non-nil when the height changed
	VerifiedHash *string // non-nil when the verified hash changed
}

// WalletEvent reports a change to a Wallet's balance or transfer list.
type WalletEvent struct {
	Wallet  *model.Wallet
	Balance *model.Amount
	Added   *model.Transfer
	Changed *model.Transfer
}

// TransferEvent reports a transfer's state-machine transition.
type TransferEvent struct {
	Transfer *model.Transfer
	Previous model.TransferStateKind
	Current  model.TransferStateKind
}

// ManagerEvent reports a manager lifecycle transition.
type ManagerEvent struct {
	State ManagerState
}

// SystemEventSeverity classifies a SystemEvent for host-side log routing.
type SystemEventSeverity string

const (
	SeverityInfo    SystemEventSeverity = "info"
	SeverityWarning SystemEventSeverity = "warning"
	SeverityError   SystemEventSeverity = "error"
)

// SystemEvent reports a condition that doesn't belong to one network,
// wallet, or transfer (e.g. sync-engine diagnostics).
type SystemEvent struct {
	Severity SystemEventSeverity
	Message  string
}

// Listener receives every notification a manager's handler thread
// produces, in the order produced (spec.md §5: "must be delivered in the
// order produced; the listener component may re-dispatch onto another
// thread but must preserve per-object ordering"). Implementations must
// not block the calling goroutine for long; if re-dispatching onto
// another thread, per-object order must still be preserved.
type Listener interface {
	OnNetworkEvent(event NetworkEvent)
	OnWalletEvent(event WalletEvent)
	OnTransferEvent(event TransferEvent)
	OnManagerEvent(event ManagerEvent)
	OnSystemEvent(event SystemEvent)
}
