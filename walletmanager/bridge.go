package walletmanager

import (
	"sync"

	"github.com/arcsign/walletkit/listener"
	"github.com/arcsign/walletkit/model"
)

// networkBridge adapts model.NetworkListener's height/verified-hash hooks
// onto the host listener.Listener's unified NetworkEvent shape.
type networkBridge struct {
	listener listener.Listener
}

func (b networkBridge) OnNetworkHeightChanged(network *model.Network, height uint64) {
	if b.listener == nil {
		return
	}
	b.listener.OnNetworkEvent(listener.NetworkEvent{Network: network, Height: &height})
}

func (b networkBridge) OnNetworkVerifiedHashChanged(network *model.Network, hash string) {
	if b.listener == nil {
		return
	}
	b.listener.OnNetworkEvent(listener.NetworkEvent{Network: network, VerifiedHash: &hash})
}

// walletBridge adapts a Wallet's listener hooks onto the host
// listener.Listener, translating wallet-level notifications into spec.md
// §5's wallet/transfer event shapes. Wallet's own hooks only carry a
// transfer's current state, so this bridge tracks each transfer's last
// observed state kind to synthesize the Previous/Current pair
// OnTransferEvent expects.
type walletBridge struct {
	listener listener.Listener

	mu        sync.Mutex
	lastState map[*model.Transfer]model.TransferStateKind
}

func newWalletBridge(l listener.Listener) *walletBridge {
	return &walletBridge{listener: l, lastState: make(map[*model.Transfer]model.TransferStateKind)}
}

func (b *walletBridge) OnWalletBalanceChanged(wallet *model.Wallet, balance model.Amount) {
	if b.listener == nil {
		return
	}
	b.listener.OnWalletEvent(listener.WalletEvent{Wallet: wallet, Balance: &balance})
}

func (b *walletBridge) OnWalletTransferAdded(wallet *model.Wallet, transfer *model.Transfer) {
	b.noteTransition(transfer)
	if b.listener == nil {
		return
	}
	b.listener.OnWalletEvent(listener.WalletEvent{Wallet: wallet, Added: transfer})
}

func (b *walletBridge) OnWalletTransferChanged(wallet *model.Wallet, transfer *model.Transfer) {
	b.noteTransition(transfer)
	if b.listener == nil {
		return
	}
	b.listener.OnWalletEvent(listener.WalletEvent{Wallet: wallet, Changed: transfer})
}

// noteTransition fires OnTransferEvent whenever a transfer's state kind has
// moved since the last notification this bridge saw for it.
func (b *walletBridge) noteTransition(transfer *model.Transfer) {
	b.mu.Lock()
	prev, known := b.lastState[transfer]
	current := transfer.State.Kind
	b.lastState[transfer] = current
	b.mu.Unlock()

	if known && prev == current {
		return
	}
	if b.listener == nil {
		return
	}
	b.listener.OnTransferEvent(listener.TransferEvent{Transfer: transfer, Previous: prev, Current: current})
}
