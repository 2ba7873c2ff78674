package model

import (
	"fmt"
	"sync"
)

// WalletListener receives notifications of balance and transfer changes.
// Implementations must not block.
type WalletListener interface {
	OnWalletBalanceChanged(wallet *Wallet, balance Amount)
	OnWalletTransferAdded(wallet *Wallet, transfer *Transfer)
	OnWalletTransferChanged(wallet *Wallet, transfer *Transfer)
}

// transferRef distinguishes a wallet's own transfers (it owns the release)
// from weak appearances of a transfer owned by another wallet (spec.md
// §3: "the native wallet receives a weak appearance; the currency wallet
// owns the release").
type transferRef struct {
	transfer *Transfer
	weak     bool
}

// Wallet is one currency's transfer list and balance for an account.
// Invariant (spec.md §3): Balance equals the signed sum of every resolved
// transfer's effect. The transfer list, balance, and default fee basis are
// guarded by mu, matching "Wallet's lock" in spec.md's concurrency model.
type Wallet struct {
	Currency Currency
	Unit     Unit
	FeeUnit  Unit

	BalanceMinimum *Amount
	BalanceMaximum *Amount

	AccountRef interface{} // opaque per-chain account reference

	mu             sync.RWMutex
	transfers      []transferRef
	balance        Amount
	defaultFeeBasis *FeeBasis
	listeners      []WalletListener
}

// NewWallet constructs an empty wallet with a zero balance in unit.
func NewWallet(currency Currency, unit, feeUnit Unit, accountRef interface{}) *Wallet {
	return &Wallet{
		Currency:   currency,
		Unit:       unit,
		FeeUnit:    feeUnit,
		AccountRef: accountRef,
		balance:    ZeroAmount(unit),
	}
}

// AddListener registers a listener. Intended to be called once during
// wiring, not concurrently with transfer/balance mutation.
func (w *Wallet) AddListener(l WalletListener) {
	w.listeners = append(w.listeners, l)
}

// Balance returns the wallet's current balance.
func (w *Wallet) Balance() Amount {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balance
}

// DefaultFeeBasis returns the wallet's default fee basis, if one has been set.
func (w *Wallet) DefaultFeeBasis() (FeeBasis, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.defaultFeeBasis == nil {
		return FeeBasis{}, false
	}
	return *w.defaultFeeBasis, true
}

// SetDefaultFeeBasis replaces the wallet's default fee basis.
func (w *Wallet) SetDefaultFeeBasis(basis FeeBasis) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := basis
	w.defaultFeeBasis = &b
}

// Transfers returns a snapshot of the wallet's owned and weakly-appearing
// transfers, in the order they were added.
func (w *Wallet) Transfers() []*Transfer {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*Transfer, len(w.transfers))
	for i, r := range w.transfers {
		out[i] = r.transfer
	}
	return out
}

// AddOwnedTransfer adds a transfer this wallet owns (the transferred
// currency matches w.Currency) and recomputes the balance.
func (w *Wallet) AddOwnedTransfer(t *Transfer) error {
	return w.addTransfer(t, false)
}

// AddWeakTransfer records a weak appearance of a transfer owned by another
// wallet (spec.md §3: a native wallet observing the fee side-effect of a
// transfer made against an issued-currency wallet). Only the fee leg of
// the transfer is ever attributed here; see Transfer.NetAmount.
func (w *Wallet) AddWeakTransfer(t *Transfer) error {
	return w.addTransfer(t, true)
}

func (w *Wallet) addTransfer(t *Transfer, weak bool) error {
	w.mu.Lock()
	w.transfers = append(w.transfers, transferRef{transfer: t, weak: weak})
	err := w.recomputeBalanceLocked()
	w.mu.Unlock()
	if err != nil {
		return err
	}
	for _, l := range w.listeners {
		l.OnWalletTransferAdded(w, t)
		l.OnWalletBalanceChanged(w, w.Balance())
	}
	return nil
}

// NotifyTransferChanged recomputes the balance after an owned or weakly
// referenced transfer's state has changed in place, and notifies listeners.
func (w *Wallet) NotifyTransferChanged(t *Transfer) error {
	w.mu.Lock()
	err := w.recomputeBalanceLocked()
	w.mu.Unlock()
	if err != nil {
		return err
	}
	for _, l := range w.listeners {
		l.OnWalletTransferChanged(w, t)
		l.OnWalletBalanceChanged(w, w.Balance())
	}
	return nil
}

// recomputeBalanceLocked sums every resolved transfer's net effect;
// callers must hold mu. A weak reference asks NetAmount for the fee leg
// only (spec.md §3: the native wallet's weak appearance of another
// wallet's transfer); an owned reference asks for the amount leg (which
// folds the fee in too when it happens to share the wallet's currency).
func (w *Wallet) recomputeBalanceLocked() error {
	total := ZeroAmount(w.Unit)
	for _, ref := range w.transfers {
		if !w.isResolved(ref.transfer) {
			continue
		}
		net, err := ref.transfer.NetAmount(ref.weak)
		if err != nil {
			return fmt.Errorf("model: wallet %s: %w", w.Currency.UIDS, err)
		}
		converted, err := net.ConvertTo(w.Unit)
		if err != nil {
			return fmt.Errorf("model: wallet %s: %w", w.Currency.UIDS, err)
		}
		sum, err := total.Add(converted)
		if err != nil {
			return fmt.Errorf("model: wallet %s: balance overflow: %w", w.Currency.UIDS, err)
		}
		total = sum
	}
	w.balance = total
	return nil
}

func (w *Wallet) isResolved(t *Transfer) bool {
	switch t.State.Kind {
	case TransferStateIncluded, TransferStateErrored:
		return true
	default:
		return false
	}
}
