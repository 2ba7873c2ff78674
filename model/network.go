package model

import "sync"

// SyncMode selects how a Network's chain data is kept current.
type SyncMode string

const (
	SyncModeAPIOnly SyncMode = "api-only"
	SyncModeP2PAndAPI SyncMode = "p2p-and-api"
)

// NetworkFee is one entry in a Network's ordered fee list: the expected
// confirmation time for paying this price, and the price itself expressed
// as an Amount per unit of cost factor (gas, vbyte, ...).
type NetworkFee struct {
	ConfirmationTimeMS uint64
	Price              Amount
	Unit               Unit
}

// CurrencyAssociation binds a Currency to a Network: its base unit, its
// default display unit, and the full list of units available for it.
type CurrencyAssociation struct {
	Currency    Currency
	BaseUnit    Unit
	DefaultUnit Unit
	Units       []Unit
}

// NetworkListener receives notifications when a Network's mutable state
// changes. Implementations must not block; long work should be handed off.
type NetworkListener interface {
	OnNetworkHeightChanged(network *Network, height uint64)
	OnNetworkVerifiedHashChanged(network *Network, hash string)
}

// Network describes one chain (mainnet or testnet) this module knows how to
// talk to: its identity and static parameters, plus the mutable height,
// verified block hash, current fee list, and currency-association set that
// the sync engine updates as new blocks arrive (spec.md §3). Those four
// fields are guarded by mu, matching the "Network's lock" in spec.md's
// concurrency model; Family/UIDS/... are set once at construction and never
// change afterward, so they can be read without locking.
type Network struct {
	Family ChainFamily
	UIDS   string
	IsMainnet bool

	ConfirmationPeriodMS   uint64
	ConfirmationsUntilFinal uint64
	DefaultAddressScheme   AddressScheme
	DefaultSyncMode        SyncMode
	NativeCurrency         Currency

	mu           sync.RWMutex
	height       uint64
	verifiedHash string
	fees         []NetworkFee
	associations map[string]CurrencyAssociation // keyed by Currency.UIDS

	listeners []NetworkListener
}

// NewNetwork constructs a Network with its immutable identity fields set
// and empty mutable state.
func NewNetwork(family ChainFamily, uids string, isMainnet bool, nativeCurrency Currency) *Network {
	return &Network{
		Family:         family,
		UIDS:           uids,
		IsMainnet:      isMainnet,
		NativeCurrency: nativeCurrency,
		associations:   make(map[string]CurrencyAssociation),
	}
}

// AddListener registers a listener for height/verified-hash change events.
// Not safe to call concurrently with itself; intended to be called once
// during wiring, before the network starts receiving updates.
func (n *Network) AddListener(l NetworkListener) {
	n.listeners = append(n.listeners, l)
}

// Height returns the last known chain height.
func (n *Network) Height() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.height
}

// SetHeight updates the chain height, firing a listener event only if the
// height actually changed (spec.md §5: "On block-number reply: set network
// height; if changed, fire height event").
func (n *Network) SetHeight(height uint64) {
	n.mu.Lock()
	changed := height != n.height
	if changed {
		n.height = height
	}
	n.mu.Unlock()
	if changed {
		for _, l := range n.listeners {
			l.OnNetworkHeightChanged(n, height)
		}
	}
}

// VerifiedHash returns the last block hash this network has verified.
func (n *Network) VerifiedHash() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.verifiedHash
}

// SetVerifiedHash updates the verified block hash, firing a listener event
// only if it changed.
func (n *Network) SetVerifiedHash(hash string) {
	n.mu.Lock()
	changed := hash != n.verifiedHash
	if changed {
		n.verifiedHash = hash
	}
	n.mu.Unlock()
	if changed {
		for _, l := range n.listeners {
			l.OnNetworkVerifiedHashChanged(n, hash)
		}
	}
}

// Fees returns a copy of the current fee list, ordered by confirmation
// time ascending (fastest/most-expensive first).
func (n *Network) Fees() []NetworkFee {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]NetworkFee, len(n.fees))
	copy(out, n.fees)
	return out
}

// SetFees replaces the current fee list. Callers are expected to have
// already sorted it by ascending confirmation time.
func (n *Network) SetFees(fees []NetworkFee) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fees = append([]NetworkFee(nil), fees...)
}

// Association looks up the currency association for a currency by UIDS.
func (n *Network) Association(currencyUIDS string) (CurrencyAssociation, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	a, ok := n.associations[currencyUIDS]
	return a, ok
}

// AddAssociation registers (or replaces) a currency association.
func (n *Network) AddAssociation(a CurrencyAssociation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.associations[a.Currency.UIDS] = a
}

// Associations returns a snapshot of every currency association known to
// this network, native currency included if it was registered.
func (n *Network) Associations() []CurrencyAssociation {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]CurrencyAssociation, 0, len(n.associations))
	for _, a := range n.associations {
		out = append(out, a)
	}
	return out
}
