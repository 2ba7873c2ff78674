// Package avaxtx implements the UTXO transaction codec exemplar of
// spec.md §4.5 (Avalanche X-chain style): UTXO entities, input selection,
// canonical ordering, signed/unsigned serialization, and address
// encoding. Grounded on BRAvalancheTransaction.c/BRAvalancheSupport.c.
package avaxtx

import (
	"crypto/sha256"
	"sort"

	"github.com/arcsign/walletkit/primitives"
)

// UTXO is one unspent output addressable by owner addresses.
type UTXO struct {
	Identifier primitives.Hash // hash(txid ∥ index)
	TxID       primitives.Hash
	Index      uint32
	Asset      primitives.Hash
	Amount     uint64
	Addresses  [][20]byte
}

// NewUTXO builds a UTXO, deriving Identifier from txid and index per
// spec.md §4.5.
func NewUTXO(txid primitives.Hash, index uint32, asset primitives.Hash, amount uint64, addresses [][20]byte) UTXO {
	seed := make([]byte, len(txid)+4)
	copy(seed, txid)
	putUint32BE(seed[len(txid):], index)
	sum := sha256.Sum256(seed)
	return UTXO{
		Identifier: primitives.Hash(sum[:]),
		TxID:       txid,
		Index:      index,
		Asset:      asset,
		Amount:     amount,
		Addresses:  addresses,
	}
}

// HasAddress reports whether addr is one of the UTXO's owner addresses,
// returning its index within Addresses.
func (u UTXO) HasAddress(addr [20]byte) (int, bool) {
	for i, a := range u.Addresses {
		if a == addr {
			return i, true
		}
	}
	return 0, false
}

// SortOrder selects the UTXO-search ordering of spec.md §4.5 step 2.
type SortOrder int

const (
	SortByAmountAscending SortOrder = iota
	SortByAmountDescending
	SortNone
)

// SelectUTXOs implements spec.md §4.5's input-selection algorithm: filter
// by source address and asset, optionally sort, accumulate until the
// running sum meets amountWithFee. Returns (nil, 0) if the candidate set
// is exhausted first.
func SelectUTXOs(utxos []UTXO, source [20]byte, asset primitives.Hash, amountWithFee uint64, order SortOrder) ([]UTXO, uint64) {
	candidates := make([]UTXO, 0, len(utxos))
	for _, u := range utxos {
		if !u.Asset.Equal(asset) {
			continue
		}
		if _, ok := u.HasAddress(source); !ok {
			continue
		}
		candidates = append(candidates, u)
	}

	switch order {
	case SortByAmountAscending:
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Amount < candidates[j].Amount })
	case SortByAmountDescending:
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Amount > candidates[j].Amount })
	}

	var selected []UTXO
	var total uint64
	for _, u := range candidates {
		selected = append(selected, u)
		total += u.Amount
		if total >= amountWithFee {
			return selected, total
		}
	}
	return nil, 0
}

func putUint32BE(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func putUint64BE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v >> (8 * uint(i)))
	}
}
