package avaxtx

import (
	"fmt"

	"github.com/arcsign/walletkit/primitives"
)

// TransactionInputKind distinguishes input payload shapes; only transfer
// inputs are implemented (spec.md §9: unimplemented Avalanche paths stay
// explicit not-yet-implemented errors rather than guessed).
type TransactionInputKind int

const (
	InputKindTransfer TransactionInputKind = iota
)

// TransactionInput spends one UTXO.
type TransactionInput struct {
	Kind           TransactionInputKind
	TxID           primitives.Hash
	Index          uint32
	Asset          primitives.Hash
	Amount         uint64
	AddressIndices []uint32
}

// TransactionOutputKind distinguishes output payload shapes.
type TransactionOutputKind int

const (
	OutputKindTransfer TransactionOutputKind = iota
)

// TransactionOutput pays out to one or more addresses under a threshold.
type TransactionOutput struct {
	Kind      TransactionOutputKind
	Asset     primitives.Hash
	Locktime  uint64
	Threshold uint32
	Amount    uint64
	Addresses [][20]byte
}

// Purpose distinguishes a base transfer transaction from a credential
// (signature) envelope, per BRAvalancheTransaction.c's
// AVALANCHE_TRANSATION_PURPOSE_* constants.
type Purpose uint32

const (
	PurposeBase       Purpose = 0
	PurposeCredential Purpose = 1
)

const memoMaxBytes = 256

// Transaction is one Avalanche X-chain-style transfer transaction.
type Transaction struct {
	Purpose      Purpose
	CodecVersion uint16
	NetworkID    uint32
	BlockchainID primitives.Hash
	Source       [20]byte
	Target       [20]byte
	Amount       uint64
	FeeAmount    uint64
	Memo         []byte
	Inputs       []TransactionInput
	Outputs      []TransactionOutput
}

// BuildParams collects the inputs to Build.
type BuildParams struct {
	CodecVersion uint16
	NetworkID    uint32
	BlockchainID primitives.Hash
	Source       [20]byte
	Target       [20]byte
	Change       [20]byte
	Asset        primitives.Hash
	Amount       uint64
	FeeAmount    uint64
	Memo         []byte
	UTXOs        []UTXO
	SortOrder    SortOrder
}

// Build implements spec.md §4.5's transaction construction: select UTXOs
// covering amount+fee, build one input per selected UTXO, a target
// output, and a change output if the selection overshoots.
func Build(p BuildParams) (*Transaction, error) {
	if len(p.Memo) > memoMaxBytes {
		return nil, fmt.Errorf("avaxtx: memo exceeds %d bytes", memoMaxBytes)
	}

	amountWithFee := p.Amount + p.FeeAmount
	selected, total := SelectUTXOs(p.UTXOs, p.Source, p.Asset, amountWithFee, p.SortOrder)
	if selected == nil {
		return nil, fmt.Errorf("avaxtx: insufficient UTXOs for source to cover amount+fee")
	}

	inputs := make([]TransactionInput, 0, len(selected))
	for _, u := range selected {
		addrIndex, _ := u.HasAddress(p.Source)
		inputs = append(inputs, TransactionInput{
			Kind:           InputKindTransfer,
			TxID:           u.TxID,
			Index:          u.Index,
			Asset:          u.Asset,
			Amount:         u.Amount,
			AddressIndices: []uint32{uint32(addrIndex)},
		})
	}

	outputs := []TransactionOutput{{
		Kind:      OutputKindTransfer,
		Asset:     p.Asset,
		Locktime:  0,
		Threshold: 1,
		Amount:    p.Amount,
		Addresses: [][20]byte{p.Target},
	}}

	if change := total - amountWithFee; change > 0 {
		outputs = append(outputs, TransactionOutput{
			Kind:      OutputKindTransfer,
			Asset:     p.Asset,
			Locktime:  0,
			Threshold: 1,
			Amount:    change,
			Addresses: [][20]byte{p.Change},
		})
	}

	return &Transaction{
		Purpose:      PurposeBase,
		CodecVersion: p.CodecVersion,
		NetworkID:    p.NetworkID,
		BlockchainID: p.BlockchainID,
		Source:       p.Source,
		Target:       p.Target,
		Amount:       p.Amount,
		FeeAmount:    p.FeeAmount,
		Memo:         p.Memo,
		Inputs:       inputs,
		Outputs:      outputs,
	}, nil
}
