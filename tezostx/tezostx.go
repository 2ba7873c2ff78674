// Package tezostx implements the minimal operation-forging and signing
// scheme this module's Tezos handler needs: one or two chained operations
// (an optional reveal followed by a transaction), a canonical byte
// encoding to sign over, and Ed25519 signing under the standard Tezos
// "generic operation" watermark. Signature verification is not provided.
//
// It is grounded on BRTezosTransaction.c/BRTezosFeeBasis.c's shape as
// described by WKWalletManagerXTZ.c (tezosTransactionSerializeAndSign,
// tezosTransactionSerializeForFeeEstimation, tezosTransactionGetHash):
// forge, watermark+hash, sign, and report the signed byte count back for
// fee-margin sizing. It does not reproduce the Tezos protocol's exact
// binary forge format; this module owns both ends of OriginatingData, so
// a deterministic internal encoding serves the same purpose.
package tezostx

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// genericOperationWatermark is Tezos's tag byte prepended to forged
// operation bytes before hashing for signing (protocol constant 0x03).
const genericOperationWatermark = 0x03

// OperationKind discriminates the operation payload shapes this package
// forges.
type OperationKind string

const (
	OpReveal      OperationKind = "reveal"
	OpTransaction OperationKind = "transaction"
	OpDelegation  OperationKind = "delegation"
)

// Operation is one chained Tezos manager operation.
type Operation struct {
	Kind         OperationKind
	Source       [20]byte
	Destination  [20]byte // zero for Reveal
	PublicKey    []byte   // only for Reveal
	Amount       uint64   // mutez; zero for Reveal/Delegation
	Fee          uint64   // mutez
	Counter      uint64
	GasLimit     uint64
	StorageLimit uint64
}

// Transaction is a forged, orderable chain of operations sharing one
// branch (the block hash they anchor to).
type Transaction struct {
	Branch     [32]byte
	Operations []Operation
}

// BuildParams collects the inputs to Build.
type BuildParams struct {
	Branch       [32]byte
	Source       [20]byte
	Destination  [20]byte
	Amount       uint64
	Fee          uint64
	Counter      uint64
	GasLimit     uint64
	StorageLimit uint64

	// NeedsReveal, when true, prepends a reveal operation publishing
	// RevealPublicKey at Counter, shifting the transaction to Counter+1.
	NeedsReveal     bool
	RevealPublicKey []byte
	RevealFee       uint64
	RevealGasLimit  uint64
}

// Build chains an optional reveal operation ahead of a transaction
// operation, mirroring wkWalletManagerEstimateFeeBasisXTZ's "reveal ahead
// of the real operation, sharing one counter sequence" shape.
func Build(p BuildParams) (*Transaction, error) {
	if p.NeedsReveal && len(p.RevealPublicKey) == 0 {
		return nil, fmt.Errorf("tezostx: reveal requested without a public key")
	}

	counter := p.Counter
	var ops []Operation
	if p.NeedsReveal {
		ops = append(ops, Operation{
			Kind:      OpReveal,
			Source:    p.Source,
			PublicKey: p.RevealPublicKey,
			Fee:       p.RevealFee,
			Counter:   counter,
			GasLimit:  p.RevealGasLimit,
		})
		counter++
	}
	ops = append(ops, Operation{
		Kind:         OpTransaction,
		Source:       p.Source,
		Destination:  p.Destination,
		Amount:       p.Amount,
		Fee:          p.Fee,
		Counter:      counter,
		GasLimit:     p.GasLimit,
		StorageLimit: p.StorageLimit,
	})

	return &Transaction{Branch: p.Branch, Operations: ops}, nil
}

// Forge renders the transaction's canonical unsigned byte encoding: the
// branch, then each operation's fields in a fixed big-endian layout.
func (t *Transaction) Forge() []byte {
	buf := make([]byte, 0, 32+len(t.Operations)*96)
	buf = append(buf, t.Branch[:]...)
	for _, op := range t.Operations {
		buf = append(buf, byte(len(op.Kind)))
		buf = append(buf, []byte(op.Kind)...)
		buf = append(buf, op.Source[:]...)
		buf = append(buf, op.Destination[:]...)
		buf = appendUint64(buf, op.Amount)
		buf = appendUint64(buf, op.Fee)
		buf = appendUint64(buf, op.Counter)
		buf = appendUint64(buf, op.GasLimit)
		buf = appendUint64(buf, op.StorageLimit)
		buf = appendUint32(buf, uint32(len(op.PublicKey)))
		buf = append(buf, op.PublicKey...)
	}
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// Digest returns the watermarked Blake2b-256 hash signed over, the same
// two-step scheme (prepend the generic-operation watermark, then hash)
// Tezos's own signing path uses.
func (t *Transaction) Digest() [32]byte {
	watermarked := append([]byte{genericOperationWatermark}, t.Forge()...)
	return blake2b.Sum256(watermarked)
}

// Sign signs the transaction's digest with an Ed25519 private key,
// returning the signature and the digest signed.
func (t *Transaction) Sign(priv ed25519.PrivateKey) (signature []byte, digest [32]byte, err error) {
	digest = t.Digest()
	return ed25519.Sign(priv, digest[:]), digest, nil
}

// SignedEncode appends signature to the forged bytes, the shape
// tezosTransactionGetSignedBytesCount measures the length of.
func (t *Transaction) SignedEncode(signature []byte) []byte {
	return append(t.Forge(), signature...)
}
